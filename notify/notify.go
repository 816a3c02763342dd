// Package notify announces written artifacts to downstream consumers.
package notify

import (
	"context"
	"time"
)

// ArtifactEvent describes one artifact that landed in the object store.
type ArtifactEvent struct {
	RunID       string    `json:"run_id"`
	Bucket      string    `json:"bucket"`
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	Records     int       `json:"records"`
	Bytes       int       `json:"bytes"`
	IngestedAt  time.Time `json:"ingested_at"`
}

type Notifier interface {
	Notify(ctx context.Context, ev ArtifactEvent) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Notify(context.Context, ArtifactEvent) error { return nil }

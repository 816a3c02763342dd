package ingestor

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// KeyFunc derives the artifact key for a run started at ingestedAt.
type KeyFunc func(ctx context.Context, ingestedAt time.Time) (key string, err error)

// DateKeyFunc returns keys of the form YYYY-MM-DD/<name><ext>, with the date
// taken in loc. Runs on the same calendar date share a key, so the latest run
// of the day replaces the earlier artifact.
func DateKeyFunc(name, ext string, loc *time.Location) KeyFunc {
	name = strings.Trim(name, "/")
	if name == "" {
		name = "bike_list"
	}
	if ext == "" || ext[0] != '.' {
		ext = ".bin"
	}
	if loc == nil {
		loc = time.UTC
	}
	return func(ctx context.Context, ingestedAt time.Time) (string, error) {
		_ = ctx
		if ingestedAt.IsZero() {
			return "", fmt.Errorf("zero ingestion time")
		}
		return ingestedAt.In(loc).Format(time.DateOnly) + "/" + name + ext, nil
	}
}

package sink

import "context"

type WriteRequest struct {
	Key         string
	Data        []byte
	ContentType string
	// Metadata is stored as object user metadata when the sink supports it.
	Metadata map[string]string
}

type Sinkr interface {
	Write(ctx context.Context, req WriteRequest) error
}

package encoder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Encoder converts a snapshot of raw records into an artifact payload.
//
// Implementations must keep record order.
type Encoder interface {
	Encode(ctx context.Context, records []json.RawMessage) (data []byte, err error)
	FileExtension() string
	ContentType() string
}

const (
	FormatJSON    = "json"
	FormatNDJSON  = "ndjson"
	FormatParquet = "parquet"
)

// New returns the encoder registered for format. An empty format means JSON.
func New(format string) (Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		return JSONEncoder{}, nil
	case FormatNDJSON:
		return NDJSONEncoder{}, nil
	case FormatParquet:
		return ParquetEncoder{Compression: ParquetCompressionSnappy}, nil
	default:
		return nil, fmt.Errorf("unsupported artifact format: %q", format)
	}
}

func checkCtx(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

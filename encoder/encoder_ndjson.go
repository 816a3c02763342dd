package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// NDJSONEncoder writes one compacted record per line.
type NDJSONEncoder struct {
	TrailingNewline bool
}

func (NDJSONEncoder) FileExtension() string { return ".ndjson" }
func (NDJSONEncoder) ContentType() string   { return "application/x-ndjson" }

func (e NDJSONEncoder) Encode(ctx context.Context, records []json.RawMessage) ([]byte, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(estimateSize(records))
	for i, r := range records {
		if err := json.Compact(&buf, r); err != nil {
			return nil, fmt.Errorf("ndjson encode record %d: %w", i, err)
		}
		buf.WriteByte('\n')
	}

	if !e.TrailingNewline && buf.Len() > 0 {
		buf.Truncate(buf.Len() - 1)
	}

	return buf.Bytes(), nil
}

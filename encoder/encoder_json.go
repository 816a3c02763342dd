package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// JSONEncoder writes the snapshot as a single JSON array. Records are
// compacted but otherwise kept byte-for-byte, including key order.
type JSONEncoder struct{}

func (JSONEncoder) FileExtension() string { return ".json" }
func (JSONEncoder) ContentType() string   { return "application/json" }

func (JSONEncoder) Encode(ctx context.Context, records []json.RawMessage) ([]byte, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(estimateSize(records) + 2)
	buf.WriteByte('[')
	for i, r := range records {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := json.Compact(&buf, r); err != nil {
			return nil, fmt.Errorf("json encode record %d: %w", i, err)
		}
	}
	buf.WriteByte(']')

	return buf.Bytes(), nil
}

func estimateSize(records []json.RawMessage) int {
	n := 0
	for _, r := range records {
		n += len(r) + 1
	}
	return n
}

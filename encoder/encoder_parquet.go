package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/parquet-go/parquet-go"
)

const (
	ParquetCompressionNone   = ""
	ParquetCompressionSnappy = "snappy"
	ParquetCompressionGzip   = "gzip"
	ParquetCompressionZstd   = "zstd"
)

// RawRow is the parquet layout of a bronze record: its position in the
// snapshot and the record itself as JSON text.
type RawRow struct {
	Seq    int64  `parquet:"seq"`
	Record string `parquet:"record"`
}

type ParquetEncoder struct {
	// Compression (optional): "", "snappy", "gzip", "zstd"
	Compression string
}

func (ParquetEncoder) FileExtension() string { return ".parquet" }
func (ParquetEncoder) ContentType() string   { return "application/vnd.apache.parquet" }

func (e ParquetEncoder) Encode(ctx context.Context, records []json.RawMessage) ([]byte, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	options := make([]parquet.WriterOption, 0, 1)
	switch e.Compression {
	case ParquetCompressionNone:
	case ParquetCompressionSnappy:
		options = append(options, parquet.Compression(&parquet.Snappy))
	case ParquetCompressionGzip:
		options = append(options, parquet.Compression(&parquet.Gzip))
	case ParquetCompressionZstd:
		options = append(options, parquet.Compression(&parquet.Zstd))
	default:
		return nil, fmt.Errorf("unsupported parquet compression: %q", e.Compression)
	}

	rows := make([]RawRow, len(records))
	var compact bytes.Buffer
	for i, r := range records {
		compact.Reset()
		if err := json.Compact(&compact, r); err != nil {
			return nil, fmt.Errorf("parquet encode record %d: %w", i, err)
		}
		rows[i] = RawRow{Seq: int64(i), Record: compact.String()}
	}

	output := &bytes.Buffer{}
	w := parquet.NewGenericWriter[RawRow](output, options...)
	if _, err := w.Write(rows); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}

package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
)

func readAllParquet[T any](t *testing.T, b []byte) ([]T, error) {
	t.Helper()

	r := parquet.NewGenericReader[T](bytes.NewReader(b))
	defer r.Close()

	const batchSize = 256
	buf := make([]T, batchSize)

	out := make([]T, 0, batchSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, err
		}
	}

	return out, nil
}

func stationRecords(n int) []json.RawMessage {
	out := make([]json.RawMessage, n)
	for i := range out {
		out[i] = json.RawMessage(fmt.Sprintf(`{"stationId":"ST-%d", "parkingBikeTotCnt":"%d"}`, i, i%7))
	}
	return out
}

func TestParquetEncoder_FileExtension(t *testing.T) {
	e := ParquetEncoder{}
	if got := e.FileExtension(); got != ".parquet" {
		t.Fatalf("FileExtension() = %q; want %q", got, ".parquet")
	}
	if got := e.ContentType(); got != "application/vnd.apache.parquet" {
		t.Fatalf("ContentType() = %q", got)
	}
}

func TestParquetEncoder_UnsupportedCompression(t *testing.T) {
	e := ParquetEncoder{Compression: "brotli"}
	if _, err := e.Encode(context.Background(), stationRecords(1)); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestParquetEncoder_ContextCanceledBefore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ParquetEncoder{}.Encode(ctx, stationRecords(1))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParquetEncoder_ContextDeadlineExceededBefore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := ParquetEncoder{}.Encode(ctx, stationRecords(1))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestParquetEncoder_EncodeRoundTrip(t *testing.T) {
	for _, compression := range []string{"", "snappy", "gzip", "zstd"} {
		t.Run("compression="+compression, func(t *testing.T) {
			records := stationRecords(25)

			data, err := ParquetEncoder{Compression: compression}.Encode(context.Background(), records)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			if len(data) == 0 {
				t.Fatal("expected non-empty parquet bytes")
			}

			got, err := readAllParquet[RawRow](t, data)
			if err != nil {
				t.Fatalf("read parquet error: %v", err)
			}
			if len(got) != len(records) {
				t.Fatalf("expected %d rows back, got %d", len(records), len(got))
			}
			for i := range records {
				want := fmt.Sprintf(`{"stationId":"ST-%d","parkingBikeTotCnt":"%d"}`, i, i%7)
				if got[i].Seq != int64(i) || got[i].Record != want {
					t.Fatalf("row %d mismatch: got=%+v want record %s", i, got[i], want)
				}
			}
		})
	}
}

func TestParquetEncoder_InvalidRecord(t *testing.T) {
	records := []json.RawMessage{json.RawMessage(`{"ok":1}`), json.RawMessage(`{broken`)}
	if _, err := (ParquetEncoder{}).Encode(context.Background(), records); err == nil {
		t.Fatal("expected error for invalid record")
	}
}

// -------------------- Benchmarks --------------------

func benchmarkParquetEncode(b *testing.B, n int, compression string) {
	b.Helper()

	records := stationRecords(n)
	enc := ParquetEncoder{Compression: compression}
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		data, err := enc.Encode(ctx, records)
		if err != nil {
			b.Fatalf("Encode error: %v", err)
		}
		_ = data[len(data)-1]
	}
}

func BenchmarkParquetEncoder_Snappy(b *testing.B) {
	for _, n := range []int{100, 1_000, 3_000} {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			benchmarkParquetEncode(b, n, "snappy")
		})
	}
}

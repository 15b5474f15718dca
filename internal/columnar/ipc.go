package columnar

import (
	"bufio"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionCodec names an optional, out-of-band codec wrapping the raw
// Arrow IPC stream bytes. Per spec.md §6, codecs are negotiated outside the
// wire format itself — the IPC schema/record-batch framing is untouched;
// only the outer byte stream is compressed.
type CompressionCodec int

const (
	CompressionNone CompressionCodec = iota
	CompressionLZ4
	CompressionZstd
)

// WriteStream serializes batch as an Arrow IPC stream (schema message then
// one record-batch message), optionally wrapped in codec's compressor.
func WriteStream(w io.Writer, batch *Batch, codec CompressionCodec) error {
	out, closeOut, err := wrapWriter(w, codec)
	if err != nil {
		return err
	}
	as, err := batch.schema.ToArrow()
	if err != nil {
		return err
	}
	iw := ipc.NewWriter(out, ipc.WithSchema(as), ipc.WithAllocator(memory.NewGoAllocator()))
	if err := iw.Write(batch.record); err != nil {
		iw.Close()
		closeOut()
		return fmt.Errorf("columnar: ipc write: %w", err)
	}
	if err := iw.Close(); err != nil {
		closeOut()
		return fmt.Errorf("columnar: ipc close: %w", err)
	}
	return closeOut()
}

func wrapWriter(w io.Writer, codec CompressionCodec) (io.Writer, func() error, error) {
	switch codec {
	case CompressionNone:
		return w, func() error { return nil }, nil
	case CompressionLZ4:
		zw := lz4.NewWriter(w)
		return zw, zw.Close, nil
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, nil, fmt.Errorf("columnar: zstd writer: %w", err)
		}
		return zw, zw.Close, nil
	default:
		return nil, nil, fmt.Errorf("columnar: unknown compression codec %d", codec)
	}
}

// ReadStream reads one Arrow IPC stream (schema message plus record-batch
// messages, concatenated into a single Batch of all rows) written with
// WriteStream under the same codec.
func ReadStream(r io.Reader, codec CompressionCodec) (*Batch, error) {
	in, err := wrapReader(r, codec)
	if err != nil {
		return nil, err
	}
	reader, err := ipc.NewReader(in, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("columnar: ipc reader: %w", err)
	}
	defer reader.Release()

	var combined arrow.Record
	for reader.Next() {
		rec := reader.Record()
		if combined == nil {
			rec.Retain()
			combined = rec
			continue
		}
		merged, err := concatRecords(reader.Schema(), combined, rec)
		if err != nil {
			return nil, err
		}
		combined.Release()
		combined = merged
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("columnar: ipc read: %w", err)
	}
	if combined == nil {
		as := reader.Schema()
		schema, serr := FromArrow(as)
		if serr != nil {
			return nil, serr
		}
		builders := make([]*Builder, len(schema.Fields))
		for i, f := range schema.Fields {
			bb, berr := NewBuilder(f)
			if berr != nil {
				return nil, berr
			}
			builders[i] = bb
		}
		rec, rerr := NewRecordFromBuilders(schema, builders)
		if rerr != nil {
			return nil, rerr
		}
		combined = rec
	}
	defer combined.Release()
	return NewBatch(combined)
}

func wrapReader(r io.Reader, codec CompressionCodec) (io.Reader, error) {
	switch codec {
	case CompressionNone:
		return bufio.NewReader(r), nil
	case CompressionLZ4:
		return lz4.NewReader(r), nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("columnar: zstd reader: %w", err)
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("columnar: unknown compression codec %d", codec)
	}
}

// concatRecords appends rec's rows onto base, used when an IPC stream
// carries multiple record-batch messages that the caller wants as one
// frozen Batch. This is a plain row-range copy through typed builders,
// not a zero-copy operation (unavoidable: arrow.Record has no in-place
// append).
func concatRecords(schema *arrow.Schema, base, rec arrow.Record) (arrow.Record, error) {
	eschema, err := FromArrow(schema)
	if err != nil {
		return nil, err
	}
	builders := make([]*Builder, len(eschema.Fields))
	for i, f := range eschema.Fields {
		b, err := NewBuilder(f)
		if err != nil {
			return nil, err
		}
		builders[i] = b
	}
	for _, src := range []arrow.Record{base, rec} {
		if err := appendAllRows(eschema, builders, src); err != nil {
			return nil, err
		}
	}
	return NewRecordFromBuilders(eschema, builders)
}

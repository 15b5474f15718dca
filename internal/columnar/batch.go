package columnar

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/float16"
)

// Batch wraps one arrow.Record: a schema plus aligned typed columns sharing
// one row count. Batch never mutates the underlying record; all derived
// views (slices, projections) share the same backing buffers until the
// whole chain is Released.
type Batch struct {
	schema *Schema
	record arrow.Record
}

// NewBatch wraps an existing arrow.Record, deriving its engine Schema.
func NewBatch(rec arrow.Record) (*Batch, error) {
	schema, err := FromArrow(rec.Schema())
	if err != nil {
		return nil, err
	}
	rec.Retain()
	return &Batch{schema: schema, record: rec}, nil
}

// Schema returns the batch's engine schema.
func (b *Batch) Schema() *Schema { return b.schema }

// Record exposes the underlying arrow.Record, for the IPC writer and for
// callers materializing a columnar result with to_batch.
func (b *Batch) Record() arrow.Record { return b.record }

// Len returns the row count.
func (b *Batch) Len() int { return int(b.record.NumRows()) }

// Retain increments the reference count of the underlying record.
func (b *Batch) Retain() { b.record.Retain() }

// Release decrements the reference count of the underlying record, freeing
// backing buffers once it reaches zero. Per spec.md §5, disposal
// invalidates all derived results sharing these buffers.
func (b *Batch) Release() { b.record.Release() }

// Column returns the arrow.Array backing field index i.
func (b *Batch) Column(i int) arrow.Array { return b.record.Column(i) }

// IsValid reports whether row is non-null in column i. Columns declared
// non-nullable always report true without consulting a validity bitmap.
func (b *Batch) IsValid(col, row int) bool {
	arr := b.record.Column(col)
	if arr.NullN() == 0 {
		return true
	}
	return arr.IsValid(row)
}

// Slice returns a new Batch viewing rows [start, end) of the same
// underlying columns — zero-copy, per spec.md §4.8's full-scan fast path.
func (b *Batch) Slice(start, end int) *Batch {
	sliced := b.record.NewSlice(int64(start), int64(end))
	schema := b.schema
	return &Batch{schema: schema, record: sliced}
}

// Float64At reads row as a float64 for any orderable numeric/date/timestamp
// column kind, upcasting float16 to float32-then-float64 per the engine's
// half-precision comparison decision (spec.md §9). Used by zone-map
// min/max comparisons and the scalar predicate fallback.
func (b *Batch) Float64At(col, row int) (float64, bool) {
	if !b.IsValid(col, row) {
		return 0, false
	}
	kind := b.schema.Fields[col].Kind
	arr := b.record.Column(col)
	switch kind {
	case KindInt8:
		return float64(arr.(*array.Int8).Value(row)), true
	case KindInt16:
		return float64(arr.(*array.Int16).Value(row)), true
	case KindInt32:
		return float64(arr.(*array.Int32).Value(row)), true
	case KindInt64:
		return float64(arr.(*array.Int64).Value(row)), true
	case KindUint8:
		return float64(arr.(*array.Uint8).Value(row)), true
	case KindUint16:
		return float64(arr.(*array.Uint16).Value(row)), true
	case KindUint32:
		return float64(arr.(*array.Uint32).Value(row)), true
	case KindUint64:
		return float64(arr.(*array.Uint64).Value(row)), true
	case KindFloat16:
		v := arr.(*array.Float16).Value(row)
		return float64(v.Float32()), true
	case KindFloat32:
		return float64(arr.(*array.Float32).Value(row)), true
	case KindFloat64:
		return arr.(*array.Float64).Value(row), true
	case KindDate32:
		return float64(arr.(*array.Date32).Value(row)), true
	case KindDate64:
		return float64(arr.(*array.Date64).Value(row)), true
	case KindTimestampSecond, KindTimestampMilli, KindTimestampMicro, KindTimestampNano:
		return float64(arr.(*array.Timestamp).Value(row)), true
	default:
		return math.NaN(), false
	}
}

// BoolAt reads row as a bool.
func (b *Batch) BoolAt(col, row int) (bool, bool) {
	if !b.IsValid(col, row) {
		return false, false
	}
	return b.record.Column(col).(*array.Boolean).Value(row), true
}

// StringAt reads row as a string, transparently decoding a dictionary index
// through its values array when the column is dictionary-encoded.
func (b *Batch) StringAt(col, row int) (string, bool) {
	if !b.IsValid(col, row) {
		return "", false
	}
	kind := b.schema.Fields[col].Kind
	arr := b.record.Column(col)
	switch kind {
	case KindString:
		return arr.(*array.String).Value(row), true
	case KindDictionaryString:
		dict := arr.(*array.Dictionary)
		idx := dict.GetValueIndex(row)
		return dict.Dictionary().(*array.String).Value(idx), true
	default:
		return "", false
	}
}

// DictionaryIndex returns the raw dictionary index for row in a
// dictionary-encoded column, used by the dictionary fast path to avoid
// decoding strings per row.
func (b *Batch) DictionaryIndex(col, row int) (int, bool) {
	if !b.IsValid(col, row) {
		return 0, false
	}
	dict, ok := b.record.Column(col).(*array.Dictionary)
	if !ok {
		return 0, false
	}
	return dict.GetValueIndex(row), true
}

// DictionaryValues returns the distinct string values backing a
// dictionary-encoded column, in index order.
func (b *Batch) DictionaryValues(col int) ([]string, error) {
	dict, ok := b.record.Column(col).(*array.Dictionary)
	if !ok {
		return nil, fmt.Errorf("columnar: column %d is not dictionary-encoded", col)
	}
	values := dict.Dictionary().(*array.String)
	out := make([]string, values.Len())
	for i := range out {
		out[i] = values.Value(i)
	}
	return out, nil
}

// MaterializeFloat64 copies column col into a []float64 plus a parallel
// validity slice, upcasting any kind Float64At supports. Used by the
// predicate package's lane-oriented SIMD-flavored kernels, which need a
// contiguous slice to iterate lane-at-a-time rather than per-row dynamic
// dispatch through the arrow array.
func (b *Batch) MaterializeFloat64(col int) (values []float64, valid []bool) {
	n := b.Len()
	values = make([]float64, n)
	valid = make([]bool, n)
	for row := 0; row < n; row++ {
		v, ok := b.Float64At(col, row)
		values[row] = v
		valid[row] = ok
	}
	return values, valid
}

// Float16At exists so callers needing the raw half-precision bits (rather
// than the upcast float64 used for comparisons) can get them without a
// second type switch.
func (b *Batch) Float16At(col, row int) (float16.Num, bool) {
	if !b.IsValid(col, row) {
		return float16.Num{}, false
	}
	return b.record.Column(col).(*array.Float16).Value(row), true
}

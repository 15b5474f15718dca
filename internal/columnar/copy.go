package columnar

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// appendAllRows copies every row of src into builders, dispatching per
// field kind. Used to concatenate multiple IPC record-batch messages into
// one frozen Batch and by the renderer's per-column-filter slow path.
func appendAllRows(schema *Schema, builders []*Builder, src arrow.Record) error {
	batch, err := NewBatch(src)
	if err != nil {
		return err
	}
	defer batch.Release()

	n := batch.Len()
	for row := 0; row < n; row++ {
		if err := appendRow(schema, builders, batch, row); err != nil {
			return err
		}
	}
	return nil
}

// appendRow copies row from batch into builders, column by column, where
// builders[i] corresponds to schema.Fields[i] at the SAME column index in
// batch (i.e. schema is batch's own schema or a same-order prefix of it).
func appendRow(schema *Schema, builders []*Builder, batch *Batch, row int) error {
	for col, f := range schema.Fields {
		if err := appendCell(builders[col], f, batch, col, row); err != nil {
			return err
		}
	}
	return nil
}

// appendCell copies batch[col][row] into b, dispatching on f's kind. Used
// both by appendRow (target field index == source column index) and by
// Project (an arbitrary target-field -> source-column mapping for a
// column-subset, row-subset copy).
func appendCell(b *Builder, f Field, batch *Batch, col, row int) error {
	if !batch.IsValid(col, row) {
		b.AppendNull()
		return nil
	}
	switch {
	case f.Kind.IsInteger() && isSigned(f.Kind):
		v, _ := batch.Float64At(col, row)
		return b.AppendInt64(int64(v))
	case f.Kind.IsInteger():
		v, _ := batch.Float64At(col, row)
		return b.AppendUint64(uint64(v))
	case f.Kind == KindFloat16 || f.Kind == KindFloat32 || f.Kind == KindFloat64:
		v, _ := batch.Float64At(col, row)
		return b.AppendFloat64(v)
	case f.Kind == KindBool:
		v, _ := batch.BoolAt(col, row)
		return b.AppendBool(v)
	case f.Kind == KindString || f.Kind == KindDictionaryString:
		v, _ := batch.StringAt(col, row)
		return b.AppendString(v)
	case f.Kind == KindDate32:
		v, _ := batch.Float64At(col, row)
		return b.AppendDate32(arrow.Date32(int32(v)))
	case f.Kind == KindDate64:
		v, _ := batch.Float64At(col, row)
		return b.AppendDate64(arrow.Date64(int64(v)))
	case f.Kind == KindTimestampSecond || f.Kind == KindTimestampMilli ||
		f.Kind == KindTimestampMicro || f.Kind == KindTimestampNano:
		v, _ := batch.Float64At(col, row)
		return b.AppendTimestamp(arrow.Timestamp(int64(v)))
	default:
		return fmt.Errorf("columnar: unsupported field kind %v for row copy", f.Kind)
	}
}

func isSigned(k Kind) bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return true
	default:
		return false
	}
}

package columnar

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/float16"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Builder accumulates typed values for one column, across Append* calls,
// until Finish produces the backing arrow.Array. Ingest (internal/ingest)
// drives one Builder per field.
type Builder struct {
	Field Field
	build array.Builder
}

// NewBuilder allocates a Builder for field using the process-wide Go
// allocator (no cgo, matching the rest of this module).
func NewBuilder(field Field) (*Builder, error) {
	dt, err := ToArrowType(field.Kind, field.TimeZone)
	if err != nil {
		return nil, err
	}
	mem := memory.NewGoAllocator()
	var b array.Builder
	if field.Kind == KindDictionaryString {
		b = array.NewDictionaryBuilder(mem, dt.(*arrow.DictionaryType))
	} else {
		b = array.NewBuilder(mem, dt)
	}
	return &Builder{Field: field, build: b}, nil
}

// AppendNull appends a null value, valid for any nullable field.
func (b *Builder) AppendNull() { b.build.AppendNull() }

// AppendInt64 appends v, narrowing to the field's declared integer width.
// Ingest validates the value fits before calling this.
func (b *Builder) AppendInt64(v int64) error {
	switch bb := b.build.(type) {
	case *array.Int8Builder:
		bb.Append(int8(v))
	case *array.Int16Builder:
		bb.Append(int16(v))
	case *array.Int32Builder:
		bb.Append(int32(v))
	case *array.Int64Builder:
		bb.Append(v)
	default:
		return fmt.Errorf("columnar: field %q is not a signed integer builder", b.Field.Name)
	}
	return nil
}

// AppendUint64 appends v, narrowing to the field's declared unsigned width.
func (b *Builder) AppendUint64(v uint64) error {
	switch bb := b.build.(type) {
	case *array.Uint8Builder:
		bb.Append(uint8(v))
	case *array.Uint16Builder:
		bb.Append(uint16(v))
	case *array.Uint32Builder:
		bb.Append(uint32(v))
	case *array.Uint64Builder:
		bb.Append(v)
	default:
		return fmt.Errorf("columnar: field %q is not an unsigned integer builder", b.Field.Name)
	}
	return nil
}

// AppendFloat64 appends v, narrowing to the field's declared float width.
func (b *Builder) AppendFloat64(v float64) error {
	switch bb := b.build.(type) {
	case *array.Float16Builder:
		bb.Append(float16.New(float32(v)))
	case *array.Float32Builder:
		bb.Append(float32(v))
	case *array.Float64Builder:
		bb.Append(v)
	default:
		return fmt.Errorf("columnar: field %q is not a float builder", b.Field.Name)
	}
	return nil
}

// AppendBool appends v.
func (b *Builder) AppendBool(v bool) error {
	bb, ok := b.build.(*array.BooleanBuilder)
	if !ok {
		return fmt.Errorf("columnar: field %q is not a bool builder", b.Field.Name)
	}
	bb.Append(v)
	return nil
}

// AppendString appends v, dispatching to the dictionary builder when the
// field is dictionary-encoded.
func (b *Builder) AppendString(v string) error {
	switch bb := b.build.(type) {
	case *array.StringBuilder:
		bb.Append(v)
	case *array.BinaryDictionaryBuilder:
		return bb.AppendString(v)
	default:
		return fmt.Errorf("columnar: field %q is not a string builder", b.Field.Name)
	}
	return nil
}

// AppendBinary appends v.
func (b *Builder) AppendBinary(v []byte) error {
	bb, ok := b.build.(*array.BinaryBuilder)
	if !ok {
		return fmt.Errorf("columnar: field %q is not a binary builder", b.Field.Name)
	}
	bb.Append(v)
	return nil
}

// AppendDate32 appends v (days since the Unix epoch).
func (b *Builder) AppendDate32(v arrow.Date32) error {
	bb, ok := b.build.(*array.Date32Builder)
	if !ok {
		return fmt.Errorf("columnar: field %q is not a date32 builder", b.Field.Name)
	}
	bb.Append(v)
	return nil
}

// AppendDate64 appends v (milliseconds since the Unix epoch).
func (b *Builder) AppendDate64(v arrow.Date64) error {
	bb, ok := b.build.(*array.Date64Builder)
	if !ok {
		return fmt.Errorf("columnar: field %q is not a date64 builder", b.Field.Name)
	}
	bb.Append(v)
	return nil
}

// AppendTimestamp appends v in the field's declared unit.
func (b *Builder) AppendTimestamp(v arrow.Timestamp) error {
	bb, ok := b.build.(*array.TimestampBuilder)
	if !ok {
		return fmt.Errorf("columnar: field %q is not a timestamp builder", b.Field.Name)
	}
	bb.Append(v)
	return nil
}

// Len reports how many values (including nulls) have been appended so far.
func (b *Builder) Len() int { return b.build.Len() }

// NewArray finalizes the builder, returning the backing arrow.Array. The
// builder must not be reused afterward.
func (b *Builder) NewArray() arrow.Array { return b.build.NewArray() }

// NewRecordFromBuilders finalizes every builder in order and assembles an
// arrow.Record honoring schema's field order.
func NewRecordFromBuilders(schema *Schema, builders []*Builder) (arrow.Record, error) {
	if len(builders) != len(schema.Fields) {
		return nil, fmt.Errorf("columnar: builder count %d does not match schema field count %d", len(builders), len(schema.Fields))
	}
	as, err := schema.ToArrow()
	if err != nil {
		return nil, err
	}
	cols := make([]arrow.Array, len(builders))
	var numRows int64 = -1
	for i, b := range builders {
		arr := b.NewArray()
		defer arr.Release()
		cols[i] = arr
		if numRows == -1 {
			numRows = int64(arr.Len())
		} else if int64(arr.Len()) != numRows {
			return nil, fmt.Errorf("columnar: column %q has %d rows, expected %d", schema.Fields[i].Name, arr.Len(), numRows)
		}
	}
	if numRows == -1 {
		numRows = 0
	}
	return array.NewRecord(as, cols, numRows), nil
}

// Package columnar adapts the Apache Arrow columnar substrate
// (github.com/apache/arrow-go/v18) to the engine's enumerated value types,
// schema, and record-batch shape. Everything upstream of this package
// (bitmap, predicate, optimizer, executor) programs against the types
// declared here rather than against arrow-go directly, so a substrate
// swap only touches this adapter.
package columnar

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
)

// Kind enumerates the value types a column may hold, per the data model's
// type list: signed/unsigned integers of every width, half/single/double
// floats, decimal, bool, UTF-8 string, binary, date32/64, timestamps at
// every unit (optionally zoned), and dictionary-encoded string.
type Kind int

const (
	KindInvalid Kind = iota
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat16
	KindFloat32
	KindFloat64
	KindBool
	KindDecimal128
	KindString
	KindBinary
	KindDate32
	KindDate64
	KindTimestampSecond
	KindTimestampMilli
	KindTimestampMicro
	KindTimestampNano
	KindDictionaryString
)

func (k Kind) String() string {
	switch k {
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindUint8:
		return "uint8"
	case KindUint16:
		return "uint16"
	case KindUint32:
		return "uint32"
	case KindUint64:
		return "uint64"
	case KindFloat16:
		return "float16"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	case KindDecimal128:
		return "decimal128"
	case KindString:
		return "utf8"
	case KindBinary:
		return "binary"
	case KindDate32:
		return "date32"
	case KindDate64:
		return "date64"
	case KindTimestampSecond:
		return "timestamp[s]"
	case KindTimestampMilli:
		return "timestamp[ms]"
	case KindTimestampMicro:
		return "timestamp[us]"
	case KindTimestampNano:
		return "timestamp[ns]"
	case KindDictionaryString:
		return "dictionary<string>"
	default:
		return "invalid"
	}
}

// IsOrderable reports whether values of this kind support <, <=, >, >=
// comparisons and therefore can carry a zone map.
func (k Kind) IsOrderable() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64,
		KindUint8, KindUint16, KindUint32, KindUint64,
		KindFloat16, KindFloat32, KindFloat64,
		KindDate32, KindDate64,
		KindTimestampSecond, KindTimestampMilli, KindTimestampMicro, KindTimestampNano:
		return true
	default:
		return false
	}
}

// IsNumeric reports whether this kind is an integer or floating-point kind.
func (k Kind) IsNumeric() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64,
		KindUint8, KindUint16, KindUint32, KindUint64,
		KindFloat16, KindFloat32, KindFloat64:
		return true
	default:
		return false
	}
}

// IsInteger reports whether this kind is a signed or unsigned integer kind.
func (k Kind) IsInteger() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64,
		KindUint8, KindUint16, KindUint32, KindUint64:
		return true
	default:
		return false
	}
}

// Field describes one column: its name, value kind, and nullability.
type Field struct {
	Name     string
	Kind     Kind
	Nullable bool
	// TimeZone applies only to timestamp kinds; empty means naive/UTC.
	TimeZone string
}

// Schema is an ordered list of fields.
type Schema struct {
	Fields []Field
}

// IndexOf returns the field index for name, or -1.
func (s *Schema) IndexOf(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// ToArrow translates Schema to an arrow.Schema, used by the ingest builder
// and the IPC writer.
func (s *Schema) ToArrow() (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(s.Fields))
	for i, f := range s.Fields {
		dt, err := ToArrowType(f.Kind, f.TimeZone)
		if err != nil {
			return nil, fmt.Errorf("columnar: field %q: %w", f.Name, err)
		}
		fields[i] = arrow.Field{Name: f.Name, Type: dt, Nullable: f.Nullable}
	}
	return arrow.NewSchema(fields, nil), nil
}

// FromArrow translates an arrow.Schema back into Schema, used when reading
// an IPC stream whose schema was produced elsewhere.
func FromArrow(as *arrow.Schema) (*Schema, error) {
	fields := make([]Field, as.NumFields())
	for i := 0; i < as.NumFields(); i++ {
		af := as.Field(i)
		kind, tz, err := FromArrowType(af.Type)
		if err != nil {
			return nil, fmt.Errorf("columnar: field %q: %w", af.Name, err)
		}
		fields[i] = Field{Name: af.Name, Kind: kind, Nullable: af.Nullable, TimeZone: tz}
	}
	return &Schema{Fields: fields}, nil
}

// ToArrowType maps a Kind (plus optional time zone for timestamps) to the
// concrete arrow.DataType used to build/read columns of that kind.
func ToArrowType(k Kind, tz string) (arrow.DataType, error) {
	switch k {
	case KindInt8:
		return arrow.PrimitiveTypes.Int8, nil
	case KindInt16:
		return arrow.PrimitiveTypes.Int16, nil
	case KindInt32:
		return arrow.PrimitiveTypes.Int32, nil
	case KindInt64:
		return arrow.PrimitiveTypes.Int64, nil
	case KindUint8:
		return arrow.PrimitiveTypes.Uint8, nil
	case KindUint16:
		return arrow.PrimitiveTypes.Uint16, nil
	case KindUint32:
		return arrow.PrimitiveTypes.Uint32, nil
	case KindUint64:
		return arrow.PrimitiveTypes.Uint64, nil
	case KindFloat16:
		return arrow.FixedWidthTypes.Float16, nil
	case KindFloat32:
		return arrow.PrimitiveTypes.Float32, nil
	case KindFloat64:
		return arrow.PrimitiveTypes.Float64, nil
	case KindBool:
		return arrow.FixedWidthTypes.Boolean, nil
	case KindDecimal128:
		return &arrow.Decimal128Type{Precision: 38, Scale: 9}, nil
	case KindString:
		return arrow.BinaryTypes.String, nil
	case KindBinary:
		return arrow.BinaryTypes.Binary, nil
	case KindDate32:
		return arrow.FixedWidthTypes.Date32, nil
	case KindDate64:
		return arrow.FixedWidthTypes.Date64, nil
	case KindTimestampSecond:
		return &arrow.TimestampType{Unit: arrow.Second, TimeZone: tz}, nil
	case KindTimestampMilli:
		return &arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: tz}, nil
	case KindTimestampMicro:
		return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: tz}, nil
	case KindTimestampNano:
		return &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: tz}, nil
	case KindDictionaryString:
		return &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int32, ValueType: arrow.BinaryTypes.String}, nil
	default:
		return nil, fmt.Errorf("columnar: unsupported kind %v", k)
	}
}

// FromArrowType is the inverse of ToArrowType.
func FromArrowType(dt arrow.DataType) (Kind, string, error) {
	switch t := dt.(type) {
	case *arrow.Int8Type:
		return KindInt8, "", nil
	case *arrow.Int16Type:
		return KindInt16, "", nil
	case *arrow.Int32Type:
		return KindInt32, "", nil
	case *arrow.Int64Type:
		return KindInt64, "", nil
	case *arrow.Uint8Type:
		return KindUint8, "", nil
	case *arrow.Uint16Type:
		return KindUint16, "", nil
	case *arrow.Uint32Type:
		return KindUint32, "", nil
	case *arrow.Uint64Type:
		return KindUint64, "", nil
	case *arrow.Float16Type:
		return KindFloat16, "", nil
	case *arrow.Float32Type:
		return KindFloat32, "", nil
	case *arrow.Float64Type:
		return KindFloat64, "", nil
	case *arrow.BooleanType:
		return KindBool, "", nil
	case *arrow.Decimal128Type:
		return KindDecimal128, "", nil
	case *arrow.StringType:
		return KindString, "", nil
	case *arrow.BinaryType:
		return KindBinary, "", nil
	case *arrow.Date32Type:
		return KindDate32, "", nil
	case *arrow.Date64Type:
		return KindDate64, "", nil
	case *arrow.TimestampType:
		switch t.Unit {
		case arrow.Second:
			return KindTimestampSecond, t.TimeZone, nil
		case arrow.Millisecond:
			return KindTimestampMilli, t.TimeZone, nil
		case arrow.Microsecond:
			return KindTimestampMicro, t.TimeZone, nil
		case arrow.Nanosecond:
			return KindTimestampNano, t.TimeZone, nil
		}
		return KindInvalid, "", fmt.Errorf("columnar: unsupported timestamp unit %v", t.Unit)
	case *arrow.DictionaryType:
		if _, ok := t.ValueType.(*arrow.StringType); ok {
			return KindDictionaryString, "", nil
		}
		return KindInvalid, "", fmt.Errorf("columnar: unsupported dictionary value type %v", t.ValueType)
	default:
		return KindInvalid, "", fmt.Errorf("columnar: unsupported arrow type %v", dt)
	}
}

// Decimal128FromFloat64 is a convenience used by the renderer and builders
// when a caller supplies a float for a decimal128 field; the engine does
// not otherwise perform arbitrary-precision arithmetic on decimals.
func Decimal128FromFloat64(v float64, scale int32) decimal128.Num {
	return decimal128.FromFloat64(v, 38, scale)
}

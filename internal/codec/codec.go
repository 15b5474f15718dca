// Package codec provides the row <-> batch translation the query engine
// needs at its two edges: ingest (row -> builder appends) and rendering
// (batch row -> caller's T). Per spec.md §9's option (b), this is a
// one-time, reflection-built codec keyed to a schema descriptor rather
// than a compile-time code generator (that generator is out of scope,
// spec.md §1 Out of scope (b); only its produced *interface* is specified).
package codec

import (
	"fmt"
	"reflect"

	"github.com/lychee-technology/colbeam/internal/columnar"
)

// RowCodec reads one row of a batch into a T and writes a T's fields into
// a set of column builders. Implementations are built once per T and
// reused across every ingest/render call for that type.
type RowCodec[T any] interface {
	// Schema returns the column schema this codec's T maps to.
	Schema() *columnar.Schema
	// Read constructs a T from row of batch.
	Read(batch *columnar.Batch, row int) (T, error)
	// Write appends item's fields to builders, in schema field order.
	Write(builders []*columnar.Builder, item T) error
}

// fieldPlan describes how one struct field maps to one schema column.
type fieldPlan struct {
	structIndex int
	field       columnar.Field
}

// reflectCodec is the default RowCodec[T]: a one-time reflection pass over
// T's fields (matched to the schema by name, or by a `colbeam:"name"`
// struct tag when the Go field name doesn't match a column name)
// producing a monomorphized read/write plan that every subsequent
// Read/Write call replays without further reflection on the value itself
// (only on T's reflect.Type, computed once in New).
type reflectCodec[T any] struct {
	schema *columnar.Schema
	plans  []fieldPlan
}

// New builds a reflectCodec[T] by matching T's exported struct fields to
// schema's columns. A column with no matching struct field is read as its
// zero value and never written; a struct field with no matching column is
// ignored. T must be a struct type (not a pointer to one).
func New[T any](schema *columnar.Schema) (RowCodec[T], error) {
	var zero T
	rt := reflect.TypeOf(zero)
	if rt == nil || rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("codec: %T is not a struct type", zero)
	}

	byColumnName := make(map[string]int, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if sf.PkgPath != "" { // unexported
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("colbeam"); ok && tag != "" && tag != "-" {
			name = tag
		}
		byColumnName[name] = i
	}

	plans := make([]fieldPlan, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		idx, ok := byColumnName[f.Name]
		if !ok {
			continue
		}
		plans = append(plans, fieldPlan{structIndex: idx, field: f})
	}

	return &reflectCodec[T]{schema: schema, plans: plans}, nil
}

// Schema implements RowCodec.
func (c *reflectCodec[T]) Schema() *columnar.Schema { return c.schema }

// Read implements RowCodec by constructing a zero T and setting each
// matched field from the batch via reflect.Value.Set.
func (c *reflectCodec[T]) Read(batch *columnar.Batch, row int) (T, error) {
	var out T
	rv := reflect.ValueOf(&out).Elem()
	for _, p := range c.plans {
		col := batch.Schema().IndexOf(p.field.Name)
		if col < 0 {
			continue
		}
		fv := rv.Field(p.structIndex)
		if err := setFieldFromBatch(fv, batch, col, row, p.field.Kind); err != nil {
			return out, fmt.Errorf("codec: field %q: %w", p.field.Name, err)
		}
	}
	return out, nil
}

// Write implements RowCodec by reading each matched field from item via
// reflection and appending it to the corresponding builder.
func (c *reflectCodec[T]) Write(builders []*columnar.Builder, item T) error {
	rv := reflect.ValueOf(item)
	for i, p := range c.plans {
		fv := rv.Field(p.structIndex)
		if err := appendFieldToBuilder(builders[columnIndexFor(c.schema, p.field.Name)], fv, p.field); err != nil {
			return fmt.Errorf("codec: field %q (plan %d): %w", p.field.Name, i, err)
		}
	}
	return nil
}

func columnIndexFor(schema *columnar.Schema, name string) int {
	return schema.IndexOf(name)
}

func setFieldFromBatch(fv reflect.Value, batch *columnar.Batch, col, row int, kind columnar.Kind) error {
	switch {
	case kind.IsInteger():
		v, ok := batch.Float64At(col, row)
		if !ok {
			return nil
		}
		switch fv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			fv.SetInt(int64(v))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			fv.SetUint(uint64(v))
		default:
			return fmt.Errorf("cannot assign integer column to %s", fv.Kind())
		}
	case kind == columnar.KindFloat16, kind == columnar.KindFloat32, kind == columnar.KindFloat64:
		v, ok := batch.Float64At(col, row)
		if !ok {
			return nil
		}
		fv.SetFloat(v)
	case kind == columnar.KindBool:
		v, ok := batch.BoolAt(col, row)
		if !ok {
			return nil
		}
		fv.SetBool(v)
	case kind == columnar.KindString || kind == columnar.KindDictionaryString:
		v, ok := batch.StringAt(col, row)
		if !ok {
			return nil
		}
		fv.SetString(v)
	case kind == columnar.KindDate32, kind == columnar.KindDate64,
		kind == columnar.KindTimestampSecond, kind == columnar.KindTimestampMilli,
		kind == columnar.KindTimestampMicro, kind == columnar.KindTimestampNano:
		v, ok := batch.Float64At(col, row)
		if !ok {
			return nil
		}
		fv.SetInt(int64(v))
	default:
		return fmt.Errorf("unsupported column kind %v", kind)
	}
	return nil
}

func appendFieldToBuilder(b *columnar.Builder, fv reflect.Value, field columnar.Field) error {
	if field.Nullable && isZeroNullableCandidate(fv) {
		// Reflection can't distinguish "absent" from "zero" on plain Go
		// types without a pointer/sql.Null wrapper; this codec treats a
		// pointer-typed field's nil as null and never auto-nulls a
		// non-pointer zero value.
	}
	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			b.AppendNull()
			return nil
		}
		fv = fv.Elem()
	}
	switch {
	case field.Kind.IsInteger() && isSignedKind(field.Kind):
		return b.AppendInt64(reflectInt(fv))
	case field.Kind.IsInteger():
		return b.AppendUint64(reflectUint(fv))
	case field.Kind == columnar.KindFloat16, field.Kind == columnar.KindFloat32, field.Kind == columnar.KindFloat64:
		return b.AppendFloat64(reflectFloat(fv))
	case field.Kind == columnar.KindBool:
		return b.AppendBool(fv.Bool())
	case field.Kind == columnar.KindString || field.Kind == columnar.KindDictionaryString:
		return b.AppendString(fv.String())
	case field.Kind == columnar.KindBinary:
		return b.AppendBinary(fv.Bytes())
	default:
		return fmt.Errorf("unsupported column kind %v for write", field.Kind)
	}
}

func isZeroNullableCandidate(fv reflect.Value) bool { return fv.Kind() == reflect.Ptr && fv.IsNil() }

func isSignedKind(k columnar.Kind) bool {
	switch k {
	case columnar.KindInt8, columnar.KindInt16, columnar.KindInt32, columnar.KindInt64:
		return true
	default:
		return false
	}
}

func reflectInt(fv reflect.Value) int64 {
	switch fv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(fv.Uint())
	default:
		return 0
	}
}

func reflectUint(fv reflect.Value) uint64 {
	switch fv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fv.Uint()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uint64(fv.Int())
	default:
		return 0
	}
}

func reflectFloat(fv reflect.Value) float64 {
	switch fv.Kind() {
	case reflect.Float32, reflect.Float64:
		return fv.Float()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(fv.Int())
	default:
		return 0
	}
}

package codec

import (
	"fmt"
	"reflect"
	"time"

	"github.com/lychee-technology/colbeam/internal/columnar"
)

// InferSchema builds a columnar.Schema from T's exported struct fields, the
// same name/`colbeam` tag resolution New uses for reading and writing rows.
// Every field is marked Nullable; a query engine ingesting plain Go values
// has no independent notion of "this field is never missing" beyond what
// the caller's own schema_hint validation enforces.
func InferSchema[T any]() (*columnar.Schema, error) {
	var zero T
	rt := reflect.TypeOf(zero)
	if rt == nil || rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("codec: %T is not a struct type", zero)
	}

	fields := make([]columnar.Field, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("colbeam"); ok {
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		kind, err := kindOf(sf.Type)
		if err != nil {
			return nil, fmt.Errorf("codec: field %q: %w", sf.Name, err)
		}
		fields = append(fields, columnar.Field{Name: name, Kind: kind, Nullable: true})
	}
	return &columnar.Schema{Fields: fields}, nil
}

var timeType = reflect.TypeOf(time.Time{})

// kindOf maps a Go field type to its nominal schema Kind. Pointer fields
// report their pointee's kind (nullability is carried by Field.Nullable,
// not by a distinct pointer-vs-value Kind).
func kindOf(t reflect.Type) (columnar.Kind, error) {
	if t.Kind() == reflect.Ptr {
		return kindOf(t.Elem())
	}
	if t == timeType {
		return columnar.KindTimestampMicro, nil
	}
	switch t.Kind() {
	case reflect.Int8:
		return columnar.KindInt8, nil
	case reflect.Int16:
		return columnar.KindInt16, nil
	case reflect.Int32:
		return columnar.KindInt32, nil
	case reflect.Int, reflect.Int64:
		return columnar.KindInt64, nil
	case reflect.Uint8:
		return columnar.KindUint8, nil
	case reflect.Uint16:
		return columnar.KindUint16, nil
	case reflect.Uint32:
		return columnar.KindUint32, nil
	case reflect.Uint, reflect.Uint64:
		return columnar.KindUint64, nil
	case reflect.Float32:
		return columnar.KindFloat32, nil
	case reflect.Float64:
		return columnar.KindFloat64, nil
	case reflect.Bool:
		return columnar.KindBool, nil
	case reflect.String:
		return columnar.KindString, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return columnar.KindBinary, nil
		}
		return columnar.KindInvalid, fmt.Errorf("unsupported slice element type %s", t.Elem())
	default:
		return columnar.KindInvalid, fmt.Errorf("unsupported type %s", t)
	}
}

package object

import (
	"fmt"
	"reflect"
	"time"
)

// From converts a host value. Built in kinds are recognized (int and int64
// are INT, float64 is FLOAT, []Dynamic/[]any arrays, *Map and map[string]any
// maps, FnPtr, time.Time), everything else becomes an opaque variant.
// Characters can only be made with Char, a rune is an int32.
func From(v any) Dynamic {
	switch x := v.(type) {
	case nil:
		return Unit
	case Dynamic:
		return x
	case *Dynamic:
		return *x
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int64:
		return Int(x)
	case float64:
		return Float(x)
	case string:
		return String(x)
	case []Dynamic:
		return NewArray(x)
	case []any:
		arr := MakeArray(len(x))
		for _, e := range x {
			arr = append(arr, From(e))
		}
		return NewArray(arr)
	case *Map:
		return NewMapValue(x)
	case map[string]any:
		m := NewMap()
		for k, e := range x {
			m.Set(k, From(e))
		}
		return NewMapValue(m)
	case FnPtr:
		return NewFnPtrValue(x)
	case *FnPtr:
		return NewFnPtrValue(*x)
	case *Cell:
		return Dynamic{kind: SHARED, p: x}
	case time.Time:
		return Timestamp(x)
	default:
		return variantFromReflect(v)
	}
}

// variantFromReflect keeps the concrete type of v in the payload so Downcast
// and TryCast with that type find it.
func variantFromReflect(v any) Dynamic {
	switch x := v.(type) {
	case int8:
		return NewVariant(x)
	case int16:
		return NewVariant(x)
	case int32:
		return NewVariant(x)
	case uint8:
		return NewVariant(x)
	case uint16:
		return NewVariant(x)
	case uint32:
		return NewVariant(x)
	case uint64:
		return NewVariant(x)
	case uint:
		return NewVariant(x)
	case float32:
		return NewVariant(x)
	case error:
		return NewVariant(x)
	}
	return Dynamic{kind: VARIANT, p: &anyVariant{v: v}}
}

// anyVariant holds payloads of types only known at run time.
type anyVariant struct {
	v any
}

func (a *anyVariant) clone() variant   { return &anyVariant{v: a.v} }
func (a *anyVariant) typeName() string { return reflect.TypeOf(a.v).String() }
func (a *anyVariant) value() any       { return a.v }

func (a *anyVariant) debug() string {
	if s, ok := a.v.(fmt.Stringer); ok {
		return s.String()
	}
	return a.typeName()
}

// Is reports whether the value holds a T (seen through shared cells).
func Is[T any](d Dynamic) bool {
	_, ok := TryCast[T](d)
	return ok
}

// TryCast extracts a T out of the value. Shared values are flattened first.
func TryCast[T any](d Dynamic) (T, bool) {
	var zero T
	f := d.flat()
	var res any
	switch any(zero).(type) {
	case Dynamic:
		res = d
	case int64:
		if f.kind != INT {
			return zero, false
		}
		res = f.i
	case int:
		if f.kind != INT {
			return zero, false
		}
		res = int(f.i)
	case float64:
		if f.kind != FLOAT {
			return zero, false
		}
		res = f.f
	case bool:
		if f.kind != BOOL {
			return zero, false
		}
		res = f.i != 0
	case rune: // also int32 payloads.
		switch f.kind { //nolint:exhaustive // chars or int32 variants only.
		case CHAR:
			res = rune(f.i)
		case VARIANT:
			res = f.p.(variant).value()
		default:
			return zero, false
		}
	case string:
		if f.kind != STRING {
			return zero, false
		}
		res = f.p.(string)
	case []Dynamic:
		if f.kind != ARRAY {
			return zero, false
		}
		res = *d.FlattenClone().p.(*[]Dynamic)
	case *Map:
		if f.kind != MAP {
			return zero, false
		}
		res = d.FlattenClone().p.(*Map)
	case FnPtr:
		if f.kind != FNPTR {
			return zero, false
		}
		res = *f.p.(*FnPtr).Clone()
	case time.Time:
		if f.kind != TIMESTAMP {
			return zero, false
		}
		res = f.p.(time.Time)
	default:
		if f.kind != VARIANT {
			return zero, false
		}
		res = f.p.(variant).value()
	}
	v, ok := res.(T)
	return v, ok
}

// CastError is the "cannot cast A to B" failure of Cast.
type CastError struct {
	From, To string
}

func (e *CastError) Error() string {
	return "cannot cast " + e.From + " to " + e.To
}

// Cast is TryCast with an error describing the mismatch.
func Cast[T any](d Dynamic) (T, error) {
	v, ok := TryCast[T](d)
	if !ok {
		var zero T
		return zero, &CastError{From: d.TypeName(), To: reflect.TypeOf(&zero).Elem().String()}
	}
	return v, nil
}

package object

import (
	"fmt"
	"reflect"
)

// variant is the sealed capability set of opaque host payloads.
type variant interface {
	clone() variant
	typeName() string
	debug() string
	value() any
}

// Cloner lets host types control how they are copied when a script value is
// cloned. Types without it are copied by assignment.
type Cloner[T any] interface {
	Clone() T
}

type variantOf[T any] struct {
	v T
}

func (vo *variantOf[T]) clone() variant {
	if c, ok := any(vo.v).(Cloner[T]); ok {
		return &variantOf[T]{v: c.Clone()}
	}
	return &variantOf[T]{v: vo.v}
}

func (vo *variantOf[T]) typeName() string {
	return reflect.TypeOf(&vo.v).Elem().String()
}

func (vo *variantOf[T]) debug() string {
	switch any(vo.v).(type) {
	case int8, int16, int32, uint8, uint16, uint32, uint64, float32, uint, uintptr:
		return fmt.Sprint(vo.v)
	}
	if s, ok := any(vo.v).(fmt.Stringer); ok {
		return s.String()
	}
	return vo.typeName()
}

func (vo *variantOf[T]) value() any {
	return vo.v
}

// NewVariant stores any host value as an opaque payload.
func NewVariant[T any](v T) Dynamic {
	return Dynamic{kind: VARIANT, p: &variantOf[T]{v: v}}
}

// Downcast returns a pointer to the payload when it is a T. Works for
// variants and for the kinds stored in place (int64, float64, arrays, maps,
// function pointers).
func Downcast[T any](d *Dynamic) (*T, bool) {
	f := d.flat()
	switch f.kind { //nolint:exhaustive // other kinds aren't addressable.
	case VARIANT:
		if vo, ok := f.p.(*variantOf[T]); ok {
			return &vo.v, true
		}
	case INT:
		p, ok := any(&f.i).(*T)
		return p, ok
	case FLOAT:
		p, ok := any(&f.f).(*T)
		return p, ok
	case ARRAY, MAP, FNPTR:
		p, ok := f.p.(*T)
		return p, ok
	}
	return nil, false
}

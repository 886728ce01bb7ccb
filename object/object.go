// Package object is the dynamic value model: a type erased Dynamic value with
// access modes, tags, shared cells for closures and opaque variant payloads.
package object

import (
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

type Type uint8

const (
	UNIT Type = iota
	BOOL
	INT
	FLOAT
	STRING
	CHAR
	ARRAY
	MAP
	FNPTR
	TIMESTAMP
	VARIANT
	SHARED
	ANY // wildcard in native function signatures.
	LAST
)

//go:generate stringer -type=Type
var _ = LAST.String() // force compile error if go generate is missing.

// Type identities as seen by scripts (type_of) and used in native hashes.
const (
	IDUnit      = "()"
	IDBool      = "bool"
	IDInt       = "i64"
	IDFloat     = "f64"
	IDString    = "string"
	IDChar      = "char"
	IDArray     = "array"
	IDMap       = "map"
	IDFnPtr     = "Fn"
	IDTimestamp = "timestamp"
	IDAny       = "?"
)

var typeIDs = [...]string{
	UNIT: IDUnit, BOOL: IDBool, INT: IDInt, FLOAT: IDFloat, STRING: IDString, CHAR: IDChar,
	ARRAY: IDArray, MAP: IDMap, FNPTR: IDFnPtr, TIMESTAMP: IDTimestamp, ANY: IDAny,
}

// ID returns the type identity of the built in kinds, "" for VARIANT and SHARED.
func (t Type) ID() string {
	if int(t) >= len(typeIDs) {
		return ""
	}
	return typeIDs[t]
}

type AccessMode uint8

const (
	ReadWrite AccessMode = iota
	ReadOnly
)

// Dynamic is a script value. The zero value is unit.
// Assigning a Dynamic moves it: containers are shared by the copy, use Clone
// when both copies stay alive.
type Dynamic struct {
	kind   Type
	access AccessMode
	tag    int32
	i      int64 // BOOL, INT, CHAR.
	f      float64
	p      any // string, *[]Dynamic, *Map, *FnPtr, time.Time, variant, *Cell.
}

var (
	Unit  = Dynamic{}
	True  = Dynamic{kind: BOOL, i: 1}
	False = Dynamic{kind: BOOL}
)

func Bool(b bool) Dynamic {
	if b {
		return True
	}
	return False
}

func Int(i int64) Dynamic {
	return Dynamic{kind: INT, i: i}
}

func Float(f float64) Dynamic {
	return Dynamic{kind: FLOAT, f: f}
}

func String(s string) Dynamic {
	return Dynamic{kind: STRING, p: s}
}

func Char(r rune) Dynamic {
	return Dynamic{kind: CHAR, i: int64(r)}
}

// NewArray takes ownership of the slice.
func NewArray(a []Dynamic) Dynamic {
	return Dynamic{kind: ARRAY, p: &a}
}

// NewMapValue takes ownership of the map.
func NewMapValue(m *Map) Dynamic {
	if m == nil {
		m = NewMap()
	}
	return Dynamic{kind: MAP, p: m}
}

func NewFnPtrValue(f FnPtr) Dynamic {
	return Dynamic{kind: FNPTR, p: &f}
}

func Timestamp(t time.Time) Dynamic {
	return Dynamic{kind: TIMESTAMP, p: t}
}

// flat returns the value itself or, for shared values, a shallow view of the
// cell content. Only for reading.
func (d *Dynamic) flat() *Dynamic {
	if d.kind != SHARED {
		return d
	}
	c := d.p.(*Cell)
	return &c.value
}

// Type is the kind of the value, seen through shared cells.
func (d Dynamic) Type() Type {
	return d.flat().kind
}

func (d Dynamic) IsShared() bool {
	return d.kind == SHARED
}

func (d Dynamic) IsUnit() bool   { return d.Type() == UNIT }
func (d Dynamic) IsInt() bool    { return d.Type() == INT }
func (d Dynamic) IsFloat() bool  { return d.Type() == FLOAT }
func (d Dynamic) IsBool() bool   { return d.Type() == BOOL }
func (d Dynamic) IsString() bool { return d.Type() == STRING }
func (d Dynamic) IsChar() bool   { return d.Type() == CHAR }
func (d Dynamic) IsArray() bool  { return d.Type() == ARRAY }
func (d Dynamic) IsMap() bool    { return d.Type() == MAP }
func (d Dynamic) IsFnPtr() bool  { return d.Type() == FNPTR }

func (d Dynamic) Tag() int32 {
	return d.tag
}

func (d *Dynamic) SetTag(tag int32) *Dynamic {
	d.tag = tag
	return d
}

func (d Dynamic) AccessMode() AccessMode {
	return d.access
}

// SetAccessMode marks the value, and recursively every element of arrays and
// maps, with the given mode.
func (d *Dynamic) SetAccessMode(mode AccessMode) *Dynamic {
	d.access = mode
	switch d.kind { //nolint:exhaustive // only containers recurse.
	case ARRAY:
		arr := d.p.(*[]Dynamic)
		for i := range *arr {
			(*arr)[i].SetAccessMode(mode)
		}
	case MAP:
		d.p.(*Map).Range(func(_ string, v *Dynamic) bool {
			v.SetAccessMode(mode)
			return true
		})
	}
	return d
}

// IsReadOnly is true for constants. A shared value is read only if either
// the reference or the shared content is.
func (d Dynamic) IsReadOnly() bool {
	if d.kind == SHARED {
		if d.access == ReadOnly {
			return true
		}
		return d.flat().access == ReadOnly
	}
	return d.access == ReadOnly
}

func (d Dynamic) AsInt() (int64, bool) {
	f := d.flat()
	return f.i, f.kind == INT
}

func (d Dynamic) AsFloat() (float64, bool) {
	f := d.flat()
	return f.f, f.kind == FLOAT
}

func (d Dynamic) AsBool() (bool, bool) {
	f := d.flat()
	return f.i != 0, f.kind == BOOL
}

func (d Dynamic) AsChar() (rune, bool) {
	f := d.flat()
	return rune(f.i), f.kind == CHAR
}

func (d Dynamic) AsString() (string, bool) {
	f := d.flat()
	if f.kind != STRING {
		return "", false
	}
	return f.p.(string), true
}

// AsArray returns the backing slice of an array value (shared views included).
func (d Dynamic) AsArray() (*[]Dynamic, bool) {
	f := d.flat()
	if f.kind != ARRAY {
		return nil, false
	}
	return f.p.(*[]Dynamic), true
}

func (d Dynamic) AsMap() (*Map, bool) {
	f := d.flat()
	if f.kind != MAP {
		return nil, false
	}
	return f.p.(*Map), true
}

func (d Dynamic) AsFnPtr() (*FnPtr, bool) {
	f := d.flat()
	if f.kind != FNPTR {
		return nil, false
	}
	return f.p.(*FnPtr), true
}

func (d Dynamic) AsTimestamp() (time.Time, bool) {
	f := d.flat()
	if f.kind != TIMESTAMP {
		return time.Time{}, false
	}
	return f.p.(time.Time), true
}

// Clone returns a deep copy with ReadWrite access at every level. Shared
// values are the exception: the clone refers to the same cell.
func (d Dynamic) Clone() Dynamic {
	res := d
	res.access = ReadWrite
	switch d.kind { //nolint:exhaustive // scalars are copied by value.
	case ARRAY:
		src := *d.p.(*[]Dynamic)
		arr := make([]Dynamic, len(src))
		for i := range src {
			arr[i] = src[i].Clone()
		}
		res.p = &arr
	case MAP:
		res.p = d.p.(*Map).Clone()
	case FNPTR:
		res.p = d.p.(*FnPtr).Clone()
	case VARIANT:
		res.p = d.p.(variant).clone()
	}
	return res
}

// TypeName is the name shown to scripts, seen through shared cells.
func (d Dynamic) TypeName() string {
	f := d.flat()
	if f.kind == VARIANT {
		return f.p.(variant).typeName()
	}
	return f.kind.ID()
}

// TypeID is the identity used to fingerprint native function arguments.
func (d Dynamic) TypeID() string {
	return d.TypeName()
}

// Inspect is the display form used by print and string conversion.
func (d Dynamic) Inspect() string {
	f := d.flat()
	switch f.kind {
	case UNIT:
		return ""
	case STRING:
		return f.p.(string)
	case CHAR:
		return string(rune(f.i))
	default:
		return f.Debug()
	}
}

func (d Dynamic) String() string {
	return d.Inspect()
}

// Debug is the form used by debug and inside containers: strings quoted.
func (d Dynamic) Debug() string {
	out := strings.Builder{}
	d.debug(&out)
	return out.String()
}

func (d Dynamic) debug(out *strings.Builder) {
	switch d.kind {
	case UNIT:
		out.WriteString("()")
	case BOOL:
		out.WriteString(strconv.FormatBool(d.i != 0))
	case INT:
		out.WriteString(strconv.FormatInt(d.i, 10))
	case FLOAT:
		out.WriteString(FormatFloat(d.f))
	case STRING:
		out.WriteString(strconv.Quote(d.p.(string)))
	case CHAR:
		out.WriteString(strconv.QuoteRune(rune(d.i)))
	case ARRAY:
		out.WriteString("[")
		for i, v := range *d.p.(*[]Dynamic) {
			if i > 0 {
				out.WriteString(", ")
			}
			v.debug(out)
		}
		out.WriteString("]")
	case MAP:
		out.WriteString("#{")
		first := true
		d.p.(*Map).Range(func(k string, v *Dynamic) bool {
			if !first {
				out.WriteString(", ")
			}
			first = false
			out.WriteString(strconv.Quote(k))
			out.WriteString(": ")
			v.debug(out)
			return true
		})
		out.WriteString("}")
	case FNPTR:
		out.WriteString(d.p.(*FnPtr).Debug())
	case TIMESTAMP:
		out.WriteString("<timestamp>")
	case VARIANT:
		out.WriteString(d.p.(variant).debug())
	case SHARED:
		c := d.p.(*Cell)
		if c.IsLocked() {
			out.WriteString("<shared>")
			return
		}
		c.value.debug(out)
		out.WriteString(" (shared)")
	case ANY, LAST:
		out.WriteString("<invalid>")
	}
}

const (
	maxNaturalFloat = 1e13
	minNaturalFloat = 1e-13
)

// FormatFloat prints floats with at least one decimal, switching to
// exponent notation for very large or small magnitudes.
func FormatFloat(f float64) string {
	abs := math.Abs(f)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	if abs != 0 && (abs > maxNaturalFloat || abs < minNaturalFloat) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Equal is deep value equality, seen through shared cells. Values of
// different types are never equal.
func Equal(a, b Dynamic) bool {
	fa, fb := a.flat(), b.flat()
	if fa.kind != fb.kind {
		return false
	}
	switch fa.kind {
	case UNIT:
		return true
	case BOOL, INT, CHAR:
		return fa.i == fb.i
	case FLOAT:
		return fa.f == fb.f
	case STRING:
		return fa.p.(string) == fb.p.(string)
	case ARRAY:
		x, y := *fa.p.(*[]Dynamic), *fb.p.(*[]Dynamic)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case MAP:
		return fa.p.(*Map).Equal(fb.p.(*Map))
	case FNPTR:
		return fa.p.(*FnPtr).Name == fb.p.(*FnPtr).Name
	case TIMESTAMP:
		return fa.p.(time.Time).Equal(fb.p.(time.Time))
	case VARIANT:
		return reflect.DeepEqual(fa.p.(variant).value(), fb.p.(variant).value())
	case SHARED, ANY, LAST:
		return false
	}
	return false
}

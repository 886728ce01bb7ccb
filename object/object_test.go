package object_test

import (
	"errors"
	"testing"

	"grol.io/rhai/object"
)

func TestCloneResetsAccess(t *testing.T) {
	arr := object.NewArray([]object.Dynamic{object.Int(1), object.String("x")})
	arr.SetAccessMode(object.ReadOnly)
	a, _ := arr.AsArray()
	if !(*a)[0].IsReadOnly() {
		t.Fatalf("SetAccessMode should recurse into elements")
	}
	c := arr.Clone()
	if c.IsReadOnly() {
		t.Errorf("clone should be read/write")
	}
	ca, _ := c.AsArray()
	if (*ca)[1].IsReadOnly() {
		t.Errorf("clone elements should be read/write")
	}
	(*ca)[0] = object.Int(42)
	if v, _ := (*a)[0].AsInt(); v != 1 {
		t.Errorf("clone should be deep, original changed to %d", v)
	}
}

func TestSharedClone(t *testing.T) {
	s := object.Int(1).IntoShared()
	if !s.IsShared() || s.IntoShared() != s {
		t.Fatalf("IntoShared should be idempotent")
	}
	c := s.Clone()
	if !object.SameCell(s, c) {
		t.Fatalf("clone of a shared value should keep the cell")
	}
	g := c.WriteLock()
	*g.Value() = object.Int(42)
	g.Release()
	if v, _ := s.AsInt(); v != 42 {
		t.Errorf("write through clone not seen, got %d", v)
	}
	if s.Debug() != "42 (shared)" {
		t.Errorf("debug %q", s.Debug())
	}
	f := s.Flatten()
	if f.IsShared() {
		t.Errorf("flatten should unwrap")
	}
	if s.TypeName() != "i64" {
		t.Errorf("type name should see through cells, got %q", s.TypeName())
	}
}

func TestSharedLockConflict(t *testing.T) {
	s := object.NewArray(nil).IntoShared()
	g := s.ReadLock()
	defer g.Release()
	if !s.IsLocked() {
		t.Errorf("should be locked")
	}
	defer func() {
		r := recover()
		if _, ok := r.(object.LockedCellError); !ok {
			t.Errorf("expected a LockedCellError panic, got %v", r)
		}
	}()
	s.WriteLock()
}

func TestReadOnlyShared(t *testing.T) {
	v := object.Int(1)
	v.SetAccessMode(object.ReadOnly)
	s := v.IntoShared()
	if !s.IsReadOnly() {
		t.Errorf("shared with read only content should be read only")
	}
	w := object.Int(1).IntoShared()
	w.SetAccessMode(object.ReadOnly)
	if !w.IsReadOnly() {
		t.Errorf("read only reference should be read only")
	}
}

func TestFromAndCast(t *testing.T) {
	tests := []struct {
		input    any
		typeName string
		debug    string
	}{
		{nil, "()", "()"},
		{42, "i64", "42"},
		{int64(-1), "i64", "-1"},
		{1.5, "f64", "1.5"},
		{2.0, "f64", "2.0"},
		{"hi", "string", `"hi"`},
		{true, "bool", "true"},
		{int32(7), "int32", "7"},
		{uint8(255), "uint8", "255"},
		{[]any{1, "a"}, "array", `[1, "a"]`},
		{object.FnPtr{Name: "foo"}, "Fn", "Fn(foo)"},
		{errors.New("x"), "error", "error"},
	}
	for _, tt := range tests {
		d := object.From(tt.input)
		if d.TypeName() != tt.typeName {
			t.Errorf("From(%v) type %q, expected %q", tt.input, d.TypeName(), tt.typeName)
		}
		if d.Debug() != tt.debug {
			t.Errorf("From(%v) debug %q, expected %q", tt.input, d.Debug(), tt.debug)
		}
	}
	if c := object.Char('é'); c.TypeName() != "char" || c.Inspect() != "é" || c.Debug() != "'é'" {
		t.Errorf("char: %q %q %q", c.TypeName(), c.Inspect(), c.Debug())
	}
	if v, ok := object.TryCast[int32](object.From(int32(7))); !ok || v != 7 {
		t.Errorf("TryCast int32 = %v %v", v, ok)
	}
	if v, ok := object.TryCast[rune](object.Char('x')); !ok || v != 'x' {
		t.Errorf("TryCast rune = %v %v", v, ok)
	}
	_, err := object.Cast[string](object.Int(1))
	if err == nil || err.Error() != "cannot cast i64 to string" {
		t.Errorf("Cast error %v", err)
	}
	d := object.From(uint16(3))
	if p, ok := object.Downcast[uint16](&d); !ok {
		t.Errorf("Downcast failed")
	} else {
		*p = 4
	}
	if v, _ := object.TryCast[uint16](d); v != 4 {
		t.Errorf("Downcast should give a mutable pointer, got %d", v)
	}
}

func TestHash(t *testing.T) {
	h1, ok1 := object.From([]any{1, "a"}).Hash()
	h2, ok2 := object.From([]any{1, "a"}).Hash()
	if !ok1 || !ok2 || h1 != h2 {
		t.Errorf("equal arrays should hash the same")
	}
	hi, _ := object.Int(1).Hash()
	hf, _ := object.Float(1).Hash()
	if hi == hf {
		t.Errorf("int and float should hash differently")
	}
	if _, ok := object.From(uint32(3)).Hash(); !ok {
		t.Errorf("uint32 variants should be hashable")
	}
	if _, ok := object.From(errors.New("x")).Hash(); ok {
		t.Errorf("opaque variants are not hashable")
	}
	if _, ok := object.NewArray([]object.Dynamic{object.From(struct{}{})}).Hash(); ok {
		t.Errorf("array with an opaque value isn't hashable")
	}
}

func TestMapOrder(t *testing.T) {
	m := object.NewMap()
	m.Set("b", object.Int(1))
	m.Set("a", object.Int(2))
	m.Set("b", object.Int(3))
	d := object.NewMapValue(m)
	if d.Debug() != `#{"b": 3, "a": 2}` {
		t.Errorf("map debug %q", d.Debug())
	}
	p := m.Ptr("a")
	*p = object.String("z")
	if v, _ := m.Get("a"); v.Inspect() != "z" {
		t.Errorf("Ptr should alias storage")
	}
	other := object.NewMap()
	other.Set("a", object.String("z"))
	other.Set("b", object.Int(3))
	if !object.Equal(d, object.NewMapValue(other)) {
		t.Errorf("maps should be equal regardless of order")
	}
}

func TestScopeRewind(t *testing.T) {
	s := object.NewScope()
	s.Push("x", 1).PushConstant("y", "a")
	before := s.Len()
	s.Push("x", 2).Push("z", 3)
	if v, _ := object.GetValue[int64](s, "x"); v != 2 {
		t.Errorf("shadowing failed, got %d", v)
	}
	s.Rewind(before)
	if s.Len() != before {
		t.Errorf("rewind len %d, expected %d", s.Len(), before)
	}
	if v, _ := object.GetValue[int64](s, "x"); v != 1 {
		t.Errorf("rewind should restore x=1, got %d", v)
	}
	if s.Contains("z") {
		t.Errorf("z should be gone")
	}
	if err := s.Set("y", "b"); !errors.Is(err, object.ErrConstant) {
		t.Errorf("setting a constant should fail, got %v", err)
	}
	if c, ok := s.IsConstant("y"); !c || !ok {
		t.Errorf("y should be constant")
	}
}

func TestScopeBarrier(t *testing.T) {
	s := object.NewScope()
	s.Push("x", 1).PushBarrier().Push("y", 2)
	if s.Contains("x") {
		t.Errorf("search should stop at the barrier")
	}
	if !s.Contains("y") {
		t.Errorf("y should be visible")
	}
	if len(s.Entries()) != 2 {
		t.Errorf("entries should skip the barrier: %v", s.Entries())
	}
}

func TestCloneVisible(t *testing.T) {
	s := object.NewScope()
	s.Push("x", 1).Push("y", 2).PushConstant("x", 3)
	c := s.CloneVisible()
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	if v, _ := object.GetValue[int64](c, "x"); v != 3 {
		t.Errorf("x should be the latest, got %d", v)
	}
	if cst, _ := c.IsConstant("x"); !cst {
		t.Errorf("x should stay constant")
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{1, "1.0"},
		{0, "0.0"},
		{-2.5, "-2.5"},
		{1e20, "1e+20"},
		{1e-20, "1e-20"},
	}
	for _, tt := range tests {
		if got := object.FormatFloat(tt.input); got != tt.expected {
			t.Errorf("FormatFloat(%v) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestUnwrap(t *testing.T) {
	m := object.NewMap()
	m.Set("a", object.NewArray([]object.Dynamic{object.Int(1), object.Char('c')}))
	u := object.NewMapValue(m).Unwrap().(map[string]any)
	arr := u["a"].([]any)
	if arr[0] != int64(1) || arr[1] != "c" {
		t.Errorf("unexpected unwrap %v", u)
	}
}

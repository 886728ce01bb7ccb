package eval

import (
	"grol.io/rhai/object"
	"grol.io/rhai/token"
)

type targetKind uint8

const (
	targetRef  targetKind = iota // points at the storage of a value.
	targetLock                   // locked content of a shared value.
	targetTemp                   // owned value, changes are lost.
	targetBit                    // a bit of an integer.
	targetChar                   // a character of a string.
)

// bitFieldWidth is the number of bits integer indexing can address.
const bitFieldWidth = 64

// Target is the location a chain link reads and possibly writes back.
// Always used through a pointer and released once done.
type Target struct {
	kind     targetKind
	ptr      *object.Dynamic
	guard    object.Guard
	value    object.Dynamic // temp, bit and char values.
	source   *object.Dynamic
	offset   int
	readOnly bool
}

// refTarget targets the value stored at p, write locking it if shared.
func refTarget(p *object.Dynamic, name string, pos token.Position) (*Target, *EvalError) {
	ro := p.IsReadOnly()
	if !p.IsShared() {
		return &Target{kind: targetRef, ptr: p, readOnly: ro}, nil
	}
	if p.IsLocked() {
		return nil, newError(ErrDataRace, name, pos)
	}
	g := p.WriteLock()
	return &Target{kind: targetLock, ptr: g.Value(), guard: g, readOnly: ro}, nil
}

func tempTarget(v object.Dynamic) *Target {
	return &Target{kind: targetTemp, value: v, readOnly: v.IsReadOnly()}
}

// Value is the current value, to be modified in place.
func (t *Target) Value() *object.Dynamic {
	switch t.kind {
	case targetRef, targetLock:
		return t.ptr
	default:
		return &t.value
	}
}

func (t *Target) IsReadOnly() bool {
	return t.readOnly
}

func (t *Target) IsTemp() bool {
	return t.kind == targetTemp
}

// Get returns a copy of the value.
func (t *Target) Get() object.Dynamic {
	return t.Value().FlattenClone()
}

// Propagate writes a modified bit or character back into its integer or
// string. Nothing to do for the other kinds.
func (t *Target) Propagate(pos token.Position) *EvalError {
	switch t.kind {
	case targetBit:
		b, ok := t.value.AsBool()
		if !ok {
			return TypeMismatch(object.IDBool, t.value.TypeName(), pos)
		}
		v, _ := t.source.AsInt()
		mask := int64(1) << t.offset
		if b {
			v |= mask
		} else {
			v &^= mask
		}
		t.replaceSource(object.Int(v))
	case targetChar:
		c, ok := t.value.AsChar()
		if !ok {
			return TypeMismatch(object.IDChar, t.value.TypeName(), pos)
		}
		s, _ := t.source.AsString()
		runes := []rune(s)
		runes[t.offset] = c
		t.replaceSource(object.String(string(runes)))
	case targetRef, targetLock, targetTemp:
	}
	return nil
}

func (t *Target) replaceSource(v object.Dynamic) {
	v.SetTag(t.source.Tag())
	v.SetAccessMode(t.source.AccessMode())
	*t.source = v
}

// Release unlocks the shared value a lock target holds.
func (t *Target) Release() {
	if t.kind == targetLock {
		t.guard.Release()
	}
}

// normalizeIndex resolves a possibly negative index into [0, n).
func normalizeIndex(i int64, n int) (int, bool) {
	if i < 0 {
		if i < -int64(n) {
			return 0, false
		}
		return n + int(i), true
	}
	if i >= int64(n) {
		return 0, false
	}
	return int(i), true
}

// indexedMut targets element idx of the arrays, object maps, integers (bits)
// and strings (characters) in container. Other types get an ErrIndexingType
// error, for the caller to try the registered indexers. Missing map keys
// read as unit, or are inserted when addIfMissing.
func indexedMut(container *object.Dynamic, idx object.Dynamic, addIfMissing bool, pos token.Position) (*Target, *EvalError) {
	ro := container.IsReadOnly()
	switch container.Type() { //nolint:exhaustive // the rest need indexers.
	case object.ARRAY:
		i, ok := idx.AsInt()
		if !ok {
			return nil, TypeMismatch(object.IDInt, idx.TypeName(), pos)
		}
		arr, _ := container.AsArray()
		n, ok := normalizeIndex(i, len(*arr))
		if !ok {
			return nil, bounds(ErrArrayBounds, len(*arr), i, pos)
		}
		return refTarget(&(*arr)[n], "", pos)
	case object.MAP:
		key, ok := idx.AsString()
		if !ok {
			return nil, TypeMismatch(object.IDString, idx.TypeName(), pos)
		}
		m, _ := container.AsMap()
		p := m.Ptr(key)
		if p == nil {
			if !addIfMissing || ro {
				t := tempTarget(object.Unit)
				t.readOnly = ro
				return t, nil
			}
			m.Set(key, object.Unit)
			p = m.Ptr(key)
		}
		return refTarget(p, key, pos)
	case object.INT:
		i, ok := idx.AsInt()
		if !ok {
			return nil, TypeMismatch(object.IDInt, idx.TypeName(), pos)
		}
		// each branch checked on its own: 0 <= offset < width.
		var offset int64
		if i >= 0 {
			if i >= bitFieldWidth {
				return nil, bounds(ErrBitFieldBounds, bitFieldWidth, i, pos)
			}
			offset = i
		} else {
			if i < -bitFieldWidth {
				return nil, bounds(ErrBitFieldBounds, bitFieldWidth, i, pos)
			}
			offset = bitFieldWidth + i
		}
		v, _ := container.AsInt()
		return &Target{
			kind:     targetBit,
			value:    object.Bool(v&(int64(1)<<offset) != 0),
			source:   container,
			offset:   int(offset),
			readOnly: ro,
		}, nil
	case object.STRING:
		i, ok := idx.AsInt()
		if !ok {
			return nil, TypeMismatch(object.IDInt, idx.TypeName(), pos)
		}
		s, _ := container.AsString()
		runes := []rune(s)
		n, ok := normalizeIndex(i, len(runes))
		if !ok {
			return nil, bounds(ErrStringBounds, len(runes), i, pos)
		}
		return &Target{
			kind:     targetChar,
			value:    object.Char(runes[n]),
			source:   container,
			offset:   n,
			readOnly: ro,
		}, nil
	}
	return nil, newError(ErrIndexingType, container.TypeName()+" ["+idx.TypeName()+"]", pos)
}

package object

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// IsHashable is true for primitives, arrays and maps of hashable values,
// shared cells holding one, and the fixed width numeric variants.
func (d Dynamic) IsHashable() bool {
	f := d.flat()
	switch f.kind {
	case UNIT, BOOL, INT, FLOAT, STRING, CHAR, FNPTR:
		return true
	case ARRAY:
		for _, v := range *f.p.(*[]Dynamic) {
			if !v.IsHashable() {
				return false
			}
		}
		return true
	case MAP:
		ok := true
		f.p.(*Map).Range(func(_ string, v *Dynamic) bool {
			ok = v.IsHashable()
			return ok
		})
		return ok
	case VARIANT:
		switch f.p.(variant).value().(type) {
		case int8, int16, int32, uint8, uint16, uint32, uint64, float32:
			return true
		}
		return false
	case TIMESTAMP, SHARED, ANY, LAST:
		return false
	}
	return false
}

// Hash digests the value, false when it isn't hashable.
func (d Dynamic) Hash() (uint64, bool) {
	if !d.IsHashable() {
		return 0, false
	}
	h := xxhash.New()
	d.hash(h)
	return h.Sum64(), true
}

func writeU64(h *xxhash.Digest, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}

func (d Dynamic) hash(h *xxhash.Digest) {
	f := d.flat()
	_, _ = h.Write([]byte{byte(f.kind)})
	switch f.kind { //nolint:exhaustive // only hashable kinds get here.
	case BOOL, INT, CHAR:
		writeU64(h, uint64(f.i)) //nolint:gosec // bit pattern.
	case FLOAT:
		writeU64(h, math.Float64bits(f.f))
	case STRING:
		_, _ = h.WriteString(f.p.(string))
	case FNPTR:
		_, _ = h.WriteString(f.p.(*FnPtr).Name)
	case ARRAY:
		arr := *f.p.(*[]Dynamic)
		writeU64(h, uint64(len(arr)))
		for _, v := range arr {
			v.hash(h)
		}
	case MAP:
		m := f.p.(*Map)
		writeU64(h, uint64(m.Len())) //nolint:gosec // length.
		m.Range(func(k string, v *Dynamic) bool {
			_, _ = h.WriteString(k)
			v.hash(h)
			return true
		})
	case VARIANT:
		hashNumeric(h, f.p.(variant).value())
	}
}

func hashNumeric(h *xxhash.Digest, v any) {
	var bits uint64
	var width byte
	switch x := v.(type) {
	case int8:
		bits, width = uint64(x), 1 //nolint:gosec // bit pattern.
	case int16:
		bits, width = uint64(x), 2 //nolint:gosec // bit pattern.
	case int32:
		bits, width = uint64(x), 4 //nolint:gosec // bit pattern.
	case uint8:
		bits, width = uint64(x), 11
	case uint16:
		bits, width = uint64(x), 12
	case uint32:
		bits, width = uint64(x), 14
	case uint64:
		bits, width = x, 18
	case float32:
		bits, width = uint64(math.Float32bits(x)), 24
	}
	_, _ = h.Write([]byte{width})
	writeU64(h, bits)
}

package object

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Map is the insertion ordered, string keyed object map of scripts.
type Map struct {
	om *orderedmap.OrderedMap[string, Dynamic]
}

func NewMap() *Map {
	return &Map{om: orderedmap.New[string, Dynamic]()}
}

func (m *Map) Len() int {
	return m.om.Len()
}

func (m *Map) Get(key string) (Dynamic, bool) {
	return m.om.Get(key)
}

// Ptr returns a pointer to the stored value, stable until the key is removed.
func (m *Map) Ptr(key string) *Dynamic {
	pair := m.om.GetPair(key)
	if pair == nil {
		return nil
	}
	return &pair.Value
}

func (m *Map) Has(key string) bool {
	return m.om.GetPair(key) != nil
}

// Set inserts or replaces, keeping the original position of existing keys.
func (m *Map) Set(key string, value Dynamic) {
	m.om.Set(key, value)
}

func (m *Map) Delete(key string) (Dynamic, bool) {
	return m.om.Delete(key)
}

func (m *Map) Clear() {
	m.om = orderedmap.New[string, Dynamic]()
}

// Range calls f in insertion order until it returns false.
func (m *Map) Range(f func(key string, value *Dynamic) bool) {
	for pair := m.om.Oldest(); pair != nil; pair = pair.Next() {
		if !f(pair.Key, &pair.Value) {
			return
		}
	}
}

func (m *Map) Keys() []string {
	res := make([]string, 0, m.Len())
	for pair := m.om.Oldest(); pair != nil; pair = pair.Next() {
		res = append(res, pair.Key)
	}
	return res
}

// Values returns clones of the values.
func (m *Map) Values() []Dynamic {
	res := make([]Dynamic, 0, m.Len())
	for pair := m.om.Oldest(); pair != nil; pair = pair.Next() {
		res = append(res, pair.Value.Clone())
	}
	return res
}

func (m *Map) Clone() *Map {
	res := NewMap()
	for pair := m.om.Oldest(); pair != nil; pair = pair.Next() {
		res.om.Set(pair.Key, pair.Value.Clone())
	}
	return res
}

// Equal compares content regardless of insertion order.
func (m *Map) Equal(other *Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	for pair := m.om.Oldest(); pair != nil; pair = pair.Next() {
		v, ok := other.Get(pair.Key)
		if !ok || !Equal(pair.Value, v) {
			return false
		}
	}
	return true
}

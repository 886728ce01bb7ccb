package object

import (
	"errors"

	"fortio.org/log"
)

// Barrier is an invalid variable name pushed to isolate the variables of
// custom syntax blocks: name searches stop at it.
const Barrier = "$BARRIER$"

type scopeEntry struct {
	name    string
	value   Dynamic
	aliases []string
}

// Scope is the stack of variables of an evaluation. Lookups scan from the
// top so the most recent shadow wins; blocks restore a previous Len with Rewind.
type Scope struct {
	entries []scopeEntry
}

func NewScope() *Scope {
	return &Scope{}
}

func (s *Scope) Len() int {
	return len(s.entries)
}

func (s *Scope) IsEmpty() bool {
	return len(s.entries) == 0
}

func (s *Scope) Clear() *Scope {
	s.entries = s.entries[:0]
	return s
}

// Rewind truncates back to size, entries below are left untouched.
func (s *Scope) Rewind(size int) *Scope {
	if size < len(s.entries) {
		clear(s.entries[size:])
		s.entries = s.entries[:size]
	}
	return s
}

// Push adds a read/write variable converted from a host value.
func (s *Scope) Push(name string, value any) *Scope {
	return s.PushDynamic(name, ReadWrite, From(value))
}

// PushConstant adds a read only variable.
func (s *Scope) PushConstant(name string, value any) *Scope {
	return s.PushDynamic(name, ReadOnly, From(value))
}

func (s *Scope) PushDynamic(name string, access AccessMode, value Dynamic) *Scope {
	value.SetAccessMode(access)
	s.entries = append(s.entries, scopeEntry{name: name, value: value})
	return s
}

func (s *Scope) PushBarrier() *Scope {
	s.entries = append(s.entries, scopeEntry{name: Barrier})
	return s
}

func (s *Scope) Contains(name string) bool {
	_, _, ok := s.GetIndex(name)
	return ok
}

// GetIndex finds the most recent entry for name, not looking past a barrier.
func (s *Scope) GetIndex(name string) (int, AccessMode, bool) {
	for i := len(s.entries) - 1; i >= 0; i-- {
		n := s.entries[i].name
		if n == name {
			return i, s.entries[i].value.AccessMode(), true
		}
		if n == Barrier {
			break
		}
	}
	return -1, ReadWrite, false
}

// Get returns a clone of the variable's value.
func (s *Scope) Get(name string) (Dynamic, bool) {
	i, _, ok := s.GetIndex(name)
	if !ok {
		return Unit, false
	}
	return s.entries[i].value.FlattenClone(), true
}

// GetValue is Get with a conversion to a host type.
func GetValue[T any](s *Scope, name string) (T, bool) {
	v, ok := s.Get(name)
	if !ok {
		var zero T
		return zero, false
	}
	return TryCast[T](v)
}

// IsConstant reports whether name exists and is read only.
func (s *Scope) IsConstant(name string) (bool, bool) {
	i, access, ok := s.GetIndex(name)
	if !ok {
		return false, false
	}
	return access == ReadOnly || s.entries[i].value.IsReadOnly(), true
}

var ErrConstant = errors.New("variable is constant")

// Set updates an existing read/write variable or pushes a new one.
func (s *Scope) Set(name string, value any) error {
	i, access, ok := s.GetIndex(name)
	switch {
	case !ok:
		s.Push(name, value)
	case access == ReadOnly:
		log.Debugf("Scope.Set(%s) on a constant", name)
		return ErrConstant
	default:
		s.entries[i].value = From(value)
	}
	return nil
}

// SetOrPush replaces read/write variables, shadows constants.
func (s *Scope) SetOrPush(name string, value any) *Scope {
	i, access, ok := s.GetIndex(name)
	if !ok || access == ReadOnly {
		return s.Push(name, value)
	}
	s.entries[i].value = From(value)
	return s
}

// GetMutByIndex returns the storage of entry i (0 based from the bottom).
func (s *Scope) GetMutByIndex(i int) *Dynamic {
	return &s.entries[i].value
}

func (s *Scope) NameAt(i int) string {
	return s.entries[i].name
}

func (s *Scope) AddEntryAlias(i int, alias string) *Scope {
	e := &s.entries[i]
	for _, a := range e.aliases {
		if a == alias {
			return s
		}
	}
	e.aliases = append(e.aliases, alias)
	return s
}

// Entry is a view of a scope variable.
type Entry struct {
	Name     string
	Constant bool
	Value    Dynamic
	Aliases  []string
}

// Entries lists the variables bottom to top, values are not cloned.
func (s *Scope) Entries() []Entry {
	res := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.name == Barrier {
			continue
		}
		res = append(res, Entry{Name: e.name, Constant: e.value.IsReadOnly(), Value: e.value, Aliases: e.aliases})
	}
	return res
}

// CloneVisible copies the most recent entry of each name, access modes kept.
func (s *Scope) CloneVisible() *Scope {
	res := NewScope()
	seen := make(map[string]bool, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if seen[e.name] || e.name == Barrier {
			continue
		}
		seen[e.name] = true
		v := e.value.Clone()
		v.SetAccessMode(e.value.AccessMode())
		res.entries = append(res.entries, scopeEntry{name: e.name, value: v, aliases: e.aliases})
	}
	// back to bottom to top order.
	for i, j := 0, len(res.entries)-1; i < j; i, j = i+1, j-1 {
		res.entries[i], res.entries[j] = res.entries[j], res.entries[i]
	}
	return res
}

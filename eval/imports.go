package eval

import (
	"iter"
)

type importEntry struct {
	name   string
	module *Module
}

// Imports is the stack of modules brought in by `import` statements. Like
// the scope it only grows and is truncated back when blocks end; the most
// recent import of a name shadows the previous ones.
type Imports struct {
	entries []importEntry
}

func (im *Imports) Len() int {
	return len(im.entries)
}

func (im *Imports) IsEmpty() bool {
	return len(im.entries) == 0
}

func (im *Imports) Push(name string, m *Module) {
	im.entries = append(im.entries, importEntry{name: name, module: m})
}

// Truncate drops the imports above size.
func (im *Imports) Truncate(size int) {
	if size < len(im.entries) {
		clear(im.entries[size:])
		im.entries = im.entries[:size]
	}
}

// Find returns the stack index of the most recent import named name.
func (im *Imports) Find(name string) (int, bool) {
	for i := len(im.entries) - 1; i >= 0; i-- {
		if im.entries[i].name == name {
			return i, true
		}
	}
	return -1, false
}

func (im *Imports) Get(i int) *Module {
	return im.entries[i].module
}

func (im *Imports) NameAt(i int) string {
	return im.entries[i].name
}

// GetFn searches the indexes of the imported modules, most recent first.
func (im *Imports) GetFn(hash uint64) (*FuncInfo, bool) {
	for i := len(im.entries) - 1; i >= 0; i-- {
		if f, ok := im.entries[i].module.GetQualifiedFn(hash); ok {
			return f, true
		}
	}
	return nil, false
}

func (im *Imports) ContainsFn(hash uint64) bool {
	_, ok := im.GetFn(hash)
	return ok
}

func (im *Imports) GetIter(typeID string) (IterFn, bool) {
	for i := len(im.entries) - 1; i >= 0; i-- {
		if f, ok := im.entries[i].module.GetQualifiedIter(typeID); ok {
			return f, true
		}
	}
	return nil, false
}

// All iterates over the (alias, module) pairs, most recent first.
func (im *Imports) All() iter.Seq2[string, *Module] {
	return func(yield func(string, *Module) bool) {
		for i := len(im.entries) - 1; i >= 0; i-- {
			if !yield(im.entries[i].name, im.entries[i].module) {
				return
			}
		}
	}
}

func (im *Imports) snapshot() []importEntry {
	if len(im.entries) == 0 {
		return nil
	}
	return append([]importEntry(nil), im.entries...)
}

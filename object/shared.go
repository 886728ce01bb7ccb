package object

import (
	"sync"
)

// Cell is the interior mutable box behind shared values (closure captures).
// Locking a cell that is already write locked, or write locking a read
// locked one, is a logic error and panics.
type Cell struct {
	mu    sync.RWMutex
	value Dynamic
}

// LockedCellError is the panic value of conflicting cell locks.
type LockedCellError struct{}

func (LockedCellError) Error() string {
	return "shared value is already locked"
}

func (c *Cell) IsLocked() bool {
	if !c.mu.TryLock() {
		return true
	}
	c.mu.Unlock()
	return false
}

// IntoShared wraps the value in a new cell. Already shared values are
// returned as is.
func (d Dynamic) IntoShared() Dynamic {
	if d.kind == SHARED {
		return d
	}
	c := &Cell{value: d}
	return Dynamic{kind: SHARED, access: ReadWrite, tag: d.tag, p: c}
}

// Flatten returns the plain value: shared content is cloned out of its cell
// (other references to the cell may still exist).
func (d Dynamic) Flatten() Dynamic {
	if d.kind != SHARED {
		return d
	}
	g := d.ReadLock()
	defer g.Release()
	return g.Value().Clone()
}

// FlattenClone is Flatten for values that stay alive: never shares containers.
func (d Dynamic) FlattenClone() Dynamic {
	if d.kind != SHARED {
		return d.Clone()
	}
	return d.Flatten()
}

// Guard unifies access to a plain value and to the locked content of a
// shared one. Release must be called once done.
type Guard struct {
	ptr   *Dynamic
	cell  *Cell
	write bool
}

func (g Guard) Value() *Dynamic {
	return g.ptr
}

func (g Guard) IsShared() bool {
	return g.cell != nil
}

func (g Guard) Release() {
	switch {
	case g.cell == nil:
	case g.write:
		g.cell.mu.Unlock()
	default:
		g.cell.mu.RUnlock()
	}
}

// ReadLock panics if the cell is write locked.
func (d *Dynamic) ReadLock() Guard {
	if d.kind != SHARED {
		return Guard{ptr: d}
	}
	c := d.p.(*Cell)
	if !c.mu.TryRLock() {
		panic(LockedCellError{})
	}
	return Guard{ptr: &c.value, cell: c}
}

// WriteLock panics if the cell is locked in any way.
func (d *Dynamic) WriteLock() Guard {
	if d.kind != SHARED {
		return Guard{ptr: d}
	}
	c := d.p.(*Cell)
	if !c.mu.TryLock() {
		panic(LockedCellError{})
	}
	return Guard{ptr: &c.value, cell: c, write: true}
}

// IsLocked reports whether a shared value's cell is currently locked.
func (d Dynamic) IsLocked() bool {
	if d.kind != SHARED {
		return false
	}
	return d.p.(*Cell).IsLocked()
}

// SameCell is true when both values are references to the same shared cell.
func SameCell(a, b Dynamic) bool {
	return a.kind == SHARED && b.kind == SHARED && a.p.(*Cell) == b.p.(*Cell)
}

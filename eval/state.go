package eval

import (
	"fortio.org/log"
)

// resolved is a function resolution cache entry. Both nil for a cached miss.
type resolved struct {
	fn      *FuncInfo
	builtin builtinFn
}

// fnCache memoizes function resolution by (native or script) hash.
type fnCache map[uint64]*resolved

func (c fnCache) get(hash uint64) (*resolved, bool) {
	r, ok := c[hash]
	return r, ok
}

func (c fnCache) set(hash uint64, r *resolved) {
	c[hash] = r
}

// EvalState is the mutable context of one evaluation: counters, the
// resolution caches and the flags the walker shares across calls.
type EvalState struct {
	Source string
	// Operations is the number of statements and expressions evaluated.
	Operations uint64
	// Modules is the number of modules imported so far.
	Modules int
	// ScopeLevel is the block nesting level, 0 at the top.
	ScopeLevel int
	// AlwaysSearchScope disables the parse time variable offsets, set once
	// `eval` or custom syntax changed the scope.
	AlwaysSearchScope bool
	// Resolver, when set, is tried before the engine's module resolver.
	Resolver ModuleResolver

	caches []fnCache
	stack  []string // names of the functions being called.
}

func NewEvalState(source string) *EvalState {
	return &EvalState{Source: source}
}

// Cache returns the current resolution cache, creating the first one.
func (s *EvalState) Cache() fnCache {
	if len(s.caches) == 0 {
		s.caches = append(s.caches, make(fnCache))
	}
	return s.caches[len(s.caches)-1]
}

// PushCache starts a new resolution cache, for a new function library or
// imports bringing global functions in a block.
func (s *EvalState) PushCache() {
	s.caches = append(s.caches, make(fnCache))
	log.Debugf("resolution cache pushed, %d caches", len(s.caches))
}

// NumCaches is the depth of the cache stack, to be restored with RewindCaches.
func (s *EvalState) NumCaches() int {
	return len(s.caches)
}

func (s *EvalState) RewindCaches(n int) {
	if n < len(s.caches) {
		s.caches = s.caches[:n]
	}
}

// ClearCache empties the current cache, used when imports at the current
// level made its entries stale.
func (s *EvalState) ClearCache() {
	if len(s.caches) > 0 {
		clear(s.caches[len(s.caches)-1])
	}
}

func (s *EvalState) pushCall(name string) {
	s.stack = append(s.stack, name)
}

func (s *EvalState) popCall() {
	s.stack = s.stack[:len(s.stack)-1]
}

// Stack returns the names of the functions being called, innermost first.
func (s *EvalState) Stack() []string {
	res := make([]string, 0, len(s.stack))
	for i := len(s.stack) - 1; i >= 0; i-- {
		res = append(res, s.stack[i])
	}
	log.Debugf("Stack() depth %d returning %v", len(s.stack), res)
	return res
}

// CallLevel is the number of nested function calls.
func (s *EvalState) CallLevel() int {
	return len(s.stack)
}

package eval

import (
	"maps"
	"slices"

	"grol.io/rhai/token"
)

// ModuleResolver loads the module of an `import` statement. source is the
// name of the importing script, if any.
type ModuleResolver interface {
	Resolve(e *Engine, source, path string, pos token.Position) (*Module, error)
}

// ModuleNotFound is the error resolvers return for unknown paths, letting
// the next resolver in line try.
func ModuleNotFound(path string, pos token.Position) *EvalError {
	return newError(ErrModuleNotFound, path, pos)
}

// StaticResolver serves modules registered in memory.
type StaticResolver struct {
	modules map[string]*Module
}

func NewStaticResolver() *StaticResolver {
	return &StaticResolver{modules: make(map[string]*Module)}
}

func (r *StaticResolver) Insert(path string, m *Module) *StaticResolver {
	m.BuildIndex()
	r.modules[path] = m
	return r
}

func (r *StaticResolver) Remove(path string) (*Module, bool) {
	m, ok := r.modules[path]
	delete(r.modules, path)
	return m, ok
}

func (r *StaticResolver) Contains(path string) bool {
	_, ok := r.modules[path]
	return ok
}

func (r *StaticResolver) Paths() []string {
	return slices.Sorted(maps.Keys(r.modules))
}

func (r *StaticResolver) Resolve(_ *Engine, _, path string, pos token.Position) (*Module, error) {
	m, ok := r.modules[path]
	if !ok {
		return nil, ModuleNotFound(path, pos)
	}
	return m, nil
}

// ResolverFunc adapts a function to ModuleResolver.
type ResolverFunc func(e *Engine, source, path string, pos token.Position) (*Module, error)

func (f ResolverFunc) Resolve(e *Engine, source, path string, pos token.Position) (*Module, error) {
	return f(e, source, path, pos)
}

// ResolverChain tries each resolver in turn while they report the module
// as not found.
type ResolverChain []ModuleResolver

func (c ResolverChain) Resolve(e *Engine, source, path string, pos token.Position) (*Module, error) {
	for _, r := range c {
		m, err := r.Resolve(e, source, path, pos)
		if ee := AsEvalError(err); ee != nil && ee.Kind == ErrModuleNotFound {
			continue
		}
		return m, err
	}
	return nil, ModuleNotFound(path, pos)
}

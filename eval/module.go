package eval

import (
	"iter"
	"maps"
	"slices"
	"strings"

	"fortio.org/log"
	"grol.io/rhai/ast"
	"grol.io/rhai/object"
)

// NativeFn is a host function. args[0] is the receiver of method calls and,
// for natives that aren't Pure, may be modified in place.
type NativeFn func(ctx *NativeCallContext, args []*object.Dynamic) (object.Dynamic, error)

// IterFn produces the values a `for` loop iterates over.
type IterFn func(v object.Dynamic) iter.Seq[object.Dynamic]

type FnNamespace uint8

const (
	// NamespaceInternal functions are only reachable qualified, or from the
	// engine's global modules.
	NamespaceInternal FnNamespace = iota
	// NamespaceGlobal functions of imported and sub-modules are also
	// callable unqualified.
	NamespaceGlobal
)

type FnAccess uint8

const (
	AccessPublic FnAccess = iota
	AccessPrivate
)

// ScriptFn is a script defined function with the environment it was
// defined in: the library and imports of its module (nil for the running script).
type ScriptFn struct {
	Def     *ast.ScriptFnDef
	Lib     *Module
	Imports []importEntry
}

// FuncInfo is a function table entry.
type FuncInfo struct {
	Name       string
	Namespace  FnNamespace
	Access     FnAccess
	ParamTypes []string // type ids, "?" for any. Natives only.
	Native     NativeFn
	Script     *ScriptFn
	Pure       bool // the native doesn't modify its first argument.
	Comments   []string
}

func (f *FuncInfo) IsScript() bool {
	return f.Script != nil
}

// NumParams is the arity of the function.
func (f *FuncInfo) NumParams() int {
	if f.Script != nil {
		return len(f.Script.Def.Params)
	}
	return len(f.ParamTypes)
}

// Signature is the display form used in listings: `name(a, b)` for script
// functions, `name(i64, ?)` for natives.
func (f *FuncInfo) Signature() string {
	if f.Script != nil {
		return f.Script.Def.Signature()
	}
	return f.Name + "(" + strings.Join(f.ParamTypes, ", ") + ")"
}

// Module is a namespace of functions, constants, type iterators and
// sub-modules. BuildIndex must be called before the module is used through
// qualified access (done when the module is imported or registered).
type Module struct {
	ID        string
	functions map[uint64]*FuncInfo
	variables map[string]object.Dynamic
	modules   map[string]*Module
	typeIters map[string]IterFn

	// index of everything reachable qualified from this module, and of the
	// global namespace functions of the sub-modules.
	allVariables map[uint64]object.Dynamic
	allFunctions map[uint64]*FuncInfo
	allIters     map[string]IterFn
	indexed      bool
	// at least one function in the index is callable unqualified.
	containsIndexedGlobalFunctions bool
}

func NewModule() *Module {
	return &Module{
		functions: make(map[uint64]*FuncInfo),
		variables: make(map[string]object.Dynamic),
		modules:   make(map[string]*Module),
		typeIters: make(map[string]IterFn),
	}
}

func (m *Module) IsEmpty() bool {
	return len(m.functions) == 0 && len(m.variables) == 0 && len(m.modules) == 0 && len(m.typeIters) == 0
}

func (m *Module) IsIndexed() bool {
	return m.indexed
}

func (m *Module) invalidate() {
	m.indexed = false
	m.containsIndexedGlobalFunctions = false
}

// SetVar sets a module constant.
func (m *Module) SetVar(name string, v any) *Module {
	d := object.From(v)
	d.SetAccessMode(object.ReadOnly)
	m.variables[name] = d
	m.invalidate()
	return m
}

func (m *Module) GetVar(name string) (object.Dynamic, bool) {
	v, ok := m.variables[name]
	return v, ok
}

// Vars lists the module variables, sorted by name.
func (m *Module) Vars() []string {
	return slices.Sorted(maps.Keys(m.variables))
}

func (m *Module) SetSubModule(name string, sub *Module) *Module {
	m.modules[name] = sub
	m.invalidate()
	return m
}

func (m *Module) SubModule(name string) (*Module, bool) {
	sub, ok := m.modules[name]
	return sub, ok
}

// SetNative adds a native function, keyed by name, arity and parameter
// types. Replaces an existing one with the same signature.
func (m *Module) SetNative(f *FuncInfo) uint64 {
	h := ast.CombineHashes(ast.FnHash(f.Name, len(f.ParamTypes)), ast.ParamsHash(f.ParamTypes))
	m.functions[h] = f
	m.invalidate()
	return h
}

// SetFn is the short form of SetNative for pure functions.
func (m *Module) SetFn(name string, types []string, fn NativeFn) uint64 {
	return m.SetNative(&FuncInfo{Name: name, ParamTypes: types, Native: fn, Pure: true})
}

// SetScriptFn adds a script function, keyed by name and arity.
func (m *Module) SetScriptFn(fn *ScriptFn) uint64 {
	def := fn.Def
	access := AccessPublic
	if def.Private {
		access = AccessPrivate
	}
	h := ast.FnHash(def.Name, len(def.Params))
	m.functions[h] = &FuncInfo{
		Name:     def.Name,
		Access:   access,
		Script:   fn,
		Comments: def.Comments,
	}
	m.invalidate()
	return h
}

// GetFn looks a function up in this module only, by unqualified hash.
func (m *Module) GetFn(hash uint64) (*FuncInfo, bool) {
	f, ok := m.functions[hash]
	return f, ok
}

func (m *Module) ContainsFn(hash uint64) bool {
	_, ok := m.functions[hash]
	return ok
}

// ScriptFns iterates over the script defined functions.
func (m *Module) ScriptFns() iter.Seq[*FuncInfo] {
	return func(yield func(*FuncInfo) bool) {
		for _, f := range m.functions {
			if f.Script != nil && !yield(f) {
				return
			}
		}
	}
}

// Functions lists every function of the module, sorted by signature.
func (m *Module) Functions() []*FuncInfo {
	res := slices.Collect(maps.Values(m.functions))
	slices.SortFunc(res, func(a, b *FuncInfo) int {
		return strings.Compare(a.Signature(), b.Signature())
	})
	return res
}

// NumFunctions counts script and native functions.
func (m *Module) NumFunctions() int {
	return len(m.functions)
}

// SetIter registers the iterator for values of type typeID.
func (m *Module) SetIter(typeID string, fn IterFn) *Module {
	m.typeIters[typeID] = fn
	m.invalidate()
	return m
}

func (m *Module) GetIter(typeID string) (IterFn, bool) {
	f, ok := m.typeIters[typeID]
	return f, ok
}

// GetQualifiedVar looks up a variable of the index by its qualified hash.
func (m *Module) GetQualifiedVar(hash uint64) (object.Dynamic, bool) {
	v, ok := m.allVariables[hash]
	return v, ok
}

// GetQualifiedFn looks up the index: qualified hashes of the public
// functions of the module tree, and unqualified ones of global functions.
func (m *Module) GetQualifiedFn(hash uint64) (*FuncInfo, bool) {
	f, ok := m.allFunctions[hash]
	return f, ok
}

func (m *Module) GetQualifiedIter(typeID string) (IterFn, bool) {
	f, ok := m.allIters[typeID]
	return f, ok
}

// ContainsIndexedGlobalFunctions reports whether importing this module
// brings functions callable without qualification.
func (m *Module) ContainsIndexedGlobalFunctions() bool {
	return m.containsIndexedGlobalFunctions
}

// BuildIndex computes the qualified lookup tables for the whole module tree.
func (m *Module) BuildIndex() *Module {
	if m.indexed {
		return m
	}
	m.allVariables = make(map[uint64]object.Dynamic)
	m.allFunctions = make(map[uint64]*FuncInfo)
	m.allIters = make(map[string]IterFn)
	m.containsIndexedGlobalFunctions = m.index([]string{"root"})
	m.indexed = true
	log.LogVf("Module %q indexed: %d functions, %d variables", m.ID, len(m.allFunctions), len(m.allVariables))
	return m
}

func (m *Module) index(path []string) bool {
	root := m
	var walk func(mod *Module, path []string) bool
	walk = func(mod *Module, path []string) bool {
		global := false
		for _, name := range slices.Sorted(maps.Keys(mod.modules)) {
			if walk(mod.modules[name], append(slices.Clip(path), name)) {
				global = true
			}
		}
		for name, v := range mod.variables {
			root.allVariables[ast.QualifiedVarHash(path, name)] = v
		}
		for h, f := range mod.functions {
			if f.Access == AccessPrivate {
				continue
			}
			if f.Namespace == NamespaceGlobal {
				root.allFunctions[h] = f
				global = true
			}
			qh := ast.QualifiedFnHash(path, f.Name, f.NumParams())
			if f.Native != nil {
				qh = ast.CombineHashes(qh, ast.ParamsHash(f.ParamTypes))
			}
			root.allFunctions[qh] = f
		}
		for id, it := range mod.typeIters {
			root.allIters[id] = it
		}
		return global
	}
	return walk(m, path)
}

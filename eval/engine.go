package eval

import (
	"context"
	"maps"
	"slices"

	"fortio.org/log"
	"grol.io/rhai/object"
	"grol.io/rhai/parser"
	"grol.io/rhai/token"
)

// VarResolver gets first refusal on plain variable accesses: it returns the
// value and true to supply the variable, false to let the scope lookup happen.
type VarResolver func(name string, index int, ctx *EvalContext) (object.Dynamic, bool, error)

// Engine holds everything scripts run against: registered modules, limits,
// callbacks and syntax extensions. It is not modified by evaluations and can
// run several of them, one at a time.
type Engine struct {
	Limits Limits
	// Context, when set, terminates evaluations once it is done.
	Context context.Context //nolint:containedctx // checked at every operation.

	// OnPrint receives the text of print(), OnDebug the one of debug().
	OnPrint func(text string)
	OnDebug func(text, source string, pos token.Position)
	// OnProgress is called at every operation with the count so far;
	// returning true terminates the evaluation with the given token.
	OnProgress func(ops uint64) (object.Dynamic, bool)
	// OnVar is the variable resolver.
	OnVar VarResolver

	global        *Module   // functions registered on the engine itself.
	globalModules []*Module // searched most recent first.
	subModules    map[string]*Module
	resolver      ModuleResolver
	typeNames     map[string]string
	custom        map[string]*customSyntax
}

// NewEngine returns an engine with the [CoreModule] registered: iterators,
// range(), tags and to_string/to_debug.
func NewEngine() *Engine {
	e := NewRawEngine()
	e.RegisterGlobalModule(CoreModule())
	e.RegisterTypeName(RangeTypeID, "range")
	return e
}

// NewRawEngine returns an engine without any function registered. Operators
// on primitive types still work.
func NewRawEngine() *Engine {
	e := &Engine{
		Limits:     DefaultLimits(),
		global:     NewModule(),
		subModules: make(map[string]*Module),
		typeNames:  make(map[string]string),
		custom:     make(map[string]*customSyntax),
		OnPrint: func(text string) {
			log.Infof("%s", text)
		},
		OnDebug: func(text, source string, pos token.Position) {
			switch {
			case source != "":
				log.Infof("%s @ %v | %s", source, pos, text)
			case pos.IsNone():
				log.Infof("%s", text)
			default:
				log.Infof("%v | %s", pos, text)
			}
		},
	}
	e.global.ID = "global"
	e.globalModules = []*Module{e.global}
	return e
}

// RegisterGlobalModule makes the functions and iterators of m available to
// all scripts, taking precedence over previously registered modules.
func (e *Engine) RegisterGlobalModule(m *Module) *Engine {
	m.BuildIndex()
	e.globalModules = append(e.globalModules, m)
	log.LogVf("Global module %q registered, %d functions", m.ID, m.NumFunctions())
	return e
}

// RegisterStaticModule makes m available as name:: without import.
func (e *Engine) RegisterStaticModule(name string, m *Module) *Engine {
	m.BuildIndex()
	e.subModules[name] = m
	return e
}

// StaticModules lists the names registered with RegisterStaticModule.
func (e *Engine) StaticModules() []string {
	return slices.Sorted(maps.Keys(e.subModules))
}

func (e *Engine) SetModuleResolver(r ModuleResolver) *Engine {
	e.resolver = r
	return e
}

func (e *Engine) ModuleResolver() ModuleResolver {
	return e.resolver
}

// RegisterTypeName sets the name type_of() and errors use for values whose
// type name is goName, e.g "main.Point" -> "Point".
func (e *Engine) RegisterTypeName(goName, name string) *Engine {
	e.typeNames[goName] = name
	return e
}

// MapTypeName returns the registered script name of a type.
func (e *Engine) MapTypeName(name string) string {
	if n, ok := e.typeNames[name]; ok {
		return n
	}
	return name
}

func (e *Engine) typeName(v object.Dynamic) string {
	return e.MapTypeName(v.TypeName())
}

// RegisterFn adds a native function to the engine's own namespace.
// Functions modifying their first argument must use RegisterMutFn.
func (e *Engine) RegisterFn(name string, fn NativeFn, types ...string) *Engine {
	e.global.SetFn(name, types, fn)
	return e
}

// RegisterMutFn is RegisterFn for functions modifying their first argument.
func (e *Engine) RegisterMutFn(name string, fn NativeFn, types ...string) *Engine {
	e.global.SetNative(&FuncInfo{Name: name, ParamTypes: types, Native: fn})
	return e
}

// RegisterGetter adds the getter of property name for values of type typeID.
func (e *Engine) RegisterGetter(typeID, name string, fn NativeFn) *Engine {
	return e.RegisterFn("get$"+name, fn, typeID)
}

// RegisterSetter adds the setter of property name, taking values of type valueType.
func (e *Engine) RegisterSetter(typeID, name, valueType string, fn NativeFn) *Engine {
	return e.RegisterMutFn("set$"+name, fn, typeID, valueType)
}

// RegisterIndexer adds indexing, get and set, for values of type typeID.
// set can be nil for read only indexing.
func (e *Engine) RegisterIndexer(typeID, indexType string, get, set NativeFn) *Engine {
	e.RegisterFn(IndexerGet, get, typeID, indexType)
	if set != nil {
		e.RegisterMutFn(IndexerSet, set, typeID, indexType, object.IDAny)
	}
	return e
}

// RegisterIter adds the `for` iterator of values of type typeID.
func (e *Engine) RegisterIter(typeID string, fn IterFn) *Engine {
	e.global.SetIter(typeID, fn)
	return e
}

// Names of the functions indexing falls back to.
const (
	IndexerGet = "index$get$"
	IndexerSet = "index$set$"
)

// FunctionSignatures lists the functions of the global modules, for
// completion and help.
func (e *Engine) FunctionSignatures() []string {
	var res []string
	for _, m := range e.globalModules {
		for _, f := range m.Functions() {
			res = append(res, f.Signature())
		}
	}
	slices.Sort(res)
	return slices.Compact(res)
}

func (e *Engine) parserOptions() parser.Options {
	opts := parser.Options{
		MaxExprDepth:         e.Limits.MaxExprDepth,
		MaxFunctionExprDepth: e.Limits.MaxFunctionExprDepth,
		MaxArraySize:         e.Limits.MaxArraySize,
		MaxMapSize:           e.Limits.MaxMapSize,
	}
	if len(e.custom) > 0 {
		opts.CustomSyntax = make(map[string]*parser.CustomSyntax, len(e.custom))
		for k, cs := range e.custom {
			opts.CustomSyntax[k] = cs.parse
		}
	}
	return opts
}

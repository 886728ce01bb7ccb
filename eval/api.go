package eval

import (
	"errors"
	"fmt"

	"fortio.org/log"
	"grol.io/rhai/ast"
	"grol.io/rhai/lexer"
	"grol.io/rhai/object"
	"grol.io/rhai/parser"
	"grol.io/rhai/token"
)

// Exported entry points of the engine.

// Compile parses a script with the engine's limits and syntax extensions.
func (e *Engine) Compile(script string) (*ast.AST, error) {
	return parser.Parse(script, e.parserOptions())
}

// CompileExpression parses a single expression, no statements.
func (e *Engine) CompileExpression(script string) (*ast.AST, error) {
	p := parser.NewWithOptions(lexer.New(script), e.parserOptions())
	x := p.ParseExpression()
	if err := p.Err(); err != nil {
		return nil, err
	}
	return &ast.AST{Source: script, Statements: []ast.Stmt{&ast.ExprStmt{Base: ast.Base{Pos: x.Position()}, Expr: x}}}, nil
}

// Eval runs a script in a new scope and returns the value of its last
// statement.
func (e *Engine) Eval(script string) (object.Dynamic, error) {
	return e.EvalWithScope(object.NewScope(), script)
}

// EvalWithScope runs a script in scope, the top level variables it defines
// are left in it.
func (e *Engine) EvalWithScope(scope *object.Scope, script string) (object.Dynamic, error) {
	tree, err := e.Compile(script)
	if err != nil {
		return object.Unit, AsEvalError(err)
	}
	return e.EvalASTWithScope(scope, tree)
}

func (e *Engine) EvalExpression(script string) (object.Dynamic, error) {
	return e.EvalExpressionWithScope(object.NewScope(), script)
}

func (e *Engine) EvalExpressionWithScope(scope *object.Scope, script string) (object.Dynamic, error) {
	tree, err := e.CompileExpression(script)
	if err != nil {
		return object.Unit, AsEvalError(err)
	}
	return e.EvalASTWithScope(scope, tree)
}

func (e *Engine) EvalAST(tree *ast.AST) (object.Dynamic, error) {
	return e.EvalASTWithScope(object.NewScope(), tree)
}

func (e *Engine) EvalASTWithScope(scope *object.Scope, tree *ast.AST) (object.Dynamic, error) {
	return e.EvalASTWithState(NewEvalState(""), scope, tree)
}

// EvalASTWithState is EvalASTWithScope with a caller provided state, to set
// the source name or a module resolver for this evaluation only.
func (e *Engine) EvalASTWithState(state *EvalState, scope *object.Scope, tree *ast.AST) (object.Dynamic, error) {
	w := e.newWalker(state, scope, tree)
	return w.run(tree.Statements)
}

// Run is Eval for scripts run for their effects.
func (e *Engine) Run(script string) error {
	_, err := e.Eval(script)
	return err
}

func (e *Engine) RunWithScope(scope *object.Scope, script string) error {
	_, err := e.EvalWithScope(scope, script)
	return err
}

// EvalAs runs a script and converts the result to T, a mismatch is an
// ErrMismatchOutputType error.
func EvalAs[T any](e *Engine, script string) (T, error) {
	var zero T
	v, err := e.Eval(script)
	if err != nil {
		return zero, err
	}
	res, err := object.Cast[T](v)
	if err != nil {
		var ce *object.CastError
		if errors.As(err, &ce) {
			return zero, &EvalError{Kind: ErrMismatchOutputType, Name: ce.To, Other: e.MapTypeName(ce.From), Err: err}
		}
		return zero, err
	}
	return res, nil
}

// CallFn runs the top level statements of tree, then calls its script
// function name with args (converted with object.From).
func (e *Engine) CallFn(scope *object.Scope, tree *ast.AST, name string, args ...any) (object.Dynamic, error) {
	w := e.newWalker(NewEvalState(""), scope, tree)
	if _, err := w.run(tree.Statements); err != nil {
		return object.Unit, err
	}
	vals := make([]object.Dynamic, len(args))
	for i, a := range args {
		vals[i] = object.From(a)
	}
	ptrs := pointers(vals)
	var f *FuncInfo
	if len(w.lib) > 0 {
		f, _ = w.lib[0].GetFn(ast.FnHash(name, len(args)))
	}
	if f == nil {
		return object.Unit, newError(ErrFunctionNotFound, w.signature(name, ptrs), token.NONE)
	}
	return w.protect(func() (object.Dynamic, *EvalError) {
		return w.callScriptFn(f, nil, ptrs, false, false, token.NONE)
	})
}

// EvalASTAsModule runs tree and makes a module of the outcome: its
// exported variables, its functions (run with the module's own library
// and imports) and the modules it imported under an alias.
func (e *Engine) EvalASTAsModule(source string, scope *object.Scope, tree *ast.AST) (*Module, error) {
	w := e.newWalker(NewEvalState(source), scope, tree)
	if _, err := w.run(tree.Statements); err != nil {
		return nil, err
	}
	m := NewModule()
	m.ID = source
	for _, en := range scope.Entries() {
		for _, alias := range en.Aliases {
			m.SetVar(alias, en.Value.Flatten())
		}
	}
	for name, sub := range w.imports.All() {
		if _, done := m.SubModule(name); name != "" && !done {
			m.SetSubModule(name, sub)
		}
	}
	lib := NewModule()
	lib.ID = source
	imports := w.imports.snapshot()
	if len(w.globals.Vars()) > 0 {
		// the module's own constants stay reachable as global::NAME.
		imports = append(imports, importEntry{name: token.KeywordGlobal, module: w.globals.BuildIndex()})
	}
	for _, def := range tree.Functions {
		sf := &ScriptFn{Def: def, Lib: lib, Imports: imports}
		lib.SetScriptFn(sf)
		m.SetScriptFn(sf)
	}
	log.LogVf("Module %q: %d variables, %d functions", source, len(m.Vars()), m.NumFunctions())
	return m.BuildIndex(), nil
}

func (e *Engine) newWalker(state *EvalState, scope *object.Scope, tree *ast.AST) *walker {
	w := &walker{e: e, state: state, scope: scope, imports: &Imports{}, globals: NewModule()}
	w.globals.ID = token.KeywordGlobal
	if tree != nil && len(tree.Functions) > 0 {
		w.lib = []*Module{scriptLib(tree, state.Source)}
	}
	return w
}

// run evaluates top level statements: no block, what they define stays.
func (w *walker) run(list []ast.Stmt) (object.Dynamic, error) {
	return w.protect(func() (object.Dynamic, *EvalError) {
		v, err := w.stmts(list).AsError()
		if err != nil {
			return object.Unit, err
		}
		return v.Flatten(), nil
	})
}

// protect turns panics into errors: conflicting shared cell locks are data
// races, anything else a system error.
func (w *walker) protect(f func() (object.Dynamic, *EvalError)) (res object.Dynamic, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		res = object.Unit
		if lce, ok := r.(object.LockedCellError); ok {
			err = &EvalError{Kind: ErrDataRace, Name: "shared value", Err: lce}
			return
		}
		log.Errf("Panic during evaluation: %v", r)
		err = &EvalError{Kind: ErrSystem, Name: "panic", Err: fmt.Errorf("%v", r)}
	}()
	v, ee := f()
	if ee != nil {
		return object.Unit, ee
	}
	return v, nil
}

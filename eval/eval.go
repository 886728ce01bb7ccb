package eval

import (
	"fortio.org/log"
	"grol.io/rhai/ast"
	"grol.io/rhai/object"
	"grol.io/rhai/parser"
	"grol.io/rhai/token"
)

// walker is the tree walking evaluator. One is created per top level
// evaluation, function calls copy it with their own scope and library.
type walker struct {
	e       *Engine
	state   *EvalState
	scope   *object.Scope
	imports *Imports
	lib     []*Module       // script functions, searched first to last.
	this    *object.Dynamic // bound `this`, nil outside method calls.
	globals *Module         // top level constants, seen as global::NAME.
	inFn    bool
}

// block runs the statements in a new lexical level: variables and imports
// declared inside are dropped at the end, whatever the outcome.
func (w *walker) block(b *ast.Block) Outcome {
	st := w.state
	scopeLen, importsLen, search, caches := w.scope.Len(), w.imports.Len(), st.AlwaysSearchScope, st.NumCaches()
	st.ScopeLevel++
	res := w.stmts(b.Stmts)
	st.ScopeLevel--
	w.scope.Rewind(scopeLen)
	w.imports.Truncate(importsLen)
	st.AlwaysSearchScope = search
	st.RewindCaches(caches)
	return res
}

// stmts evaluates in sequence, the value is the last statement's.
func (w *walker) stmts(list []ast.Stmt) Outcome {
	res := unitOutcome
	for _, s := range list {
		res = w.stmt(s)
		if !res.IsValue() {
			return res
		}
	}
	return res
}

func (w *walker) stmt(s ast.Stmt) Outcome {
	if err := w.incOperations(s.Position()); err != nil {
		return failure(err)
	}
	switch node := s.(type) {
	case *ast.Noop:
		return unitOutcome
	case *ast.ExprStmt:
		return w.expr(node.Expr)
	case *ast.BlockStmt:
		return w.block(node.Block)
	case *ast.Var:
		return w.letStmt(node)
	case *ast.Assignment:
		return w.assignment(node)
	case *ast.If:
		return w.ifStmt(node)
	case *ast.Switch:
		return w.switchStmt(node)
	case *ast.While:
		return w.whileStmt(node)
	case *ast.Do:
		return w.doStmt(node)
	case *ast.For:
		return w.forStmt(node)
	case *ast.TryCatch:
		return w.tryCatch(node)
	case *ast.Continue:
		return Outcome{Kind: OutContinue}
	case *ast.Break:
		return Outcome{Kind: OutBreak}
	case *ast.Return:
		return w.returnStmt(node)
	case *ast.Import:
		return w.importStmt(node)
	case *ast.Export:
		return w.exportStmt(node)
	case *ast.Share:
		return w.share(node)
	}
	return failure(&EvalError{Kind: ErrSystem, Name: "unknown statement " + s.String(), Pos: s.Position()})
}

func (w *walker) letStmt(node *ast.Var) Outcome {
	v := object.Unit
	if node.Value != nil {
		o := w.expr(node.Value)
		if !o.IsValue() {
			return o
		}
		v = o.Value.Flatten()
	}
	if err := w.checkDataSize(v, node.Pos); err != nil {
		return failure(err)
	}
	access := object.ReadWrite
	if node.Constant {
		access = object.ReadOnly
		if w.globals != nil && !w.inFn && w.state.ScopeLevel == 0 {
			w.globals.SetVar(node.Name.Name, v.Clone())
		}
	}
	w.scope.PushDynamic(node.Name.Name, access, v)
	if node.Exported {
		w.scope.AddEntryAlias(w.scope.Len()-1, node.Name.Name)
	}
	return unitOutcome
}

// condition evaluates a guard that must be a boolean.
func (w *walker) condition(x ast.Expr) (bool, Outcome) {
	o := w.expr(x)
	if !o.IsValue() {
		return false, o
	}
	b, ok := o.Value.AsBool()
	if !ok {
		return false, failure(TypeMismatch(object.IDBool, w.e.typeName(o.Value), x.Position()))
	}
	return b, o
}

func (w *walker) ifStmt(node *ast.If) Outcome {
	b, o := w.condition(node.Cond)
	if !o.IsValue() {
		return o
	}
	switch {
	case b:
		return w.block(node.Then)
	case node.Else != nil:
		return w.block(node.Else)
	}
	return unitOutcome
}

func (w *walker) switchStmt(node *ast.Switch) Outcome {
	o := w.expr(node.Expr)
	if !o.IsValue() {
		return o
	}
	if h, ok := parser.SwitchKey(o.Value.Flatten()); ok {
		if c, found := node.Cases[h]; found {
			match := true
			if c.Condition != nil {
				b, co := w.condition(c.Condition)
				if !co.IsValue() {
					return co
				}
				match = b
			}
			if match {
				return w.stmt(c.Body)
			}
		}
	}
	if node.Default != nil {
		return w.stmt(node.Default)
	}
	return unitOutcome
}

// loopBody runs one iteration. done is true when the loop must stop, with
// res the outcome to return.
func (w *walker) loopBody(body *ast.Block) (res Outcome, done bool) {
	o := w.block(body)
	switch o.Kind { //nolint:exhaustive // the rest go up.
	case OutValue, OutContinue:
		return unitOutcome, false
	case OutBreak:
		return unitOutcome, true
	}
	return o, true
}

func (w *walker) whileStmt(node *ast.While) Outcome {
	for {
		if node.Cond != nil {
			b, o := w.condition(node.Cond)
			if !o.IsValue() {
				return o
			}
			if !b {
				return unitOutcome
			}
		} else if err := w.incOperations(node.Pos); err != nil {
			// `loop {}` must still count.
			return failure(err)
		}
		if res, done := w.loopBody(node.Body); done {
			return res
		}
	}
}

func (w *walker) doStmt(node *ast.Do) Outcome {
	for {
		if res, done := w.loopBody(node.Body); done {
			return res
		}
		b, o := w.condition(node.Cond)
		if !o.IsValue() {
			return o
		}
		if b == node.Until {
			return unitOutcome
		}
	}
}

func (w *walker) forStmt(node *ast.For) Outcome {
	o := w.expr(node.Iterable)
	if !o.IsValue() {
		return o
	}
	iterable := o.Value.Flatten()
	it, ok := w.iterator(iterable)
	if !ok {
		return failure(newError(ErrFor, w.e.typeName(iterable), node.Iterable.Position()))
	}
	scopeLen := w.scope.Len()
	defer w.scope.Rewind(scopeLen)
	counter := -1
	if node.Counter != nil {
		w.scope.PushDynamic(node.Counter.Name, object.ReadWrite, object.Int(0))
		counter = w.scope.Len() - 1
	}
	w.scope.PushDynamic(node.Var.Name, object.ReadWrite, object.Unit)
	slot := w.scope.Len() - 1
	i := int64(0)
	res := unitOutcome
	for v := range it(iterable) {
		if counter >= 0 {
			*w.scope.GetMutByIndex(counter) = object.Int(i)
		}
		*w.scope.GetMutByIndex(slot) = v
		if err := w.incOperations(node.Pos); err != nil {
			res = failure(err)
			break
		}
		var done bool
		if res, done = w.loopBody(node.Body); done {
			break
		}
		i++
	}
	return res
}

// iterator finds the iterator of the value's type, searched like functions.
func (w *walker) iterator(v object.Dynamic) (IterFn, bool) {
	id := v.TypeID()
	for _, m := range w.lib {
		if it, ok := m.GetIter(id); ok {
			return it, true
		}
	}
	mods := w.e.globalModules
	if it, ok := mods[0].GetIter(id); ok {
		return it, true
	}
	for i := len(mods) - 1; i > 0; i-- {
		if it, ok := mods[i].GetQualifiedIter(id); ok {
			return it, true
		}
	}
	if it, ok := w.imports.GetIter(id); ok {
		return it, true
	}
	for _, name := range w.e.StaticModules() {
		if it, ok := w.e.subModules[name].GetQualifiedIter(id); ok {
			return it, true
		}
	}
	return nil, false
}

func (w *walker) tryCatch(node *ast.TryCatch) Outcome {
	o := w.block(node.Try)
	var err *EvalError
	switch o.Kind { //nolint:exhaustive // only errors are caught.
	case OutThrow, OutError:
		err = o.Err
	default:
		return o
	}
	if !err.Catchable() {
		return o
	}
	log.LogVf("Caught %v", err)
	scopeLen := w.scope.Len()
	defer w.scope.Rewind(scopeLen)
	if node.CatchVar != nil {
		w.scope.PushDynamic(node.CatchVar.Name, object.ReadWrite, w.catchValue(err))
	}
	res := w.block(node.Catch)
	if res.Kind == OutThrow && res.Err.Value.IsUnit() && res.Err.Kind == ErrRuntime {
		// `throw;` in a catch block rethrows the caught error.
		return Outcome{Kind: OutError, Err: err}
	}
	return res
}

// catchValue is what the catch variable sees: the thrown value, or a map
// describing the error.
func (w *walker) catchValue(err *EvalError) object.Dynamic {
	inner := err.Innermost()
	if inner.Kind == ErrRuntime && inner.Err == nil {
		return inner.Value.Clone()
	}
	return err.ToMap(w.state.Source)
}

func (w *walker) returnStmt(node *ast.Return) Outcome {
	v := object.Unit
	if node.Value != nil {
		o := w.expr(node.Value)
		if !o.IsValue() {
			return o
		}
		v = o.Value
	}
	if node.Throw {
		return Outcome{Kind: OutThrow, Err: RuntimeError(v.Flatten(), node.Pos)}
	}
	return Outcome{Kind: OutReturn, Value: v}
}

func (w *walker) importStmt(node *ast.Import) Outcome {
	o := w.expr(node.Path)
	if !o.IsValue() {
		return o
	}
	path, ok := o.Value.AsString()
	if !ok {
		return failure(TypeMismatch(object.IDString, w.e.typeName(o.Value), node.Path.Position()))
	}
	st := w.state
	if w.e.Limits.MaxModules > 0 && st.Modules >= w.e.Limits.MaxModules {
		return failure(newError(ErrTooManyModules, path, node.Pos))
	}
	m, err := w.resolveModule(path, node.Path.Position())
	if err != nil {
		return failure(err)
	}
	st.Modules++
	name := ""
	if node.Alias != nil {
		name = node.Alias.Name
	}
	m.BuildIndex()
	w.imports.Push(name, m)
	if m.ContainsIndexedGlobalFunctions() {
		st.PushCache()
	}
	log.LogVf("Imported %q as %q", path, name)
	return unitOutcome
}

func (w *walker) resolveModule(path string, pos token.Position) (*Module, *EvalError) {
	var resolvers ResolverChain
	if w.state.Resolver != nil {
		resolvers = append(resolvers, w.state.Resolver)
	}
	if w.e.resolver != nil {
		resolvers = append(resolvers, w.e.resolver)
	}
	m, err := resolvers.Resolve(w.e, w.state.Source, path, pos)
	if err != nil {
		ee := AsEvalError(err).FillPosition(pos)
		if ee.Kind == ErrModuleNotFound || ee.IsSystem() {
			return nil, ee
		}
		return nil, &EvalError{Kind: ErrInModule, Name: path, Inner: ee, Pos: pos}
	}
	return m, nil
}

// exportStmt adds the export aliases to existing variables.
func (w *walker) exportStmt(node *ast.Export) Outcome {
	for _, it := range node.Items {
		i, _, ok := w.scope.GetIndex(it.Name.Name)
		if !ok {
			return failure(newError(ErrVariableNotFound, it.Name.Name, it.Name.Pos))
		}
		w.scope.AddEntryAlias(i, it.Alias.Name)
	}
	return unitOutcome
}

// share turns a variable into a shared value, before a closure captures it.
func (w *walker) share(node *ast.Share) Outcome {
	i, _, ok := w.scope.GetIndex(node.Name)
	if !ok {
		// captured names not in scope are resolved when the closure runs.
		return unitOutcome
	}
	p := w.scope.GetMutByIndex(i)
	if !p.IsShared() {
		access := p.AccessMode()
		*p = p.IntoShared()
		p.SetAccessMode(access)
	}
	return unitOutcome
}

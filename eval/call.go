package eval

import (
	"fmt"
	"math/bits"
	"slices"
	"strings"

	"fortio.org/log"
	"grol.io/rhai/ast"
	"grol.io/rhai/object"
	"grol.io/rhai/parser"
	"grol.io/rhai/token"
)

// maxWildcardArgs bounds the arity for which `?` parameter permutations are
// searched when no exact native match exists.
const maxWildcardArgs = 6

// NativeCallContext is what native functions get to call back into the
// evaluation: function pointers, other functions, and where they were called from.
type NativeCallContext struct {
	w    *walker
	name string
	pos  token.Position
}

func (c *NativeCallContext) Engine() *Engine {
	return c.w.e
}

func (c *NativeCallContext) FnName() string {
	return c.name
}

// Source is the name of the running script, "" if none.
func (c *NativeCallContext) Source() string {
	return c.w.state.Source
}

func (c *NativeCallContext) Position() token.Position {
	return c.pos
}

// CallFnPtr calls the function the pointer refers to, curried arguments first.
// The arguments are cloned.
func (c *NativeCallContext) CallFnPtr(fp *object.FnPtr, args ...object.Dynamic) (object.Dynamic, error) {
	owned := make([]object.Dynamic, len(args))
	for i, a := range args {
		owned[i] = a.Clone()
	}
	v, err := c.w.callFnPtr(fp, nil, owned, c.pos)
	if err != nil {
		return object.Unit, err
	}
	return v, nil
}

// CallFn calls a function by name, resolved like a script call would.
func (c *NativeCallContext) CallFn(name string, args ...object.Dynamic) (object.Dynamic, error) {
	fp := object.FnPtr{Name: name}
	return c.CallFnPtr(&fp, args...)
}

// signature is the display form of a call in "not found" errors: `foo (i64, string)`.
func (w *walker) signature(name string, args []*object.Dynamic) string {
	types := make([]string, len(args))
	for i, a := range args {
		types[i] = w.e.typeName(*a)
	}
	return name + " (" + strings.Join(types, ", ") + ")"
}

// lookupFn searches the function tables for hash: the script library, the
// engine's global modules (its own functions first, then the most recently
// registered), the imports and the global functions of static modules.
func (w *walker) lookupFn(hash uint64) *FuncInfo {
	for _, m := range w.lib {
		if f, ok := m.GetFn(hash); ok {
			return f
		}
	}
	mods := w.e.globalModules
	if f, ok := mods[0].GetFn(hash); ok {
		return f
	}
	for i := len(mods) - 1; i > 0; i-- {
		if f, ok := mods[i].GetFn(hash); ok {
			return f
		}
		if f, ok := mods[i].GetQualifiedFn(hash); ok {
			return f
		}
	}
	if f, ok := w.imports.GetFn(hash); ok {
		return f
	}
	for _, name := range w.e.StaticModules() {
		if f, ok := w.e.subModules[name].GetQualifiedFn(hash); ok {
			return f
		}
	}
	return nil
}

// resolveFn finds the function for a call: the script function by name and
// arity, then the native by argument types, exact then with `?` wildcards,
// then, when allowed, the built in operators. Results are cached, misses
// included. nil when nothing matches.
func (w *walker) resolveFn(name string, hashes ast.FnHashes, args []*object.Dynamic, builtins bool) *resolved {
	types := make([]string, len(args))
	for i, a := range args {
		types[i] = a.TypeID()
	}
	native := ast.CombineHashes(hashes.Native, ast.ParamsHash(types))
	key := native ^ bits.RotateLeft64(hashes.Script, 1)
	cache := w.state.Cache()
	if r, ok := cache.get(key); ok {
		if r.fn == nil && r.builtin == nil {
			return nil
		}
		return r
	}
	r := w.resolveUncached(name, hashes, native, types, args, builtins)
	if r == nil {
		cache.set(key, &resolved{})
		return nil
	}
	cache.set(key, r)
	return r
}

func (w *walker) resolveUncached(name string, hashes ast.FnHashes, native uint64, types []string,
	args []*object.Dynamic, builtins bool,
) *resolved {
	if hashes.Script != 0 {
		if f := w.lookupFn(hashes.Script); f != nil {
			return &resolved{fn: f}
		}
	}
	if f := w.lookupFn(native); f != nil {
		return &resolved{fn: f}
	}
	for h := range wildcardHashes(hashes.Native, types) {
		if f := w.lookupFn(h); f != nil {
			return &resolved{fn: f}
		}
	}
	if builtins {
		if b := builtinOp(name, args); b != nil {
			return &resolved{builtin: b}
		}
	}
	log.Debugf("resolve %s: no match", name)
	return nil
}

// wildcardHashes yields the native hashes of types with every combination
// of parameters replaced by `?`.
func wildcardHashes(base uint64, types []string) func(yield func(uint64) bool) {
	return func(yield func(uint64) bool) {
		n := len(types)
		if n == 0 || n > maxWildcardArgs {
			return
		}
		wild := slices.Clone(types)
		for mask := 1; mask < 1<<n; mask++ {
			for i := range n {
				if mask&(1<<i) != 0 {
					wild[i] = object.IDAny
				} else {
					wild[i] = types[i]
				}
			}
			if !yield(ast.CombineHashes(base, ast.ParamsHash(wild))) {
				return
			}
		}
	}
}

// invoke calls a resolved function. this is bound for script functions
// called as methods, isRef means args[0] is a variable's storage.
func (w *walker) invoke(r *resolved, this *object.Dynamic, args []*object.Dynamic, isRef, capture bool,
	pos token.Position,
) (object.Dynamic, *EvalError) {
	switch {
	case r.builtin != nil:
		vals := make([]object.Dynamic, len(args))
		for i, a := range args {
			vals[i] = *a
		}
		v, err := r.builtin(vals, pos)
		if err != nil {
			return object.Unit, err.FillPosition(pos)
		}
		return v, nil
	case r.fn.IsScript():
		return w.callScriptFn(r.fn, this, args, isRef, capture, pos)
	default:
		return w.callNative(r.fn, args, pos)
	}
}

func (w *walker) callResolved(r *resolved, args []*object.Dynamic, pos token.Position) (object.Dynamic, *EvalError) {
	return w.invoke(r, nil, args, false, false, pos)
}

func (w *walker) callNative(f *FuncInfo, args []*object.Dynamic, pos token.Position) (object.Dynamic, *EvalError) {
	ctx := &NativeCallContext{w: w, name: f.Name, pos: pos}
	v, err := f.Native(ctx, args)
	if err != nil {
		return object.Unit, AsEvalError(err).FillPosition(pos)
	}
	return v, w.checkDataSize(v, pos)
}

// callNamed calls the native function name with args, found is false when
// there is none for these argument types.
func (w *walker) callNamed(name string, pos token.Position, args ...*object.Dynamic) (object.Dynamic, bool, *EvalError) {
	h := ast.FnHash(name, len(args))
	r := w.resolveFn(name, ast.FnHashes{Native: h}, args, false)
	if r == nil {
		return object.Unit, false, nil
	}
	v, err := w.invoke(r, nil, args, false, false, pos)
	return v, true, err
}

// callScriptFn runs a script function in a new scope (the caller's one for
// fn!() calls), with its own library and imports when it comes from a module.
func (w *walker) callScriptFn(f *FuncInfo, this *object.Dynamic, args []*object.Dynamic, isRef, capture bool,
	pos token.Position,
) (object.Dynamic, *EvalError) {
	st := w.state
	if maxLevels := w.e.Limits.MaxCallLevels; maxLevels > 0 && st.CallLevel() >= maxLevels {
		return object.Unit, newError(ErrStackOverflow, f.Name, pos)
	}
	if err := w.incOperations(pos); err != nil {
		return object.Unit, err
	}
	sf := f.Script
	def := sf.Def
	fw := *w
	fw.this = this
	fw.inFn = true
	scopeLen := w.scope.Len()
	if !capture {
		fw.scope = object.NewScope()
	}
	for i, name := range def.Params {
		v := *args[i]
		if i == 0 && isRef {
			v = v.Clone()
		}
		fw.scope.PushDynamic(name, object.ReadWrite, v)
	}
	caches, importsLen := st.NumCaches(), w.imports.Len()
	source := ""
	if sf.Lib != nil {
		fw.lib = []*Module{sf.Lib}
		source = sf.Lib.ID
		st.PushCache()
	}
	for _, im := range sf.Imports {
		w.imports.Push(im.name, im.module)
	}
	search := st.AlwaysSearchScope
	st.AlwaysSearchScope = false
	st.pushCall(def.Name)
	o := fw.block(def.Body)
	st.popCall()
	st.AlwaysSearchScope = search
	w.imports.Truncate(importsLen)
	st.RewindCaches(caches)
	if capture {
		w.scope.Rewind(scopeLen)
	}
	if o.Kind == OutValue || o.Kind == OutReturn {
		return o.Value.Flatten(), nil
	}
	_, err := o.AsError()
	if err.IsSystem() {
		return object.Unit, err
	}
	return object.Unit, &EvalError{Kind: ErrInFunctionCall, Name: def.Name, Other: source, Inner: err, Pos: pos}
}

// callFnPtr calls through a function pointer, curried arguments first.
func (w *walker) callFnPtr(fp *object.FnPtr, this *object.Dynamic, extra []object.Dynamic, pos token.Position) (object.Dynamic, *EvalError) {
	args := make([]object.Dynamic, 0, len(fp.Curry)+len(extra))
	for _, c := range fp.Curry {
		args = append(args, c.Clone())
	}
	args = append(args, extra...)
	ptrs := pointers(args)
	h := ast.FnHash(fp.Name, len(args))
	r := w.resolveFn(fp.Name, ast.FnHashes{Script: h, Native: h}, ptrs, false)
	if r == nil {
		return object.Unit, newError(ErrFunctionNotFound, w.signature(fp.Name, ptrs), pos)
	}
	return w.invoke(r, this, ptrs, false, false, pos)
}

func pointers(args []object.Dynamic) []*object.Dynamic {
	ptrs := make([]*object.Dynamic, len(args))
	for i := range args {
		ptrs[i] = &args[i]
	}
	return ptrs
}

// checkDataRace fails on shared arguments already locked by the chain
// being evaluated, from index from on.
func (w *walker) checkDataRace(name string, args []*object.Dynamic, from int, pos token.Position) *EvalError {
	for i := from; i < len(args); i++ {
		if args[i].IsShared() && args[i].IsLocked() {
			return newError(ErrDataRace, fmt.Sprintf("argument #%d of function '%s'", i+1, name), pos)
		}
	}
	return nil
}

func (w *walker) fnCall(node *ast.FnCall) Outcome {
	if node.Namespace == nil {
		if o, ok := w.keywordCall(node); ok {
			return o
		}
	}
	n := len(node.Args)
	first, byRef := node.Args, false
	if n > 0 && node.Namespace == nil && !node.Operator {
		if v, ok := node.Args[0].(*ast.Variable); ok && v.Namespace == nil {
			first, byRef = node.Args[1:], true
		}
	}
	args := make([]object.Dynamic, n)
	offset := n - len(first)
	for i, a := range first {
		o := w.expr(a)
		if !o.IsValue() {
			return o
		}
		args[offset+i] = o.Value
	}
	ptrs := pointers(args)
	isRef := false
	if byRef {
		v := node.Args[0].(*ast.Variable)
		if err := w.incOperations(v.Pos); err != nil {
			return failure(err)
		}
		p, val, err := w.varRef(v)
		switch {
		case err != nil:
			// not a plain variable after all: function names give pointers.
			val, err = w.variable(v)
			if err != nil {
				return failure(err)
			}
			args[0] = val
		case p == nil:
			args[0] = val
		case p.IsReadOnly():
			args[0] = p.Clone()
		default:
			ptrs[0], isRef = p, true
		}
	}
	from := 0
	if isRef {
		from = 1
	}
	if err := w.checkDataRace(node.Name, ptrs, from, node.Pos); err != nil {
		return failure(err)
	}
	if node.Namespace != nil {
		return result(w.callQualified(node, ptrs))
	}
	r := w.resolveFn(node.Name, node.Hashes, ptrs, node.Operator || node.Name == "contains")
	if r == nil {
		return result(w.callVarFnPtr(node, ptrs))
	}
	v, err := w.invoke(r, nil, ptrs, isRef, node.Capture, node.Pos)
	if err == nil && isRef {
		err = w.checkDataSize(*ptrs[0], node.Pos)
	}
	return result(v, err)
}

// callVarFnPtr is the last resort of unknown functions: a variable with the
// function's name holding a function pointer.
func (w *walker) callVarFnPtr(node *ast.FnCall, args []*object.Dynamic) (object.Dynamic, *EvalError) {
	notFound := newError(ErrFunctionNotFound, w.signature(node.Name, args), node.Pos)
	i, _, ok := w.scope.GetIndex(node.Name)
	if !ok {
		return object.Unit, notFound
	}
	fp, ok := w.scope.GetMutByIndex(i).AsFnPtr()
	if !ok {
		return object.Unit, notFound
	}
	vals := make([]object.Dynamic, len(args))
	for i, a := range args {
		vals[i] = a.Clone()
	}
	return w.callFnPtr(fp.Clone(), nil, vals, node.Pos)
}

// callQualified calls m::f(args): searched in the module's index only.
func (w *walker) callQualified(node *ast.FnCall, args []*object.Dynamic) (object.Dynamic, *EvalError) {
	m, err := w.findModule(node.Namespace)
	if err != nil {
		return object.Unit, err
	}
	if f, ok := m.GetQualifiedFn(node.Hashes.Script); ok && f.IsScript() {
		return w.callScriptFn(f, nil, args, false, false, node.Pos)
	}
	types := make([]string, len(args))
	for i, a := range args {
		types[i] = a.TypeID()
	}
	f, ok := m.GetQualifiedFn(ast.CombineHashes(node.Hashes.Native, ast.ParamsHash(types)))
	if !ok {
		for h := range wildcardHashes(node.Hashes.Native, types) {
			if f, ok = m.GetQualifiedFn(h); ok {
				break
			}
		}
	}
	if !ok {
		return object.Unit, newError(ErrFunctionNotFound, node.Namespace.String()+w.signature(node.Name, args), node.Pos)
	}
	return w.callNative(f, args, node.Pos)
}

// callMethod calls recv.name(args): the receiver is passed by reference,
// as `this` to script functions. changed reports a possible modification.
func (w *walker) callMethod(call *ast.FnCall, t *Target, args []object.Dynamic, name string) (object.Dynamic, bool, *EvalError) {
	recv := t.Value()
	pos := call.Pos
	switch call.Name {
	case token.KeywordTypeOf:
		if len(args) == 0 {
			return object.String(w.e.typeName(*recv)), false, nil
		}
	case token.KeywordIsShared:
		if len(args) == 0 {
			return object.Bool(t.kind == targetLock || recv.IsShared()), false, nil
		}
	}
	if fp, ok := recv.AsFnPtr(); ok {
		switch call.Name {
		case token.KeywordCall:
			v, err := w.callFnPtr(fp, nil, args, pos)
			return v, false, err
		case token.KeywordCurry:
			return object.NewFnPtrValue(fp.AddCurry(args...)), false, nil
		}
	}
	if m, ok := recv.AsMap(); ok {
		// a function pointer property is a method of the map.
		if p := m.Ptr(call.Name); p != nil {
			if fp, ok := p.AsFnPtr(); ok {
				v, err := w.callFnPtr(fp.Clone(), recv, args, pos)
				return v, !t.IsReadOnly(), err
			}
		}
	}
	ptrs := make([]*object.Dynamic, 0, len(args)+1)
	ptrs = append(ptrs, recv)
	for i := range args {
		ptrs = append(ptrs, &args[i])
	}
	if err := w.checkDataRace(call.Name, ptrs, 1, pos); err != nil {
		return object.Unit, false, err
	}
	r := w.resolveFn(call.Name, call.Hashes, ptrs, false)
	if r == nil {
		return object.Unit, false, newError(ErrFunctionNotFound, w.signature(call.Name, ptrs), pos)
	}
	if r.fn.IsScript() {
		v, err := w.callScriptFn(r.fn, recv, ptrs[1:], false, false, pos)
		return v, !t.IsReadOnly(), err
	}
	if !r.fn.Pure && t.IsReadOnly() {
		return object.Unit, false, newError(ErrAssignmentToConstant, name, pos)
	}
	v, err := w.callNative(r.fn, ptrs, pos)
	if err != nil {
		return object.Unit, false, err
	}
	if !r.fn.Pure {
		if err := w.checkDataSize(*recv, pos); err != nil {
			return object.Unit, false, err
		}
	}
	return v, !r.fn.Pure, nil
}

// keywordCall handles the functions with special evaluation rules. ok is
// false for other names or unexpected arities, resolved as normal calls.
func (w *walker) keywordCall(node *ast.FnCall) (Outcome, bool) {
	n := len(node.Args)
	switch node.Name {
	case token.KeywordFnPtr:
		if n != 1 {
			return unitOutcome, false
		}
		return w.fnPtrCall(node), true
	case token.KeywordCall, token.KeywordCurry:
		if n < 1 {
			return unitOutcome, false
		}
		return w.callOrCurry(node), true
	case token.KeywordIsShared:
		if n != 1 {
			return unitOutcome, false
		}
		o := w.expr(node.Args[0])
		if !o.IsValue() {
			return o, true
		}
		return value(object.Bool(o.Value.IsShared())), true
	case token.KeywordIsDefVar:
		if n != 1 {
			return unitOutcome, false
		}
		s, o := w.stringArg(node.Args[0])
		if !o.IsValue() {
			return o, true
		}
		return value(object.Bool(w.scope.Contains(s))), true
	case token.KeywordIsDefFn:
		if n != 2 {
			return unitOutcome, false
		}
		return w.isDefFn(node), true
	case token.KeywordTypeOf:
		if n != 1 {
			return unitOutcome, false
		}
		o := w.expr(node.Args[0])
		if !o.IsValue() {
			return o, true
		}
		return value(object.String(w.e.typeName(o.Value))), true
	case token.KeywordPrint, token.KeywordDebug:
		if n > 1 {
			return unitOutcome, false
		}
		return w.printCall(node), true
	case token.KeywordEval:
		if n != 1 {
			return unitOutcome, false
		}
		s, o := w.stringArg(node.Args[0])
		if !o.IsValue() {
			return o, true
		}
		return w.evalString(s, node.Pos), true
	}
	return unitOutcome, false
}

func (w *walker) stringArg(x ast.Expr) (string, Outcome) {
	o := w.expr(x)
	if !o.IsValue() {
		return "", o
	}
	s, ok := o.Value.AsString()
	if !ok {
		return "", failure(TypeMismatch(object.IDString, w.e.typeName(o.Value), x.Position()))
	}
	return s, o
}

func (w *walker) fnPtrCall(node *ast.FnCall) Outcome {
	s, o := w.stringArg(node.Args[0])
	if !o.IsValue() {
		return o
	}
	fp, ok := object.NewFnPtr(s)
	if !ok {
		return failure(newError(ErrFunctionNotFound, s, node.Args[0].Position()))
	}
	return value(object.NewFnPtrValue(fp))
}

// callOrCurry is call(f, args...) and curry(f, args...). Arguments stay
// shared: closures capture through curry.
func (w *walker) callOrCurry(node *ast.FnCall) Outcome {
	o := w.expr(node.Args[0])
	if !o.IsValue() {
		return o
	}
	fp, ok := o.Value.AsFnPtr()
	if !ok {
		return failure(TypeMismatch(object.IDFnPtr, w.e.typeName(o.Value), node.Args[0].Position()))
	}
	args := make([]object.Dynamic, 0, len(node.Args)-1)
	for _, a := range node.Args[1:] {
		ao := w.expr(a)
		if !ao.IsValue() {
			return ao
		}
		args = append(args, ao.Value)
	}
	if node.Name == token.KeywordCurry {
		return value(object.NewFnPtrValue(fp.AddCurry(args...)))
	}
	return result(w.callFnPtr(fp, nil, args, node.Pos))
}

func (w *walker) isDefFn(node *ast.FnCall) Outcome {
	name, o := w.stringArg(node.Args[0])
	if !o.IsValue() {
		return o
	}
	o = w.expr(node.Args[1])
	if !o.IsValue() {
		return o
	}
	arity, ok := o.Value.AsInt()
	if !ok {
		return failure(TypeMismatch(object.IDInt, w.e.typeName(o.Value), node.Args[1].Position()))
	}
	if arity < 0 {
		return value(object.False)
	}
	f := w.lookupFn(ast.FnHash(name, int(arity)))
	return value(object.Bool(f != nil && f.IsScript()))
}

func (w *walker) printCall(node *ast.FnCall) Outcome {
	v := object.Unit
	if len(node.Args) == 1 {
		o := w.expr(node.Args[0])
		if !o.IsValue() {
			return o
		}
		v = o.Value
	}
	debug := node.Name == token.KeywordDebug
	text, err := w.display(v, debug, node.Pos)
	if err != nil {
		return failure(err)
	}
	switch {
	case debug && w.e.OnDebug != nil:
		w.e.OnDebug(text, w.state.Source, node.Pos)
	case !debug && w.e.OnPrint != nil:
		w.e.OnPrint(text)
	}
	return unitOutcome
}

// evalString runs script in the current scope. Variables it defines stay,
// which makes parse time offsets unreliable from then on.
func (w *walker) evalString(script string, pos token.Position) Outcome {
	tree, err := parser.Parse(script, w.e.parserOptions())
	if err != nil {
		return failure(&EvalError{Kind: ErrInFunctionCall, Name: token.KeywordEval, Inner: AsEvalError(err), Pos: pos})
	}
	ew := *w
	st := w.state
	caches := st.NumCaches()
	if len(tree.Functions) > 0 {
		ew.lib = append([]*Module{scriptLib(tree, "")}, w.lib...)
		st.PushCache()
	}
	scopeLen := w.scope.Len()
	o := ew.stmts(tree.Statements)
	st.RewindCaches(caches)
	if w.scope.Len() != scopeLen {
		st.AlwaysSearchScope = true
	}
	v, ee := o.AsError()
	if ee != nil {
		if ee.IsSystem() {
			return failure(ee)
		}
		return failure(&EvalError{Kind: ErrInFunctionCall, Name: token.KeywordEval, Inner: ee, Pos: pos})
	}
	return value(v)
}

// scriptLib makes the function library of a parsed script.
func scriptLib(tree *ast.AST, id string) *Module {
	m := NewModule()
	m.ID = id
	for _, def := range tree.Functions {
		m.SetScriptFn(&ScriptFn{Def: def})
	}
	return m
}

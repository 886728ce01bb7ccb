package eval

import (
	"strings"

	"grol.io/rhai/ast"
	"grol.io/rhai/object"
	"grol.io/rhai/token"
)

func (w *walker) expr(x ast.Expr) Outcome {
	if err := w.incOperations(x.Position()); err != nil {
		return failure(err)
	}
	switch node := x.(type) {
	case *ast.Unit:
		return unitOutcome
	case *ast.BoolLit:
		return value(object.Bool(node.Val))
	case *ast.IntLit:
		return value(object.Int(node.Val))
	case *ast.FloatLit:
		return value(object.Float(node.Val))
	case *ast.CharLit:
		return value(object.Char(node.Val))
	case *ast.StringLit:
		return value(object.String(node.Val))
	case *ast.InterpolatedString:
		return w.interpolated(node)
	case *ast.ArrayLit:
		return w.arrayLit(node)
	case *ast.MapLit:
		return w.mapLit(node)
	case *ast.Variable:
		if node.Namespace != nil {
			return result(w.qualifiedVar(node))
		}
		return result(w.variable(node))
	case *ast.FnPtrLit:
		return value(object.NewFnPtrValue(object.FnPtr{Name: node.Name}))
	case *ast.StmtExpr:
		return w.block(node.Block)
	case *ast.FnCall:
		return w.fnCall(node)
	case *ast.Dot, *ast.Index:
		return w.chain(x, nil)
	case *ast.And:
		return w.logical(node.Lhs, node.Rhs, false)
	case *ast.Or:
		return w.logical(node.Lhs, node.Rhs, true)
	case *ast.Custom:
		return w.custom(node)
	}
	return failure(&EvalError{Kind: ErrSystem, Name: "unexpected expression " + x.String(), Pos: x.Position()})
}

// logical is && (stop on false) and || (stop on true).
func (w *walker) logical(lhs, rhs ast.Expr, stopOn bool) Outcome {
	b, o := w.condition(lhs)
	if !o.IsValue() {
		return o
	}
	if b == stopOn {
		return value(object.Bool(b))
	}
	b, o = w.condition(rhs)
	if !o.IsValue() {
		return o
	}
	return value(object.Bool(b))
}

func (w *walker) interpolated(node *ast.InterpolatedString) Outcome {
	var sb strings.Builder
	for _, p := range node.Parts {
		if lit, ok := p.(*ast.StringLit); ok {
			sb.WriteString(lit.Val)
			continue
		}
		o := w.expr(p)
		if !o.IsValue() {
			return o
		}
		s, err := w.display(o.Value, false, p.Position())
		if err != nil {
			return failure(err)
		}
		sb.WriteString(s)
	}
	res := object.String(sb.String())
	return result(res, w.checkDataSize(res, node.Pos))
}

func (w *walker) arrayLit(node *ast.ArrayLit) Outcome {
	arr := object.MakeArray(len(node.Elements))
	for _, el := range node.Elements {
		o := w.expr(el)
		if !o.IsValue() {
			return o
		}
		arr = append(arr, o.Value.Flatten())
	}
	res := object.NewArray(arr)
	return result(res, w.checkDataSize(res, node.Pos))
}

func (w *walker) mapLit(node *ast.MapLit) Outcome {
	m := object.NewMap()
	for i, k := range node.Keys {
		o := w.expr(node.Values[i])
		if !o.IsValue() {
			return o
		}
		m.Set(k.Name, o.Value.Flatten())
	}
	res := object.NewMapValue(m)
	return result(res, w.checkDataSize(res, node.Pos))
}

// display is the text print and interpolation use. Variants can provide
// it with a to_string (to_debug) function.
func (w *walker) display(v object.Dynamic, debug bool, pos token.Position) (string, *EvalError) {
	if v.Type() == object.VARIANT {
		name := "to_string"
		if debug {
			name = "to_debug"
		}
		h := ast.FnHash(name, 1)
		args := []*object.Dynamic{&v}
		if r := w.resolveFn(name, ast.FnHashes{Native: h}, args, false); r != nil && r.fn != nil {
			res, err := w.callNative(r.fn, args, pos)
			if err != nil {
				return "", err
			}
			return res.Inspect(), nil
		}
	}
	if debug {
		return v.Debug(), nil
	}
	return v.Inspect(), nil
}

// varRef returns the storage of an unqualified variable, the parse time
// offset used when it can be trusted. Values supplied by the variable
// resolver have no storage: nil and the (read only) value are returned.
func (w *walker) varRef(node *ast.Variable) (*object.Dynamic, object.Dynamic, *EvalError) {
	if node.Name == token.KeywordThis {
		if w.this == nil {
			return nil, object.Unit, newError(ErrUnboundThis, "", node.Pos)
		}
		return w.this, object.Unit, nil
	}
	trusted := node.Index > 0 && !w.state.AlwaysSearchScope
	if trusted {
		if i := w.scope.Len() - node.Index; i >= 0 && w.scope.NameAt(i) == node.Name {
			return w.scope.GetMutByIndex(i), object.Unit, nil
		}
	}
	if w.e.OnVar != nil {
		v, ok, err := w.e.OnVar(node.Name, node.Index, w.evalContext())
		if err != nil {
			return nil, object.Unit, AsEvalError(err).FillPosition(node.Pos)
		}
		if ok {
			v.SetAccessMode(object.ReadOnly)
			return nil, v, nil
		}
	}
	if i, _, ok := w.scope.GetIndex(node.Name); ok {
		return w.scope.GetMutByIndex(i), object.Unit, nil
	}
	return nil, object.Unit, newError(ErrVariableNotFound, node.Name, node.Pos)
}

func (w *walker) variable(node *ast.Variable) (object.Dynamic, *EvalError) {
	p, v, err := w.varRef(node)
	if err != nil {
		if err.Kind == ErrVariableNotFound && w.hasScriptFn(node.Name) {
			// a function name used as a value is a pointer to it.
			return object.NewFnPtrValue(object.FnPtr{Name: node.Name}), nil
		}
		return object.Unit, err
	}
	if p == nil {
		return v, nil
	}
	return p.Clone(), nil
}

// hasScriptFn is true if the library has a function named name, any arity.
func (w *walker) hasScriptFn(name string) bool {
	for _, m := range w.lib {
		for f := range m.ScriptFns() {
			if f.Name == name {
				return true
			}
		}
	}
	return false
}

// findModule resolves the root of a namespace: imports, the global
// constants, then the engine's static modules.
func (w *walker) findModule(ns *ast.Namespace) (*Module, *EvalError) {
	root := ns.Root()
	im := w.imports
	if ns.Index > 0 && !w.state.AlwaysSearchScope {
		if i := im.Len() - ns.Index; i >= 0 && im.NameAt(i) == root.Name {
			return im.Get(i), nil
		}
	}
	if i, ok := im.Find(root.Name); ok {
		return im.Get(i), nil
	}
	if root.Name == token.KeywordGlobal && w.globals != nil {
		return w.globals.BuildIndex(), nil
	}
	if m, ok := w.e.subModules[root.Name]; ok {
		return m, nil
	}
	return nil, ModuleNotFound(root.Name, root.Pos)
}

// qualifiedVar reads a module variable, always a constant.
func (w *walker) qualifiedVar(node *ast.Variable) (object.Dynamic, *EvalError) {
	m, err := w.findModule(node.Namespace)
	if err != nil {
		return object.Unit, err
	}
	v, ok := m.GetQualifiedVar(node.Hash)
	if !ok {
		return object.Unit, newError(ErrVariableNotFound, node.String(), node.Pos)
	}
	v = v.Clone()
	v.SetAccessMode(object.ReadOnly)
	return v, nil
}

// assignment is `x = v`, `x op= v` and the chain forms.
func (w *walker) assignment(node *ast.Assignment) Outcome {
	o := w.expr(node.Rhs)
	if !o.IsValue() {
		return o
	}
	as := &chainAssign{op: node.Op, value: o.Value.Flatten(), pos: node.Pos}
	switch lhs := node.Lhs.(type) {
	case *ast.Variable:
		return result(object.Unit, w.assignVar(lhs, as))
	case *ast.Dot, *ast.Index:
		o = w.chain(lhs, as)
		if !o.IsValue() {
			return o
		}
		return unitOutcome
	}
	return failure(&EvalError{Kind: ErrSystem, Name: "cannot assign to " + node.Lhs.String(), Pos: node.Pos})
}

func (w *walker) assignVar(node *ast.Variable, as *chainAssign) *EvalError {
	if node.Namespace != nil {
		return newError(ErrAssignmentToConstant, node.String(), node.Pos)
	}
	p, _, err := w.varRef(node)
	if err != nil {
		return err
	}
	if p == nil || p.IsReadOnly() {
		return newError(ErrAssignmentToConstant, node.Name, node.Pos)
	}
	t, err := refTarget(p, node.Name, node.Pos)
	if err != nil {
		return err
	}
	defer t.Release()
	if err := w.applyAssign(t.Value(), as, node.Name); err != nil {
		return err
	}
	return w.checkDataSize(*t.Value(), node.Pos)
}

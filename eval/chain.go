package eval

import (
	"grol.io/rhai/ast"
	"grol.io/rhai/object"
	"grol.io/rhai/token"
)

type linkKind uint8

const (
	linkIndex  linkKind = iota // [expr]
	linkProp                   // .name
	linkMethod                 // .name(args)
)

// link is one step of a flattened dot/index chain, with the values the
// pre-pass computed for it.
type link struct {
	kind linkKind
	expr ast.Expr
	prop *ast.Property
	call *ast.FnCall
	pos  token.Position

	idx  object.Dynamic   // linkIndex.
	args []object.Dynamic // linkMethod.
}

// chainAssign is the assignment done at the end of a chain.
type chainAssign struct {
	op    *ast.OpAssign // nil for `=`.
	value object.Dynamic
	pos   token.Position
}

// flattenChain turns the right nested Dot/Index tree into its root and the
// links in source order.
func flattenChain(x ast.Expr) (ast.Expr, []link) {
	var links []link
	leaf := func(e ast.Expr, dot bool) {
		switch {
		case !dot:
			links = append(links, link{kind: linkIndex, expr: e, pos: e.Position()})
		case isProp(e):
			links = append(links, link{kind: linkProp, prop: e.(*ast.Property), pos: e.Position()})
		default:
			call, _ := e.(*ast.FnCall)
			links = append(links, link{kind: linkMethod, call: call, pos: e.Position()})
		}
	}
	var rest func(e ast.Expr, dot bool)
	rest = func(e ast.Expr, dot bool) {
		switch n := e.(type) {
		case *ast.Dot:
			leaf(n.Lhs, dot)
			rest(n.Rhs, true)
		case *ast.Index:
			leaf(n.Lhs, dot)
			if n.Terminate {
				leaf(n.Rhs, false)
				return
			}
			rest(n.Rhs, false)
		default:
			leaf(e, dot)
		}
	}
	switch n := x.(type) {
	case *ast.Dot:
		rest(n.Rhs, true)
		return n.Lhs, links
	case *ast.Index:
		if n.Terminate {
			leaf(n.Rhs, false)
		} else {
			rest(n.Rhs, false)
		}
		return n.Lhs, links
	}
	return x, nil
}

func isProp(e ast.Expr) bool {
	_, ok := e.(*ast.Property)
	return ok
}

// chain evaluates a dot/index chain, assigning at its end when as is set.
// Index values and method arguments are evaluated first, left to right,
// then the root, then the links are walked.
func (w *walker) chain(x ast.Expr, as *chainAssign) Outcome {
	root, links := flattenChain(x)
	for i := range links {
		l := &links[i]
		switch l.kind {
		case linkIndex:
			o := w.expr(l.expr)
			if !o.IsValue() {
				return o
			}
			l.idx = o.Value.Flatten()
		case linkMethod:
			if l.call == nil {
				return failure(&EvalError{Kind: ErrSystem, Name: "invalid chain link", Pos: l.pos})
			}
			l.args = make([]object.Dynamic, 0, len(l.call.Args))
			for _, a := range l.call.Args {
				o := w.expr(a)
				if !o.IsValue() {
					return o
				}
				l.args = append(l.args, o.Value)
			}
		case linkProp:
		}
	}
	t, name, o := w.chainRoot(root)
	if !o.IsValue() {
		return o
	}
	defer t.Release()
	res, _, err := w.walk(t, name, links, as)
	if err != nil {
		return failure(err)
	}
	if as != nil {
		return result(object.Unit, w.checkDataSize(*t.Value(), as.pos))
	}
	return value(res)
}

// chainRoot makes the target the chain starts from: the variable's storage
// or a temporary value. name is used in constant errors.
func (w *walker) chainRoot(root ast.Expr) (*Target, string, Outcome) {
	node, ok := root.(*ast.Variable)
	if !ok {
		o := w.expr(root)
		if !o.IsValue() {
			return nil, "", o
		}
		return tempTarget(o.Value), "", o
	}
	if node.Namespace != nil {
		v, err := w.qualifiedVar(node)
		if err != nil {
			return nil, "", failure(err)
		}
		return tempTarget(v), node.String(), unitOutcome
	}
	if err := w.incOperations(node.Pos); err != nil {
		return nil, "", failure(err)
	}
	p, v, err := w.varRef(node)
	if err != nil {
		return nil, "", failure(err)
	}
	if p == nil {
		return tempTarget(v), node.Name, unitOutcome
	}
	t, err := refTarget(p, node.Name, node.Pos)
	if err != nil {
		return nil, "", failure(err)
	}
	return t, node.Name, unitOutcome
}

// walk applies links to t. It returns the value at the end of the chain
// (unit for assignments) and whether t's value was changed, for the caller
// to write it back.
func (w *walker) walk(t *Target, name string, links []link, as *chainAssign) (object.Dynamic, bool, *EvalError) {
	if len(links) == 0 {
		return t.Get(), false, nil
	}
	l := &links[0]
	switch l.kind {
	case linkMethod:
		return w.walkMethod(t, name, links, as)
	case linkProp:
		if t.Value().Type() == object.MAP {
			return w.walkIndex(t, name, links, object.String(l.prop.Name), as)
		}
		return w.walkAccessor(t, name, links, as)
	default:
		return w.walkIndex(t, name, links, l.idx, as)
	}
}

// walkIndex handles [idx] on the built in indexable types and, for the
// others, through the registered indexers.
func (w *walker) walkIndex(t *Target, name string, links []link, idx object.Dynamic, as *chainAssign) (object.Dynamic, bool, *EvalError) {
	l := &links[0]
	last := len(links) == 1
	child, err := indexedMut(t.Value(), idx, last && as != nil, l.pos)
	if err != nil {
		if err.Kind != ErrIndexingType {
			return object.Unit, false, err
		}
		return w.walkIndexer(t, name, links, idx, as, err)
	}
	defer child.Release()
	if last && as == nil {
		return child.Get(), false, nil
	}
	if last {
		if child.IsReadOnly() {
			return object.Unit, false, newError(ErrAssignmentToConstant, name, as.pos)
		}
		if err := w.applyAssign(child.Value(), as, name); err != nil {
			return object.Unit, false, err
		}
		return object.Unit, true, child.Propagate(l.pos)
	}
	res, changed, err := w.walk(child, name, links[1:], as)
	if err == nil && changed {
		err = child.Propagate(l.pos)
	}
	return res, changed, err
}

// walkIndexer indexes types without built in indexing with index$get$ and
// index$set$. orig is reported when there is no indexer at all.
func (w *walker) walkIndexer(t *Target, name string, links []link, idx object.Dynamic, as *chainAssign,
	orig *EvalError,
) (object.Dynamic, bool, *EvalError) {
	l := &links[0]
	last := len(links) == 1
	if last && as != nil && as.op == nil {
		if t.IsReadOnly() {
			return object.Unit, false, newError(ErrAssignmentToConstant, name, as.pos)
		}
		v := as.value
		_, found, err := w.callNamed(IndexerSet, l.pos, t.Value(), &idx, &v)
		if !found {
			return object.Unit, false, orig
		}
		return object.Unit, err == nil, err
	}
	cur, found, err := w.callNamed(IndexerGet, l.pos, t.Value(), &idx)
	if !found {
		return object.Unit, false, orig
	}
	if err != nil {
		return object.Unit, false, err
	}
	if last && as == nil {
		return cur, false, nil
	}
	child := tempTarget(cur)
	var res object.Dynamic
	changed := true
	if last {
		if t.IsReadOnly() {
			return object.Unit, false, newError(ErrAssignmentToConstant, name, as.pos)
		}
		err = w.applyAssign(child.Value(), as, name)
	} else {
		res, changed, err = w.walk(child, name, links[1:], as)
	}
	if err != nil || !changed {
		return res, false, err
	}
	if t.IsReadOnly() {
		return res, false, newError(ErrAssignmentToConstant, name, l.pos)
	}
	_, found, err = w.callNamed(IndexerSet, l.pos, t.Value(), &idx, child.Value())
	if !found && last {
		return object.Unit, false, orig
	}
	return res, found, err
}

// walkAccessor handles .name on types other than maps, with the get$name
// and set$name functions, falling back to the indexers with the name as key.
func (w *walker) walkAccessor(t *Target, name string, links []link, as *chainAssign) (object.Dynamic, bool, *EvalError) {
	l := &links[0]
	prop := l.prop
	last := len(links) == 1
	if last && as != nil && as.op == nil {
		if t.IsReadOnly() {
			return object.Unit, false, newError(ErrAssignmentToConstant, name, as.pos)
		}
		err := w.setProperty(t, prop, as.value, l.pos)
		return object.Unit, err == nil, err
	}
	cur, err := w.getProperty(t, prop, l.pos)
	if err != nil {
		return object.Unit, false, err
	}
	if last && as == nil {
		return cur, false, nil
	}
	child := tempTarget(cur)
	var res object.Dynamic
	changed := true
	if last {
		if t.IsReadOnly() {
			return object.Unit, false, newError(ErrAssignmentToConstant, name, as.pos)
		}
		err = w.applyAssign(child.Value(), as, name)
	} else {
		res, changed, err = w.walk(child, name, links[1:], as)
	}
	if err != nil || !changed {
		return res, false, err
	}
	if t.IsReadOnly() {
		return res, false, newError(ErrAssignmentToConstant, name, l.pos)
	}
	err = w.setProperty(t, prop, *child.Value(), l.pos)
	if err != nil && !last && err.Kind == ErrPropertyNotFound {
		// read only property: changes deeper in the chain stay in the temporary.
		return res, false, nil
	}
	return res, err == nil, err
}

func (w *walker) getProperty(t *Target, prop *ast.Property, pos token.Position) (object.Dynamic, *EvalError) {
	v, found, err := w.callNamed(prop.Getter, pos, t.Value())
	if found {
		return v, err
	}
	key := object.String(prop.Name)
	v, found, err = w.callNamed(IndexerGet, pos, t.Value(), &key)
	if found {
		return v, err
	}
	return object.Unit, &EvalError{
		Kind: ErrPropertyNotFound, Name: prop.Name, Pos: pos,
		Other: "a getter is not registered for type '" + w.e.typeName(*t.Value()) + "'",
	}
}

func (w *walker) setProperty(t *Target, prop *ast.Property, v object.Dynamic, pos token.Position) *EvalError {
	_, found, err := w.callNamed(prop.Setter, pos, t.Value(), &v)
	if found {
		return err
	}
	key := object.String(prop.Name)
	_, found, err = w.callNamed(IndexerSet, pos, t.Value(), &key, &v)
	if found {
		return err
	}
	return &EvalError{
		Kind: ErrPropertyNotFound, Name: prop.Name, Pos: pos,
		Other: "a setter is not registered for type '" + w.e.typeName(*t.Value()) + "'",
	}
}

// walkMethod calls .name(args) with t's value as receiver.
func (w *walker) walkMethod(t *Target, name string, links []link, as *chainAssign) (object.Dynamic, bool, *EvalError) {
	l := &links[0]
	res, changed, err := w.callMethod(l.call, t, l.args, name)
	if err != nil {
		return object.Unit, false, err
	}
	if len(links) == 1 {
		return res, changed, nil
	}
	child := tempTarget(res)
	res, _, err = w.walk(child, name, links[1:], as)
	return res, changed, err
}

// applyAssign stores as.value into dst, or combines it for op-assignments:
// the op-assign function (e.g `+=`) when one is registered, the operator
// itself (`+`) otherwise. dst is evaluated once either way.
func (w *walker) applyAssign(dst *object.Dynamic, as *chainAssign, name string) *EvalError {
	if dst.IsReadOnly() {
		return newError(ErrAssignmentToConstant, name, as.pos)
	}
	v := as.value
	if as.op == nil {
		v.SetAccessMode(object.ReadWrite)
		if dst.IsShared() {
			g := dst.WriteLock()
			*g.Value() = v
			g.Release()
			return nil
		}
		*dst = v
		return nil
	}
	op := as.op
	args := []*object.Dynamic{dst, &v}
	if r := w.resolveFn(op.Op, ast.FnHashes{Native: op.HashOp}, args, false); r != nil && r.fn != nil {
		_, err := w.callNative(r.fn, args, op.Pos)
		return err
	}
	r := w.resolveFn(op.BaseOp, ast.FnHashes{Native: op.HashBaseOp}, args, true)
	if r == nil {
		return newError(ErrFunctionNotFound, w.signature(op.Op, args), op.Pos)
	}
	res, err := w.callResolved(r, args, op.Pos)
	if err != nil {
		return err
	}
	res.SetTag(dst.Tag())
	*dst = res.Flatten()
	return nil
}

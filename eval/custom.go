package eval

import (
	"errors"
	"fmt"
	"iter"

	"grol.io/rhai/ast"
	"grol.io/rhai/object"
	"grol.io/rhai/parser"
	"grol.io/rhai/token"
)

// CustomSyntaxFn evaluates a syntax extension. inputs are the parsed
// segments: identifiers as *ast.Variable, symbols as *ast.StringLit, blocks
// as *ast.StmtExpr and expressions as they are.
type CustomSyntaxFn func(ctx *EvalContext, inputs []ast.Expr) (object.Dynamic, error)

type customSyntax struct {
	parse *parser.CustomSyntax
	fn    CustomSyntaxFn
}

// EvalContext gives host callbacks (custom syntax, variable resolver)
// access to the running evaluation.
type EvalContext struct {
	w *walker
}

func (w *walker) evalContext() *EvalContext {
	return &EvalContext{w: w}
}

func (c *EvalContext) Engine() *Engine {
	return c.w.e
}

func (c *EvalContext) Source() string {
	return c.w.state.Source
}

// Scope is the live scope: variables pushed by custom syntax stay visible
// to the statements that follow when the syntax may change the scope.
func (c *EvalContext) Scope() *object.Scope {
	return c.w.scope
}

// Imports iterates over the imported modules, most recent first.
func (c *EvalContext) Imports() iter.Seq2[string, *Module] {
	return c.w.imports.All()
}

// This is the bound `this`, nil outside of methods.
func (c *EvalContext) This() *object.Dynamic {
	return c.w.this
}

func (c *EvalContext) CallLevel() int {
	return c.w.state.CallLevel()
}

// EvalExpressionTree evaluates one of the custom syntax inputs. Break,
// continue and return pass through the callback as errors it must return
// unchanged.
func (c *EvalContext) EvalExpressionTree(x ast.Expr) (object.Dynamic, error) {
	o := c.w.expr(x)
	switch {
	case o.IsValue():
		return o.Value, nil
	case o.Kind == OutError:
		return object.Unit, o.Err
	default:
		return object.Unit, &signal{o: o}
	}
}

// signal carries loop control, return and throw across a host callback.
type signal struct {
	o Outcome
}

func (s *signal) Error() string {
	if s.o.Kind == OutReturn {
		return "return"
	}
	_, err := s.o.AsError()
	return err.Error()
}

// RegisterCustomSyntax adds a syntax made of a fixed list of segments: the
// leading keyword then literal symbols and markers ($ident$, $expr$,
// $block$...). scopeMayBeChanged must be set if fn defines variables in
// the caller's scope.
func (e *Engine) RegisterCustomSyntax(segments []string, scopeMayBeChanged bool, fn CustomSyntaxFn) error {
	if len(segments) == 0 {
		return errors.New("custom syntax needs at least a keyword")
	}
	return e.RegisterCustomSyntaxRaw(segments[0], parser.SymbolsSyntax(segments), scopeMayBeChanged, fn)
}

// RegisterCustomSyntaxRaw adds a syntax whose segments are chosen as it is
// parsed, see parser.CustomSyntax.
func (e *Engine) RegisterCustomSyntaxRaw(keyword string, next func(segments []string, look string) (string, error),
	scopeMayBeChanged bool, fn CustomSyntaxFn,
) error {
	switch token.LookupIdent(keyword) {
	case token.IDENT, token.RESERVED:
	default:
		return fmt.Errorf("custom syntax keyword %q is a reserved keyword", keyword)
	}
	if !object.IsValidFnName(keyword) && token.LookupIdent(keyword) != token.RESERVED {
		return fmt.Errorf("custom syntax keyword %q is not an identifier", keyword)
	}
	e.custom[keyword] = &customSyntax{
		parse: &parser.CustomSyntax{Next: next, ScopeMayBeChanged: scopeMayBeChanged},
		fn:    fn,
	}
	return nil
}

func (w *walker) custom(node *ast.Custom) Outcome {
	key := node.Tokens[0]
	cs, ok := w.e.custom[key]
	if !ok {
		return failure(newError(ErrCustomSyntax, "Unknown custom syntax '"+key+"'", node.Pos))
	}
	scopeLen := w.scope.Len()
	v, err := cs.fn(w.evalContext(), node.Keywords)
	switch {
	case !node.ScopeMayBeChanged:
		w.scope.Rewind(scopeLen)
	case w.scope.Len() != scopeLen:
		w.state.AlwaysSearchScope = true
	}
	if err != nil {
		var s *signal
		if errors.As(err, &s) {
			return s.o
		}
		return failure(AsEvalError(err).FillPosition(node.Pos))
	}
	return result(v, w.checkDataSize(v, node.Pos))
}

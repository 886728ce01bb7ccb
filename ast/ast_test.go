package ast_test

import (
	"testing"

	"grol.io/rhai/ast"
)

func TestChainString(t *testing.T) {
	a := &ast.Variable{Name: "a"}
	b := &ast.Property{Name: "b"}
	c := &ast.Property{Name: "c"}
	one := &ast.IntLit{Val: 1}
	tests := []struct {
		expr     ast.Expr
		expected string
	}{
		{&ast.Dot{Lhs: a, Rhs: &ast.Dot{Lhs: b, Rhs: c}}, "a.b.c"},
		{&ast.Dot{Lhs: a, Rhs: &ast.Index{Lhs: b, Rhs: one}}, "a.b[1]"},
		{&ast.Index{Lhs: a, Rhs: &ast.Dot{Lhs: one, Rhs: c}}, "a[1].c"},
		{&ast.Index{Lhs: a, Rhs: &ast.Index{Lhs: one, Rhs: &ast.IntLit{Val: 2}}}, "a[1][2]"},
		{&ast.FnCall{Name: "+", Operator: true, Args: []ast.Expr{one, a}}, "(1 + a)"},
		{&ast.FnCall{Name: "-", Operator: true, Args: []ast.Expr{a}}, "(-a)"},
		{&ast.FnCall{Name: "f", Namespace: &ast.Namespace{Path: []ast.Ident{{Name: "m"}}}, Args: []ast.Expr{one}}, "m::f(1)"},
		{&ast.FloatLit{Val: 3}, "3.0"},
		{&ast.MapLit{Keys: []ast.Ident{{Name: "x"}}, Values: []ast.Expr{one}}, "#{x: 1}"},
		{&ast.InterpolatedString{Parts: []ast.Expr{&ast.StringLit{Val: "x="}, a}}, "`x=${a}`"},
	}
	for _, tt := range tests {
		if got := tt.expr.String(); got != tt.expected {
			t.Errorf("got %q, expected %q", got, tt.expected)
		}
	}
}

func TestStmtString(t *testing.T) {
	body := &ast.Block{Stmts: []ast.Stmt{&ast.Break{}}}
	tests := []struct {
		stmt     ast.Stmt
		expected string
	}{
		{&ast.Var{Name: ast.Ident{Name: "x"}, Value: &ast.IntLit{Val: 1}, Constant: true}, "const x = 1"},
		{&ast.While{Body: body}, "loop {\n\tbreak\n}"},
		{&ast.Do{Body: &ast.Block{}, Cond: &ast.BoolLit{Val: true}, Until: true}, "do {} until true"},
		{&ast.Return{Throw: true, Value: &ast.StringLit{Val: "x"}}, `throw "x"`},
		{&ast.Assignment{
			Lhs: &ast.Variable{Name: "x"},
			Op:  &ast.OpAssign{Op: "+=", BaseOp: "+"},
			Rhs: &ast.IntLit{Val: 2},
		}, "x += 2"},
	}
	for _, tt := range tests {
		if got := tt.stmt.String(); got != tt.expected {
			t.Errorf("got %q, expected %q", got, tt.expected)
		}
	}
}

func TestHashes(t *testing.T) {
	if ast.FnHash("f", 1) == ast.FnHash("f", 2) {
		t.Errorf("arity should be part of the hash")
	}
	if ast.FnHash("f", 1) == ast.FnHash("g", 1) {
		t.Errorf("name should be part of the hash")
	}
	// The first namespace segment is skipped but counted.
	if ast.QualifiedFnHash([]string{"m"}, "f", 1) != ast.QualifiedFnHash([]string{""}, "f", 1) {
		t.Errorf("first segment should not matter")
	}
	if ast.QualifiedFnHash([]string{"m"}, "f", 1) == ast.FnHash("f", 1) {
		t.Errorf("qualified and unqualified hashes should differ")
	}
	if ast.QualifiedFnHash([]string{"m", "a"}, "f", 1) == ast.QualifiedFnHash([]string{"m", "b"}, "f", 1) {
		t.Errorf("sub module should be part of the hash")
	}
	if ast.ParamsHash([]string{"i64", "string"}) == ast.ParamsHash([]string{"string", "i64"}) {
		t.Errorf("params order should matter")
	}
	h := ast.FnHash("f", 2)
	p := ast.ParamsHash([]string{"i64", "i64"})
	if ast.CombineHashes(ast.CombineHashes(h, p), p) != h {
		t.Errorf("combine should be reversible")
	}
}

func TestMerge(t *testing.T) {
	f1 := &ast.ScriptFnDef{Name: "f", Params: []string{"a"}, Body: &ast.Block{}}
	f2 := &ast.ScriptFnDef{Name: "f", Params: []string{"b"}, Body: &ast.Block{}}
	g := &ast.ScriptFnDef{Name: "g", Body: &ast.Block{}}
	a := &ast.AST{Functions: []*ast.ScriptFnDef{f1, g}, Statements: []ast.Stmt{&ast.Noop{}}}
	b := &ast.AST{Functions: []*ast.ScriptFnDef{f2}, Statements: []ast.Stmt{&ast.Break{}}}
	m := a.Merge(b)
	if len(m.Functions) != 2 || m.Functions[0] != g || m.Functions[1] != f2 {
		t.Errorf("unexpected merged functions %v", m.Functions)
	}
	if len(m.Statements) != 2 {
		t.Errorf("unexpected merged statements %v", m.Statements)
	}
	if f2.Signature() != "f(b)" {
		t.Errorf("signature %q", f2.Signature())
	}
}

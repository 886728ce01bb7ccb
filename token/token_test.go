package token_test

import (
	"testing"

	"grol.io/rhai/token"
)

func TestLookupIdent(t *testing.T) {
	tests := []struct {
		input    string
		expected token.Type
	}{
		{"let", token.LET},
		{"const", token.CONST},
		{"fn", token.FN},
		{"catch", token.CATCH},
		{"true", token.TRUE},
		{"foo", token.IDENT},
		{"print", token.IDENT}, // keyword function, still an identifier for the lexer.
		{"this", token.IDENT},
		{"var", token.RESERVED},
		{"nil", token.RESERVED},
	}
	for _, tt := range tests {
		if got := token.LookupIdent(tt.input); got != tt.expected {
			t.Errorf("LookupIdent(%q) = %s, want %s", tt.input, got, tt.expected)
		}
	}
}

func TestCompoundBase(t *testing.T) {
	tests := []struct {
		input    token.Type
		expected token.Type
		ok       bool
	}{
		{token.PLUSASSIGN, token.PLUS, true},
		{token.MINUSASSIGN, token.MINUS, true},
		{token.POWASSIGN, token.POW, true},
		{token.XORASSIGN, token.XOR, true},
		{token.ASSIGN, token.ILLEGAL, false},
		{token.PLUS, token.ILLEGAL, false},
	}
	for _, tt := range tests {
		got, ok := token.CompoundBase(tt.input)
		if got != tt.expected || ok != tt.ok {
			t.Errorf("CompoundBase(%s) = %s, %v; want %s, %v", tt.input, got, ok, tt.expected, tt.ok)
		}
	}
	if s := token.OperatorString(token.SHLASSIGN); s != "<<=" {
		t.Errorf("OperatorString(SHLASSIGN) = %q", s)
	}
}

func TestPosition(t *testing.T) {
	if !token.NONE.IsNone() {
		t.Errorf("NONE should be none")
	}
	p := token.Position{Line: 3, Col: 7}
	if p.IsNone() || p.IsBeginningOfLine() {
		t.Errorf("unexpected %+v", p)
	}
	if p.String() != "line 3, position 7" {
		t.Errorf("got %q", p.String())
	}
	if token.NONE.String() != "none" {
		t.Errorf("got %q", token.NONE.String())
	}
}

func TestInfo(t *testing.T) {
	info := token.Info()
	for _, k := range []string{"let", "fn", "switch", "import"} {
		if !info.Keywords.Has(k) {
			t.Errorf("missing keyword %q", k)
		}
	}
	if !info.Builtins.Has("curry") || !info.Builtins.Has("is_def_fn") {
		t.Errorf("missing keyword functions: %v", info.Builtins)
	}
	if !info.Tokens.Has("**=") || !info.Tokens.Has("#{") {
		t.Errorf("missing tokens: %v", info.Tokens)
	}
	if !info.Reserved.Has("goto") {
		t.Errorf("goto should be reserved")
	}
	if !token.IsKeywordFunction("Fn") || token.IsKeywordFunction("foo") {
		t.Errorf("IsKeywordFunction mismatch")
	}
}

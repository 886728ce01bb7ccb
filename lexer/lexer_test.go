package lexer

import (
	"testing"

	"grol.io/rhai/token"
)

func TestNextToken(t *testing.T) { //nolint:funlen // this is a test function with many cases back to back.
	input := `let five = 5;
const ten = 10;

fn add(x, y) {
x + y
}

let result = add(five, ten);
!-/%*5;
5 < 10 > 5;
x **= 2; y <<= 1; z >>= 3; w ^= 1;
a::b => c
#{a: 1}
"foo\"bar"
"x\x41y☺z\U0001F600"
'c' '\n' 'é'
` + "`raw ${x + `y`} z`" + `
// line comment
/* block /* nested */ comment */
x.len() 1.abs() 1.5e3
var
@
`
	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.LET, "let"},
		{token.IDENT, "five"},
		{token.ASSIGN, "="},
		{token.INT, "5"},
		{token.SEMICOLON, ";"},
		{token.CONST, "const"},
		{token.IDENT, "ten"},
		{token.ASSIGN, "="},
		{token.INT, "10"},
		{token.SEMICOLON, ";"},
		{token.FN, "fn"},
		{token.IDENT, "add"},
		{token.LPAREN, "("},
		{token.IDENT, "x"},
		{token.COMMA, ","},
		{token.IDENT, "y"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.IDENT, "x"},
		{token.PLUS, "+"},
		{token.IDENT, "y"},
		{token.RBRACE, "}"},
		{token.LET, "let"},
		{token.IDENT, "result"},
		{token.ASSIGN, "="},
		{token.IDENT, "add"},
		{token.LPAREN, "("},
		{token.IDENT, "five"},
		{token.COMMA, ","},
		{token.IDENT, "ten"},
		{token.RPAREN, ")"},
		{token.SEMICOLON, ";"},
		{token.BANG, "!"},
		{token.MINUS, "-"},
		{token.SLASH, "/"},
		{token.PERCENT, "%"},
		{token.ASTERISK, "*"},
		{token.INT, "5"},
		{token.SEMICOLON, ";"},
		{token.INT, "5"},
		{token.LT, "<"},
		{token.INT, "10"},
		{token.GT, ">"},
		{token.INT, "5"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "x"},
		{token.POWASSIGN, "**="},
		{token.INT, "2"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "y"},
		{token.SHLASSIGN, "<<="},
		{token.INT, "1"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "z"},
		{token.SHRASSIGN, ">>="},
		{token.INT, "3"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "w"},
		{token.XORASSIGN, "^="},
		{token.INT, "1"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "a"},
		{token.DOUBLECOLON, "::"},
		{token.IDENT, "b"},
		{token.ARROW, "=>"},
		{token.IDENT, "c"},
		{token.MAPSTART, "#{"},
		{token.IDENT, "a"},
		{token.COLON, ":"},
		{token.INT, "1"},
		{token.RBRACE, "}"},
		{token.STRING, "foo\"bar"},
		{token.STRING, "xAy☺z\U0001F600"},
		{token.CHARACTER, "c"},
		{token.CHARACTER, "\n"},
		{token.CHARACTER, "é"},
		{token.BACKTICK, "raw ${x + `y`} z"},
		{token.LINECOMMENT, "// line comment"},
		{token.BLOCKCOMMENT, "/* block /* nested */ comment */"},
		{token.IDENT, "x"},
		{token.DOT, "."},
		{token.IDENT, "len"},
		{token.LPAREN, "("},
		{token.RPAREN, ")"},
		{token.INT, "1"},
		{token.DOT, "."},
		{token.IDENT, "abs"},
		{token.LPAREN, "("},
		{token.RPAREN, ")"},
		{token.FLOAT, "1.5e3"},
		{token.RESERVED, "var"},
		{token.ILLEGAL, "@"},
		{token.EOF, ""},
	}
	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q and %q, got=%v",
				i, tt.expectedType, tt.expectedLiteral, tok)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestPositions(t *testing.T) {
	l := New("let x = 1;\n  x += 2\n\"ab\" /* a\nb */ y")
	expected := []token.Position{
		{Line: 1, Col: 1}, {Line: 1, Col: 5}, {Line: 1, Col: 7}, {Line: 1, Col: 9}, {Line: 1, Col: 10},
		{Line: 2, Col: 3}, {Line: 2, Col: 5}, {Line: 2, Col: 8},
		{Line: 3, Col: 1}, {Line: 3, Col: 6},
		{Line: 4, Col: 6},
	}
	for i, pos := range expected {
		tok := l.NextToken()
		if tok.Pos != pos {
			t.Errorf("tests[%d] %v: expected %v, got %v", i, tok, pos, tok.Pos)
		}
	}
	if l.Line(2) != "  x += 2" {
		t.Errorf("Line(2) = %q", l.Line(2))
	}
	if l.Line(10) != "" {
		t.Errorf("Line(10) = %q", l.Line(10))
	}
}

func TestReadFloatNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"100.56", "100.56"},
		{"1e3", "1e3"},
		{"1.23e-3", "1.23e-3"},
		{"1.23E+3", "1.23E+3"},
		{"1e-3", "1e-3"},
		{"1e+3", "1e+3"},
		{"1.23e", "1.23"},
		{"1.23e+", "1.23"},
		{"1.23e-abc", "1.23"},
		{"1000_000.5", "1000_000.5"},
		{"1000_000.5_6", "1000_000.5_6"},
		{"1.23e1_000", "1.23e1_000"}, // too big for float64, but "lexable".
	}

	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != token.FLOAT {
			t.Errorf("input: %q, expected a float number, got: %v", tt.input, tok)
		}
		if tok.Literal != tt.expected {
			t.Errorf("input: %q, expected: %q, got: %q", tt.input, tt.expected, tok.Literal)
		}
	}
}

func TestReadIntNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1_2_3", "1_2_3"},
		{"5", "5"},
		{"100abc", "100"},
		{"1000_000", "1000_000"},
		{"0xe_f1Ag", "0xe_f1A"},
		{"0o17_7", "0o17_7"},
		{"0b1010_11112", "0b1010_1111"},
		{"12.", "12"},
		{"1.e", "1"},
	}

	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != token.INT {
			t.Errorf("input: %q, expected a int number, got: %v", tt.input, tok)
		}
		if tok.Literal != tt.expected {
			t.Errorf("input: %q, expected: %q, got: %q", tt.input, tt.expected, tok.Literal)
		}
	}
}

func TestIllegal(t *testing.T) {
	tests := []struct {
		input string
		msg   string
	}{
		{`"abc`, "unterminated string literal"},
		{`"a\qb"`, "invalid escape sequence '\\q'"},
		{`''`, "invalid character literal"},
		{`'ab'`, "character literal must be a single character"},
		{"`abc", "unterminated string literal"},
		{"/* abc", "unterminated block comment"},
		{"0x", "invalid number literal"},
		{"#x", "unexpected '#'"},
	}
	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != token.ILLEGAL {
			t.Errorf("input: %q, expected ILLEGAL, got: %v", tt.input, tok)
			continue
		}
		if l.Error() != tt.msg {
			t.Errorf("input: %q, expected error %q, got %q", tt.input, tt.msg, l.Error())
		}
	}
}

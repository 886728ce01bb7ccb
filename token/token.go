// Package token defines the tokens of the scripting language and source positions.
package token

import (
	"strconv"

	"fortio.org/log"
	"fortio.org/sets"
)

type Type uint8

const (
	ILLEGAL Type = iota
	EOF

	// Identifiers + literals.
	IDENT     // add, foobar, x, y, ...
	INT       // 1343456, 0x1f, 0o17, 0b101
	FLOAT     // 1.5, 1e3
	STRING    // "foo"
	BACKTICK  // `foo ${bar}` raw content, interpolation done by the parser
	CHARACTER // 'c'

	// Operators.
	ASSIGN
	PLUS
	MINUS
	ASTERISK
	SLASH
	PERCENT
	POW
	SHL
	SHR
	BITAND
	BITOR
	XOR
	BANG

	EQ
	NOTEQ
	LT
	LTEQ
	GT
	GTEQ
	AND
	OR

	// Compound assignments, same order as the plain operators above.
	PLUSASSIGN
	MINUSASSIGN
	MULASSIGN
	DIVASSIGN
	MODASSIGN
	POWASSIGN
	SHLASSIGN
	SHRASSIGN
	ANDASSIGN
	ORASSIGN
	XORASSIGN

	// Delimiters.
	COMMA
	SEMICOLON
	COLON
	DOUBLECOLON
	DOT
	ARROW // =>

	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET
	MAPSTART // #{

	// Keywords.
	LET
	CONST
	IF
	ELSE
	SWITCH
	WHILE
	LOOP
	DO
	UNTIL
	FOR
	IN
	BREAK
	CONTINUE
	RETURN
	THROW
	TRY
	CATCH
	FN
	PRIVATE
	IMPORT
	EXPORT
	AS
	TRUE
	FALSE

	// Comments, skipped by the parser.
	LINECOMMENT
	BLOCKCOMMENT

	RESERVED // reserved keyword that can't be used as identifier.
	LAST
)

//go:generate stringer -type=Type
var _ = LAST.String() // force compile error if go generate is missing.

// Position is a line/column pair, 1 based. The zero value is NONE.
type Position struct {
	Line int
	Col  int
}

// NONE is the position used when no better information is available.
var NONE = Position{}

func (p Position) IsNone() bool {
	return p.Line == 0
}

func (p Position) IsBeginningOfLine() bool {
	return p.Col <= 1
}

func (p Position) String() string {
	if p.IsNone() {
		return "none"
	}
	return "line " + strconv.Itoa(p.Line) + ", position " + strconv.Itoa(p.Col)
}

type Token struct {
	Type    Type
	Literal string
	Pos     Position
}

func (t Token) String() string {
	return t.Type.String() + " " + strconv.Quote(t.Literal)
}

var keywords = map[string]Type{
	"let":      LET,
	"const":    CONST,
	"if":       IF,
	"else":     ELSE,
	"switch":   SWITCH,
	"while":    WHILE,
	"loop":     LOOP,
	"do":       DO,
	"until":    UNTIL,
	"for":      FOR,
	"in":       IN,
	"break":    BREAK,
	"continue": CONTINUE,
	"return":   RETURN,
	"throw":    THROW,
	"try":      TRY,
	"catch":    CATCH,
	"fn":       FN,
	"private":  PRIVATE,
	"import":   IMPORT,
	"export":   EXPORT,
	"as":       AS,
	"true":     TRUE,
	"false":    FALSE,
}

// Reserved for future use, not valid identifiers.
var reserved = sets.New(
	"var", "static", "shared", "goto", "exit", "match", "case", "public", "protected",
	"new", "use", "with", "module", "package", "super", "spawn", "thread", "go", "sync",
	"async", "await", "yield", "default", "void", "null", "nil",
)

// Keyword functions are identifiers with special handling in the evaluator.
const (
	KeywordPrint    = "print"
	KeywordDebug    = "debug"
	KeywordTypeOf   = "type_of"
	KeywordEval     = "eval"
	KeywordFnPtr    = "Fn"
	KeywordCall     = "call"
	KeywordCurry    = "curry"
	KeywordIsShared = "is_shared"
	KeywordIsDefVar = "is_def_var"
	KeywordIsDefFn  = "is_def_fn"
	KeywordThis     = "this"
	KeywordGlobal   = "global"
)

var keywordFunctions = sets.New(
	KeywordPrint, KeywordDebug, KeywordTypeOf, KeywordEval, KeywordFnPtr, KeywordCall,
	KeywordCurry, KeywordIsShared, KeywordIsDefVar, KeywordIsDefFn,
)

func LookupIdent(ident string) Type {
	if tok, ok := keywords[ident]; ok {
		log.Debugf("LookupIdent(%s) found %s", ident, tok.String())
		return tok
	}
	if reserved.Has(ident) {
		return RESERVED
	}
	return IDENT
}

// IsKeywordFunction is true for names like print, eval, Fn that can't be
// redefined by script functions.
func IsKeywordFunction(name string) bool {
	return keywordFunctions.Has(name)
}

// CompoundBase returns the plain operator behind a compound assignment
// (PLUS for PLUSASSIGN etc) and true, or false if t isn't one.
func CompoundBase(t Type) (Type, bool) {
	if t < PLUSASSIGN || t > XORASSIGN {
		return ILLEGAL, false
	}
	return PLUS + (t - PLUSASSIGN), true
}

var operators = map[Type]string{
	ASSIGN: "=", PLUS: "+", MINUS: "-", ASTERISK: "*", SLASH: "/", PERCENT: "%", POW: "**",
	SHL: "<<", SHR: ">>", BITAND: "&", BITOR: "|", XOR: "^", BANG: "!",
	EQ: "==", NOTEQ: "!=", LT: "<", LTEQ: "<=", GT: ">", GTEQ: ">=", AND: "&&", OR: "||",
	PLUSASSIGN: "+=", MINUSASSIGN: "-=", MULASSIGN: "*=", DIVASSIGN: "/=", MODASSIGN: "%=",
	POWASSIGN: "**=", SHLASSIGN: "<<=", SHRASSIGN: ">>=", ANDASSIGN: "&=", ORASSIGN: "|=",
	XORASSIGN: "^=",
	COMMA: ",", SEMICOLON: ";", COLON: ":", DOUBLECOLON: "::", DOT: ".", ARROW: "=>",
	LPAREN: "(", RPAREN: ")", LBRACE: "{", RBRACE: "}", LBRACKET: "[", RBRACKET: "]",
	MAPSTART: "#{",
}

// Syntax returns the source text of operators and keywords, the literal otherwise.
func (t Token) Syntax() string {
	if s, ok := operators[t.Type]; ok {
		return s
	}
	return t.Literal
}

// OperatorString returns the source form of an operator type, e.g "+=" for PLUSASSIGN.
func OperatorString(t Type) string {
	return operators[t]
}

// TypeSyntax is the source form of an operator or keyword type, used in
// "Expecting 'x'" messages.
func TypeSyntax(t Type) string {
	if s, ok := operators[t]; ok {
		return s
	}
	if s, ok := keywordSyntax[t]; ok {
		return s
	}
	return t.String()
}

var keywordSyntax = make(map[Type]string, len(keywords))

func init() {
	info.Keywords = sets.New[string]()
	for k, t := range keywords {
		info.Keywords.Add(k)
		keywordSyntax[t] = k
	}
	info.Reserved = reserved
	info.Builtins = keywordFunctions
	info.Tokens = sets.New[string]()
	for _, v := range operators {
		info.Tokens.Add(v)
	}
}

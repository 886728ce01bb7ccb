package lexer

import (
	"bytes"
	"strings"

	"grol.io/rhai/token"
)

type Lexer struct {
	input       []byte
	pos         int
	hadNewline  bool // newline was seen before current token
	lastNewLine int  // position just after most recent newline
	lineNumber  int
	errMsg      string // last lexing error, reported with the ILLEGAL token.
	tokPos      token.Position
}

// Mode with input expected the be complete (multiline/file).
func New(input string) *Lexer {
	return NewBytes([]byte(input))
}

// Bytes based full input mode.
func NewBytes(input []byte) *Lexer {
	return &Lexer{input: input, lineNumber: 1}
}

// NewAt lexes a fragment of a larger source (interpolated `${}` sections)
// so positions refer to the enclosing input.
func NewAt(input string, pos token.Position) *Lexer {
	return &Lexer{input: []byte(input), lineNumber: pos.Line, lastNewLine: 1 - pos.Col}
}

func (l *Lexer) Pos() int {
	return l.pos
}

func (l *Lexer) HadNewline() bool {
	return l.hadNewline
}

// Error returns the reason of the last ILLEGAL token, if any.
func (l *Lexer) Error() string {
	return l.errMsg
}

// Line returns the text of the given (1 based) line, for error reporting.
// Somewhat expensive, only used on errors.
func (l *Lexer) Line(n int) string {
	return LineOf(l.input, n)
}

// LineOf extracts line n (1 based) of the input.
func LineOf(input []byte, n int) string {
	for i := 1; i < n; i++ {
		idx := bytes.IndexByte(input, '\n')
		if idx == -1 {
			return ""
		}
		input = input[idx+1:]
	}
	if idx := bytes.IndexByte(input, '\n'); idx != -1 {
		input = input[:idx]
	}
	return strings.TrimRight(string(input), "\r")
}

func (l *Lexer) position(start int) token.Position {
	return token.Position{Line: l.lineNumber, Col: start - l.lastNewLine + 1}
}

func (l *Lexer) newToken(t token.Type, literal string) token.Token {
	return token.Token{Type: t, Literal: literal, Pos: l.tokPos}
}

func (l *Lexer) illegal(msg string, start int) token.Token {
	l.errMsg = msg
	return l.newToken(token.ILLEGAL, string(l.input[start:min(l.pos, len(l.input))]))
}

// op2 checks for a second character and returns the two char token if found.
func (l *Lexer) op2(next byte, single, double token.Type, start int) token.Token {
	if l.peekChar() == next {
		l.pos++
		return l.newToken(double, string(l.input[start:l.pos]))
	}
	return l.newToken(single, string(l.input[start:l.pos]))
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()
	start := l.pos
	l.tokPos = l.position(start)
	ch := l.readChar()
	nextChar := l.peekChar()
	switch ch {
	case 0:
		return l.newToken(token.EOF, "")
	case '=':
		switch nextChar {
		case '=':
			l.pos++
			return l.newToken(token.EQ, "==")
		case '>':
			l.pos++
			return l.newToken(token.ARROW, "=>")
		}
		return l.newToken(token.ASSIGN, "=")
	case '!':
		return l.op2('=', token.BANG, token.NOTEQ, start)
	case '+':
		return l.op2('=', token.PLUS, token.PLUSASSIGN, start)
	case '-':
		return l.op2('=', token.MINUS, token.MINUSASSIGN, start)
	case '/':
		switch nextChar {
		case '/':
			return l.newToken(token.LINECOMMENT, l.readLineComment())
		case '*':
			comment, ok := l.readBlockComment()
			if !ok {
				return l.illegal("unterminated block comment", start)
			}
			return l.newToken(token.BLOCKCOMMENT, comment)
		}
		return l.op2('=', token.SLASH, token.DIVASSIGN, start)
	case '%':
		return l.op2('=', token.PERCENT, token.MODASSIGN, start)
	case '^':
		return l.op2('=', token.XOR, token.XORASSIGN, start)
	case '*':
		if nextChar == '*' {
			l.pos++
			return l.op2('=', token.POW, token.POWASSIGN, start)
		}
		return l.op2('=', token.ASTERISK, token.MULASSIGN, start)
	case '<':
		if nextChar == '<' {
			l.pos++
			return l.op2('=', token.SHL, token.SHLASSIGN, start)
		}
		return l.op2('=', token.LT, token.LTEQ, start)
	case '>':
		if nextChar == '>' {
			l.pos++
			return l.op2('=', token.SHR, token.SHRASSIGN, start)
		}
		return l.op2('=', token.GT, token.GTEQ, start)
	case '&':
		if nextChar == '&' {
			l.pos++
			return l.newToken(token.AND, "&&")
		}
		return l.op2('=', token.BITAND, token.ANDASSIGN, start)
	case '|':
		if nextChar == '|' {
			l.pos++
			return l.newToken(token.OR, "||")
		}
		return l.op2('=', token.BITOR, token.ORASSIGN, start)
	case ':':
		return l.op2(':', token.COLON, token.DOUBLECOLON, start)
	case '#':
		if nextChar == '{' {
			l.pos++
			return l.newToken(token.MAPSTART, "#{")
		}
		return l.illegal("unexpected '#'", start)
	case ';':
		return l.newToken(token.SEMICOLON, ";")
	case ',':
		return l.newToken(token.COMMA, ",")
	case '.':
		return l.newToken(token.DOT, ".")
	case '(':
		return l.newToken(token.LPAREN, "(")
	case ')':
		return l.newToken(token.RPAREN, ")")
	case '{':
		return l.newToken(token.LBRACE, "{")
	case '}':
		return l.newToken(token.RBRACE, "}")
	case '[':
		return l.newToken(token.LBRACKET, "[")
	case ']':
		return l.newToken(token.RBRACKET, "]")
	case '"':
		str, msg := l.readString()
		if msg != "" {
			return l.illegal(msg, start)
		}
		return l.newToken(token.STRING, str)
	case '`':
		str, ok := l.readBacktick()
		if !ok {
			return l.illegal("unterminated string literal", start)
		}
		return l.newToken(token.BACKTICK, str)
	case '\'':
		str, msg := l.readCharLiteral()
		if msg != "" {
			return l.illegal(msg, start)
		}
		return l.newToken(token.CHARACTER, str)
	default:
		switch {
		case isLetter(ch):
			ident := l.readIdentifier()
			return l.newToken(token.LookupIdent(ident), ident)
		case isDigit(ch):
			t, lit, msg := l.readNumber(ch)
			if msg != "" {
				return l.illegal(msg, start)
			}
			return l.newToken(t, lit)
		default:
			return l.illegal("unexpected character", start)
		}
	}
}

func isWhiteSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func (l *Lexer) skipWhitespace() {
	l.hadNewline = false
	// while whitespace, read next char
	for {
		ch := l.peekChar()
		if !isWhiteSpace(ch) {
			break
		}
		if ch == '\n' {
			l.newLine(l.pos + 1)
		}
		l.pos++
	}
}

func (l *Lexer) newLine(after int) {
	l.hadNewline = true
	l.lastNewLine = after
	l.lineNumber++
}

func (l *Lexer) readChar() byte {
	ch := l.peekChar()
	l.pos++
	return ch
}

func (l *Lexer) peekChar() byte {
	if l.pos < 0 {
		panic("Lexer position is negative")
	}
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func hexCharToHex(ch byte) (byte, bool) {
	switch {
	case '0' <= ch && ch <= '9':
		return ch - '0', true
	case 'a' <= ch && ch <= 'f':
		return ch - 'a' + 10, true
	case 'A' <= ch && ch <= 'F':
		return ch - 'A' + 10, true
	}
	return 0, false
}

// readHexDigits reads n hex digits into a rune.
func (l *Lexer) readHexDigits(n int) (rune, bool) {
	var r rune
	for range n {
		v, ok := hexCharToHex(l.readChar())
		if !ok {
			return 0, false
		}
		r = r<<4 | rune(v)
	}
	return r, true
}

// readEscape handles the character after a backslash, writing the result.
func (l *Lexer) readEscape(buf *strings.Builder) string {
	ch := l.readChar()
	switch ch {
	case 'r':
		buf.WriteByte('\r')
	case 'n':
		buf.WriteByte('\n')
	case 't':
		buf.WriteByte('\t')
	case '0':
		buf.WriteByte(0)
	case '\\', '"', '\'':
		buf.WriteByte(ch)
	case 'x', 'u', 'U':
		n := map[byte]int{'x': 2, 'u': 4, 'U': 8}[ch]
		r, ok := l.readHexDigits(n)
		if !ok {
			return "invalid hex escape sequence"
		}
		buf.WriteRune(r)
	case '\n':
		// line continuation.
		l.newLine(l.pos)
	default:
		return "invalid escape sequence '\\" + string(ch) + "'"
	}
	return ""
}

func (l *Lexer) readString() (string, string) {
	buf := strings.Builder{}
	for {
		ch := l.readChar()
		switch ch {
		case '\\':
			if msg := l.readEscape(&buf); msg != "" {
				return "", msg
			}
			continue
		case '"':
			return buf.String(), ""
		case 0, '\n':
			return "", "unterminated string literal"
		}
		buf.WriteByte(ch)
	}
}

// Backtick strings are raw and may span lines. ${...} sections are kept as is
// for the parser, nested braces are balanced.
func (l *Lexer) readBacktick() (string, bool) {
	start := l.pos
	depth := 0
	for {
		ch := l.readChar()
		switch {
		case ch == 0:
			return "", false
		case ch == '\n':
			l.newLine(l.pos)
		case ch == '$' && l.peekChar() == '{':
			l.pos++
			depth++
		case ch == '{' && depth > 0:
			depth++
		case ch == '}' && depth > 0:
			depth--
		case ch == '`' && depth == 0:
			return string(l.input[start : l.pos-1]), true
		}
	}
}

func (l *Lexer) readCharLiteral() (string, string) {
	buf := strings.Builder{}
	ch := l.readChar()
	switch ch {
	case '\\':
		if msg := l.readEscape(&buf); msg != "" {
			return "", msg
		}
	case '\'', 0, '\n':
		return "", "invalid character literal"
	default:
		// multi byte utf-8 sequences
		begin := l.pos - 1
		for l.peekChar() != '\'' && l.peekChar() != 0 && l.peekChar() != '\n' {
			l.pos++
		}
		buf.Write(l.input[begin:l.pos])
	}
	if l.readChar() != '\'' {
		return "", "unterminated character literal"
	}
	s := buf.String()
	if len([]rune(s)) != 1 {
		return "", "character literal must be a single character"
	}
	return s, ""
}

func (l *Lexer) readIdentifier() string {
	pos := l.pos - 1
	for IsAlphaNum(l.peekChar()) {
		l.pos++
	}
	return string(l.input[pos:l.pos])
}

func notEOL(ch byte) bool {
	return ch != '\n' && ch != 0
}

func (l *Lexer) readLineComment() string {
	pos := l.pos - 1
	for notEOL(l.peekChar()) {
		l.pos++
	}
	return strings.TrimSpace(string(l.input[pos:l.pos]))
}

// Block comments nest.
func (l *Lexer) readBlockComment() (string, bool) {
	pos1 := l.pos - 1
	l.pos++
	depth := 1
	for depth > 0 {
		ch := l.readChar()
		switch {
		case ch == 0:
			l.pos--
			return "", false
		case ch == '\n':
			l.newLine(l.pos)
		case ch == '*' && l.peekChar() == '/':
			l.pos++
			depth--
		case ch == '/' && l.peekChar() == '*':
			l.pos++
			depth++
		}
	}
	return string(l.input[pos1:l.pos]), true
}

func (l *Lexer) readDigits(valid func(byte) bool) {
	for valid(l.peekChar()) {
		l.pos++
	}
}

func (l *Lexer) readNumber(ch byte) (token.Type, string, string) {
	pos := l.pos - 1
	if ch == '0' {
		var valid func(byte) bool
		switch l.peekChar() {
		case 'x', 'X':
			valid = isHexDigit
		case 'o', 'O':
			valid = isOctalDigit
		case 'b', 'B':
			valid = isBinaryDigit
		}
		if valid != nil {
			l.pos++
			begin := l.pos
			l.readDigits(valid)
			if l.pos == begin {
				return token.ILLEGAL, "", "invalid number literal"
			}
			return token.INT, string(l.input[pos:l.pos]), ""
		}
	}
	t := token.INT
	l.readDigits(isDigitOrUnderscore)
	// Fractional part, only when a digit follows so 1.abs() is a method call.
	if l.peekChar() == '.' && l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1]) {
		t = token.FLOAT
		l.pos++
		l.readDigits(isDigitOrUnderscore)
	}
	// Exponent part
	peek := l.peekChar()
	if peek != 'e' && peek != 'E' {
		return t, string(l.input[pos:l.pos]), ""
	}
	errPos := l.pos
	l.pos++
	peek = l.peekChar()
	if peek == '+' || peek == '-' {
		l.pos++
	}
	if !isDigit(l.peekChar()) {
		// Not an exponent after all (e.g 1.e_var), stop before the 'e'.
		l.pos = errPos
		return t, string(l.input[pos:errPos]), ""
	}
	l.readDigits(isDigitOrUnderscore)
	return token.FLOAT, string(l.input[pos:l.pos]), ""
}

func isHexDigit(ch byte) bool {
	return isDigitOrUnderscore(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

func isOctalDigit(ch byte) bool {
	return ('0' <= ch && ch <= '7') || ch == '_'
}

func isBinaryDigit(ch byte) bool {
	return ch == '0' || ch == '1' || ch == '_'
}

func isLetter(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
}

func IsAlphaNum(ch byte) bool {
	return isLetter(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isDigitOrUnderscore(ch byte) bool {
	return isDigit(ch) || ch == '_'
}

package parser

import (
	"fmt"
	"strings"

	"fortio.org/log"
	"fortio.org/sets"
	"grol.io/rhai/object"
	"grol.io/rhai/token"
)

// Error is a parse error. Incomplete errors are the ones hit at the end of
// the input, the REPL uses them to ask for more lines.
type Error struct {
	Msg        string
	Pos        token.Position
	Incomplete bool
}

func (e *Error) Error() string {
	if e.Pos.IsNone() {
		return e.Msg
	}
	return e.Msg + " (" + e.Pos.String() + ")"
}

// Options are the limits and extensions the parser checks while parsing.
type Options struct {
	MaxExprDepth         int // 0 is unlimited.
	MaxFunctionExprDepth int // same, inside function bodies.
	MaxArraySize         int // largest array literal, 0 is unlimited.
	MaxMapSize           int // largest object map literal, 0 is unlimited.
	CustomSyntax         map[string]*CustomSyntax
}

func DefaultOptions() Options {
	return Options{MaxExprDepth: 64, MaxFunctionExprDepth: 32}
}

// settings are the flags of the current parsing context. Saved and
// restored around nested constructs.
type settings struct {
	global      bool // top level, not inside a block or a function.
	fnScope     bool
	breakable   bool
	allowIf     bool
	allowSwitch bool
	allowStmt   bool
	allowAnonFn bool
}

func topSettings() settings {
	return settings{global: true, allowIf: true, allowSwitch: true, allowStmt: true, allowAnonFn: true}
}

func fnSettings() settings {
	return settings{fnScope: true, allowIf: true, allowSwitch: true, allowStmt: true, allowAnonFn: true}
}

type stackEntry struct {
	name string
}

// frame mirrors the variables the evaluator will have in its scope so
// variable accesses can be resolved to stack offsets at parse time. The
// global level and each function or closure body get their own.
type frame struct {
	stack         []stackEntry
	entryStackLen int // stack length when the current block was entered.
	externals     sets.Set[string]
	allowCapture  bool
	modules       []string // import aliases in scope.
	maxDepth      int
}

func newFrame(maxDepth int) *frame {
	return &frame{externals: sets.New[string](), allowCapture: true, maxDepth: maxDepth}
}

func (f *frame) push(name string) {
	f.stack = append(f.stack, stackEntry{name: name})
}

// accessVar returns the 1 based offset from the top of the stack of the most
// recent declaration of name, 0 when not found or hidden behind a barrier.
// Names not found are recorded as externals, candidates for closure capture.
func (f *frame) accessVar(name string) int {
	index := 0
	barrier := false
	for i := len(f.stack) - 1; i >= 0; i-- {
		n := f.stack[i].name
		if n == object.Barrier {
			barrier = true
			continue
		}
		if n == name {
			index = len(f.stack) - i
			break
		}
	}
	if f.allowCapture {
		if index == 0 && !f.externals.Has(name) {
			log.Debugf("accessVar: %q is external", name)
			f.externals.Add(name)
		}
	} else {
		f.allowCapture = true
	}
	if barrier {
		return 0
	}
	return index
}

// findModule is the 1 based offset of the import alias name, 0 if unknown.
func (f *frame) findModule(name string) int {
	for i := len(f.modules) - 1; i >= 0; i-- {
		if f.modules[i] == name {
			return len(f.modules) - i
		}
	}
	return 0
}

// fail aborts the parse, recovered in ParseProgram/ParseExpression.
func (p *Parser) fail(pos token.Position, format string, args ...any) {
	panic(&Error{Msg: fmt.Sprintf(format, args...), Pos: pos})
}

// failAt reports an error about tok, replacing the message by the lexer's
// when the token is ILLEGAL and flagging errors at the end of input.
func (p *Parser) failAt(tok token.Token, format string, args ...any) {
	err := &Error{Msg: fmt.Sprintf(format, args...), Pos: tok.Pos}
	switch tok.Type { //nolint:exhaustive // only these two are special.
	case token.ILLEGAL:
		err.Msg = p.lexError(tok)
		err.Incomplete = strings.HasPrefix(tok.Literal, "`") || strings.HasPrefix(tok.Literal, "/*")
	case token.EOF:
		err.Incomplete = true
	}
	panic(err)
}

func (p *Parser) lexError(tok token.Token) string {
	msg := p.peekErr
	if tok == p.curToken {
		msg = p.curErr
	}
	if msg == "" {
		msg = "invalid token"
	}
	return msg + " " + tok.Literal
}

// unexpected fails on a token that can't start or continue what is being parsed.
func (p *Parser) unexpected(tok token.Token) {
	switch tok.Type { //nolint:exhaustive // default covers the rest.
	case token.EOF:
		p.failAt(tok, "Script is incomplete")
	case token.RESERVED:
		p.fail(tok.Pos, "'%s' is a reserved keyword", tok.Literal)
	case token.IDENT:
		if token.IsKeywordFunction(tok.Literal) {
			p.fail(tok.Pos, "'%s' is a reserved keyword", tok.Literal)
		}
	}
	p.failAt(tok, "Unexpected '%s'", tok.Syntax())
}

func (p *Parser) recoverError() {
	r := recover()
	if r == nil {
		return
	}
	err, ok := r.(*Error)
	if !ok {
		panic(r)
	}
	log.LogVf("Parse error: %v", err)
	p.errors = append(p.errors, err)
}

// Errors returns the error messages, with positions.
func (p *Parser) Errors() []string {
	res := make([]string, 0, len(p.errors))
	for _, e := range p.errors {
		res = append(res, e.Error())
	}
	return res
}

// Err returns the first error, as an *Error, or nil.
func (p *Parser) Err() error {
	if len(p.errors) == 0 {
		return nil
	}
	return p.errors[0]
}

// enter tracks expression nesting against the current frame's depth limit.
func (p *Parser) enter() {
	p.level++
	if p.fr.maxDepth > 0 && p.level > p.fr.maxDepth {
		p.fail(p.curToken.Pos, "Expression exceeds maximum complexity")
	}
}

func (p *Parser) leave() {
	p.level--
}

// inFunction runs parse with a fresh frame and function settings, as used
// for function and closure bodies, and returns that frame.
func (p *Parser) inFunction(parse func()) *frame {
	savedFr, savedSet, savedLevel := p.fr, p.set, p.level
	defer func() {
		p.fr, p.set, p.level = savedFr, savedSet, savedLevel
	}()
	p.fr = newFrame(p.opts.MaxFunctionExprDepth)
	p.set = fnSettings()
	p.level = 0
	fr := p.fr
	parse()
	return fr
}

// Package parser turns tokens into an ast.AST, resolving variables to stack
// offsets and closures to curried function pointers along the way.
package parser

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"fortio.org/log"
	"fortio.org/sets"
	"github.com/cespare/xxhash/v2"
	"grol.io/rhai/ast"
	"grol.io/rhai/lexer"
	"grol.io/rhai/token"
)

type Priority int8

const (
	_ Priority = iota
	LOWEST
	OR          // || | ^
	AND         // && &
	EQUALS      // == !=
	IN          // in
	LESSGREATER // > or <
	SUM         // +
	PRODUCT     // *
	POWER       // **
	SHIFT       // << >>
	PREFIX      // -X or !X
	CALL        // myFunction(X), a.b, a[i]
)

//go:generate stringer -type=Priority
var _ = CALL.String() // force compile error if go generate is missing.

var precedences = map[token.Type]Priority{
	token.OR:       OR,
	token.BITOR:    OR,
	token.XOR:      OR,
	token.AND:      AND,
	token.BITAND:   AND,
	token.EQ:       EQUALS,
	token.NOTEQ:    EQUALS,
	token.IN:       IN,
	token.LT:       LESSGREATER,
	token.GT:       LESSGREATER,
	token.LTEQ:     LESSGREATER,
	token.GTEQ:     LESSGREATER,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.ASTERISK: PRODUCT,
	token.SLASH:    PRODUCT,
	token.PERCENT:  PRODUCT,
	token.POW:      POWER,
	token.SHL:      SHIFT,
	token.SHR:      SHIFT,
	token.DOT:      CALL,
	token.LPAREN:   CALL,
	token.LBRACKET: CALL,
}

type (
	prefixParseFn func() ast.Expr
	infixParseFn  func(ast.Expr) ast.Expr
)

type Parser struct {
	l *lexer.Lexer

	prevToken token.Token
	curToken  token.Token
	peekToken token.Token
	curErr    string // lexer message for an ILLEGAL curToken.
	peekErr   string

	curComments  []string // doc comments right before curToken.
	peekComments []string

	errors []*Error

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn

	opts      Options
	fr        *frame
	set       settings
	level     int
	functions []*ast.ScriptFnDef
	fnIndex   map[uint64]int // script hash to index in functions.
}

func (p *Parser) RegisterPrefix(t token.Type, fn prefixParseFn) {
	p.prefixParseFns[t] = fn
}

func (p *Parser) RegisterInfix(t token.Type, fn infixParseFn) {
	p.infixParseFns[t] = fn
}

func New(l *lexer.Lexer) *Parser {
	return NewWithOptions(l, DefaultOptions())
}

func NewWithOptions(l *lexer.Lexer, opts Options) *Parser {
	p := &Parser{
		l:       l,
		opts:    opts,
		set:     topSettings(),
		fnIndex: make(map[uint64]int),
	}
	p.fr = newFrame(opts.MaxExprDepth)

	p.prefixParseFns = make(map[token.Type]prefixParseFn)
	p.RegisterPrefix(token.IDENT, p.primary(p.parseIdentifier))
	p.RegisterPrefix(token.INT, p.primary(p.parseIntegerLiteral))
	p.RegisterPrefix(token.FLOAT, p.primary(p.parseFloatLiteral))
	p.RegisterPrefix(token.STRING, p.primary(p.parseStringLiteral))
	p.RegisterPrefix(token.CHARACTER, p.primary(p.parseCharLiteral))
	p.RegisterPrefix(token.BACKTICK, p.primary(p.parseInterpolated))
	p.RegisterPrefix(token.TRUE, p.primary(p.parseBoolean))
	p.RegisterPrefix(token.FALSE, p.primary(p.parseBoolean))
	p.RegisterPrefix(token.LPAREN, p.primary(p.parseGroupedExpression))
	p.RegisterPrefix(token.LBRACKET, p.primary(p.parseArrayLiteral))
	p.RegisterPrefix(token.MAPSTART, p.primary(p.parseMapLiteral))
	p.RegisterPrefix(token.LBRACE, p.primary(p.parseBlockExpression))
	p.RegisterPrefix(token.IF, p.primary(p.parseIfExpression))
	p.RegisterPrefix(token.SWITCH, p.primary(p.parseSwitchExpression))
	p.RegisterPrefix(token.BITOR, p.primary(p.parseClosure))
	p.RegisterPrefix(token.OR, p.primary(p.parseClosure))
	p.RegisterPrefix(token.MINUS, p.parsePrefixExpression)
	p.RegisterPrefix(token.PLUS, p.parsePrefixExpression)
	p.RegisterPrefix(token.BANG, p.parsePrefixExpression)

	p.infixParseFns = make(map[token.Type]infixParseFn)
	for _, t := range []token.Type{
		token.PLUS, token.MINUS, token.ASTERISK, token.SLASH, token.PERCENT, token.POW,
		token.SHL, token.SHR, token.BITAND, token.BITOR, token.XOR,
		token.EQ, token.NOTEQ, token.LT, token.GT, token.LTEQ, token.GTEQ,
	} {
		p.RegisterInfix(t, p.parseInfixExpression)
	}
	p.RegisterInfix(token.AND, p.parseLogical)
	p.RegisterInfix(token.OR, p.parseLogical)
	p.RegisterInfix(token.IN, p.parseIn)

	// Read one token, so peekToken is set; every parse function starts with
	// curToken on its first token.
	p.nextToken()
	return p
}

// Parse is the one shot convenience: source to AST or the first error.
func Parse(input string, opts Options) (*ast.AST, error) {
	p := NewWithOptions(lexer.New(input), opts)
	program := p.ParseProgram()
	if err := p.Err(); err != nil {
		return nil, err
	}
	program.Source = input
	return program, nil
}

func (p *Parser) nextToken() {
	p.prevToken = p.curToken
	p.curToken, p.curErr, p.curComments = p.peekToken, p.peekErr, p.peekComments
	p.peekComments = nil
	for {
		p.peekToken = p.l.NextToken()
		switch p.peekToken.Type { //nolint:exhaustive // only comments and errors matter here.
		case token.LINECOMMENT, token.BLOCKCOMMENT:
			if isDocComment(p.peekToken.Literal) {
				p.peekComments = append(p.peekComments, p.peekToken.Literal)
			}
			continue
		case token.ILLEGAL:
			p.peekErr = p.l.Error()
		default:
			p.peekErr = ""
		}
		return
	}
}

func isDocComment(c string) bool {
	return (strings.HasPrefix(c, "///") && !strings.HasPrefix(c, "////")) ||
		(strings.HasPrefix(c, "/**") && !strings.HasPrefix(c, "/***"))
}

// ParseProgram parses the whole input, statements and function definitions.
// Check Errors() or Err() after.
func (p *Parser) ParseProgram() (program *ast.AST) {
	program = &ast.AST{}
	defer func() {
		program.Functions = p.functions
	}()
	defer p.recoverError()
	program.Statements = p.parseStatements(token.EOF)
	return program
}

// ParseExpression parses a single expression spanning the whole input:
// no statements, blocks or closures.
func (p *Parser) ParseExpression() (expr ast.Expr) {
	defer p.recoverError()
	p.set = settings{global: true}
	p.nextToken()
	expr = p.parseExpression(LOWEST)
	if !p.peekTokenIs(token.EOF) {
		p.unexpected(p.peekToken)
	}
	return expr
}

func sameToken(msg string, actual token.Token, expected token.Type) bool {
	if actual.Type == expected {
		return true
	}
	log.Debugf("%s: got %s, expected %s", msg, actual, expected)
	return false
}

func (p *Parser) curTokenIs(t token.Type) bool {
	return sameToken("curTokenIs", p.curToken, t)
}

func (p *Parser) peekTokenIs(t token.Type) bool {
	return p.peekToken.Type == t
}

// expectPeek advances when the next token is t, fails with
// "Expecting 't' context" otherwise.
func (p *Parser) expectPeek(t token.Type, context string) {
	if p.peekTokenIs(t) {
		p.nextToken()
		return
	}
	p.failAt(p.peekToken, "Expecting '%s' %s", token.TypeSyntax(t), context)
}

func (p *Parser) peekPrecedence() Priority {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) parseExpression(precedence Priority) ast.Expr {
	log.Debugf("parseExpression: %s precedence %s", p.curToken, precedence)
	p.enter()
	defer p.leave()
	if precedence == LOWEST {
		if cs, ok := p.customSyntax(p.curToken); ok {
			return p.parseCustomSyntax(cs)
		}
	}
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.unexpected(p.curToken)
	}
	left := prefix()
	for !p.peekTokenIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

// primary adds the postfix handling (calls, indexing, dots, namespaces) to a
// prefix function.
func (p *Parser) primary(fn prefixParseFn) prefixParseFn {
	return func() ast.Expr {
		return p.parsePostfix(fn())
	}
}

func opCall(op string, pos token.Position, args ...ast.Expr) *ast.FnCall {
	return &ast.FnCall{
		Base:     ast.Base{Pos: pos},
		Name:     op,
		Args:     args,
		Hashes:   ast.FnHashes{Native: ast.FnHash(op, len(args))},
		Operator: true,
	}
}

func (p *Parser) parseInfixExpression(left ast.Expr) ast.Expr {
	tok := p.curToken
	precedence := precedences[tok.Type]
	if tok.Type == token.POW {
		precedence-- // right associative.
	}
	p.nextToken()
	right := p.parseExpression(precedence)
	return opCall(token.OperatorString(tok.Type), tok.Pos, left, right)
}

func (p *Parser) parseLogical(left ast.Expr) ast.Expr {
	tok := p.curToken
	p.nextToken()
	right := p.parseExpression(precedences[tok.Type])
	if tok.Type == token.AND {
		return &ast.And{Base: ast.Base{Pos: tok.Pos}, Lhs: left, Rhs: right}
	}
	return &ast.Or{Base: ast.Base{Pos: tok.Pos}, Lhs: left, Rhs: right}
}

// parseIn turns `x in y` into contains(y, x), resolved like a script call so
// scripts can overload it.
func (p *Parser) parseIn(left ast.Expr) ast.Expr {
	tok := p.curToken
	p.nextToken()
	right := p.parseExpression(IN)
	h := ast.FnHash("contains", 2)
	return &ast.FnCall{
		Base:   ast.Base{Pos: tok.Pos},
		Name:   "contains",
		Args:   []ast.Expr{right, left},
		Hashes: ast.FnHashes{Script: h, Native: h},
	}
}

func (p *Parser) parsePrefixExpression() ast.Expr {
	tok := p.curToken
	p.nextToken()
	operand := p.parseExpression(PREFIX)
	switch tok.Type { //nolint:exhaustive // only the 3 registered.
	case token.MINUS:
		switch lit := operand.(type) {
		case *ast.IntLit:
			lit.Val = -lit.Val
			lit.Pos = tok.Pos
			return lit
		case *ast.FloatLit:
			lit.Val = -lit.Val
			lit.Pos = tok.Pos
			return lit
		}
		return opCall("-", tok.Pos, operand)
	case token.PLUS:
		switch operand.(type) {
		case *ast.IntLit, *ast.FloatLit:
			return operand
		}
		return opCall("+", tok.Pos, operand)
	default:
		return opCall("!", tok.Pos, operand)
	}
}

func (p *Parser) parseIntegerLiteral() ast.Expr {
	tok := p.curToken
	lit := strings.ReplaceAll(tok.Literal, "_", "")
	base := 10
	if len(lit) > 2 && lit[0] == '0' && strings.ContainsRune("xXoObB", rune(lit[1])) {
		base = 0
	}
	v, err := strconv.ParseInt(lit, base, 64)
	if err != nil {
		p.fail(tok.Pos, "Invalid number: '%s'", tok.Literal)
	}
	return &ast.IntLit{Base: ast.Base{Pos: tok.Pos}, Val: v}
}

func (p *Parser) parseFloatLiteral() ast.Expr {
	tok := p.curToken
	v, err := strconv.ParseFloat(strings.ReplaceAll(tok.Literal, "_", ""), 64)
	if err != nil {
		p.fail(tok.Pos, "Invalid number: '%s'", tok.Literal)
	}
	return &ast.FloatLit{Base: ast.Base{Pos: tok.Pos}, Val: v}
}

func (p *Parser) parseStringLiteral() ast.Expr {
	return &ast.StringLit{Base: ast.Base{Pos: p.curToken.Pos}, Val: p.curToken.Literal}
}

func (p *Parser) parseCharLiteral() ast.Expr {
	r, _ := utf8.DecodeRuneInString(p.curToken.Literal)
	return &ast.CharLit{Base: ast.Base{Pos: p.curToken.Pos}, Val: r}
}

func (p *Parser) parseBoolean() ast.Expr {
	return &ast.BoolLit{Base: ast.Base{Pos: p.curToken.Pos}, Val: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseGroupedExpression() ast.Expr {
	pos := p.curToken.Pos
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return &ast.Unit{Base: ast.Base{Pos: pos}}
	}
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	p.expectPeek(token.RPAREN, "for a matching ( in this expression")
	return exp
}

func (p *Parser) parseBlockExpression() ast.Expr {
	if !p.set.allowStmt {
		p.unexpected(p.curToken)
	}
	pos := p.curToken.Pos
	return &ast.StmtExpr{Base: ast.Base{Pos: pos}, Block: p.parseBlock()}
}

func (p *Parser) parseIfExpression() ast.Expr {
	if !p.set.allowIf {
		p.unexpected(p.curToken)
	}
	stmt := p.parseIf()
	return stmtExpr(stmt)
}

func (p *Parser) parseSwitchExpression() ast.Expr {
	if !p.set.allowSwitch {
		p.unexpected(p.curToken)
	}
	stmt := p.parseSwitch()
	return stmtExpr(stmt)
}

func stmtExpr(stmt ast.Stmt) *ast.StmtExpr {
	pos := stmt.Position()
	return &ast.StmtExpr{Base: ast.Base{Pos: pos}, Block: &ast.Block{Base: ast.Base{Pos: pos}, Stmts: []ast.Stmt{stmt}}}
}

func (p *Parser) parseArrayLiteral() ast.Expr {
	arr := &ast.ArrayLit{Base: ast.Base{Pos: p.curToken.Pos}}
	for {
		switch p.peekToken.Type { //nolint:exhaustive // default is an element.
		case token.RBRACKET:
			p.nextToken()
			return arr
		case token.EOF:
			p.failAt(p.peekToken, "Expecting ']' to end this array literal")
		}
		if p.opts.MaxArraySize > 0 && len(arr.Elements) >= p.opts.MaxArraySize {
			p.fail(p.peekToken.Pos, "Size of array literal exceeds the maximum limit (%d)", p.opts.MaxArraySize)
		}
		p.nextToken()
		arr.Elements = append(arr.Elements, p.parseExpression(LOWEST))
		switch p.peekToken.Type { //nolint:exhaustive // default is an error.
		case token.COMMA:
			p.nextToken()
		case token.RBRACKET:
		case token.EOF:
			p.failAt(p.peekToken, "Expecting ']' to end this array literal")
		default:
			p.failAt(p.peekToken, "Expecting ',' to separate the items of this array literal")
		}
	}
}

func (p *Parser) parseMapLiteral() ast.Expr {
	m := &ast.MapLit{Base: ast.Base{Pos: p.curToken.Pos}}
	seen := sets.New[string]()
	for {
		switch p.peekToken.Type { //nolint:exhaustive // default is a property.
		case token.RBRACE:
			p.nextToken()
			return m
		case token.EOF:
			p.failAt(p.peekToken, "Expecting '}' to end this object map literal")
		}
		p.nextToken()
		tok := p.curToken
		switch tok.Type { //nolint:exhaustive // default is an error.
		case token.IDENT, token.STRING:
			if seen.Has(tok.Literal) {
				p.fail(tok.Pos, "Duplicated property '%s' for object map literal", tok.Literal)
			}
		case token.RESERVED:
			p.fail(tok.Pos, "'%s' is a reserved keyword", tok.Literal)
		default:
			p.failAt(tok, "Expecting name of a property")
		}
		p.expectPeek(token.COLON, fmt.Sprintf("to follow the property '%s' in this object map literal", tok.Literal))
		if p.opts.MaxMapSize > 0 && len(m.Keys) >= p.opts.MaxMapSize {
			p.fail(tok.Pos, "Number of properties in object map literal exceeds the maximum limit (%d)", p.opts.MaxMapSize)
		}
		p.nextToken()
		value := p.parseExpression(LOWEST)
		seen.Add(tok.Literal)
		m.Keys = append(m.Keys, ast.Ident{Name: tok.Literal, Pos: tok.Pos})
		m.Values = append(m.Values, value)
		switch p.peekToken.Type { //nolint:exhaustive // default is an error.
		case token.COMMA:
			p.nextToken()
		case token.RBRACE:
		case token.IDENT, token.STRING:
			p.failAt(p.peekToken, "Expecting ',' to separate the items of this object map literal")
		default:
			p.failAt(p.peekToken, "Expecting '}' to end this object map literal")
		}
	}
}

func (p *Parser) parseIdentifier() ast.Expr {
	tok := p.curToken
	pos := ast.Base{Pos: tok.Pos}
	name := tok.Literal
	switch {
	case p.peekTokenIs(token.LPAREN) || p.peekTokenIs(token.BANG) || p.peekTokenIs(token.DOUBLECOLON):
		// function call or namespace root, not a variable access.
		p.fr.allowCapture = true
		return &ast.Variable{Base: pos, Name: name}
	case name == token.KeywordThis:
		if !p.set.fnScope {
			p.fail(tok.Pos, "'this' can only be used in functions")
		}
		return &ast.Variable{Base: pos, Name: name}
	case token.IsKeywordFunction(name):
		p.fail(tok.Pos, "'%s' is a reserved keyword", name)
	}
	return &ast.Variable{Base: pos, Name: name, Index: p.fr.accessVar(name)}
}

// varName returns the current token as the name of a new variable.
func (p *Parser) varName() ast.Ident {
	tok := p.curToken
	switch tok.Type { //nolint:exhaustive // default is an error.
	case token.IDENT:
		if token.IsKeywordFunction(tok.Literal) || tok.Literal == token.KeywordThis {
			p.fail(tok.Pos, "'%s' is a reserved keyword", tok.Literal)
		}
		return ast.Ident{Name: tok.Literal, Pos: tok.Pos}
	case token.RESERVED:
		p.fail(tok.Pos, "'%s' is a reserved keyword", tok.Literal)
	default:
		p.failAt(tok, "Expecting name of a variable")
	}
	return ast.Ident{}
}

// validPostfix lists which postfix operators can follow a given expression.
func validPostfix(expr ast.Expr, t token.Type) bool {
	if t == token.DOT {
		return true
	}
	switch expr.(type) {
	case *ast.FloatLit, *ast.BoolLit, *ast.CharLit, *ast.And, *ast.Or, *ast.Unit, *ast.Custom, *ast.FnPtrLit:
		return false
	case *ast.Variable:
		return t == token.LBRACKET || t == token.LPAREN || t == token.BANG || t == token.DOUBLECOLON
	case *ast.Property:
		return t == token.LBRACKET || t == token.LPAREN
	default:
		return t == token.LBRACKET
	}
}

func (p *Parser) parsePostfix(expr ast.Expr) ast.Expr {
	for validPostfix(expr, p.peekToken.Type) {
		p.nextToken()
		tok := p.curToken
		switch tok.Type { //nolint:exhaustive // validPostfix filters.
		case token.BANG:
			v := expr.(*ast.Variable)
			if v.Namespace != nil {
				p.fail(tok.Pos, "'!' cannot be used to call module functions")
			}
			p.expectPeek(token.LPAREN, "to start arguments list of function call")
			expr = p.parseCallArguments(v.Name, nil, true, v.Pos)
		case token.LPAREN:
			switch v := expr.(type) {
			case *ast.Variable:
				expr = p.parseCallArguments(v.Name, v.Namespace, false, v.Pos)
			case *ast.Property:
				expr = p.parseCallArguments(v.Name, nil, false, v.Pos)
			}
		case token.DOUBLECOLON:
			v := expr.(*ast.Variable)
			ns := v.Namespace
			if ns == nil {
				ns = &ast.Namespace{}
			}
			ns.Path = append(ns.Path, ast.Ident{Name: v.Name, Pos: v.Pos})
			p.nextToken()
			id := p.varName()
			ns.Index = p.fr.findModule(ns.Root().Name)
			expr = &ast.Variable{
				Base:      ast.Base{Pos: id.Pos},
				Name:      id.Name,
				Namespace: ns,
				Hash:      ast.QualifiedVarHash(ns.Names(), id.Name),
			}
		case token.LBRACKET:
			expr = p.parseIndexChain(expr)
		case token.DOT:
			if !p.peekTokenIs(token.IDENT) {
				p.failAt(p.peekToken, "Expecting name of a property")
			}
			if !token.IsKeywordFunction(p.peekToken.Literal) {
				p.fr.allowCapture = false
			}
			p.nextToken()
			rhs := p.parsePostfix(p.parseIdentifier())
			expr = p.makeDotExpr(expr, false, rhs, tok.Pos)
		}
	}
	return expr
}

// parseCallArguments parses the arguments of a call; cur is `(`.
func (p *Parser) parseCallArguments(name string, ns *ast.Namespace, capture bool, pos token.Position) ast.Expr {
	call := &ast.FnCall{Base: ast.Base{Pos: pos}, Name: name, Namespace: ns, Capture: capture}
	if !p.peekTokenIs(token.RPAREN) {
	loop:
		for {
			if p.peekTokenIs(token.EOF) {
				p.failAt(p.peekToken, "Expecting ')' to close the arguments list of this function call '%s'", name)
			}
			p.nextToken()
			call.Args = append(call.Args, p.parseExpression(LOWEST))
			switch p.peekToken.Type { //nolint:exhaustive // default is an error.
			case token.COMMA:
				p.nextToken()
				if p.peekTokenIs(token.RPAREN) {
					break loop
				}
			case token.RPAREN:
				break loop
			case token.EOF:
				p.failAt(p.peekToken, "Expecting ')' to close the arguments list of this function call '%s'", name)
			default:
				p.failAt(p.peekToken, "Expecting ',' to separate the arguments to function call '%s'", name)
			}
		}
	}
	p.nextToken() // `)`
	var h uint64
	if ns != nil {
		ns.Index = p.fr.findModule(ns.Root().Name)
		h = ast.QualifiedFnHash(ns.Names(), name, len(call.Args))
	} else {
		h = ast.FnHash(name, len(call.Args))
	}
	call.Hashes = ast.FnHashes{Script: h, Native: h}
	return call
}

// parseIndexChain parses `[idx]` and any directly following indexing; cur is `[`.
// Chains nest to the right: a[1][2] is Index(a, Index(1, 2)).
func (p *Parser) parseIndexChain(lhs ast.Expr) ast.Expr {
	pos := p.curToken.Pos
	p.nextToken()
	idx := p.parseExpression(LOWEST)
	p.checkIndex(lhs, idx)
	p.expectPeek(token.RBRACKET, "for a matching [ in this index expression")
	if p.peekTokenIs(token.LBRACKET) {
		p.nextToken()
		inner := p.parseIndexChain(idx)
		return &ast.Index{Base: ast.Base{Pos: pos}, Lhs: lhs, Rhs: inner}
	}
	return &ast.Index{Base: ast.Base{Pos: pos}, Lhs: lhs, Rhs: idx, Terminate: true}
}

func notIndexable(e ast.Expr) bool {
	switch e.(type) {
	case *ast.FloatLit, *ast.CharLit, *ast.And, *ast.Or, *ast.BoolLit, *ast.Unit:
		return true
	}
	return false
}

// checkIndex rejects literal index/target combinations that can never work.
func (p *Parser) checkIndex(lhs, idx ast.Expr) {
	switch idx.(type) {
	case *ast.IntLit:
		if _, ok := lhs.(*ast.MapLit); ok {
			p.fail(idx.Position(), "Object map access expects string index, not a number")
		}
		if notIndexable(lhs) {
			p.fail(lhs.Position(), "Only arrays, object maps and strings can be indexed")
		}
	case *ast.StringLit, *ast.InterpolatedString:
		switch lhs.(type) {
		case *ast.ArrayLit, *ast.StringLit, *ast.InterpolatedString:
			p.fail(idx.Position(), "Array or string expects numeric index, not a string")
		}
		if notIndexable(lhs) {
			p.fail(lhs.Position(), "Only arrays, object maps and strings can be indexed")
		}
	case *ast.FloatLit:
		p.fail(idx.Position(), "Array access expects integer index, not a float")
	case *ast.CharLit:
		p.fail(idx.Position(), "Array access expects integer index, not a character")
	case *ast.Unit:
		p.fail(idx.Position(), "Array access expects integer index, not ()")
	case *ast.And, *ast.Or, *ast.BoolLit:
		p.fail(idx.Position(), "Array access expects integer index, not a boolean")
	}
}

func intoProperty(v *ast.Variable) *ast.Property {
	getter := "get$" + v.Name
	setter := "set$" + v.Name
	return &ast.Property{
		Base:       v.Base,
		Name:       v.Name,
		Getter:     getter,
		Setter:     setter,
		GetterHash: ast.FnHash(getter, 1),
		SetterHash: ast.FnHash(setter, 2),
	}
}

// methodHashes switches a call to method call hashes: the object is an extra
// first argument for native functions, `this` for script ones.
func methodHashes(f *ast.FnCall) {
	f.Hashes = ast.FnHashes{Script: ast.FnHash(f.Name, len(f.Args)), Native: ast.FnHash(f.Name, len(f.Args)+1)}
}

// dotLink converts the head of the right side of a dot into a property or
// method call.
func (p *Parser) dotLink(e ast.Expr) ast.Expr {
	switch x := e.(type) {
	case *ast.Variable:
		if x.Namespace != nil {
			p.fail(x.Namespace.Root().Pos, "Expecting name of a property")
		}
		return intoProperty(x)
	case *ast.Property:
		return x
	case *ast.FnCall:
		p.checkMethodCall(x)
		methodHashes(x)
		return x
	}
	p.fail(e.Position(), "Expecting name of a property")
	return nil
}

func (p *Parser) checkMethodCall(f *ast.FnCall) {
	if f.Namespace != nil {
		p.fail(f.Namespace.Root().Pos, "Expecting name of a property")
	}
	if f.Name == token.KeywordFnPtr || f.Name == token.KeywordEval {
		p.fail(f.Pos, "'%s' should not be called in method style. Try %s(...);", f.Name, f.Name)
	}
	if f.Capture {
		p.fail(f.Pos, "method-call style does not support capturing")
	}
}

// makeDotExpr builds lhs.rhs keeping chains nested to the right.
func (p *Parser) makeDotExpr(lhs ast.Expr, terminate bool, rhs ast.Expr, opPos token.Position) ast.Expr {
	// a terminated index's rhs is the index value itself, not a link.
	if idx, ok := lhs.(*ast.Index); ok && !terminate {
		idx.Rhs = p.makeDotExpr(idx.Rhs, idx.Terminate, rhs, opPos)
		idx.Terminate = false
		return idx
	}
	dot := &ast.Dot{Base: ast.Base{Pos: opPos}, Lhs: lhs}
	switch r := rhs.(type) {
	case *ast.Variable, *ast.Property, *ast.FnCall:
		dot.Rhs = p.dotLink(r)
	case *ast.Dot:
		r.Lhs = p.dotLink(r.Lhs)
		dot.Rhs = r
	case *ast.Index:
		r.Lhs = p.dotLink(r.Lhs)
		dot.Rhs = r
	default:
		p.fail(rhs.Position(), "Expecting name of a property")
	}
	return dot
}

// parseClosure parses |params| body; cur is `|` or `||`.
func (p *Parser) parseClosure() ast.Expr {
	if !p.set.allowAnonFn {
		p.unexpected(p.curToken)
	}
	pos := p.curToken.Pos
	var fn *ast.ScriptFnDef
	p.inFunction(func() {
		var params []string
		if p.curTokenIs(token.BITOR) {
			if p.peekTokenIs(token.BITOR) {
				p.nextToken()
			} else {
				params = p.parseClosureParams()
			}
		}
		p.nextToken()
		body := p.parseStatement()
		externals := slices.Sorted(maps.Keys(p.fr.externals))
		all := append(slices.Clone(externals), params...)
		fn = &ast.ScriptFnDef{
			Pos:       pos,
			Name:      anonName(all, body),
			Params:    all,
			Body:      toBlock(body),
			Externals: externals,
		}
	})
	for _, ext := range fn.Externals {
		p.fr.accessVar(ext)
	}
	p.addFunction(fn)
	lit := &ast.FnPtrLit{Base: ast.Base{Pos: pos}, Name: fn.Name}
	if len(fn.Externals) == 0 {
		return lit
	}
	return makeCurry(lit, fn.Externals, pos)
}

func (p *Parser) parseClosureParams() []string {
	var params []string
	for {
		p.nextToken()
		tok := p.curToken
		if !p.curTokenIs(token.IDENT) || token.IsKeywordFunction(tok.Literal) {
			p.failAt(tok, "Expecting '|' to close the parameters list of anonymous function")
		}
		if slices.Contains(params, tok.Literal) {
			p.fail(tok.Pos, "Duplicated parameter '%s' for function 'anonymous'", tok.Literal)
		}
		p.fr.push(tok.Literal)
		params = append(params, tok.Literal)
		p.nextToken()
		switch p.curToken.Type { //nolint:exhaustive // default is an error.
		case token.BITOR:
			return params
		case token.COMMA:
		default:
			p.failAt(p.curToken, "Expecting ',' to separate the parameters of anonymous function")
		}
	}
}

// anonName gives identical closures the same name.
func anonName(params []string, body ast.Stmt) string {
	d := xxhash.New()
	for _, param := range params {
		_, _ = d.WriteString(param)
		_, _ = d.Write([]byte{0})
	}
	_, _ = d.WriteString(body.String())
	return fmt.Sprintf("%s%016x", ast.AnonFnPrefix, d.Sum64())
}

func toBlock(s ast.Stmt) *ast.Block {
	if b, ok := s.(*ast.BlockStmt); ok {
		return b.Block
	}
	return &ast.Block{Base: ast.Base{Pos: s.Position()}, Stmts: []ast.Stmt{s}}
}

// makeCurry shares the captured variables and curries them, in order, as the
// leading arguments of the closure: { share a; share b; curry(fn, a, b) }.
func makeCurry(fn ast.Expr, externals []string, pos token.Position) ast.Expr {
	base := ast.Base{Pos: pos}
	args := make([]ast.Expr, 0, len(externals)+1)
	args = append(args, fn)
	stmts := make([]ast.Stmt, 0, len(externals)+1)
	for _, name := range externals {
		args = append(args, &ast.Variable{Base: base, Name: name})
		stmts = append(stmts, &ast.Share{Base: base, Name: name})
	}
	call := &ast.FnCall{
		Base:   base,
		Name:   token.KeywordCurry,
		Args:   args,
		Hashes: ast.FnHashes{Native: ast.FnHash(token.KeywordCurry, len(args))},
	}
	stmts = append(stmts, &ast.ExprStmt{Base: base, Expr: call})
	return &ast.StmtExpr{Base: base, Block: &ast.Block{Base: base, Stmts: stmts}}
}

// addFunction registers fn, closures with the same name are the same closure.
func (p *Parser) addFunction(fn *ast.ScriptFnDef) {
	h := ast.FnHash(fn.Name, len(fn.Params))
	if i, found := p.fnIndex[h]; found {
		p.functions[i] = fn
		return
	}
	p.fnIndex[h] = len(p.functions)
	p.functions = append(p.functions, fn)
}

// parseInterpolated splits a backtick string into literal parts and ${}
// blocks; cur is the BACKTICK token.
func (p *Parser) parseInterpolated() ast.Expr {
	tok := p.curToken
	raw := tok.Literal
	if !strings.Contains(raw, "${") {
		return &ast.StringLit{Base: ast.Base{Pos: tok.Pos}, Val: raw}
	}
	res := &ast.InterpolatedString{Base: ast.Base{Pos: tok.Pos}}
	offset := 0
	for {
		start := strings.Index(raw[offset:], "${")
		if start < 0 {
			break
		}
		start += offset
		if start > offset {
			res.Parts = append(res.Parts, &ast.StringLit{Base: ast.Base{Pos: bytePos(tok.Pos, raw[:offset])}, Val: raw[offset:start]})
		}
		end := matchingBrace(raw, start+2)
		if end < 0 {
			p.fail(bytePos(tok.Pos, raw[:start]), "Expecting '}' to terminate this interpolated expression")
		}
		res.Parts = append(res.Parts, p.parseSubBlock(raw[start+2:end], bytePos(tok.Pos, raw[:start+2])))
		offset = end + 1
	}
	if offset < len(raw) {
		res.Parts = append(res.Parts, &ast.StringLit{Base: ast.Base{Pos: bytePos(tok.Pos, raw[:offset])}, Val: raw[offset:]})
	}
	return res
}

// matchingBrace finds the `}` closing the block starting at from.
func matchingBrace(s string, from int) int {
	depth := 1
	for i := from; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// bytePos is the position just after prefix, for a backtick string at start.
func bytePos(start token.Position, prefix string) token.Position {
	pos := token.Position{Line: start.Line, Col: start.Col + 1}
	for i := range len(prefix) {
		if prefix[i] == '\n' {
			pos.Line++
			pos.Col = 1
			continue
		}
		pos.Col++
	}
	return pos
}

// parseSubBlock parses src, positioned at pos, as a block using a temporary lexer.
func (p *Parser) parseSubBlock(src string, pos token.Position) ast.Expr {
	savedL := p.l
	savedPrev, savedCur, savedPeek := p.prevToken, p.curToken, p.peekToken
	savedCurErr, savedPeekErr := p.curErr, p.peekErr
	defer func() {
		p.l = savedL
		p.prevToken, p.curToken, p.peekToken = savedPrev, savedCur, savedPeek
		p.curErr, p.peekErr = savedCurErr, savedPeekErr
	}()
	p.l = lexer.NewAt(src, pos)
	p.peekToken = token.Token{}
	p.nextToken()
	base := ast.Base{Pos: pos}
	block := &ast.Block{Base: base, Stmts: p.scopedStatements(token.EOF)}
	return &ast.StmtExpr{Base: base, Block: block}
}

package parser

import (
	"strconv"

	"grol.io/rhai/ast"
	"grol.io/rhai/object"
	"grol.io/rhai/token"
)

// Custom syntax markers, segments matched by kind rather than by text.
const (
	MarkerIdent  = "$ident$"
	MarkerSymbol = "$symbol$"
	MarkerExpr   = "$expr$"
	MarkerBlock  = "$block$"
	MarkerBool   = "$bool$"
	MarkerInt    = "$int$"
	MarkerFloat  = "$float$"
	MarkerString = "$string$"
)

// CustomSyntax drives the parsing of a syntax extension starting with a
// registered keyword. Next gets the segments matched so far (keyword
// included) and the text of the upcoming token; it returns the next
// segment to match, a marker or literal text, or "" when done.
type CustomSyntax struct {
	Next              func(segments []string, look string) (string, error)
	ScopeMayBeChanged bool // the syntax can define variables in the caller's scope.
}

// SymbolsSyntax is the Next function of a syntax made of a fixed list of
// segments, keyword first.
func SymbolsSyntax(symbols []string) func([]string, string) (string, error) {
	return func(segments []string, _ string) (string, error) {
		if len(segments) >= len(symbols) {
			return "", nil
		}
		return symbols[len(segments)], nil
	}
}

func (p *Parser) customSyntax(tok token.Token) (*CustomSyntax, bool) {
	if len(p.opts.CustomSyntax) == 0 || (tok.Type != token.IDENT && tok.Type != token.RESERVED) {
		return nil, false
	}
	cs, ok := p.opts.CustomSyntax[tok.Literal]
	return cs, ok
}

// isSymbol is true for operator and punctuation tokens.
func isSymbol(tok token.Token) bool {
	return token.OperatorString(tok.Type) != ""
}

// parseCustomSyntax parses a registered syntax; cur is its keyword.
func (p *Parser) parseCustomSyntax(cs *CustomSyntax) ast.Expr {
	key := p.curToken
	if cs.ScopeMayBeChanged {
		// stays until the enclosing block ends: offsets can't be trusted past it.
		p.fr.push(object.Barrier)
	}
	res := &ast.Custom{Base: ast.Base{Pos: key.Pos}, ScopeMayBeChanged: cs.ScopeMayBeChanged}
	segments := []string{key.Literal}
	res.Tokens = []string{key.Literal}
	required := key.Literal
	for {
		next, err := cs.Next(segments, p.peekToken.Syntax())
		if err != nil {
			p.fail(p.peekToken.Pos, "%v", err)
		}
		if next == "" {
			break
		}
		required = next
		seg := next
		switch next {
		case MarkerIdent:
			p.nextToken()
			id := p.varName()
			seg = id.Name
			res.Keywords = append(res.Keywords, &ast.Variable{Base: ast.Base{Pos: id.Pos}, Name: id.Name})
		case MarkerSymbol:
			p.nextToken()
			if !isSymbol(p.curToken) {
				p.failAt(p.curToken, "Expecting a symbol for '%s' expression", key.Literal)
			}
			seg = p.curToken.Syntax()
			res.Keywords = append(res.Keywords, &ast.StringLit{Base: ast.Base{Pos: p.curToken.Pos}, Val: seg})
		case MarkerExpr:
			p.nextToken()
			res.Keywords = append(res.Keywords, p.parseExpression(LOWEST))
		case MarkerBlock:
			p.expectPeek(token.LBRACE, "to start a statement block")
			pos := p.curToken.Pos
			res.Keywords = append(res.Keywords, &ast.StmtExpr{Base: ast.Base{Pos: pos}, Block: p.parseBlock()})
		case MarkerBool:
			p.nextToken()
			if !p.curTokenIs(token.TRUE) && !p.curTokenIs(token.FALSE) {
				p.failAt(p.curToken, "Expecting 'true' or 'false' for '%s' expression", key.Literal)
			}
			seg = p.curToken.Literal
			res.Keywords = append(res.Keywords, p.parseBoolean())
		case MarkerInt:
			p.nextToken()
			if !p.curTokenIs(token.INT) {
				p.failAt(p.curToken, "Expecting an integer number for '%s' expression", key.Literal)
			}
			lit := p.parseIntegerLiteral().(*ast.IntLit)
			seg = strconv.FormatInt(lit.Val, 10)
			res.Keywords = append(res.Keywords, lit)
		case MarkerFloat:
			p.nextToken()
			if !p.curTokenIs(token.FLOAT) {
				p.failAt(p.curToken, "Expecting a floating-point number for '%s' expression", key.Literal)
			}
			seg = p.curToken.Literal
			res.Keywords = append(res.Keywords, p.parseFloatLiteral())
		case MarkerString:
			p.nextToken()
			if !p.curTokenIs(token.STRING) {
				p.failAt(p.curToken, "Expecting a string for '%s' expression", key.Literal)
			}
			seg = p.curToken.Literal
			res.Keywords = append(res.Keywords, p.parseStringLiteral())
		default:
			p.nextToken()
			if p.curToken.Syntax() != next {
				p.failAt(p.curToken, "Expecting '%s' for '%s' expression", next, key.Literal)
			}
		}
		segments = append(segments, seg)
		res.Tokens = append(res.Tokens, next)
	}
	res.SelfTerminated = required == MarkerBlock || required == ";" || required == "}"
	return res
}

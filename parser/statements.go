package parser

import (
	"slices"
	"strconv"

	"grol.io/rhai/ast"
	"grol.io/rhai/object"
	"grol.io/rhai/token"
)

// parseStatements parses statements until end, which is left as peekToken.
func (p *Parser) parseStatements(end token.Type) []ast.Stmt {
	var stmts []ast.Stmt
	for !p.peekTokenIs(end) {
		if p.peekTokenIs(token.EOF) {
			p.failAt(p.peekToken, "Expecting '}' to terminate this block")
		}
		p.nextToken()
		stmt := p.parseStatement()
		if _, noop := stmt.(*ast.Noop); noop {
			continue
		}
		stmts = append(stmts, stmt)
		switch p.peekToken.Type { //nolint:exhaustive // default needs a ;
		case token.SEMICOLON:
			p.nextToken()
		case end, token.EOF:
		default:
			if !selfTerminated(stmt) {
				p.failAt(p.peekToken, "Expecting ';' to terminate this statement")
			}
		}
	}
	return stmts
}

// selfTerminated statements don't need a ; before the next one.
func selfTerminated(s ast.Stmt) bool {
	switch st := s.(type) {
	case *ast.If, *ast.Switch, *ast.While, *ast.For, *ast.BlockStmt, *ast.TryCatch:
		return true
	case *ast.ExprStmt:
		c, ok := st.Expr.(*ast.Custom)
		return ok && c.SelfTerminated
	}
	return false
}

// scopedStatements is parseStatements for a nested block: variables and
// imports declared inside are forgotten at the end.
func (p *Parser) scopedStatements(end token.Type) []ast.Stmt {
	fr := p.fr
	prevEntry, prevModules, prevGlobal := fr.entryStackLen, len(fr.modules), p.set.global
	fr.entryStackLen = len(fr.stack)
	p.set.global = false
	stmts := p.parseStatements(end)
	fr.stack = fr.stack[:fr.entryStackLen]
	fr.entryStackLen = prevEntry
	fr.modules = fr.modules[:prevModules]
	p.set.global = prevGlobal
	return stmts
}

// parseBlock parses { ... }; cur is `{`.
func (p *Parser) parseBlock() *ast.Block {
	p.enter()
	defer p.leave()
	block := &ast.Block{Base: ast.Base{Pos: p.curToken.Pos}}
	block.Stmts = p.scopedStatements(token.RBRACE)
	p.nextToken() // `}`
	return block
}

func (p *Parser) expectBlock() *ast.Block {
	p.expectPeek(token.LBRACE, "to start a statement block")
	return p.parseBlock()
}

func (p *Parser) parseStatement() ast.Stmt {
	tok := p.curToken
	switch tok.Type { //nolint:exhaustive // default is an expression.
	case token.SEMICOLON:
		return &ast.Noop{Base: ast.Base{Pos: tok.Pos}}
	case token.LBRACE:
		return &ast.BlockStmt{Base: ast.Base{Pos: tok.Pos}, Block: p.parseBlock()}
	case token.FN, token.PRIVATE:
		if !p.set.global {
			p.fail(tok.Pos, "Function definitions must be at global level and cannot be inside a block or another function")
		}
		return p.parseFnDefinition()
	case token.IF:
		return p.parseIf()
	case token.SWITCH:
		return p.parseSwitch()
	case token.WHILE, token.LOOP:
		return p.parseWhile()
	case token.DO:
		return p.parseDo()
	case token.FOR:
		return p.parseFor()
	case token.CONTINUE, token.BREAK:
		if !p.set.breakable {
			p.fail(tok.Pos, "Break statement should only be used inside a loop")
		}
		if tok.Type == token.CONTINUE {
			return &ast.Continue{Base: ast.Base{Pos: tok.Pos}}
		}
		return &ast.Break{Base: ast.Base{Pos: tok.Pos}}
	case token.RETURN, token.THROW:
		return p.parseReturn()
	case token.TRY:
		return p.parseTryCatch()
	case token.LET, token.CONST:
		return p.parseLet(false)
	case token.IMPORT:
		return p.parseImport()
	case token.EXPORT:
		if !p.set.global {
			p.fail(tok.Pos, "Export statement can only appear at global level")
		}
		return p.parseExport()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseExpressionStatement() ast.Stmt {
	expr := p.parseExpression(LOWEST)
	if p.peekTokenIs(token.ASSIGN) {
		p.nextToken()
		return p.parseAssignment(expr)
	}
	if _, ok := token.CompoundBase(p.peekToken.Type); ok {
		p.nextToken()
		return p.parseAssignment(expr)
	}
	return &ast.ExprStmt{Base: ast.Base{Pos: expr.Position()}, Expr: expr}
}

// parseAssignment parses the value of lhs = value or lhs op= value; cur is the operator.
func (p *Parser) parseAssignment(lhs ast.Expr) ast.Stmt {
	tok := p.curToken
	p.checkAssignable(lhs, tok.Pos)
	stmt := &ast.Assignment{Base: ast.Base{Pos: tok.Pos}, Lhs: lhs}
	if base, ok := token.CompoundBase(tok.Type); ok {
		op := token.OperatorString(tok.Type)
		baseOp := token.OperatorString(base)
		stmt.Op = &ast.OpAssign{
			Op:         op,
			BaseOp:     baseOp,
			HashOp:     ast.FnHash(op, 2),
			HashBaseOp: ast.FnHash(baseOp, 2),
			Pos:        tok.Pos,
		}
	}
	p.nextToken()
	stmt.Rhs = p.parseExpression(LOWEST)
	return stmt
}

func isConstant(e ast.Expr) bool {
	_, ok := constValue(e)
	return ok
}

func (p *Parser) checkAssignable(lhs ast.Expr, opPos token.Position) {
	var root, rhs ast.Expr
	var isDot bool
	switch l := lhs.(type) {
	case *ast.Variable:
		// constness is checked at run time.
		return
	case *ast.Index:
		root, rhs = l.Lhs, l.Rhs
	case *ast.Dot:
		root, rhs, isDot = l.Lhs, l.Rhs, true
	case *ast.And, *ast.Or:
		p.fail(opPos, "Possibly a typo of '=='?")
	default:
		if isConstant(lhs) {
			p.fail(lhs.Position(), "Cannot assign to a constant value")
		}
		p.fail(lhs.Position(), "Expression cannot be assigned to")
	}
	if pos, bad := checkLvalue(rhs, isDot); bad {
		p.fail(pos, "Expression cannot be assigned to")
	}
	if _, ok := root.(*ast.Variable); !ok {
		p.fail(root.Position(), "Expression cannot be assigned to")
	}
}

// checkLvalue finds, in the rest of a chain, a link that can't be written
// through: anything but a property after a dot.
func checkLvalue(e ast.Expr, parentIsDot bool) (token.Position, bool) {
	var lhs, rhs ast.Expr
	isDot := false
	switch x := e.(type) {
	case *ast.Index:
		lhs, rhs = x.Lhs, x.Rhs
	case *ast.Dot:
		lhs, rhs, isDot = x.Lhs, x.Rhs, true
	case *ast.Property:
		return token.NONE, false
	default:
		if parentIsDot {
			return e.Position(), true
		}
		return token.NONE, false
	}
	if parentIsDot {
		if _, ok := lhs.(*ast.Property); !ok {
			return lhs.Position(), true
		}
	}
	return checkLvalue(rhs, isDot)
}

// literalTypeName describes literal expressions in type errors, "" otherwise.
func literalTypeName(e ast.Expr) string {
	switch e.(type) {
	case *ast.Unit:
		return "()"
	case *ast.IntLit:
		return "a number"
	case *ast.FloatLit:
		return "a floating-point number"
	case *ast.CharLit:
		return "a character"
	case *ast.StringLit, *ast.InterpolatedString:
		return "a string"
	case *ast.ArrayLit:
		return "an array"
	case *ast.MapLit:
		return "an object map"
	case *ast.BoolLit, *ast.And, *ast.Or:
		return "a boolean"
	}
	return ""
}

func (p *Parser) ensureBool(e ast.Expr) {
	switch e.(type) {
	case *ast.BoolLit, *ast.And, *ast.Or:
		return
	}
	if name := literalTypeName(e); name != "" {
		p.fail(e.Position(), "Expecting a boolean expression, not %s", name)
	}
}

func (p *Parser) ensureIterable(e ast.Expr) {
	switch e.(type) {
	case *ast.Unit, *ast.BoolLit, *ast.And, *ast.Or, *ast.CharLit, *ast.FloatLit, *ast.MapLit:
		p.fail(e.Position(), "Expecting an iterable value, not %s", literalTypeName(e))
	}
}

// parseCondition parses the guard of if/while/do; cur is its first token.
func (p *Parser) parseCondition() ast.Expr {
	if p.curTokenIs(token.LBRACE) {
		p.fail(p.curToken.Pos, "Expecting a boolean expression")
	}
	cond := p.parseExpression(LOWEST)
	p.ensureBool(cond)
	if p.peekTokenIs(token.ASSIGN) {
		p.fail(p.peekToken.Pos, "Possibly a typo of '=='?")
	}
	return cond
}

func (p *Parser) parseIf() *ast.If {
	pos := p.curToken.Pos
	p.nextToken()
	stmt := &ast.If{Base: ast.Base{Pos: pos}, Cond: p.parseCondition()}
	stmt.Then = p.expectBlock()
	if !p.peekTokenIs(token.ELSE) {
		return stmt
	}
	p.nextToken()
	if p.peekTokenIs(token.IF) {
		p.nextToken()
		elseIf := p.parseIf()
		stmt.Else = &ast.Block{Base: ast.Base{Pos: elseIf.Pos}, Stmts: []ast.Stmt{elseIf}}
		return stmt
	}
	stmt.Else = p.expectBlock()
	return stmt
}

func (p *Parser) loopBody() *ast.Block {
	prev := p.set.breakable
	p.set.breakable = true
	body := p.expectBlock()
	p.set.breakable = prev
	return body
}

func (p *Parser) parseWhile() ast.Stmt {
	tok := p.curToken
	stmt := &ast.While{Base: ast.Base{Pos: tok.Pos}}
	if tok.Type == token.WHILE {
		p.nextToken()
		stmt.Cond = p.parseCondition()
	}
	stmt.Body = p.loopBody()
	return stmt
}

func (p *Parser) parseDo() ast.Stmt {
	stmt := &ast.Do{Base: ast.Base{Pos: p.curToken.Pos}}
	stmt.Body = p.loopBody()
	switch p.peekToken.Type { //nolint:exhaustive // default is an error.
	case token.WHILE:
	case token.UNTIL:
		stmt.Until = true
	default:
		p.failAt(p.peekToken, "Expecting 'while' for the do statement")
	}
	p.nextToken()
	p.nextToken()
	prev := p.set.breakable
	p.set.breakable = false
	stmt.Cond = p.parseCondition()
	p.set.breakable = prev
	return stmt
}

func (p *Parser) parseFor() ast.Stmt {
	stmt := &ast.For{Base: ast.Base{Pos: p.curToken.Pos}}
	p.nextToken()
	if p.curTokenIs(token.LPAREN) {
		p.nextToken()
		stmt.Var = p.varName()
		p.expectPeek(token.COMMA, "after the iteration variable name")
		p.nextToken()
		counter := p.varName()
		if counter.Name == stmt.Var.Name {
			p.fail(counter.Pos, "Duplicated variable name '%s'", counter.Name)
		}
		stmt.Counter = &counter
		p.expectPeek(token.RPAREN, "to close the iteration variable")
	} else {
		stmt.Var = p.varName()
	}
	p.expectPeek(token.IN, "after the iteration variable")
	p.nextToken()
	if p.curTokenIs(token.LBRACE) {
		p.fail(p.curToken.Pos, "Expecting an iterable expression")
	}
	stmt.Iterable = p.parseExpression(LOWEST)
	p.ensureIterable(stmt.Iterable)
	prevLen := len(p.fr.stack)
	if stmt.Counter != nil {
		p.fr.push(stmt.Counter.Name)
	}
	p.fr.push(stmt.Var.Name)
	stmt.Body = p.loopBody()
	p.fr.stack = p.fr.stack[:prevLen]
	return stmt
}

func (p *Parser) parseReturn() ast.Stmt {
	tok := p.curToken
	stmt := &ast.Return{Base: ast.Base{Pos: tok.Pos}, Throw: tok.Type == token.THROW}
	switch {
	case p.peekTokenIs(token.EOF), p.peekTokenIs(token.SEMICOLON):
	case p.peekTokenIs(token.RBRACE) && !p.set.global:
	default:
		p.nextToken()
		stmt.Value = p.parseExpression(LOWEST)
	}
	return stmt
}

func (p *Parser) parseTryCatch() ast.Stmt {
	stmt := &ast.TryCatch{Base: ast.Base{Pos: p.curToken.Pos}}
	stmt.Try = p.expectBlock()
	if !p.peekTokenIs(token.CATCH) {
		p.failAt(p.peekToken, "Expecting 'catch' for the 'try' statement")
	}
	p.nextToken()
	prevLen := len(p.fr.stack)
	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		p.nextToken()
		v := p.varName()
		stmt.CatchVar = &v
		p.expectPeek(token.RPAREN, "to enclose the catch variable")
		p.fr.push(v.Name)
	}
	stmt.Catch = p.expectBlock()
	p.fr.stack = p.fr.stack[:prevLen]
	return stmt
}

// parseLet parses let/const declarations; cur is the keyword.
func (p *Parser) parseLet(exported bool) *ast.Var {
	tok := p.curToken
	stmt := &ast.Var{Base: ast.Base{Pos: tok.Pos}, Constant: tok.Type == token.CONST, Exported: exported}
	p.nextToken()
	stmt.Name = p.varName()
	if p.peekTokenIs(token.ASSIGN) {
		p.nextToken()
		p.nextToken()
		stmt.Value = p.parseExpression(LOWEST)
	}
	// pushed after the value so `let x = x + 1` sees the previous x.
	p.fr.push(stmt.Name.Name)
	return stmt
}

func (p *Parser) parseImport() ast.Stmt {
	stmt := &ast.Import{Base: ast.Base{Pos: p.curToken.Pos}}
	p.nextToken()
	stmt.Path = p.parseExpression(LOWEST)
	if p.peekTokenIs(token.AS) {
		p.nextToken()
		p.nextToken()
		alias := p.varName()
		stmt.Alias = &alias
		p.fr.modules = append(p.fr.modules, alias.Name)
		return stmt
	}
	// unnamed imports still take a slot on the imports stack.
	p.fr.modules = append(p.fr.modules, "")
	return stmt
}

func (p *Parser) parseExport() ast.Stmt {
	pos := p.curToken.Pos
	if p.peekTokenIs(token.LET) || p.peekTokenIs(token.CONST) {
		p.nextToken()
		return p.parseLet(true)
	}
	stmt := &ast.Export{Base: ast.Base{Pos: pos}}
	for {
		p.nextToken()
		item := ast.ExportItem{Name: p.varName()}
		item.Alias = item.Name
		if p.peekTokenIs(token.AS) {
			p.nextToken()
			p.nextToken()
			item.Alias = p.varName()
		}
		for _, other := range stmt.Items {
			if other.Alias.Name == item.Alias.Name {
				p.fail(item.Alias.Pos, "Duplicated variable name '%s'", item.Alias.Name)
			}
		}
		stmt.Items = append(stmt.Items, item)
		switch p.peekToken.Type { //nolint:exhaustive // end of the list otherwise.
		case token.COMMA:
			p.nextToken()
		case token.IDENT:
			p.failAt(p.peekToken, "Expecting ',' to separate the list of exports")
		default:
			return stmt
		}
	}
}

func paramsCount(n int) string {
	switch n {
	case 0:
		return "no parameters"
	case 1:
		return "1 parameter"
	default:
		return strconv.Itoa(n) + " parameters"
	}
}

// parseFnDefinition adds a script function to the library and returns a
// Noop; cur is `fn` or `private`.
func (p *Parser) parseFnDefinition() ast.Stmt {
	comments := p.curComments
	private := p.curTokenIs(token.PRIVATE)
	if private {
		if !p.peekTokenIs(token.FN) {
			p.failAt(p.peekToken, "Expecting 'fn' after 'private'")
		}
		p.nextToken()
	}
	pos := p.curToken.Pos
	p.nextToken()
	tok := p.curToken
	switch {
	case tok.Type == token.RESERVED, tok.Type == token.IDENT && token.IsKeywordFunction(tok.Literal):
		p.fail(tok.Pos, "'%s' is a reserved keyword", tok.Literal)
	case tok.Type != token.IDENT:
		p.failAt(tok, "Expecting function name in function declaration")
	}
	name := tok.Literal
	fn := &ast.ScriptFnDef{Pos: pos, Name: name, Private: private, Comments: comments}
	p.inFunction(func() {
		if !p.peekTokenIs(token.LPAREN) {
			p.failAt(p.peekToken, "Expecting parameters for function '%s'", name)
		}
		p.nextToken()
		fn.Params = p.parseFnParams(name)
		if !p.peekTokenIs(token.LBRACE) {
			p.failAt(p.peekToken, "Expecting body statement block for function '%s'", name)
		}
		p.nextToken()
		fn.Body = p.parseBlock()
	})
	h := ast.FnHash(name, len(fn.Params))
	if _, dup := p.fnIndex[h]; dup {
		p.fail(tok.Pos, "Function '%s' with %s already exists", name, paramsCount(len(fn.Params)))
	}
	p.fnIndex[h] = len(p.functions)
	p.functions = append(p.functions, fn)
	return &ast.Noop{Base: ast.Base{Pos: pos}}
}

// parseFnParams parses (a, b, c); cur is `(`.
func (p *Parser) parseFnParams(name string) []string {
	var params []string
	for {
		p.nextToken()
		tok := p.curToken
		switch {
		case tok.Type == token.RPAREN:
			return params
		case tok.Type == token.RESERVED, tok.Type == token.IDENT && token.IsKeywordFunction(tok.Literal):
			p.fail(tok.Pos, "'%s' is a reserved keyword", tok.Literal)
		case tok.Type != token.IDENT:
			p.failAt(tok, "Expecting ')' to close the parameters list of function '%s'", name)
		}
		if slices.Contains(params, tok.Literal) {
			p.fail(tok.Pos, "Duplicated parameter '%s' for function '%s'", tok.Literal, name)
		}
		p.fr.push(tok.Literal)
		params = append(params, tok.Literal)
		p.nextToken()
		switch p.curToken.Type { //nolint:exhaustive // default is an error.
		case token.RPAREN:
			return params
		case token.COMMA:
		default:
			p.failAt(p.curToken, "Expecting ',' to separate the parameters of function '%s'", name)
		}
	}
}

// constValue evaluates literal expressions, used for switch case keys.
func constValue(e ast.Expr) (object.Dynamic, bool) {
	switch x := e.(type) {
	case *ast.Unit:
		return object.Unit, true
	case *ast.IntLit:
		return object.Int(x.Val), true
	case *ast.FloatLit:
		return object.Float(x.Val), true
	case *ast.BoolLit:
		return object.Bool(x.Val), true
	case *ast.CharLit:
		return object.Char(x.Val), true
	case *ast.StringLit:
		return object.String(x.Val), true
	case *ast.ArrayLit:
		arr := make([]object.Dynamic, 0, len(x.Elements))
		for _, el := range x.Elements {
			v, ok := constValue(el)
			if !ok {
				return object.Unit, false
			}
			arr = append(arr, v)
		}
		return object.NewArray(arr), true
	case *ast.MapLit:
		m := object.NewMap()
		for i, k := range x.Keys {
			v, ok := constValue(x.Values[i])
			if !ok {
				return object.Unit, false
			}
			m.Set(k.Name, v)
		}
		return object.NewMapValue(m), true
	}
	return object.Unit, false
}

// SwitchKey is the hash of a constant switch value, shared with the
// evaluator so matching uses the same identity.
func SwitchKey(v object.Dynamic) (uint64, bool) {
	return v.Hash()
}

func (p *Parser) parseSwitch() *ast.Switch {
	pos := p.curToken.Pos
	p.nextToken()
	sw := &ast.Switch{Base: ast.Base{Pos: pos}, Cases: make(map[uint64]*ast.SwitchCase)}
	sw.Expr = p.parseExpression(LOWEST)
	p.expectPeek(token.LBRACE, "to start a switch block")
	for {
		switch p.peekToken.Type { //nolint:exhaustive // default is a case.
		case token.RBRACE:
			p.nextToken()
			return sw
		case token.EOF:
			p.failAt(p.peekToken, "Expecting '}' to end this switch block")
		}
		p.nextToken()
		tok := p.curToken
		isDefault := tok.Type == token.IDENT && tok.Literal == "_"
		var key ast.Expr
		switch {
		case isDefault && sw.Default != nil:
			p.fail(tok.Pos, "Duplicated switch case")
		case !isDefault && sw.Default != nil:
			p.fail(tok.Pos, "Default switch case is not the last")
		case !isDefault:
			key = p.parseExpression(LOWEST)
		}
		var guard ast.Expr
		if p.peekTokenIs(token.IF) {
			if isDefault {
				p.fail(p.peekToken.Pos, "Default switch case cannot have condition")
			}
			p.nextToken()
			p.nextToken()
			guard = p.parseExpression(LOWEST)
			p.ensureBool(guard)
		}
		p.expectPeek(token.ARROW, "in this switch case")
		p.nextToken()
		body := p.parseStatement()
		if isDefault {
			sw.Default = body
		} else {
			p.addSwitchCase(sw, key, &ast.SwitchCase{Condition: guard, Body: body})
		}
		switch p.peekToken.Type { //nolint:exhaustive // default is an error unless self terminated.
		case token.COMMA:
			p.nextToken()
		case token.RBRACE:
		default:
			if !selfTerminated(body) {
				p.failAt(p.peekToken, "Expecting ',' to separate the items in this switch block")
			}
		}
	}
}

func (p *Parser) addSwitchCase(sw *ast.Switch, key ast.Expr, c *ast.SwitchCase) {
	v, ok := constValue(key)
	if !ok {
		p.fail(key.Position(), "Expecting a literal expression")
	}
	h, ok := SwitchKey(v)
	if !ok {
		p.fail(key.Position(), "Expecting a literal expression")
	}
	if _, dup := sw.Cases[h]; dup {
		p.fail(key.Position(), "Duplicated switch case")
	}
	sw.Cases[h] = c
	sw.Order = append(sw.Order, key)
}

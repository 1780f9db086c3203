package parser

import (
	"borrowck/internal/ast"
	"borrowck/internal/diag"
	"borrowck/internal/token"
)

// parseBlock parses `{ stmt* }` into a StmtBlock.
func (p *Parser) parseBlock() (ast.StmtID, bool) {
	open, ok := p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{'")
	if !ok {
		return ast.NoStmtID, false
	}
	var stmts []ast.StmtID
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		if p.opts.Enough() {
			break
		}
		if p.eat(token.Semicolon) {
			continue
		}
		before := p.pos
		id, ok := p.parseStmt()
		if !ok {
			p.resyncStmt()
			if p.pos == before {
				p.advance()
			}
			continue
		}
		if id.IsValid() {
			stmts = append(stmts, id)
		}
	}
	closeTok, ok := p.expect(token.RBrace, diag.SynUnclosedBrace, "expected '}' to close block")
	if !ok {
		return ast.NoStmtID, false
	}
	return p.arenas.Stmts.NewBlock(open.Span.Cover(closeTok.Span), stmts, closeTok.Span), true
}

// resyncStmt skips past the next ';' or stops before a '}' of the current block.
func (p *Parser) resyncStmt() {
	p.resyncUntil(token.Semicolon, token.RBrace)
	p.eat(token.Semicolon)
}

func (p *Parser) parseStmt() (ast.StmtID, bool) {
	p.skipAttributes()
	switch p.peek().Kind {
	case token.KwLet:
		return p.parseLetStmt()
	case token.LBrace:
		return p.parseBlock()
	case token.KwIf:
		return p.parseIfStmt()
	case token.KwWhile:
		return p.parseWhileStmt()
	case token.KwLoop:
		kw := p.advance()
		body, ok := p.parseBlock()
		if !ok {
			return ast.NoStmtID, false
		}
		return p.arenas.Stmts.NewLoop(kw.Span.Cover(p.lastSpan), body), true
	case token.KwFor:
		return p.parseForStmt()
	case token.KwBreak:
		kw := p.advance()
		p.expectSemicolon("'break'")
		return p.arenas.Stmts.NewBreak(kw.Span), true
	case token.KwContinue:
		kw := p.advance()
		p.expectSemicolon("'continue'")
		return p.arenas.Stmts.NewContinue(kw.Span), true
	case token.KwReturn:
		kw := p.advance()
		value := ast.NoExprID
		if !p.atOr(token.Semicolon, token.RBrace) {
			value = p.parseExpr()
			if !value.IsValid() {
				return ast.NoStmtID, false
			}
		}
		sp := kw.Span.Cover(p.lastSpan)
		if !p.at(token.RBrace) {
			p.expectSemicolon("return")
		}
		return p.arenas.Stmts.NewReturn(sp, value), true
	}
	return p.parseExprStmt()
}

func (p *Parser) parseLetStmt() (ast.StmtID, bool) {
	kw := p.advance() // let
	let := ast.LetStmt{}
	let.Mutable = p.eat(token.KwMut)
	if p.at(token.Underscore) {
		let.NameSpan = p.advance().Span
	} else {
		name, sp, ok := p.parseIdent()
		if !ok {
			return ast.NoStmtID, false
		}
		let.Name, let.NameSpan = name, sp
	}
	if p.eat(token.Colon) {
		let.Type = p.parseType()
		if !let.Type.IsValid() {
			return ast.NoStmtID, false
		}
	}
	if p.eat(token.Assign) {
		let.Value = p.parseExpr()
		if !let.Value.IsValid() {
			return ast.NoStmtID, false
		}
	}
	sp := kw.Span.Cover(p.lastSpan)
	p.expectSemicolon("let statement")
	return p.arenas.Stmts.NewLet(sp, let), true
}

// parseCond parses the head of if/while/for where `{` starts the body.
func (p *Parser) parseCond() ast.ExprID {
	saved := p.noStructLit
	p.noStructLit = true
	defer func() { p.noStructLit = saved }()
	return p.parseExpr()
}

func (p *Parser) parseIfStmt() (ast.StmtID, bool) {
	kw := p.advance() // if
	cond := p.parseCond()
	if !cond.IsValid() {
		return ast.NoStmtID, false
	}
	then, ok := p.parseBlock()
	if !ok {
		return ast.NoStmtID, false
	}
	els := ast.NoStmtID
	if p.eat(token.KwElse) {
		if p.at(token.KwIf) {
			els, ok = p.parseIfStmt()
		} else {
			els, ok = p.parseBlock()
		}
		if !ok {
			return ast.NoStmtID, false
		}
	}
	return p.arenas.Stmts.NewIf(kw.Span.Cover(p.lastSpan), cond, then, els), true
}

func (p *Parser) parseWhileStmt() (ast.StmtID, bool) {
	kw := p.advance() // while
	cond := p.parseCond()
	if !cond.IsValid() {
		return ast.NoStmtID, false
	}
	body, ok := p.parseBlock()
	if !ok {
		return ast.NoStmtID, false
	}
	return p.arenas.Stmts.NewWhile(kw.Span.Cover(p.lastSpan), cond, body), true
}

func (p *Parser) parseForStmt() (ast.StmtID, bool) {
	kw := p.advance() // for
	f := ast.ForStmt{}
	f.Mutable = p.eat(token.KwMut)
	if p.at(token.Underscore) {
		f.NameSpan = p.advance().Span
	} else {
		name, sp, ok := p.parseIdent()
		if !ok {
			return ast.NoStmtID, false
		}
		f.Name, f.NameSpan = name, sp
	}
	if _, ok := p.expect(token.KwIn, diag.SynForMissingIn, "expected 'in' after loop variable"); !ok {
		return ast.NoStmtID, false
	}
	f.Iter = p.parseCond()
	if !f.Iter.IsValid() {
		return ast.NoStmtID, false
	}
	body, ok := p.parseBlock()
	if !ok {
		return ast.NoStmtID, false
	}
	f.Body = body
	return p.arenas.Stmts.NewFor(kw.Span.Cover(p.lastSpan), f), true
}

var assignOps = map[token.Kind]ast.AssignOp{
	token.Assign:        ast.AssignPlain,
	token.PlusAssign:    ast.AssignAdd,
	token.MinusAssign:   ast.AssignSub,
	token.StarAssign:    ast.AssignMul,
	token.SlashAssign:   ast.AssignDiv,
	token.PercentAssign: ast.AssignRem,
}

// parseExprStmt handles `e;`, `place op= e;` and a tail `e` before '}'.
func (p *Parser) parseExprStmt() (ast.StmtID, bool) {
	start := p.peek().Span
	expr := p.parseExpr()
	if !expr.IsValid() {
		return ast.NoStmtID, false
	}
	if op, ok := assignOps[p.peek().Kind]; ok {
		p.advance()
		value := p.parseExpr()
		if !value.IsValid() {
			return ast.NoStmtID, false
		}
		sp := start.Cover(p.lastSpan)
		p.expectSemicolon("assignment")
		return p.arenas.Stmts.NewAssign(sp, op, expr, value), true
	}
	sp := start.Cover(p.lastSpan)
	if p.at(token.RBrace) {
		return p.arenas.Stmts.NewExpr(sp, expr, false), true
	}
	p.expectSemicolon("expression")
	return p.arenas.Stmts.NewExpr(sp, expr, true), true
}

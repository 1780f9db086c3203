package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"borrowck/internal/ast"
	"borrowck/internal/diag"
	"borrowck/internal/source"
	"borrowck/internal/token"
)

// от слабых к сильным
var binaryLevels = []map[token.Kind]ast.ExprBinaryOp{
	{token.OrOr: ast.ExprBinaryLogicalOr},
	{token.AndAnd: ast.ExprBinaryLogicalAnd},
	{
		token.EqEq:   ast.ExprBinaryEq,
		token.BangEq: ast.ExprBinaryNotEq,
		token.Lt:     ast.ExprBinaryLess,
		token.LtEq:   ast.ExprBinaryLessEq,
		token.Gt:     ast.ExprBinaryGreater,
		token.GtEq:   ast.ExprBinaryGreaterEq,
	},
	{token.Pipe: ast.ExprBinaryBitOr},
	{token.Amp: ast.ExprBinaryBitAnd},
	{token.Plus: ast.ExprBinaryAdd, token.Minus: ast.ExprBinarySub},
	{
		token.Star:    ast.ExprBinaryMul,
		token.Slash:   ast.ExprBinaryDiv,
		token.Percent: ast.ExprBinaryMod,
	},
}

// parseExpr parses a full expression including ranges. It returns NoExprID
// after reporting when no expression starts at the current token.
func (p *Parser) parseExpr() ast.ExprID {
	start := p.peek().Span
	if p.atOr(token.DotDot, token.DotDotEq) {
		inclusive := p.advance().Kind == token.DotDotEq
		hi := ast.NoExprID
		if p.startsExpr() {
			hi = p.parseBinary(0)
		}
		return p.arenas.Exprs.NewRange(start.Cover(p.lastSpan), ast.NoExprID, hi, inclusive)
	}
	lo := p.parseBinary(0)
	if !lo.IsValid() {
		return ast.NoExprID
	}
	if p.atOr(token.DotDot, token.DotDotEq) {
		inclusive := p.advance().Kind == token.DotDotEq
		hi := ast.NoExprID
		if p.startsExpr() {
			hi = p.parseBinary(0)
			if !hi.IsValid() {
				return ast.NoExprID
			}
		}
		return p.arenas.Exprs.NewRange(start.Cover(p.lastSpan), lo, hi, inclusive)
	}
	return lo
}

func (p *Parser) startsExpr() bool {
	switch p.peek().Kind {
	case token.Ident, token.KwSelf, token.IntLit, token.FloatLit, token.StringLit, token.CharLit,
		token.KwTrue, token.KwFalse, token.LParen, token.LBracket, token.Amp, token.AndAnd,
		token.Minus, token.Bang, token.Star:
		return true
	}
	return false
}

func (p *Parser) parseBinary(level int) ast.ExprID {
	if level >= len(binaryLevels) {
		return p.parseCast()
	}
	left := p.parseBinary(level + 1)
	if !left.IsValid() {
		return ast.NoExprID
	}
	for {
		op, ok := binaryLevels[level][p.peek().Kind]
		if !ok {
			return left
		}
		p.advance()
		right := p.parseBinary(level + 1)
		if !right.IsValid() {
			return ast.NoExprID
		}
		sp := p.arenas.Exprs.Get(left).Span.Cover(p.lastSpan)
		left = p.arenas.Exprs.NewBinary(sp, op, left, right)
	}
}

// parseCast drops `as T`; casts only apply to Copy scalars.
func (p *Parser) parseCast() ast.ExprID {
	expr := p.parseUnary()
	for expr.IsValid() && p.at(token.Ident) && p.peek().Text == "as" {
		p.advance()
		if !p.parseType().IsValid() {
			return ast.NoExprID
		}
	}
	return expr
}

func (p *Parser) parseUnary() ast.ExprID {
	start := p.peek().Span
	switch p.peek().Kind {
	case token.Amp, token.AndAnd:
		double := p.advance().Kind == token.AndAnd
		mutable := p.eat(token.KwMut)
		operand := p.parseUnary()
		if !operand.IsValid() {
			return ast.NoExprID
		}
		sp := start.Cover(p.lastSpan)
		id := p.arenas.Exprs.NewRef(sp, mutable, operand)
		if double {
			id = p.arenas.Exprs.NewRef(sp, false, id)
		}
		return id
	case token.Minus, token.Bang, token.Star:
		var op ast.ExprUnaryOp
		switch p.advance().Kind {
		case token.Minus:
			op = ast.ExprUnaryNeg
		case token.Bang:
			op = ast.ExprUnaryNot
		default:
			op = ast.ExprUnaryDeref
		}
		operand := p.parseUnary()
		if !operand.IsValid() {
			return ast.NoExprID
		}
		return p.arenas.Exprs.NewUnary(start.Cover(p.lastSpan), op, operand)
	}
	return p.parsePostfix(p.parsePrimary())
}

func (p *Parser) parsePostfix(expr ast.ExprID) ast.ExprID {
	if !expr.IsValid() {
		return ast.NoExprID
	}
	start := p.arenas.Exprs.Get(expr).Span
	for {
		switch p.peek().Kind {
		case token.LParen:
			args, ok := p.parseArgs(token.LParen, token.RParen, diag.SynUnclosedParen)
			if !ok {
				return ast.NoExprID
			}
			expr = p.arenas.Exprs.NewCall(start.Cover(p.lastSpan), expr, args)

		case token.LBracket:
			p.advance()
			idx := p.withStructLit(p.parseExpr)
			if !idx.IsValid() {
				return ast.NoExprID
			}
			if _, ok := p.expect(token.RBracket, diag.SynUnclosedBracket, "expected ']' after index"); !ok {
				return ast.NoExprID
			}
			expr = p.arenas.Exprs.NewIndex(start.Cover(p.lastSpan), expr, idx)

		case token.Dot:
			p.advance()
			switch p.peek().Kind {
			case token.IntLit:
				tok := p.advance()
				expr = p.arenas.Exprs.NewMember(start.Cover(tok.Span), expr, p.intern(tok.Text))
			case token.FloatLit:
				// t.0.1 lexes the tail as one float
				tok := p.advance()
				for part := range strings.SplitSeq(tok.Text, ".") {
					expr = p.arenas.Exprs.NewMember(start.Cover(tok.Span), expr, p.intern(part))
				}
			case token.Ident:
				tok := p.advance()
				name := p.intern(tok.Text)
				p.skipTurbofish()
				if !p.at(token.LParen) {
					expr = p.arenas.Exprs.NewMember(start.Cover(tok.Span), expr, name)
					continue
				}
				args, ok := p.parseArgs(token.LParen, token.RParen, diag.SynUnclosedParen)
				if !ok {
					return ast.NoExprID
				}
				expr = p.arenas.Exprs.NewMethodCall(start.Cover(p.lastSpan), ast.ExprMethodCallData{
					Receiver:   expr,
					Method:     name,
					MethodSpan: tok.Span,
					Args:       args,
				})
			default:
				p.err(diag.SynExpectIdentifier, "expected field or method name after '.', got "+describe(p.peek()))
				return ast.NoExprID
			}

		case token.Question:
			// error propagation does not change ownership of the operand
			p.advance()

		default:
			return expr
		}
	}
}

func (p *Parser) withStructLit(fn func() ast.ExprID) ast.ExprID {
	saved := p.noStructLit
	p.noStructLit = false
	defer func() { p.noStructLit = saved }()
	return fn()
}

// parseArgs parses a delimited, comma separated expression list. Macros also
// accept ';' as in vec![0; n].
func (p *Parser) parseArgs(open, closing token.Kind, code diag.Code) ([]ast.ExprID, bool) {
	p.advance() // open
	saved := p.noStructLit
	p.noStructLit = false
	defer func() { p.noStructLit = saved }()

	var args []ast.ExprID
	for !p.at(closing) && !p.at(token.EOF) {
		arg := p.parseExpr()
		if !arg.IsValid() {
			p.resyncUntil(closing)
			p.eat(closing)
			return nil, false
		}
		args = append(args, arg)
		if !p.eat(token.Comma) && !(open == token.LBracket && p.eat(token.Semicolon)) {
			break
		}
	}
	if _, ok := p.expect(closing, code, "expected '"+closing.String()+"' to close argument list"); !ok {
		return nil, false
	}
	return args, true
}

func (p *Parser) skipTurbofish() {
	if p.at(token.ColonColon) && p.peekN(1).Kind == token.Lt {
		p.advance()
		p.skipBalanced(token.Lt, token.Gt)
	}
}

func (p *Parser) parsePrimary() ast.ExprID {
	tok := p.peek()
	switch tok.Kind {
	case token.IntLit:
		p.advance()
		return p.arenas.Exprs.NewLiteral(tok.Span, ast.ExprLitInt, p.intern(tok.Text))
	case token.FloatLit:
		p.advance()
		return p.arenas.Exprs.NewLiteral(tok.Span, ast.ExprLitFloat, p.intern(tok.Text))
	case token.StringLit:
		p.advance()
		return p.arenas.Exprs.NewLiteral(tok.Span, ast.ExprLitString, p.intern(tok.Text))
	case token.CharLit:
		p.advance()
		return p.arenas.Exprs.NewLiteral(tok.Span, ast.ExprLitChar, p.intern(tok.Text))
	case token.KwTrue, token.KwFalse:
		p.advance()
		return p.arenas.Exprs.NewLiteral(tok.Span, ast.ExprLitBool, p.intern(tok.Text))
	case token.KwSelf:
		p.advance()
		return p.arenas.Exprs.NewSelf(tok.Span)
	case token.Ident:
		return p.parseNameExpr()
	case token.LParen:
		return p.parseParenExpr()
	case token.LBracket:
		// array literals own their elements like tuples do
		elems, ok := p.parseArgs(token.LBracket, token.RBracket, diag.SynUnclosedBracket)
		if !ok {
			return ast.NoExprID
		}
		return p.arenas.Exprs.NewTuple(tok.Span.Cover(p.lastSpan), elems)
	}
	p.err(diag.SynExpectExpression, "expected expression, got "+describe(tok))
	return ast.NoExprID
}

// parseNameExpr handles identifiers, paths, macro invocations and struct literals.
func (p *Parser) parseNameExpr() ast.ExprID {
	first := p.advance()
	name := p.intern(first.Text)

	if p.at(token.Bang) && (p.peekN(1).Kind == token.LParen || p.peekN(1).Kind == token.LBracket) {
		p.advance() // !
		closing, code := token.RParen, diag.SynUnclosedParen
		if p.at(token.LBracket) {
			closing, code = token.RBracket, diag.SynUnclosedBracket
		}
		args, ok := p.parseArgs(p.peek().Kind, closing, code)
		if !ok {
			return ast.NoExprID
		}
		return p.arenas.Exprs.NewMacro(first.Span.Cover(p.lastSpan), name, args)
	}

	if p.at(token.ColonColon) {
		segments := []source.StringID{name}
		for p.at(token.ColonColon) {
			if p.peekN(1).Kind == token.Lt {
				p.skipTurbofish()
				continue
			}
			p.advance()
			seg, _, ok := p.parseIdent()
			if !ok {
				return ast.NoExprID
			}
			segments = append(segments, seg)
		}
		return p.arenas.Exprs.NewPath(first.Span.Cover(p.lastSpan), segments)
	}

	if p.at(token.LBrace) && !p.noStructLit && looksLikeType(first.Text) {
		return p.parseStructLit(first, name)
	}
	return p.arenas.Exprs.NewIdent(first.Span, name)
}

func looksLikeType(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

// parseStructLit parses `Name { a: e, b, ..base }`. A functional update base
// is kept as a field without a name.
func (p *Parser) parseStructLit(nameTok token.Token, name source.StringID) ast.ExprID {
	p.advance() // {
	var fields []ast.StructLitField
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		if p.eat(token.DotDot) {
			start := p.lastSpan
			base := p.parseExpr()
			if !base.IsValid() {
				return ast.NoExprID
			}
			fields = append(fields, ast.StructLitField{Value: base, Span: start.Cover(p.lastSpan)})
			break
		}
		fname, fspan, ok := p.parseIdent()
		if !ok {
			return ast.NoExprID
		}
		var value ast.ExprID
		if p.eat(token.Colon) {
			value = p.parseExpr()
			if !value.IsValid() {
				return ast.NoExprID
			}
		} else {
			value = p.arenas.Exprs.NewIdent(fspan, fname)
		}
		fields = append(fields, ast.StructLitField{Name: fname, Value: value, Span: fspan.Cover(p.lastSpan)})
		if !p.eat(token.Comma) {
			break
		}
	}
	if _, ok := p.expect(token.RBrace, diag.SynUnclosedBrace, "expected '}' to close struct literal"); !ok {
		return ast.NoExprID
	}
	return p.arenas.Exprs.NewStruct(nameTok.Span.Cover(p.lastSpan), name, fields)
}

// parseParenExpr handles (), (e) and (a, b, ...).
func (p *Parser) parseParenExpr() ast.ExprID {
	open := p.advance()
	saved := p.noStructLit
	p.noStructLit = false
	defer func() { p.noStructLit = saved }()

	if p.eat(token.RParen) {
		return p.arenas.Exprs.NewTuple(open.Span.Cover(p.lastSpan), nil)
	}
	first := p.parseExpr()
	if !first.IsValid() {
		return ast.NoExprID
	}
	if p.eat(token.RParen) {
		return p.arenas.Exprs.NewGroup(open.Span.Cover(p.lastSpan), first)
	}
	elems := []ast.ExprID{first}
	for p.eat(token.Comma) {
		if p.at(token.RParen) {
			break
		}
		e := p.parseExpr()
		if !e.IsValid() {
			return ast.NoExprID
		}
		elems = append(elems, e)
	}
	if _, ok := p.expect(token.RParen, diag.SynUnclosedParen, "expected ')' to close tuple"); !ok {
		return ast.NoExprID
	}
	return p.arenas.Exprs.NewTuple(open.Span.Cover(p.lastSpan), elems)
}

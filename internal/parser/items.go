package parser

import (
	"strings"

	"borrowck/internal/ast"
	"borrowck/internal/diag"
	"borrowck/internal/source"
	"borrowck/internal/token"
)

// parseFnItem parses `fn name<'a, T>(params) -> Ret { body }`. owner is the
// impl type for methods.
func (p *Parser) parseFnItem(owner source.StringID) (ast.ItemID, bool) {
	fnTok := p.advance() // fn
	name, nameSpan, ok := p.parseIdent()
	if !ok {
		return ast.NoItemID, false
	}
	fn := ast.FnItem{Name: name, NameSpan: nameSpan, Owner: owner}
	if p.at(token.Lt) {
		fn.Lifetimes = p.parseGenericParams()
	}

	if _, ok := p.expect(token.LParen, diag.SynUnexpectedToken, "expected '(' after function name"); !ok {
		return ast.NoItemID, false
	}
	if !p.parseFnParams(&fn) {
		return ast.NoItemID, false
	}

	if p.eat(token.Arrow) {
		fn.Result = p.parseType()
		if !fn.Result.IsValid() {
			return ast.NoItemID, false
		}
	}
	p.skipWhereClause()

	if p.eat(token.Semicolon) {
		return p.arenas.Items.NewFn(fnTok.Span.Cover(p.lastSpan), fn), true
	}
	body, ok := p.parseBlock()
	if !ok {
		return ast.NoItemID, false
	}
	fn.Body = body
	return p.arenas.Items.NewFn(fnTok.Span.Cover(p.lastSpan), fn), true
}

// parseGenericParams returns the declared lifetimes; type parameters and
// bounds are skipped.
func (p *Parser) parseGenericParams() []source.StringID {
	p.advance() // <
	var lifetimes []source.StringID
	depth := 1
	expectParam := true
	for !p.at(token.EOF) && depth > 0 {
		tok := p.advance()
		switch tok.Kind {
		case token.Lt:
			depth++
		case token.Gt:
			depth--
		case token.Comma:
			expectParam = depth == 1
			continue
		case token.Lifetime:
			if expectParam && depth == 1 {
				lifetimes = append(lifetimes, p.intern(strings.TrimPrefix(tok.Text, "'")))
			}
		}
		expectParam = false
	}
	return lifetimes
}

func (p *Parser) skipWhereClause() {
	if p.at(token.Ident) && p.peek().Text == "where" {
		p.resyncUntil(token.LBrace, token.Semicolon)
	}
}

func (p *Parser) parseFnParams(fn *ast.FnItem) bool {
	first := true
	for !p.at(token.RParen) && !p.at(token.EOF) {
		if first && p.parseSelfParam(fn) {
			first = false
			if !p.eat(token.Comma) {
				break
			}
			continue
		}
		first = false

		start := p.peek().Span
		mutable := p.eat(token.KwMut)
		var name source.StringID
		switch {
		case p.at(token.Underscore):
			p.advance()
		default:
			id, _, ok := p.parseIdent()
			if !ok {
				p.resyncUntil(token.Comma, token.RParen)
				p.eat(token.Comma)
				continue
			}
			name = id
		}
		if _, ok := p.expect(token.Colon, diag.SynExpectColon, "expected ':' before parameter type"); !ok {
			p.resyncUntil(token.Comma, token.RParen)
			p.eat(token.Comma)
			continue
		}
		ty := p.parseType()
		fn.Params = append(fn.Params, ast.FnParam{
			Name:    name,
			Mutable: mutable,
			Type:    ty,
			Span:    start.Cover(p.lastSpan),
		})
		if !p.eat(token.Comma) {
			break
		}
	}
	_, ok := p.expect(token.RParen, diag.SynUnclosedParen, "expected ')' to close parameter list")
	return ok
}

// parseSelfParam accepts self, mut self, &self, &mut self, &'a self, &'a mut self.
func (p *Parser) parseSelfParam(fn *ast.FnItem) bool {
	start := p.peek().Span
	switch {
	case p.at(token.KwSelf):
		p.advance()
		fn.Self = ast.SelfValue
	case p.at(token.KwMut) && p.peekN(1).Kind == token.KwSelf:
		p.advance()
		p.advance()
		fn.Self = ast.SelfMutValue
	case p.at(token.Amp):
		n := 1
		var life source.StringID
		if p.peekN(n).Kind == token.Lifetime {
			life = p.intern(strings.TrimPrefix(p.peekN(n).Text, "'"))
			n++
		}
		mutable := false
		if p.peekN(n).Kind == token.KwMut {
			mutable = true
			n++
		}
		if p.peekN(n).Kind != token.KwSelf {
			return false
		}
		for range n + 1 {
			p.advance()
		}
		fn.SelfLife = life
		fn.Self = ast.SelfRef
		if mutable {
			fn.Self = ast.SelfRefMut
		}
	default:
		return false
	}
	// `self: &Self` style annotations are accepted and ignored
	if p.eat(token.Colon) {
		p.parseType()
	}
	fn.SelfSpan = start.Cover(p.lastSpan)
	return true
}

func (p *Parser) parseStructItem() (ast.ItemID, bool) {
	kw := p.advance() // struct
	name, _, ok := p.parseIdent()
	if !ok {
		return ast.NoItemID, false
	}
	if p.at(token.Lt) {
		p.parseGenericParams()
	}
	st := ast.StructItem{Name: name}
	if p.eat(token.Semicolon) {
		return p.arenas.Items.NewStruct(kw.Span.Cover(p.lastSpan), st), true
	}
	if _, ok := p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{' after struct name"); !ok {
		return ast.NoItemID, false
	}
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		p.skipAttributes()
		p.eat(token.KwPub)
		fname, fspan, ok := p.parseIdent()
		if !ok {
			p.resyncUntil(token.Comma, token.RBrace)
			p.eat(token.Comma)
			continue
		}
		if _, ok := p.expect(token.Colon, diag.SynExpectColon, "expected ':' after field name"); !ok {
			p.resyncUntil(token.Comma, token.RBrace)
			p.eat(token.Comma)
			continue
		}
		ty := p.parseType()
		st.Fields = append(st.Fields, ast.StructField{Name: fname, Type: ty, Span: fspan.Cover(p.lastSpan)})
		if !p.eat(token.Comma) {
			break
		}
	}
	if _, ok := p.expect(token.RBrace, diag.SynUnclosedBrace, "expected '}' to close struct"); !ok {
		return ast.NoItemID, false
	}
	return p.arenas.Items.NewStruct(kw.Span.Cover(p.lastSpan), st), true
}

// parseImplItem parses `impl Type { fn... }` and `impl Trait for Type { ... }`.
func (p *Parser) parseImplItem() ([]ast.ItemID, bool) {
	kw := p.advance() // impl
	if p.at(token.Lt) {
		p.parseGenericParams()
	}
	target := p.parseType()
	if p.eat(token.KwFor) {
		target = p.parseType()
	}
	var typeName source.StringID
	if ty := p.arenas.Types.Get(target); ty != nil && ty.Kind == ast.TypePath {
		typeName = ty.Name
	}
	p.skipWhereClause()
	if _, ok := p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{' after impl header"); !ok {
		return nil, false
	}

	im := ast.ImplItem{Type: typeName}
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		p.skipAttributes()
		p.eat(token.KwPub)
		if !p.at(token.KwFn) {
			p.err(diag.SynUnexpectedToken, "expected method in impl block, got "+describe(p.peek()))
			p.resyncUntil(token.KwFn, token.RBrace)
			continue
		}
		id, ok := p.parseFnItem(typeName)
		if !ok {
			p.resyncUntil(token.KwFn, token.RBrace)
			continue
		}
		im.Methods = append(im.Methods, id)
	}
	if _, ok := p.expect(token.RBrace, diag.SynUnclosedBrace, "expected '}' to close impl block"); !ok {
		return nil, false
	}
	implID := p.arenas.Items.NewImpl(kw.Span.Cover(p.lastSpan), im)
	return append([]ast.ItemID{implID}, im.Methods...), true
}

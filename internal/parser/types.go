package parser

import (
	"strings"

	"borrowck/internal/ast"
	"borrowck/internal/diag"
	"borrowck/internal/source"
	"borrowck/internal/token"
)

// parseType parses a syntactic type. On error it reports SynExpectType and
// returns NoTypeID without consuming the offending token.
func (p *Parser) parseType() ast.TypeID {
	start := p.peek().Span
	switch p.peek().Kind {
	case token.Amp, token.AndAnd:
		// `&&T` is a reference to a reference
		double := p.advance().Kind == token.AndAnd
		var life source.StringID
		if p.at(token.Lifetime) {
			life = p.intern(strings.TrimPrefix(p.advance().Text, "'"))
		}
		mutable := p.eat(token.KwMut)
		elem := p.parseType()
		if !elem.IsValid() {
			return ast.NoTypeID
		}
		id := p.arenas.Types.New(ast.TypeExpr{Kind: ast.TypeRef, Span: start.Cover(p.lastSpan), Elem: elem, Mutable: mutable, Lifetime: life})
		if double {
			id = p.arenas.Types.New(ast.TypeExpr{Kind: ast.TypeRef, Span: start.Cover(p.lastSpan), Elem: id})
		}
		return id

	case token.LBracket:
		p.advance()
		elem := p.parseType()
		kind := ast.TypeSlice
		if p.eat(token.Semicolon) {
			kind = ast.TypeArray
			p.parseExpr()
		}
		if _, ok := p.expect(token.RBracket, diag.SynUnclosedBracket, "expected ']' in type"); !ok {
			return ast.NoTypeID
		}
		return p.arenas.Types.New(ast.TypeExpr{Kind: kind, Span: start.Cover(p.lastSpan), Elem: elem})

	case token.LParen:
		p.advance()
		var elems []ast.TypeID
		for !p.at(token.RParen) && !p.at(token.EOF) {
			elems = append(elems, p.parseType())
			if !p.eat(token.Comma) {
				break
			}
		}
		if _, ok := p.expect(token.RParen, diag.SynUnclosedParen, "expected ')' in tuple type"); !ok {
			return ast.NoTypeID
		}
		return p.arenas.Types.New(ast.TypeExpr{Kind: ast.TypeTuple, Span: start.Cover(p.lastSpan), Args: elems})

	case token.Ident, token.KwSelf:
		// last path segment names the type: std::vec::Vec<T> -> Vec
		name := p.advance().Text
		for p.at(token.ColonColon) && p.peekN(1).Kind == token.Ident {
			p.advance()
			name = p.advance().Text
		}
		var args []ast.TypeID
		if p.at(token.Lt) {
			p.advance()
			for !p.at(token.Gt) && !p.at(token.EOF) {
				if p.at(token.Lifetime) {
					p.advance()
				} else {
					args = append(args, p.parseType())
				}
				if !p.eat(token.Comma) {
					break
				}
			}
			if _, ok := p.expect(token.Gt, diag.SynUnexpectedToken, "expected '>' to close type arguments"); !ok {
				return ast.NoTypeID
			}
		}
		return p.arenas.Types.New(ast.TypeExpr{Kind: ast.TypePath, Span: start.Cover(p.lastSpan), Name: p.intern(name), Args: args})
	}
	p.err(diag.SynExpectType, "expected type, got "+describe(p.peek()))
	return ast.NoTypeID
}

package parser

import (
	"slices"

	"borrowck/internal/ast"
	"borrowck/internal/diag"
	"borrowck/internal/lexer"
	"borrowck/internal/source"
	"borrowck/internal/token"
)

type Options struct {
	MaxErrors     uint
	CurrentErrors uint
	Reporter      diag.Reporter
}

// Enough reports whether the error limit is reached.
func (o *Options) Enough() bool {
	if o.MaxErrors == 0 {
		return false
	}
	return o.CurrentErrors >= o.MaxErrors
}

type Result struct {
	File   ast.FileID
	Errors uint
}

// Parser holds the state for one file.
type Parser struct {
	toks     []token.Token
	pos      int
	arenas   *ast.Builder
	file     ast.FileID
	opts     Options
	lastSpan source.Span
	// struct literals are not allowed in `if`/`while`/`for` heads
	noStructLit bool
}

// ParseFile parses every item of the lexer's file into arenas.
func ParseFile(lx *lexer.Lexer, arenas *ast.Builder, opts Options) Result {
	toks := lx.All()
	p := Parser{
		toks:     toks,
		arenas:   arenas,
		opts:     opts,
		lastSpan: toks[0].Span.ZeroideToStart(),
	}
	p.file = arenas.NewFile(toks[0].Span)

	p.parseItems()
	return Result{File: p.file, Errors: p.opts.CurrentErrors}
}

func (p *Parser) peek() token.Token {
	return p.toks[p.pos]
}

// peekN looks n tokens ahead; EOF repeats.
func (p *Parser) peekN(n int) token.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) at(k token.Kind) bool {
	return p.peek().Kind == k
}

func (p *Parser) atOr(kinds ...token.Kind) bool {
	return slices.Contains(kinds, p.peek().Kind)
}

func (p *Parser) advance() token.Token {
	tok := p.toks[p.pos]
	if tok.Kind != token.EOF {
		p.pos++
		p.lastSpan = tok.Span
	}
	return tok
}

func (p *Parser) eat(k token.Kind) bool {
	if p.at(k) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) parseItems() {
	start := p.peek().Span
	for !p.at(token.EOF) {
		if p.opts.Enough() {
			break
		}
		items, ok := p.parseItem()
		if !ok {
			p.resyncTop()
			continue
		}
		for _, id := range items {
			p.arenas.PushItem(p.file, id)
		}
	}
	f := p.arenas.Files.Get(p.file)
	f.Span = start.Cover(p.peek().Span)
}

// parseItem returns several items for an impl block: the impl itself and its methods.
func (p *Parser) parseItem() ([]ast.ItemID, bool) {
	p.skipAttributes()
	p.eat(token.KwPub)
	switch p.peek().Kind {
	case token.KwFn:
		id, ok := p.parseFnItem(source.NoStringID)
		return []ast.ItemID{id}, ok
	case token.KwStruct:
		id, ok := p.parseStructItem()
		return []ast.ItemID{id}, ok
	case token.KwImpl:
		return p.parseImplItem()
	case token.KwUse:
		p.resyncUntil(token.Semicolon)
		p.eat(token.Semicolon)
		return nil, true
	default:
		p.err(diag.SynUnexpectedTopLevel, "expected 'fn', 'struct' or 'impl', got "+describe(p.peek()))
		return nil, false
	}
}

// skipAttributes drops #[...] and #![...]; they have no effect on ownership.
func (p *Parser) skipAttributes() {
	for p.at(token.Hash) {
		p.advance()
		p.eat(token.Bang)
		if !p.at(token.LBracket) {
			return
		}
		p.skipBalanced(token.LBracket, token.RBracket)
	}
}

func (p *Parser) skipBalanced(open, closing token.Kind) {
	depth := 0
	for !p.at(token.EOF) {
		switch p.advance().Kind {
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return
			}
		}
	}
}

// resyncTop skips to the next item starter at brace depth zero.
func (p *Parser) resyncTop() {
	depth := 0
	for !p.at(token.EOF) {
		k := p.peek().Kind
		if depth == 0 && isTopLevelStarter(k) {
			return
		}
		switch k {
		case token.LBrace:
			depth++
		case token.RBrace:
			if depth > 0 {
				depth--
			}
		}
		p.advance()
	}
}

func isTopLevelStarter(k token.Kind) bool {
	switch k {
	case token.KwFn, token.KwStruct, token.KwImpl, token.KwPub, token.KwUse, token.Hash:
		return true
	default:
		return false
	}
}

// resyncUntil advances until one of kinds is reached outside nested delimiters.
func (p *Parser) resyncUntil(kinds ...token.Kind) {
	depth := 0
	for !p.at(token.EOF) {
		k := p.peek().Kind
		if depth == 0 && slices.Contains(kinds, k) {
			return
		}
		switch k {
		case token.LBrace, token.LParen, token.LBracket:
			depth++
		case token.RBrace, token.RParen, token.RBracket:
			if depth == 0 {
				return
			}
			depth--
		}
		p.advance()
	}
}

func (p *Parser) parseIdent() (source.StringID, source.Span, bool) {
	if p.at(token.Ident) {
		tok := p.advance()
		return p.arenas.Strings.Intern(tok.Text), tok.Span, true
	}
	p.err(diag.SynExpectIdentifier, "expected identifier, got "+describe(p.peek()))
	return source.NoStringID, p.diagnosticSpan(), false
}

func (p *Parser) intern(s string) source.StringID {
	return p.arenas.Strings.Intern(s)
}

func describe(tok token.Token) string {
	if tok.Kind == token.EOF {
		return "end of file"
	}
	return "'" + tok.Text + "'"
}

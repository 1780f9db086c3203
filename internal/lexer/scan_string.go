package lexer

import (
	"borrowck/internal/diag"
	"borrowck/internal/token"
)

// scanString scans "...". Escapes are skipped, not validated. Multi-line
// strings are allowed.
func (lx *Lexer) scanString() token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Bump() // opening '"'
	for !lx.cursor.EOF() {
		switch lx.cursor.Peek() {
		case '"':
			lx.cursor.Bump()
			sp := lx.cursor.SpanFrom(start)
			return token.Token{Kind: token.StringLit, Span: sp, Text: lx.text(sp)}
		case '\\':
			lx.cursor.Bump()
			lx.bumpRune()
		default:
			lx.bumpRune()
		}
	}
	sp := lx.cursor.SpanFrom(start)
	lx.errLex(diag.LexUnterminatedString, sp, "unterminated string literal")
	return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
}

// scanQuote handles both char literals ('x', '\n') and lifetimes ('a, 'static).
func (lx *Lexer) scanQuote() token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Bump() // '\''

	if lx.cursor.Peek() == '\\' {
		lx.cursor.Bump()
		lx.bumpRune() // escaped char, may itself be '\''
		for !lx.cursor.EOF() && lx.cursor.Peek() != '\'' && lx.cursor.Peek() != '\n' {
			lx.bumpRune()
		}
		return lx.finishChar(start)
	}

	r, sz := lx.peekRune()
	if sz == 0 {
		return lx.finishChar(start)
	}
	lx.bumpRune()
	if lx.cursor.Peek() == '\'' {
		return lx.finishChar(start)
	}
	if !isIdentStartRune(r) {
		return lx.finishChar(start)
	}
	for {
		r, sz = lx.peekRune()
		if sz == 0 || !isIdentContinueRune(r) {
			break
		}
		lx.bumpRune()
	}
	sp := lx.cursor.SpanFrom(start)
	return token.Token{Kind: token.Lifetime, Span: sp, Text: lx.text(sp)}
}

func (lx *Lexer) finishChar(start Mark) token.Token {
	if lx.cursor.Eat('\'') {
		sp := lx.cursor.SpanFrom(start)
		return token.Token{Kind: token.CharLit, Span: sp, Text: lx.text(sp)}
	}
	sp := lx.cursor.SpanFrom(start)
	lx.errLex(diag.LexUnterminatedChar, sp, "unterminated char literal")
	return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
}

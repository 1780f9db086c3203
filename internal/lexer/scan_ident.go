package lexer

import (
	"golang.org/x/text/unicode/norm"

	"borrowck/internal/token"
)

// scanIdentOrKeyword scans an identifier and checks it against the keyword
// table. Non-ASCII identifiers are NFC-normalized so that visually equal names
// resolve to the same binding.
func (lx *Lexer) scanIdentOrKeyword() token.Token {
	start := lx.cursor.Mark()

	r, sz := lx.peekRune()
	if sz == 0 || !isIdentStartRune(r) {
		return lx.scanOperatorOrPunct()
	}
	ascii := true
	for {
		r, sz = lx.peekRune()
		if sz == 0 {
			break
		}
		if r < utf8RuneSelf {
			if !isIdentContinueByte(byte(r)) {
				break
			}
			lx.cursor.Bump()
			continue
		}
		if !isIdentContinueRune(r) {
			break
		}
		ascii = false
		lx.bumpRune()
	}

	sp := lx.cursor.SpanFrom(start)
	text := lx.text(sp)
	if text == "_" {
		return token.Token{Kind: token.Underscore, Span: sp, Text: text}
	}
	if k, ok := token.LookupKeyword(text); ok {
		return token.Token{Kind: k, Span: sp, Text: text}
	}
	if !ascii {
		text = norm.NFC.String(text)
	}
	return token.Token{Kind: token.Ident, Span: sp, Text: text}
}

package lexer

import (
	"borrowck/internal/diag"
	"borrowck/internal/token"
)

// scanNumber accepts 123, 1_000, 0x.., 0b.., 0o.., 1.5, 1e-3 and a trailing
// type suffix (10u8, 2.0f64). The suffix stays in Token.Text.
func (lx *Lexer) scanNumber() token.Token {
	start := lx.cursor.Mark()
	kind := token.IntLit

	if lx.cursor.Peek() == '0' {
		if _, b1, ok := lx.cursor.Peek2(); ok {
			var digit func(byte) bool
			switch b1 {
			case 'x', 'X':
				digit = isHex
			case 'b', 'B':
				digit = func(b byte) bool { return b == '0' || b == '1' }
			case 'o', 'O':
				digit = func(b byte) bool { return b >= '0' && b <= '7' }
			}
			if digit != nil {
				lx.cursor.Off += 2
				n := 0
				for digit(lx.cursor.Peek()) || lx.cursor.Peek() == '_' {
					lx.cursor.Bump()
					n++
				}
				if n == 0 {
					sp := lx.cursor.SpanFrom(start)
					lx.errLex(diag.LexBadNumber, sp, "expected digits after radix prefix")
					return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
				}
				lx.scanSuffix()
				sp := lx.cursor.SpanFrom(start)
				return token.Token{Kind: kind, Span: sp, Text: lx.text(sp)}
			}
		}
	}

	lx.eatDigits()

	// fraction; "1..5" and "t.0.x" are not floats
	if b0, b1, ok := lx.cursor.Peek2(); ok && b0 == '.' && isDec(b1) {
		kind = token.FloatLit
		lx.cursor.Bump()
		lx.eatDigits()
	}

	if b := lx.cursor.Peek(); b == 'e' || b == 'E' {
		mark := lx.cursor.Mark()
		lx.cursor.Bump()
		if s := lx.cursor.Peek(); s == '+' || s == '-' {
			lx.cursor.Bump()
		}
		if isDec(lx.cursor.Peek()) {
			kind = token.FloatLit
			lx.eatDigits()
		} else {
			lx.cursor.Reset(mark)
		}
	}

	if suffix := lx.scanSuffix(); len(suffix) > 0 && suffix[0] == 'f' {
		kind = token.FloatLit
	}

	sp := lx.cursor.SpanFrom(start)
	return token.Token{Kind: kind, Span: sp, Text: lx.text(sp)}
}

func (lx *Lexer) eatDigits() {
	for isDec(lx.cursor.Peek()) || lx.cursor.Peek() == '_' {
		lx.cursor.Bump()
	}
}

// scanSuffix consumes an identifier-like literal suffix such as u8 or f64.
func (lx *Lexer) scanSuffix() string {
	start := lx.cursor.Mark()
	if !isIdentStartByte(lx.cursor.Peek()) || lx.cursor.Peek() == '_' {
		return ""
	}
	for isIdentContinueByte(lx.cursor.Peek()) {
		lx.cursor.Bump()
	}
	return lx.text(lx.cursor.SpanFrom(start))
}

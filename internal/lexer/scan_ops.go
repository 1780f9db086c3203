package lexer

import (
	"borrowck/internal/diag"
	"borrowck/internal/token"
)

// Longest match first: three-byte, then two-byte, then single-byte operators.
func (lx *Lexer) scanOperatorOrPunct() token.Token {
	start := lx.cursor.Mark()
	emit := func(k token.Kind) token.Token {
		sp := lx.cursor.SpanFrom(start)
		return token.Token{Kind: k, Span: sp, Text: lx.text(sp)}
	}

	switch {
	case lx.try3('.', '.', '='):
		return emit(token.DotDotEq)
	case lx.try2('.', '.'):
		return emit(token.DotDot)
	case lx.try2(':', ':'):
		return emit(token.ColonColon)
	case lx.try2('-', '>'):
		return emit(token.Arrow)
	case lx.try2('=', '>'):
		return emit(token.FatArrow)
	case lx.try2('&', '&'):
		return emit(token.AndAnd)
	case lx.try2('|', '|'):
		return emit(token.OrOr)
	case lx.try2('=', '='):
		return emit(token.EqEq)
	case lx.try2('!', '='):
		return emit(token.BangEq)
	case lx.try2('<', '='):
		return emit(token.LtEq)
	case lx.try2('>', '='):
		return emit(token.GtEq)
	case lx.try2('+', '='):
		return emit(token.PlusAssign)
	case lx.try2('-', '='):
		return emit(token.MinusAssign)
	case lx.try2('*', '='):
		return emit(token.StarAssign)
	case lx.try2('/', '='):
		return emit(token.SlashAssign)
	case lx.try2('%', '='):
		return emit(token.PercentAssign)
	}

	switch lx.cursor.Bump() {
	case '+':
		return emit(token.Plus)
	case '-':
		return emit(token.Minus)
	case '*':
		return emit(token.Star)
	case '/':
		return emit(token.Slash)
	case '%':
		return emit(token.Percent)
	case '=':
		return emit(token.Assign)
	case '!':
		return emit(token.Bang)
	case '<':
		return emit(token.Lt)
	case '>':
		return emit(token.Gt)
	case '&':
		return emit(token.Amp)
	case '|':
		return emit(token.Pipe)
	case ':':
		return emit(token.Colon)
	case ';':
		return emit(token.Semicolon)
	case ',':
		return emit(token.Comma)
	case '.':
		return emit(token.Dot)
	case '(':
		return emit(token.LParen)
	case ')':
		return emit(token.RParen)
	case '{':
		return emit(token.LBrace)
	case '}':
		return emit(token.RBrace)
	case '[':
		return emit(token.LBracket)
	case ']':
		return emit(token.RBracket)
	case '#':
		return emit(token.Hash)
	case '_':
		return emit(token.Underscore)
	case '?':
		return emit(token.Question)
	default:
		// resync on a rune boundary so a multibyte char yields one error
		lx.cursor.Reset(start)
		lx.bumpRune()
		sp := lx.cursor.SpanFrom(start)
		lx.errLex(diag.LexUnknownChar, sp, "unknown character "+quoteText(lx.text(sp)))
		return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
	}
}

func quoteText(s string) string {
	return "'" + s + "'"
}

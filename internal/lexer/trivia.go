package lexer

import (
	"borrowck/internal/diag"
	"borrowck/internal/token"
)

// collectLeadingTrivia gathers whitespace and comments before a significant token.
//   - runs of ' ', '\t' coalesce into one TriviaSpace
//   - runs of '\n' coalesce into one TriviaNewline
//   - //... and ///... up to '\n'
//   - /* ... */ with nesting; an unterminated comment is reported and cut at EOF
func (lx *Lexer) collectLeadingTrivia() {
	lx.hold = nil
	for !lx.cursor.EOF() {
		start := lx.cursor.Mark()
		switch b := lx.cursor.Peek(); {
		case b == ' ' || b == '\t' || b == '\r':
			for b2 := lx.cursor.Peek(); b2 == ' ' || b2 == '\t' || b2 == '\r'; b2 = lx.cursor.Peek() {
				lx.cursor.Bump()
			}
			lx.pushTrivia(token.TriviaSpace, start)
		case b == '\n':
			for lx.cursor.Peek() == '\n' {
				lx.cursor.Bump()
			}
			lx.pushTrivia(token.TriviaNewline, start)
		case b == '/' && lx.scanComment():
		default:
			return
		}
	}
}

func (lx *Lexer) pushTrivia(kind token.TriviaKind, start Mark) {
	sp := lx.cursor.SpanFrom(start)
	lx.hold = append(lx.hold, token.Trivia{Kind: kind, Span: sp, Text: lx.text(sp)})
}

func (lx *Lexer) scanComment() bool {
	start := lx.cursor.Mark()
	b0, b1, ok := lx.cursor.Peek2()
	if !ok || b0 != '/' {
		return false
	}
	switch b1 {
	case '/':
		lx.cursor.Off += 2
		kind := token.TriviaLineComment
		if lx.cursor.Peek() == '/' {
			kind = token.TriviaDocLine
		}
		for !lx.cursor.EOF() && lx.cursor.Peek() != '\n' {
			lx.cursor.Bump()
		}
		lx.pushTrivia(kind, start)
		return true
	case '*':
		lx.cursor.Off += 2
		depth := 1
		for !lx.cursor.EOF() && depth > 0 {
			switch {
			case lx.try2('/', '*'):
				depth++
			case lx.try2('*', '/'):
				depth--
			default:
				lx.cursor.Bump()
			}
		}
		if depth > 0 {
			lx.errLex(diag.LexUnterminatedBlockComment, lx.cursor.SpanFrom(start), "unterminated block comment")
		}
		lx.pushTrivia(token.TriviaBlockComment, start)
		return true
	}
	return false
}

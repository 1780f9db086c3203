package lexer

import (
	"borrowck/internal/source"
	"borrowck/internal/token"
)

type Lexer struct {
	file   *source.File
	cursor Cursor
	opts   Options
	look   *token.Token
	hold   []token.Trivia
}

func New(file *source.File, opts Options) *Lexer {
	return &Lexer{
		file:   file,
		cursor: NewCursor(file),
		opts:   opts,
	}
}

// Next returns the next significant token with its leading trivia.
// After EOF it keeps returning EOF.
func (lx *Lexer) Next() token.Token {
	if lx.look != nil {
		tok := *lx.look
		lx.look = nil
		return tok
	}

	lx.collectLeadingTrivia()

	if lx.cursor.EOF() {
		return token.Token{Kind: token.EOF, Span: lx.emptySpan()}
	}

	ch := lx.cursor.Peek()
	var tok token.Token
	switch {
	case ch == '_':
		b0, b1, ok := lx.cursor.Peek2()
		if ok && b0 == '_' && isIdentContinueByte(b1) {
			tok = lx.scanIdentOrKeyword()
		} else {
			tok = lx.scanOperatorOrPunct()
		}
	case isIdentStartByte(ch), ch >= utf8RuneSelf:
		tok = lx.scanIdentOrKeyword()
	case isDec(ch):
		tok = lx.scanNumber()
	case ch == '"':
		tok = lx.scanString()
	case ch == '\'':
		tok = lx.scanQuote()
	default:
		tok = lx.scanOperatorOrPunct()
	}

	tok.Leading = lx.hold
	lx.hold = nil
	return tok
}

// Peek returns the next token without consuming it.
func (lx *Lexer) Peek() token.Token {
	t := lx.Next()
	lx.look = &t
	return t
}

// All drains the lexer up to and including EOF.
func (lx *Lexer) All() []token.Token {
	var out []token.Token
	for {
		t := lx.Next()
		out = append(out, t)
		if t.Kind == token.EOF {
			return out
		}
	}
}

func (lx *Lexer) emptySpan() source.Span {
	return source.Span{File: lx.file.ID, Start: lx.cursor.Off, End: lx.cursor.Off}
}

func (lx *Lexer) text(sp source.Span) string {
	return string(lx.file.Content[sp.Start:sp.End])
}

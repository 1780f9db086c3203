package token

import (
	"borrowck/internal/source"
)

// Token represents a single source token with its location and trivia.
type Token struct {
	Kind    Kind
	Span    source.Span
	Text    string
	Leading []Trivia
}

// IsLiteral reports whether the token is a numeric, boolean, char or string literal.
func (t Token) IsLiteral() bool {
	switch t.Kind {
	case IntLit, FloatLit, StringLit, CharLit, KwTrue, KwFalse:
		return true
	default:
		return false
	}
}

// IsKeyword reports whether the token is a language keyword.
func (t Token) IsKeyword() bool {
	return t.Kind >= KwFn && t.Kind <= KwUse
}

func (t Token) IsIdent() bool { return t.Kind == Ident }

// IsAssignOp reports whether the token is '=' or a compound assignment.
func (t Token) IsAssignOp() bool {
	switch t.Kind {
	case Assign, PlusAssign, MinusAssign, StarAssign, SlashAssign, PercentAssign:
		return true
	default:
		return false
	}
}

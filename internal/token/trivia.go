package token

import "borrowck/internal/source"

type TriviaKind uint8

const (
	TriviaSpace TriviaKind = iota
	TriviaNewline
	TriviaLineComment
	TriviaBlockComment
	TriviaDocLine
)

type Trivia struct {
	Kind TriviaKind
	Span source.Span
	Text string
}

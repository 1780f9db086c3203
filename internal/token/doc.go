// Package token defines lexical token kinds and trivia.
// Invariants:
//   - Token.Span matches Text exactly.
//   - Comments and whitespace are leading Trivia and never appear in the main
//     token stream.
//   - Built-in type names (i32, usize, String, Vec, ...) are identifiers; the
//     lowering layer classifies them.
package token

package lexer

import (
	"borrowck/internal/diag"
	"borrowck/internal/source"
)

type Options struct {
	Reporter diag.Reporter // nil: errors are dropped, lexing continues
}

func (lx *Lexer) errLex(code diag.Code, sp source.Span, msg string) {
	if lx.opts.Reporter == nil {
		return
	}
	diag.ReportError(lx.opts.Reporter, code, sp, msg).Emit()
}

package parser

import (
	"borrowck/internal/diag"
	"borrowck/internal/fix"
	"borrowck/internal/source"
	"borrowck/internal/token"
)

// diagnosticSpan points right after the last consumed token when the parser
// stands at EOF, so "expected ';'" lands on the line that misses it.
func (p *Parser) diagnosticSpan() source.Span {
	peek := p.peek()
	if peek.Kind == token.EOF && p.lastSpan.End > 0 {
		return p.lastSpan.ZeroideToEnd()
	}
	return peek.Span
}

// expect consumes k or reports code with msg.
func (p *Parser) expect(k token.Kind, code diag.Code, msg string) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	sp := p.diagnosticSpan()
	p.report(code, diag.SevError, sp, msg, nil)
	return token.Token{Kind: token.Invalid, Span: sp, Text: p.peek().Text}, false
}

// expectSemicolon reports a missing ';' after the previous token with an insert fix.
func (p *Parser) expectSemicolon(what string) bool {
	if p.eat(token.Semicolon) {
		return true
	}
	insert := p.lastSpan.ZeroideToEnd()
	p.report(diag.SynExpectSemicolon, diag.SevError, insert, "expected ';' after "+what, fix.InsertText("insert ';'", insert, ";"))
	return false
}

func (p *Parser) err(code diag.Code, msg string) bool {
	return p.report(code, diag.SevError, p.diagnosticSpan(), msg, nil)
}

func (p *Parser) report(code diag.Code, sev diag.Severity, sp source.Span, msg string, suggestion *diag.Fix) bool {
	if sev == diag.SevError {
		p.opts.CurrentErrors++
	}
	if p.opts.Reporter == nil {
		return false
	}
	if sev == diag.SevError && p.opts.MaxErrors > 0 && p.opts.CurrentErrors > p.opts.MaxErrors {
		return false
	}
	diag.NewReportBuilder(p.opts.Reporter, sev, code, sp, msg).WithFixSuggestion(suggestion).Emit()
	return true
}

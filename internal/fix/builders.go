package fix

import (
	"borrowck/internal/diag"
	"borrowck/internal/source"
)

// Option mutates fix during construction.
type Option func(*diag.Fix)

// WithApplicability overrides applicability metadata.
func WithApplicability(app diag.FixApplicability) Option {
	return func(f *diag.Fix) {
		f.Applicability = app
	}
}

func build(title string, edits []diag.FixEdit, opts []Option) *diag.Fix {
	f := &diag.Fix{
		Title:         title,
		Applicability: diag.FixApplicabilityAlwaysSafe,
		Edits:         edits,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// InsertText creates a fix that inserts text at the start of at.
func InsertText(title string, at source.Span, text string, opts ...Option) *diag.Fix {
	at = at.ZeroideToStart()
	return build(title, []diag.FixEdit{{Span: at, NewText: text}}, opts)
}

// DeleteSpan removes text covered by span; expect guards the old content.
func DeleteSpan(title string, span source.Span, expect string, opts ...Option) *diag.Fix {
	return build(title, []diag.FixEdit{{Span: span, OldText: expect}}, opts)
}

// ReplaceSpan replaces text covered by span with newText.
func ReplaceSpan(title string, span source.Span, newText, expect string, opts ...Option) *diag.Fix {
	return build(title, []diag.FixEdit{{Span: span, NewText: newText, OldText: expect}}, opts)
}

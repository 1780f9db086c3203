package diag

import (
	"borrowck/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

// FixApplicability describes how confident a producer is in a fix.
type FixApplicability uint8

const (
	FixApplicabilityAlwaysSafe FixApplicability = iota
	FixApplicabilitySafeWithHeuristics
	FixApplicabilityManualReview
)

func (a FixApplicability) String() string {
	switch a {
	case FixApplicabilityAlwaysSafe:
		return "always-safe"
	case FixApplicabilitySafeWithHeuristics:
		return "safe-with-heuristics"
	default:
		return "manual-review"
	}
}

type FixEdit struct {
	Span    source.Span
	NewText string
	OldText string // optional guard
}

type Fix struct {
	Title         string
	Applicability FixApplicability
	Edits         []FixEdit
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
	Fixes    []*Fix
}

// Package diag defines the diagnostic model shared by the front end and the
// ownership checker.
//
// A Diagnostic carries a Severity, a stable numeric Code (rendered as LEX/SYN/
// SEM/BRW/IO/INT + four digits), a short message, the primary span, optional
// notes pointing at related spans ("borrow occurs here"), and optional fixes
// expressed as text edits.
//
// Producers emit through a Reporter; BagReporter stores into a Bag which can be
// sorted and deduplicated. Rendering lives in internal/diagfmt, apart from the
// single-line golden/short form in golden.go which tests and the CLI share.
package diag

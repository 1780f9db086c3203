package borrowck

import (
	"cmp"
	"slices"

	"borrowck/internal/diag"
	"borrowck/internal/mir"
	"borrowck/internal/source"
)

// Kind classifies a borrow check violation.
type Kind uint8

const (
	UseAfterMove Kind = iota + 1
	MoveWhileBorrowed
	WriteWhileRead
	WriteWhileWrite
	ReadWhileWrite
	AssignToImmutable
	BorrowOfMovedOrUninit
	UseOfUninitialized
	DroppedWhileBorrowed
)

var kindNames = [...]string{
	UseAfterMove:          "UseAfterMove",
	MoveWhileBorrowed:     "MoveWhileBorrowed",
	WriteWhileRead:        "AliasingViolation/WriteWhileRead",
	WriteWhileWrite:       "AliasingViolation/WriteWhileWrite",
	ReadWhileWrite:        "AliasingViolation/ReadWhileWrite",
	AssignToImmutable:     "AssignToImmutable",
	BorrowOfMovedOrUninit: "BorrowOfMovedOrUninit",
	UseOfUninitialized:    "UseOfUninitialized",
	DroppedWhileBorrowed:  "DroppedWhileBorrowed",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// Code maps the kind to its stable diagnostic code.
func (k Kind) Code() diag.Code {
	switch k {
	case UseAfterMove:
		return diag.BorrowUseAfterMove
	case MoveWhileBorrowed:
		return diag.BorrowMoveWhileBorrowed
	case WriteWhileRead:
		return diag.BorrowWriteWhileRead
	case WriteWhileWrite:
		return diag.BorrowWriteWhileWrite
	case ReadWhileWrite:
		return diag.BorrowReadWhileWrite
	case AssignToImmutable:
		return diag.BorrowAssignToImmutable
	case BorrowOfMovedOrUninit:
		return diag.BorrowOfMovedOrUninit
	case UseOfUninitialized:
		return diag.BorrowUseOfUninitialized
	case DroppedWhileBorrowed:
		return diag.BorrowDroppedWhileBorrowed
	default:
		return diag.UnknownCode
	}
}

// IsAliasing reports the three AliasingViolation flavours.
func (k Kind) IsAliasing() bool {
	return k == WriteWhileRead || k == WriteWhileWrite || k == ReadWhileWrite
}

// Related points at the loan or move a violation conflicts with.
type Related struct {
	Point mir.Point
	Span  source.Span
	Label string
}

type Diagnostic struct {
	Kind  Kind
	Place mir.Place
	// PlaceText renders Place with binding names, e.g. v[_].
	PlaceText string
	Point     mir.Point
	Span      source.Span
	Related   *Related
	Message   string
	Fix       *diag.Fix
}

func (d *Diagnostic) relatedPoint() mir.Point {
	if d.Related == nil {
		return mir.Point{Block: mir.NoBlockID, Index: -1}
	}
	return d.Related.Point
}

// Result is the outcome of checking one function.
type Result struct {
	Func        *mir.Func
	Loans       []Loan
	Regions     []Region
	Diagnostics []Diagnostic
}

// Accepted reports whether the function has no violations.
func (r *Result) Accepted() bool {
	return r == nil || len(r.Diagnostics) == 0
}

// Report forwards every violation to rep as an error diagnostic.
func (r *Result) Report(rep diag.Reporter) {
	if r == nil || rep == nil {
		return
	}
	for i := range r.Diagnostics {
		d := &r.Diagnostics[i]
		b := diag.ReportError(rep, d.Kind.Code(), d.Span, d.Message)
		if d.Related != nil {
			b.WithNote(d.Related.Span, d.Related.Label)
		}
		if d.Fix != nil {
			b.WithFixSuggestion(d.Fix)
		}
		b.Emit()
	}
}

type diagKey struct {
	kind    Kind
	point   mir.Point
	related mir.Point
}

// collector keeps the first diagnostic per (kind, point, related point).
type collector struct {
	diags []Diagnostic
	seen  map[diagKey]struct{}
}

func (c *collector) add(d Diagnostic) {
	key := diagKey{kind: d.Kind, point: d.Point, related: d.relatedPoint()}
	if _, dup := c.seen[key]; dup {
		return
	}
	if c.seen == nil {
		c.seen = make(map[diagKey]struct{})
	}
	c.seen[key] = struct{}{}
	c.diags = append(c.diags, d)
}

// sorted orders diagnostics by source position, then point, kind and
// related point.
func (c *collector) sorted() []Diagnostic {
	slices.SortStableFunc(c.diags, func(a, b Diagnostic) int {
		if n := cmp.Compare(a.Span.Start, b.Span.Start); n != 0 {
			return n
		}
		if n := comparePoints(a.Point, b.Point); n != 0 {
			return n
		}
		if n := cmp.Compare(a.Kind, b.Kind); n != 0 {
			return n
		}
		return comparePoints(a.relatedPoint(), b.relatedPoint())
	})
	return c.diags
}

package diag

import "borrowck/internal/source"

// reportKey identifies a diagnostic by what the user sees: the same code at
// the same span with the same message is one problem, whatever its notes.
type reportKey struct {
	code    Code
	primary source.Span
	msg     string
}

// DedupReporter forwards each distinct diagnostic to next once and counts
// the repeats it swallows.
type DedupReporter struct {
	next       Reporter
	seen       map[reportKey]Severity
	suppressed int
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: make(map[reportKey]Severity)}
}

func (r *DedupReporter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note, fixes []*Fix) {
	if r == nil {
		return
	}
	key := reportKey{code: code, primary: primary, msg: msg}
	// a repeat is dropped unless it escalates the severity
	if prev, ok := r.seen[key]; ok && prev >= sev {
		r.suppressed++
		return
	}
	r.seen[key] = sev
	if r.next != nil {
		r.next.Report(code, sev, primary, msg, notes, fixes)
	}
}

// Suppressed returns how many reports were dropped as repeats.
func (r *DedupReporter) Suppressed() int {
	if r == nil {
		return 0
	}
	return r.suppressed
}

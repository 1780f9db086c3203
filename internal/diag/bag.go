package diag

import (
	"fmt"
	"sort"
)

// Bag collects diagnostics up to a limit. A zero or negative limit means unbounded.
type Bag struct {
	items   []*Diagnostic
	max     int
	dropped int
}

func NewBag(max int) *Bag {
	capacity := max
	if capacity <= 0 || capacity > 64 {
		capacity = 64
	}
	return &Bag{
		items: make([]*Diagnostic, 0, capacity),
		max:   max,
	}
}

// Add добавляет диагностику, учитывая лимит.
// Возвращает false, если диагностика не добавлена (достигнут лимит).
func (b *Bag) Add(d *Diagnostic) bool {
	if d == nil {
		return false
	}
	if b.max > 0 && len(b.items) >= b.max {
		b.dropped++
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Cap() int {
	return b.max
}

// Dropped counts diagnostics rejected because of the limit.
func (b *Bag) Dropped() int {
	return b.dropped
}

// AddDropped accounts for n diagnostics rejected elsewhere, e.g. in a
// cached run.
func (b *Bag) AddDropped(n int) {
	if n > 0 {
		b.dropped += n
	}
}

func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity >= SevError {
			return true
		}
	}
	return false
}

func (b *Bag) HasWarnings() bool {
	for _, d := range b.items {
		if d.Severity >= SevWarning {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items возвращает read-only slice диагностик.
func (b *Bag) Items() []*Diagnostic {
	return b.items
}

// Merge appends diagnostics from other, growing the limit if needed.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	if total := len(b.items) + len(other.items); b.max > 0 && total > b.max {
		b.max = total
	}
	b.items = append(b.items, other.items...)
	b.dropped += other.dropped
}

// Filter keeps diagnostics for which keep returns true.
func (b *Bag) Filter(keep func(*Diagnostic) bool) {
	out := b.items[:0]
	for _, d := range b.items {
		if keep(d) {
			out = append(out, d)
		}
	}
	b.items = out
}

// Sort orders by file, start, end, severity (desc), code (asc).
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		if di.Primary.File != dj.Primary.File {
			return di.Primary.File < dj.Primary.File
		}
		if di.Primary.Start != dj.Primary.Start {
			return di.Primary.Start < dj.Primary.Start
		}
		if di.Primary.End != dj.Primary.End {
			return di.Primary.End < dj.Primary.End
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.Code < dj.Code
	})
}

// Dedup drops diagnostics repeating Code+Primary+Message.
func (b *Bag) Dedup() {
	seen := make(map[string]struct{}, len(b.items))
	out := make([]*Diagnostic, 0, len(b.items))
	for _, d := range b.items {
		key := fmt.Sprintf("%d:%s:%s", d.Code, d.Primary, d.Message)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, d)
	}
	b.items = out
}

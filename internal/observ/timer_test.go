package observ

import (
	"strings"
	"testing"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	lex := tm.Begin("parse")
	tm.End(lex, "2 items")
	bc := tm.Begin("borrowck")
	tm.End(bc, "")
	tm.End(42, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("want 2 phases, got %d", len(r.Phases))
	}
	if r.Phases[0].Name != "parse" || r.Phases[0].Note != "2 items" {
		t.Fatalf("unexpected first phase %+v", r.Phases[0])
	}
	if r.TotalMS < r.Phases[0].DurationMS {
		t.Fatal("total must cover every phase")
	}
}

func TestNilTimerReport(t *testing.T) {
	var tm *Timer
	if r := tm.Report(); len(r.Phases) != 0 || r.TotalMS != 0 {
		t.Fatalf("nil timer report = %+v", r)
	}
}

func TestAggregate(t *testing.T) {
	a := Report{TotalMS: 3, Phases: []PhaseReport{{Name: "parse", DurationMS: 1}, {Name: "borrowck", DurationMS: 2}}}
	b := Report{TotalMS: 5, Phases: []PhaseReport{{Name: "borrowck", DurationMS: 4}, {Name: "lower_mir", DurationMS: 1, Note: "x"}}}

	got := Aggregate(a, b)
	if got.TotalMS != 8 {
		t.Fatalf("total = %v", got.TotalMS)
	}
	var names []string
	for _, p := range got.Phases {
		names = append(names, p.Name)
	}
	if strings.Join(names, ",") != "parse,borrowck,lower_mir" {
		t.Fatalf("phase order = %v", names)
	}
	if got.Phases[1].DurationMS != 6 || got.Phases[2].Note != "" {
		t.Fatalf("unexpected aggregate %+v", got.Phases)
	}

	sum := got.Summary()
	if !strings.HasPrefix(sum, "timings:\n") || !strings.Contains(sum, "borrowck") || !strings.Contains(sum, "total") {
		t.Fatalf("summary = %q", sum)
	}
}

// Package observ measures how long each stage of a check takes.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Phase is one timed stage, e.g. "parse" or "borrowck".
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer collects phases in the order they begin. Safe for concurrent use.
type Timer struct {
	mu     sync.Mutex
	phases []Phase
}

func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 8)} }

// Begin starts a phase and returns its index for End.
func (t *Timer) Begin(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End finishes the phase started by Begin. Unknown indices are ignored.
func (t *Timer) End(idx int, note string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// PhaseReport is the serialisable form of a phase.
type PhaseReport struct {
	Name       string  `json:"name" msgpack:"name"`
	DurationMS float64 `json:"duration_ms" msgpack:"duration_ms"`
	Note       string  `json:"note,omitempty" msgpack:"note,omitempty"`
}

// Report summarises a timer.
type Report struct {
	TotalMS float64       `json:"total_ms" msgpack:"total_ms"`
	Phases  []PhaseReport `json:"phases" msgpack:"phases"`
}

func (t *Timer) Report() Report {
	if t == nil {
		return Report{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.phases) == 0 {
		return Report{}
	}
	r := Report{Phases: make([]PhaseReport, len(t.phases))}
	var total time.Duration
	for i, p := range t.phases {
		total += p.Dur
		r.Phases[i] = PhaseReport{Name: p.Name, DurationMS: millis(p.Dur), Note: p.Note}
	}
	r.TotalMS = millis(total)
	return r
}

// Aggregate sums phases with the same name across reports. Phases keep the
// order in which their name first appears; notes are dropped.
func Aggregate(reports ...Report) Report {
	var out Report
	index := make(map[string]int)
	for _, r := range reports {
		out.TotalMS += r.TotalMS
		for _, p := range r.Phases {
			i, ok := index[p.Name]
			if !ok {
				i = len(out.Phases)
				index[p.Name] = i
				out.Phases = append(out.Phases, PhaseReport{Name: p.Name})
			}
			out.Phases[i].DurationMS += p.DurationMS
		}
	}
	return out
}

// Summary renders the report as an aligned table.
func (r Report) Summary() string {
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range r.Phases {
		fmt.Fprintf(&sb, "  %-20s %9.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			sb.WriteString("  // " + p.Note)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "  %-20s %9.2f ms\n", "total", r.TotalMS)
	return sb.String()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

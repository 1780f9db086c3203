// Package trace is the logging layer of the checker.
//
// Work is described as nested spans: a run contains files, a file contains
// passes (lexing, MIR lowering, borrow checking) and a pass may open a span
// per function. The active tracer and the current span travel in a
// context.Context:
//
//	ctx = trace.WithTracer(ctx, tr)
//	ctx, span := trace.Start(ctx, trace.ScopePass, "borrowck")
//	defer span.End("")
//
// Levels select how deep the recorded tree goes. LevelError records nothing
// on its own; pair it with a ring tracer and dump the ring when a run fails.
package trace

import (
	"fmt"
	"strings"
	"time"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff Level = iota
	LevelError
	LevelPhase  // run and file spans
	LevelDetail // plus passes
	LevelDebug  // plus per-function spans
)

var levelNames = [...]string{
	LevelOff:    "off",
	LevelError:  "error",
	LevelPhase:  "phase",
	LevelDetail: "detail",
	LevelDebug:  "debug",
}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel accepts the level names case-insensitively.
func ParseLevel(s string) (Level, error) {
	for l, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(l), nil //nolint:gosec // index of a five element array
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|phase|detail|debug)", s)
}

// Allows reports whether events of the given scope are recorded at l.
func (l Level) Allows(scope Scope) bool {
	switch l {
	case LevelPhase:
		return scope <= ScopeFile
	case LevelDetail:
		return scope <= ScopePass
	case LevelDebug:
		return true
	default:
		return false
	}
}

// Scope is the granularity of an event. Lower values are coarser.
type Scope uint8

const (
	ScopeRun Scope = iota + 1
	ScopeFile
	ScopePass
	ScopeFunc
)

func (s Scope) String() string {
	switch s {
	case ScopeRun:
		return "run"
	case ScopeFile:
		return "file"
	case ScopePass:
		return "pass"
	case ScopeFunc:
		return "func"
	default:
		return "unknown"
	}
}

// Kind of event.
type Kind uint8

const (
	KindBegin Kind = iota + 1
	KindEnd
	KindPoint
)

func (k Kind) String() string {
	switch k {
	case KindBegin:
		return "begin"
	case KindEnd:
		return "end"
	case KindPoint:
		return "point"
	default:
		return "unknown"
	}
}

// Event is one trace record.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	Depth    int
	Name     string
	Detail   string
	Dur      time.Duration // set on KindEnd
	Fields   map[string]string
}

// Tracer receives events. Implementations must be safe for concurrent use.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
}

type nopTracer struct{}

func (nopTracer) Emit(*Event)  {}
func (nopTracer) Flush() error { return nil }
func (nopTracer) Close() error { return nil }
func (nopTracer) Level() Level { return LevelOff }

// Nop discards everything.
var Nop Tracer = nopTracer{}

// Enabled reports whether t records events of the given scope.
func Enabled(t Tracer, scope Scope) bool {
	return t != nil && t.Level().Allows(scope)
}

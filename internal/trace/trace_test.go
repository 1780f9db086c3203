package trace

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"off", "ERROR", "Phase", "detail", "debug"} {
		l, err := ParseLevel(name)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", name, err)
		}
		if !strings.EqualFold(l.String(), name) {
			t.Fatalf("ParseLevel(%q) = %s", name, l)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestLevelAllows(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeRun, false},
		{LevelError, ScopeRun, false},
		{LevelPhase, ScopeFile, true},
		{LevelPhase, ScopePass, false},
		{LevelDetail, ScopePass, true},
		{LevelDetail, ScopeFunc, false},
		{LevelDebug, ScopeFunc, true},
	}
	for _, c := range cases {
		if got := c.level.Allows(c.scope); got != c.want {
			t.Errorf("%s.Allows(%s) = %v, want %v", c.level, c.scope, got, c.want)
		}
	}
}

func TestNestedSpansNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatNDJSON)
	ctx := WithTracer(context.Background(), tr)

	ctx, file := Start(ctx, ScopeFile, "check_file")
	passCtx, pass := Start(ctx, ScopePass, "borrowck")
	if _, fn := Start(passCtx, ScopeFunc, "main"); fn != nil {
		t.Fatal("func span must not be recorded at detail level")
	}
	pass.With("funcs", "2").End("")
	file.End("a.rsl")

	var events []jsonEvent
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var ev jsonEvent
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		events = append(events, ev)
	}
	if len(events) != 4 {
		t.Fatalf("want 4 events, got %d", len(events))
	}
	if events[1].Name != "borrowck" || events[1].ParentID != events[0].SpanID {
		t.Fatalf("pass span not nested under file span: %+v", events[1])
	}
	if events[2].Kind != "end" || events[2].Fields["funcs"] != "2" {
		t.Fatalf("pass end event lost its fields: %+v", events[2])
	}
	if events[3].Detail != "a.rsl" {
		t.Fatalf("file end detail = %q", events[3].Detail)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Seq <= events[i-1].Seq {
			t.Fatal("sequence numbers must increase")
		}
	}
}

func TestTextFormatIndentsChildren(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithTracer(context.Background(), NewStreamTracer(&buf, LevelDetail, FormatText))
	ctx, file := Start(ctx, ScopeFile, "check_file")
	_, pass := Start(ctx, ScopePass, "lower_mir")
	pass.End("")
	file.End("")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("want 4 lines, got %q", buf.String())
	}
	if !strings.Contains(lines[1], "]   → lower_mir") {
		t.Fatalf("child span not indented: %q", lines[1])
	}
	if !strings.Contains(lines[3], "] ← check_file") {
		t.Fatalf("unexpected end line: %q", lines[3])
	}
}

func TestDisabledTracerIsFree(t *testing.T) {
	ctx := context.Background()
	next, span := Start(ctx, ScopeRun, "run")
	if span != nil || next != ctx {
		t.Fatal("no tracer attached: span must be nil and ctx unchanged")
	}
	if span.End("") != 0 || span.ID() != 0 {
		t.Fatal("nil span must be inert")
	}
	Point(ctx, ScopeRun, "noop", "")
}

func TestRingKeepsMostRecent(t *testing.T) {
	ring := NewRingTracer(3, LevelDebug)
	for i := range 5 {
		ring.Emit(&Event{Kind: KindPoint, Scope: ScopeFunc, Name: string(rune('a' + i))})
	}
	var names []string
	for _, ev := range ring.Snapshot() {
		names = append(names, ev.Name)
	}
	if got := strings.Join(names, ""); got != "cde" {
		t.Fatalf("snapshot = %q, want cde", got)
	}
	var buf bytes.Buffer
	if err := ring.Dump(&buf, FormatText); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), "\n") != 3 {
		t.Fatalf("dump = %q", buf.String())
	}
}

func TestNewErrorLevelKeepsRing(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelError, Mode: ModeBoth, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	ctx := WithTracer(context.Background(), tr)
	_, span := Start(ctx, ScopePass, "borrowck")
	span.End("")

	if buf.Len() != 0 {
		t.Fatalf("stream at error level wrote %q", buf.String())
	}
	ring := RingOf(tr)
	if ring == nil {
		t.Fatal("both mode must carry a ring")
	}
	if n := len(ring.Snapshot()); n != 2 {
		t.Fatalf("ring holds %d events, want 2", n)
	}
}

func TestNewOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff, Mode: ModeStream})
	if err != nil || tr != Nop {
		t.Fatalf("New(off) = %v, %v", tr, err)
	}
	if RingOf(tr) != nil {
		t.Fatal("nop has no ring")
	}
}

package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

// Format of a stream sink.
type Format uint8

const (
	FormatText Format = iota
	FormatNDJSON
)

// ParseFormat accepts "text" and "ndjson".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	default:
		return FormatText, fmt.Errorf("invalid trace format: %q (expected: text|ndjson)", s)
	}
}

// StreamTracer writes each event as soon as it is emitted.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format Format
	origin time.Time
}

func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return &StreamTracer{w: w, level: level, format: format, origin: time.Now()}
}

func (t *StreamTracer) Emit(ev *Event) {
	if !t.level.Allows(ev.Scope) {
		return
	}
	var data []byte
	switch t.format {
	case FormatNDJSON:
		data = formatNDJSON(ev)
	default:
		data = formatText(ev, t.origin)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	// a failing trace sink must not fail the check
	_, _ = t.w.Write(data) //nolint:errcheck
}

func (t *StreamTracer) Flush() error {
	if f, ok := t.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	if s, ok := t.w.(interface{ Sync() error }); ok && !isStdStream(t.w) {
		return s.Sync()
	}
	return nil
}

// Close flushes and closes the writer unless it is stdout or stderr.
func (t *StreamTracer) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}
	if c, ok := t.w.(io.Closer); ok && !isStdStream(t.w) {
		return c.Close()
	}
	return nil
}

func (t *StreamTracer) Level() Level { return t.level }

type jsonEvent struct {
	Time     string            `json:"time"`
	Seq      uint64            `json:"seq"`
	Kind     string            `json:"kind"`
	Scope    string            `json:"scope"`
	SpanID   uint64            `json:"span_id,omitempty"`
	ParentID uint64            `json:"parent_id,omitempty"`
	Name     string            `json:"name"`
	Detail   string            `json:"detail,omitempty"`
	DurUS    int64             `json:"dur_us,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

func formatNDJSON(ev *Event) []byte {
	data, err := json.Marshal(jsonEvent{
		Time:     ev.Time.Format(time.RFC3339Nano),
		Seq:      ev.Seq,
		Kind:     ev.Kind.String(),
		Scope:    ev.Scope.String(),
		SpanID:   ev.SpanID,
		ParentID: ev.ParentID,
		Name:     ev.Name,
		Detail:   ev.Detail,
		DurUS:    ev.Dur.Microseconds(),
		Fields:   ev.Fields,
	})
	if err != nil {
		return nil
	}
	return append(data, '\n')
}

// formatText renders "[  1.234ms] → name (detail) {k=v}" indented by depth.
func formatText(ev *Event, origin time.Time) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%8.3fms] ", float64(ev.Time.Sub(origin))/float64(time.Millisecond))
	sb.WriteString(strings.Repeat("  ", ev.Depth))
	switch ev.Kind {
	case KindBegin:
		sb.WriteString("→ ")
	case KindEnd:
		sb.WriteString("← ")
	case KindPoint:
		sb.WriteString("• ")
	}
	sb.WriteString(ev.Name)
	if ev.Detail != "" {
		sb.WriteString(" (")
		sb.WriteString(ev.Detail)
		sb.WriteString(")")
	}
	if ev.Kind == KindEnd {
		fmt.Fprintf(&sb, " %.3fms", float64(ev.Dur)/float64(time.Millisecond))
	}
	if len(ev.Fields) > 0 {
		sb.WriteString(" {")
		for i, k := range slices.Sorted(maps.Keys(ev.Fields)) {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteByte('=')
			sb.WriteString(ev.Fields[k])
		}
		sb.WriteString("}")
	}
	sb.WriteByte('\n')
	return []byte(sb.String())
}

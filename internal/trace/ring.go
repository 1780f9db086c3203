package trace

import (
	"io"
	"sync"
)

// RingTracer keeps the most recent events in memory so they can be dumped
// after a failure.
type RingTracer struct {
	mu     sync.Mutex
	events []Event
	head   int
	full   bool
	level  Level
}

func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = DefaultRingSize
	}
	return &RingTracer{events: make([]Event, capacity), level: level}
}

func (t *RingTracer) Emit(ev *Event) {
	if !t.level.Allows(ev.Scope) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events[t.head] = *ev
	t.head = (t.head + 1) % len(t.events)
	if t.head == 0 {
		t.full = true
	}
}

// Snapshot returns the stored events oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.full {
		return append([]Event(nil), t.events[:t.head]...)
	}
	out := make([]Event, 0, len(t.events))
	out = append(out, t.events[t.head:]...)
	return append(out, t.events[:t.head]...)
}

// Dump writes the snapshot to w.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	events := t.Snapshot()
	if len(events) == 0 {
		return nil
	}
	origin := events[0].Time
	for i := range events {
		var data []byte
		if format == FormatNDJSON {
			data = formatNDJSON(&events[i])
		} else {
			data = formatText(&events[i], origin)
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Flush() error { return nil }

func (t *RingTracer) Close() error { return nil }

func (t *RingTracer) Level() Level { return t.level }

package trace

import (
	"context"
	"sync/atomic"
	"time"
)

var (
	seq     atomic.Uint64
	spanIDs atomic.Uint64
)

// nextSeq orders events across every tracer of the process.
func nextSeq() uint64 { return seq.Add(1) }

// Span is an open interval of work. A nil or disabled span is valid and
// ignores every call.
type Span struct {
	tracer Tracer
	id     uint64
	parent uint64
	depth  int
	scope  Scope
	name   string
	start  time.Time
	fields map[string]string
}

type tracerKey struct{}

type spanKey struct{}

// WithTracer attaches t to ctx.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

func spanFromContext(ctx context.Context) *Span {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(spanKey{}).(*Span)
	return s
}

// Start opens a span under the span carried by ctx. The returned context
// carries the new span when it is recorded; otherwise ctx is returned as is.
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	t := FromContext(ctx)
	if !Enabled(t, scope) {
		return ctx, nil
	}
	s := &Span{
		tracer: t,
		id:     spanIDs.Add(1),
		scope:  scope,
		name:   name,
		start:  time.Now(),
	}
	if parent := spanFromContext(ctx); parent != nil {
		s.parent = parent.id
		s.depth = parent.depth + 1
	}
	t.Emit(&Event{
		Time:     s.start,
		Seq:      nextSeq(),
		Kind:     KindBegin,
		Scope:    scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Depth:    s.depth,
		Name:     name,
	})
	return context.WithValue(ctx, spanKey{}, s), s
}

// With records a key/value pair on the end event.
func (s *Span) With(key, value string) *Span {
	if s == nil {
		return nil
	}
	if s.fields == nil {
		s.fields = make(map[string]string)
	}
	s.fields[key] = value
	return s
}

// End closes the span and returns its duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil {
		return 0
	}
	now := time.Now()
	dur := now.Sub(s.start)
	s.tracer.Emit(&Event{
		Time:     now,
		Seq:      nextSeq(),
		Kind:     KindEnd,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Depth:    s.depth,
		Name:     s.name,
		Detail:   detail,
		Dur:      dur,
		Fields:   s.fields,
	})
	return dur
}

// ID is zero for spans that are not recorded.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Point records an instant event under the current span of ctx.
func Point(ctx context.Context, scope Scope, name, detail string) {
	t := FromContext(ctx)
	if !Enabled(t, scope) {
		return
	}
	ev := &Event{
		Time:   time.Now(),
		Seq:    nextSeq(),
		Kind:   KindPoint,
		Scope:  scope,
		Name:   name,
		Detail: detail,
	}
	if parent := spanFromContext(ctx); parent != nil {
		ev.ParentID = parent.id
		ev.Depth = parent.depth + 1
	}
	t.Emit(ev)
}

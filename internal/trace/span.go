package trace

import (
	"sync/atomic"
	"time"
)

var (
	seq     atomic.Uint64
	spanIDs atomic.Uint64
	// open counts the spans begun but not ended, per scope.
	open [len(scopeNames)]atomic.Int64
)

// NextSeq returns a monotonically increasing sequence number.
func NextSeq() uint64 { return seq.Add(1) }

// Open reports how many spans of scope are in flight.
func Open(scope Scope) int64 {
	if int(scope) >= len(open) {
		return 0
	}
	return open[scope].Load()
}

// Span is one timed region. The zero Span and a Span of a disabled tracer
// are inert.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	job     int
	scope   Scope
	name    string
	started time.Time
	extra   map[string]string
	ended   atomic.Bool
}

// Begin opens a span under parent and emits its begin event.
func Begin(t Tracer, scope Scope, name string, parent SpanContext) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return &Span{}
	}
	s := &Span{
		tracer:  t,
		id:      spanIDs.Add(1),
		parent:  parent.SpanID,
		job:     parent.Job,
		scope:   scope,
		name:    name,
		started: time.Now(),
	}
	if int(scope) < len(open) {
		open[scope].Add(1)
	}
	t.Emit(&Event{
		Time:     s.started,
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Job:      s.job,
		Name:     name,
	})
	return s
}

// End emits the end event with detail and returns the span's duration.
// Only the first call has an effect.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.tracer == nil || s.ended.Swap(true) {
		return 0
	}
	now := time.Now()
	if int(s.scope) < len(open) {
		open[s.scope].Add(-1)
	}
	s.tracer.Emit(&Event{
		Time:     now,
		Kind:     KindSpanEnd,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Job:      s.job,
		Name:     s.name,
		Detail:   detail,
		Extra:    s.extra,
	})
	return now.Sub(s.started)
}

// WithExtra attaches key=value to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s.tracer == nil {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string, 2)
	}
	s.extra[key] = value
	return s
}

// ID is 0 for an inert span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

func (s *Span) context() SpanContext { return SpanContext{SpanID: s.id, Job: s.job} }

package trace

import "time"

// Kind is what an event marks.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat
)

var kindNames = [...]string{"unknown", "begin", "end", "point", "heartbeat"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[0]
}

// Scope is the granularity of an event; lower is coarser.
type Scope uint8

const (
	ScopeDriver   Scope = iota + 1 // one compile request or batch
	ScopePass                      // graph, analysis, compose, mix, streams
	ScopeFragment                  // per-fragment analysis
	ScopeNode                      // per-method or per-reference work
)

var scopeNames = [...]string{"unknown", "driver", "pass", "fragment", "node"}

func (s Scope) String() string {
	if int(s) < len(scopeNames) {
		return scopeNames[s]
	}
	return scopeNames[0]
}

// Event is one trace record.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	// Job is the 1-based batch request the event belongs to, 0 outside a batch.
	Job    int
	Name   string // e.g. "mix", "semantic:ComputeColor"
	Detail string
	Extra  map[string]string
}

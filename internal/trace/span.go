package trace

import (
	"sync"
	"sync/atomic"
	"time"
)

var (
	globalSeq   uint64
	globalSpans uint64

	// unitOf maps open span ids to the compilation unit they belong to,
	// so spans opened by passes inherit the unit of their parent.
	unitOf sync.Map
)

// NextSeq returns a monotonically increasing sequence number.
func NextSeq() uint64 { return atomic.AddUint64(&globalSeq, 1) }

func nextSpanID() uint64 { return atomic.AddUint64(&globalSpans, 1) }

// Span is an open begin/end pair. Spans below a unit span carry the
// unit's name, and spans below a phase span also carry the phase.
type Span struct {
	tracer   Tracer
	id       uint64
	parentID uint64
	scope    Scope
	name     string
	unit     string
	phase    string
	started  time.Time
	extra    map[string]string
	// muted spans were dropped by the level; they emit nothing but
	// failures.
	muted bool
}

type spanOwner struct {
	unit  string
	phase string
}

// Begin opens a span under parent (0 for a root) and emits its begin
// event.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	var owner spanOwner
	if v, ok := unitOf.Load(parent); ok && parent != 0 {
		owner = v.(spanOwner)
	}
	return open(t, scope, name, parent, owner)
}

// BeginUnit opens the span covering the compilation of unit.
func BeginUnit(t Tracer, unit string, parent uint64) *Span {
	return open(t, ScopeUnit, "unit", parent, spanOwner{unit: unit})
}

// BeginPhase opens the span of one pipeline phase run over unit.
func BeginPhase(t Tracer, unit, phase string, parent uint64) *Span {
	return open(t, ScopePass, phase, parent, spanOwner{unit: unit, phase: phase})
}

func open(t Tracer, scope Scope, name string, parent uint64, owner spanOwner) *Span {
	if t == nil {
		t = Nop
	}
	if !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return &Span{tracer: t, id: parent, name: name, unit: owner.unit, phase: owner.phase, muted: true}
	}
	id := nextSpanID()
	now := time.Now()
	if owner.unit != "" {
		unitOf.Store(id, owner)
	}
	t.Emit(&Event{
		Time:     now,
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   id,
		ParentID: parent,
		Name:     name,
		Unit:     owner.unit,
		Phase:    owner.phase,
	})
	return &Span{
		tracer:   t,
		id:       id,
		parentID: parent,
		scope:    scope,
		name:     name,
		unit:     owner.unit,
		phase:    owner.phase,
		started:  now,
	}
}

// End emits the end event and returns the span's duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.muted || s.tracer == nil || !s.tracer.Enabled() {
		return 0
	}
	unitOf.Delete(s.id)
	dur := time.Since(s.started)
	s.tracer.Emit(&Event{
		Time:     time.Now(),
		Kind:     KindSpanEnd,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parentID,
		Name:     s.name,
		Unit:     s.unit,
		Phase:    s.phase,
		Detail:   detail,
		Extra:    s.extra,
	})
	return dur
}

// Finish ends a unit or phase span with "ok", or with err's message after
// recording the failure.
func (s *Span) Finish(err error) time.Duration {
	if err == nil {
		return s.End("ok")
	}
	if s != nil && s.tracer != nil && s.tracer.Enabled() {
		s.tracer.Emit(&Event{
			Time:   time.Now(),
			Kind:   KindError,
			Scope:  ScopeDriver,
			SpanID: s.id,
			Name:   s.name,
			Unit:   s.unit,
			Phase:  s.phase,
			Detail: err.Error(),
		})
	}
	return s.End("failed")
}

// WithExtra adds a key-value pair to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s.muted || s.tracer == nil || !s.tracer.Enabled() {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string)
	}
	s.extra[key] = value
	return s
}

// ID returns the span ID. A span dropped by the level reports its
// parent's id so that spans opened below it attach to the nearest
// emitted ancestor.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Unit returns the compilation unit the span belongs to, if any.
func (s *Span) Unit() string {
	if s == nil {
		return ""
	}
	return s.unit
}

package trace

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestStreamTracerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)

	pass := Begin(tr, ScopePass, "typecheck", 0)
	node := Begin(tr, ScopeNode, "fn:main", pass.ID())
	node.End("")
	pass.WithExtra("nodes", "12").End("ok")

	out := buf.String()
	if !strings.Contains(out, "typecheck") {
		t.Fatalf("pass span missing from output:\n%s", out)
	}
	if strings.Contains(out, "fn:main") {
		t.Fatalf("node span leaked at phase level:\n%s", out)
	}
	if !strings.Contains(out, "nodes=12") {
		t.Fatalf("extra not rendered:\n%s", out)
	}
}

func TestRingTracerWrapsAround(t *testing.T) {
	r := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(r, ScopeNode, name, "")
	}
	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].Name != "b" || snap[1].Name != "c" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestFailEmittedAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelError, FormatNDJSON)
	Point(tr, ScopePass, "ignored", "")
	Fail(tr, "lower", errors.New("bad shape"))
	out := buf.String()
	if strings.Contains(out, "ignored") || !strings.Contains(out, `"kind":"error"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestPassSpansInheritUnitAndPhase(t *testing.T) {
	r := NewRingTracer(16, LevelDebug)
	unit := BeginUnit(r, "app", 0)
	phase := BeginPhase(r, "app", "check", unit.ID())
	pass := Begin(r, ScopeNode, "fn:main", phase.ID())
	pass.End("")
	phase.Finish(nil)
	unit.End("ok")

	for _, ev := range r.Snapshot() {
		if ev.Unit != "app" {
			t.Fatalf("event %s/%s lost its unit: %+v", ev.Kind, ev.Name, ev)
		}
		if ev.Name == "fn:main" && ev.Phase != "check" {
			t.Fatalf("node span not tagged with phase: %+v", ev)
		}
	}
	if got := Begin(r, ScopeNode, "stray", 0).Unit(); got != "" {
		t.Fatalf("root span got unit %q", got)
	}
}

func TestMutedPhaseStillReportsFailure(t *testing.T) {
	r := NewRingTracer(16, LevelError)
	unit := BeginUnit(r, "lib", 0)
	phase := BeginPhase(r, "lib", "lower", unit.ID())
	if phase.ID() != unit.ID() {
		t.Fatalf("muted span id %d, want parent %d", phase.ID(), unit.ID())
	}
	phase.Finish(errors.New("bad shape"))

	snap := r.Snapshot()
	if len(snap) != 1 || snap[0].Kind != KindError {
		t.Fatalf("expected a single error event, got %+v", snap)
	}
	if snap[0].Unit != "lib" || snap[0].Phase != "lower" || snap[0].Detail != "bad shape" {
		t.Fatalf("error event %+v", snap[0])
	}
}

func TestUnitFilterKeepsDriverEvents(t *testing.T) {
	r := NewRingTracer(16, LevelDebug)
	f := FilterUnits(r, "app")
	Point(f, ScopeDriver, "plan", "")
	BeginUnit(f, "app", 0).End("ok")
	BeginUnit(f, "lib", 0).End("ok")

	for _, ev := range r.Snapshot() {
		if ev.Unit == "lib" {
			t.Fatalf("filtered unit leaked: %+v", ev)
		}
	}
	if n := len(r.Snapshot()); n != 3 {
		t.Fatalf("got %d events, want 3", n)
	}
}

func TestContextPropagation(t *testing.T) {
	ctx := context.Background()
	if FromContext(ctx) != Nop {
		t.Fatalf("expected Nop tracer on empty context")
	}
	r := NewRingTracer(8, LevelDebug)
	ctx = WithTracer(ctx, r)
	if FromContext(ctx) != Tracer(r) {
		t.Fatalf("tracer not propagated")
	}
	span := Begin(r, ScopePass, "bind", 0)
	ctx = WithSpan(ctx, span)
	if CurrentSpan(ctx) != span.ID() {
		t.Fatalf("span id not propagated")
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DETAIL")
	if err != nil || lvl != LevelDetail {
		t.Fatalf("ParseLevel: %v %v", lvl, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

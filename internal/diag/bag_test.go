package diag

import (
	"errors"
	"testing"

	"molten/internal/source"
)

func TestBagLimitAndSort(t *testing.T) {
	b := NewBag(2)
	b.Add(NewError(SemaTypeMismatch, source.Pos{Line: 4, Col: 1}, "late"))
	b.Add(NewError(SemaUndefinedReference, source.Pos{Line: 1, Col: 3}, "early"))
	if b.Add(NewError(SemaTypeMismatch, source.Pos{Line: 9, Col: 1}, "dropped")) {
		t.Fatalf("bag accepted a diagnostic past its limit")
	}
	b.Sort()
	if got := b.Items()[0].Message; got != "early" {
		t.Fatalf("expected earliest diagnostic first, got %q", got)
	}
	if !b.HasErrors() {
		t.Fatalf("expected HasErrors")
	}
}

func TestBagDedup(t *testing.T) {
	b := NewBag(10)
	pos := source.Pos{Line: 2, Col: 2}
	b.Add(NewError(SemaTypeMismatch, pos, "a"))
	b.Add(NewError(SemaTypeMismatch, pos, "b"))
	b.Add(NewError(SemaUndefinedReference, pos, "c"))
	b.Dedup()
	if b.Len() != 2 {
		t.Fatalf("expected 2 diagnostics after dedup, got %d", b.Len())
	}
}

func TestWrapKeepsInnermostPosition(t *testing.T) {
	kind := errors.New("boom")
	inner := Wrap(SemaTypeMismatch, source.Pos{Line: 3, Col: 4}, kind)
	outer := Wrap(SemaUndefinedReference, source.Pos{Line: 1, Col: 1}, inner)
	var de *Error
	if !errors.As(outer, &de) {
		t.Fatalf("expected *Error")
	}
	if de.Code != SemaTypeMismatch || de.Pos.Line != 3 {
		t.Fatalf("outer wrap replaced inner position: %+v", de)
	}
	if !errors.Is(outer, kind) {
		t.Fatalf("kind error not reachable through Unwrap")
	}
}

func TestReportUnwrappedIsInternal(t *testing.T) {
	b := NewBag(4)
	Report(BagReporter{Bag: b}, errors.New("plain"))
	if b.Len() != 1 || b.Items()[0].Code != InternalInvariant {
		t.Fatalf("expected one internal diagnostic, got %+v", b.Items())
	}
	if !b.Items()[0].Code.Internal() {
		t.Fatalf("InternalInvariant must be internal")
	}
}

func TestSeverityLabels(t *testing.T) {
	tests := []struct {
		sev   Severity
		str   string
		label string
	}{
		{SevInfo, "INFO", "info"},
		{SevWarning, "WARNING", "warning"},
		{SevError, "ERROR", "error"},
		{Severity(9), "Severity(9)", "unknown"},
	}
	for _, tt := range tests {
		if tt.sev.String() != tt.str || tt.sev.Label() != tt.label {
			t.Errorf("%d: got %q/%q, want %q/%q", tt.sev, tt.sev.String(), tt.sev.Label(), tt.str, tt.label)
		}
	}
}

package asset

import (
	"errors"
	"testing"
)

func TestAssets_AddGet(t *testing.T) {
	a := New[string]()

	h := a.Add("vertex")
	if h.IsZero() {
		t.Fatal("expected non-zero handle")
	}

	v, ok := a.Get(h)
	if !ok {
		t.Fatal("expected asset to be present")
	}
	if *v != "vertex" {
		t.Errorf("Get = %q, want %q", *v, "vertex")
	}
	if a.Len() != 1 {
		t.Errorf("Len = %d, want 1", a.Len())
	}
}

func TestAssets_ZeroHandle(t *testing.T) {
	a := New[int]()
	a.Add(1)

	var h Handle[int]
	if _, ok := a.Get(h); ok {
		t.Error("zero handle must not resolve")
	}
	if h.String() != "nil" {
		t.Errorf("String = %q, want nil", h.String())
	}
}

func TestAssets_RemoveInvalidatesHandle(t *testing.T) {
	a := New[int]()
	h := a.Add(7)
	copyOfH := h

	v, ok := a.Remove(h)
	if !ok || v != 7 {
		t.Fatalf("Remove = (%d, %v), want (7, true)", v, ok)
	}
	if a.Contains(copyOfH) {
		t.Error("copied handle must be stale after Remove")
	}
	if _, ok := a.Remove(h); ok {
		t.Error("second Remove must fail")
	}

	// The slot is reused with a new generation.
	h2 := a.Add(9)
	if h2.Index() != h.Index() {
		t.Errorf("expected slot reuse, got index %d want %d", h2.Index(), h.Index())
	}
	if h2.Generation() == h.Generation() {
		t.Error("reused slot must have a new generation")
	}
	if a.Contains(h) {
		t.Error("old handle must not resolve to the reused slot")
	}
	if got, _ := a.Get(h2); *got != 9 {
		t.Errorf("Get(h2) = %d, want 9", *got)
	}
}

func TestAssets_MustGet(t *testing.T) {
	a := New[int]()
	h := a.Add(1)
	a.Remove(h)

	_, err := a.MustGet(h)
	if !errors.Is(err, ErrMissing) {
		t.Errorf("MustGet error = %v, want ErrMissing", err)
	}
}

func TestAssets_SetAndEvents(t *testing.T) {
	a := New[string]()
	h := a.Add("a")

	if !a.Set(h, "b") {
		t.Fatal("Set on live handle must succeed")
	}
	if got, _ := a.Get(h); *got != "b" {
		t.Errorf("Get after Set = %q, want b", *got)
	}
	a.Remove(h)
	if a.Set(h, "c") {
		t.Error("Set on stale handle must fail")
	}

	events := a.DrainEvents()
	want := []EventKind{EventCreated, EventModified, EventRemoved}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, e := range events {
		if e.Kind != want[i] {
			t.Errorf("event %d = %v, want %v", i, e.Kind, want[i])
		}
		if e.Handle != h {
			t.Errorf("event %d handle = %v, want %v", i, e.Handle, h)
		}
	}
	if len(a.DrainEvents()) != 0 {
		t.Error("DrainEvents must clear the queue")
	}
}

func TestAssets_Handles(t *testing.T) {
	a := New[int]()
	h1 := a.Add(1)
	h2 := a.Add(2)
	h3 := a.Add(3)
	a.Remove(h2)

	got := a.Handles()
	if len(got) != 2 {
		t.Fatalf("Handles len = %d, want 2", len(got))
	}
	if got[0] != h1 || got[1] != h3 {
		t.Errorf("Handles = %v, want [%v %v]", got, h1, h3)
	}
}

func TestEventKind_String(t *testing.T) {
	tests := []struct {
		kind EventKind
		want string
	}{
		{EventCreated, "created"},
		{EventModified, "modified"},
		{EventRemoved, "removed"},
		{EventKind(42), "EventKind(42)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

package logic

import (
	"testing"
)

func TestDebouncerBaselineNoEdge(t *testing.T) {
	d := NewDebouncer(DefaultDebounce)
	if d.Update(true, t0) {
		t.Error("first sample must not produce an edge")
	}
	if !d.Pressed() {
		t.Error("baseline should adopt the first sample")
	}
	if d.Update(true, t0.Add(ms(100))) {
		t.Error("held button must not produce an edge")
	}
}

func TestDebouncerPressEdge(t *testing.T) {
	d := NewDebouncer(30 * ms(1))
	d.Update(false, t0)

	if d.Update(true, t0.Add(ms(10))) {
		t.Error("edge reported before settle window")
	}
	if d.Update(true, t0.Add(ms(30))) {
		t.Error("edge reported 20ms after change (window 30ms)")
	}
	if !d.Update(true, t0.Add(ms(40))) {
		t.Error("expected edge once stable for 30ms")
	}
	if d.Update(true, t0.Add(ms(50))) {
		t.Error("edge must be reported once")
	}
}

func TestDebouncerBounceRejected(t *testing.T) {
	d := NewDebouncer(30 * ms(1))
	d.Update(false, t0)

	samples := []struct {
		at      int
		pressed bool
	}{
		{5, true}, {10, false}, {15, true}, {20, false}, {25, true}, {30, false}, {100, false},
	}
	for _, s := range samples {
		if d.Update(s.pressed, t0.Add(ms(s.at))) {
			t.Fatalf("unexpected edge at %dms", s.at)
		}
	}
	if d.Pressed() {
		t.Error("bouncing that settles released must stay released")
	}
}

func TestDebouncerReleaseIsNotEdge(t *testing.T) {
	d := NewDebouncer(30 * ms(1))
	d.Update(true, t0)

	d.Update(false, t0.Add(ms(10)))
	if d.Update(false, t0.Add(ms(50))) {
		t.Error("release must not produce a press edge")
	}
	if d.Pressed() {
		t.Error("expected released after settle")
	}

	d.Update(true, t0.Add(ms(60)))
	if !d.Update(true, t0.Add(ms(95))) {
		t.Error("expected press edge after release")
	}
}

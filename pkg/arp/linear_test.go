package arp

import (
	"testing"

	"github.com/james-see/stablearp/pkg/params"
)

var chord = NewNoteSet(60, 64, 67, 72)

func newLinear(dir params.Direction, zigzag bool) (*Linear, *params.Parameters) {
	p := params.New()
	p.Linear.Direction.Set(dir)
	p.Linear.Zigzag.Set(zigzag)
	return NewLinear(&p.Linear), p
}

func TestLinearUp(t *testing.T) {
	l, _ := newLinear(params.Up, false)
	defer l.Close()

	tests := []struct {
		slot float64
		want int
	}{
		{0, 60},
		{1, 64},
		{2, 67},
		{3, 72},
		{4, 60},
		{4.75, 60},
		{9, 64},
	}

	for _, tt := range tests {
		if got := l.NextNote(tt.slot, chord, false); got != tt.want {
			t.Errorf("NextNote(%v) = %d, want %d", tt.slot, got, tt.want)
		}
	}
}

func TestLinearZigzagIndexes(t *testing.T) {
	want := []int{0, 1, 2, 3, 2, 1, 0, 1, 2, 3, 2, 1}
	for slot, w := range want {
		if got := Index(float64(slot), 4, params.Up, true); got != w {
			t.Errorf("Index(%d, 4, up, zigzag) = %d, want %d", slot, got, w)
		}
	}
}

func TestLinearZigzagNotes(t *testing.T) {
	l, _ := newLinear(params.Up, true)
	defer l.Close()

	want := []int{60, 64, 67, 72, 67, 64}
	for slot, w := range want {
		if got := l.NextNote(float64(slot), chord, false); got != w {
			t.Errorf("NextNote(%d) = %d, want %d", slot, got, w)
		}
	}
}

func TestLinearDown(t *testing.T) {
	l, _ := newLinear(params.Down, false)
	defer l.Close()

	want := []int{72, 67, 64, 60, 72}
	for slot, w := range want {
		if got := l.NextNote(float64(slot), chord, false); got != w {
			t.Errorf("NextNote(%d) = %d, want %d", slot, got, w)
		}
	}
}

func TestLinearDownZigzag(t *testing.T) {
	want := []int{3, 2, 1, 0, 1, 2, 3}
	for slot, w := range want {
		if got := Index(float64(slot), 4, params.Down, true); got != w {
			t.Errorf("Index(%d, 4, down, zigzag) = %d, want %d", slot, got, w)
		}
	}
}

func TestLinearDegenerateZigzag(t *testing.T) {
	single := NewNoteSet(48)
	for _, dir := range []params.Direction{params.Up, params.Down} {
		l, _ := newLinear(dir, true)
		for slot := 0; slot < 5; slot++ {
			if got := l.NextNote(float64(slot), single, false); got != 48 {
				t.Errorf("%v zigzag single note NextNote(%d) = %d, want 48", dir, slot, got)
			}
		}
		l.Close()
	}

	// two notes: cycle length 2, plain alternation
	for slot, w := range []int{0, 1, 0, 1} {
		if got := Index(float64(slot), 2, params.Up, true); got != w {
			t.Errorf("Index(%d, 2, up, zigzag) = %d, want %d", slot, got, w)
		}
	}
}

func TestLinearEmpty(t *testing.T) {
	l, _ := newLinear(params.Up, true)
	defer l.Close()

	if got := l.NextNote(3, NoteSet{}, true); got != NoNote {
		t.Errorf("NextNote(empty) = %d, want NoNote", got)
	}
}

func TestLinearNegativeSlot(t *testing.T) {
	tests := []struct {
		slot   float64
		zigzag bool
		want   int
	}{
		{-1, false, 3},
		{-0.5, false, 3},
		{-4, false, 0},
		{-1, true, 1},
	}

	for _, tt := range tests {
		if got := Index(tt.slot, 4, params.Up, tt.zigzag); got != tt.want {
			t.Errorf("Index(%v, zigzag=%v) = %d, want %d", tt.slot, tt.zigzag, got, tt.want)
		}
	}
}

func TestLinearFollowsParameterChanges(t *testing.T) {
	l, p := newLinear(params.Up, false)
	defer l.Close()

	if got := l.NextNote(0, chord, false); got != 60 {
		t.Fatalf("NextNote(0) = %d, want 60", got)
	}

	p.Linear.Direction.Set(params.Down)
	if got := l.NextNote(0, chord, false); got != 72 {
		t.Errorf("after Down NextNote(0) = %d, want 72", got)
	}

	p.Linear.Zigzag.Set(true)
	if got := l.NextNote(4, chord, false); got != 64 {
		t.Errorf("after zigzag NextNote(4) = %d, want 64", got)
	}
}

func TestLinearCloseUnsubscribes(t *testing.T) {
	l, p := newLinear(params.Up, false)
	if p.Linear.Direction.Listeners() != 1 || p.Linear.Zigzag.Listeners() != 1 {
		t.Fatalf("listeners = %d/%d, want 1/1",
			p.Linear.Direction.Listeners(), p.Linear.Zigzag.Listeners())
	}

	l.Close()
	l.Close()

	if p.Linear.Direction.Listeners() != 0 || p.Linear.Zigzag.Listeners() != 0 {
		t.Errorf("listeners after Close = %d/%d, want 0/0",
			p.Linear.Direction.Listeners(), p.Linear.Zigzag.Listeners())
	}

	// cache is frozen once closed
	p.Linear.Direction.Set(params.Down)
	if got := l.NextNote(0, chord, false); got != 60 {
		t.Errorf("closed NextNote(0) = %d, want 60", got)
	}
}

func TestLinearKindAndReset(t *testing.T) {
	l, _ := newLinear(params.Up, false)
	defer l.Close()

	l.Reset()
	l.Reset()
	if l.Kind() != params.AlgoLinear {
		t.Errorf("Kind() = %v, want linear", l.Kind())
	}
	if got := l.NextNote(1, chord, false); got != 64 {
		t.Errorf("NextNote(1) after Reset = %d, want 64", got)
	}
}

package arp

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/james-see/stablearp/pkg/debug"
	"github.com/james-see/stablearp/pkg/params"
)

// Linear walks the held notes by index. It keeps no draw history, so any
// slot can be queried in any order.
type Linear struct {
	p *params.LinearParameters

	zigzag    atomic.Bool
	direction atomic.Int32
	refresh   sync.Mutex

	cancels   []func()
	closeOnce sync.Once
}

// NewLinear binds a linear algorithm to p
func NewLinear(p *params.LinearParameters) *Linear {
	l := &Linear{p: p}
	l.cancels = append(l.cancels,
		p.Direction.Subscribe(func(params.Direction) { l.updateParameters() }),
		p.Zigzag.Subscribe(func(bool) { l.updateParameters() }),
	)
	l.updateParameters()
	return l
}

// updateParameters rereads both live values, ignoring what the listener was handed
func (l *Linear) updateParameters() {
	l.refresh.Lock()
	defer l.refresh.Unlock()
	l.zigzag.Store(l.p.Zigzag.Get())
	l.direction.Store(int32(l.p.Direction.Get()))
	debug.Log("linear", "parameters updated: direction=%v zigzag=%v",
		params.Direction(l.direction.Load()), l.zigzag.Load())
}

// NextNote ignores notesChanged; the index is recomputed from notes every call
func (l *Linear) NextNote(slot float64, notes NoteSet, _ bool) int {
	n := notes.Len()
	if n == 0 {
		return NoNote
	}

	i := Index(slot, n, params.Direction(l.direction.Load()), l.zigzag.Load())
	return notes.At(i)
}

// Index maps a slot to a position in a set of n notes (n > 0).
//
// Zigzag climbs to the top and back down without repeating either end:
// for n=4 the indexes run 0 1 2 3 2 1 0 1 ...
func Index(slot float64, n int, dir params.Direction, zigzag bool) int {
	step := int64(math.Floor(slot))

	var index int
	if zigzag && n > 1 {
		cycle := int64(2*n - 2)
		raw := int(mod(step, cycle))
		if raw >= n {
			raw = n - 2 - (raw - n)
		}
		index = raw
	} else {
		index = int(mod(step, int64(n)))
	}

	if dir == params.Down {
		index = n - 1 - index
	}
	return index
}

// mod is the non-negative remainder, so seeks before zero stay in range
func mod(a, b int64) int64 {
	r := a % b
	if r < 0 {
		r += b
	}
	return r
}

// Reset is a no-op: linear traversal has no history
func (l *Linear) Reset() {}

// Kind returns params.AlgoLinear
func (l *Linear) Kind() params.Algo { return params.AlgoLinear }

// Close cancels the direction and zigzag subscriptions
func (l *Linear) Close() {
	l.closeOnce.Do(func() {
		for _, cancel := range l.cancels {
			cancel()
		}
		l.cancels = nil
	})
}

package arp

import (
	"sync"
	"sync/atomic"

	"github.com/james-see/stablearp/pkg/debug"
	"github.com/james-see/stablearp/pkg/hashrand"
	"github.com/james-see/stablearp/pkg/params"
)

// DefaultDrawAttempts bounds the avoid-repeat loop
const DefaultDrawAttempts = 20

// noteTag is the hashrand domain for note draws
const noteTag = "Note"

// Random plays every held note once, in an order fixed by (seed, slot),
// before any note repeats, and never plays the same note twice in a row
// while the pool has a choice.
//
// Scrubbing reproduces the same notes as long as no other call has changed
// the pool in between: the draw depends on the slot, but which notes remain
// depends on the calls made since the last refill.
type Random struct {
	p *params.RandomParameters

	key      atomic.Int64
	refresh  sync.Mutex // orders reload of key
	attempts int

	available NoteSet
	last      int

	cancel    func()
	closeOnce sync.Once
}

// NewRandom binds a random algorithm to p
func NewRandom(p *params.RandomParameters, opts ...Option) *Random {
	o := options{drawAttempts: DefaultDrawAttempts}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Random{
		p:        p,
		attempts: o.drawAttempts,
		last:     NoNote,
	}
	r.cancel = p.Seed.Subscribe(r.valueChanged)
	r.reload()
	return r
}

// valueChanged rereads the live seed; the delivered value may already be stale
func (r *Random) valueChanged(int64) {
	r.reload()
	debug.Log("random", "seed key changed to %d", r.key.Load())
}

func (r *Random) reload() {
	r.refresh.Lock()
	defer r.refresh.Unlock()
	r.key.Store(r.p.Seed.Get())
}

// Key returns the cached seed key
func (r *Random) Key() int64 {
	return r.key.Load()
}

// NextNote draws from the pool, refilling it from notes when it is empty
// or when notesChanged is set
func (r *Random) NextNote(slot float64, notes NoteSet, notesChanged bool) int {
	if notes.IsEmpty() {
		return NoNote
	}
	if r.available.IsEmpty() || notesChanged {
		r.available.CopyFrom(notes)
	}

	switch r.available.Len() {
	case 0:
		return NoNote
	case 1:
		r.last = r.available.At(0)
		r.available.Clear()
		return r.last
	}

	note := r.draw(slot)
	if note == NoNote {
		return NoNote
	}
	r.available.Remove(note)
	r.last = note
	return note
}

func (r *Random) draw(slot float64) int {
	rng := hashrand.New(noteTag, r.key.Load(), slot)
	n := r.available.Len()
	for i := 0; i < r.attempts; i++ {
		maybe := r.available.At(rng.NextInt(0, n))
		if maybe != r.last {
			return maybe
		}
	}
	return NoNote
}

// Reset empties the pool and forgets the last note
func (r *Random) Reset() {
	r.available.Clear()
	r.last = NoNote
}

// Kind returns params.AlgoRandom
func (r *Random) Kind() params.Algo { return params.AlgoRandom }

// Close cancels the seed subscription
func (r *Random) Close() {
	r.closeOnce.Do(func() {
		r.cancel()
	})
}

// Package arp selects the next arpeggiator note for a timeline slot.
//
// An Algorithm is bound to a params.Parameters at construction. It caches
// the settings it needs and keeps the cache fresh through change listeners,
// so NextNote never touches the live parameters. Close releases the
// listeners; the parameters must stay valid until then.
package arp

import (
	"github.com/james-see/stablearp/pkg/params"
)

// NoNote means "emit nothing this tick"
const NoNote = -1

// Algorithm picks notes from the held set
type Algorithm interface {
	// NextNote returns the note for slot, or NoNote. notes is read-only.
	// notesChanged must be true when notes differs from the previous call.
	NextNote(slot float64, notes NoteSet, notesChanged bool) int

	// Reset clears draw history. Safe to call at any time, any number of times.
	Reset()

	// Kind identifies the variant
	Kind() params.Algo

	// Close cancels parameter subscriptions. Idempotent.
	Close()
}

// New builds the algorithm currently selected in p
func New(p *params.Parameters, opts ...Option) Algorithm {
	return NewOf(p.Algorithm.Get(), p, opts...)
}

// NewOf builds a specific algorithm bound to p. Unknown kinds fall back to linear.
func NewOf(kind params.Algo, p *params.Parameters, opts ...Option) Algorithm {
	switch kind {
	case params.AlgoRandom:
		return NewRandom(&p.Random, opts...)
	default:
		return NewLinear(&p.Linear)
	}
}

// Option tunes an algorithm at construction
type Option func(*options)

type options struct {
	drawAttempts int
}

// WithDrawAttempts sets how many draws the random algorithm makes to
// avoid repeating the previous note before giving up for the tick
func WithDrawAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.drawAttempts = n
		}
	}
}

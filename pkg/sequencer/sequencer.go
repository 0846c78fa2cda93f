// Package sequencer is the host side of the arpeggiator: it tracks held
// notes, detects chord changes between ticks and owns the active algorithm.
package sequencer

import (
	"sync"
	"sync/atomic"

	"github.com/james-see/stablearp/pkg/arp"
	"github.com/james-see/stablearp/pkg/debug"
	"github.com/james-see/stablearp/pkg/params"
)

// active wraps the interface so it fits in an atomic.Pointer
type active struct {
	algo arp.Algorithm
}

// Sequencer drives one arpeggiator voice.
//
// NoteOn, NoteOff, Tick and Stop belong to the sequencing goroutine.
// Parameter changes, including switching the algorithm, may come from any
// goroutine.
type Sequencer struct {
	p    *params.Parameters
	opts []arp.Option

	algo  atomic.Pointer[active]
	speed atomic.Int32

	held    arp.NoteSet
	last    arp.NoteSet
	started bool

	mu        sync.Mutex // serializes algorithm swaps and cache reloads
	closed    bool
	cancels   []func()
	closeOnce sync.Once
}

// New creates a sequencer bound to p
func New(p *params.Parameters, opts ...arp.Option) *Sequencer {
	s := &Sequencer{p: p, opts: opts}

	s.mu.Lock()
	s.cancels = append(s.cancels,
		p.Algorithm.Subscribe(func(params.Algo) { s.switchAlgorithm() }),
		p.Speed.Subscribe(func(params.Speed) { s.reloadSpeed() }),
	)
	s.algo.Store(&active{algo: arp.New(p, opts...)})
	s.speed.Store(int32(p.Speed.Get()))
	s.mu.Unlock()

	return s
}

// switchAlgorithm rebuilds the algorithm if the live kind differs from the
// active one. The notified value is ignored so late deliveries cannot undo
// a newer change.
func (s *Sequencer) switchAlgorithm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	kind := s.p.Algorithm.Get()
	old := s.algo.Load()
	if old == nil || old.algo.Kind() == kind {
		return
	}

	next := arp.NewOf(kind, s.p, s.opts...)
	s.algo.Store(&active{algo: next})
	old.algo.Close()
	debug.Log("sequencer", "algorithm switched to %v", kind)
}

func (s *Sequencer) reloadSpeed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed.Store(int32(s.p.Speed.Get()))
}

// Algorithm returns the active algorithm
func (s *Sequencer) Algorithm() arp.Algorithm {
	return s.algo.Load().algo
}

// Speed returns the cached note rate
func (s *Sequencer) Speed() params.Speed {
	return params.Speed(s.speed.Load())
}

// NoteOn adds a held note
func (s *Sequencer) NoteOn(note int) {
	s.held.Add(note)
}

// NoteOff releases a held note
func (s *Sequencer) NoteOff(note int) {
	s.held.Remove(note)
}

// SetHeld replaces the held notes
func (s *Sequencer) SetHeld(notes arp.NoteSet) {
	s.held.CopyFrom(notes)
}

// Held returns a copy of the held notes
func (s *Sequencer) Held() arp.NoteSet {
	return arp.NewNoteSet(s.held.Notes()...)
}

// Tick returns the note for slot, or arp.NoNote
func (s *Sequencer) Tick(slot float64) int {
	changed := !s.started || !s.held.Equal(s.last)
	if changed {
		s.last.CopyFrom(s.held)
		s.started = true
	}
	return s.Algorithm().NextNote(slot, s.held, changed)
}

// TickBeats ticks at a musical position given in quarter-note beats
func (s *Sequencer) TickBeats(beats float64) int {
	return s.Tick(s.Speed().Slot(beats))
}

// Stop resets draw history, as on transport stop
func (s *Sequencer) Stop() {
	s.Algorithm().Reset()
	s.started = false
}

// Pattern ticks steps consecutive slots starting at start
func (s *Sequencer) Pattern(start float64, steps int) []int {
	out := make([]int, steps)
	for i := range out {
		out[i] = s.Tick(start + float64(i))
	}
	return out
}

// Close releases the sequencer's and the active algorithm's subscriptions
func (s *Sequencer) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true
		for _, cancel := range s.cancels {
			cancel()
		}
		s.cancels = nil
		s.algo.Load().algo.Close()
	})
}

// Package converter renders arpeggiator output as Standard MIDI Files and
// arpeggiates the chords held in existing ones
package converter

import (
	"github.com/james-see/stablearp/pkg/arp"
	"github.com/james-see/stablearp/pkg/params"
)

// Step is one arpeggiator slot
type Step struct {
	Slot     float64
	Note     int   // arp.NoNote for a rest
	Velocity uint8 // 0 means default velocity
}

// IsRest reports whether the step emits nothing
func (s Step) IsRest() bool { return s.Note == arp.NoNote }

// Pattern is a rendered run of steps
type Pattern struct {
	Name  string
	Steps []Step
	Speed params.Speed
	Tempo float64
}

// Notes returns the note of every step, arp.NoNote for rests
func (p *Pattern) Notes() []int {
	out := make([]int, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Note
	}
	return out
}

// NoteSpan is a note held from Start to End, in quarter-note beats
type NoteSpan struct {
	Note     uint8
	Velocity uint8
	Start    float64
	End      float64
}

// Performance is the held-note timeline read from a MIDI file
type Performance struct {
	Spans  []NoteSpan
	Tempo  float64
	Length float64 // beats
}

// HeldAt returns the notes held at beat
func (p *Performance) HeldAt(beat float64) arp.NoteSet {
	var held arp.NoteSet
	for _, s := range p.Spans {
		if s.Start <= beat && beat < s.End {
			held.Add(int(s.Note))
		}
	}
	return held
}

// VelocityAt returns the velocity of note held at beat, or 0
func (p *Performance) VelocityAt(note int, beat float64) uint8 {
	for _, s := range p.Spans {
		if int(s.Note) == note && s.Start <= beat && beat < s.End {
			return s.Velocity
		}
	}
	return 0
}

package converter

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// DefaultVelocity is used for steps and notes without one
const DefaultVelocity = 100

// MIDIConverter reads and writes Standard MIDI Files
type MIDIConverter struct {
	ticksPerQuarter uint16
	tempo           float64
	gate            float64 // fraction of a step a note sounds for
	channel         uint8
}

// NewMIDIConverter creates a MIDI converter with 480 ticks per quarter,
// 120 BPM and a 75% gate
func NewMIDIConverter() *MIDIConverter {
	return &MIDIConverter{
		ticksPerQuarter: 480,
		tempo:           120.0,
		gate:            0.75,
	}
}

// SetGate sets the sounding fraction of each step, clamped to (0, 1]
func (m *MIDIConverter) SetGate(g float64) {
	if g <= 0 || g > 1 {
		return
	}
	m.gate = g
}

// SetChannel sets the output channel (0-15)
func (m *MIDIConverter) SetChannel(ch uint8) {
	m.channel = ch & 0x0F
}

// ParseMIDIFile reads a MIDI file and extracts its held notes
func (m *MIDIConverter) ParseMIDIFile(filename string) (*Performance, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	return m.ParseMIDI(data)
}

// ParseMIDI extracts every note span from all tracks, in beats
func (m *MIDIConverter) ParseMIDI(data []byte) (*Performance, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	resolution := float64(m.ticksPerQuarter)
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		resolution = float64(mt.Resolution())
	}

	perf := &Performance{Tempo: m.tempo}

	type key struct{ channel, note uint8 }
	type open struct {
		tick     int64
		velocity uint8
	}

	var lastTick int64
	tempoSeen := false
	for _, track := range s.Tracks {
		var tick int64
		pending := make(map[key]open)

		for _, ev := range track {
			tick += int64(ev.Delta)
			msg := ev.Message

			// tempo meta: FF 51 03 tt tt tt
			if len(msg) >= 6 && msg[0] == 0xFF && msg[1] == 0x51 && msg[2] == 0x03 {
				usPerBeat := uint32(msg[3])<<16 | uint32(msg[4])<<8 | uint32(msg[5])
				if usPerBeat > 0 && !tempoSeen {
					perf.Tempo = 60000000.0 / float64(usPerBeat)
					tempoSeen = true
				}
				continue
			}

			if len(msg) < 3 {
				continue
			}
			status, note, velocity := msg[0], msg[1], msg[2]
			k := key{channel: status & 0x0F, note: note}

			switch {
			case status&0xF0 == 0x90 && velocity > 0:
				if _, held := pending[k]; !held {
					pending[k] = open{tick: tick, velocity: velocity}
				}
			case status&0xF0 == 0x80 || (status&0xF0 == 0x90 && velocity == 0):
				if o, held := pending[k]; held {
					perf.Spans = append(perf.Spans, NoteSpan{
						Note:     note,
						Velocity: o.velocity,
						Start:    float64(o.tick) / resolution,
						End:      float64(tick) / resolution,
					})
					delete(pending, k)
				}
			}
		}

		// notes never released end with the track
		for k, o := range pending {
			perf.Spans = append(perf.Spans, NoteSpan{
				Note:     k.note,
				Velocity: o.velocity,
				Start:    float64(o.tick) / resolution,
				End:      float64(tick) / resolution,
			})
		}
		lastTick = max(lastTick, tick)
	}

	for _, sp := range perf.Spans {
		perf.Length = math.Max(perf.Length, sp.End)
	}
	perf.Length = math.Max(perf.Length, float64(lastTick)/resolution)

	if len(perf.Spans) == 0 {
		return nil, ErrNoNotes
	}
	return perf, nil
}

// GenerateMIDI writes pattern as a single-track SMF
func (m *MIDIConverter) GenerateMIDI(pattern *Pattern) ([]byte, error) {
	if pattern == nil {
		return nil, errors.New("nil pattern")
	}

	tempo := pattern.Tempo
	if tempo <= 0 {
		tempo = m.tempo
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(m.ticksPerQuarter)

	var track smf.Track
	if pattern.Name != "" {
		track.Add(0, smf.MetaTrackSequenceName(pattern.Name))
	}
	track.Add(0, smf.MetaTempo(tempo))
	track.Add(0, smf.MetaMeter(4, 4))

	ticksPerStep := float64(m.ticksPerQuarter) / pattern.Speed.PerBeat()
	noteLength := uint32(ticksPerStep * m.gate)
	if noteLength == 0 {
		noteLength = 1
	}

	var base float64
	if len(pattern.Steps) > 0 {
		base = pattern.Steps[0].Slot
	}

	var current uint32
	for _, step := range pattern.Steps {
		if step.IsRest() {
			continue
		}
		if step.Note < 0 || step.Note > 127 {
			return nil, fmt.Errorf("note %d out of range at slot %v", step.Note, step.Slot)
		}

		pos := math.Round((step.Slot - base) * ticksPerStep)
		if pos < 0 || uint32(pos) < current {
			return nil, fmt.Errorf("steps out of order at slot %v", step.Slot)
		}
		at := uint32(pos)

		velocity := step.Velocity
		if velocity == 0 {
			velocity = DefaultVelocity
		}

		track.Add(at-current, midi.NoteOn(m.channel, uint8(step.Note), velocity))
		track.Add(noteLength, midi.NoteOff(m.channel, uint8(step.Note)))
		current = at + noteLength
	}

	// end of track lands on the last step boundary
	total := uint32(math.Round(float64(len(pattern.Steps)) * ticksPerStep))
	var tail uint32
	if total > current {
		tail = total - current
	}
	track.Close(tail)

	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteMIDIFile writes pattern to filename
func (m *MIDIConverter) WriteMIDIFile(pattern *Pattern, filename string) error {
	data, err := m.GenerateMIDI(pattern)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

package converter

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/james-see/stablearp/pkg/arp"
	"github.com/james-see/stablearp/pkg/debug"
	"github.com/james-see/stablearp/pkg/params"
	"github.com/james-see/stablearp/pkg/sequencer"
)

var (
	// ErrNoNotes is returned when there is nothing to arpeggiate
	ErrNoNotes = errors.New("no notes to arpeggiate")
	// ErrUnsupportedFormat is returned for anything other than MIDI files
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// MaxSteps bounds a single render
const MaxSteps = 1 << 16

// Format represents a file format
type Format string

const (
	FormatMIDI    Format = "midi"
	FormatUnknown Format = "unknown"
)

// DetectFormat detects the format of a file from its extension
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mid", ".midi":
		return FormatMIDI
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent checks for the "MThd" header
func DetectFormatFromContent(data []byte) Format {
	if len(data) >= 4 && string(data[:4]) == "MThd" {
		return FormatMIDI
	}
	return FormatUnknown
}

// Converter runs the arpeggiator offline against a parameter set
type Converter struct {
	params *params.Parameters
	midi   *MIDIConverter
	tempo  float64
}

// New creates a Converter. The parameters are read at every render, so
// changes made between renders take effect.
func New(p *params.Parameters) *Converter {
	return &Converter{params: p, midi: NewMIDIConverter()}
}

// Params returns the bound parameters
func (c *Converter) Params() *params.Parameters {
	return c.params
}

// SetTempo sets the tempo used by RenderChord. Zero keeps the default.
func (c *Converter) SetTempo(bpm float64) {
	c.tempo = bpm
}

// MIDI returns the underlying MIDI reader/writer for gate and channel settings
func (c *Converter) MIDI() *MIDIConverter {
	return c.midi
}

// RenderChord arpeggiates a held chord for steps slots from start
func (c *Converter) RenderChord(notes arp.NoteSet, start float64, steps int) (*Pattern, error) {
	if notes.IsEmpty() {
		return nil, ErrNoNotes
	}
	if steps <= 0 || steps > MaxSteps {
		return nil, fmt.Errorf("steps must be between 1 and %d, got %d", MaxSteps, steps)
	}

	seq := sequencer.New(c.params)
	defer seq.Close()
	seq.SetHeld(notes)

	pattern := &Pattern{
		Name:  "stablearp " + seq.Algorithm().Kind().String(),
		Speed: seq.Speed(),
		Tempo: c.tempo,
		Steps: make([]Step, steps),
	}
	for i := range pattern.Steps {
		slot := start + float64(i)
		pattern.Steps[i] = Step{Slot: slot, Note: seq.Tick(slot)}
	}

	debug.Log("converter", "rendered %d steps of %v", steps, notes)
	return pattern, nil
}

// Arpeggiate sweeps the slot grid across perf, handing the sequencer
// whatever is held at each slot
func (c *Converter) Arpeggiate(perf *Performance) (*Pattern, error) {
	if perf == nil || len(perf.Spans) == 0 {
		return nil, ErrNoNotes
	}

	seq := sequencer.New(c.params)
	defer seq.Close()

	speed := seq.Speed()
	steps := int(math.Ceil(speed.Slot(perf.Length)))
	if steps > MaxSteps {
		return nil, fmt.Errorf("performance too long: %d steps (max %d)", steps, MaxSteps)
	}

	pattern := &Pattern{
		Name:  "stablearp " + seq.Algorithm().Kind().String(),
		Speed: speed,
		Tempo: perf.Tempo,
		Steps: make([]Step, steps),
	}
	for i := range pattern.Steps {
		slot := float64(i)
		beat := speed.Beats(slot)

		seq.SetHeld(perf.HeldAt(beat))
		note := seq.Tick(slot)

		step := Step{Slot: slot, Note: note}
		if note != arp.NoNote {
			step.Velocity = perf.VelocityAt(note, beat)
		}
		pattern.Steps[i] = step
	}

	debug.Log("converter", "arpeggiated %d spans into %d steps", len(perf.Spans), steps)
	return pattern, nil
}

// ChordToMIDI renders a chord straight to SMF bytes
func (c *Converter) ChordToMIDI(notes arp.NoteSet, start float64, steps int) ([]byte, error) {
	pattern, err := c.RenderChord(notes, start, steps)
	if err != nil {
		return nil, err
	}
	return c.midi.GenerateMIDI(pattern)
}

// ArpeggiateMIDI reads held chords from SMF data and returns the arpeggiated SMF
func (c *Converter) ArpeggiateMIDI(data []byte) ([]byte, error) {
	perf, err := c.midi.ParseMIDI(data)
	if err != nil {
		return nil, err
	}
	pattern, err := c.Arpeggiate(perf)
	if err != nil {
		return nil, err
	}
	return c.midi.GenerateMIDI(pattern)
}

// ConvertFile arpeggiates inputPath into outputPath
func (c *Converter) ConvertFile(inputPath, outputPath string) error {
	if DetectFormat(outputPath) != FormatMIDI {
		return fmt.Errorf("%w: cannot write %s", ErrUnsupportedFormat, outputPath)
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}
	if DetectFormat(inputPath) != FormatMIDI && DetectFormatFromContent(data) != FormatMIDI {
		return fmt.Errorf("%w: %s is not a MIDI file", ErrUnsupportedFormat, inputPath)
	}

	out, err := c.ArpeggiateMIDI(data)
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	if err := os.WriteFile(outputPath, out, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// OutputPath derives "<base>.arp.mid" from an input path
func OutputPath(input string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + ".arp.mid"
}

package arp

import (
	"fmt"
	"strconv"
	"strings"
)

var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var pitchClass = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// NoteName formats a MIDI note with C4 = 60. NoNote renders as "-".
func NoteName(n int) string {
	if n < 0 {
		return "-"
	}
	return fmt.Sprintf("%s%d", noteNames[n%12], n/12-1)
}

// ParseNote accepts a MIDI number ("60") or a name ("C4", "F#3", "Bb2", "c-1")
func ParseNote(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty note")
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 127 {
			return 0, fmt.Errorf("note %d out of range 0-127", n)
		}
		return n, nil
	}

	pc, ok := pitchClass[strings.ToUpper(s[:1])[0]]
	if !ok {
		return 0, fmt.Errorf("invalid note name %q", s)
	}
	rest := s[1:]
	for len(rest) > 0 && (rest[0] == '#' || rest[0] == 'b') {
		if rest[0] == '#' {
			pc++
		} else {
			pc--
		}
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid octave in note %q", s)
	}

	n := (octave+1)*12 + pc
	if n < 0 || n > 127 {
		return 0, fmt.Errorf("note %q out of range", s)
	}
	return n, nil
}

// ParseNotes parses each argument and collects them into a set
func ParseNotes(args []string) (NoteSet, error) {
	var set NoteSet
	for _, a := range args {
		for _, field := range strings.FieldsFunc(a, func(r rune) bool { return r == ',' || r == ' ' }) {
			n, err := ParseNote(field)
			if err != nil {
				return NoteSet{}, err
			}
			set.Add(n)
		}
	}
	return set, nil
}

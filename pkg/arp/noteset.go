package arp

import (
	"slices"
	"strconv"
	"strings"
)

// NoteSet is an ascending set of unique MIDI note numbers.
// The zero value is an empty set.
type NoteSet struct {
	notes []int
}

// NewNoteSet builds a set from notes in any order, dropping duplicates
func NewNoteSet(notes ...int) NoteSet {
	var s NoteSet
	for _, n := range notes {
		s.Add(n)
	}
	return s
}

// Len returns the number of notes
func (s NoteSet) Len() int { return len(s.notes) }

// IsEmpty reports whether the set has no notes
func (s NoteSet) IsEmpty() bool { return len(s.notes) == 0 }

// At returns the i-th lowest note
func (s NoteSet) At(i int) int { return s.notes[i] }

// Contains reports whether n is in the set
func (s NoteSet) Contains(n int) bool {
	_, ok := slices.BinarySearch(s.notes, n)
	return ok
}

// Notes returns a copy of the notes in ascending order
func (s NoteSet) Notes() []int {
	return slices.Clone(s.notes)
}

// Equal reports whether both sets hold the same notes
func (s NoteSet) Equal(o NoteSet) bool {
	return slices.Equal(s.notes, o.notes)
}

// Add inserts n, returning false if it was already present
func (s *NoteSet) Add(n int) bool {
	i, ok := slices.BinarySearch(s.notes, n)
	if ok {
		return false
	}
	s.notes = slices.Insert(s.notes, i, n)
	return true
}

// Remove deletes n, returning false if it was not present
func (s *NoteSet) Remove(n int) bool {
	i, ok := slices.BinarySearch(s.notes, n)
	if !ok {
		return false
	}
	s.notes = slices.Delete(s.notes, i, i+1)
	return true
}

// CopyFrom replaces the contents with o, reusing the backing array
func (s *NoteSet) CopyFrom(o NoteSet) {
	s.notes = append(s.notes[:0], o.notes...)
}

// Clear empties the set, keeping its capacity
func (s *NoteSet) Clear() {
	s.notes = s.notes[:0]
}

func (s NoteSet) String() string {
	parts := make([]string, len(s.notes))
	for i, n := range s.notes {
		parts[i] = strconv.Itoa(n)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

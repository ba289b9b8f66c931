package model

import "fmt"

// Song is a registered reference track.
type Song struct {
	ID   uint32
	Name string
}

// Occurrence is the stored value for a hash bucket entry.
// Time is the index of the spectrum slice the code was computed from.
type Occurrence struct {
	SongID uint32
	Time   int32
}

// Code is one fingerprint code together with the slice it came from.
type Code struct {
	Slice int32
	Hash  uint64
}

// Match represents a ranked candidate returned by the recognizer.
type Match struct {
	SongID   uint32
	Name     string
	Strength int   // largest number of time-aligned hits
	Offset   int32 // dbSlice - querySlice of the winning alignment
}

func (m Match) String() string {
	return fmt.Sprintf("%s Song: %d Match Count: %d", m.Name, m.SongID, m.Strength)
}

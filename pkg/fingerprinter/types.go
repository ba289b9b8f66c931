package fingerprinter

import (
	"github.com/sojinoh/Audio-Fingerprinting/internal/audio"
	"github.com/sojinoh/Audio-Fingerprinting/internal/fingerprint"
	"github.com/sojinoh/Audio-Fingerprinting/internal/index"
	"github.com/sojinoh/Audio-Fingerprinting/internal/ingest"
	"github.com/sojinoh/Audio-Fingerprinting/internal/model"
	"github.com/sojinoh/Audio-Fingerprinting/internal/storage"
)

// Song is a registered reference track. IDs are dense and start at 0.
type Song = model.Song

// Match is one ranked recognition candidate.
type Match = model.Match

// Code is a fingerprint code and the slice it was computed from.
type Code = model.Code

// Event reports the outcome of one file during a directory load.
type Event = ingest.Event

// Stats summarises the in-memory index.
type Stats = index.Stats

// SnapshotInfo describes a saved or restored snapshot.
type SnapshotInfo = storage.Meta

// Format is the PCM sample format audio is decoded to.
type Format = audio.Format

// Window selects the analysis window applied before the DFT.
type Window = fingerprint.Window

const (
	WindowNone    = fingerprint.WindowNone
	WindowHamming = fingerprint.WindowHamming
	WindowHann    = fingerprint.WindowHann
)

// DefaultFormat is 44.1 kHz, 8-bit signed mono.
var DefaultFormat = audio.DefaultFormat

// ParseWindow maps "hamming" and "hann" to their windows; anything else is
// WindowNone.
func ParseWindow(name string) Window {
	return fingerprint.ParseWindow(name)
}

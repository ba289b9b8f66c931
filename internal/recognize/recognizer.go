// Package recognize ranks indexed songs against a query clip by counting
// time-aligned fingerprint hits.
package recognize

import (
	"fmt"
	"slices"

	"github.com/mdobak/go-xerrors"

	"github.com/sojinoh/Audio-Fingerprinting/internal/fingerprint"
	"github.com/sojinoh/Audio-Fingerprinting/internal/index"
	"github.com/sojinoh/Audio-Fingerprinting/internal/model"
)

// Source is the read side of a fingerprint index.
type Source interface {
	Lookup(hash uint64) []model.Occurrence
	SongName(id uint32) (string, bool)
}

// Recognizer is stateless between calls and safe for concurrent use as long
// as its Source is.
type Recognizer struct {
	src         Source
	transformer *fingerprint.Transformer
	strategy    fingerprint.Fingerprinter
}

// New returns a Recognizer over src. Nil transformer or strategy select the
// reference configuration.
func New(src Source, t *fingerprint.Transformer, fp fingerprint.Fingerprinter) *Recognizer {
	if t == nil {
		t = fingerprint.NewTransformer()
	}
	if fp == nil {
		fp = fingerprint.NewBandFingerprinter()
	}
	return &Recognizer{src: src, transformer: t, strategy: fp}
}

// Recognize fingerprints samples and ranks candidate songs.
func (r *Recognizer) Recognize(samples []float64) ([]model.Match, error) {
	return r.RecognizeCodes(fingerprint.Generate(samples, r.transformer, r.strategy))
}

// RecognizeCodes ranks candidates for precomputed query codes. Each song's
// strength is the largest number of hits sharing one dbSlice-querySlice
// delta. Results are ordered by strength descending, then song id ascending.
func (r *Recognizer) RecognizeCodes(codes []model.Code) ([]model.Match, error) {
	tally := make(map[uint32]map[int32]int)
	for _, c := range codes {
		for _, occ := range r.src.Lookup(c.Hash) {
			deltas := tally[occ.SongID]
			if deltas == nil {
				deltas = make(map[int32]int)
				tally[occ.SongID] = deltas
			}
			deltas[occ.Time-c.Slice]++
		}
	}

	matches := make([]model.Match, 0, len(tally))
	for songID, deltas := range tally {
		best, offset := bestAlignment(deltas)
		name, ok := r.src.SongName(songID)
		if !ok {
			return nil, xerrors.New(fmt.Errorf("ranking matches: %w: %d", index.ErrUnknownSong, songID))
		}
		matches = append(matches, model.Match{
			SongID:   songID,
			Name:     name,
			Strength: best,
			Offset:   offset,
		})
	}

	slices.SortFunc(matches, func(a, b model.Match) int {
		if a.Strength != b.Strength {
			return b.Strength - a.Strength
		}
		switch {
		case a.SongID < b.SongID:
			return -1
		case a.SongID > b.SongID:
			return 1
		}
		return 0
	})
	return matches, nil
}

// bestAlignment returns the largest count and its delta. Equal counts keep
// the smallest delta.
func bestAlignment(deltas map[int32]int) (int, int32) {
	best := 0
	var offset int32
	for d, n := range deltas {
		if n > best || (n == best && d < offset) {
			best, offset = n, d
		}
	}
	return best, offset
}

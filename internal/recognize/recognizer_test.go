package recognize

import (
	"errors"
	"math"
	"math/rand"
	"strconv"
	"testing"

	"github.com/sojinoh/Audio-Fingerprinting/internal/fingerprint"
	"github.com/sojinoh/Audio-Fingerprinting/internal/index"
	"github.com/sojinoh/Audio-Fingerprinting/internal/model"
)

const (
	h1 uint64 = 1001001010
	h2 uint64 = 2002002020
	h3 uint64 = 3003003030
	h4 uint64 = 4004004040
)

func ingest(t *testing.T, idx *index.Index, name string, hashes ...uint64) uint32 {
	t.Helper()
	id := idx.AddSong(name)
	for slice, h := range hashes {
		if err := idx.Ingest(id, int32(slice), h); err != nil {
			t.Fatalf("ingest %s: %v", name, err)
		}
	}
	return id
}

func queryCodes(hashes ...uint64) []model.Code {
	codes := make([]model.Code, len(hashes))
	for i, h := range hashes {
		codes[i] = model.Code{Slice: int32(i), Hash: h}
	}
	return codes
}

func TestRecognizeCodesRanking(t *testing.T) {
	idx := index.New()
	a := ingest(t, idx, "A", h1, h2, h3)
	b := ingest(t, idx, "B", h2, h4, h1)

	got, err := New(idx, nil, nil).RecognizeCodes(queryCodes(h1, h2))
	if err != nil {
		t.Fatalf("RecognizeCodes failed: %v", err)
	}

	want := []model.Match{
		{SongID: a, Name: "A", Strength: 2, Offset: 0},
		{SongID: b, Name: "B", Strength: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d matches, got %v", len(want), got)
	}
	for i := range want {
		if got[i].SongID != want[i].SongID || got[i].Strength != want[i].Strength || got[i].Name != want[i].Name {
			t.Errorf("rank %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
	if got[0].Offset != 0 {
		t.Errorf("expected A aligned at delta 0, got %d", got[0].Offset)
	}
}

func TestRecognizeCodesTieBreak(t *testing.T) {
	idx := index.New()
	ingest(t, idx, "first", h3)
	ingest(t, idx, "second", h3)
	ingest(t, idx, "third", h3)

	got, err := New(idx, nil, nil).RecognizeCodes(queryCodes(h3))
	if err != nil {
		t.Fatal(err)
	}
	for i, m := range got {
		if m.SongID != uint32(i) {
			t.Errorf("rank %d: expected song %d, got %d", i, i, m.SongID)
		}
	}
}

func TestRecognizeCodesNoHits(t *testing.T) {
	idx := index.New()
	ingest(t, idx, "A", h1, h2)

	r := New(idx, nil, nil)
	for name, codes := range map[string][]model.Code{
		"empty":   nil,
		"unknown": queryCodes(h4, h4),
	} {
		got, err := r.RecognizeCodes(codes)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("%s: expected empty non-nil result, got %v", name, got)
		}
	}
}

type danglingSource struct{}

func (danglingSource) Lookup(uint64) []model.Occurrence {
	return []model.Occurrence{{SongID: 42, Time: 0}}
}
func (danglingSource) SongName(uint32) (string, bool) { return "", false }

func TestRecognizeCodesUnknownSong(t *testing.T) {
	_, err := New(danglingSource{}, nil, nil).RecognizeCodes(queryCodes(h1))
	if !errors.Is(err, index.ErrUnknownSong) {
		t.Fatalf("expected ErrUnknownSong, got %v", err)
	}
}

func TestBestAlignment(t *testing.T) {
	n, d := bestAlignment(map[int32]int{-3: 2, 5: 4, 7: 4, 1: 1})
	if n != 4 || d != 5 {
		t.Errorf("expected (4, 5), got (%d, %d)", n, d)
	}
}

// noise returns a deterministic pseudo-random 8-bit scale signal.
func noise(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	s := make([]float64, n)
	for i := range s {
		s[i] = math.Round(rng.Float64()*254 - 127)
	}
	return s
}

func TestRecognizeSelf(t *testing.T) {
	idx := index.New()
	tr := fingerprint.NewTransformer()
	fp := fingerprint.NewBandFingerprinter()

	songs := [][]float64{
		noise(20*fingerprint.ChunkSize, 1),
		noise(20*fingerprint.ChunkSize, 2),
	}
	for i, samples := range songs {
		id := idx.AddSong([]string{"one.mp3", "two.mp3"}[i])
		if err := idx.IngestCodes(id, fingerprint.Generate(samples, tr, fp)); err != nil {
			t.Fatal(err)
		}
	}

	r := New(idx, tr, fp)
	got, err := r.Recognize(songs[1])
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected at least one match")
	}
	if got[0].SongID != 1 || got[0].Strength < 1 {
		t.Errorf("expected song 1 on top, got %+v", got[0])
	}
	if got[0].String() != "two.mp3 Song: 1 Match Count: "+strconv.Itoa(got[0].Strength) {
		t.Errorf("unexpected result line %q", got[0].String())
	}
}

func TestRecognizeEmpty(t *testing.T) {
	idx := index.New()
	ingest(t, idx, "A", h1)

	got, err := New(idx, nil, nil).Recognize(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
}

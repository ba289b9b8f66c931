package fingerprinter

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/sojinoh/Audio-Fingerprinting/internal/audio"
	"github.com/sojinoh/Audio-Fingerprinting/internal/fingerprint"
	"github.com/sojinoh/Audio-Fingerprinting/pkg/logger"
)

const chunk = fingerprint.ChunkSize

func quietLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.FATAL, Output: io.Discard})
}

func newTestService(t *testing.T, opts ...Option) Service {
	t.Helper()

	opts = append([]Option{WithLogger(quietLogger()), WithWorkers(2)}, opts...)
	svc, err := NewService(opts...)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

// randomPCM returns n bytes of 8-bit signed noise.
func randomPCM(n int, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed))
	pcm := make([]byte, n)
	rng.Read(pcm)
	return pcm
}

func TestAddPCMAndRecognize(t *testing.T) {
	svc := newTestService(t)

	songs := [][]byte{randomPCM(16*chunk, 1), randomPCM(16*chunk, 2), randomPCM(16*chunk, 3)}
	for i, pcm := range songs {
		song, err := svc.AddPCM([]string{"one", "two", "three"}[i], pcm)
		if err != nil {
			t.Fatalf("AddPCM failed: %v", err)
		}
		if song.ID != uint32(i) {
			t.Errorf("song %d got id %d", i, song.ID)
		}
	}

	// Chunk-aligned excerpt of song 2 starting at slice 5.
	query := songs[2][5*chunk : 11*chunk]
	matches, err := svc.Recognize(query)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("expected matches")
	}
	top := matches[0]
	if top.SongID != 2 || top.Name != "three" {
		t.Fatalf("expected song 2 on top, got %v", top)
	}
	if top.Strength < 6 || top.Offset != 5 {
		t.Errorf("expected strength >= 6 at offset 5, got %+v", top)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Strength > matches[i-1].Strength {
			t.Errorf("matches not sorted by strength: %v", matches)
		}
	}
}

func TestRecognizeShortQuery(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.AddPCM("one", randomPCM(4*chunk, 1)); err != nil {
		t.Fatal(err)
	}

	matches, err := svc.Recognize(randomPCM(chunk-1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if matches == nil || len(matches) != 0 {
		t.Errorf("expected empty non-nil result, got %v", matches)
	}
}

func TestRecognizeCodesMatchesRecognize(t *testing.T) {
	svc := newTestService(t)
	pcm := randomPCM(10*chunk, 9)
	if _, err := svc.AddPCM("only", pcm); err != nil {
		t.Fatal(err)
	}

	codes := svc.Fingerprint(pcm[2*chunk:])
	if len(codes) != 8 {
		t.Fatalf("expected 8 codes, got %d", len(codes))
	}
	byCodes, err := svc.RecognizeCodes(codes)
	if err != nil {
		t.Fatal(err)
	}
	byPCM, err := svc.Recognize(pcm[2*chunk:])
	if err != nil {
		t.Fatal(err)
	}
	if len(byCodes) != 1 || len(byPCM) != 1 || byCodes[0] != byPCM[0] {
		t.Errorf("RecognizeCodes %v differs from Recognize %v", byCodes, byPCM)
	}
}

func TestClearResetsIDs(t *testing.T) {
	svc := newTestService(t)
	for _, name := range []string{"a", "b"} {
		if _, err := svc.AddPCM(name, randomPCM(2*chunk, 4)); err != nil {
			t.Fatal(err)
		}
	}
	svc.Clear()
	if n := len(svc.Songs()); n != 0 {
		t.Fatalf("expected no songs after Clear, got %d", n)
	}
	song, err := svc.AddPCM("c", randomPCM(2*chunk, 5))
	if err != nil {
		t.Fatal(err)
	}
	if song.ID != 0 {
		t.Errorf("expected id 0 after Clear, got %d", song.ID)
	}
	if st := svc.Stats(); st.Songs != 1 || st.Occurrences != 2 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func writeNoiseWAV(t *testing.T, path string, chunks int, seed int64) {
	t.Helper()

	rng := rand.New(rand.NewSource(seed))
	data := make([]int, chunks*chunk)
	for i := range data {
		data[i] = rng.Intn(60000) - 30000
	}
	if err := audio.WriteWAV(path, data, 1, 44100, 16); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeNoiseWAV(t, filepath.Join(dir, "a.wav"), 6, 1)
	writeNoiseWAV(t, filepath.Join(dir, "b.wav"), 6, 2)
	if err := os.WriteFile(filepath.Join(dir, "broken.mp3"), []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := newTestService(t)
	if _, err := svc.AddPCM("stale", randomPCM(2*chunk, 1)); err != nil {
		t.Fatal(err)
	}

	events, err := svc.LoadDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("LoadDirectory failed: %v", err)
	}
	var ok, failed int
	for ev := range events {
		if ev.Total != 3 {
			t.Errorf("expected total 3, got %d", ev.Total)
		}
		if ev.Err != nil {
			if !errors.Is(ev.Err, audio.ErrNoData) {
				t.Errorf("unexpected error type for %s: %v", ev.Path, ev.Err)
			}
			failed++
			continue
		}
		ok++
	}
	if ok != 2 || failed != 1 {
		t.Fatalf("expected 2 indexed and 1 failed, got %d and %d", ok, failed)
	}

	songs := svc.Songs()
	if len(songs) != 2 {
		t.Fatalf("expected stale song to be cleared, got %v", songs)
	}
	names := map[string]bool{songs[0].Name: true, songs[1].Name: true}
	if !names["a.wav"] || !names["b.wav"] {
		t.Errorf("unexpected names %v", songs)
	}

	matches, err := svc.RecognizeFile(context.Background(), filepath.Join(dir, "b.wav"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) == 0 || matches[0].Name != "b.wav" || matches[0].Strength != 6 {
		t.Errorf("expected b.wav with strength 6 on top, got %v", matches)
	}
}

func TestLoadDirectoryMissing(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.LoadDirectory(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestAddFileUnreadable(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.AddFile(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	if !errors.Is(err, audio.ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
	if len(svc.Songs()) != 0 {
		t.Error("failed file must not register a song")
	}
}

func TestSaveRestore(t *testing.T) {
	ctx := context.Background()
	store, err := NewBadgerStore("")
	if err != nil {
		t.Fatal(err)
	}
	svc := newTestService(t, WithStore(store))

	pcm := randomPCM(8*chunk, 11)
	if _, err := svc.AddPCM("kept", pcm); err != nil {
		t.Fatal(err)
	}
	saved, err := svc.Save(ctx)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	svc.Clear()
	restored, err := svc.Restore(ctx)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if restored.ID != saved.ID || restored.Songs != 1 {
		t.Errorf("restored %+v, saved %+v", restored, saved)
	}
	matches, err := svc.Recognize(pcm)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Name != "kept" || matches[0].Strength != 8 {
		t.Errorf("unexpected matches after restore: %v", matches)
	}
}

func TestSaveWithoutStore(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Save(context.Background()); !errors.Is(err, ErrNoStore) {
		t.Errorf("expected ErrNoStore, got %v", err)
	}
	if _, err := svc.Restore(context.Background()); !errors.Is(err, ErrNoStore) {
		t.Errorf("expected ErrNoStore, got %v", err)
	}
}

func TestNewServiceRejectsBadFormat(t *testing.T) {
	_, err := NewService(WithLogger(quietLogger()), WithFormat(Format{SampleRate: 44100, BitDepth: 24}))
	if err == nil {
		t.Error("expected error for 24-bit format")
	}
}

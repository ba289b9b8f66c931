package ingest

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
	"testing"

	"github.com/sojinoh/Audio-Fingerprinting/internal/audio"
	"github.com/sojinoh/Audio-Fingerprinting/internal/fingerprint"
	"github.com/sojinoh/Audio-Fingerprinting/internal/index"
	"github.com/sojinoh/Audio-Fingerprinting/internal/recognize"
	"github.com/sojinoh/Audio-Fingerprinting/pkg/logger"
)

var errBroken = errors.New("broken file")

// fakeDecoder serves PCM from memory and fails for paths in broken.
type fakeDecoder struct {
	mu     sync.Mutex
	pcm    map[string][]byte
	broken map[string]bool
	calls  int
}

func (d *fakeDecoder) Decode(_ context.Context, path string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.broken[path] {
		return nil, errBroken
	}
	return d.pcm[path], nil
}

func randomPCM(n int, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed))
	b := make([]byte, n)
	rng.Read(b)
	return b
}

func quietPool(idx *index.Index, dec audio.Decoder) *Pool {
	p := NewPool(idx, dec)
	p.Log = logger.New(logger.Config{Level: logger.FATAL, Output: &discard{}})
	return p
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestRunIngestsEveryReadableFile(t *testing.T) {
	dec := &fakeDecoder{pcm: map[string][]byte{}, broken: map[string]bool{"c.mp3": true}}
	files := []string{"a.mp3", "b.mp3", "c.mp3", "d.mp3", "e.mp3"}
	for i, f := range files {
		dec.pcm[f] = randomPCM(6*fingerprint.ChunkSize, int64(i))
	}

	idx := index.New()
	pool := quietPool(idx, dec)
	pool.Workers = 3

	var seen []string
	summary := Drain(pool.Run(context.Background(), files), func(ev Event) {
		seen = append(seen, ev.Path)
		if ev.Total != len(files) {
			t.Errorf("event %s: expected total %d, got %d", ev.Path, len(files), ev.Total)
		}
		if ev.Path == "c.mp3" && !errors.Is(ev.Err, errBroken) {
			t.Errorf("expected broken file error, got %v", ev.Err)
		}
	})

	sort.Strings(seen)
	if !reflect.DeepEqual(seen, files) {
		t.Errorf("expected one event per file, got %v", seen)
	}
	if summary.Indexed != 4 || summary.Failed != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if summary.Codes != 4*6 {
		t.Errorf("expected 24 codes, got %d", summary.Codes)
	}

	songs := idx.Songs()
	if len(songs) != 4 {
		t.Fatalf("expected 4 songs, got %v", songs)
	}
	for i, s := range songs {
		if s.ID != uint32(i) {
			t.Errorf("expected sequential ids, got %v", songs)
		}
		if s.Name == "c.mp3" {
			t.Error("failed file must not be registered")
		}
	}
}

func TestRunCancelled(t *testing.T) {
	dec := &fakeDecoder{pcm: map[string][]byte{"a.wav": randomPCM(fingerprint.ChunkSize, 1)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := Drain(quietPool(index.New(), dec).Run(ctx, []string{"a.wav", "a.wav"}), nil)
	if summary.Indexed+summary.Failed != 0 {
		t.Errorf("expected no work after cancel, got %+v", summary)
	}
	if dec.calls != 0 {
		t.Errorf("expected no decode calls, got %d", dec.calls)
	}
}

func TestIngestSamplesShortBuffer(t *testing.T) {
	idx := index.New()
	song, n, err := quietPool(idx, &fakeDecoder{}).IngestSamples("tiny", make([]float64, 10))
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || song.Name != "tiny" {
		t.Errorf("unexpected result: %+v, %d codes", song, n)
	}
	if _, ok := idx.SongName(song.ID); !ok {
		t.Error("expected short song to be registered")
	}
}

func TestIngestFileFromWAVThenRecognize(t *testing.T) {
	dir := t.TempDir()
	rng := rand.New(rand.NewSource(7))

	var paths []string
	for _, name := range []string{"alpha.wav", "beta.wav"} {
		data := make([]int, 8*fingerprint.ChunkSize)
		for i := range data {
			data[i] = rng.Intn(60000) - 30000
		}
		path := filepath.Join(dir, name)
		if err := audio.WriteWAV(path, data, 1, 44100, 16); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, path)
	}

	idx := index.New()
	pool := quietPool(idx, audio.NewFileDecoder(audio.DefaultFormat))
	for _, path := range paths {
		ev := pool.IngestFile(context.Background(), path)
		if ev.Err != nil {
			t.Fatalf("IngestFile(%s): %v", path, ev.Err)
		}
		if ev.Codes != 8 {
			t.Errorf("expected 8 codes for %s, got %d", path, ev.Codes)
		}
	}

	pcm, err := audio.ReadWAV(paths[1], audio.DefaultFormat)
	if err != nil {
		t.Fatal(err)
	}
	matches, err := recognize.New(idx, nil, nil).Recognize(audio.Samples(pcm, audio.DefaultFormat))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) == 0 || matches[0].Name != "beta.wav" {
		t.Errorf("expected beta.wav on top, got %v", matches)
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.MP3", "a.mp3", "c.wav", "notes.txt", "cover.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.mp3"), 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		exts []string
		want []string
	}{
		{"defaults", nil, []string{"a.mp3", "b.MP3", "c.wav"}},
		{"mp3 only", []string{".mp3"}, []string{"a.mp3", "b.MP3"}},
		{"without dot", []string{"wav"}, []string{"c.wav"}},
		{"no match", []string{".flac"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := Scan(dir, tt.exts)
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, f := range files {
				got = append(got, filepath.Base(f))
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Scan() = %v, expected %v", got, tt.want)
			}
		})
	}
}

func TestScanMissingDir(t *testing.T) {
	if _, err := Scan(filepath.Join(t.TempDir(), "nope"), nil); err == nil {
		t.Error("expected error for missing directory")
	}
}

// Package ingest feeds decoded audio files into a fingerprint index.
package ingest

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sojinoh/Audio-Fingerprinting/internal/audio"
	"github.com/sojinoh/Audio-Fingerprinting/internal/fingerprint"
	"github.com/sojinoh/Audio-Fingerprinting/internal/index"
	"github.com/sojinoh/Audio-Fingerprinting/internal/model"
	"github.com/sojinoh/Audio-Fingerprinting/pkg/logger"
)

// Logger is the logging surface the pool needs.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Event reports the outcome of one file.
type Event struct {
	Path    string
	Song    model.Song
	Codes   int
	Elapsed time.Duration
	Err     error

	Done  int // files finished so far, including this one
	Total int
}

// Pool decodes, fingerprints and indexes files.
type Pool struct {
	Index         *index.Index
	Decoder       audio.Decoder
	Format        audio.Format
	Transformer   *fingerprint.Transformer
	Fingerprinter fingerprint.Fingerprinter
	Workers       int
	Name          func(path string) string
	Log           Logger
}

// NewPool returns a pool with the reference pipeline over idx.
func NewPool(idx *index.Index, dec audio.Decoder) *Pool {
	return &Pool{
		Index:         idx,
		Decoder:       dec,
		Format:        audio.DefaultFormat,
		Transformer:   fingerprint.NewTransformer(),
		Fingerprinter: fingerprint.NewBandFingerprinter(),
		Workers:       runtime.NumCPU(),
		Log:           logger.GetLogger(),
	}
}

func (p *Pool) logger() Logger {
	if p.Log == nil {
		return logger.GetLogger()
	}
	return p.Log
}

func (p *Pool) name(path string) string {
	if p.Name != nil {
		return p.Name(path)
	}
	return audio.DisplayName(path, false)
}

// IngestSamples registers name and indexes the codes of samples. A buffer
// shorter than one chunk still registers the song with no codes.
func (p *Pool) IngestSamples(name string, samples []float64) (model.Song, int, error) {
	codes := fingerprint.Generate(samples, p.Transformer, p.Fingerprinter)
	id := p.Index.AddSong(name)
	if err := p.Index.IngestCodes(id, codes); err != nil {
		p.logger().Errorf("Index rejected codes for %s: %v", name, err)
		return model.Song{}, 0, err
	}
	return model.Song{ID: id, Name: name}, len(codes), nil
}

// IngestFile decodes and indexes one file. Decoding failures are returned in
// the event; nothing is registered for them.
func (p *Pool) IngestFile(ctx context.Context, path string) Event {
	start := time.Now()
	ev := Event{Path: path}

	pcm, err := p.Decoder.Decode(ctx, path)
	if err != nil {
		ev.Err = err
		ev.Elapsed = time.Since(start)
		p.logger().Warnf("Skipping %s: %v", path, err)
		return ev
	}

	song, n, err := p.IngestSamples(p.name(path), audio.Samples(pcm, p.Format))
	if err != nil {
		ev.Err = fmt.Errorf("indexing %s: %w", path, err)
	}
	ev.Song = song
	ev.Codes = n
	ev.Elapsed = time.Since(start)
	p.logger().Debugf("Indexed %s as song %d (%d codes, %s)", path, song.ID, n, ev.Elapsed)
	return ev
}

// Run ingests files on Workers goroutines and streams one Event per file
// started. The channel is closed when every started file is done. A failed
// file never stops the batch; cancelling ctx stops new files from starting.
func (p *Pool) Run(ctx context.Context, files []string) <-chan Event {
	events := make(chan Event)
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	go func() {
		defer close(events)

		var g errgroup.Group
		g.SetLimit(workers)
		var done atomic.Int64

		for _, path := range files {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				ev := p.IngestFile(ctx, path)
				ev.Done = int(done.Add(1))
				ev.Total = len(files)
				select {
				case events <- ev:
				case <-ctx.Done():
				}
				return nil
			})
		}
		_ = g.Wait()

		if ctx.Err() != nil {
			p.logger().Warnf("Ingestion cancelled after %d of %d files", done.Load(), len(files))
		}
	}()
	return events
}

// Summary counts the outcome of drained events.
type Summary struct {
	Indexed int
	Failed  int
	Codes   int
}

// Drain consumes events, calling fn (if non-nil) for each, and summarises them.
func Drain(events <-chan Event, fn func(Event)) Summary {
	var s Summary
	for ev := range events {
		if fn != nil {
			fn(ev)
		}
		if ev.Err != nil {
			s.Failed++
			continue
		}
		s.Indexed++
		s.Codes += ev.Codes
	}
	return s
}

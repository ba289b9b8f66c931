// Package fingerprinter is the public entry point for building a fingerprint
// index from audio files and recognizing clips against it.
package fingerprinter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sojinoh/Audio-Fingerprinting/internal/audio"
	"github.com/sojinoh/Audio-Fingerprinting/internal/fingerprint"
	"github.com/sojinoh/Audio-Fingerprinting/internal/index"
	"github.com/sojinoh/Audio-Fingerprinting/internal/ingest"
	"github.com/sojinoh/Audio-Fingerprinting/internal/recognize"
	"github.com/sojinoh/Audio-Fingerprinting/pkg/logger"
)

// ErrNoStore is returned by Save and Restore when no store is configured.
var ErrNoStore = errors.New("no snapshot store configured")

// fingerprintService is the default implementation of the Service interface.
type fingerprintService struct {
	config     *Config
	log        Logger
	index      *index.Index
	decoder    *audio.FileDecoder
	pool       *ingest.Pool
	recognizer *recognize.Recognizer
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if err := cfg.Format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid format: %w", err)
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = fingerprint.ChunkSize
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = ingest.DefaultExtensions
	}

	idx := index.New()
	tr := &fingerprint.Transformer{ChunkSize: cfg.ChunkSize, Window: cfg.Window}
	fp := fingerprint.NewBandFingerprinter()

	dec := audio.NewFileDecoder(cfg.Format)
	dec.FFmpeg = cfg.FFmpeg
	if cfg.TempDir != "" {
		dec.TempDir = cfg.TempDir
	}
	if cfg.FFmpeg && !audio.FFmpegAvailable() {
		cfg.Logger.Warnf("ffmpeg fallback requested but ffmpeg is not on PATH")
	}

	pool := ingest.NewPool(idx, dec)
	pool.Format = cfg.Format
	pool.Transformer = tr
	pool.Fingerprinter = fp
	pool.Workers = cfg.Workers
	pool.Log = cfg.Logger
	useTags := cfg.TagNames
	pool.Name = func(path string) string {
		return audio.DisplayName(path, useTags)
	}

	return &fingerprintService{
		config:     cfg,
		log:        cfg.Logger,
		index:      idx,
		decoder:    dec,
		pool:       pool,
		recognizer: recognize.New(idx, tr, fp),
	}, nil
}

// LoadDirectory resets the index, then ingests the directory's audio files.
func (s *fingerprintService) LoadDirectory(ctx context.Context, dir string) (<-chan Event, error) {
	files, err := ingest.Scan(dir, s.config.Extensions)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	s.index.Clear()
	s.log.Infof("Loading %d files from %s", len(files), dir)
	return s.pool.Run(ctx, files), nil
}

// AddFile decodes path and adds it as a new song.
func (s *fingerprintService) AddFile(ctx context.Context, path string) (Song, error) {
	ev := s.pool.IngestFile(ctx, path)
	if ev.Err != nil {
		return Song{}, ev.Err
	}
	s.log.Infof("Added %s as song %d (%d codes)", ev.Song.Name, ev.Song.ID, ev.Codes)
	return ev.Song, nil
}

// AddPCM adds already-decoded PCM in the configured format as a new song.
func (s *fingerprintService) AddPCM(name string, pcm []byte) (Song, error) {
	song, n, err := s.pool.IngestSamples(name, audio.Samples(pcm, s.config.Format))
	if err != nil {
		return Song{}, err
	}
	s.log.Debugf("Added %s as song %d (%d codes)", name, song.ID, n)
	return song, nil
}

// Fingerprint returns the codes of pcm without touching the index.
func (s *fingerprintService) Fingerprint(pcm []byte) []Code {
	return fingerprint.Generate(audio.Samples(pcm, s.config.Format), s.pool.Transformer, s.pool.Fingerprinter)
}

func (s *fingerprintService) Recognize(pcm []byte) ([]Match, error) {
	return s.recognizer.Recognize(audio.Samples(pcm, s.config.Format))
}

// RecognizeFile decodes path and recognizes it.
func (s *fingerprintService) RecognizeFile(ctx context.Context, path string) ([]Match, error) {
	s.log.Infof("Matching audio: %s", filepath.Base(path))

	pcm, err := s.decoder.Decode(ctx, path)
	if err != nil {
		return nil, err
	}
	matches, err := s.Recognize(pcm)
	if err != nil {
		return nil, err
	}
	s.log.Infof("Found %d candidate matches", len(matches))
	return matches, nil
}

func (s *fingerprintService) RecognizeCodes(codes []Code) ([]Match, error) {
	return s.recognizer.RecognizeCodes(codes)
}

func (s *fingerprintService) Songs() []Song {
	return s.index.Songs()
}

func (s *fingerprintService) Stats() Stats {
	return s.index.Stats()
}

// Clear empties the index and restarts song ids at 0.
func (s *fingerprintService) Clear() {
	s.index.Clear()
}

func (s *fingerprintService) Save(ctx context.Context) (SnapshotInfo, error) {
	if s.config.Store == nil {
		return SnapshotInfo{}, ErrNoStore
	}
	meta, err := s.config.Store.Save(ctx, s.index)
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("saving snapshot: %w", err)
	}
	s.log.Infof("Saved snapshot %s (%d songs, %d occurrences)", meta.ID, meta.Songs, meta.Occurrences)
	return meta, nil
}

// Restore replaces the index with the stored snapshot.
func (s *fingerprintService) Restore(ctx context.Context) (SnapshotInfo, error) {
	if s.config.Store == nil {
		return SnapshotInfo{}, ErrNoStore
	}
	meta, err := s.config.Store.Load(ctx, s.index)
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("restoring snapshot: %w", err)
	}
	s.log.Infof("Restored snapshot %s (%d songs)", meta.ID, meta.Songs)
	return meta, nil
}

// Close releases all resources held by the service.
func (s *fingerprintService) Close() error {
	if s.config.Store == nil {
		return nil
	}
	return s.config.Store.Close()
}

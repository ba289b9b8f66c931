package fingerprinter

import (
	"os"
	"runtime"

	"github.com/sojinoh/Audio-Fingerprinting/internal/audio"
	"github.com/sojinoh/Audio-Fingerprinting/internal/fingerprint"
	"github.com/sojinoh/Audio-Fingerprinting/internal/ingest"
)

type Config struct {
	Format     Format
	ChunkSize  int
	Window     Window
	Workers    int
	Extensions []string
	FFmpeg     bool
	TempDir    string
	TagNames   bool
	Store      Store
	Logger     Logger
}

type Option func(*Config)

// WithFormat sets the PCM format decoded audio is converted to.
func WithFormat(f Format) Option {
	return func(c *Config) {
		c.Format = f
	}
}

func WithChunkSize(n int) Option {
	return func(c *Config) {
		c.ChunkSize = n
	}
}

func WithWindow(w Window) Option {
	return func(c *Config) {
		c.Window = w
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithExtensions limits directory loads to files with these extensions.
func WithExtensions(exts ...string) Option {
	return func(c *Config) {
		c.Extensions = exts
	}
}

// WithFFmpeg enables conversion through ffmpeg for inputs the native
// decoders cannot handle.
func WithFFmpeg(enabled bool) Option {
	return func(c *Config) {
		c.FFmpeg = enabled
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

// WithTagNames names songs "Title - Artist" from embedded tags when present.
func WithTagNames(enabled bool) Option {
	return func(c *Config) {
		c.TagNames = enabled
	}
}

// WithStore attaches a snapshot store used by Save and Restore. The service
// closes it on Close.
func WithStore(s Store) Option {
	return func(c *Config) {
		c.Store = s
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func defaultConfig() *Config {
	return &Config{
		Format:     audio.DefaultFormat,
		ChunkSize:  fingerprint.ChunkSize,
		Window:     fingerprint.WindowNone,
		Workers:    runtime.NumCPU(),
		Extensions: ingest.DefaultExtensions,
		TempDir:    os.TempDir(),
	}
}

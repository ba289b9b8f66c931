package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Decoder turns an audio file into mono PCM. Any failure is reported as
// ErrNoData so callers can skip the file.
type Decoder interface {
	Decode(ctx context.Context, path string) ([]byte, error)
}

// FileDecoder decodes WAV and MP3 natively and, when FFmpeg is set, routes
// every other input through ffmpeg.
type FileDecoder struct {
	Format  Format
	FFmpeg  bool
	TempDir string
}

// NewFileDecoder returns a native-only decoder producing f.
func NewFileDecoder(f Format) *FileDecoder {
	return &FileDecoder{Format: f, TempDir: os.TempDir()}
}

func (d *FileDecoder) Decode(ctx context.Context, path string) ([]byte, error) {
	pcm, err := d.decode(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNoData, filepath.Base(path), err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, filepath.Base(path))
	}
	return pcm, nil
}

func (d *FileDecoder) decode(ctx context.Context, path string) ([]byte, error) {
	if err := d.Format.Validate(); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	var pcm []byte
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		pcm, err = ReadWAV(path, d.Format)
	case ".mp3":
		pcm, err = ReadMP3(path, d.Format)
	default:
		err = fmt.Errorf("%w: extension %q", ErrUnsupported, ext)
	}

	if err != nil && d.FFmpeg && errors.Is(err, ErrUnsupported) {
		return d.viaFFmpeg(ctx, path)
	}
	return pcm, err
}

func (d *FileDecoder) viaFFmpeg(ctx context.Context, path string) ([]byte, error) {
	dir, err := os.MkdirTemp(d.TempDir, "fingerprint-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	wavPath, err := ConvertToMonoWAV(ctx, path, dir, ConvertWAVConfig{SampleRate: d.Format.SampleRate})
	if err != nil {
		return nil, fmt.Errorf("audio conversion failed: %w", err)
	}
	return ReadWAV(wavPath, d.Format)
}

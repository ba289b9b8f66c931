package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ReadWAV decodes a PCM WAV file into mono PCM of format f.
func ReadWAV(path string, f Format) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening wav: %w", err)
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid wav file %s", ErrUnsupported, path)
	}
	if int(dec.SampleRate) != f.SampleRate {
		return nil, fmt.Errorf("%w: %d Hz, want %d Hz", ErrSampleRate, dec.SampleRate, f.SampleRate)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading wav samples: %w", err)
	}
	return fromIntBuffer(buf, f)
}

func fromIntBuffer(buf *audio.IntBuffer, f Format) ([]byte, error) {
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, ErrNoData
	}
	depth := buf.SourceBitDepth
	switch depth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit samples", ErrUnsupported, depth)
	}

	data := buf.Data
	if depth == 8 {
		// 8-bit WAV is unsigned
		data = make([]int, len(buf.Data))
		for i, v := range buf.Data {
			data[i] = v - 128
		}
	}
	return encodePCM(downmix(data, buf.Format.NumChannels), depth, f), nil
}

// WriteWAV writes interleaved integer samples as a PCM WAV file.
func WriteWAV(path string, data []int, channels, sampleRate, bitDepth int) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating wav: %w", err)
	}
	defer file.Close()

	enc := wav.NewEncoder(file, sampleRate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encoding wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing wav: %w", err)
	}
	return nil
}

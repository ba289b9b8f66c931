package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoData is returned by decoders when a file yields no usable PCM.
	ErrNoData = errors.New("no audio data available")

	// ErrUnsupported marks containers, encodings or sample rates a native
	// decoder cannot handle. The ffmpeg fallback is tried for these.
	ErrUnsupported = errors.New("unsupported audio format")

	// ErrSampleRate is an ErrUnsupported for a rate other than the target.
	ErrSampleRate = fmt.Errorf("%w: sample rate mismatch", ErrUnsupported)
)

// Format describes decoded PCM: single channel, signed samples. 8-bit PCM
// is one byte per sample, 16-bit PCM is little-endian.
type Format struct {
	SampleRate int
	BitDepth   int
}

// DefaultFormat is 8-bit mono at 44.1 kHz, one byte per sample.
var DefaultFormat = Format{SampleRate: 44100, BitDepth: 8}

// Validate reports whether f can be produced by the decoders.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", f.SampleRate)
	}
	if f.BitDepth != 8 && f.BitDepth != 16 {
		return fmt.Errorf("invalid bit depth %d: only 8 and 16 are supported", f.BitDepth)
	}
	return nil
}

// BytesPerSample is 1 for 8-bit and 2 for 16-bit PCM.
func (f Format) BytesPerSample() int {
	if f.BitDepth == 16 {
		return 2
	}
	return 1
}

// Duration returns the playback length of pcm.
func (f Format) Duration(pcm []byte) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	n := len(pcm) / f.BytesPerSample()
	return time.Duration(n) * time.Second / time.Duration(f.SampleRate)
}

// Samples converts raw PCM into sample values on the integer scale of f.
// A trailing odd byte of 16-bit PCM is ignored.
func Samples(pcm []byte, f Format) []float64 {
	if f.BitDepth == 16 {
		out := make([]float64, len(pcm)/2)
		for i := range out {
			out[i] = float64(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
		}
		return out
	}

	out := make([]float64, len(pcm))
	for i, b := range pcm {
		out[i] = float64(int8(b))
	}
	return out
}

// downmix averages interleaved frames into one channel.
func downmix(data []int, channels int) []int {
	if channels <= 1 {
		return data
	}
	frames := len(data) / channels
	out := make([]int, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += data[i*channels+c]
		}
		out[i] = sum / channels
	}
	return out
}

// encodePCM requantizes mono samples from srcDepth bits to f.
func encodePCM(mono []int, srcDepth int, f Format) []byte {
	shift := srcDepth - f.BitDepth
	requant := func(v int) int {
		switch {
		case shift > 0:
			return v >> shift
		case shift < 0:
			return v << -shift
		}
		return v
	}

	if f.BitDepth == 16 {
		out := make([]byte, 2*len(mono))
		for i, v := range mono {
			binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(requant(v))))
		}
		return out
	}

	out := make([]byte, len(mono))
	for i, v := range mono {
		out[i] = byte(int8(requant(v)))
	}
	return out
}

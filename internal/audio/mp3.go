package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// ReadMP3 decodes an MP3 file into mono PCM of format f.
func ReadMP3(path string, f Format) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening mp3: %w", err)
	}
	defer file.Close()
	return decodeMP3(file, f)
}

// decodeMP3 reads the decoder's 16-bit little-endian stereo stream.
func decodeMP3(r io.Reader, f Format) ([]byte, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: mp3: %v", ErrUnsupported, err)
	}
	if dec.SampleRate() != f.SampleRate {
		return nil, fmt.Errorf("%w: %d Hz, want %d Hz", ErrSampleRate, dec.SampleRate(), f.SampleRate)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("reading mp3 frames: %w", err)
	}
	if len(raw) < 4 {
		return nil, ErrNoData
	}

	ints := make([]int, len(raw)/2)
	for i := range ints {
		ints[i] = int(int16(binary.LittleEndian.Uint16(raw[2*i:])))
	}
	return encodePCM(downmix(ints, 2), 16, f), nil
}

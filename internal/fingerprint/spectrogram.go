package fingerprint

import (
	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Tunables
const (
	// ChunkSize is the number of samples per spectrum slice.
	ChunkSize = 4096
)

// Window selects the analysis window applied to each chunk before the DFT.
type Window int

const (
	WindowNone Window = iota
	WindowHamming
	WindowHann
)

func (w Window) String() string {
	switch w {
	case WindowHamming:
		return "hamming"
	case WindowHann:
		return "hann"
	default:
		return "none"
	}
}

// ParseWindow maps a window name to its Window. Unknown names map to WindowNone.
func ParseWindow(name string) Window {
	switch name {
	case "hamming":
		return WindowHamming
	case "hann":
		return WindowHann
	default:
		return WindowNone
	}
}

// Transformer partitions a sample buffer into non-overlapping chunks and
// computes a complex DFT of each one.
type Transformer struct {
	ChunkSize int
	Window    Window
}

// NewTransformer returns a Transformer with the reference chunk size and no window.
func NewTransformer() *Transformer {
	return &Transformer{ChunkSize: ChunkSize, Window: WindowNone}
}

func (t *Transformer) size() int {
	if t == nil || t.ChunkSize <= 0 {
		return ChunkSize
	}
	return t.ChunkSize
}

func (t *Transformer) coefficients(n int) []float64 {
	if t == nil {
		return nil
	}
	switch t.Window {
	case WindowHamming:
		return window.Hamming(n)
	case WindowHann:
		return window.Hann(n)
	default:
		return nil
	}
}

// Transform returns one slice per full chunk of samples. Each slice holds
// 2*ChunkSize values with real and imaginary parts interleaved. The trailing
// partial chunk is dropped, so a buffer shorter than one chunk yields nil.
func (t *Transformer) Transform(samples []float64) [][]float64 {
	size := t.size()
	count := len(samples) / size
	if count == 0 {
		return nil
	}

	coeffs := t.coefficients(size)
	frame := make([]complex128, size)
	slices := make([][]float64, count)

	for j := 0; j < count; j++ {
		chunk := samples[j*size : (j+1)*size]
		for i, v := range chunk {
			if coeffs != nil {
				v *= coeffs[i]
			}
			frame[i] = complex(v, 0)
		}

		spectrum := fft.FFT(frame)
		slice := make([]float64, 2*size)
		for i, c := range spectrum {
			slice[2*i] = real(c)
			slice[2*i+1] = imag(c)
		}
		slices[j] = slice
	}
	return slices
}

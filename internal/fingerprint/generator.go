package fingerprint

import "github.com/sojinoh/Audio-Fingerprinting/internal/model"

// Fingerprinter is the pluggable keypoint and hashing strategy.
type Fingerprinter interface {
	ExtractKeypoints(spectrum []float64) []int64
	Hash(points []int64) (uint64, error)
}

// BandFingerprinter is the five-band strategy with a configurable fuzz factor.
type BandFingerprinter struct {
	Fuzz int64
}

// NewBandFingerprinter returns the reference strategy.
func NewBandFingerprinter() *BandFingerprinter {
	return &BandFingerprinter{Fuzz: FuzzFactor}
}

func (b *BandFingerprinter) ExtractKeypoints(spectrum []float64) []int64 {
	return ExtractKeypoints(spectrum)
}

func (b *BandFingerprinter) Hash(points []int64) (uint64, error) {
	return HashWithFuzz(points, b.Fuzz)
}

// Generate runs transform, keypoint extraction and hashing over samples and
// returns one code per slice. Slices whose keypoints cannot be hashed are
// skipped; the remaining codes keep their original slice index.
func Generate(samples []float64, t *Transformer, fp Fingerprinter) []model.Code {
	if fp == nil {
		fp = NewBandFingerprinter()
	}
	slices := t.Transform(samples)
	codes := make([]model.Code, 0, len(slices))
	for i, s := range slices {
		h, err := fp.Hash(fp.ExtractKeypoints(s))
		if err != nil {
			continue
		}
		codes = append(codes, model.Code{Slice: int32(i), Hash: h})
	}
	return codes
}

package index

import (
	"gonum.org/v1/gonum/stat"

	"github.com/sojinoh/Audio-Fingerprinting/internal/model"
)

// Stats summarises index size and bucket distribution.
type Stats struct {
	Songs       int
	Buckets     int
	Occurrences int
	MeanBucket  float64
	StdDev      float64
	MaxBucket   int
}

// Stats walks every bucket. It holds read locks only.
func (idx *Index) Stats() Stats {
	var st Stats
	var lengths []float64

	idx.Range(func(_ uint64, occ []model.Occurrence) bool {
		n := len(occ)
		lengths = append(lengths, float64(n))
		st.Occurrences += n
		if n > st.MaxBucket {
			st.MaxBucket = n
		}
		return true
	})

	st.Songs = len(idx.Songs())
	st.Buckets = len(lengths)
	switch len(lengths) {
	case 0:
	case 1:
		st.MeanBucket = lengths[0]
	default:
		st.MeanBucket, st.StdDev = stat.MeanStdDev(lengths, nil)
	}
	return st
}

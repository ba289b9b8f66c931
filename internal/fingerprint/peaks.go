package fingerprint

import "math"

const (
	// NumBands is the number of keypoint bands per slice.
	NumBands = 5

	// LowBin and HighBin bound the scanned bins: [LowBin, HighBin).
	LowBin  = 40
	HighBin = 300
)

// BandLimits holds the inclusive upper bin of each band. Band 0 covers
// [0, 40], band i covers (BandLimits[i-1], BandLimits[i]].
var BandLimits = [NumBands]int{40, 80, 120, 180, 300}

// bandOf returns the first band whose limit is >= bin.
func bandOf(bin int) int {
	i := 0
	for BandLimits[i] < bin {
		i++
	}
	return i
}

// ExtractKeypoints scans bins [LowBin, HighBin) of one interleaved spectrum
// slice and returns one value per band: the truncated log-magnitude
// ln(|X|+1) of the bin that last beat the band's running score.
//
// The running score is overwritten with the winning bin index rather than its
// magnitude. Fingerprint codes depend on this, so it must stay as is.
func ExtractKeypoints(spectrum []float64) []int64 {
	points := make([]int64, NumBands)
	var highScores [NumBands]float64

	for c := LowBin; c < HighBin; c++ {
		if 2*c+1 >= len(spectrum) {
			break
		}
		re := spectrum[2*c]
		im := spectrum[2*c+1]
		mag := math.Log(math.Sqrt(re*re+im*im) + 1)

		band := bandOf(c)
		if mag > highScores[band] {
			highScores[band] = float64(c)
			points[band] = int64(mag)
		}
	}
	return points
}

// ExtractAll runs ExtractKeypoints over every slice.
func ExtractAll(slices [][]float64) [][]int64 {
	out := make([][]int64, len(slices))
	for i, s := range slices {
		out[i] = ExtractKeypoints(s)
	}
	return out
}

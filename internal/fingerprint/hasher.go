package fingerprint

import (
	"errors"
	"fmt"
)

// FuzzFactor is the quantization step applied to each keypoint before hashing.
const FuzzFactor = 2

// ErrShortKeypoints is returned when a keypoint vector has fewer than 4 elements.
var ErrShortKeypoints = errors.New("keypoint vector needs at least 4 elements")

func fuzz(v, factor int64) int64 {
	return v - v%factor
}

// HashWithFuzz combines points[0..3] into one code:
//
//	fuzz(p3)*1e8 + fuzz(p2)*1e5 + fuzz(p1)*1e2 + fuzz(p0)
//
// points[4] and beyond are ignored.
func HashWithFuzz(points []int64, factor int64) (uint64, error) {
	if len(points) < 4 {
		return 0, fmt.Errorf("hashing keypoints: %w (got %d)", ErrShortKeypoints, len(points))
	}
	if factor <= 0 {
		factor = FuzzFactor
	}
	h := fuzz(points[3], factor)*100000000 +
		fuzz(points[2], factor)*100000 +
		fuzz(points[1], factor)*100 +
		fuzz(points[0], factor)
	return uint64(h), nil
}

// Hash is HashWithFuzz with the default FuzzFactor.
func Hash(points []int64) (uint64, error) {
	return HashWithFuzz(points, FuzzFactor)
}

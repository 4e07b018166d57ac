package berpf

import (
	"math"

	"golang.org/x/exp/rand"
)

// sysResample draws n indices into weights using systematic resampling:
// a single uniform offset u is drawn and the n evenly spaced positions
// (u+k)/n are matched against the cumulative-weight staircase, so that
// the expected number of copies of index i is n*weights[i] with lower
// variance than independent multinomial draws. The returned index
// sequence is non-decreasing.
//
// n is clamped to len(weights): the resampler never returns more indices
// than there are input particles. If any weight is NaN the weights are
// untrustworthy and n indices are drawn uniformly at random instead.
func sysResample(weights []float64, n int, rng *rand.Rand) []int {
	if n > len(weights) {
		n = len(weights)
	}

	indices := make([]int, n)

	for _, w := range weights {
		if math.IsNaN(w) {
			for i := range indices {
				indices[i] = rng.Intn(len(weights))
			}
			return indices
		}
	}

	u := rng.Float64()

	// Walk the cumulative-weight staircase. The pointer j is clamped to
	// the last valid index: rounding can leave the cumulative sum just
	// short of a position near 1 and the clamp keeps the read in bounds.
	j := 0
	cum := weights[0]
	for i := 0; i < n; i++ {
		pos := (u + float64(i)) / float64(n)
		for pos >= cum && j < len(weights)-1 {
			j++
			cum += weights[j]
		}
		indices[i] = j
	}

	return indices
}

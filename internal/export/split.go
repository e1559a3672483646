// Package export writes stored records as parallel line files, one token
// sequence per line, split deterministically into train, valid and test.
package export

import (
	"math"
	"math/rand/v2"
)

// Split names a dataset partition.
type Split int

const (
	Train Split = iota
	Valid
	Test
)

func (s Split) String() string {
	switch s {
	case Train:
		return "train"
	case Valid:
		return "valid"
	case Test:
		return "test"
	}
	return "unknown"
}

// Assign places n items into splits. The same seed and ratios always yield
// the same assignment. Test and valid sizes are n*ratio rounded to nearest;
// the rest is train.
func Assign(n int, seed uint64, validRatio, testRatio float64) []Split {
	splits := make([]Split, n)
	if n == 0 {
		return splits
	}

	nTest := int(math.Round(float64(n) * testRatio))
	nValid := int(math.Round(float64(n) * validRatio))
	if nTest+nValid > n {
		nValid = n - nTest
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for i, idx := range rng.Perm(n) {
		switch {
		case i < nTest:
			splits[idx] = Test
		case i < nTest+nValid:
			splits[idx] = Valid
		default:
			splits[idx] = Train
		}
	}
	return splits
}

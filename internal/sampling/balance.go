package sampling

import (
	"math/rand"

	"github.com/simreview/sim-review/internal/pkg/errors"
)

// Undersample balances a training set by trimming its majority class:
// the result keeps every minority-class index and at most
// ratio * minority-count majority indices, drawn without replacement.
// Both classes must be present in trainIdx.
func Undersample(labels []int, trainIdx []int, ratio float64, rng *rand.Rand) ([]int, error) {
	if ratio <= 0 {
		ratio = 1.0
	}

	var ones, zeros []int
	for _, idx := range trainIdx {
		if labels[idx] == 1 {
			ones = append(ones, idx)
		} else {
			zeros = append(zeros, idx)
		}
	}
	if len(ones) == 0 || len(zeros) == 0 {
		return nil, errors.ValidationError("training set must contain both classes")
	}

	minority, majority := ones, zeros
	if len(zeros) < len(ones) {
		minority, majority = zeros, ones
	}

	keep := int(ratio * float64(len(minority)))
	if keep < 1 {
		keep = 1
	}
	if keep > len(majority) {
		keep = len(majority)
	}

	balanced := make([]int, 0, len(minority)+keep)
	balanced = append(balanced, minority...)
	balanced = append(balanced, choice(majority, keep, rng)...)
	rng.Shuffle(len(balanced), func(i, j int) {
		balanced[i], balanced[j] = balanced[j], balanced[i]
	})
	return balanced, nil
}

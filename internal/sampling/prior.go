// Package sampling provides the random draws used to seed and balance
// simulated review runs: prior-knowledge selection and training-set
// balancing. Every function takes an explicit random source so runs
// are reproducible; no global generator state is touched.
package sampling

import (
	"fmt"
	"math/rand"

	"github.com/simreview/sim-review/internal/pkg/errors"
)

// SamplePrior draws the researcher's pre-knowledge: nIncluded relevant
// and nExcluded irrelevant item indices, uniformly without
// replacement. The included items come first in the returned slice.
func SamplePrior(labels []int, nIncluded, nExcluded int, rng *rand.Rand) ([]int, error) {
	if nIncluded < 0 || nExcluded < 0 {
		return nil, errors.ValidationError("sample sizes must be non-negative")
	}

	var included, excluded []int
	for idx, label := range labels {
		if label == 1 {
			included = append(included, idx)
		} else {
			excluded = append(excluded, idx)
		}
	}

	if len(included) < nIncluded {
		return nil, errors.ValidationError(
			fmt.Sprintf("need %d relevant items, dataset has %d", nIncluded, len(included)))
	}
	if len(excluded) < nExcluded {
		return nil, errors.ValidationError(
			fmt.Sprintf("need %d irrelevant items, dataset has %d", nExcluded, len(excluded)))
	}

	prior := make([]int, 0, nIncluded+nExcluded)
	prior = append(prior, choice(included, nIncluded, rng)...)
	prior = append(prior, choice(excluded, nExcluded, rng)...)
	return prior, nil
}

// choice draws n elements from pool without replacement. The pool is
// copied so callers keep their slices.
func choice(pool []int, n int, rng *rand.Rand) []int {
	shuffled := make([]int, len(pool))
	copy(shuffled, pool)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n]
}

package analysis

import (
	"sort"

	"github.com/simreview/sim-review/internal/pkg/errors"
	"github.com/simreview/sim-review/internal/runlog"
)

// DefaultAllowMiss is the stopping tolerance used when none is given:
// stop once the expected number of missed relevant items is below 0.1.
const DefaultAllowMiss = 0.1

// Limits computes, for each query step, how many items must be read
// in ranked order to keep the expected number of missed relevant
// items at or below each tolerance. XRange carries the training-set
// size at each step; steps where no run recorded model scores are
// skipped.
func (a *Analysis) Limits(probAllowMiss ...float64) (*LimitSeries, error) {
	if a.empty {
		return nil, errors.EmptyAnalysisError()
	}
	if len(probAllowMiss) == 0 {
		probAllowMiss = []float64{DefaultAllowMiss}
	}

	first := a.runs.First()
	res := &LimitSeries{Limits: make([][]int, len(probAllowMiss))}

	nTrain := 0
	for q := 0; q < first.NQueries(); q++ {
		limits := stoppingLimits(a.runs, q, a.labels, probAllowMiss)

		// Keep the last known training size when a step has no
		// snapshot.
		if ti, err := first.QueryInts(runlog.KeyTrainIdx, q); err == nil {
			nTrain = len(ti)
		}

		if limits == nil {
			continue
		}
		res.XRange = append(res.XRange, nTrain)
		for i := range probAllowMiss {
			res.Limits[i] = append(res.Limits[i], limits[i])
		}
	}
	return res, nil
}

// stoppingLimits is the per-step limit statistic. It averages the
// recorded model scores across the runs that have a snapshot at the
// query, ranks the still-untrained items by that score, and returns
// for each tolerance the smallest read count whose unread tail sums
// to at most the tolerance. Returns nil when no run has scores at
// this step.
func stoppingLimits(runs *runlog.Collection, query int, labels []int, probAllowMiss []float64) []int {
	n := len(labels)
	sum := make([]float64, n)
	cnt := make([]int, n)
	trained := make([]bool, n)

	contributors := 0
	for _, key := range runs.Keys() {
		l, _ := runs.Get(key)
		proba, err := l.QueryFloats(runlog.KeyProba, query)
		if err != nil {
			continue
		}
		contributors++
		for i, p := range proba {
			sum[i] += p
			cnt[i]++
		}
		if ti, err := l.QueryInts(runlog.KeyTrainIdx, query); err == nil {
			for _, idx := range ti {
				trained[idx] = true
			}
		}
	}
	if contributors == 0 {
		return nil
	}

	score := make([]float64, n)
	var pool []int
	for i := 0; i < n; i++ {
		if cnt[i] > 0 {
			score[i] = sum[i] / float64(cnt[i])
		}
		if !trained[i] {
			pool = append(pool, i)
		}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return score[pool[i]] > score[pool[j]]
	})

	total := 0.0
	for _, idx := range pool {
		total += score[idx]
	}

	limits := make([]int, len(probAllowMiss))
	for pi, p := range probAllowMiss {
		remaining := total
		k := 0
		for k < len(pool) && remaining > p {
			remaining -= score[pool[k]]
			k++
		}
		limits[pi] = k
	}
	return limits
}

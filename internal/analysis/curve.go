package analysis

import (
	"fmt"
	"math"

	"github.com/simreview/sim-review/internal/pkg/errors"
	"github.com/simreview/sim-review/internal/runlog"
)

// findInclusions derives one run's inclusion curve: the cumulative
// number of relevant items found after each labeling step, the number
// found strictly after the seed phase, and the seed-phase size.
func findInclusions(l *runlog.Log, labels []int) (inclusions []int, incAfterInit, nInitial int) {
	order, nInitial := l.LabelOrder()

	inclusions = make([]int, len(order))
	found := 0
	for i, idx := range order {
		found += labels[idx]
		inclusions[i] = found
	}

	if len(inclusions) > 0 {
		incAfterInit = inclusions[len(inclusions)-1]
		if nInitial > 0 && nInitial <= len(inclusions) {
			incAfterInit -= inclusions[nInitial-1]
		}
	}
	return inclusions, incAfterInit, nInitial
}

// aggregateRuns combines the inclusion curves of every run into an
// elementwise mean with a standard error band. Runs of unequal length
// are expected: each step uses only the runs that still have data
// there, and aggregation stops at the first step with no contributors.
//
// Dispersion conventions: a step with a single contributing run uses
// the raw value as its error, and a single-run collection reports an
// all-zero error band.
func aggregateRuns(c *runlog.Collection, labels []int) (*aggregate, error) {
	keys := c.Keys()
	curves := make([][]int, 0, len(keys))

	agg := &aggregate{}
	for i, key := range keys {
		l, _ := c.Get(key)
		inc, iai, ninit := findInclusions(l, labels)
		if i == 0 {
			agg.nInitial = ninit
		} else if ninit != agg.nInitial {
			return nil, errors.ValidationError("runs disagree on seed phase size").
				WithDetail("run", key).
				WithDetail("n_initial", fmt.Sprintf("%d", ninit)).
				WithDetail("expected", fmt.Sprintf("%d", agg.nInitial))
		}
		agg.incAfterInit = iai
		curves = append(curves, inc)
	}

	for step := 0; ; step++ {
		var vals []float64
		for _, inc := range curves {
			if step < len(inc) {
				vals = append(vals, float64(inc[step]))
			}
		}
		if len(vals) == 0 {
			break
		}
		agg.avg = append(agg.avg, mean(vals))
		if len(vals) == 1 {
			agg.sem = append(agg.sem, vals[0])
		} else {
			agg.sem = append(agg.sem, stdErr(vals))
		}
	}

	if len(keys) == 1 {
		for i := range agg.sem {
			agg.sem[i] = 0
		}
	}
	return agg, nil
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// stdErr is the sample standard error of the mean (n-1 denominator).
func stdErr(vals []float64) float64 {
	m := mean(vals)
	ss := 0.0
	for _, v := range vals {
		ss += (v - m) * (v - m)
	}
	n := float64(len(vals))
	return math.Sqrt(ss/(n-1)) / math.Sqrt(n)
}

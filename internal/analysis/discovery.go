package analysis

import (
	"github.com/simreview/sim-review/internal/pkg/errors"
)

// AvgTimeToDiscovery estimates, for every relevant item, the average
// reading step at which a run discovered it. Items never reached
// during labeling fall back to their position in the final ranking,
// and items absent from both get the worst-case position for that run.
// Discoveries inside the seed phase carry no information about the
// model and are excluded; an item with only seed-phase discoveries
// reports 0.
func (a *Analysis) AvgTimeToDiscovery() (map[int]float64, error) {
	if a.empty {
		return nil, errors.EmptyAnalysisError()
	}

	times := make(map[int][]int)
	for idx, label := range a.labels {
		if label == 1 {
			times[idx] = nil
		}
	}

	// times[idx] gets exactly one entry per run, so entry i always
	// belongs to the run with seed-phase size nInitials[i].
	var nInitials []int
	for _, key := range a.runs.Keys() {
		l, _ := a.runs.Get(key)
		order, nInit := l.LabelOrder()
		ranking := l.ProbaOrder()
		nInitials = append(nInitials, nInit)

		seen := make(map[int]bool)
		for step, idx := range order {
			if a.labels[idx] == 1 && !seen[idx] {
				times[idx] = append(times[idx], step)
				seen[idx] = true
			}
		}
		for rank, idx := range ranking {
			if a.labels[idx] == 1 && !seen[idx] {
				times[idx] = append(times[idx], len(order)+rank)
				seen[idx] = true
			}
		}
		for idx := range times {
			if !seen[idx] {
				times[idx] = append(times[idx], len(order)+len(ranking))
			}
		}
	}

	results := make(map[int]float64, len(times))
	for idx, ts := range times {
		var trained []float64
		for run, t := range ts {
			if t >= nInitials[run] {
				trained = append(trained, float64(t))
			}
		}
		if len(trained) == 0 {
			results[idx] = 0
		} else {
			results[idx] = mean(trained)
		}
	}
	return results, nil
}

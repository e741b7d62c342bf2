// Package analysis computes recall curves, summary metrics, and
// stopping limits from collections of simulated review run logs.
package analysis

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/simreview/sim-review/internal/pkg/errors"
	"github.com/simreview/sim-review/internal/runlog"
)

// Analysis aggregates a collection of runs recorded over one dataset.
// It is read-only after construction except for the lazily populated
// curve cache, which a mutex guards so concurrent callers are safe.
type Analysis struct {
	key  string
	runs *runlog.Collection

	labels      []int
	finalLabels []int
	empty       bool

	mu    sync.Mutex
	cache map[bool]*aggregate

	closed bool
}

// New builds an Analysis over runs. An empty collection yields an
// Analysis whose analytic methods return EMPTY_ANALYSIS.
func New(key string, runs *runlog.Collection) (*Analysis, error) {
	a := &Analysis{
		key:   key,
		runs:  runs,
		cache: make(map[bool]*aggregate),
	}
	if runs == nil || runs.Len() == 0 {
		a.empty = true
		return a, nil
	}

	first := runs.First()
	labels, err := first.Get(runlog.KeyLabels)
	if err != nil {
		return nil, err
	}
	a.labels = labels

	// The terminal labeling is optional; absent means "use none".
	final, err := first.Get(runlog.KeyFinalLabels)
	if err == nil {
		a.finalLabels = final
	} else if !errors.IsNotFound(err) {
		return nil, err
	}
	return a, nil
}

// FromDir loads every run log in dir and builds an Analysis keyed by
// the directory name. A directory without logs is an error.
func FromDir(ctx context.Context, dir string, opts runlog.LoaderOptions) (*Analysis, error) {
	runs, err := runlog.LoadDir(ctx, dir, opts)
	if err != nil {
		return nil, err
	}
	if runs.Len() == 0 {
		_ = runs.Close()
		return nil, errors.EmptyAnalysisError().WithDetail("dir", dir)
	}
	return New(filepath.Base(filepath.Clean(dir)), runs)
}

// Key returns the analysis name.
func (a *Analysis) Key() string { return a.key }

// Empty reports whether the analysis holds no runs.
func (a *Analysis) Empty() bool { return a.empty }

// NumRuns returns the number of runs.
func (a *Analysis) NumRuns() int {
	if a.empty {
		return 0
	}
	return a.runs.Len()
}

// Labels returns the ground-truth labels shared by all runs.
func (a *Analysis) Labels() []int { return a.labels }

// aggregated returns the cached averaged curve for the label variant,
// computing it on first use.
func (a *Analysis) aggregated(finalLabels bool) (*aggregate, error) {
	labels := a.labels
	if finalLabels {
		if a.finalLabels == nil {
			return nil, errors.NotFoundError(runlog.KeyFinalLabels)
		}
		labels = a.finalLabels
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if agg, ok := a.cache[finalLabels]; ok {
		return agg, nil
	}
	agg, err := aggregateRuns(a.runs, labels)
	if err != nil {
		return nil, err
	}
	a.cache[finalLabels] = agg
	return agg, nil
}

// InclusionsFound returns the averaged recall curve in the requested
// units. finalLabels switches the analysis to the terminal labeling
// when one was recorded.
func (a *Analysis) InclusionsFound(format ResultFormat, finalLabels bool) (*Curve, error) {
	if a.empty {
		return nil, errors.EmptyAnalysisError()
	}

	agg, err := a.aggregated(finalLabels)
	if err != nil {
		return nil, err
	}

	n := len(a.labels)
	var xNorm, yNorm float64
	switch format {
	case FormatFraction, "":
		xNorm = float64(n - agg.nInitial)
		yNorm = float64(agg.incAfterInit)
	case FormatPercentage:
		xNorm = float64(n-agg.nInitial) / 100
		yNorm = float64(agg.incAfterInit) / 100
	case FormatNumber:
		xNorm = float64(n)
		yNorm = float64(agg.incAfterInit)
	default:
		return nil, errors.InvalidFormatError(string(format))
	}

	curve := &Curve{
		X:    make([]float64, len(agg.avg)),
		Y:    make([]float64, len(agg.avg)),
		YErr: make([]float64, len(agg.avg)),
	}
	for i := range agg.avg {
		curve.X[i] = float64(i) / xNorm
		curve.Y[i] = agg.avg[i] / yNorm
		curve.YErr[i] = agg.sem[i] / yNorm
	}
	return curve, nil
}

// Close releases every run log exactly once. It is idempotent.
func (a *Analysis) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if a.runs == nil {
		return nil
	}
	return a.runs.Close()
}

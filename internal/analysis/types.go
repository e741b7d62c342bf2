package analysis

import (
	"github.com/simreview/sim-review/internal/pkg/errors"
)

// ResultFormat selects the output units of a recall curve.
type ResultFormat string

const (
	// FormatFraction normalizes reading position to the post-seed pool
	// and recall to the relevant items found after the seed phase.
	FormatFraction ResultFormat = "fraction"

	// FormatPercentage expresses the fraction curve in 0-100 units.
	FormatPercentage ResultFormat = "percentage"

	// FormatNumber normalizes reading position to the full dataset size.
	FormatNumber ResultFormat = "number"
)

// ParseFormat converts a string to a ResultFormat.
func ParseFormat(s string) (ResultFormat, error) {
	switch ResultFormat(s) {
	case FormatFraction, FormatPercentage, FormatNumber:
		return ResultFormat(s), nil
	case "":
		return FormatFraction, nil
	}
	return "", errors.InvalidFormatError(s)
}

// Curve is a normalized recall curve: reading position, mean recall,
// and the error band, all equal length.
type Curve struct {
	X    []float64 `json:"x"`
	Y    []float64 `json:"y"`
	YErr []float64 `json:"y_err"`
}

// BarMetric is a single-number summary plus the coordinates of the
// bar marking it on a plot, in the requested display unit.
type BarMetric struct {
	Value float64    `json:"value"`
	XBar  [2]float64 `json:"x_bar"`
	YBar  [2]float64 `json:"y_bar"`
}

// LimitSeries holds stopping limits per query step: the training-set
// size at each step and, per requested probability, the number of
// items that must be read.
type LimitSeries struct {
	XRange []int   `json:"x_range"`
	Limits [][]int `json:"limits"`
}

// aggregate is an averaged inclusion curve before normalization.
type aggregate struct {
	avg          []float64
	sem          []float64
	incAfterInit int
	nInitial     int
}

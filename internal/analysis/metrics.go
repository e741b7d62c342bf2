package analysis

import (
	"github.com/simreview/sim-review/internal/pkg/errors"
)

// recallTolerance absorbs floating error when a curve sits exactly on
// a recall or position boundary.
const recallTolerance = 1e-6

// WSS returns the work-saved-over-sampling metric at recall val
// (0-100): the share of items that need not be read to reach that
// recall. The bar coordinates are reported in xFormat units. A nil
// metric with nil error means the curve never reaches the recall.
func (a *Analysis) WSS(val float64, xFormat ResultFormat) (*BarMetric, error) {
	pct, xRet, yRet, yCoef, err := a.displayCurves(xFormat)
	if err != nil {
		return nil, err
	}

	for i := range pct.Y {
		if pct.Y[i] >= val-recallTolerance {
			return &BarMetric{
				Value: pct.Y[i] - pct.X[i],
				XBar:  [2]float64{xRet[i], xRet[i]},
				YBar:  [2]float64{xRet[i] * yCoef, yRet[i]},
			}, nil
		}
	}
	return nil, nil
}

// RRF returns the relevant-references-found metric at reading
// position val (0-100): the recall achieved after reading that share
// of items. Same optional-result convention as WSS.
func (a *Analysis) RRF(val float64, xFormat ResultFormat) (*BarMetric, error) {
	pct, xRet, yRet, _, err := a.displayCurves(xFormat)
	if err != nil {
		return nil, err
	}

	for i := range pct.X {
		if pct.X[i] >= val-recallTolerance {
			return &BarMetric{
				Value: pct.Y[i],
				XBar:  [2]float64{xRet[i], xRet[i]},
				YBar:  [2]float64{0, yRet[i]},
			}, nil
		}
	}
	return nil, nil
}

// displayCurves resolves the percentage curve the thresholds run
// against plus the curve the bar coordinates are read from.
func (a *Analysis) displayCurves(xFormat ResultFormat) (pct *Curve, xRet, yRet []float64, yCoef float64, err error) {
	pct, err = a.InclusionsFound(FormatPercentage, false)
	if err != nil {
		return nil, nil, nil, 0, err
	}

	switch xFormat {
	case FormatPercentage, "":
		return pct, pct.X, pct.Y, 1.0, nil
	case FormatNumber:
		num, err := a.InclusionsFound(FormatNumber, false)
		if err != nil {
			return nil, nil, nil, 0, err
		}
		agg, err := a.aggregated(false)
		if err != nil {
			return nil, nil, nil, 0, err
		}
		yCoef := float64(agg.incAfterInit) / float64(len(a.labels)-agg.nInitial)
		return pct, num.X, num.Y, yCoef, nil
	}
	return nil, nil, nil, 0, errors.InvalidFormatError(string(xFormat))
}

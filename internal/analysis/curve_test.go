package analysis

import (
	"math"
	"reflect"
	"testing"

	"github.com/simreview/sim-review/internal/pkg/errors"
	"github.com/simreview/sim-review/internal/runlog"
)

func mustLog(t *testing.T, key string, labels []int, queries []runlog.Query) *runlog.Log {
	t.Helper()
	l, err := runlog.NewLog(key, labels, nil, queries)
	if err != nil {
		t.Fatalf("NewLog(%s) error = %v", key, err)
	}
	return l
}

func collect(t *testing.T, logs ...*runlog.Log) *runlog.Collection {
	t.Helper()
	c := runlog.NewCollection()
	for _, l := range logs {
		if err := c.Add(l); err != nil {
			t.Fatalf("Add(%s) error = %v", l.Key(), err)
		}
	}
	return c
}

func mustAnalysis(t *testing.T, logs ...*runlog.Log) *Analysis {
	t.Helper()
	a, err := New("test", collect(t, logs...))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

// oneByOne builds queries labeling seed items first, then the rest one
// per query.
func oneByOne(seed []int, rest ...int) []runlog.Query {
	queries := []runlog.Query{{Method: runlog.MethodInitial, LabelIdx: seed}}
	for _, idx := range rest {
		queries = append(queries, runlog.Query{LabelIdx: []int{idx}})
	}
	return queries
}

func floatsClose(got, want []float64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			return false
		}
	}
	return true
}

func TestFindInclusions(t *testing.T) {
	labels := []int{0, 1, 0, 1, 1, 0, 0, 1}
	l := mustLog(t, "r", labels, oneByOne([]int{0, 2}, 1, 3, 4, 5, 6, 7))

	inclusions, incAfterInit, nInitial := findInclusions(l, labels)

	if want := []int{0, 0, 1, 2, 3, 3, 3, 4}; !reflect.DeepEqual(inclusions, want) {
		t.Errorf("inclusions = %v, want %v", inclusions, want)
	}
	if nInitial != 2 {
		t.Errorf("nInitial = %d, want 2", nInitial)
	}
	if incAfterInit != 4 {
		t.Errorf("incAfterInit = %d, want 4", incAfterInit)
	}
}

func TestFindInclusions_SeedDiscoveries(t *testing.T) {
	// Both relevant items are labeled during the seed phase.
	labels := []int{1, 0, 1, 0}
	l := mustLog(t, "r", labels, oneByOne([]int{0, 2}, 1, 3))

	inclusions, incAfterInit, nInitial := findInclusions(l, labels)

	if want := []int{1, 2, 2, 2}; !reflect.DeepEqual(inclusions, want) {
		t.Errorf("inclusions = %v, want %v", inclusions, want)
	}
	if nInitial != 2 {
		t.Errorf("nInitial = %d, want 2", nInitial)
	}
	if incAfterInit != 0 {
		t.Errorf("incAfterInit = %d, want 0", incAfterInit)
	}
}

func TestFindInclusions_NoSeed(t *testing.T) {
	labels := []int{1, 1, 0, 0}
	l := mustLog(t, "r", labels, []runlog.Query{{LabelIdx: []int{2, 0, 1}}})

	inclusions, incAfterInit, nInitial := findInclusions(l, labels)

	if want := []int{0, 1, 2}; !reflect.DeepEqual(inclusions, want) {
		t.Errorf("inclusions = %v, want %v", inclusions, want)
	}
	if nInitial != 0 {
		t.Errorf("nInitial = %d, want 0", nInitial)
	}
	if incAfterInit != 2 {
		t.Errorf("incAfterInit = %d, want 2", incAfterInit)
	}
}

func TestAggregateRuns_RaggedLengths(t *testing.T) {
	// Run a labels three items, run b only two: the third step uses
	// a's value alone, and its error is the raw value.
	labels := []int{1, 1, 0, 0}
	a := mustLog(t, "a", labels, []runlog.Query{{LabelIdx: []int{2, 0, 3}}})
	b := mustLog(t, "b", labels, []runlog.Query{{LabelIdx: []int{0, 1}}})

	agg, err := aggregateRuns(collect(t, a, b), labels)
	if err != nil {
		t.Fatalf("aggregateRuns() error = %v", err)
	}

	if want := []float64{0.5, 1.5, 1}; !floatsClose(agg.avg, want) {
		t.Errorf("avg = %v, want %v", agg.avg, want)
	}
	// Two samples at steps 0 and 1, one at step 2.
	sem2 := math.Sqrt(0.5) / math.Sqrt(2) // values {0,1} and {1,2}
	if want := []float64{sem2, sem2, 1}; !floatsClose(agg.sem, want) {
		t.Errorf("sem = %v, want %v", agg.sem, want)
	}
}

func TestAggregateRuns_SingleRunZeroError(t *testing.T) {
	labels := []int{1, 0, 1, 0}
	l := mustLog(t, "r", labels, []runlog.Query{{LabelIdx: []int{0, 1, 2, 3}}})

	agg, err := aggregateRuns(collect(t, l), labels)
	if err != nil {
		t.Fatalf("aggregateRuns() error = %v", err)
	}

	for i, e := range agg.sem {
		if e != 0 {
			t.Errorf("sem[%d] = %v, want 0", i, e)
		}
	}
}

func TestAggregateRuns_SeedSizeMismatch(t *testing.T) {
	labels := []int{0, 1, 0, 1}
	a := mustLog(t, "a", labels, oneByOne([]int{0}, 1, 2, 3))
	b := mustLog(t, "b", labels, oneByOne([]int{0, 2}, 1, 3))

	_, err := aggregateRuns(collect(t, a, b), labels)
	if err == nil {
		t.Fatal("aggregateRuns() error = nil, want seed size mismatch")
	}
	if !errors.IsValidation(err) {
		t.Errorf("aggregateRuns() error = %v, want validation error", err)
	}
}

func TestInclusionsFound_Number(t *testing.T) {
	labels := []int{0, 1, 0, 1, 1, 0, 0, 1}
	a := mustAnalysis(t, mustLog(t, "r", labels, oneByOne([]int{0, 2}, 1, 3, 4, 5, 6, 7)))
	defer a.Close()

	curve, err := a.InclusionsFound(FormatNumber, false)
	if err != nil {
		t.Fatalf("InclusionsFound() error = %v", err)
	}

	wantX := []float64{0, .125, .25, .375, .5, .625, .75, .875}
	wantY := []float64{0, 0, .25, .5, .75, .75, .75, 1.0}
	if !floatsClose(curve.X, wantX) {
		t.Errorf("X = %v, want %v", curve.X, wantX)
	}
	if !floatsClose(curve.Y, wantY) {
		t.Errorf("Y = %v, want %v", curve.Y, wantY)
	}
	for i, e := range curve.YErr {
		if e != 0 {
			t.Errorf("YErr[%d] = %v, want 0 for single run", i, e)
		}
	}
}

func TestInclusionsFound_Fraction(t *testing.T) {
	labels := []int{0, 1, 0, 1, 1, 0, 0, 1}
	a := mustAnalysis(t, mustLog(t, "r", labels, oneByOne([]int{0, 2}, 1, 3, 4, 5, 6, 7)))
	defer a.Close()

	curve, err := a.InclusionsFound(FormatFraction, false)
	if err != nil {
		t.Fatalf("InclusionsFound() error = %v", err)
	}

	// Position normalized to the post-seed pool of 6 items.
	wantX := make([]float64, 8)
	for i := range wantX {
		wantX[i] = float64(i) / 6
	}
	wantY := []float64{0, 0, .25, .5, .75, .75, .75, 1.0}
	if !floatsClose(curve.X, wantX) {
		t.Errorf("X = %v, want %v", curve.X, wantX)
	}
	if !floatsClose(curve.Y, wantY) {
		t.Errorf("Y = %v, want %v", curve.Y, wantY)
	}
}

func TestInclusionsFound_Percentage(t *testing.T) {
	labels := []int{0, 1, 0, 1, 1, 0, 0, 1}
	a := mustAnalysis(t, mustLog(t, "r", labels, oneByOne([]int{0, 2}, 1, 3, 4, 5, 6, 7)))
	defer a.Close()

	curve, err := a.InclusionsFound(FormatPercentage, false)
	if err != nil {
		t.Fatalf("InclusionsFound() error = %v", err)
	}

	wantY := []float64{0, 0, 25, 50, 75, 75, 75, 100}
	if !floatsClose(curve.Y, wantY) {
		t.Errorf("Y = %v, want %v", curve.Y, wantY)
	}
	if got, want := curve.X[6], 100.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("X[6] = %v, want %v", got, want)
	}
}

func TestInclusionsFound_NonDecreasingAndBounded(t *testing.T) {
	labels := []int{0, 1, 0, 1, 1, 0, 0, 1}
	totalRelevant := 4.0
	a := mustAnalysis(t,
		mustLog(t, "a", labels, oneByOne([]int{0, 2}, 1, 3, 4, 5, 6, 7)),
		mustLog(t, "b", labels, oneByOne([]int{0, 2}, 7, 4, 3, 1, 5, 6)),
	)
	defer a.Close()

	curve, err := a.InclusionsFound(FormatNumber, false)
	if err != nil {
		t.Fatalf("InclusionsFound() error = %v", err)
	}
	for i := 1; i < len(curve.Y); i++ {
		if curve.Y[i] < curve.Y[i-1] {
			t.Errorf("Y not non-decreasing at %d: %v < %v", i, curve.Y[i], curve.Y[i-1])
		}
	}
	for i, y := range curve.Y {
		if y > totalRelevant {
			t.Errorf("Y[%d] = %v exceeds total relevant count", i, y)
		}
	}
}

func TestInclusionsFound_RoundTrip(t *testing.T) {
	labels := []int{0, 1, 0, 1, 1, 0, 0, 1}
	a := mustAnalysis(t,
		mustLog(t, "a", labels, oneByOne([]int{0, 2}, 1, 3, 4, 5, 6, 7)),
		mustLog(t, "b", labels, oneByOne([]int{0, 2}, 7, 4, 3, 1, 5, 6)),
	)
	defer a.Close()

	curve, err := a.InclusionsFound(FormatNumber, false)
	if err != nil {
		t.Fatalf("InclusionsFound() error = %v", err)
	}
	agg, err := a.aggregated(false)
	if err != nil {
		t.Fatalf("aggregated() error = %v", err)
	}

	n := float64(len(labels))
	iai := float64(agg.incAfterInit)
	for i := range curve.X {
		if got, want := curve.X[i]*n, float64(i); math.Abs(got-want) > 1e-9 {
			t.Errorf("X[%d]*N = %v, want %v", i, got, want)
		}
		if got, want := curve.Y[i]*iai, agg.avg[i]; math.Abs(got-want) > 1e-9 {
			t.Errorf("Y[%d]*incAfterInit = %v, want %v", i, got, want)
		}
	}
}

func TestInclusionsFound_InvalidFormat(t *testing.T) {
	labels := []int{0, 1}
	a := mustAnalysis(t, mustLog(t, "r", labels, []runlog.Query{{LabelIdx: []int{1}}}))
	defer a.Close()

	if _, err := a.InclusionsFound("ratio", false); err == nil {
		t.Error("InclusionsFound(ratio) error = nil, want invalid format")
	}
}

func TestInclusionsFound_Empty(t *testing.T) {
	a, err := New("empty", runlog.NewCollection())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if !a.Empty() {
		t.Fatal("Empty() = false, want true")
	}
	if _, err := a.InclusionsFound(FormatFraction, false); !errors.IsEmptyAnalysis(err) {
		t.Errorf("InclusionsFound() error = %v, want EMPTY_ANALYSIS", err)
	}
}

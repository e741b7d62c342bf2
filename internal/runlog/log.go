// Package runlog reads the per-run log files written by simulated
// review sessions. A log records the ground-truth labels of the
// dataset, the order in which items were labeled, and per-query
// snapshots of the training set and the model's scores.
package runlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/simreview/sim-review/internal/pkg/errors"
)

// Series keys exposed by a Log.
const (
	KeyLabels      = "labels"
	KeyFinalLabels = "final_labels"
	KeyLabelIdx    = "label_idx"
	KeyTrainIdx    = "train_idx"
	KeyProba       = "proba"
)

// MethodInitial marks a query whose items were labeled before training
// started (prior knowledge).
const MethodInitial = "initial"

// logFile is the on-disk JSON schema of one run.
type logFile struct {
	Version     int           `json:"version"`
	Labels      []int         `json:"labels"`
	FinalLabels []int         `json:"final_labels,omitempty"`
	Queries     []queryRecord `json:"queries"`
}

// queryRecord holds everything recorded at a single query step.
// TrainIdx and Proba are optional snapshots; a missing snapshot is
// encoded as null/absent, not as an empty list.
type queryRecord struct {
	Method   string    `json:"method,omitempty"`
	LabelIdx []int     `json:"label_idx,omitempty"`
	TrainIdx []int     `json:"train_idx,omitempty"`
	Proba    []float64 `json:"proba,omitempty"`
}

// Log is one completed simulation run, fully read into memory.
type Log struct {
	key    string
	file   logFile
	closed bool
}

// Query is one recorded query step for NewLog. Nil TrainIdx and Proba
// mean no snapshot was taken at that step.
type Query struct {
	Method   string
	LabelIdx []int
	TrainIdx []int
	Proba    []float64
}

// NewLog constructs an in-memory run log, for callers that record runs
// themselves rather than reading them from disk.
func NewLog(key string, labels, finalLabels []int, queries []Query) (*Log, error) {
	lf := logFile{Version: 1, Labels: labels, FinalLabels: finalLabels}
	for _, q := range queries {
		lf.Queries = append(lf.Queries, queryRecord(q))
	}
	l := &Log{key: key, file: lf}
	if err := l.validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Open reads and validates a run log file. The file handle is released
// before Open returns; Close frees the in-memory series.
func Open(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.ParseError("opening run log", err)
	}
	defer f.Close()

	var lf logFile
	if err := json.NewDecoder(f).Decode(&lf); err != nil {
		return nil, errors.ParseError("decoding run log "+path, err)
	}

	key := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	l := &Log{key: key, file: lf}
	if err := l.validate(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Log) validate() error {
	n := len(l.file.Labels)
	if n == 0 {
		return errors.ValidationError("run log has no labels").
			WithDetail("run", l.key)
	}
	for _, v := range l.file.Labels {
		if v != 0 && v != 1 {
			return errors.ValidationError("labels must be 0 or 1").
				WithDetail("run", l.key)
		}
	}
	if l.file.FinalLabels != nil && len(l.file.FinalLabels) != n {
		return errors.ValidationError("final_labels length differs from labels").
			WithDetail("run", l.key)
	}
	for _, q := range l.file.Queries {
		for _, idx := range q.LabelIdx {
			if idx < 0 || idx >= n {
				return errors.ValidationError("label_idx out of range").
					WithDetail("run", l.key)
			}
		}
		for _, idx := range q.TrainIdx {
			if idx < 0 || idx >= n {
				return errors.ValidationError("train_idx out of range").
					WithDetail("run", l.key)
			}
		}
		if q.Proba != nil && len(q.Proba) != n {
			return errors.ValidationError("proba length differs from labels").
				WithDetail("run", l.key)
		}
	}
	return nil
}

// Key returns the run identifier, derived from the file name.
func (l *Log) Key() string { return l.key }

// Get returns a whole-run series. Absent optional series (final_labels)
// surface as a NOT_FOUND error the caller treats as "use none".
func (l *Log) Get(key string) ([]int, error) {
	if l.closed {
		return nil, errors.New(errors.CodeClosed, "run log is closed")
	}
	switch key {
	case KeyLabels:
		return l.file.Labels, nil
	case KeyFinalLabels:
		if l.file.FinalLabels == nil {
			return nil, errors.NotFoundError(KeyFinalLabels)
		}
		return l.file.FinalLabels, nil
	}
	return nil, errors.NotFoundError(key)
}

// QueryInts returns an integer per-query series. A missing snapshot at
// that query is a NOT_FOUND error.
func (l *Log) QueryInts(key string, query int) ([]int, error) {
	q, err := l.queryRecord(query)
	if err != nil {
		return nil, err
	}
	switch key {
	case KeyLabelIdx:
		if q.LabelIdx == nil {
			return nil, errors.NotFoundError(KeyLabelIdx)
		}
		return q.LabelIdx, nil
	case KeyTrainIdx:
		if q.TrainIdx == nil {
			return nil, errors.NotFoundError(KeyTrainIdx)
		}
		return q.TrainIdx, nil
	}
	return nil, errors.NotFoundError(key)
}

// QueryFloats returns a float per-query series (model scores).
func (l *Log) QueryFloats(key string, query int) ([]float64, error) {
	q, err := l.queryRecord(query)
	if err != nil {
		return nil, err
	}
	if key != KeyProba || q.Proba == nil {
		return nil, errors.NotFoundError(key)
	}
	return q.Proba, nil
}

func (l *Log) queryRecord(query int) (*queryRecord, error) {
	if l.closed {
		return nil, errors.New(errors.CodeClosed, "run log is closed")
	}
	if query < 0 || query >= len(l.file.Queries) {
		return nil, errors.NotFoundError("query record")
	}
	return &l.file.Queries[query], nil
}

// NQueries returns the total number of recorded query steps.
func (l *Log) NQueries() int { return len(l.file.Queries) }

// LabelOrder returns every labeled item index in query order, plus the
// size of the seed phase (items labeled by queries marked "initial").
func (l *Log) LabelOrder() (order []int, nInitial int) {
	for _, q := range l.file.Queries {
		order = append(order, q.LabelIdx...)
		if q.Method == MethodInitial {
			nInitial += len(q.LabelIdx)
		}
	}
	return order, nInitial
}

// ProbaOrder returns the final model's ranking over items not yet
// labeled at the end of the run: the last recorded score snapshot,
// argsorted descending, labeled items excluded. Returns nil if no
// scores were ever recorded.
func (l *Log) ProbaOrder() []int {
	var proba []float64
	for i := len(l.file.Queries) - 1; i >= 0; i-- {
		if l.file.Queries[i].Proba != nil {
			proba = l.file.Queries[i].Proba
			break
		}
	}
	if proba == nil {
		return nil
	}

	labeled := make(map[int]bool)
	order, _ := l.LabelOrder()
	for _, idx := range order {
		labeled[idx] = true
	}

	pool := make([]int, 0, len(proba))
	for idx := range proba {
		if !labeled[idx] {
			pool = append(pool, idx)
		}
	}
	// Stable so equal scores keep index order.
	sort.SliceStable(pool, func(i, j int) bool {
		return proba[pool[i]] > proba[pool[j]]
	})
	return pool
}

// Close releases the in-memory series. It is safe to call more than
// once; only the first call has an effect.
func (l *Log) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	l.file = logFile{}
	return nil
}

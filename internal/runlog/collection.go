package runlog

import (
	stderrors "errors"
	"sort"

	"github.com/simreview/sim-review/internal/pkg/errors"
	"github.com/simreview/sim-review/internal/pkg/hash"
)

// Collection is a set of runs analyzed together. Every run must have
// been recorded over the same dataset; Add enforces this with a label
// fingerprint so the shared-index-space precondition is checked rather
// than assumed.
type Collection struct {
	runs        map[string]*Log
	keys        []string
	fingerprint string
	closed      bool
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{runs: make(map[string]*Log)}
}

// Add inserts a run. Duplicate keys and runs over a different dataset
// are rejected.
func (c *Collection) Add(l *Log) error {
	if _, ok := c.runs[l.Key()]; ok {
		return errors.AlreadyExistsError("run " + l.Key())
	}

	labels, err := l.Get(KeyLabels)
	if err != nil {
		return err
	}
	fp := hash.LabelsFingerprint(labels)
	if c.fingerprint == "" {
		c.fingerprint = fp
	} else if fp != c.fingerprint {
		return errors.DatasetMismatchError(l.Key()).
			WithDetail("expected", c.fingerprint).
			WithDetail("got", fp)
	}

	c.runs[l.Key()] = l
	c.keys = append(c.keys, l.Key())
	sort.Strings(c.keys)
	return nil
}

// Len returns the number of runs.
func (c *Collection) Len() int { return len(c.runs) }

// Keys returns the run keys in sorted order.
func (c *Collection) Keys() []string { return c.keys }

// Get returns the run for key.
func (c *Collection) Get(key string) (*Log, bool) {
	l, ok := c.runs[key]
	return l, ok
}

// First returns the run with the lowest key, or nil for an empty
// collection.
func (c *Collection) First() *Log {
	if len(c.keys) == 0 {
		return nil
	}
	return c.runs[c.keys[0]]
}

// Close closes every run exactly once and reports any close failures.
// It is idempotent.
func (c *Collection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for _, key := range c.keys {
		if err := c.runs[key].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

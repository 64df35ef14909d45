package metrics

import (
	"math"

	coreerrors "instrumentor/internal/core/errors"
	"instrumentor/internal/store"
)

// Counter is a monotonically non-decreasing accumulator per label set.
// All updates are additive deltas, so any number of processes can increment
// the same series without coordination.
type Counter struct {
	metric
}

// NewCounter declares a counter with its allowed label schema.
func NewCounter(name, description string, allowedLabels ...string) (*Counter, error) {
	c := &Counter{}
	if err := newMetric(&c.metric, name, description, TypeCounter, allowedLabels); err != nil {
		return nil, err
	}
	return c, nil
}

// Inc increments the series for the given labels by one. Pass nil labels for
// the unlabeled series.
func (c *Counter) Inc(labels LabelSet) error {
	return c.Add(1, labels)
}

// Add increments the series by v. Negative values are rejected: counters are
// monotonic by contract. Zero is accepted as a value-wise no-op.
func (c *Counter) Add(v float64, labels LabelSet) error {
	if v < 0 || math.IsNaN(v) {
		return coreerrors.Newf(coreerrors.CodeInvalidValue, "counter %s cannot decrease, got increment %v", c.name, v)
	}

	canonical, err := c.labelString(labels)
	if err != nil {
		return err
	}
	return c.propagate([]store.Op{store.Incr(c.bareKey(canonical), v)})
}

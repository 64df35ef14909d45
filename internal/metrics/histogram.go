package metrics

import (
	"math"
	"sort"

	coreerrors "instrumentor/internal/core/errors"
	"instrumentor/internal/store"
)

// Histogram counts observations into cumulative buckets. Each bucket holds
// the number of observations less than or equal to its boundary; an implicit
// +Inf bucket is always appended, so bucket[i] >= bucket[i-1] holds at all
// times and the +Inf bucket equals the running count.
type Histogram struct {
	metric
	buckets []float64 // ascending, +Inf last
}

// NewHistogram declares a histogram with ascending finite bucket boundaries.
// The +Inf boundary is appended automatically and must not be supplied.
func NewHistogram(name, description string, buckets []float64, allowedLabels ...string) (*Histogram, error) {
	h := &Histogram{}
	if err := newMetric(&h.metric, name, description, TypeHistogram, allowedLabels); err != nil {
		return nil, err
	}

	for i, b := range buckets {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return nil, coreerrors.Newf(coreerrors.CodeConfigError, "histogram %s bucket boundary %v must be finite", name, b)
		}
		if i > 0 && buckets[i-1] >= b {
			return nil, coreerrors.Newf(coreerrors.CodeConfigError, "histogram %s bucket boundaries must be strictly ascending", name)
		}
	}

	bounds := make([]float64, len(buckets), len(buckets)+1)
	copy(bounds, buckets)
	bounds = append(bounds, math.Inf(+1))

	h.buckets = bounds
	return h, nil
}

// Buckets returns the bucket boundaries including the +Inf boundary.
func (h *Histogram) Buckets() []float64 {
	out := make([]float64, len(h.buckets))
	copy(out, h.buckets)
	return out
}

// Observe records one observation: every bucket whose boundary is >= v is
// incremented, the sum grows by v and the count by one. All deltas of one
// call travel as a single batch.
func (h *Histogram) Observe(v float64, labels LabelSet) error {
	if math.IsNaN(v) {
		return coreerrors.Newf(coreerrors.CodeInvalidValue, "histogram %s observation must be a number", h.name)
	}

	canonical, err := h.labelString(labels)
	if err != nil {
		return err
	}

	// First bucket that can hold v; all cumulative buckets from there up.
	idx := sort.SearchFloat64s(h.buckets, v)
	ops := make([]store.Op, 0, len(h.buckets)-idx+2)
	for _, bound := range h.buckets[idx:] {
		bucketLabels, err := withLabel(canonical, BucketLabel, formatValue(bound))
		if err != nil {
			return err
		}
		ops = append(ops, store.Incr(EncodeKey(h.name, ExtBucket, bucketLabels), 1))
	}
	ops = append(ops,
		store.Incr(EncodeKey(h.name, ExtSum, canonical), v),
		store.Incr(EncodeKey(h.name, ExtCount, canonical), 1),
	)

	return h.propagate(ops)
}

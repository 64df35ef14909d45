package metrics

import (
	"math"
	"sort"
	"sync"

	"github.com/beorn7/perks/quantile"

	coreerrors "instrumentor/internal/core/errors"
	"instrumentor/internal/store"
)

// Summary tracks streaming quantile estimates per label set, together with a
// running sum and count. Observations above the declared maximum increment an
// overflow counter and are excluded from estimation.
//
// The estimator is the CKMS targeted-quantile stream from beorn7/perks. The
// estimates are in-process approximations; they are published to the store as
// last-write-wins values, so under several contributing processes the scrape
// reflects the most recent writer. Sum, count and overflow stay exact because
// they are additive.
type Summary struct {
	metric
	objectives map[float64]float64 // quantile -> allowed error
	quantiles  []float64           // sorted, for deterministic op order
	maxValue   float64

	mu      sync.Mutex
	streams map[CanonicalLabels]*stream
}

type stream struct {
	mu sync.Mutex
	q  *quantile.Stream
}

// NewSummary declares a summary. Quantiles must lie in (0, 1); maxValue
// bounds the observable range.
func NewSummary(name, description string, quantiles []float64, maxValue float64, allowedLabels ...string) (*Summary, error) {
	s := &Summary{}
	if err := newMetric(&s.metric, name, description, TypeSummary, allowedLabels); err != nil {
		return nil, err
	}
	if len(quantiles) == 0 {
		return nil, coreerrors.Newf(coreerrors.CodeConfigError, "summary %s needs at least one quantile", name)
	}
	if math.IsNaN(maxValue) || maxValue <= 0 {
		return nil, coreerrors.Newf(coreerrors.CodeConfigError, "summary %s max value must be positive, got %v", name, maxValue)
	}

	objectives := make(map[float64]float64, len(quantiles))
	sorted := make([]float64, 0, len(quantiles))
	for _, q := range quantiles {
		if q <= 0 || q >= 1 {
			return nil, coreerrors.Newf(coreerrors.CodeConfigError, "summary %s quantile %v must be in (0, 1)", name, q)
		}
		if _, dup := objectives[q]; dup {
			continue
		}
		objectives[q] = objectiveError(q)
		sorted = append(sorted, q)
	}
	sort.Float64s(sorted)

	s.objectives = objectives
	s.quantiles = sorted
	s.maxValue = maxValue
	s.streams = make(map[CanonicalLabels]*stream)
	return s, nil
}

// objectiveError picks the allowed rank error for a targeted quantile,
// tighter toward the tails.
func objectiveError(q float64) float64 {
	e := math.Min(q, 1-q) / 10
	if e < 0.001 {
		e = 0.001
	}
	return e
}

// Quantiles returns the declared quantiles in ascending order.
func (s *Summary) Quantiles() []float64 {
	out := make([]float64, len(s.quantiles))
	copy(out, s.quantiles)
	return out
}

// MaxValue returns the declared maximum observable value.
func (s *Summary) MaxValue() float64 { return s.maxValue }

func (s *Summary) streamFor(labels CanonicalLabels) *stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streams[labels]
	if !ok {
		st = &stream{q: quantile.NewTargeted(s.objectives)}
		s.streams[labels] = st
	}
	return st
}

// Observe records one observation. Sum and count always grow. If v exceeds
// the declared maximum the overflow counter grows instead of the estimator,
// leaving all quantile estimates unperturbed.
func (s *Summary) Observe(v float64, labels LabelSet) error {
	if math.IsNaN(v) {
		return coreerrors.Newf(coreerrors.CodeInvalidValue, "summary %s observation must be a number", s.name)
	}

	canonical, err := s.labelString(labels)
	if err != nil {
		return err
	}

	ops := make([]store.Op, 0, len(s.quantiles)+3)
	ops = append(ops,
		store.Incr(EncodeKey(s.name, ExtSum, canonical), v),
		store.Incr(EncodeKey(s.name, ExtCount, canonical), 1),
	)

	if v > s.maxValue {
		ops = append(ops, store.Incr(EncodeKey(s.name, ExtOverflow, canonical), 1))
		return s.propagate(ops)
	}

	st := s.streamFor(canonical)
	st.mu.Lock()
	st.q.Insert(v)
	estimates := make([]float64, len(s.quantiles))
	for i, q := range s.quantiles {
		estimates[i] = st.q.Query(q)
	}
	st.mu.Unlock()

	for i, q := range s.quantiles {
		quantileLabels, err := withLabel(canonical, QuantileLabel, formatValue(q))
		if err != nil {
			return err
		}
		ops = append(ops, store.Set(EncodeKey(s.name, ExtValue, quantileLabels), formatValue(estimates[i])))
	}

	return s.propagate(ops)
}

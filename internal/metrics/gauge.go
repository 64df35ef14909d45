package metrics

import (
	"math"
	"time"

	coreerrors "instrumentor/internal/core/errors"
	"instrumentor/internal/store"
)

// Gauge is a signed value per label set. Inc and Dec are additive deltas and
// remain exact under concurrent multi-process writers; Set is last-write-wins
// and is approximate when several processes set the same series.
type Gauge struct {
	metric
}

// NewGauge declares a gauge with its allowed label schema.
func NewGauge(name, description string, allowedLabels ...string) (*Gauge, error) {
	g := &Gauge{}
	if err := newMetric(&g.metric, name, description, TypeGauge, allowedLabels); err != nil {
		return nil, err
	}
	return g, nil
}

// Inc adds v to the series. v may be negative.
func (g *Gauge) Inc(v float64, labels LabelSet) error {
	if math.IsNaN(v) {
		return coreerrors.Newf(coreerrors.CodeInvalidValue, "gauge %s increment must be a number", g.name)
	}
	canonical, err := g.labelString(labels)
	if err != nil {
		return err
	}
	return g.propagate([]store.Op{store.Incr(g.bareKey(canonical), v)})
}

// Dec subtracts v from the series.
func (g *Gauge) Dec(v float64, labels LabelSet) error {
	return g.Inc(-v, labels)
}

// Set overwrites the series value.
func (g *Gauge) Set(v float64, labels LabelSet) error {
	if math.IsNaN(v) {
		return coreerrors.Newf(coreerrors.CodeInvalidValue, "gauge %s value must be a number", g.name)
	}
	canonical, err := g.labelString(labels)
	if err != nil {
		return err
	}
	return g.propagate([]store.Op{store.Set(g.bareKey(canonical), formatValue(v))})
}

// SetToCurrentTime sets the series to the current Unix time in seconds.
func (g *Gauge) SetToCurrentTime(labels LabelSet) error {
	return g.Set(float64(time.Now().UnixNano())/1e9, labels)
}

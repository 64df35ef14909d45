package metrics

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	coreerrors "instrumentor/internal/core/errors"
	"instrumentor/internal/store"
)

// Metric is implemented by Counter, Gauge, Histogram and Summary.
type Metric interface {
	Name() string
	Description() string
	TypeTag() string

	attach(r *Registry)
	detach()
}

// metric carries the identity shared by all metric types: name, description,
// type tag and the declared label schema. A metric belongs to at most one
// registry at a time; its description and type records are sent once per
// registration, on the first mutation.
type metric struct {
	name        string
	description string
	typeTag     string
	allowed     map[string]struct{}

	mu        sync.RWMutex // guards registry
	registry  *Registry
	described atomic.Bool
}

// newMetric initializes dst in place so the embedded mutex is never copied.
func newMetric(dst *metric, name, description, typeTag string, allowedLabels []string) error {
	if name == "" {
		return coreerrors.New(coreerrors.CodeConfigError, "metric name must not be empty")
	}
	if strings.IndexByte(name, ':') >= 0 {
		return coreerrors.Newf(coreerrors.CodeConfigError, "metric name %q must not contain ':'", name)
	}
	allowed, err := cleanSchema(allowedLabels)
	if err != nil {
		return coreerrors.Wrapf(err, coreerrors.CodeConfigError, "metric %s", name)
	}
	dst.name = name
	dst.description = description
	dst.typeTag = typeTag
	dst.allowed = allowed
	return nil
}

// Name returns the metric name.
func (m *metric) Name() string { return m.name }

// Description returns the metric description.
func (m *metric) Description() string { return m.description }

// TypeTag returns the single-letter type tag.
func (m *metric) TypeTag() string { return m.typeTag }

func (m *metric) attach(r *Registry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry = r
	m.described.Store(false)
}

func (m *metric) detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry = nil
	m.described.Store(false)
}

// labelString canonicalizes caller-supplied labels against the schema.
func (m *metric) labelString(labels LabelSet) (CanonicalLabels, error) {
	return canonicalize(m.name, m.allowed, labels)
}

// bareKey is the key holding the accumulated value for one label set.
func (m *metric) bareKey(labels CanonicalLabels) string {
	return EncodeKey(m.name, ExtValue, labels)
}

// propagate routes operations to the owning registry, prepending the
// one-time description and type records on the first mutation of a
// registration.
func (m *metric) propagate(ops []store.Op) error {
	m.mu.RLock()
	r := m.registry
	m.mu.RUnlock()
	if r == nil {
		return coreerrors.Newf(coreerrors.CodeNotRegistered, "metric %s is not registered", m.name)
	}

	if m.described.CompareAndSwap(false, true) {
		described := []store.Op{
			store.Set(EncodeKey(m.name, ExtType, ""), m.typeTag),
			store.Set(EncodeKey(m.name, ExtDescription, ""), m.description),
		}
		if err := r.enqueue(append(described, ops...)); err != nil {
			// Resend the records with the next mutation.
			m.described.Store(false)
			return err
		}
		return nil
	}

	return r.enqueue(ops)
}

// formatValue renders a float the way the store and exposition text expect.
func formatValue(v float64) string {
	if math.IsInf(v, +1) {
		return "+Inf"
	}
	if math.IsInf(v, -1) {
		return "-Inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

package metrics

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	corelog "instrumentor/internal/core/log"
	"instrumentor/internal/store"
)

// Snapshot is the reconstructed state of one metric name: its description
// and type records plus every series observed in the store.
type Snapshot struct {
	Name        string
	Description string
	Type        string // counter/gauge/histogram/summary

	// Values holds bare-value series: counter and gauge accumulators, and
	// summary quantile estimates (with their quantile label).
	Values map[CanonicalLabels]float64

	// Buckets holds histogram bucket series keyed by labels including le.
	Buckets map[CanonicalLabels]float64

	// Sum, Count and Overflow are keyed by the plain label set.
	Sum      map[CanonicalLabels]float64
	Count    map[CanonicalLabels]float64
	Overflow map[CanonicalLabels]float64
}

var typeNames = map[string]string{
	TypeCounter:   "counter",
	TypeGauge:     "gauge",
	TypeHistogram: "histogram",
	TypeSummary:   "summary",
}

// Reader reconstructs metric snapshots from a full-namespace read.
type Reader struct {
	store     store.Store
	namespace string
	log       corelog.Logger
}

// NewReader creates a reader over the given namespace.
func NewReader(st store.Store, namespace string, logger corelog.Logger) *Reader {
	if logger == nil {
		logger = corelog.Default()
	}
	return &Reader{store: st, namespace: namespace, log: logger}
}

// Read performs exactly one full-namespace read and groups the raw entries
// into snapshots sorted by metric name. Malformed keys are skipped with a
// warning; re-reading is safe and idempotent.
func (r *Reader) Read(ctx context.Context) ([]Snapshot, error) {
	raw, err := r.store.GetAll(ctx, r.namespace)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*Snapshot)
	snap := func(name string) *Snapshot {
		s, ok := byName[name]
		if !ok {
			s = &Snapshot{
				Name:     name,
				Values:   make(map[CanonicalLabels]float64),
				Buckets:  make(map[CanonicalLabels]float64),
				Sum:      make(map[CanonicalLabels]float64),
				Count:    make(map[CanonicalLabels]float64),
				Overflow: make(map[CanonicalLabels]float64),
			}
			byName[name] = s
		}
		return s
	}

	for rawKey, rawValue := range raw {
		key, err := DecodeKey(rawKey)
		if err != nil {
			r.log.WithError(err).Warnf("Reader: skipping malformed key %q", rawKey)
			continue
		}

		s := snap(key.Name)
		switch key.Extension {
		case ExtDescription:
			s.Description = rawValue
			continue
		case ExtType:
			if name, ok := typeNames[rawValue]; ok {
				s.Type = name
			} else {
				r.log.Warnf("Reader: metric %s has unknown type tag %q", key.Name, rawValue)
			}
			continue
		}

		value, err := strconv.ParseFloat(rawValue, 64)
		if err != nil {
			r.log.WithError(err).Warnf("Reader: skipping non-numeric value for key %q", rawKey)
			continue
		}

		switch key.Extension {
		case ExtValue:
			s.Values[key.Labels] = value
		case ExtBucket:
			s.Buckets[key.Labels] = value
		case ExtSum:
			s.Sum[key.Labels] = value
		case ExtCount:
			s.Count[key.Labels] = value
		case ExtOverflow:
			s.Overflow[key.Labels] = value
		}
	}

	out := make([]Snapshot, 0, len(byName))
	for _, s := range byName {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// WriteText renders snapshots into line-oriented exposition text: a
// description line, a type line, then one line per series.
func WriteText(w io.Writer, snapshots []Snapshot) error {
	for _, s := range snapshots {
		if s.Description != "" {
			if _, err := fmt.Fprintf(w, "# HELP %s %s\n", s.Name, escapeHelp(s.Description)); err != nil {
				return err
			}
		}
		if s.Type != "" {
			if _, err := fmt.Fprintf(w, "# TYPE %s %s\n", s.Name, s.Type); err != nil {
				return err
			}
		}

		switch s.Type {
		case "histogram":
			if err := writeHistogram(w, s); err != nil {
				return err
			}
		case "summary":
			if err := writeSummary(w, s); err != nil {
				return err
			}
		default:
			for _, labels := range sortedLabelKeys(s.Values) {
				if err := writeSeries(w, s.Name, labels, s.Values[labels]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func writeHistogram(w io.Writer, s Snapshot) error {
	for _, labels := range sortedBucketKeys(s.Buckets) {
		if err := writeSeries(w, s.Name+"_bucket", labels, s.Buckets[labels]); err != nil {
			return err
		}
	}
	if err := writeAggregates(w, s.Name, s.Sum, s.Count); err != nil {
		return err
	}
	return nil
}

func writeSummary(w io.Writer, s Snapshot) error {
	for _, labels := range sortedLabelKeys(s.Values) {
		if err := writeSeries(w, s.Name, labels, s.Values[labels]); err != nil {
			return err
		}
	}
	if err := writeAggregates(w, s.Name, s.Sum, s.Count); err != nil {
		return err
	}
	for _, labels := range sortedLabelKeys(s.Overflow) {
		if err := writeSeries(w, s.Name+"_overflow", labels, s.Overflow[labels]); err != nil {
			return err
		}
	}
	return nil
}

func writeAggregates(w io.Writer, name string, sum, count map[CanonicalLabels]float64) error {
	for _, labels := range sortedLabelKeys(sum) {
		if err := writeSeries(w, name+"_sum", labels, sum[labels]); err != nil {
			return err
		}
	}
	for _, labels := range sortedLabelKeys(count) {
		if err := writeSeries(w, name+"_count", labels, count[labels]); err != nil {
			return err
		}
	}
	return nil
}

func writeSeries(w io.Writer, name string, labels CanonicalLabels, value float64) error {
	var err error
	if labels == "" {
		_, err = fmt.Fprintf(w, "%s %s\n", name, formatValue(value))
	} else {
		_, err = fmt.Fprintf(w, "%s{%s} %s\n", name, labels, formatValue(value))
	}
	return err
}

func sortedLabelKeys(m map[CanonicalLabels]float64) []CanonicalLabels {
	keys := make([]CanonicalLabels, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// sortedBucketKeys orders bucket series by their label set first and by the
// numeric le boundary second, so the cumulative ladder reads ascending with
// +Inf last.
func sortedBucketKeys(m map[CanonicalLabels]float64) []CanonicalLabels {
	type bucketKey struct {
		labels CanonicalLabels
		rest   string
		bound  float64
	}
	keys := make([]bucketKey, 0, len(m))
	for k := range m {
		bound := math.Inf(+1)
		var rest []labelPair
		if pairs, err := parseLabels(k); err == nil {
			for _, p := range pairs {
				if p.name == BucketLabel {
					bound = parseBound(p.value)
					continue
				}
				rest = append(rest, p)
			}
		}
		keys = append(keys, bucketKey{labels: k, rest: string(renderPairs(rest)), bound: bound})
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].rest != keys[j].rest {
			return keys[i].rest < keys[j].rest
		}
		return keys[i].bound < keys[j].bound
	})
	out := make([]CanonicalLabels, len(keys))
	for i, k := range keys {
		out[i] = k.labels
	}
	return out
}

func parseBound(s string) float64 {
	if s == "+Inf" {
		return math.Inf(+1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.Inf(+1)
	}
	return v
}

func escapeHelp(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "\n", `\n`)
}

// Package metrics implements the shared-store metrics core: the metric
// entities, label canonicalization, the key codec, the collector registry
// with its buffered transfer engine, and the exposition reader.
//
// Many independent processes record into one namespaced store; every store
// mutation is either a pure additive increment or a last-write-wins set, so
// concurrent writers need no coordination.
package metrics

import (
	"sort"
	"strings"

	coreerrors "instrumentor/internal/core/errors"
)

const (
	// BucketLabel is reserved for histogram bucket boundaries.
	BucketLabel = "le"
	// QuantileLabel is reserved for summary quantiles.
	QuantileLabel = "quantile"
)

// reservedLabels may only be produced internally by their owning metric type.
var reservedLabels = map[string]struct{}{
	BucketLabel:   {},
	QuantileLabel: {},
}

// LabelSet maps label names to values for one mutation call.
type LabelSet map[string]string

// CanonicalLabels is the deterministic text form of a label set: pairs
// sorted by name, values escaped, rendered as k1="v1",k2="v2". Two label
// sets that are permutations of each other canonicalize identically, so
// CanonicalLabels doubles as the series identity key. The empty string is
// the no-labels form.
type CanonicalLabels string

// labelPair is one name/value pair of a parsed canonical string.
type labelPair struct {
	name  string
	value string
}

// cleanSchema validates a declared label schema: names must be non-empty,
// free of the canonical form's structural characters, not reserved, and are
// deduplicated.
func cleanSchema(names []string) (map[string]struct{}, error) {
	allowed := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == "" {
			return nil, coreerrors.New(coreerrors.CodeConfigError, "label name must not be empty")
		}
		// Names are rendered unescaped, so the pair and quoting syntax must
		// not appear in them or the encoded key cannot be parsed back.
		if strings.ContainsAny(name, "=,\"\\\n") {
			return nil, coreerrors.Newf(coreerrors.CodeConfigError, "label name %q must not contain '=', ',', '\"', '\\' or newline", name)
		}
		if _, ok := reservedLabels[name]; ok {
			return nil, coreerrors.Newf(coreerrors.CodeConfigError, "label name %q is reserved", name)
		}
		allowed[name] = struct{}{}
	}
	return allowed, nil
}

// canonicalize validates labels against the declared schema and produces the
// canonical sorted form.
func canonicalize(metricName string, allowed map[string]struct{}, labels LabelSet) (CanonicalLabels, error) {
	if len(labels) == 0 {
		return "", nil
	}

	names := make([]string, 0, len(labels))
	for name := range labels {
		if _, ok := reservedLabels[name]; ok {
			return "", coreerrors.Newf(coreerrors.CodeConfigError, "label name %q is reserved and cannot be supplied by callers", name)
		}
		if _, ok := allowed[name]; !ok {
			return "", coreerrors.Newf(coreerrors.CodeConfigError, "label name %q is not declared for metric %s", name, metricName)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		writePair(&b, name, labels[name])
	}
	return CanonicalLabels(b.String()), nil
}

func writePair(b *strings.Builder, name, value string) {
	b.WriteString(name)
	b.WriteString(`="`)
	b.WriteString(escapeLabelValue(value))
	b.WriteByte('"')
}

// escapeLabelValue escapes backslash, double quote and newline, matching the
// exposition text format so values round-trip byte-for-byte.
func escapeLabelValue(v string) string {
	if !strings.ContainsAny(v, "\\\"\n") {
		return v
	}
	var b strings.Builder
	b.Grow(len(v) + 2)
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(v[i])
		}
	}
	return b.String()
}

// parseLabels parses a canonical label string back into sorted pairs.
func parseLabels(s CanonicalLabels) ([]labelPair, error) {
	if s == "" {
		return nil, nil
	}

	raw := string(s)
	var pairs []labelPair
	i := 0
	for i < len(raw) {
		// Label name up to '='.
		eq := strings.IndexByte(raw[i:], '=')
		if eq <= 0 {
			return nil, coreerrors.Newf(coreerrors.CodeFormatError, "label pair missing '=' at offset %d", i)
		}
		name := raw[i : i+eq]
		i += eq + 1

		if i >= len(raw) || raw[i] != '"' {
			return nil, coreerrors.Newf(coreerrors.CodeFormatError, "label %q value is not quoted", name)
		}
		i++

		// Value body with escape handling.
		var b strings.Builder
		closed := false
		for i < len(raw) {
			c := raw[i]
			if c == '\\' {
				if i+1 >= len(raw) {
					return nil, coreerrors.Newf(coreerrors.CodeFormatError, "label %q value has trailing escape", name)
				}
				switch raw[i+1] {
				case '\\':
					b.WriteByte('\\')
				case '"':
					b.WriteByte('"')
				case 'n':
					b.WriteByte('\n')
				default:
					return nil, coreerrors.Newf(coreerrors.CodeFormatError, "label %q value has invalid escape \\%c", name, raw[i+1])
				}
				i += 2
				continue
			}
			if c == '"' {
				closed = true
				i++
				break
			}
			b.WriteByte(c)
			i++
		}
		if !closed {
			return nil, coreerrors.Newf(coreerrors.CodeFormatError, "label %q value is not terminated", name)
		}

		pairs = append(pairs, labelPair{name: name, value: b.String()})

		if i < len(raw) {
			if raw[i] != ',' {
				return nil, coreerrors.Newf(coreerrors.CodeFormatError, "expected ',' between label pairs at offset %d", i)
			}
			i++
			if i == len(raw) {
				return nil, coreerrors.New(coreerrors.CodeFormatError, "trailing comma in label string")
			}
		}
	}
	return pairs, nil
}

// renderPairs builds the canonical string from sorted pairs.
func renderPairs(pairs []labelPair) CanonicalLabels {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte(',')
		}
		writePair(&b, p.name, p.value)
	}
	return CanonicalLabels(b.String())
}

// withLabel returns the canonical labels with one extra pair spliced in at
// its sorted position. Used for the internally produced le and quantile
// labels.
func withLabel(c CanonicalLabels, name, value string) (CanonicalLabels, error) {
	pairs, err := parseLabels(c)
	if err != nil {
		return "", err
	}
	idx := sort.Search(len(pairs), func(i int) bool { return pairs[i].name >= name })
	pairs = append(pairs, labelPair{})
	copy(pairs[idx+1:], pairs[idx:])
	pairs[idx] = labelPair{name: name, value: value}
	return renderPairs(pairs), nil
}

// Labels reconstructs a LabelSet from the canonical form.
func (c CanonicalLabels) Labels() (LabelSet, error) {
	pairs, err := parseLabels(c)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(LabelSet, len(pairs))
	for _, p := range pairs {
		out[p.name] = p.value
	}
	return out, nil
}

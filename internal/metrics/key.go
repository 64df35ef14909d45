package metrics

import (
	"strings"

	coreerrors "instrumentor/internal/core/errors"
)

// Key extensions. Single letters keep store keys short; the encoded key is
// the compatibility surface readers in other languages decode directly.
const (
	ExtValue       = ""  // bare accumulated value
	ExtDescription = "d" // metric description record
	ExtType        = "t" // metric type record
	ExtBucket      = "b" // histogram bucket (with le label)
	ExtSum         = "s" // running sum
	ExtCount       = "c" // running count
	ExtOverflow    = "o" // summary max-value overflow counter
)

// Type tags stored under the type extension.
const (
	TypeCounter   = "c"
	TypeGauge     = "g"
	TypeHistogram = "h"
	TypeSummary   = "s"
)

var validExtensions = map[string]struct{}{
	ExtValue:       {},
	ExtDescription: {},
	ExtType:        {},
	ExtBucket:      {},
	ExtSum:         {},
	ExtCount:       {},
	ExtOverflow:    {},
}

// Key is the decoded form of a store key.
type Key struct {
	Name      string
	Extension string
	Labels    CanonicalLabels
}

// EncodeKey renders the on-the-wire key {name}:{extension}:{labels}.
func EncodeKey(name, extension string, labels CanonicalLabels) string {
	var b strings.Builder
	b.Grow(len(name) + len(extension) + len(labels) + 2)
	b.WriteString(name)
	b.WriteByte(':')
	b.WriteString(extension)
	b.WriteByte(':')
	b.WriteString(string(labels))
	return b.String()
}

// DecodeKey parses a store key back into its components. The metric name and
// extension must not contain ':'; the label segment is everything after the
// second separator, so label values may contain colons freely.
func DecodeKey(raw string) (Key, error) {
	first := strings.IndexByte(raw, ':')
	if first < 0 {
		return Key{}, coreerrors.Newf(coreerrors.CodeFormatError, "key %q has no extension separator", raw)
	}
	name := raw[:first]
	if name == "" {
		return Key{}, coreerrors.Newf(coreerrors.CodeFormatError, "key %q has empty metric name", raw)
	}

	rest := raw[first+1:]
	second := strings.IndexByte(rest, ':')
	if second < 0 {
		return Key{}, coreerrors.Newf(coreerrors.CodeFormatError, "key %q has no label separator", raw)
	}
	extension := rest[:second]
	if _, ok := validExtensions[extension]; !ok {
		return Key{}, coreerrors.Newf(coreerrors.CodeFormatError, "key %q has unknown extension %q", raw, extension)
	}

	labels := CanonicalLabels(rest[second+1:])
	if _, err := parseLabels(labels); err != nil {
		return Key{}, coreerrors.Wrapf(err, coreerrors.CodeFormatError, "key %q has malformed labels", raw)
	}

	return Key{Name: name, Extension: extension, Labels: labels}, nil
}

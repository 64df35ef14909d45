package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "instrumentor/internal/core/errors"
)

func TestKeyRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		metric    string
		extension string
		labels    CanonicalLabels
	}{
		{"bare no labels", "api_http_requests_total", ExtValue, ""},
		{"bare with labels", "api_http_requests_total", ExtValue, `handler="/messages",method="POST"`},
		{"description", "api_http_requests_total", ExtDescription, ""},
		{"type", "api_http_requests_total", ExtType, ""},
		{"bucket", "request_latency_seconds", ExtBucket, `le="0.5",method="GET"`},
		{"sum", "request_latency_seconds", ExtSum, `method="GET"`},
		{"count", "request_latency_seconds", ExtCount, `method="GET"`},
		{"overflow", "payload_bytes", ExtOverflow, ""},
		{"colons in value", "m", ExtValue, `addr="127.0.0.1:6379"`},
		{"commas and quotes in value", "m", ExtValue, `q="a,b=\"c\""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := EncodeKey(tt.metric, tt.extension, tt.labels)
			key, err := DecodeKey(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.metric, key.Name)
			assert.Equal(t, tt.extension, key.Extension)
			assert.Equal(t, tt.labels, key.Labels)
			// Byte-for-byte reproduction.
			assert.Equal(t, raw, EncodeKey(key.Name, key.Extension, key.Labels))
		})
	}
}

func TestEncodeKey_Format(t *testing.T) {
	// The wire format is the compatibility surface for readers in other
	// languages; pin it exactly.
	assert.Equal(t, "requests_total::", EncodeKey("requests_total", ExtValue, ""))
	assert.Equal(t, "requests_total:t:", EncodeKey("requests_total", ExtType, ""))
	assert.Equal(t, `requests_total::method="POST"`, EncodeKey("requests_total", ExtValue, `method="POST"`))
}

func TestDecodeKey_Malformed(t *testing.T) {
	cases := []string{
		"",                     // empty
		"noseparators",         // no ':' at all
		"name:d",               // only one separator
		":d:",                  // empty name
		"name:x:",              // unknown extension
		"name:dd:",             // multi-letter extension
		`name::method=POST`,    // malformed labels
		`name::method="POST`,   // unterminated label value
	}
	for _, raw := range cases {
		_, err := DecodeKey(raw)
		require.Error(t, err, "expected decode failure for %q", raw)
		assert.True(t, coreerrors.IsCode(err, coreerrors.CodeFormatError), "want FORMAT_ERROR for %q", raw)
	}
}

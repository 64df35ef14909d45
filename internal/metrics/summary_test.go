package metrics

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "instrumentor/internal/core/errors"
)

func TestSummary_Declaration(t *testing.T) {
	_, err := NewSummary("s", "desc", []float64{0.5, 0.9}, 100)
	require.NoError(t, err)

	_, err = NewSummary("s", "desc", nil, 100)
	require.Error(t, err)

	_, err = NewSummary("s", "desc", []float64{0}, 100)
	require.Error(t, err)

	_, err = NewSummary("s", "desc", []float64{1}, 100)
	require.Error(t, err)

	_, err = NewSummary("s", "desc", []float64{0.5}, -1)
	require.Error(t, err)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeConfigError))
}

func TestSummary_ObserveUpdatesAggregates(t *testing.T) {
	r, st := setupRegistry(t, Eager)

	s, err := NewSummary("payload_bytes", "Payload sizes", []float64{0.5}, 1000)
	require.NoError(t, err)
	require.NoError(t, r.Register(s))

	require.NoError(t, s.Observe(100, nil))
	require.NoError(t, s.Observe(300, nil))

	assert.Equal(t, "400", storeValue(t, st, "payload_bytes:s:"))
	assert.Equal(t, "2", storeValue(t, st, "payload_bytes:c:"))
	assert.Equal(t, "", storeValue(t, st, "payload_bytes:o:"))
}

func TestSummary_OverflowLeavesQuantilesUnperturbed(t *testing.T) {
	r, st := setupRegistry(t, Eager)

	s, err := NewSummary("payload_bytes", "Payload sizes", []float64{0.5}, 1000)
	require.NoError(t, err)
	require.NoError(t, r.Register(s))

	require.NoError(t, s.Observe(100, nil))
	quantileKey := `payload_bytes::quantile="0.5"`
	before := storeValue(t, st, quantileKey)
	require.NotEmpty(t, before)

	// Above max: sum, count and overflow grow, quantile estimate untouched.
	require.NoError(t, s.Observe(5000, nil))

	assert.Equal(t, "5100", storeValue(t, st, "payload_bytes:s:"))
	assert.Equal(t, "2", storeValue(t, st, "payload_bytes:c:"))
	assert.Equal(t, "1", storeValue(t, st, "payload_bytes:o:"))
	assert.Equal(t, before, storeValue(t, st, quantileKey))
}

func TestSummary_QuantileEstimates(t *testing.T) {
	r, st := setupRegistry(t, Eager)

	s, err := NewSummary("latency_ms", "Latency", []float64{0.5, 0.9}, 1e9)
	require.NoError(t, err)
	require.NoError(t, r.Register(s))

	// Uniform 1..1000; the CKMS stream targets rank error 0.05 at q=0.5
	// and 0.01 at q=0.9, so generous tolerance windows are enough.
	for i := 1; i <= 1000; i++ {
		require.NoError(t, s.Observe(float64(i), nil))
	}

	q50, err := strconv.ParseFloat(storeValue(t, st, `latency_ms::quantile="0.5"`), 64)
	require.NoError(t, err)
	assert.InDelta(t, 500, q50, 100)

	q90, err := strconv.ParseFloat(storeValue(t, st, `latency_ms::quantile="0.9"`), 64)
	require.NoError(t, err)
	assert.InDelta(t, 900, q90, 100)
}

func TestSummary_PerLabelsetStreams(t *testing.T) {
	r, st := setupRegistry(t, Eager)

	s, err := NewSummary("latency_ms", "Latency", []float64{0.5}, 1e9, "method")
	require.NoError(t, err)
	require.NoError(t, r.Register(s))

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Observe(10, LabelSet{"method": "GET"}))
		require.NoError(t, s.Observe(1000, LabelSet{"method": "POST"}))
	}

	get, err := strconv.ParseFloat(storeValue(t, st, `latency_ms::method="GET",quantile="0.5"`), 64)
	require.NoError(t, err)
	post, err := strconv.ParseFloat(storeValue(t, st, `latency_ms::method="POST",quantile="0.5"`), 64)
	require.NoError(t, err)

	assert.InDelta(t, 10, get, 1)
	assert.InDelta(t, 1000, post, 1)
}

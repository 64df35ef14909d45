package metrics

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corelog "instrumentor/internal/core/log"
)

func TestStartTimer_ObservesElapsed(t *testing.T) {
	r, st := setupRegistry(t, Eager)

	h, err := NewHistogram("op_seconds", "Operation duration", []float64{10})
	require.NoError(t, err)
	require.NoError(t, r.Register(h))

	stop := StartTimer(h, nil)
	require.NoError(t, stop())

	assert.Equal(t, "1", storeValue(t, st, "op_seconds:c:"))
	assert.Equal(t, "1", storeValue(t, st, `op_seconds:b:le="10"`))
}

func TestTime_RecordsOnError(t *testing.T) {
	r, st := setupRegistry(t, Eager)

	h, err := NewHistogram("op_seconds", "Operation duration", []float64{10})
	require.NoError(t, err)
	require.NoError(t, r.Register(h))

	wantErr := errors.New("boom")
	err = Time(h, nil, func() error { return wantErr })
	assert.Equal(t, wantErr, err)

	assert.Equal(t, "1", storeValue(t, st, "op_seconds:c:"))
}

func TestTime_RecordsOnPanic(t *testing.T) {
	r, st := setupRegistry(t, Eager)

	h, err := NewHistogram("op_seconds", "Operation duration", []float64{10})
	require.NoError(t, err)
	require.NoError(t, r.Register(h))

	require.Panics(t, func() {
		_ = Time(h, nil, func() error { panic("boom") })
	})

	assert.Equal(t, "1", storeValue(t, st, "op_seconds:c:"))
}

func TestTrack_IncrementsOnEveryExit(t *testing.T) {
	r, st := setupRegistry(t, Eager)

	c, err := NewCounter("calls_total", "Calls")
	require.NoError(t, err)
	require.NoError(t, r.Register(c))

	require.NoError(t, Track(c, nil, func() error { return nil }))
	require.Error(t, Track(c, nil, func() error { return errors.New("boom") }))
	require.Panics(t, func() {
		_ = Track(c, nil, func() error { panic("boom") })
	})

	assert.Equal(t, "3", storeValue(t, st, "calls_total::"))
}

func TestTime_FailedObservationLoggedNotReturned(t *testing.T) {
	r := NewRegistry(context.Background(), failingStore{}, "testns",
		WithMode(Eager), WithLogger(corelog.NewNopLogger()))

	h, err := NewHistogram("op_seconds", "Operation duration", []float64{10})
	require.NoError(t, err)
	require.NoError(t, r.Register(h))

	var warns int32
	restore := corelog.Default()
	corelog.SetDefault(warnCountLogger{Logger: corelog.NewNopLogger(), warns: &warns})
	defer corelog.SetDefault(restore)

	// fn's own result passes through unchanged even though the deferred
	// observation fails against the dead store.
	require.NoError(t, Time(h, nil, func() error { return nil }))
	assert.EqualValues(t, 1, atomic.LoadInt32(&warns))

	wantErr := errors.New("boom")
	assert.Equal(t, wantErr, Time(h, nil, func() error { return wantErr }))
	assert.EqualValues(t, 2, atomic.LoadInt32(&warns))
}

func TestTrack_FailedIncrementLoggedNotReturned(t *testing.T) {
	r := NewRegistry(context.Background(), failingStore{}, "testns",
		WithMode(Eager), WithLogger(corelog.NewNopLogger()))

	c, err := NewCounter("calls_total", "Calls")
	require.NoError(t, err)
	require.NoError(t, r.Register(c))

	var warns int32
	restore := corelog.Default()
	corelog.SetDefault(warnCountLogger{Logger: corelog.NewNopLogger(), warns: &warns})
	defer corelog.SetDefault(restore)

	require.NoError(t, Track(c, nil, func() error { return nil }))
	assert.EqualValues(t, 1, atomic.LoadInt32(&warns))
}

// warnCountLogger counts warn-level messages and swallows everything else.
type warnCountLogger struct {
	corelog.Logger
	warns *int32
}

func (l warnCountLogger) Warn(args ...interface{}) {
	atomic.AddInt32(l.warns, 1)
}

func (l warnCountLogger) Warnf(format string, args ...interface{}) {
	atomic.AddInt32(l.warns, 1)
}

func (l warnCountLogger) WithError(err error) corelog.Logger {
	return l
}

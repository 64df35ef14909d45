package metrics

import (
	"time"

	corelog "instrumentor/internal/core/log"
)

// Observer is implemented by Histogram and Summary.
type Observer interface {
	Observe(v float64, labels LabelSet) error
}

// StartTimer begins timing a unit of work. The returned stop function
// observes the elapsed seconds; use it with defer so the measurement is
// recorded on every exit path.
//
//	stop := metrics.StartTimer(latency, labels)
//	defer stop()
func StartTimer(o Observer, labels LabelSet) func() error {
	start := time.Now()
	return func() error {
		return o.Observe(time.Since(start).Seconds(), labels)
	}
}

// Time runs fn and observes its duration in seconds, recording even when fn
// returns an error or panics. fn's error is returned unchanged; a failed
// observation cannot overwrite it and is logged instead.
func Time(o Observer, labels LabelSet, fn func() error) error {
	stop := StartTimer(o, labels)
	defer func() {
		if err := stop(); err != nil {
			corelog.Default().WithError(err).Warn("timed observation dropped")
		}
	}()
	return fn()
}

// Track runs fn and increments the counter exactly once, on every exit path
// including error returns and panics. A failed increment is logged, not
// returned, so it cannot mask fn's error.
func Track(c *Counter, labels LabelSet, fn func() error) error {
	defer func() {
		if err := c.Inc(labels); err != nil {
			corelog.Default().WithError(err).Warnf("call count increment dropped for %s", c.name)
		}
	}()
	return fn()
}

package log

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T) (Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	l := logrus.New()
	l.SetOutput(buf)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return NewLogrusLogger(l), buf
}

func TestLogrusLogger_Levels(t *testing.T) {
	logger, buf := newBufferLogger(t)

	logger.Debugf("debug %d", 1)
	logger.Infof("info %d", 2)
	logger.Warnf("warn %d", 3)
	logger.Errorf("error %d", 4)

	out := buf.String()
	assert.Contains(t, out, "debug 1")
	assert.Contains(t, out, "info 2")
	assert.Contains(t, out, "warn 3")
	assert.Contains(t, out, "error 4")
}

func TestLogrusLogger_WithField(t *testing.T) {
	logger, buf := newBufferLogger(t)

	logger.WithField("namespace", "myapp").Info("transfer complete")

	out := buf.String()
	assert.Contains(t, out, "namespace=myapp")
	assert.Contains(t, out, "transfer complete")
}

func TestNewFromConfig(t *testing.T) {
	logger, err := NewFromConfig(&Config{Level: "warn", Format: "json"})
	require.NoError(t, err)
	require.NotNil(t, logger)

	_, err = NewFromConfig(&Config{Level: "not-a-level"})
	assert.Error(t, err)
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	// Must not panic and chaining must keep returning a usable logger.
	logger.WithField("k", "v").WithError(nil).Infof("ignored %d", 1)
}

func TestTestLogger(t *testing.T) {
	rec := &recordingT{}
	logger := NewTestLogger(rec)
	logger.Infof("flushed %d ops", 7)
	require.Len(t, rec.lines, 1)
	assert.Equal(t, "[INFO] flushed 7 ops", rec.lines[0])
}

type recordingT struct {
	lines []string
}

func (r *recordingT) Log(args ...interface{}) {
	r.lines = append(r.lines, strings.TrimSpace(fmt.Sprintln(args...)))
}

func (r *recordingT) Logf(format string, args ...interface{}) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

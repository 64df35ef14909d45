// Package log provides the unified logging interface and implementations.
// Components receive a Logger by injection so tests can substitute it.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the logging interface used by all components.
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger
}

// Config holds logging configuration.
type Config struct {
	Level  string `yaml:"level" json:"level"`   // debug/info/warn/error
	Format string `yaml:"format" json:"format"` // text/json
	Output string `yaml:"output" json:"output"` // stdout/stderr/file
	File   string `yaml:"file" json:"file"`     // log file path when output=file
}

// ============================================================================
// logrusLogger - Logger implementation backed by logrus
// ============================================================================

type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger wraps a logrus.Logger in the Logger interface.
func NewLogrusLogger(l *logrus.Logger) Logger {
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *logrusLogger) Info(args ...interface{})  { l.entry.Info(args...) }
func (l *logrusLogger) Warn(args ...interface{})  { l.entry.Warn(args...) }
func (l *logrusLogger) Error(args ...interface{}) { l.entry.Error(args...) }

func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

func (l *logrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *logrusLogger) WithError(err error) Logger {
	return &logrusLogger{entry: l.entry.WithError(err)}
}

// NewFromConfig builds a logrus-backed Logger from configuration.
func NewFromConfig(cfg *Config) (Logger, error) {
	l := logrus.New()

	if cfg.Level != "" {
		level, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		l.SetLevel(level)
	}

	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	switch cfg.Output {
	case "stderr":
		l.SetOutput(os.Stderr)
	case "file":
		if cfg.File != "" {
			f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
			if err != nil {
				return nil, err
			}
			l.SetOutput(f)
		}
	default:
		l.SetOutput(os.Stdout)
	}

	return NewLogrusLogger(l), nil
}

// ============================================================================
// NopLogger - silent logger for tests
// ============================================================================

// NopLogger discards all output.
type NopLogger struct{}

func (NopLogger) Debug(args ...interface{})                         {}
func (NopLogger) Info(args ...interface{})                          {}
func (NopLogger) Warn(args ...interface{})                          {}
func (NopLogger) Error(args ...interface{})                         {}
func (NopLogger) Debugf(format string, args ...interface{})         {}
func (NopLogger) Infof(format string, args ...interface{})          {}
func (NopLogger) Warnf(format string, args ...interface{})          {}
func (NopLogger) Errorf(format string, args ...interface{})         {}
func (n NopLogger) WithField(key string, value interface{}) Logger  { return n }
func (n NopLogger) WithFields(fields map[string]interface{}) Logger { return n }
func (n NopLogger) WithError(err error) Logger                      { return n }

// NewNopLogger creates a silent logger.
func NewNopLogger() Logger {
	return NopLogger{}
}

// ============================================================================
// TestLogger - logger that writes to testing.T
// ============================================================================

// TestingT is the subset of *testing.T the TestLogger needs.
type TestingT interface {
	Log(args ...interface{})
	Logf(format string, args ...interface{})
}

// TestLogger routes log output through a testing.T.
type TestLogger struct {
	t      TestingT
	fields map[string]interface{}
}

// NewTestLogger creates a logger writing to t.
func NewTestLogger(t TestingT) Logger {
	return &TestLogger{t: t, fields: make(map[string]interface{})}
}

func (l *TestLogger) Debug(args ...interface{}) {
	l.t.Log(append([]interface{}{"[DEBUG]"}, args...)...)
}

func (l *TestLogger) Info(args ...interface{}) {
	l.t.Log(append([]interface{}{"[INFO]"}, args...)...)
}

func (l *TestLogger) Warn(args ...interface{}) {
	l.t.Log(append([]interface{}{"[WARN]"}, args...)...)
}

func (l *TestLogger) Error(args ...interface{}) {
	l.t.Log(append([]interface{}{"[ERROR]"}, args...)...)
}

func (l *TestLogger) Debugf(format string, args ...interface{}) {
	l.t.Logf("[DEBUG] "+format, args...)
}

func (l *TestLogger) Infof(format string, args ...interface{}) {
	l.t.Logf("[INFO] "+format, args...)
}

func (l *TestLogger) Warnf(format string, args ...interface{}) {
	l.t.Logf("[WARN] "+format, args...)
}

func (l *TestLogger) Errorf(format string, args ...interface{}) {
	l.t.Logf("[ERROR] "+format, args...)
}

func (l *TestLogger) WithField(key string, value interface{}) Logger {
	newFields := make(map[string]interface{}, len(l.fields)+1)
	for k, v := range l.fields {
		newFields[k] = v
	}
	newFields[key] = value
	return &TestLogger{t: l.t, fields: newFields}
}

func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	newFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}
	return &TestLogger{t: l.t, fields: newFields}
}

func (l *TestLogger) WithError(err error) Logger {
	return l.WithField("error", err)
}

// ============================================================================
// Default logger management
// ============================================================================

var (
	defaultLogger     Logger
	defaultLoggerOnce sync.Once
	defaultLoggerMu   sync.RWMutex
)

func initDefaultLogger() {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
	})
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.InfoLevel)
	defaultLogger = NewLogrusLogger(l)
}

// Default returns the process-wide default Logger.
func Default() Logger {
	defaultLoggerOnce.Do(initDefaultLogger)
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the process-wide default Logger.
func SetDefault(l Logger) {
	defaultLoggerOnce.Do(initDefaultLogger)
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	defaultLogger = l
}

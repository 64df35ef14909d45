package log

import (
	"os"
)

// ============================================================================
// Global convenience functions, delegating to Default()
// ============================================================================

// Debug logs at debug level through the default logger.
func Debug(args ...interface{}) {
	Default().Debug(args...)
}

// Info logs at info level through the default logger.
func Info(args ...interface{}) {
	Default().Info(args...)
}

// Warn logs at warn level through the default logger.
func Warn(args ...interface{}) {
	Default().Warn(args...)
}

// Error logs at error level through the default logger.
func Error(args ...interface{}) {
	Default().Error(args...)
}

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...interface{}) {
	Default().Debugf(format, args...)
}

// Infof logs a formatted message at info level.
func Infof(format string, args ...interface{}) {
	Default().Infof(format, args...)
}

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...interface{}) {
	Default().Warnf(format, args...)
}

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...interface{}) {
	Default().Errorf(format, args...)
}

// Fatalf logs a formatted message at error level and exits.
func Fatalf(format string, args ...interface{}) {
	Default().Errorf(format, args...)
	os.Exit(1)
}

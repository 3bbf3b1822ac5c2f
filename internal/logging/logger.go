// Package logging defines the logging contract used across steamshelf.
// The embedding application (typically the GUI shell) supplies the sink;
// library code never writes to stdout/stderr directly.
package logging

// Logger provides structured logging for steamshelf operations.
// Implementations must be safe for concurrent use.
type Logger interface {
	// Debug logs debug-level messages with optional key-value pairs.
	Debug(msg string, keysAndValues ...interface{})

	// Info logs info-level messages with optional key-value pairs.
	Info(msg string, keysAndValues ...interface{})

	// Warn logs warning-level messages with optional key-value pairs.
	Warn(msg string, keysAndValues ...interface{})

	// Error logs error-level messages with optional key-value pairs.
	Error(msg string, keysAndValues ...interface{})
}

// noopLogger is a Logger implementation that does nothing.
// This is the default logger used when none is provided.
type noopLogger struct{}

func (n *noopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (n *noopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (n *noopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (n *noopLogger) Error(msg string, keysAndValues ...interface{}) {}

// Noop returns a Logger that discards everything.
func Noop() Logger {
	return &noopLogger{}
}

// OrNoop returns l unless it is nil, in which case the no-op logger is
// returned. Constructors use this so a nil Logger is always safe.
func OrNoop(l Logger) Logger {
	if l == nil {
		return Noop()
	}
	return l
}

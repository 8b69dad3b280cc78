package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger creates a logrus logger from a level name and format ("json" or "text")
func NewLogger(level, format string, output io.Writer) (*logrus.Logger, error) {
	if output == nil {
		output = os.Stderr
	}

	logger := logrus.New()
	logger.SetOutput(output)
	if err := Configure(logger, level, format); err != nil {
		return nil, err
	}
	return logger, nil
}

// Configure applies a level name and format to an existing logger
func Configure(logger *logrus.Logger, level, format string) error {
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	switch strings.ToLower(format) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	logger.SetLevel(lvl)
	return nil
}

// DiscardLogger returns a logger that drops everything
func DiscardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// OrDefault returns logger, or the logrus standard logger when nil
func OrDefault(logger *logrus.Logger) *logrus.Logger {
	if logger == nil {
		return logrus.StandardLogger()
	}
	return logger
}

// contextKey is the type for context keys
type contextKey string

// LoggerKey is the context key for the log entry
const LoggerKey contextKey = "logger"

// WithLogger adds a log entry to the context
func WithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, LoggerKey, entry)
}

// FromContext retrieves the log entry from context, enriched with the trace
// context when a span is recording. Without one it starts from fallback.
func FromContext(ctx context.Context, fallback *logrus.Logger) *logrus.Entry {
	entry, ok := ctx.Value(LoggerKey).(*logrus.Entry)
	if !ok {
		entry = logrus.NewEntry(OrDefault(fallback))
	}
	return WithTraceContext(ctx, entry)
}

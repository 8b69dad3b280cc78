package audit

import (
	"context"
	"errors"
	"fmt"
)

// MultiLogger fans events out to several sinks in order. A failing sink
// never keeps the event from the sinks after it.
type MultiLogger struct {
	sinks []Logger
}

// NewMultiLogger combines sinks
func NewMultiLogger(sinks ...Logger) *MultiLogger {
	return &MultiLogger{sinks: sinks}
}

// Log writes the event to every sink and joins their errors
func (m *MultiLogger) Log(ctx context.Context, event *Event) error {
	return m.each("log", func(sink Logger) error { return sink.Log(ctx, event) })
}

// Close closes every sink and joins their errors
func (m *MultiLogger) Close() error {
	return m.each("close", Logger.Close)
}

func (m *MultiLogger) each(op string, fn func(Logger) error) error {
	var errs []error
	for i, sink := range m.sinks {
		if err := fn(sink); err != nil {
			errs = append(errs, fmt.Errorf("audit sink %d %s: %w", i, op, err))
		}
	}
	return errors.Join(errs...)
}

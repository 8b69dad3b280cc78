package audit

import (
	"context"
	"sync"
)

// Logger is an audit sink. Implementations must be safe for concurrent use.
type Logger interface {
	Log(ctx context.Context, event *Event) error
	// Close flushes and releases the sink
	Close() error
}

// NoOp returns a logger that discards every event
func NoOp() Logger {
	return &noOpLogger{}
}

type noOpLogger struct{}

func (l *noOpLogger) Log(ctx context.Context, event *Event) error {
	return nil
}

func (l *noOpLogger) Close() error {
	return nil
}

// MemoryLogger keeps events in memory
type MemoryLogger struct {
	mu     sync.RWMutex
	events []*Event
}

// NewMemoryLogger creates an empty in-memory logger
func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

// Log implements Logger
func (l *MemoryLogger) Log(ctx context.Context, event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	copied := *event
	l.events = append(l.events, &copied)
	return nil
}

// Events returns the recorded events in order
func (l *MemoryLogger) Events() []*Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*Event(nil), l.events...)
}

// Search returns the recorded events matching a filter
func (l *MemoryLogger) Search(filter Filter) []*Event {
	var out []*Event
	for _, e := range l.Events() {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// Close implements Logger
func (l *MemoryLogger) Close() error {
	return nil
}

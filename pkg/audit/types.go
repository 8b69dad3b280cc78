package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the category of audit event
type EventType string

const (
	EventTypeMigrationStart    EventType = "migration.start"
	EventTypeMigrationSuccess  EventType = "migration.success"
	EventTypeMigrationVeto     EventType = "migration.veto"
	EventTypeMigrationRollback EventType = "migration.rollback"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusStarted EventStatus = "started"
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
)

// Event is one audit log entry
type Event struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	MigrationID string `json:"migration_id"`
	EntityID    string `json:"entity_id,omitempty"`
	EntityType  string `json:"entity_type"`
	FromVersion string `json:"from_version"`
	ToVersion   string `json:"to_version"`
	Strategy    string `json:"strategy,omitempty"`

	Hook         string                 `json:"hook,omitempty"`
	DurationMS   int64                  `json:"duration_ms,omitempty"`
	Message      string                 `json:"message,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// NewEvent creates an event with a fresh ID and timestamp
func NewEvent(eventType EventType, status EventStatus) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
		Metadata:  make(map[string]interface{}),
	}
}

// WithDuration records an elapsed time
func (e *Event) WithDuration(d time.Duration) *Event {
	e.DurationMS = d.Milliseconds()
	return e
}

// WithError records an error message
func (e *Event) WithError(err error) *Event {
	if err != nil {
		e.ErrorMessage = err.Error()
	}
	return e
}

// Filter selects events
type Filter struct {
	MigrationID string
	EntityType  string
	EventTypes  []EventType
	Status      EventStatus
}

// Matches reports whether an event satisfies the filter
func (f Filter) Matches(e *Event) bool {
	if f.MigrationID != "" && e.MigrationID != f.MigrationID {
		return false
	}
	if f.EntityType != "" && e.EntityType != f.EntityType {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if len(f.EventTypes) > 0 {
		for _, t := range f.EventTypes {
			if e.EventType == t {
				return true
			}
		}
		return false
	}
	return true
}

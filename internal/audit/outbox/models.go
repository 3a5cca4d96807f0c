// Package outbox relays audit entries to Kafka using the transactional
// outbox pattern: rows are written with the audit entry and published later.
package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Entry is a pending event in the audit outbox.
type Entry struct {
	ID          uuid.UUID
	AggregateID string     // claim ID
	EventType   string     // audit action
	Payload     []byte     // JSON-encoded audit entry
	CreatedAt   time.Time
	ProcessedAt *time.Time // nil while pending
}

// IsPending reports whether the entry still needs publishing.
func (e *Entry) IsPending() bool {
	return e.ProcessedAt == nil
}

// NewEntry creates a pending outbox entry with a generated ID.
func NewEntry(aggregateID, eventType string, payload []byte, createdAt time.Time) *Entry {
	return &Entry{
		ID:          uuid.New(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     payload,
		CreatedAt:   createdAt,
	}
}

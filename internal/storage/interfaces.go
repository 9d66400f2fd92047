package storage

import (
	"context"
	"time"

	"pawlog/internal/domain"
)

// EventStore provides access to events storage.
// Events are append-only: there is no update or delete.
type EventStore interface {
	// Append adds a new event. Returns ErrDuplicateKey if the event ID exists,
	// ErrInvalidInput if the event fails Validate.
	Append(ctx context.Context, e *domain.Event) error

	// AppendBulk adds multiple events atomically. Fails entire batch on any duplicate.
	AppendBulk(ctx context.Context, events []*domain.Event) error

	// GetByType retrieves all events of a type, ordered by timestamp ASC, id ASC.
	GetByType(ctx context.Context, eventType domain.EventType) ([]*domain.Event, error)

	// GetByTimeRange retrieves events of a type within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, eventType domain.EventType, start, end time.Time) ([]*domain.Event, error)

	// Count returns the number of stored events of a type.
	Count(ctx context.Context, eventType domain.EventType) (int, error)
}

// Validate checks the fields every store requires before writing.
func Validate(e *domain.Event) error {
	if e == nil || e.ID == "" || !e.Type.IsValid() || e.Location == "" || e.Timestamp.IsZero() {
		return ErrInvalidInput
	}
	return nil
}

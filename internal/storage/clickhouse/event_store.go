package clickhouse

import (
	"context"
	"fmt"
	"time"

	"pawlog/internal/domain"
	"pawlog/internal/storage"
)

// EventStore implements storage.EventStore using ClickHouse.
// MergeTree does not enforce uniqueness, so duplicates are checked before insert.
type EventStore struct {
	conn *Conn
}

// NewEventStore creates a new EventStore.
func NewEventStore(conn *Conn) *EventStore {
	return &EventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const selectEventColumns = `event_id, event_type, location, timestamp, utc_offset_seconds, created_at`

// Append adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *EventStore) Append(ctx context.Context, e *domain.Event) error {
	return s.AppendBulk(ctx, []*domain.Event{e})
}

// AppendBulk adds multiple events in one batch. Fails entire batch on any duplicate.
func (s *EventStore) AppendBulk(ctx context.Context, events []*domain.Event) (err error) {
	if len(events) == 0 {
		return nil
	}

	// Validate and check for intra-batch duplicates
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		if err := storage.Validate(e); err != nil {
			return err
		}
		if _, exists := seen[e.ID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[e.ID] = struct{}{}
	}

	start := time.Now()
	defer func() { observe("append_bulk", start, err) }()

	// Check for duplicates against existing rows
	for _, e := range events {
		exists, err := s.exists(ctx, e.ID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO events (
			event_id, event_type, location, timestamp, utc_offset_seconds, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	now := time.Now().UTC()
	for _, e := range events {
		_, offset := e.Timestamp.Zone()
		err = batch.Append(
			e.ID, string(e.Type), e.Location,
			e.Timestamp.UTC(), int32(offset), now,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByType retrieves all events of a type, ordered by timestamp ASC.
func (s *EventStore) GetByType(ctx context.Context, eventType domain.EventType) (events []*domain.Event, err error) {
	start := time.Now()
	defer func() { observe("get_by_type", start, err) }()

	query := `
		SELECT ` + selectEventColumns + `
		FROM events FINAL
		WHERE event_type = ?
		ORDER BY timestamp ASC, event_id ASC
	`

	rows, err := s.conn.Query(ctx, query, string(eventType))
	if err != nil {
		return nil, fmt.Errorf("query by type: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByTimeRange retrieves events of a type within [start, end] (inclusive).
func (s *EventStore) GetByTimeRange(ctx context.Context, eventType domain.EventType, from, to time.Time) (events []*domain.Event, err error) {
	start := time.Now()
	defer func() { observe("get_by_time_range", start, err) }()

	query := `
		SELECT ` + selectEventColumns + `
		FROM events FINAL
		WHERE event_type = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, event_id ASC
	`

	rows, err := s.conn.Query(ctx, query, string(eventType), from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Count returns the number of stored events of a type.
func (s *EventStore) Count(ctx context.Context, eventType domain.EventType) (int, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count() FROM events FINAL WHERE event_type = ?`, string(eventType)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return int(count), nil
}

// exists checks if an event with the given ID exists.
func (s *EventStore) exists(ctx context.Context, eventID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count() FROM events WHERE event_id = ?`, eventID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanEvents scans multiple rows into a slice of Event.
func scanEvents(rows chRows) ([]*domain.Event, error) {
	events := []*domain.Event{}

	for rows.Next() {
		var (
			e         domain.Event
			eventType string
			offset    int32
		)
		if err := rows.Scan(&e.ID, &eventType, &e.Location, &e.Timestamp, &offset, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		e.Type = domain.EventType(eventType)
		e.Timestamp = e.Timestamp.In(time.FixedZone("", int(offset)))
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pawlog/internal/domain"
	"pawlog/internal/storage"
)

// EventStore implements storage.EventStore using SQLite.
// Timestamps are kept twice: RFC3339Nano text with the recorded offset for
// round-tripping, and unix milliseconds for ordering and range scans.
type EventStore struct {
	db  *DB
	now func() time.Time
}

// NewEventStore creates a new EventStore.
func NewEventStore(db *DB) *EventStore {
	return &EventStore{db: db, now: time.Now}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const insertEventQuery = `
	INSERT INTO events (event_id, event_type, location, timestamp, timestamp_ms, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
`

const selectEventColumns = `event_id, event_type, location, timestamp, created_at`

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Append adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *EventStore) Append(ctx context.Context, e *domain.Event) (err error) {
	if err := storage.Validate(e); err != nil {
		return err
	}

	start := time.Now()
	defer func() { observe("append", start, err) }()

	return s.insert(ctx, s.db, e)
}

// AppendBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *EventStore) AppendBulk(ctx context.Context, events []*domain.Event) (err error) {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if err := storage.Validate(e); err != nil {
			return err
		}
	}

	start := time.Now()
	defer func() { observe("append_bulk", start, err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, e := range events {
		if err := s.insert(ctx, tx, e); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *EventStore) insert(ctx context.Context, ex execer, e *domain.Event) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	_, err := ex.ExecContext(ctx, insertEventQuery,
		e.ID,
		string(e.Type),
		e.Location,
		e.Timestamp.Format(time.RFC3339Nano),
		e.Timestamp.UnixMilli(),
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByType retrieves all events of a type, ordered by timestamp ASC.
func (s *EventStore) GetByType(ctx context.Context, eventType domain.EventType) (events []*domain.Event, err error) {
	start := time.Now()
	defer func() { observe("get_by_type", start, err) }()

	query := `
		SELECT ` + selectEventColumns + `
		FROM events
		WHERE event_type = ?
		ORDER BY timestamp_ms ASC, event_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, string(eventType))
	if err != nil {
		return nil, fmt.Errorf("get events by type: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByTimeRange retrieves events of a type within [start, end] (inclusive, millisecond precision).
func (s *EventStore) GetByTimeRange(ctx context.Context, eventType domain.EventType, from, to time.Time) (events []*domain.Event, err error) {
	start := time.Now()
	defer func() { observe("get_by_time_range", start, err) }()

	query := `
		SELECT ` + selectEventColumns + `
		FROM events
		WHERE event_type = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC, event_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, string(eventType), from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("get events by time range: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Count returns the number of stored events of a type.
func (s *EventStore) Count(ctx context.Context, eventType domain.EventType) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM events WHERE event_type = ?`, string(eventType)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// scanEvents scans multiple rows into a slice of Event.
func scanEvents(rows *sql.Rows) ([]*domain.Event, error) {
	events := []*domain.Event{}

	for rows.Next() {
		var (
			e                    domain.Event
			eventType, ts, ctime string
		)
		if err := rows.Scan(&e.ID, &eventType, &e.Location, &ts, &ctime); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		timestamp, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp of %s: %w", e.ID, err)
		}
		createdAt, err := time.Parse(time.RFC3339Nano, ctime)
		if err != nil {
			return nil, fmt.Errorf("parse created_at of %s: %w", e.ID, err)
		}

		e.Type = domain.EventType(eventType)
		e.Timestamp = timestamp
		e.CreatedAt = createdAt
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}

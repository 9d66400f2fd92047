package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"pawlog/internal/domain"
	"pawlog/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
// Timestamps are stored as TIMESTAMPTZ together with the recorded UTC offset,
// which is restored on read so hour-of-day and date stay on the original wall clock.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const insertEventQuery = `
	INSERT INTO events (
		event_id, event_type, location, timestamp, utc_offset_seconds
	) VALUES ($1, $2, $3, $4, $5)
`

const selectEventColumns = `event_id, event_type, location, timestamp, utc_offset_seconds, created_at`

// Append adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *EventStore) Append(ctx context.Context, e *domain.Event) (err error) {
	if err := storage.Validate(e); err != nil {
		return err
	}

	start := time.Now()
	defer func() { observe("append", start, err) }()

	_, err = s.pool.Exec(ctx, insertEventQuery, insertArgs(e)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isCheckViolation(err) {
			return storage.ErrInvalidInput
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(insertEventQuery, insertArgs(e)...)
	}

	results := tx.SendBatch(ctx, batch)
	for range events {
		if _, err := results.Exec(); err != nil {
			results.Close()
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert event in bulk: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
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
		WHERE event_type = $1
		ORDER BY timestamp ASC, event_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(eventType))
	if err != nil {
		return nil, fmt.Errorf("get events by type: %w", err)
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
		FROM events
		WHERE event_type = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC, event_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(eventType), from, to)
	if err != nil {
		return nil, fmt.Errorf("get events by time range: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Count returns the number of stored events of a type.
func (s *EventStore) Count(ctx context.Context, eventType domain.EventType) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM events WHERE event_type = $1`, string(eventType)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func insertArgs(e *domain.Event) []any {
	_, offset := e.Timestamp.Zone()
	return []any{
		e.ID,
		string(e.Type),
		e.Location,
		e.Timestamp,
		offset,
	}
}

// scanEvents scans multiple rows into a slice of Event.
func scanEvents(rows pgx.Rows) ([]*domain.Event, error) {
	events := []*domain.Event{}

	for rows.Next() {
		var (
			e         domain.Event
			eventType string
			offset    int
		)

		err := rows.Scan(
			&e.ID,
			&eventType,
			&e.Location,
			&e.Timestamp,
			&offset,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		e.Type = domain.EventType(eventType)
		e.Timestamp = e.Timestamp.In(time.FixedZone("", offset))
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}

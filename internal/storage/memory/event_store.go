package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"pawlog/internal/domain"
	"pawlog/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Event // keyed by event ID
	now  func() time.Time
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		data: make(map[string]*domain.Event),
		now:  time.Now,
	}
}

// Append adds a new event. Returns ErrDuplicateKey if the ID exists.
func (s *EventStore) Append(_ context.Context, e *domain.Event) error {
	if err := storage.Validate(e); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[e.ID] = s.stamp(e)
	return nil
}

// AppendBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *EventStore) AppendBulk(_ context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(events))

	// First pass: validate and check for duplicates (existing + intra-batch)
	for _, e := range events {
		if err := storage.Validate(e); err != nil {
			return err
		}
		if _, exists := s.data[e.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[e.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[e.ID] = struct{}{}
	}

	// Second pass: insert all
	for _, e := range events {
		s.data[e.ID] = s.stamp(e)
	}

	return nil
}

// GetByType retrieves all events of a type, ordered by timestamp ASC.
func (s *EventStore) GetByType(_ context.Context, eventType domain.EventType) ([]*domain.Event, error) {
	return s.filter(func(e *domain.Event) bool {
		return e.Type == eventType
	}), nil
}

// GetByTimeRange retrieves events of a type within [start, end] (inclusive).
func (s *EventStore) GetByTimeRange(_ context.Context, eventType domain.EventType, start, end time.Time) ([]*domain.Event, error) {
	return s.filter(func(e *domain.Event) bool {
		return e.Type == eventType && !e.Timestamp.Before(start) && !e.Timestamp.After(end)
	}), nil
}

// Count returns the number of stored events of a type.
func (s *EventStore) Count(_ context.Context, eventType domain.EventType) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.data {
		if e.Type == eventType {
			n++
		}
	}
	return n, nil
}

// stamp returns a copy of e with CreatedAt set. Caller holds the lock.
func (s *EventStore) stamp(e *domain.Event) *domain.Event {
	copy := *e
	if copy.CreatedAt.IsZero() {
		copy.CreatedAt = s.now().UTC()
	}
	return &copy
}

func (s *EventStore) filter(match func(*domain.Event) bool) []*domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*domain.Event{}
	for _, e := range s.data {
		if match(e) {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.Before(result[j].Timestamp)
		}
		return result[i].ID < result[j].ID
	})

	return result
}

var _ storage.EventStore = (*EventStore)(nil)

package metrics

import (
	"context"
	"time"

	"pawlog/internal/domain"
)

// at parses a naive "2006-01-02T15:04" timestamp as UTC.
func at(s string) time.Time {
	ts, err := time.Parse("2006-01-02T15:04", s)
	if err != nil {
		panic(err)
	}
	return ts
}

func makeEvent(t domain.EventType, location, ts string) *domain.Event {
	return &domain.Event{
		ID:        string(t) + "|" + location + "|" + ts,
		Type:      t,
		Location:  location,
		Timestamp: at(ts),
	}
}

// fakeSource serves fixed events per type and counts calls.
type fakeSource struct {
	events map[domain.EventType][]*domain.Event
	err    error
	calls  map[domain.EventType]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		events: make(map[domain.EventType][]*domain.Event),
		calls:  make(map[domain.EventType]int),
	}
}

func (f *fakeSource) add(events ...*domain.Event) {
	for _, e := range events {
		f.events[e.Type] = append(f.events[e.Type], e)
	}
}

func (f *fakeSource) GetByType(_ context.Context, t domain.EventType) ([]*domain.Event, error) {
	f.calls[t]++
	if f.err != nil {
		return nil, f.err
	}
	return f.events[t], nil
}

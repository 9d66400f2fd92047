package metrics

import (
	"context"
	"fmt"
	"sort"

	"pawlog/internal/domain"
)

// EventSource provides read access to the event log.
// storage.EventStore satisfies it.
type EventSource interface {
	// GetByType retrieves all events of a type, ordered by timestamp ASC.
	GetByType(ctx context.Context, eventType domain.EventType) ([]*domain.Event, error)
}

// Composer computes the statistics summary over all event types.
// It holds no state between calls; every Compute reads a fresh snapshot.
type Composer struct {
	source EventSource
	types  []domain.EventType
}

// NewComposer creates a Composer reading from source.
func NewComposer(source EventSource) *Composer {
	return &Composer{
		source: source,
		types:  domain.EventTypes,
	}
}

// Compute builds the summary. Each type is fetched exactly once.
// Store errors are returned wrapped; errors.Is still matches the cause.
func (c *Composer) Compute(ctx context.Context) (*domain.Summary, error) {
	summary := &domain.Summary{
		Types:         make([]domain.TypeSummary, 0, len(c.types)),
		DailyAverages: make(map[string]map[string]float64, len(c.types)),
	}

	for _, t := range c.types {
		events, err := c.source.GetByType(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("get %s events: %w", t, err)
		}

		ordered := sortByTimestamp(events)
		summary.Types = append(summary.Types, computeTypeSummary(t, ordered))
		summary.DailyAverages[t.Key()] = DailyAverages(ordered)
	}

	return summary, nil
}

// computeTypeSummary computes interval statistics for one ordered series.
// Series with fewer than two events get the zero defaults.
func computeTypeSummary(t domain.EventType, events []*domain.Event) domain.TypeSummary {
	intervals := CalculateIntervals(events)
	if len(intervals) == 0 {
		return domain.TypeSummary{
			Type:       t,
			EventCount: len(events),
			Location:   defaultLocationDistribution(),
		}
	}

	mean := computeMean(intervals)
	return domain.TypeSummary{
		Type:       t,
		EventCount: len(events),
		Max:        round1(computeMax(intervals)),
		Avg:        round1(mean),
		Median:     round1(computeMedian(intervals)),
		Std:        round1(computeStddev(intervals, mean)),
		Location:   LocationDistribution(events),
		TimeDist:   TimeOfDayDistribution(events),
	}
}

// sortByTimestamp returns a copy ordered by timestamp ASC, dropping nil entries.
// The sort is stable so equal timestamps keep store order.
func sortByTimestamp(events []*domain.Event) []*domain.Event {
	sorted := make([]*domain.Event, 0, len(events))
	for _, e := range events {
		if e != nil {
			sorted = append(sorted, e)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

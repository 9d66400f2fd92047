package metrics

import (
	"time"

	"pawlog/internal/domain"
)

// CalculateIntervals returns the gaps in hours between consecutive events.
// events must be ordered by timestamp ASC. N events yield N-1 intervals;
// fewer than two events yield an empty slice.
func CalculateIntervals(events []*domain.Event) []float64 {
	if len(events) < 2 {
		return []float64{}
	}

	intervals := make([]float64, 0, len(events)-1)
	for i := 0; i < len(events)-1; i++ {
		intervals = append(intervals, hoursBetween(events[i].Timestamp, events[i+1].Timestamp))
	}
	return intervals
}

// hoursBetween returns (to - from) in fractional hours.
func hoursBetween(from, to time.Time) float64 {
	return to.Sub(from).Seconds() / 3600.0
}

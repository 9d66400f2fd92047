package metrics

import "pawlog/internal/domain"

// Time-of-day bucket boundaries (hour of the event's own wall clock).
const (
	morningStartHour = 5
	eveningStartHour = 12
	nightStartHour   = 18
)

// LocationDistribution returns the share of events per location, in percent
// rounded to one decimal. Only locations that occur are present.
// Empty input returns {Inside: 0, Outside: 0}.
func LocationDistribution(events []*domain.Event) map[string]float64 {
	if len(events) == 0 {
		return defaultLocationDistribution()
	}

	counts := make(map[string]int)
	for _, e := range events {
		counts[e.Location]++
	}

	dist := make(map[string]float64, len(counts))
	for loc, count := range counts {
		dist[loc] = computePercent(count, len(events))
	}
	return dist
}

// TimeOfDayDistribution returns the share of events per part of the day.
// All buckets are 0 for empty input.
func TimeOfDayDistribution(events []*domain.Event) domain.TimeOfDay {
	var morning, evening, night int
	for _, e := range events {
		switch bucketOf(e.Timestamp.Hour()) {
		case bucketMorning:
			morning++
		case bucketEvening:
			evening++
		default:
			night++
		}
	}

	total := len(events)
	return domain.TimeOfDay{
		Morning: computePercent(morning, total),
		Evening: computePercent(evening, total),
		Night:   computePercent(night, total),
	}
}

type dayBucket int

const (
	bucketMorning dayBucket = iota
	bucketEvening
	bucketNight
)

func bucketOf(hour int) dayBucket {
	switch {
	case hour >= morningStartHour && hour < eveningStartHour:
		return bucketMorning
	case hour >= eveningStartHour && hour < nightStartHour:
		return bucketEvening
	default:
		return bucketNight
	}
}

func defaultLocationDistribution() map[string]float64 {
	return map[string]float64{
		domain.LocationInside:  0,
		domain.LocationOutside: 0,
	}
}

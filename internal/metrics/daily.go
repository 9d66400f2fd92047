package metrics

import "pawlog/internal/domain"

// DateLayout is the key format of daily averages.
const DateLayout = "2006-01-02"

// DailyAverages groups intervals by the calendar date of the earlier event of
// each consecutive pair and returns the mean interval per date, in hours
// rounded to one decimal. events must be ordered by timestamp ASC.
// Dates without intervals are absent; fewer than two events yield an empty map.
func DailyAverages(events []*domain.Event) map[string]float64 {
	byDate := make(map[string][]float64)
	for i := 0; i < len(events)-1; i++ {
		date := events[i].Timestamp.Format(DateLayout)
		byDate[date] = append(byDate[date], hoursBetween(events[i].Timestamp, events[i+1].Timestamp))
	}

	averages := make(map[string]float64, len(byDate))
	for date, intervals := range byDate {
		averages[date] = round1(computeMean(intervals))
	}
	return averages
}

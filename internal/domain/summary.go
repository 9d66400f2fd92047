package domain

// TimeOfDay holds the share of events per part of the day, in percent.
// Morning is [05:00, 12:00), evening is [12:00, 18:00), night is the rest.
type TimeOfDay struct {
	Morning float64 `json:"morning" yaml:"morning"`
	Evening float64 `json:"evening" yaml:"evening"`
	Night   float64 `json:"night" yaml:"night"`
}

// TypeSummary holds interval statistics for one event type.
// Interval values are hours rounded to one decimal.
type TypeSummary struct {
	Type       EventType          `json:"type" yaml:"type"`
	EventCount int                `json:"event_count" yaml:"event_count"`
	Max        float64            `json:"max" yaml:"max"`
	Avg        float64            `json:"avg" yaml:"avg"`
	Median     float64            `json:"median" yaml:"median"`
	Std        float64            `json:"std" yaml:"std"`
	Location   map[string]float64 `json:"location" yaml:"location"`
	TimeDist   TimeOfDay          `json:"time_dist" yaml:"time_dist"`
}

// Summary is the statistics result over the whole event history.
type Summary struct {
	Types []TypeSummary `json:"types" yaml:"types"`

	// DailyAverages maps type key -> date (YYYY-MM-DD) -> mean interval in hours.
	DailyAverages map[string]map[string]float64 `json:"daily_averages" yaml:"daily_averages"`
}

// Type returns the summary for t, or false if t was not computed.
func (s *Summary) Type(t EventType) (TypeSummary, bool) {
	for _, ts := range s.Types {
		if ts.Type == t {
			return ts, true
		}
	}
	return TypeSummary{}, false
}

// Flatten returns the flat key/value form served to clients:
// {type}_max, {type}_avg, {type}_median, {type}_std, {type}_location,
// {type}_time_dist for every type, plus daily_averages.
func (s *Summary) Flatten() map[string]any {
	out := make(map[string]any, len(s.Types)*6+1)
	for _, ts := range s.Types {
		key := ts.Type.Key()
		out[key+"_max"] = ts.Max
		out[key+"_avg"] = ts.Avg
		out[key+"_median"] = ts.Median
		out[key+"_std"] = ts.Std
		out[key+"_location"] = ts.Location
		out[key+"_time_dist"] = ts.TimeDist
	}

	daily := make(map[string]map[string]float64, len(s.DailyAverages))
	for k, v := range s.DailyAverages {
		daily[k] = v
	}
	out["daily_averages"] = daily
	return out
}

package orchestrator

import (
	"fmt"
	"strings"
	"time"
)

// Layouts accepted for timestamps without a UTC offset.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO 8601 timestamp. Values with an offset keep it;
// values without one are interpreted in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("timestamp is required")
	}

	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	// Same as RFC3339 with a space separator.
	if ts, err := time.Parse("2006-01-02 15:04:05.999999999Z07:00", s); err == nil {
		return ts, nil
	}

	for _, layout := range naiveLayouts {
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

package reporting

import (
	"time"

	"pawlog/internal/domain"
)

// Report represents the statistics report structure.
type Report struct {
	// Metadata
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Backend     string    `json:"backend,omitempty" yaml:"backend,omitempty"`

	// Set when the report covers a time range rather than the full history
	WindowStart *time.Time `json:"window_start,omitempty" yaml:"window_start,omitempty"`
	WindowEnd   *time.Time `json:"window_end,omitempty" yaml:"window_end,omitempty"`

	// Event counts per type key
	Counts map[string]int `json:"counts" yaml:"counts"`

	// Full summary as computed
	Summary *domain.Summary `json:"summary" yaml:"summary"`

	// Interval statistics, one row per type in output order
	TypeRows []TypeRow `json:"-" yaml:"-"`

	// Daily averages (sorted by type order, then date)
	DailyRows []DailyRow `json:"-" yaml:"-"`
}

// TypeRow represents one row in the interval statistics table.
type TypeRow struct {
	Type       string
	EventCount int
	Max        float64
	Avg        float64
	Median     float64
	Std        float64
	Inside     float64
	Outside    float64
	Other      float64 // share of locations other than Inside/Outside
	Morning    float64
	Evening    float64
	Night      float64
}

// DailyRow represents one (type, date) daily average.
type DailyRow struct {
	Type     string
	Date     string // YYYY-MM-DD
	AvgHours float64
}

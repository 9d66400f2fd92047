package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"pawlog/internal/domain"
)

// StatisticsSource provides the data a report is built from.
// orchestrator.Orchestrator satisfies it.
type StatisticsSource interface {
	Statistics(ctx context.Context) (*domain.Summary, error)
	Counts(ctx context.Context) (map[string]int, error)
}

// WindowedSource computes summaries over a time range.
// orchestrator.Orchestrator satisfies it.
type WindowedSource interface {
	StatisticsBetween(ctx context.Context, start, end time.Time) (*domain.Summary, error)
}

// Generator produces reports from stored events.
type Generator struct {
	source  StatisticsSource
	backend string
	now     func() time.Time // Injectable clock for deterministic output

	window     WindowedSource
	start, end time.Time
}

// NewGenerator creates a new report generator.
func NewGenerator(source StatisticsSource, backend string) *Generator {
	return &Generator{
		source:  source,
		backend: backend,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithWindow restricts the report to events in [start, end].
func (g *Generator) WithWindow(source WindowedSource, start, end time.Time) *Generator {
	g.window = source
	g.start, g.end = start, end
	return g
}

// Generate produces a complete report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	if g.window != nil {
		return g.generateWindow(ctx)
	}

	summary, err := g.source.Statistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("load statistics: %w", err)
	}

	counts, err := g.source.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load counts: %w", err)
	}

	return g.build(summary, counts), nil
}

func (g *Generator) generateWindow(ctx context.Context) (*Report, error) {
	summary, err := g.window.StatisticsBetween(ctx, g.start, g.end)
	if err != nil {
		return nil, fmt.Errorf("load windowed statistics: %w", err)
	}

	counts := make(map[string]int, len(summary.Types))
	for _, ts := range summary.Types {
		counts[ts.Type.Key()] = ts.EventCount
	}

	r := g.build(summary, counts)
	start, end := g.start, g.end
	r.WindowStart, r.WindowEnd = &start, &end
	return r, nil
}

func (g *Generator) build(summary *domain.Summary, counts map[string]int) *Report {
	return &Report{
		GeneratedAt: g.now(),
		Backend:     g.backend,
		Counts:      counts,
		Summary:     summary,
		TypeRows:    typeRows(summary),
		DailyRows:   dailyRows(summary),
	}
}

func typeRows(s *domain.Summary) []TypeRow {
	rows := make([]TypeRow, 0, len(s.Types))
	for _, ts := range s.Types {
		row := TypeRow{
			Type:       ts.Type.String(),
			EventCount: ts.EventCount,
			Max:        ts.Max,
			Avg:        ts.Avg,
			Median:     ts.Median,
			Std:        ts.Std,
			Morning:    ts.TimeDist.Morning,
			Evening:    ts.TimeDist.Evening,
			Night:      ts.TimeDist.Night,
		}
		for loc, pct := range ts.Location {
			switch loc {
			case domain.LocationInside:
				row.Inside = pct
			case domain.LocationOutside:
				row.Outside = pct
			default:
				row.Other += pct
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func dailyRows(s *domain.Summary) []DailyRow {
	var rows []DailyRow
	for _, ts := range s.Types {
		daily := s.DailyAverages[ts.Type.Key()]
		dates := make([]string, 0, len(daily))
		for d := range daily {
			dates = append(dates, d)
		}
		sort.Strings(dates)

		for _, d := range dates {
			rows = append(rows, DailyRow{Type: ts.Type.String(), Date: d, AvgHours: daily[d]})
		}
	}
	return rows
}

// Package main computes the statistics summary from the configured store and
// writes stats.md, daily_averages.csv, stats.yaml and stats.json.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"pawlog/internal/config"
	"pawlog/internal/logging"
	"pawlog/internal/orchestrator"
	"pawlog/internal/reporting"
	"pawlog/internal/storage/backend"
)

func main() {
	configPath := flag.String("config", os.Getenv("PAWLOG_CONFIG"), "Path to YAML config file (optional)")
	envFile := flag.String("env-file", ".env", "Path to .env file (ignored if missing)")
	outputDir := flag.String("output-dir", "reports", "Output directory for generated files")
	from := flag.String("from", "", "Only include events at or after this time (RFC3339 or 2006-01-02)")
	to := flag.String("to", "", "Only include events at or before this time (RFC3339 or 2006-01-02)")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, _ := logging.New(cfg.Logging)
	ctx := context.Background()

	store, cleanup, err := backend.Open(ctx, cfg.Storage, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	orch := orchestrator.New(orchestrator.Options{Store: store, Logger: logger})

	gen := reporting.NewGenerator(orch, cfg.Storage.Backend)
	if *from != "" || *to != "" {
		loc, err := cfg.Stats.Location()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		start, end, err := parseWindow(*from, *to, loc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		gen = gen.WithWindow(orch, start, end)
	}

	report, err := gen.Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	paths, err := reporting.WriteFiles(*outputDir, report)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Report generated successfully:")
	for _, p := range paths {
		fmt.Printf("  - %s\n", p)
	}
}

// Bounds used for an omitted -from/-to. Both fit every backend's timestamp
// range (ClickHouse DateTime64 covers 1900 to 2299).
var (
	openStart = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	openEnd   = time.Date(2262, 1, 1, 0, 0, 0, 0, time.UTC)
)

// parseWindow resolves -from/-to. A missing bound is open-ended; a date-only
// -to covers that whole calendar day in loc.
func parseWindow(from, to string, loc *time.Location) (time.Time, time.Time, error) {
	start, end := openStart, openEnd

	if from != "" {
		t, err := orchestrator.ParseTimestamp(from, loc)
		if err != nil {
			return start, end, fmt.Errorf("invalid -from: %w", err)
		}
		start = t
	}
	if to != "" {
		t, err := orchestrator.ParseTimestamp(to, loc)
		if err != nil {
			return start, end, fmt.Errorf("invalid -to: %w", err)
		}
		if len(to) == len("2006-01-02") {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		end = t
	}
	return start, end, nil
}

// Package main imports bathroom events from a CSV file (type,location,timestamp)
// into the configured store, or publishes them to Kafka with -publish.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"pawlog/internal/cache"
	"pawlog/internal/config"
	"pawlog/internal/logging"
	"pawlog/internal/orchestrator"
	"pawlog/internal/queue"
	"pawlog/internal/storage"
	"pawlog/internal/storage/backend"
)

func main() {
	configPath := flag.String("config", os.Getenv("PAWLOG_CONFIG"), "Path to YAML config file (optional)")
	envFile := flag.String("env-file", ".env", "Path to .env file (ignored if missing)")
	file := flag.String("file", "", "CSV file with type,location,timestamp rows (required)")
	publish := flag.Bool("publish", false, "Publish rows to the Kafka topic instead of writing the store")
	batchSize := flag.Int("batch", 500, "Rows per bulk insert or publish batch")
	skipDuplicates := flag.Bool("skip-duplicates", false, "Retry a batch row by row when it contains already recorded events")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Error: --file is required")
		os.Exit(1)
	}
	if *batchSize < 1 {
		fmt.Fprintln(os.Stderr, "Error: --batch must be at least 1")
		os.Exit(1)
	}

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
	logger = logging.Component(logger, "ingest")

	f, err := os.Open(*file)
	if err != nil {
		logger.Error("open input", "error", err)
		os.Exit(1)
	}
	defer f.Close()

	reqs, err := readCSV(f)
	if err != nil {
		logger.Error("read input", "file", *file, "error", err)
		os.Exit(1)
	}
	logger.Info("parsed input", "file", *file, "rows", len(reqs))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *publish {
		err = publishAll(ctx, cfg, reqs, *batchSize, logger)
	} else {
		err = importAll(ctx, cfg, reqs, *batchSize, *skipDuplicates, logger)
	}
	if err != nil {
		logger.Error("ingest failed", "error", err)
		os.Exit(1)
	}
}

// readCSV parses type,location,timestamp rows. A header row is skipped.
func readCSV(r io.Reader) ([]orchestrator.RecordRequest, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var reqs []orchestrator.RecordRequest
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "type") {
			continue
		}
		reqs = append(reqs, orchestrator.RecordRequest{
			Type:      record[0],
			Location:  record[1],
			Timestamp: record[2],
		})
	}
	return reqs, nil
}

// importAll writes reqs into the configured store in atomic batches.
func importAll(ctx context.Context, cfg *config.Config, reqs []orchestrator.RecordRequest, batchSize int, skipDuplicates bool, logger *slog.Logger) error {
	store, cleanup, err := backend.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer cleanup()

	location, err := cfg.Stats.Location()
	if err != nil {
		return err
	}

	opts := orchestrator.Options{Store: store, Logger: logger, DefaultLocation: location}
	if cfg.Cache.Enabled {
		// Drop the server's cached summary once new events land.
		rc := cache.NewRedisCache(cache.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		defer rc.Close()
		opts.Cache = rc
	}
	orch := orchestrator.New(opts)

	var recorded, duplicates int
	for start := 0; start < len(reqs); start += batchSize {
		end := min(start+batchSize, len(reqs))
		batch := reqs[start:end]

		events, err := orch.RecordBulk(ctx, batch)
		switch {
		case err == nil:
			recorded += len(events)
		case skipDuplicates && errors.Is(err, storage.ErrDuplicateKey):
			n, d, err := recordEach(ctx, orch, batch)
			if err != nil {
				return fmt.Errorf("rows %d-%d: %w", start+1, end, err)
			}
			recorded += n
			duplicates += d
		default:
			return fmt.Errorf("rows %d-%d: %w", start+1, end, err)
		}
		logger.Info("batch stored", "rows", fmt.Sprintf("%d-%d", start+1, end))
	}

	logger.Info("import complete", "recorded", recorded, "duplicates", duplicates, "backend", cfg.Storage.Backend)
	return nil
}

// recordEach records a batch row by row, counting duplicates instead of failing.
func recordEach(ctx context.Context, orch *orchestrator.Orchestrator, batch []orchestrator.RecordRequest) (recorded, duplicates int, err error) {
	for _, req := range batch {
		_, err := orch.Record(ctx, req)
		switch {
		case err == nil:
			recorded++
		case errors.Is(err, storage.ErrDuplicateKey):
			duplicates++
		default:
			return recorded, duplicates, err
		}
	}
	return recorded, duplicates, nil
}

// publishAll sends reqs to the Kafka topic in batches.
func publishAll(ctx context.Context, cfg *config.Config, reqs []orchestrator.RecordRequest, batchSize int, logger *slog.Logger) error {
	producer := queue.NewProducer(queue.Config{Brokers: cfg.Queue.Brokers, Topic: cfg.Queue.Topic})
	defer producer.Close()

	for start := 0; start < len(reqs); start += batchSize {
		end := min(start+batchSize, len(reqs))
		if err := producer.Publish(ctx, reqs[start:end]...); err != nil {
			return fmt.Errorf("rows %d-%d: %w", start+1, end, err)
		}
	}

	logger.Info("publish complete", "rows", len(reqs), "topic", cfg.Queue.Topic)
	return nil
}

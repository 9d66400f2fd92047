// Package main runs the pawlog server:
// - HTTP API: record events, read statistics, health, metrics, status
// - WebSocket stream of fresh summaries
// - Kafka ingestion (optional)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"pawlog/internal/cache"
	"pawlog/internal/config"
	"pawlog/internal/domain"
	"pawlog/internal/httpapi"
	"pawlog/internal/logging"
	"pawlog/internal/orchestrator"
	"pawlog/internal/queue"
	"pawlog/internal/storage/backend"
	"pawlog/internal/ws"
)

func main() {
	configPath := flag.String("config", os.Getenv("PAWLOG_CONFIG"), "Path to YAML config file (optional)")
	envFile := flag.String("env-file", ".env", "Path to .env file (ignored if missing)")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, level := logging.New(cfg.Logging)
	slog.SetDefault(logger)

	if err := run(cfg, *configPath, logger, level); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(cfg *config.Config, configPath string, logger *slog.Logger, level *slog.LevelVar) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, cleanup, err := backend.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer cleanup()

	location, err := cfg.Stats.Location()
	if err != nil {
		return err
	}

	var summaryCache orchestrator.Cache
	if cfg.Cache.Enabled {
		rc := cache.NewRedisCache(cache.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      cfg.Cache.TTL,
		})
		defer rc.Close()

		if err := rc.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, serving without cache", "addr", cfg.Cache.RedisAddr, "error", err)
		} else {
			summaryCache = rc
		}
	}

	// The hub reads the current summary through the orchestrator, which
	// broadcasts through the hub.
	var orch *orchestrator.Orchestrator
	hub := ws.New(func(ctx context.Context) (*domain.Summary, error) {
		return orch.Statistics(ctx)
	}, logger)
	orch = orchestrator.New(orchestrator.Options{
		Store:           store,
		Cache:           summaryCache,
		Broadcaster:     hub,
		Logger:          logger,
		DefaultLocation: location,
	})
	go hub.Run(ctx)

	if cfg.Queue.Enabled {
		consumer := queue.NewConsumer(queue.Config{
			Brokers: cfg.Queue.Brokers,
			Topic:   cfg.Queue.Topic,
			Group:   cfg.Queue.Group,
		}, orch, logger)
		defer consumer.Close()

		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error("queue consumer stopped", "error", err)
			}
		}()
		logger.Info("consuming events", "topic", cfg.Queue.Topic, "brokers", cfg.Queue.Brokers)
	}

	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, logger, func(c *config.Config) {
				level.Set(logging.ParseLevel(c.Logging.Level))
				logger.Info("log level updated", "level", c.Logging.Level)
			})
			if err != nil {
				logger.Warn("config watch disabled", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: httpapi.New(httpapi.Options{
			Service:   orch,
			Stream:    hub,
			AuthToken: cfg.Server.AuthToken,
			Backend:   cfg.Storage.Backend,
			Logger:    logger,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", cfg.Server.Addr, "backend", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, initiating graceful shutdown", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	// Wait for second signal for immediate shutdown
	go func() {
		sig := <-sigCh
		logger.Warn("received second signal, forcing immediate shutdown", "signal", sig.String())
		os.Exit(1)
	}()

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

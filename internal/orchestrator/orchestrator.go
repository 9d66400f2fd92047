// Package orchestrator records events and serves statistics.
// It coordinates: validation → store → cache invalidation → broadcast.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pawlog/internal/cache"
	"pawlog/internal/domain"
	"pawlog/internal/idhash"
	"pawlog/internal/logging"
	"pawlog/internal/metrics"
	"pawlog/internal/observability"
	"pawlog/internal/storage"
)

// ErrInvalidEvent is returned when a record request cannot be turned into an event.
var ErrInvalidEvent = errors.New("invalid event")

// Cache stores the latest summary. cache.RedisCache satisfies it.
// Get returns cache.ErrMiss when nothing is cached. Set must reject the
// summary with cache.ErrStale when Invalidate ran after gen was read.
type Cache interface {
	Get(ctx context.Context) (*domain.Summary, error)
	Generation(ctx context.Context) (int64, error)
	Set(ctx context.Context, gen int64, summary *domain.Summary) error
	Invalidate(ctx context.Context) error
}

// Broadcaster pushes fresh summaries to live subscribers. ws.Hub satisfies it.
type Broadcaster interface {
	Broadcast(summary *domain.Summary)
}

// Orchestrator records events and computes statistics.
type Orchestrator struct {
	store       storage.EventStore
	composer    *metrics.Composer
	cache       Cache
	broadcaster Broadcaster
	logger      *slog.Logger
	location    *time.Location
	now         func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Store storage.EventStore

	// Optional collaborators
	Cache       Cache
	Broadcaster Broadcaster
	Logger      *slog.Logger

	// DefaultLocation interprets timestamps submitted without an offset. Defaults to UTC.
	DefaultLocation *time.Location
	Now             func() time.Time
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		store:       opts.Store,
		composer:    metrics.NewComposer(opts.Store),
		cache:       opts.Cache,
		broadcaster: opts.Broadcaster,
		logger:      logging.Component(opts.Logger, "orchestrator"),
		location:    opts.DefaultLocation,
		now:         opts.Now,
	}
	if o.location == nil {
		o.location = time.UTC
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// RecordRequest is a raw event submission.
type RecordRequest struct {
	Type      string `json:"type"`
	Location  string `json:"location"`
	Timestamp string `json:"timestamp"`
}

// NewEvent validates req and builds the event it describes, including its ID.
// All validation failures wrap ErrInvalidEvent.
func (o *Orchestrator) NewEvent(req RecordRequest) (*domain.Event, error) {
	eventType, ok := domain.ParseEventType(req.Type)
	if !ok {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, req.Type)
	}

	location := strings.TrimSpace(req.Location)
	if location == "" {
		return nil, fmt.Errorf("%w: location is required", ErrInvalidEvent)
	}

	ts, err := ParseTimestamp(req.Timestamp, o.location)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	return &domain.Event{
		ID:        idhash.ComputeEventID(eventType, location, ts),
		Type:      eventType,
		Location:  location,
		Timestamp: ts,
	}, nil
}

// Record validates and stores one event, then refreshes subscribers.
// Returns ErrInvalidEvent for bad input and storage.ErrDuplicateKey for a repeat.
func (o *Orchestrator) Record(ctx context.Context, req RecordRequest) (*domain.Event, error) {
	event, err := o.NewEvent(req)
	if err != nil {
		observability.RecordEventRejected("invalid")
		return nil, err
	}

	if err := o.store.Append(ctx, event); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			observability.RecordEventRejected("duplicate")
		}
		return nil, fmt.Errorf("append event: %w", err)
	}

	observability.RecordEventRecorded(event.Type.Key(), o.now())
	o.logger.Debug("event recorded",
		"id", event.ID, "type", event.Type.String(), "location", event.Location,
		"timestamp", event.Timestamp.Format(time.RFC3339))

	o.refresh(ctx)
	return event, nil
}

// RecordBulk validates and stores events atomically. A single invalid request
// or duplicate fails the whole batch. Subscribers are refreshed once.
func (o *Orchestrator) RecordBulk(ctx context.Context, reqs []RecordRequest) ([]*domain.Event, error) {
	events := make([]*domain.Event, 0, len(reqs))
	for i, req := range reqs {
		event, err := o.NewEvent(req)
		if err != nil {
			observability.RecordEventRejected("invalid")
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		events = append(events, event)
	}
	if len(events) == 0 {
		return events, nil
	}

	if err := o.store.AppendBulk(ctx, events); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			observability.RecordEventRejected("duplicate")
		}
		return nil, fmt.Errorf("append events: %w", err)
	}

	recordedAt := o.now()
	for _, e := range events {
		observability.RecordEventRecorded(e.Type.Key(), recordedAt)
	}
	o.logger.Info("events recorded", "count", len(events))

	o.refresh(ctx)
	return events, nil
}

// Statistics returns the current summary, from cache when possible.
// Cache failures are logged and fall through to the store.
func (o *Orchestrator) Statistics(ctx context.Context) (*domain.Summary, error) {
	// The generation is read before the store so a summary computed from a
	// snapshot older than a concurrent write is never cached.
	var (
		gen       int64
		cacheable bool
	)
	if o.cache != nil {
		var err error
		if gen, err = o.cache.Generation(ctx); err != nil {
			o.logger.Warn("summary cache generation read failed", "error", err)
		} else {
			cacheable = true
		}

		summary, err := o.cache.Get(ctx)
		switch {
		case err == nil:
			observability.RecordCacheResult("hit")
			return summary, nil
		case errors.Is(err, cache.ErrMiss):
			observability.RecordCacheResult("miss")
		default:
			observability.RecordCacheResult("error")
			o.logger.Warn("summary cache read failed", "error", err)
		}
	}

	summary, err := o.compute(ctx)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := o.cache.Set(ctx, gen, summary); errors.Is(err, cache.ErrStale) {
			o.logger.Debug("summary cache write skipped, invalidated during compute")
		} else if err != nil {
			o.logger.Warn("summary cache write failed", "error", err)
		}
	}
	return summary, nil
}

// StatisticsBetween computes a summary over events whose timestamps fall in
// [start, end]. Windowed summaries bypass the cache.
func (o *Orchestrator) StatisticsBetween(ctx context.Context, start, end time.Time) (*domain.Summary, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: window end %s before start %s", storage.ErrInvalidInput,
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	began := o.now()
	summary, err := metrics.NewComposer(windowSource{store: o.store, start: start, end: end}).Compute(ctx)
	observability.RecordStatsComputed(o.now().Sub(began).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("compute windowed statistics: %w", err)
	}
	return summary, nil
}

// windowSource scopes GetByType to a time range.
type windowSource struct {
	store      storage.EventStore
	start, end time.Time
}

func (w windowSource) GetByType(ctx context.Context, eventType domain.EventType) ([]*domain.Event, error) {
	return w.store.GetByTimeRange(ctx, eventType, w.start, w.end)
}

// Counts returns the number of stored events per type key.
func (o *Orchestrator) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(domain.EventTypes))
	for _, t := range domain.EventTypes {
		n, err := o.store.Count(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("count %s events: %w", t, err)
		}
		counts[t.Key()] = n
	}
	return counts, nil
}

func (o *Orchestrator) compute(ctx context.Context) (*domain.Summary, error) {
	start := o.now()
	summary, err := o.composer.Compute(ctx)
	observability.RecordStatsComputed(o.now().Sub(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("compute statistics: %w", err)
	}
	return summary, nil
}

// refresh drops the cached summary and pushes a fresh one to subscribers.
// The event is already stored, so failures here are only logged.
func (o *Orchestrator) refresh(ctx context.Context) {
	if o.cache != nil {
		if err := o.cache.Invalidate(ctx); err != nil {
			o.logger.Warn("summary cache invalidation failed", "error", err)
		}
	}

	if o.broadcaster == nil {
		return
	}
	summary, err := o.Statistics(ctx)
	if err != nil {
		o.logger.Error("compute summary for broadcast", "error", err)
		return
	}
	o.broadcaster.Broadcast(summary)
}

// Package queue ingests bathroom events from Kafka and publishes them there.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"pawlog/internal/domain"
	"pawlog/internal/logging"
	"pawlog/internal/observability"
	"pawlog/internal/orchestrator"
	"pawlog/internal/storage"
)

// Config holds Kafka connection configuration.
type Config struct {
	Brokers []string
	Topic   string
	Group   string
}

// Message statuses, used as the metrics label.
const (
	StatusRecorded  = "recorded"
	StatusDuplicate = "duplicate"
	StatusInvalid   = "invalid"
	StatusFailed    = "failed"
)

// Recorder stores one event. orchestrator.Orchestrator satisfies it.
type Recorder interface {
	Record(ctx context.Context, req orchestrator.RecordRequest) (*domain.Event, error)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads event messages and records them.
type Consumer struct {
	reader   messageReader
	recorder Recorder
	logger   *slog.Logger
}

// NewConsumer creates a consumer group reader on cfg.Topic.
func NewConsumer(cfg Config, recorder Recorder, logger *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.Group,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // explicit commits
		StartOffset:    kafka.FirstOffset,
	})
	return newConsumer(reader, recorder, logger)
}

func newConsumer(reader messageReader, recorder Recorder, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader:   reader,
		recorder: recorder,
		logger:   logging.Component(logger, "queue"),
	}
}

// Run consumes messages until ctx is cancelled or recording fails transiently.
// Recorded, duplicate and malformed messages are committed. A transient failure
// leaves the message uncommitted so it is redelivered after restart.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		status, err := c.handle(ctx, msg)
		observability.RecordQueueMessage(status)
		if status == StatusFailed {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("record message at offset %d: %w", msg.Offset, err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
		}
	}
}

// handle records one message and reports its status.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) (string, error) {
	var req orchestrator.RecordRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		c.logger.Warn("skipping malformed message", "offset", msg.Offset, "error", err)
		return StatusInvalid, err
	}

	event, err := c.recorder.Record(ctx, req)
	switch {
	case err == nil:
		c.logger.Debug("message recorded", "offset", msg.Offset, "id", event.ID)
		return StatusRecorded, nil
	case errors.Is(err, storage.ErrDuplicateKey):
		c.logger.Info("skipping duplicate event", "offset", msg.Offset)
		return StatusDuplicate, err
	case errors.Is(err, orchestrator.ErrInvalidEvent), errors.Is(err, storage.ErrInvalidInput):
		c.logger.Warn("skipping invalid event", "offset", msg.Offset, "error", err)
		return StatusInvalid, err
	default:
		c.logger.Error("record failed", "offset", msg.Offset, "error", err)
		return StatusFailed, err
	}
}

// Close closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// Producer publishes event submissions to Kafka.
type Producer struct {
	writer messageWriter
	now    func() time.Time
}

// NewProducer creates a producer for cfg.Topic.
func NewProducer(cfg Config) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return newProducer(writer)
}

func newProducer(writer messageWriter) *Producer {
	return &Producer{writer: writer, now: time.Now}
}

// Publish writes reqs in one batch, each keyed by a fresh UUID.
func (p *Producer) Publish(ctx context.Context, reqs ...orchestrator.RecordRequest) error {
	if len(reqs) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, len(reqs))
	for i, req := range reqs {
		data, err := json.Marshal(req)
		if err != nil {
			return fmt.Errorf("marshal request %d: %w", i, err)
		}
		msgs[i] = kafka.Message{
			Key:   []byte(uuid.NewString()),
			Value: data,
			Time:  p.now(),
		}
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write messages: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

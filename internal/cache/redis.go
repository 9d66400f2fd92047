// Package cache stores the latest statistics summary in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"pawlog/internal/domain"
)

const (
	// SummaryKey is the Redis key holding the cached summary.
	SummaryKey = "stats:summary"

	// GenerationKey is bumped on every invalidation.
	GenerationKey = "stats:gen"
)

var (
	// ErrMiss is returned by Get when no summary is cached.
	ErrMiss = errors.New("cache miss")

	// ErrStale is returned by Set when the cache was invalidated after the
	// generation the summary was computed at.
	ErrStale = errors.New("stale summary")
)

// setIfGeneration writes KEYS[1] only while KEYS[2] still equals ARGV[1].
// ARGV[3] is the TTL in milliseconds, 0 for none.
var setIfGeneration = redis.NewScript(`
local gen = redis.call("GET", KEYS[2]) or "0"
if gen ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
else
	redis.call("SET", KEYS[1], ARGV[2])
end
return 1
`)

// Options configures a RedisCache.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // zero keeps entries until invalidated
}

// RedisCache caches the statistics summary as JSON.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a cache client. It does not dial; call Ping to check connectivity.
func NewRedisCache(opts Options) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &RedisCache{client: client, ttl: opts.TTL}
}

// Ping checks the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Get returns the cached summary, or ErrMiss.
func (c *RedisCache) Get(ctx context.Context) (*domain.Summary, error) {
	data, err := c.client.Get(ctx, SummaryKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("get summary: %w", err)
	}

	var summary domain.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	return &summary, nil
}

// Generation returns the current invalidation counter. Read it before
// computing a summary and pass it to Set.
func (c *RedisCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, GenerationKey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("get generation: %w", err)
	}
	return gen, nil
}

// Set stores summary with the configured TTL if no invalidation happened
// since gen was read. Returns ErrStale otherwise.
func (c *RedisCache) Set(ctx context.Context, gen int64, summary *domain.Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	stored, err := setIfGeneration.Run(ctx, c.client,
		[]string{SummaryKey, GenerationKey},
		strconv.FormatInt(gen, 10), data, c.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("set summary: %w", err)
	}
	if stored == 0 {
		return ErrStale
	}
	return nil
}

// Invalidate drops the cached summary and bumps the generation so that
// summaries computed before this call are never stored.
// Invalidating an empty cache is not an error.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, GenerationKey)
		pipe.Del(ctx, SummaryKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate summary: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

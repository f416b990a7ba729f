// Package cache memoizes precomputed rollup reads in Redis. The tables
// only change on rebuild, so entries live until the TTL or the next
// Invalidate.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"runlytics/internal/observability"
	"runlytics/internal/store"
)

const keyPrefix = "runlytics:rollups:"

// Source is the uncached reader of the precomputed tables
type Source interface {
	ListPrecomputedZoneRollups(ctx context.Context, r store.PeriodRange, granularity string) ([]store.ZoneRollup, error)
	ListPrecomputedFitnessTrend(ctx context.Context, r store.PeriodRange, granularity string) ([]store.FitnessTrendPoint, error)
}

// Connect returns a client for addr, or nil when addr is empty
func Connect(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// RollupCache is a read-through cache in front of a Source
type RollupCache struct {
	client *redis.Client
	next   Source
	ttl    time.Duration
	logger *slog.Logger
}

// NewRollupCache wraps next with a Redis cache
func NewRollupCache(client *redis.Client, next Source, ttl time.Duration, logger *slog.Logger) *RollupCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RollupCache{client: client, next: next, ttl: ttl, logger: logger}
}

// ListPrecomputedZoneRollups serves zone rollups from Redis when present
func (c *RollupCache) ListPrecomputedZoneRollups(ctx context.Context, r store.PeriodRange, granularity string) ([]store.ZoneRollup, error) {
	return readThrough(ctx, c, rangeKey("zones", r, granularity), func() ([]store.ZoneRollup, error) {
		return c.next.ListPrecomputedZoneRollups(ctx, r, granularity)
	})
}

// ListPrecomputedFitnessTrend serves trend points from Redis when present
func (c *RollupCache) ListPrecomputedFitnessTrend(ctx context.Context, r store.PeriodRange, granularity string) ([]store.FitnessTrendPoint, error) {
	return readThrough(ctx, c, rangeKey("trend", r, granularity), func() ([]store.FitnessTrendPoint, error) {
		return c.next.ListPrecomputedFitnessTrend(ctx, r, granularity)
	})
}

// Invalidate deletes every cached rollup read
func (c *RollupCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("deleting %d cache keys: %w", len(keys), err)
	}
	c.logger.Debug("invalidated rollup cache", "keys", len(keys))
	return nil
}

// readThrough returns the cached rows for key, loading and storing them on
// a miss. Redis failures fall through to the loader.
func readThrough[T any](ctx context.Context, c *RollupCache, key string, load func() ([]T, error)) ([]T, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var rows []T
		if err := json.Unmarshal(raw, &rows); err == nil {
			observability.RecordCacheLookup("hit")
			return rows, nil
		}
		c.logger.Warn("discarding undecodable cache entry", "key", key)
		observability.RecordCacheLookup("error")
	case errors.Is(err, redis.Nil):
		observability.RecordCacheLookup("miss")
	default:
		c.logger.Warn("cache read failed", "key", key, "err", err)
		observability.RecordCacheLookup("error")
	}

	rows, err := load()
	if err != nil || len(rows) == 0 {
		return rows, err
	}

	payload, err := json.Marshal(rows)
	if err != nil {
		return rows, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "err", err)
	}
	return rows, nil
}

func rangeKey(kind string, r store.PeriodRange, granularity string) string {
	return fmt.Sprintf("%s%s:%s:%s:%s", keyPrefix, kind, granularity, stamp(r.From), stamp(r.To))
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

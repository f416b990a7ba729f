package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"runlytics/internal/analysis"
	"runlytics/internal/events"
	"runlytics/internal/observability"
	"runlytics/internal/store"
)

// Rebuild triggers
const (
	TriggerManual = "manual"
	TriggerTicker = "ticker"
	TriggerEvent  = "event"
	TriggerStale  = "stale"
)

// RollupStore is what the rebuild reads and writes
type RollupStore interface {
	ListActivities(ctx context.Context, f store.ActivityFilter) ([]store.Activity, error)
	ReplaceRollups(ctx context.Context, build store.RollupBuild, zones []store.ZoneRollup, trend []store.FitnessTrendPoint) error
	GetSyncState(ctx context.Context, key string) (string, error)
	SetSyncState(ctx context.Context, key, value string) error
}

// Invalidator drops memoized rollup reads after a rebuild
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// RollupBuilder is the only writer of the precomputed rollup tables
type RollupBuilder struct {
	mu          sync.Mutex
	store       RollupStore
	aggregator  analysis.ZoneAggregator
	invalidator Invalidator
	window      time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// NewRollupBuilder creates a builder that classifies zones against the
// configured max heart rate.
func NewRollupBuilder(st RollupStore, settings Settings, logger *slog.Logger) *RollupBuilder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RollupBuilder{
		store:      st,
		aggregator: analysis.NewZoneAggregator(settings.Fitness.MaxHR),
		window:     settings.FreshnessWindow,
		now:        time.Now,
		logger:     logger,
	}
}

// WithInvalidator sets the cache to clear after each rebuild
func (b *RollupBuilder) WithInvalidator(inv Invalidator) *RollupBuilder {
	b.invalidator = inv
	return b
}

// Rebuild recomputes both granularities from every stored activity and
// swaps them in atomically.
func (b *RollupBuilder) Rebuild(ctx context.Context, trigger string) (*store.RollupBuild, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	started := b.now()
	build, err := b.rebuild(ctx, started)
	observability.RecordRebuild(trigger, b.now().Sub(started), err)
	if err != nil {
		b.logger.Error("rollup rebuild failed", "trigger", trigger, "err", err)
		return nil, err
	}

	b.logger.Info("rebuilt rollups",
		"trigger", trigger,
		"build_id", build.ID,
		"activities", build.ActivityCount,
		"zone_rows", build.ZoneRows,
		"trend_rows", build.TrendRows,
	)
	return build, nil
}

func (b *RollupBuilder) rebuild(ctx context.Context, started time.Time) (*store.RollupBuild, error) {
	activities, err := b.store.ListActivities(ctx, store.ActivityFilter{})
	if err != nil {
		return nil, fmt.Errorf("loading activities: %w", err)
	}

	var zones []store.ZoneRollup
	var trend []store.FitnessTrendPoint
	for _, g := range []analysis.Granularity{analysis.Week, analysis.Month} {
		zones = append(zones, b.aggregator.Aggregate(activities, g)...)
		trend = append(trend, analysis.AggregateFitnessTrend(activities, g)...)
	}

	build := store.RollupBuild{
		ID:            uuid.NewString(),
		StartedAt:     started,
		FinishedAt:    b.now(),
		ActivityCount: len(activities),
		ZoneRows:      len(zones),
		TrendRows:     len(trend),
	}
	if err := b.store.ReplaceRollups(ctx, build, zones, trend); err != nil {
		return nil, fmt.Errorf("replacing rollups: %w", err)
	}

	for _, key := range []string{store.KeyRollupsStale, store.KeyRollupsPending} {
		if err := b.store.SetSyncState(ctx, key, ""); err != nil {
			return nil, fmt.Errorf("clearing %s: %w", key, err)
		}
	}

	if b.invalidator != nil {
		if err := b.invalidator.Invalidate(ctx); err != nil {
			b.logger.Warn("cache invalidation failed", "err", err)
		}
	}
	return &build, nil
}

// RebuildIfStale rebuilds when the precomputed rows are missing activities
// the live path no longer covers: a backfilled activity was stored, or a
// recent activity stored since the last build has aged out of the
// freshness window. It returns nil when nothing was done.
func (b *RollupBuilder) RebuildIfStale(ctx context.Context) (*store.RollupBuild, error) {
	stale, err := b.store.GetSyncState(ctx, store.KeyRollupsStale)
	if err != nil {
		return nil, fmt.Errorf("reading stale flag: %w", err)
	}
	if stale != "" {
		return b.Rebuild(ctx, TriggerStale)
	}

	pending, err := b.store.GetSyncState(ctx, store.KeyRollupsPending)
	if err != nil {
		return nil, fmt.Errorf("reading pending rollups: %w", err)
	}
	if pending == "" {
		return nil, nil
	}
	earliest, err := time.Parse(time.RFC3339, pending)
	if err == nil && !earliest.Before(b.now().Add(-b.window)) {
		return nil, nil
	}
	return b.Rebuild(ctx, TriggerStale)
}

// Run rebuilds every interval until ctx is done. Activities age out of the
// live window as time passes, so the ticker rebuilds unconditionally.
func (b *RollupBuilder) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// Failures are logged and retried on the next tick.
			_, _ = b.Rebuild(ctx, TriggerTicker)
		}
	}
}

// HandleActivityIngested rebuilds when a backfilled activity arrives.
// Recent activities are served live and need no rebuild.
func (b *RollupBuilder) HandleActivityIngested(ctx context.Context, e events.ActivityIngested) error {
	if !e.Backfill {
		return nil
	}
	_, err := b.Rebuild(ctx, TriggerEvent)
	return err
}

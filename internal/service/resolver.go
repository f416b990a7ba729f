package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"runlytics/internal/analysis"
	"runlytics/internal/observability"
	"runlytics/internal/store"
)

// Route names the source a period query was answered from
type Route string

const (
	RouteCache  Route = "cache"
	RouteLive   Route = "live"
	RouteHybrid Route = "hybrid"
)

// DateRange is an inclusive span of activity start times
type DateRange struct {
	Start time.Time
	End   time.Time
}

// CachedFunc reads precomputed rows whose period starts inside r
type CachedFunc[T any] func(ctx context.Context, r store.PeriodRange, g analysis.Granularity) ([]T, error)

// LiveFunc aggregates rows from the activities matching f
type LiveFunc[T any] func(ctx context.Context, f store.ActivityFilter, g analysis.Granularity) ([]T, error)

// HybridResolver answers period queries from the precomputed tables for
// history and from live aggregation for recent activity. Anything that
// starts before now minus Window is considered settled.
type HybridResolver[T any] struct {
	metric string
	window time.Duration
	now    func() time.Time
	cached CachedFunc[T]
	live   LiveFunc[T]
	less   func(a, b T) bool
	logger *slog.Logger
}

// NewHybridResolver creates a resolver for one metric. less orders the
// merged output.
func NewHybridResolver[T any](metric string, window time.Duration, cached CachedFunc[T], live LiveFunc[T], less func(a, b T) bool) *HybridResolver[T] {
	return &HybridResolver[T]{
		metric: metric,
		window: window,
		now:    time.Now,
		cached: cached,
		live:   live,
		less:   less,
		logger: slog.New(slog.DiscardHandler),
	}
}

// WithClock replaces the time source
func (h *HybridResolver[T]) WithClock(now func() time.Time) *HybridResolver[T] {
	h.now = now
	return h
}

// WithLogger sets the logger used for fallback warnings
func (h *HybridResolver[T]) WithLogger(l *slog.Logger) *HybridResolver[T] {
	h.logger = l
	return h
}

// Plan decides which source answers r without reading anything
func (h *HybridResolver[T]) Plan(r DateRange) (Route, time.Time) {
	threshold := h.now().Add(-h.window)
	switch {
	case r.End.Before(threshold):
		return RouteCache, threshold
	case !r.Start.Before(threshold):
		return RouteLive, threshold
	default:
		return RouteHybrid, threshold
	}
}

// Resolve returns the rows for r. A failed or empty precomputed read
// degrades to no rows for that part; a failed live read is returned.
//
// In the hybrid case the period containing the threshold can appear twice.
// The precomputed row covers every activity in that period as of the last
// rebuild, and the live row covers the activities after the threshold, so
// those are counted in both. Rows are concatenated, not merged.
func (h *HybridResolver[T]) Resolve(ctx context.Context, r DateRange, g analysis.Granularity) ([]T, Route, error) {
	route, threshold := h.Plan(r)
	observability.RecordRoute(h.metric, string(route))

	switch route {
	case RouteCache:
		rows := h.readCached(ctx, store.PeriodRange{
			From: analysis.PeriodStart(r.Start, g),
			To:   analysis.PeriodEnd(r.End, g),
		}, g)
		return rows, route, nil

	case RouteLive:
		rows, err := h.live(ctx, store.ActivityFilter{From: r.Start, To: r.End}, g)
		if err != nil {
			return nil, route, err
		}
		return rows, route, nil
	}

	// Periods starting before the threshold, bounded at a period edge so
	// the range stays the same between requests.
	rows := h.readCached(ctx, store.PeriodRange{
		From: analysis.PeriodStart(r.Start, g),
		To:   analysis.PeriodEnd(threshold.Add(-time.Nanosecond), g),
	}, g)

	fresh, err := h.live(ctx, store.ActivityFilter{From: threshold, To: r.End}, g)
	if err != nil {
		return nil, route, err
	}

	rows = append(rows, fresh...)
	sort.SliceStable(rows, func(i, j int) bool { return h.less(rows[i], rows[j]) })
	return rows, route, nil
}

func (h *HybridResolver[T]) readCached(ctx context.Context, r store.PeriodRange, g analysis.Granularity) []T {
	rows, err := h.cached(ctx, r, g)
	if err != nil {
		h.logger.Warn("precomputed read failed",
			"metric", h.metric, "granularity", string(g), "from", r.From, "to", r.To, "err", err)
		observability.RecordFallback(h.metric, "error")
		return nil
	}
	if len(rows) == 0 {
		h.logger.Warn("precomputed read returned no rows",
			"metric", h.metric, "granularity", string(g), "from", r.From, "to", r.To)
		observability.RecordFallback(h.metric, "empty")
		return nil
	}
	return rows
}

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runlytics/internal/analysis"
	"runlytics/internal/service"
	"runlytics/internal/store"
)

type countingSource struct {
	zoneCalls  int
	trendCalls int
	zones      []store.ZoneRollup
	trend      []store.FitnessTrendPoint
	err        error
}

func (s *countingSource) ListPrecomputedZoneRollups(context.Context, store.PeriodRange, string) ([]store.ZoneRollup, error) {
	s.zoneCalls++
	return s.zones, s.err
}

func (s *countingSource) ListPrecomputedFitnessTrend(context.Context, store.PeriodRange, string) ([]store.FitnessTrendPoint, error) {
	s.trendCalls++
	return s.trend, s.err
}

func newTestCache(t *testing.T, src Source) (*RollupCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRollupCache(client, src, time.Hour, nil), mr
}

var janRange = store.PeriodRange{
	From: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	To:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
}

func TestRollupCache_ReadThrough(t *testing.T) {
	src := &countingSource{zones: []store.ZoneRollup{
		{Period: "2026-01", Granularity: "month", Zone: 2, ActivityCount: 3, AvgPace: 301.5,
			PeriodStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}}
	c, mr := newTestCache(t, src)
	ctx := context.Background()

	first, err := c.ListPrecomputedZoneRollups(ctx, janRange, "month")
	require.NoError(t, err)
	second, err := c.ListPrecomputedZoneRollups(ctx, janRange, "month")
	require.NoError(t, err)

	assert.Equal(t, 1, src.zoneCalls)
	assert.Equal(t, first, second)
	assert.Len(t, mr.Keys(), 1)

	ttl := mr.TTL(mr.Keys()[0])
	assert.Equal(t, time.Hour, ttl)

	// A different granularity is a different key.
	_, err = c.ListPrecomputedZoneRollups(ctx, janRange, "week")
	require.NoError(t, err)
	assert.Equal(t, 2, src.zoneCalls)
}

func TestRollupCache_EmptyAndErrorsAreNotCached(t *testing.T) {
	src := &countingSource{}
	c, mr := newTestCache(t, src)
	ctx := context.Background()

	rows, err := c.ListPrecomputedFitnessTrend(ctx, janRange, "week")
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, mr.Keys())

	src.err = errors.New("no such table: fitness_trend")
	_, err = c.ListPrecomputedFitnessTrend(ctx, janRange, "week")
	require.Error(t, err)
	assert.Empty(t, mr.Keys())
}

func TestRollupCache_RedisDownFallsThrough(t *testing.T) {
	src := &countingSource{trend: []store.FitnessTrendPoint{{Period: "2026-W02", AvgFitness: 44}}}
	c, mr := newTestCache(t, src)
	mr.Close()

	rows, err := c.ListPrecomputedFitnessTrend(context.Background(), janRange, "week")
	require.NoError(t, err)
	assert.Equal(t, src.trend, rows)
}

func TestRollupCache_Invalidate(t *testing.T) {
	src := &countingSource{
		zones: []store.ZoneRollup{{Period: "2026-01", Zone: 1}},
		trend: []store.FitnessTrendPoint{{Period: "2026-01"}},
	}
	c, mr := newTestCache(t, src)
	ctx := context.Background()
	require.NoError(t, mr.Set("unrelated", "keep"))

	_, err := c.ListPrecomputedZoneRollups(ctx, janRange, "month")
	require.NoError(t, err)
	_, err = c.ListPrecomputedFitnessTrend(ctx, janRange, "month")
	require.NoError(t, err)
	assert.Len(t, mr.Keys(), 3)

	require.NoError(t, c.Invalidate(ctx))
	assert.Equal(t, []string{"unrelated"}, mr.Keys())

	_, err = c.ListPrecomputedZoneRollups(ctx, janRange, "month")
	require.NoError(t, err)
	assert.Equal(t, 2, src.zoneCalls)
}

func TestConnect(t *testing.T) {
	assert.Nil(t, Connect("", "", 0))
	client := Connect("localhost:6379", "", 0)
	require.NotNil(t, client)
	client.Close()
}

func TestRollupCache_HybridReadsShareKey(t *testing.T) {
	src := &countingSource{zones: []store.ZoneRollup{{Period: "2026-W05", Granularity: "week", Zone: 2, ActivityCount: 1}}}
	c, mr := newTestCache(t, src)

	now := time.Date(2026, 3, 12, 12, 0, 0, 0, time.UTC)
	r := service.DateRange{Start: now.AddDate(0, 0, -90), End: now}
	cached := func(ctx context.Context, pr store.PeriodRange, g analysis.Granularity) ([]store.ZoneRollup, error) {
		return c.ListPrecomputedZoneRollups(ctx, pr, string(g))
	}
	live := func(context.Context, store.ActivityFilter, analysis.Granularity) ([]store.ZoneRollup, error) {
		return nil, nil
	}

	for i := 0; i < 5; i++ {
		clock := now.Add(time.Duration(i) * time.Second)
		h := service.NewHybridResolver("zones", 7*24*time.Hour, cached, live,
			func(a, b store.ZoneRollup) bool { return a.Period < b.Period },
		).WithClock(func() time.Time { return clock })

		rows, route, err := h.Resolve(context.Background(), r, analysis.Week)
		require.NoError(t, err)
		require.Equal(t, service.RouteHybrid, route)
		require.Len(t, rows, 1)
	}

	assert.Equal(t, 1, src.zoneCalls)
	assert.Len(t, mr.Keys(), 1)
}

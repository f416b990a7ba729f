package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runlytics/internal/analysis"
	"runlytics/internal/store"
)

type row struct {
	Period string
	From   string
}

type recorder struct {
	cachedCalls []store.PeriodRange
	liveCalls   []store.ActivityFilter
	cachedRows  []row
	cachedErr   error
	liveRows    []row
	liveErr     error
}

func (r *recorder) resolver(now time.Time) *HybridResolver[row] {
	return NewHybridResolver("test", 7*24*time.Hour,
		func(_ context.Context, pr store.PeriodRange, _ analysis.Granularity) ([]row, error) {
			r.cachedCalls = append(r.cachedCalls, pr)
			return r.cachedRows, r.cachedErr
		},
		func(_ context.Context, f store.ActivityFilter, _ analysis.Granularity) ([]row, error) {
			r.liveCalls = append(r.liveCalls, f)
			return r.liveRows, r.liveErr
		},
		func(a, b row) bool { return a.Period < b.Period },
	).WithClock(func() time.Time { return now })
}

var resolverNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestHybridResolver_CacheOnly(t *testing.T) {
	rec := &recorder{cachedRows: []row{{"2026-W02", "cache"}}}
	r := DateRange{Start: day(2026, 1, 5), End: day(2026, 2, 10)}

	rows, route, err := rec.resolver(resolverNow).Resolve(context.Background(), r, analysis.Week)
	require.NoError(t, err)
	assert.Equal(t, RouteCache, route)
	assert.Empty(t, rec.liveCalls)
	require.Len(t, rec.cachedCalls, 1)
	assert.Equal(t, store.PeriodRange{
		From: analysis.PeriodStart(r.Start, analysis.Week),
		To:   analysis.PeriodEnd(r.End, analysis.Week),
	}, rec.cachedCalls[0])
	assert.Equal(t, rec.cachedRows, rows)
}

func TestHybridResolver_LiveOnly(t *testing.T) {
	rec := &recorder{liveRows: []row{{"2026-W10", "live"}}}
	r := DateRange{Start: day(2026, 2, 25), End: resolverNow}

	rows, route, err := rec.resolver(resolverNow).Resolve(context.Background(), r, analysis.Week)
	require.NoError(t, err)
	assert.Equal(t, RouteLive, route)
	assert.Empty(t, rec.cachedCalls)
	require.Len(t, rec.liveCalls, 1)
	assert.Equal(t, store.ActivityFilter{From: r.Start, To: r.End}, rec.liveCalls[0])
	assert.Equal(t, rec.liveRows, rows)
}

func TestHybridResolver_HybridConcatenatesAndSorts(t *testing.T) {
	rec := &recorder{
		cachedRows: []row{{"2026-W08", "cache"}, {"2026-W06", "cache"}},
		liveRows:   []row{{"2026-W10", "live"}, {"2026-W09", "live"}, {"2026-W08", "live"}},
	}
	r := DateRange{Start: day(2026, 2, 1), End: resolverNow}
	threshold := resolverNow.Add(-7 * 24 * time.Hour)

	rows, route, err := rec.resolver(resolverNow).Resolve(context.Background(), r, analysis.Week)
	require.NoError(t, err)
	assert.Equal(t, RouteHybrid, route)

	require.Len(t, rec.cachedCalls, 1)
	assert.Equal(t, analysis.PeriodEnd(threshold, analysis.Week), rec.cachedCalls[0].To)
	require.Len(t, rec.liveCalls, 1)
	assert.Equal(t, threshold, rec.liveCalls[0].From)
	assert.Equal(t, r.End, rec.liveCalls[0].To)

	// The boundary week is reported by both sources.
	want := []row{
		{"2026-W06", "cache"},
		{"2026-W08", "cache"},
		{"2026-W08", "live"},
		{"2026-W09", "live"},
		{"2026-W10", "live"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestHybridResolver_CacheRangeIsStableAcrossRequests(t *testing.T) {
	rec := &recorder{}
	r := DateRange{Start: day(2026, 1, 1), End: resolverNow}

	for i := 0; i < 5; i++ {
		now := resolverNow.Add(time.Duration(i) * time.Second)
		_, route, err := rec.resolver(now).Resolve(context.Background(), r, analysis.Week)
		require.NoError(t, err)
		require.Equal(t, RouteHybrid, route)
	}

	require.Len(t, rec.cachedCalls, 5)
	for _, got := range rec.cachedCalls[1:] {
		assert.Equal(t, rec.cachedCalls[0], got)
	}
}

func TestHybridResolver_ThresholdOnPeriodEdge(t *testing.T) {
	// Threshold at Sunday midnight: the week starting then is not settled.
	now := day(2026, 3, 8).Add(7 * 24 * time.Hour)
	rec := &recorder{}
	_, _, err := rec.resolver(now).Resolve(context.Background(), DateRange{Start: day(2026, 2, 1), End: now}, analysis.Week)
	require.NoError(t, err)

	require.Len(t, rec.cachedCalls, 1)
	assert.Equal(t, day(2026, 3, 8), rec.cachedCalls[0].To)
}

func TestHybridResolver_CacheFailureDegrades(t *testing.T) {
	rec := &recorder{
		cachedErr: errors.New("no such table"),
		liveRows:  []row{{"2026-W09", "live"}},
	}
	r := DateRange{Start: day(2026, 2, 1), End: resolverNow}

	rows, route, err := rec.resolver(resolverNow).Resolve(context.Background(), r, analysis.Week)
	require.NoError(t, err)
	assert.Equal(t, RouteHybrid, route)
	assert.Equal(t, rec.liveRows, rows)

	rows, route, err = rec.resolver(resolverNow).Resolve(context.Background(),
		DateRange{Start: day(2026, 1, 1), End: day(2026, 1, 31)}, analysis.Month)
	require.NoError(t, err)
	assert.Equal(t, RouteCache, route)
	assert.Empty(t, rows)
}

func TestHybridResolver_LiveFailureIsReturned(t *testing.T) {
	rec := &recorder{liveErr: errors.New("disk I/O error")}
	_, _, err := rec.resolver(resolverNow).Resolve(context.Background(),
		DateRange{Start: day(2026, 2, 27), End: resolverNow}, analysis.Week)
	require.Error(t, err)
}

func TestHybridResolver_Plan(t *testing.T) {
	h := (&recorder{}).resolver(resolverNow)
	threshold := resolverNow.Add(-7 * 24 * time.Hour)

	tests := []struct {
		name string
		r    DateRange
		want Route
	}{
		{"ends just before threshold", DateRange{day(2026, 1, 1), threshold.Add(-time.Second)}, RouteCache},
		{"starts at threshold", DateRange{threshold, resolverNow}, RouteLive},
		{"ends at threshold", DateRange{day(2026, 1, 1), threshold}, RouteHybrid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := h.Plan(tt.r)
			assert.Equal(t, tt.want, got)
		})
	}
}

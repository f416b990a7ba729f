package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runlytics/internal/store"
	"runlytics/internal/strava"
)

type fakeProvider struct {
	pages  [][]strava.Activity
	laps   map[int64][]strava.Lap
	lapErr map[int64]error
	afters []time.Time
}

func (f *fakeProvider) GetActivities(_ context.Context, after time.Time, page, _ int) ([]strava.Activity, error) {
	f.afters = append(f.afters, after)
	if page > len(f.pages) {
		return nil, nil
	}
	return f.pages[page-1], nil
}

func (f *fakeProvider) GetActivityLaps(_ context.Context, id int64) ([]strava.Lap, error) {
	if err := f.lapErr[id]; err != nil {
		return nil, err
	}
	return f.laps[id], nil
}

func (f *fakeProvider) RateLimitStatus() (int, int) { return 100, 1000 }

func stravaRun(id int64, start time.Time) strava.Activity {
	return strava.Activity{
		ID:               id,
		Name:             "Morning Run",
		Type:             "Run",
		SportType:        "Run",
		StartDate:        start,
		StartDateLocal:   start,
		Distance:         10000,
		MovingTime:       3000,
		ElapsedTime:      3100,
		AverageHeartrate: 150,
		AverageCadence:   85,
		HasHeartrate:     true,
	}
}

func TestSyncAll(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	older := now.AddDate(0, 0, -30)
	newer := now.Add(-2 * time.Hour)
	ride := strava.Activity{ID: 3, Type: "Ride", SportType: "Ride", StartDate: newer}

	provider := &fakeProvider{
		pages: [][]strava.Activity{{stravaRun(1, older), ride, stravaRun(2, newer)}},
		laps: map[int64][]strava.Lap{
			1: {
				{LapIndex: 2, Distance: 5000, MovingTime: 1450, AverageSpeed: 5000.0 / 1450, AverageCadence: 86},
				{LapIndex: 1, Distance: 5000, MovingTime: 1550, AverageSpeed: 5000.0 / 1550},
			},
		},
		lapErr: map[int64]error{2: errors.New("429 too many requests")},
	}

	ingest := NewIngestService(db, testSettings(), nil, nil)
	svc := NewSyncService(provider, db, ingest, nil)

	progress := make(chan SyncProgress, 64)
	result, err := svc.SyncAll(ctx, progress)
	require.NoError(t, err)

	assert.Equal(t, 3, result.ActivitiesFetched)
	assert.Equal(t, 2, result.ActivitiesStored)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Backfilled)
	assert.Equal(t, 2, result.LapsFetched)
	require.Len(t, result.Errors, 1, "lap failure is collected, activity still stored")

	var phases []string
	for p := range progress {
		phases = append(phases, p.Phase)
	}
	assert.Contains(t, phases, "activities")
	assert.Contains(t, phases, "laps")

	activities, err := db.ListActivities(ctx, store.ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, activities, 2)
	first := activities[0]
	assert.Equal(t, store.SourceStrava, first.Source)
	assert.Equal(t, "1", first.ExternalID)
	require.NotNil(t, first.AverageCadence)
	assert.Equal(t, 170.0, *first.AverageCadence, "single-leg cadence is doubled")

	laps, err := db.ListLaps(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, laps, 2)
	assert.Equal(t, 1550.0, laps[0].MovingTime, "laps ordered by Strava index")
	require.NotNil(t, laps[0].AveragePace)
	assert.InDelta(t, 310, *laps[0].AveragePace, 1e-6)

	watermark, err := db.GetSyncState(ctx, store.KeyLastStravaSync)
	require.NoError(t, err)
	assert.Equal(t, newer.Format(time.RFC3339), watermark)

	// A second sync starts from the watermark.
	provider.pages = nil
	_, err = svc.SyncAll(ctx, nil)
	require.NoError(t, err)
	assert.True(t, provider.afters[len(provider.afters)-1].Equal(newer))
}

func TestSyncAll_ProviderError(t *testing.T) {
	db := openTestDB(t)
	svc := NewSyncService(&failingProvider{}, db, NewIngestService(db, testSettings(), nil, nil), nil)

	_, err := svc.SyncAll(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching page 1")
}

type failingProvider struct{ fakeProvider }

func (f *failingProvider) GetActivities(context.Context, time.Time, int, int) ([]strava.Activity, error) {
	return nil, errors.New("unauthorized")
}

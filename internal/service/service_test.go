package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"runlytics/internal/analysis"
	"runlytics/internal/store"
)

// openTestDB opens an in-memory store with migrations applied
func openTestDB(t *testing.T) *store.DB {
	t.Helper()

	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testSettings() Settings {
	return Settings{
		Fitness:         analysis.DefaultFitnessConfig(),
		FreshnessWindow: 7 * 24 * time.Hour,
		PaceZoneMean:    analysis.MeanPlain,
	}
}

func fp(v float64) *float64 { return &v }

func run(externalID string, start time.Time, meters float64, seconds int, hr float64) *store.Activity {
	return &store.Activity{
		Source:           store.SourceFIT,
		ExternalID:       externalID,
		Name:             "Run " + externalID,
		Type:             "Run",
		StartDate:        start,
		StartDateLocal:   start,
		Distance:         meters,
		MovingTime:       seconds,
		ElapsedTime:      seconds,
		AverageHeartrate: fp(hr),
	}
}

func evenLaps(n int, meters, seconds float64) []store.Lap {
	laps := make([]store.Lap, n)
	for i := range laps {
		laps[i] = store.Lap{Distance: meters, MovingTime: seconds, AverageHeartrate: fp(160)}
	}
	return laps
}

// ingestAll stores activities through an IngestService clocked at now
func ingestAll(t *testing.T, db *store.DB, now time.Time, items ...ingestItem) []int64 {
	t.Helper()

	svc := NewIngestService(db, testSettings(), nil, nil)
	svc.now = func() time.Time { return now }

	ids := make([]int64, len(items))
	for i, item := range items {
		res, err := svc.Ingest(context.Background(), item.activity, item.laps)
		require.NoError(t, err)
		ids[i] = res.ActivityID
	}
	return ids
}

type ingestItem struct {
	activity *store.Activity
	laps     []store.Lap
}

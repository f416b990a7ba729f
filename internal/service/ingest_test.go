package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runlytics/internal/events"
	"runlytics/internal/store"
)

type memPublisher struct {
	events []events.ActivityIngested
	err    error
}

func (p *memPublisher) PublishActivityIngested(_ context.Context, e events.ActivityIngested) error {
	p.events = append(p.events, e)
	return p.err
}

func TestIngest_DerivesFields(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewIngestService(db, testSettings(), nil, nil)
	svc.now = func() time.Time { return now }

	a := run("x", now.Add(-24*time.Hour), 10000, 3000, 150)
	a.AverageCadence = fp(170)
	laps := []store.Lap{
		{LapIndex: 7, Distance: 5000, MovingTime: 1500, AverageCadence: fp(170)},
		{LapIndex: 9, Distance: 5000, MovingTime: 1500},
	}

	res, err := svc.Ingest(context.Background(), a, laps)
	require.NoError(t, err)
	assert.False(t, res.Backfill)
	require.NotNil(t, res.Fitness)

	got, err := db.GetActivity(context.Background(), res.ActivityID)
	require.NoError(t, err)
	require.NotNil(t, got.AveragePace)
	assert.InDelta(t, 300, *got.AveragePace, 1e-9)
	require.NotNil(t, got.AverageStride)
	// 10000 m over 170 spm for 50 min
	assert.InDelta(t, 10000.0/(170*50), *got.AverageStride, 1e-9)
	require.NotNil(t, got.TrainingLoad)
	assert.Equal(t, 67.0, *got.TrainingLoad)

	stored, err := db.ListLaps(context.Background(), res.ActivityID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 0, stored[0].LapIndex)
	assert.Equal(t, 1, stored[1].LapIndex)
	require.NotNil(t, stored[0].AverageStride)
	assert.Nil(t, stored[1].AverageStride, "no cadence, no stride")

	stale, err := db.GetSyncState(context.Background(), store.KeyRollupsStale)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestIngest_BackfillMarksStaleAndPublishes(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pub := &memPublisher{}
	svc := NewIngestService(db, testSettings(), pub, nil)
	svc.now = func() time.Time { return now }

	res, err := svc.Ingest(context.Background(), run("old", now.AddDate(0, -1, 0), 5000, 1500, 150), nil)
	require.NoError(t, err)
	assert.True(t, res.Backfill)

	stale, err := db.GetSyncState(context.Background(), store.KeyRollupsStale)
	require.NoError(t, err)
	assert.NotEmpty(t, stale)

	require.Len(t, pub.events, 1)
	assert.Equal(t, res.ActivityID, pub.events[0].ActivityID)
	assert.True(t, pub.events[0].Backfill)
	assert.Equal(t, "old", pub.events[0].ExternalID)
}

func TestIngest_RecordsEarliestPendingStart(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	ingestAll(t, db, now,
		ingestItem{activity: run("tue", now.AddDate(0, 0, -5), 5000, 1500, 150)},
		ingestItem{activity: run("thu", now.AddDate(0, 0, -3), 5000, 1500, 150)},
	)
	pending, err := db.GetSyncState(ctx, store.KeyRollupsPending)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, -5).Format(time.RFC3339), pending)

	ingestAll(t, db, now, ingestItem{activity: run("sun", now.AddDate(0, 0, -6), 5000, 1500, 150)})
	pending, err = db.GetSyncState(ctx, store.KeyRollupsPending)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, -6).Format(time.RFC3339), pending)
}

func TestIngest_PublishFailureKeepsActivity(t *testing.T) {
	db := openTestDB(t)
	svc := NewIngestService(db, testSettings(), &memPublisher{err: errors.New("broker down")}, nil)

	res, err := svc.Ingest(context.Background(), run("p", time.Now().Add(-time.Hour), 5000, 1500, 150), nil)
	require.NoError(t, err)

	count, err := db.CountActivities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NotZero(t, res.ActivityID)
}

func TestIngest_ReingestUpdatesInPlace(t *testing.T) {
	db := openTestDB(t)
	svc := NewIngestService(db, testSettings(), nil, nil)
	ctx := context.Background()
	start := time.Now().Add(-2 * time.Hour)

	first, err := svc.Ingest(ctx, run("same", start, 5000, 1500, 150), evenLaps(5, 1000, 300))
	require.NoError(t, err)
	second, err := svc.Ingest(ctx, run("same", start, 5000, 1500, 150), evenLaps(2, 2500, 750))
	require.NoError(t, err)
	assert.Equal(t, first.ActivityID, second.ActivityID)

	laps, err := db.ListLaps(ctx, second.ActivityID)
	require.NoError(t, err)
	assert.Len(t, laps, 2)
}

func TestIngest_UnscorableActivity(t *testing.T) {
	db := openTestDB(t)
	svc := NewIngestService(db, testSettings(), nil, nil)

	a := run("treadmill", time.Now().Add(-time.Hour), 0, 1800, 140)
	res, err := svc.Ingest(context.Background(), a, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Fitness)

	got, err := db.GetActivity(context.Background(), res.ActivityID)
	require.NoError(t, err)
	assert.Nil(t, got.FitnessScore)
	assert.Nil(t, got.AveragePace)
	require.NotNil(t, got.TrainingLoad)
}

func TestImportFITFiles_CollectsErrors(t *testing.T) {
	db := openTestDB(t)
	svc := NewIngestService(db, testSettings(), nil, nil)

	dir := t.TempDir()
	bad := filepath.Join(dir, "corrupt.fit")
	require.NoError(t, os.WriteFile(bad, []byte("not fit"), 0o644))

	result := svc.ImportFITFiles(context.Background(), []string{bad, filepath.Join(dir, "missing.fit")})
	assert.Equal(t, 0, result.Stored)
	assert.Len(t, result.Errors, 2)
}

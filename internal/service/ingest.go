package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"runlytics/internal/analysis"
	"runlytics/internal/events"
	"runlytics/internal/observability"
	"runlytics/internal/store"
)

// ActivityWriter is the write side of the store used by ingest
type ActivityWriter interface {
	SaveActivity(ctx context.Context, a *store.Activity, laps []store.Lap) (int64, error)
	GetSyncState(ctx context.Context, key string) (string, error)
	SetSyncState(ctx context.Context, key, value string) error
}

// EventPublisher announces ingested activities
type EventPublisher interface {
	PublishActivityIngested(ctx context.Context, e events.ActivityIngested) error
}

// IngestResult describes one stored activity
type IngestResult struct {
	ActivityID int64
	Backfill   bool
	Fitness    *float64
}

// IngestService derives the per-activity fields and stores the activity
// with its laps. Fitness and training load are computed once here and
// never recomputed by queries.
type IngestService struct {
	store     ActivityWriter
	estimator analysis.FitnessEstimator
	window    time.Duration
	publisher EventPublisher
	now       func() time.Time
	logger    *slog.Logger
}

// NewIngestService creates an ingest service. publisher may be nil when
// event publishing is disabled.
func NewIngestService(w ActivityWriter, settings Settings, publisher EventPublisher, logger *slog.Logger) *IngestService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &IngestService{
		store:     w,
		estimator: analysis.NewFitnessEstimator(settings.Fitness),
		window:    settings.FreshnessWindow,
		publisher: publisher,
		now:       time.Now,
		logger:    logger,
	}
}

// Ingest stores a and its laps. The rebuild is the only writer of the
// precomputed tables, so every stored activity is recorded for it: older
// than the freshness window marks the rollups stale now, recent ones are
// pending until they age out of the window.
func (s *IngestService) Ingest(ctx context.Context, a *store.Activity, laps []store.Lap) (*IngestResult, error) {
	deriveActivityFields(a)
	a.FitnessScore = s.estimator.EstimateFitness(a.Distance, float64(a.MovingTime), a.AverageHeartrate)
	if load := s.estimator.EstimateTrainingLoad(float64(a.MovingTime), a.AverageHeartrate); load > 0 {
		a.TrainingLoad = &load
	} else {
		a.TrainingLoad = nil
	}

	for i := range laps {
		deriveLapFields(&laps[i])
	}
	id, err := s.store.SaveActivity(ctx, a, laps)
	if err != nil {
		observability.RecordIngest(a.Source, "error", a.StartDate)
		return nil, err
	}

	backfill := a.StartDate.Before(s.now().Add(-s.window))
	if err := s.markRollups(ctx, a.StartDate, backfill); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		err := s.publisher.PublishActivityIngested(ctx, events.ActivityIngested{
			ActivityID: id,
			Source:     a.Source,
			ExternalID: a.ExternalID,
			StartDate:  a.StartDate,
			Backfill:   backfill,
		})
		if err != nil {
			// The activity is stored; the periodic rebuild still picks it up.
			s.logger.Warn("publishing ingest event failed", "activity_id", id, "err", err)
		}
	}

	observability.RecordIngest(a.Source, "ok", a.StartDate)
	s.logger.Info("ingested activity",
		"activity_id", id,
		"source", a.Source,
		"start", a.StartDate.Format(time.RFC3339),
		"laps", len(laps),
		"backfill", backfill,
	)

	return &IngestResult{ActivityID: id, Backfill: backfill, Fitness: a.FitnessScore}, nil
}

func (s *IngestService) markRollups(ctx context.Context, start time.Time, backfill bool) error {
	if backfill {
		if err := s.store.SetSyncState(ctx, store.KeyRollupsStale, strconv.FormatInt(s.now().Unix(), 10)); err != nil {
			return fmt.Errorf("marking rollups stale: %w", err)
		}
		return nil
	}

	pending, err := s.store.GetSyncState(ctx, store.KeyRollupsPending)
	if err != nil {
		return fmt.Errorf("reading pending rollups: %w", err)
	}
	if earliest, err := time.Parse(time.RFC3339, pending); err == nil && !start.Before(earliest) {
		return nil
	}
	if err := s.store.SetSyncState(ctx, store.KeyRollupsPending, start.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("marking rollups pending: %w", err)
	}
	return nil
}

// deriveActivityFields fills pace and stride when the source left them out.
// Cadence is in steps per minute.
func deriveActivityFields(a *store.Activity) {
	if a.AveragePace == nil {
		if pace := analysis.PacePerKm(a.Distance, float64(a.MovingTime)); pace > 0 {
			a.AveragePace = &pace
		}
	}
	if a.AverageStride == nil {
		a.AverageStride = strideLength(a.Distance, float64(a.MovingTime), a.AverageCadence)
	}
}

func deriveLapFields(l *store.Lap) {
	if l.AveragePace == nil {
		if pace := analysis.PacePerKm(l.Distance, l.MovingTime); pace > 0 {
			l.AveragePace = &pace
		}
	}
	if l.AverageStride == nil {
		l.AverageStride = strideLength(l.Distance, l.MovingTime, l.AverageCadence)
	}
}

// strideLength returns meters per step, or nil without a usable cadence
func strideLength(distance, seconds float64, cadence *float64) *float64 {
	if cadence == nil || *cadence <= 0 || distance <= 0 || seconds <= 0 {
		return nil
	}
	stride := distance / (*cadence * seconds / SecondsPerMinute)
	return &stride
}

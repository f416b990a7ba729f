package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"runlytics/internal/store"
	"runlytics/internal/strava"
)

// ActivityProvider is the remote source of activity summaries and laps
type ActivityProvider interface {
	GetActivities(ctx context.Context, after time.Time, page, perPage int) ([]strava.Activity, error)
	GetActivityLaps(ctx context.Context, activityID int64) ([]strava.Lap, error)
	RateLimitStatus() (shortRemaining, dailyRemaining int)
}

// SyncStateStore persists the incremental sync watermark
type SyncStateStore interface {
	GetSyncState(ctx context.Context, key string) (string, error)
	SetSyncState(ctx context.Context, key, value string) error
}

// SyncService orchestrates syncing runs from Strava into the store
type SyncService struct {
	client ActivityProvider
	state  SyncStateStore
	ingest *IngestService
	logger *slog.Logger
}

// NewSyncService creates a new sync service that stores runs through ingest
func NewSyncService(client ActivityProvider, state SyncStateStore, ingest *IngestService, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SyncService{
		client: client,
		state:  state,
		ingest: ingest,
		logger: logger,
	}
}

// SyncProgress reports progress during sync
type SyncProgress struct {
	Phase           string // "activities", "laps"
	Total           int
	Completed       int
	CurrentActivity string
	Error           error
}

// SyncResult contains the results of a sync operation
type SyncResult struct {
	ActivitiesFetched int
	ActivitiesStored  int
	LapsFetched       int
	Backfilled        int
	Skipped           int
	Errors            []error
}

// SyncAll fetches every run started after the last sync, with its laps.
// Per-activity failures are collected in the result and do not stop the
// sync.
func (s *SyncService) SyncAll(ctx context.Context, progress chan<- SyncProgress) (*SyncResult, error) {
	if progress != nil {
		defer close(progress)
	}

	result := &SyncResult{}

	after, err := s.lastSync(ctx)
	if err != nil {
		return result, err
	}

	var runs []strava.Activity
	if err := s.fetchActivities(ctx, after, progress, result, &runs); err != nil {
		return result, fmt.Errorf("syncing activities: %w", err)
	}

	watermark := after
	for i, a := range runs {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if progress != nil {
			progress <- SyncProgress{
				Phase:           "laps",
				Total:           len(runs),
				Completed:       i,
				CurrentActivity: a.Name,
			}
		}

		laps, err := s.client.GetActivityLaps(ctx, a.ID)
		if err != nil {
			// Store the summary anyway; laps arrive on a later re-sync.
			result.Errors = append(result.Errors, fmt.Errorf("activity %d (%s) laps: %w", a.ID, a.Name, err))
			laps = nil
		}
		result.LapsFetched += len(laps)

		ingested, err := s.ingest.Ingest(ctx, convertActivity(a), convertLaps(laps))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("storing activity %d: %w", a.ID, err))
			continue
		}
		result.ActivitiesStored++
		if ingested.Backfill {
			result.Backfilled++
		}
		if a.StartDate.After(watermark) {
			watermark = a.StartDate
		}
	}

	if progress != nil {
		progress <- SyncProgress{Phase: "laps", Total: len(runs), Completed: len(runs)}
	}

	if watermark.After(after) {
		if err := s.state.SetSyncState(ctx, store.KeyLastStravaSync, watermark.UTC().Format(time.RFC3339)); err != nil {
			return result, fmt.Errorf("saving sync watermark: %w", err)
		}
	}

	s.logger.Info("strava sync finished",
		"fetched", result.ActivitiesFetched,
		"stored", result.ActivitiesStored,
		"backfilled", result.Backfilled,
		"errors", len(result.Errors),
	)
	return result, nil
}

func (s *SyncService) lastSync(ctx context.Context) (time.Time, error) {
	value, err := s.state.GetSyncState(ctx, store.KeyLastStravaSync)
	if err != nil {
		return time.Time{}, fmt.Errorf("reading sync watermark: %w", err)
	}
	if value == "" {
		return time.Time{}, nil
	}
	after, err := time.Parse(time.RFC3339, value)
	if err != nil {
		s.logger.Warn("ignoring unreadable sync watermark", "value", value, "err", err)
		return time.Time{}, nil
	}
	return after, nil
}

// fetchActivities pages through the activity list and keeps the runs
func (s *SyncService) fetchActivities(ctx context.Context, after time.Time, progress chan<- SyncProgress, result *SyncResult, runs *[]strava.Activity) error {
	if progress != nil {
		progress <- SyncProgress{Phase: "activities"}
	}

	for page := 1; ; page++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		activities, err := s.client.GetActivities(ctx, after, page, StravaPageSize)
		if err != nil {
			return fmt.Errorf("fetching page %d: %w", page, err)
		}
		result.ActivitiesFetched += len(activities)

		for _, a := range activities {
			if !a.IsRun() {
				result.Skipped++
				continue
			}
			*runs = append(*runs, a)
		}

		if progress != nil {
			progress <- SyncProgress{
				Phase:     "activities",
				Total:     result.ActivitiesFetched,
				Completed: len(*runs),
			}
		}

		if len(activities) < StravaPageSize {
			return nil
		}
	}
}

// RateLimitStatus returns the current rate limit status from the client
func (s *SyncService) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return s.client.RateLimitStatus()
}

// convertActivity converts a Strava API activity to a store activity.
// Strava reports zero for missing sensor values.
func convertActivity(a strava.Activity) *store.Activity {
	activity := &store.Activity{
		Source:         store.SourceStrava,
		ExternalID:     strconv.FormatInt(a.ID, 10),
		Name:           a.Name,
		Type:           a.Type,
		StartDate:      a.StartDate.UTC(),
		StartDateLocal: a.StartDateLocal,
		Distance:       a.Distance,
		MovingTime:     a.MovingTime,
		ElapsedTime:    a.ElapsedTime,
	}

	if a.AverageHeartrate > 0 {
		hr := a.AverageHeartrate
		activity.AverageHeartrate = &hr
	}
	if a.MaxHeartrate > 0 {
		hr := a.MaxHeartrate
		activity.MaxHeartrate = &hr
	}
	if a.AverageCadence > 0 {
		cadence := a.AverageCadence * StravaCadenceMultiplier
		activity.AverageCadence = &cadence
	}

	return activity
}

// convertLaps orders laps by their 1-based Strava index. Ingest renumbers
// them from zero.
func convertLaps(laps []strava.Lap) []store.Lap {
	sorted := make([]strava.Lap, len(laps))
	copy(sorted, laps)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].LapIndex < sorted[j].LapIndex })

	out := make([]store.Lap, 0, len(sorted))
	for _, l := range sorted {
		lap := store.Lap{
			Distance:   l.Distance,
			MovingTime: float64(l.MovingTime),
		}
		if l.AverageSpeed > 0 {
			pace := 1000 / l.AverageSpeed
			lap.AveragePace = &pace
		}
		if l.AverageHeartrate > 0 {
			hr := l.AverageHeartrate
			lap.AverageHeartrate = &hr
		}
		if l.AverageCadence > 0 {
			cadence := l.AverageCadence * StravaCadenceMultiplier
			lap.AverageCadence = &cadence
		}
		out = append(out, lap)
	}
	return out
}

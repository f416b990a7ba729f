package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"runlytics/internal/analysis"
	"runlytics/internal/config"
	"runlytics/internal/store"
)

// ErrNoFitness is returned when no scored activity exists in the lookback
// window.
var ErrNoFitness = errors.New("no recent fitness score")

// PrecomputedReader reads the rollup tables written by RollupBuilder
type PrecomputedReader interface {
	ListPrecomputedZoneRollups(ctx context.Context, r store.PeriodRange, granularity string) ([]store.ZoneRollup, error)
	ListPrecomputedFitnessTrend(ctx context.Context, r store.PeriodRange, granularity string) ([]store.FitnessTrendPoint, error)
}

// DataSource is the read side of the store the analytics engine needs
type DataSource interface {
	PrecomputedReader
	ListActivities(ctx context.Context, f store.ActivityFilter) ([]store.Activity, error)
	ListLapsForActivities(ctx context.Context, ids []int64) (map[int64][]store.Lap, error)
	ListLapsInRange(ctx context.Context, f store.ActivityFilter) ([]store.Lap, error)
	LatestActivityWithFitness(ctx context.Context, f store.ActivityFilter) (*store.Activity, error)
}

// Settings holds the analytics knobs taken from the configuration
type Settings struct {
	Fitness         analysis.FitnessConfig
	FreshnessWindow time.Duration
	PaceZoneMean    analysis.MeanMode
}

// SettingsFromConfig extracts the analytics settings from cfg
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Fitness:         cfg.FitnessConfig(),
		FreshnessWindow: cfg.FreshnessWindow(),
		PaceZoneMean:    cfg.MeanMode(),
	}
}

// Option configures an AnalyticsService
type Option func(*AnalyticsService)

// WithClock overrides the time source used for freshness routing
func WithClock(now func() time.Time) Option {
	return func(s *AnalyticsService) { s.now = now }
}

// WithLogger sets the service logger
func WithLogger(l *slog.Logger) Option {
	return func(s *AnalyticsService) { s.logger = l }
}

// WithPrecomputed reads rollups through r instead of the data source,
// typically a cache in front of it.
func WithPrecomputed(r PrecomputedReader) Option {
	return func(s *AnalyticsService) { s.precomputed = r }
}

// AnalyticsService answers the analytics queries. It holds no state
// between calls, so concurrent use is safe.
type AnalyticsService struct {
	ds          DataSource
	precomputed PrecomputedReader
	settings    Settings
	aggregator  analysis.ZoneAggregator
	now         func() time.Time
	logger      *slog.Logger

	zones *HybridResolver[store.ZoneRollup]
	trend *HybridResolver[store.FitnessTrendPoint]
}

// NewAnalyticsService creates the analytics facade over ds
func NewAnalyticsService(ds DataSource, settings Settings, opts ...Option) *AnalyticsService {
	s := &AnalyticsService{
		ds:          ds,
		precomputed: ds,
		settings:    settings,
		aggregator:  analysis.NewZoneAggregator(settings.Fitness.MaxHR),
		now:         time.Now,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.zones = NewHybridResolver("zones", settings.FreshnessWindow,
		func(ctx context.Context, r store.PeriodRange, g analysis.Granularity) ([]store.ZoneRollup, error) {
			return s.precomputed.ListPrecomputedZoneRollups(ctx, r, string(g))
		},
		func(ctx context.Context, f store.ActivityFilter, g analysis.Granularity) ([]store.ZoneRollup, error) {
			activities, err := s.ds.ListActivities(ctx, f)
			if err != nil {
				return nil, fmt.Errorf("loading activities: %w", err)
			}
			return s.aggregator.Aggregate(activities, g), nil
		},
		func(a, b store.ZoneRollup) bool {
			if a.Period != b.Period {
				return a.Period < b.Period
			}
			return a.Zone < b.Zone
		},
	).WithClock(s.clock).WithLogger(s.logger)

	s.trend = NewHybridResolver("fitness_trend", settings.FreshnessWindow,
		func(ctx context.Context, r store.PeriodRange, g analysis.Granularity) ([]store.FitnessTrendPoint, error) {
			return s.precomputed.ListPrecomputedFitnessTrend(ctx, r, string(g))
		},
		func(ctx context.Context, f store.ActivityFilter, g analysis.Granularity) ([]store.FitnessTrendPoint, error) {
			activities, err := s.ds.ListActivities(ctx, f)
			if err != nil {
				return nil, fmt.Errorf("loading activities: %w", err)
			}
			return analysis.AggregateFitnessTrend(activities, g), nil
		},
		func(a, b store.FitnessTrendPoint) bool { return a.Period < b.Period },
	).WithClock(s.clock).WithLogger(s.logger)

	return s
}

func (s *AnalyticsService) clock() time.Time { return s.now() }

// Settings returns the service settings
func (s *AnalyticsService) Settings() Settings { return s.settings }

// GetZoneStats returns per-period heart-rate zone rollups for r
func (s *AnalyticsService) GetZoneStats(ctx context.Context, r DateRange, g analysis.Granularity) ([]store.ZoneRollup, error) {
	rows, route, err := s.zones.Resolve(ctx, r, g)
	if err != nil {
		return nil, fmt.Errorf("zone stats: %w", err)
	}
	s.logger.Debug("zone stats", "route", string(route), "granularity", string(g), "rows", len(rows))
	return rows, nil
}

// GetFitnessTrend returns per-period fitness summaries for r
func (s *AnalyticsService) GetFitnessTrend(ctx context.Context, r DateRange, g analysis.Granularity) ([]store.FitnessTrendPoint, error) {
	rows, route, err := s.trend.Resolve(ctx, r, g)
	if err != nil {
		return nil, fmt.Errorf("fitness trend: %w", err)
	}
	s.logger.Debug("fitness trend", "route", string(route), "granularity", string(g), "rows", len(rows))
	return rows, nil
}

// PersonalRecordsResult holds the best efforts and the longest run in a window
type PersonalRecordsResult struct {
	Records    []analysis.PersonalRecord  `json:"records"`
	LongestRun *analysis.LongestRunRecord `json:"longest_run"`
}

// GetPersonalRecords scans every activity in w for the canonical record
// distances.
func (s *AnalyticsService) GetPersonalRecords(ctx context.Context, w analysis.TimeWindow) (*PersonalRecordsResult, error) {
	activities, err := s.ds.ListActivities(ctx, store.ActivityFilter{From: w.From, To: w.To})
	if err != nil {
		return nil, fmt.Errorf("loading activities: %w", err)
	}

	ids := make([]int64, len(activities))
	for i, a := range activities {
		ids[i] = a.ID
	}
	laps, err := s.ds.ListLapsForActivities(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading laps: %w", err)
	}

	return &PersonalRecordsResult{
		Records:    analysis.PersonalRecords(activities, laps, analysis.RecordTargets, w),
		LongestRun: analysis.LongestRun(activities, w),
	}, nil
}

// GetPaceZoneStats buckets the laps run in r into the pace zones of
// fitnessScore. A non-positive score means the current fitness score.
func (s *AnalyticsService) GetPaceZoneStats(ctx context.Context, fitnessScore float64, r DateRange) ([]analysis.PaceZoneBand, error) {
	if fitnessScore <= 0 {
		current, err := s.GetCurrentFitness(ctx)
		if err != nil {
			return nil, err
		}
		fitnessScore = current.Score
	}

	laps, err := s.ds.ListLapsInRange(ctx, store.ActivityFilter{From: r.Start, To: r.End})
	if err != nil {
		return nil, fmt.Errorf("loading laps: %w", err)
	}
	return analysis.PaceZoneStats(fitnessScore, laps, s.settings.PaceZoneMean), nil
}

// CurrentFitness is the latest fitness score with what it implies
type CurrentFitness struct {
	Score       float64                     `json:"score"`
	Label       string                      `json:"label"`
	ActivityID  int64                       `json:"activity_id"`
	MeasuredAt  time.Time                   `json:"measured_at"`
	Predictions []analysis.RacePrediction   `json:"predictions"`
	PaceZones   map[int]analysis.PaceBounds `json:"pace_zones"`
}

// GetCurrentFitness returns the most recent fitness score from the last
// six weeks, or ErrNoFitness.
func (s *AnalyticsService) GetCurrentFitness(ctx context.Context) (*CurrentFitness, error) {
	latest, err := s.ds.LatestActivityWithFitness(ctx, store.ActivityFilter{
		From: s.now().Add(-CurrentFitnessLookback),
	})
	if errors.Is(err, store.ErrActivityNotFound) {
		return nil, ErrNoFitness
	}
	if err != nil {
		return nil, fmt.Errorf("loading latest fitness: %w", err)
	}

	score := *latest.FitnessScore
	return &CurrentFitness{
		Score:       score,
		Label:       analysis.FitnessLabel(score),
		ActivityID:  latest.ID,
		MeasuredAt:  latest.StartDate,
		Predictions: analysis.PredictRaces(score),
		PaceZones:   analysis.PaceZoneBounds(score),
	}, nil
}

// TrainingForm is the CTL/ATL/TSB series for a range
type TrainingForm struct {
	Current     analysis.FormMetrics   `json:"current"`
	Description string                 `json:"description"`
	Trend       []analysis.FormMetrics `json:"trend"`
}

// GetTrainingForm computes fitness, fatigue and form from stored training
// loads. History before r.Start seeds the averages but is not returned.
func (s *AnalyticsService) GetTrainingForm(ctx context.Context, r DateRange) (*TrainingForm, error) {
	activities, err := s.ds.ListActivities(ctx, store.ActivityFilter{
		From: r.Start.Add(-FormWarmup),
		To:   r.End,
	})
	if err != nil {
		return nil, fmt.Errorf("loading activities: %w", err)
	}

	all := analysis.CalculateFormTrend(analysis.DailyLoadsFromActivities(activities))

	form := &TrainingForm{}
	startDay := r.Start.UTC().Truncate(24 * time.Hour)
	for _, m := range all {
		if !m.Date.Before(startDay) {
			form.Trend = append(form.Trend, m)
		}
	}
	if len(all) > 0 {
		form.Current = all[len(all)-1]
	}
	form.Description = analysis.FormDescription(form.Current.TSB)
	return form, nil
}

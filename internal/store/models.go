package store

import "time"

// Auth represents OAuth tokens for Strava API access
type Auth struct {
	AthleteID    int64     `db:"athlete_id"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	ExpiresAt    time.Time `db:"expires_at"`
}

// Activity sources
const (
	SourceFIT    = "fit"
	SourceStrava = "strava"
)

// Activity is one completed training session
type Activity struct {
	ID               int64     `db:"id"`
	Source           string    `db:"source"`
	ExternalID       string    `db:"external_id"`
	Name             string    `db:"name"`
	Type             string    `db:"type"`
	StartDate        time.Time `db:"start_date"`       // UTC
	StartDateLocal   time.Time `db:"start_date_local"` // wall clock at the activity location
	Distance         float64   `db:"distance"`         // meters
	MovingTime       int       `db:"moving_time"`      // seconds
	ElapsedTime      int       `db:"elapsed_time"`     // seconds
	AverageHeartrate *float64  `db:"average_heartrate"`
	MaxHeartrate     *float64  `db:"max_heartrate"`
	AveragePace      *float64  `db:"average_pace"`    // seconds per km
	AverageCadence   *float64  `db:"average_cadence"` // steps per minute
	AverageStride    *float64  `db:"average_stride"`  // meters
	FitnessScore     *float64  `db:"fitness_score"`   // VDOT
	TrainingLoad     *float64  `db:"training_load"`
}

// Lap is an ordered split of one activity
type Lap struct {
	ActivityID       int64    `db:"activity_id"`
	LapIndex         int      `db:"lap_index"` // 0-based, contiguous
	Distance         float64  `db:"distance"`  // meters
	MovingTime       float64  `db:"moving_time"`
	AveragePace      *float64 `db:"average_pace"` // seconds per km
	AverageHeartrate *float64 `db:"average_heartrate"`
	AverageCadence   *float64 `db:"average_cadence"`
	AverageStride    *float64 `db:"average_stride"`
}

// ZoneRollup aggregates the activities of one period that fell in one
// heart-rate zone. The averages are running means where a zero sample is
// treated as missing.
type ZoneRollup struct {
	Period        string    `db:"period" json:"period"`
	Granularity   string    `db:"granularity" json:"granularity"`
	Zone          int       `db:"zone" json:"zone"`
	PeriodStart   time.Time `db:"period_start" json:"period_start"`
	ActivityCount int       `db:"activity_count" json:"activity_count"`
	TotalDuration int       `db:"total_duration" json:"total_duration"`
	TotalDistance float64   `db:"total_distance" json:"total_distance"`
	AvgPace       float64   `db:"avg_pace" json:"avg_pace"`
	AvgCadence    float64   `db:"avg_cadence" json:"avg_cadence"`
	AvgStride     float64   `db:"avg_stride" json:"avg_stride"`
	AvgHeartRate  float64   `db:"avg_heartrate" json:"avg_heartrate"`
}

// FitnessTrendPoint summarizes the fitness scores of one period
type FitnessTrendPoint struct {
	Period        string    `db:"period" json:"period"`
	Granularity   string    `db:"granularity" json:"granularity"`
	PeriodStart   time.Time `db:"period_start" json:"period_start"`
	AvgFitness    float64   `db:"avg_fitness" json:"avg_fitness"`
	MaxFitness    float64   `db:"max_fitness" json:"max_fitness"`
	ActivityCount int       `db:"activity_count" json:"activity_count"`
	TotalLoad     float64   `db:"total_load" json:"total_load"`
	TotalDistance float64   `db:"total_distance" json:"total_distance"`
}

// RollupBuild records one rebuild of the precomputed tables
type RollupBuild struct {
	ID            string    `db:"id" json:"id"`
	StartedAt     time.Time `db:"started_at" json:"started_at"`
	FinishedAt    time.Time `db:"finished_at" json:"finished_at"`
	ActivityCount int       `db:"activity_count" json:"activity_count"`
	ZoneRows      int       `db:"zone_rows" json:"zone_rows"`
	TrendRows     int       `db:"trend_rows" json:"trend_rows"`
}

package strava

import "time"

// Activity is the summary Strava returns from /athlete/activities
type Activity struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	SportType        string    `json:"sport_type"`
	StartDate        time.Time `json:"start_date"`
	StartDateLocal   time.Time `json:"start_date_local"`
	Distance         float64   `json:"distance"`     // meters
	MovingTime       int       `json:"moving_time"`  // seconds
	ElapsedTime      int       `json:"elapsed_time"` // seconds
	AverageSpeed     float64   `json:"average_speed"`
	AverageHeartrate float64   `json:"average_heartrate"`
	MaxHeartrate     float64   `json:"max_heartrate"`
	AverageCadence   float64   `json:"average_cadence"` // strides per minute for runs
	HasHeartrate     bool      `json:"has_heartrate"`
}

// IsRun reports whether the activity is any kind of run
func (a Activity) IsRun() bool {
	switch a.SportType {
	case "Run", "TrailRun", "VirtualRun":
		return true
	}
	return a.Type == "Run"
}

// Lap is one split from /activities/{id}/laps
type Lap struct {
	ID               int64   `json:"id"`
	LapIndex         int     `json:"lap_index"` // 1-based
	Distance         float64 `json:"distance"`
	MovingTime       int     `json:"moving_time"`
	ElapsedTime      int     `json:"elapsed_time"`
	AverageSpeed     float64 `json:"average_speed"`
	AverageHeartrate float64 `json:"average_heartrate"`
	AverageCadence   float64 `json:"average_cadence"`
}

package service

import "time"

const (
	// StravaCadenceMultiplier turns Strava's single-leg cadence into steps per minute
	StravaCadenceMultiplier = 2.0
	SecondsPerMinute        = 60

	// CurrentFitnessLookback bounds how old a score may be to count as current
	CurrentFitnessLookback = 42 * 24 * time.Hour
	// FormWarmup is how much history before a range seeds the load averages
	FormWarmup = 84 * 24 * time.Hour
	// DefaultQueryRange is used when a caller gives no start date
	DefaultQueryRange = 90 * 24 * time.Hour

	// Strava paging
	StravaPageSize = 100
)

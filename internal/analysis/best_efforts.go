package analysis

import (
	"sort"
	"time"

	"runlytics/internal/store"
)

// Standard target distances in meters
const (
	Distance1K       = 1000
	Distance1Mile    = 1609.34
	Distance5K       = 5000
	Distance10K      = 10000
	DistanceHalfMara = 21097.5
	DistanceMarathon = 42195
)

// TargetDistance is a named distance a personal record is tracked for
type TargetDistance struct {
	Label  string  `json:"label"`
	Meters float64 `json:"meters"`
}

// RecordTargets are the canonical personal record distances
var RecordTargets = []TargetDistance{
	{"1k", Distance1K},
	{"1mi", Distance1Mile},
	{"5k", Distance5K},
	{"10k", Distance10K},
	{"half", DistanceHalfMara},
	{"marathon", DistanceMarathon},
}

// BestEffort is the shortest time an activity needed to cover a distance
type BestEffort struct {
	ActivityID      int64     `json:"activity_id"`
	DurationSeconds float64   `json:"duration_seconds"`
	AchievedAt      time.Time `json:"achieved_at"`
}

// TimeWindow bounds activity start times. Zero ends are open; both ends are
// inclusive.
type TimeWindow struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window
func (w TimeWindow) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && t.After(w.To) {
		return false
	}
	return true
}

// BestTimeForDistance returns how long the activity took to first cover
// targetMeters. With laps, whole laps are summed and only the lap where the
// target is crossed is interpolated. Without laps the whole activity is
// scaled linearly, which flatters uneven pacing. AchievedAt is the activity
// start. Returns nil if the activity is shorter than the target.
func BestTimeForDistance(a store.Activity, laps []store.Lap, targetMeters float64) *BestEffort {
	if targetMeters <= 0 || a.Distance < targetMeters {
		return nil
	}

	if duration, ok := timeFromLaps(laps, targetMeters); ok {
		return &BestEffort{ActivityID: a.ID, DurationSeconds: duration, AchievedAt: a.StartDate}
	}

	// Linear fallback, also used when the laps stop short of the target
	if a.MovingTime <= 0 {
		return nil
	}
	return &BestEffort{
		ActivityID:      a.ID,
		DurationSeconds: float64(a.MovingTime) * (targetMeters / a.Distance),
		AchievedAt:      a.StartDate,
	}
}

func timeFromLaps(laps []store.Lap, targetMeters float64) (float64, bool) {
	if len(laps) == 0 {
		return 0, false
	}

	ordered := make([]store.Lap, len(laps))
	copy(ordered, laps)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].LapIndex < ordered[j].LapIndex
	})

	var distance, elapsed float64
	for _, lap := range ordered {
		if lap.Distance <= 0 {
			elapsed += lap.MovingTime
			continue
		}
		if distance+lap.Distance >= targetMeters {
			fraction := (targetMeters - distance) / lap.Distance
			return elapsed + lap.MovingTime*fraction, true
		}
		distance += lap.Distance
		elapsed += lap.MovingTime
	}
	return 0, false
}

// PersonalRecord is the best effort found for one target distance.
// Effort is nil when no activity in the window reached the distance.
type PersonalRecord struct {
	Target TargetDistance `json:"target"`
	Effort *BestEffort    `json:"effort"`
}

// PersonalRecords finds the fastest effort for each target among the
// activities starting inside window. lapsByActivity may omit activities
// without laps.
func PersonalRecords(activities []store.Activity, lapsByActivity map[int64][]store.Lap, targets []TargetDistance, window TimeWindow) []PersonalRecord {
	records := make([]PersonalRecord, len(targets))
	for i, target := range targets {
		records[i].Target = target
	}

	for _, a := range activities {
		if !window.Contains(a.StartDate) {
			continue
		}
		laps := lapsByActivity[a.ID]
		for i, target := range targets {
			effort := BestTimeForDistance(a, laps, target.Meters)
			if effort == nil {
				continue
			}
			if records[i].Effort == nil || effort.DurationSeconds < records[i].Effort.DurationSeconds {
				records[i].Effort = effort
			}
		}
	}

	return records
}

// LongestRunRecord is the single longest activity in a window
type LongestRunRecord struct {
	ActivityID int64     `json:"activity_id"`
	Meters     float64   `json:"meters"`
	AchievedAt time.Time `json:"achieved_at"`
}

// LongestRun returns the activity with the greatest distance inside
// window, or nil if there is none.
func LongestRun(activities []store.Activity, window TimeWindow) *LongestRunRecord {
	var best *LongestRunRecord
	for _, a := range activities {
		if !window.Contains(a.StartDate) || a.Distance <= 0 {
			continue
		}
		if best == nil || a.Distance > best.Meters {
			best = &LongestRunRecord{ActivityID: a.ID, Meters: a.Distance, AchievedAt: a.StartDate}
		}
	}
	return best
}

// PacePerKm returns pace in seconds per km, or 0 if either input is not
// positive.
func PacePerKm(distanceMeters, durationSeconds float64) float64 {
	if distanceMeters <= 0 || durationSeconds <= 0 {
		return 0
	}
	return durationSeconds / (distanceMeters / 1000)
}

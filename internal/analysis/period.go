package analysis

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Granularity is the bucket size for period rollups
type Granularity string

const (
	Week  Granularity = "week"
	Month Granularity = "month"
)

// ErrUnknownGranularity is returned for granularities other than week and month
var ErrUnknownGranularity = errors.New("unknown granularity")

// ParseGranularity accepts "week"/"weekly" and "month"/"monthly"
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "week", "weekly":
		return Week, nil
	case "month", "monthly":
		return Month, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
}

// PeriodKey returns "YYYY-MM" for months and "YYYY-Www" for weeks, using
// UTC fields only.
//
// The week number is ceil((daysSinceJan1 + jan1Weekday + 1) / 7), so weeks
// run Sunday to Saturday and week 1 starts on January 1. This is close to,
// but not, ISO-8601 (no week 53 carry-over across years). Keys are used as
// cache keys, so the numbering must not change.
func PeriodKey(t time.Time, g Granularity) string {
	u := t.UTC()
	if g == Week {
		return fmt.Sprintf("%04d-W%02d", u.Year(), weekOfYear(u))
	}
	return fmt.Sprintf("%04d-%02d", u.Year(), int(u.Month()))
}

// PeriodStart returns the UTC start of the period containing t
func PeriodStart(t time.Time, g Granularity) time.Time {
	u := t.UTC()
	if g == Week {
		day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
		start := day.AddDate(0, 0, -int(day.Weekday()))
		if jan1 := time.Date(u.Year(), 1, 1, 0, 0, 0, 0, time.UTC); start.Before(jan1) {
			return jan1
		}
		return start
	}
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// PeriodEnd returns the start of the period after the one containing t.
// The week holding December 31 ends at January 1.
func PeriodEnd(t time.Time, g Granularity) time.Time {
	start := PeriodStart(t, g)
	if g != Week {
		return start.AddDate(0, 1, 0)
	}
	next := start.AddDate(0, 0, 7-int(start.Weekday()))
	if jan1 := time.Date(start.Year()+1, 1, 1, 0, 0, 0, 0, time.UTC); next.After(jan1) {
		return jan1
	}
	return next
}

func weekOfYear(u time.Time) int {
	jan1 := time.Date(u.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	days := u.YearDay() - 1
	return int(math.Ceil(float64(days+int(jan1.Weekday())+1) / 7))
}

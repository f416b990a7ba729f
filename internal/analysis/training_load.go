package analysis

import (
	"sort"
	"time"

	"runlytics/internal/store"
)

// DailyLoad represents training load for a single day
type DailyLoad struct {
	Date time.Time
	Load float64
}

// FormMetrics represents CTL/ATL/TSB for a day
type FormMetrics struct {
	Date time.Time `json:"date"`
	CTL  float64   `json:"ctl"` // Chronic Training Load (42-day EMA) - "Fitness"
	ATL  float64   `json:"atl"` // Acute Training Load (7-day EMA) - "Fatigue"
	TSB  float64   `json:"tsb"` // Training Stress Balance (CTL - ATL) - "Form"
}

// DailyLoadsFromActivities sums stored training loads per UTC day
func DailyLoadsFromActivities(activities []store.Activity) []DailyLoad {
	byDay := make(map[time.Time]float64)
	for _, a := range activities {
		if a.TrainingLoad == nil {
			continue
		}
		u := a.StartDate.UTC()
		day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
		byDay[day] += *a.TrainingLoad
	}

	loads := make([]DailyLoad, 0, len(byDay))
	for day, load := range byDay {
		loads = append(loads, DailyLoad{Date: day, Load: load})
	}
	sort.Slice(loads, func(i, j int) bool {
		return loads[i].Date.Before(loads[j].Date)
	})
	return loads
}

// CalculateFormTrend computes CTL/ATL/TSB from daily loads, filling days
// without activity with zero load.
func CalculateFormTrend(dailyLoads []DailyLoad) []FormMetrics {
	if len(dailyLoads) == 0 {
		return nil
	}

	sorted := make([]DailyLoad, len(dailyLoads))
	copy(sorted, dailyLoads)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	// EMA decay constants
	ctlDecay := 2.0 / (42.0 + 1.0) // 42-day time constant
	atlDecay := 2.0 / (7.0 + 1.0)  // 7-day time constant

	loadMap := make(map[string]float64)
	for _, dl := range sorted {
		loadMap[dl.Date.Format("2006-01-02")] += dl.Load
	}

	startDate := sorted[0].Date.UTC().Truncate(24 * time.Hour)
	endDate := sorted[len(sorted)-1].Date.UTC().Truncate(24 * time.Hour)

	var metrics []FormMetrics
	var ctl, atl float64
	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		load := loadMap[d.Format("2006-01-02")]

		ctl = ctl + ctlDecay*(load-ctl)
		atl = atl + atlDecay*(load-atl)

		metrics = append(metrics, FormMetrics{
			Date: d,
			CTL:  ctl,
			ATL:  atl,
			TSB:  ctl - atl,
		})
	}

	return metrics
}

// CurrentForm returns the most recent CTL/ATL/TSB values
func CurrentForm(dailyLoads []DailyLoad) FormMetrics {
	metrics := CalculateFormTrend(dailyLoads)
	if len(metrics) == 0 {
		return FormMetrics{}
	}
	return metrics[len(metrics)-1]
}

// FormDescription returns a human-readable description of TSB
func FormDescription(tsb float64) string {
	switch {
	case tsb > 25:
		return "Very fresh (possibly detrained)"
	case tsb > 10:
		return "Fresh and ready to race"
	case tsb > 0:
		return "Neutral - good for training"
	case tsb > -10:
		return "Slightly fatigued"
	case tsb > -25:
		return "Tired but building fitness"
	default:
		return "Very fatigued - rest needed"
	}
}

package analysis

import (
	"sort"

	"runlytics/internal/store"
)

// updateMean folds sample into a running mean, where n counts the bucket's
// activities including the current one. A zero sample is treated as
// missing and leaves the mean unchanged.
//
// NOTE: a genuine zero is indistinguishable from "no sample", and because n
// counts activities rather than samples the result depends on arrival order
// once zeros appear. Stored rollups were built this way; keep it until the
// intended semantics are confirmed.
func updateMean(mean float64, n int, sample float64) float64 {
	if sample == 0 || n <= 0 {
		return mean
	}
	return (mean*float64(n-1) + sample) / float64(n)
}

func valueOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// ZoneAggregator groups activities into per-period, per-heart-rate-zone
// rollups.
type ZoneAggregator struct {
	MaxHR float64
}

// NewZoneAggregator creates an aggregator classifying against maxHR
func NewZoneAggregator(maxHR float64) ZoneAggregator {
	return ZoneAggregator{MaxHR: maxHR}
}

// Aggregate folds activities into (period, zone) buckets. Activities without
// a positive average heart rate are skipped entirely. The result is sorted
// by period, then zone.
func (z ZoneAggregator) Aggregate(activities []store.Activity, g Granularity) []store.ZoneRollup {
	type key struct {
		period string
		zone   int
	}
	buckets := make(map[key]*store.ZoneRollup)

	for _, a := range activities {
		if a.AverageHeartrate == nil || *a.AverageHeartrate <= 0 {
			continue
		}
		zone := ClassifyHeartRateZone(*a.AverageHeartrate, z.MaxHR)
		if zone == 0 {
			continue
		}

		k := key{period: PeriodKey(a.StartDate, g), zone: zone}
		r, ok := buckets[k]
		if !ok {
			r = &store.ZoneRollup{
				Period:      k.period,
				Granularity: string(g),
				Zone:        zone,
				PeriodStart: PeriodStart(a.StartDate, g),
			}
			buckets[k] = r
		}

		r.ActivityCount++
		r.TotalDuration += a.MovingTime
		r.TotalDistance += a.Distance

		n := r.ActivityCount
		r.AvgPace = updateMean(r.AvgPace, n, valueOrZero(a.AveragePace))
		r.AvgCadence = updateMean(r.AvgCadence, n, valueOrZero(a.AverageCadence))
		r.AvgStride = updateMean(r.AvgStride, n, valueOrZero(a.AverageStride))
		r.AvgHeartRate = updateMean(r.AvgHeartRate, n, *a.AverageHeartrate)
	}

	rollups := make([]store.ZoneRollup, 0, len(buckets))
	for _, r := range buckets {
		rollups = append(rollups, *r)
	}
	SortZoneRollups(rollups)
	return rollups
}

// SortZoneRollups orders rollups by period, then zone
func SortZoneRollups(rollups []store.ZoneRollup) {
	sort.SliceStable(rollups, func(i, j int) bool {
		if rollups[i].Period != rollups[j].Period {
			return rollups[i].Period < rollups[j].Period
		}
		return rollups[i].Zone < rollups[j].Zone
	})
}

// AggregateFitnessTrend summarizes scored activities per period. Activities
// without a fitness score are not counted. The result is sorted by period.
func AggregateFitnessTrend(activities []store.Activity, g Granularity) []store.FitnessTrendPoint {
	buckets := make(map[string]*store.FitnessTrendPoint)

	for _, a := range activities {
		if a.FitnessScore == nil {
			continue
		}
		score := *a.FitnessScore

		period := PeriodKey(a.StartDate, g)
		p, ok := buckets[period]
		if !ok {
			p = &store.FitnessTrendPoint{
				Period:      period,
				Granularity: string(g),
				PeriodStart: PeriodStart(a.StartDate, g),
			}
			buckets[period] = p
		}

		p.ActivityCount++
		p.AvgFitness = updateMean(p.AvgFitness, p.ActivityCount, score)
		if score > p.MaxFitness {
			p.MaxFitness = score
		}
		p.TotalLoad += valueOrZero(a.TrainingLoad)
		p.TotalDistance += a.Distance
	}

	points := make([]store.FitnessTrendPoint, 0, len(buckets))
	for _, p := range buckets {
		points = append(points, *p)
	}
	SortTrendPoints(points)
	return points
}

// SortTrendPoints orders trend points by period
func SortTrendPoints(points []store.FitnessTrendPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Period < points[j].Period
	})
}

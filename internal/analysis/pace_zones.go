package analysis

import (
	"fmt"

	"runlytics/internal/store"
)

// MeanMode selects how per-zone lap averages are computed
type MeanMode string

const (
	// MeanPlain is the arithmetic mean over the laps that carry a value
	MeanPlain MeanMode = "plain"
	// MeanIncremental uses the same running mean as zone rollups, where a
	// zero or missing sample leaves the mean unchanged
	MeanIncremental MeanMode = "incremental"
)

// ParseMeanMode validates a mean mode name. Empty means MeanPlain.
func ParseMeanMode(s string) (MeanMode, error) {
	switch MeanMode(s) {
	case "", MeanPlain:
		return MeanPlain, nil
	case MeanIncremental:
		return MeanIncremental, nil
	}
	return "", fmt.Errorf("unknown mean mode %q", s)
}

// PaceZoneBand is one VDOT-derived pace zone with the laps that fell in it
type PaceZoneBand struct {
	Zone          int     `json:"zone"`
	PaceMin       float64 `json:"pace_min"`
	PaceMax       float64 `json:"pace_max"`
	PaceCenter    float64 `json:"pace_center"`
	LapCount      int     `json:"lap_count"`
	TotalDuration float64 `json:"total_duration"`
	TotalDistance float64 `json:"total_distance"`
	AvgPace       float64 `json:"avg_pace"`
	AvgHeartRate  float64 `json:"avg_heart_rate"`
	AvgCadence    float64 `json:"avg_cadence"`
	AvgStride     float64 `json:"avg_stride"`
}

type plainMean struct {
	sum float64
	n   int
}

func (m *plainMean) add(p *float64) {
	if p == nil {
		return
	}
	m.sum += *p
	m.n++
}

func (m plainMean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

// lapPace returns the lap's stored pace, or derives it from distance and time
func lapPace(l store.Lap) float64 {
	if l.AveragePace != nil && *l.AveragePace > 0 {
		return *l.AveragePace
	}
	return PacePerKm(l.Distance, l.MovingTime)
}

// PaceZoneStats buckets laps into the pace zones derived from fitnessScore.
// Zones are tried 1 to 5 and the first whose [min, max] holds the lap's
// pace wins; laps outside every zone are ignored. Always returns five bands
// for a positive score, nil otherwise.
func PaceZoneStats(fitnessScore float64, laps []store.Lap, mode MeanMode) []PaceZoneBand {
	bounds := PaceZoneBounds(fitnessScore)
	if bounds == nil {
		return nil
	}

	bands := make([]PaceZoneBand, NumZones)
	plain := make([][4]plainMean, NumZones) // pace, hr, cadence, stride

	for zone := 1; zone <= NumZones; zone++ {
		b := bounds[zone]
		bands[zone-1] = PaceZoneBand{Zone: zone, PaceMin: b.Min, PaceMax: b.Max, PaceCenter: b.Center}
	}

	for _, l := range laps {
		pace := lapPace(l)
		if pace <= 0 {
			continue
		}

		idx := -1
		for zone := 1; zone <= NumZones; zone++ {
			if bounds[zone].Contains(pace) {
				idx = zone - 1
				break
			}
		}
		if idx < 0 {
			continue
		}

		band := &bands[idx]
		band.LapCount++
		band.TotalDuration += l.MovingTime
		band.TotalDistance += l.Distance

		if mode == MeanIncremental {
			n := band.LapCount
			band.AvgPace = updateMean(band.AvgPace, n, pace)
			band.AvgHeartRate = updateMean(band.AvgHeartRate, n, valueOrZero(l.AverageHeartrate))
			band.AvgCadence = updateMean(band.AvgCadence, n, valueOrZero(l.AverageCadence))
			band.AvgStride = updateMean(band.AvgStride, n, valueOrZero(l.AverageStride))
			continue
		}

		p := pace
		plain[idx][0].add(&p)
		plain[idx][1].add(l.AverageHeartrate)
		plain[idx][2].add(l.AverageCadence)
		plain[idx][3].add(l.AverageStride)
	}

	if mode != MeanIncremental {
		for i := range bands {
			bands[i].AvgPace = plain[i][0].value()
			bands[i].AvgHeartRate = plain[i][1].value()
			bands[i].AvgCadence = plain[i][2].value()
			bands[i].AvgStride = plain[i][3].value()
		}
	}

	return bands
}

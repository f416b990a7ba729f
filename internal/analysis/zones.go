package analysis

import "math"

// NumZones is the number of intensity zones
const NumZones = 5

// Heart rate zone upper bounds as a fraction of max HR. A value below the
// bound belongs to the zone; anything at or above the last bound is zone 5.
var hrZoneBounds = [NumZones - 1]float64{0.70, 0.80, 0.87, 0.93}

// ClassifyHeartRateZone maps an average heart rate to zone 1-5.
// Returns 0 when the heart rate or max HR is not positive.
func ClassifyHeartRateZone(avgHR, maxHR float64) int {
	if avgHR <= 0 || maxHR <= 0 {
		return 0
	}

	pct := avgHR / maxHR
	for i, bound := range hrZoneBounds {
		if pct < bound {
			return i + 1
		}
	}
	return NumZones
}

// PaceBounds is a pace interval in seconds per km. Min is the fast edge.
type PaceBounds struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Center float64 `json:"center"`
}

// Contains reports whether pace lies in [Min, Max]
func (b PaceBounds) Contains(pace float64) bool {
	return pace >= b.Min && pace <= b.Max
}

// Zone edges as fractions of VO2max, slowest first. Zone n spans
// paceZoneFractions[n-1] to paceZoneFractions[n].
var paceZoneFractions = [NumZones + 1]float64{0.59, 0.74, 0.84, 0.88, 0.98, 1.20}

// PaceZoneBounds derives five contiguous training pace bands from a VDOT
// score. Zone 1 is the slowest; zone n's Min equals zone n+1's Max.
// Returns nil for a non-positive score.
func PaceZoneBounds(fitnessScore float64) map[int]PaceBounds {
	if fitnessScore <= 0 {
		return nil
	}

	edges := make([]float64, len(paceZoneFractions))
	for i, f := range paceZoneFractions {
		edges[i] = paceAtFraction(fitnessScore, f)
	}

	bounds := make(map[int]PaceBounds, NumZones)
	for zone := 1; zone <= NumZones; zone++ {
		mid := (paceZoneFractions[zone-1] + paceZoneFractions[zone]) / 2
		bounds[zone] = PaceBounds{
			Min:    edges[zone],
			Max:    edges[zone-1],
			Center: paceAtFraction(fitnessScore, mid),
		}
	}
	return bounds
}

// paceAtFraction returns the pace (s/km) whose oxygen cost equals
// fraction x vdot, by solving the oxygen cost quadratic for velocity.
func paceAtFraction(vdot, fraction float64) float64 {
	const a, b = 0.000104, 0.182258
	c := -(4.60 + vdot*fraction)
	velocity := (-b + math.Sqrt(b*b-4*a*c)) / (2 * a) // m/min
	return 60000 / velocity
}

package analysis

import "math"

// Sanity bounds for a fitness score. Anything outside comes from malformed
// telemetry and is discarded.
const (
	MinFitnessScore = 20.0
	MaxFitnessScore = 100.0

	maxPlausibleHR = 250.0
)

// FitnessConfig holds the athlete parameters and tuning tables used by the
// estimator. Table index 0 is zone 1.
type FitnessConfig struct {
	MaxHR       float64
	RestingHR   float64
	Multipliers [NumZones]float64
	LoadFactors [NumZones]float64
}

// DefaultFitnessConfig returns the stock tables: easy zones scored slightly
// down, zones 3-5 at parity; load factors from 0.6 (zone 1) to 1.5 (zone 5).
func DefaultFitnessConfig() FitnessConfig {
	return FitnessConfig{
		MaxHR:       190,
		RestingHR:   55,
		Multipliers: [NumZones]float64{0.95, 0.97, 1.0, 1.0, 1.0},
		LoadFactors: [NumZones]float64{0.6, 0.8, 1.0, 1.2, 1.5},
	}
}

// FitnessEstimator turns a session summary into a VDOT fitness score and a
// training load score.
type FitnessEstimator struct {
	cfg FitnessConfig
}

// NewFitnessEstimator creates an estimator with the given configuration
func NewFitnessEstimator(cfg FitnessConfig) FitnessEstimator {
	return FitnessEstimator{cfg: cfg}
}

// Config returns the estimator's configuration
func (e FitnessEstimator) Config() FitnessConfig {
	return e.cfg
}

// OxygenCost returns the VO2 (ml/kg/min) of running at velocity m/min
func OxygenCost(velocity float64) float64 {
	return -4.60 + 0.182258*velocity + 0.000104*velocity*velocity
}

// FractionOfMax returns the fraction of VO2max sustainable for a race
// lasting the given number of minutes.
func FractionOfMax(minutes float64) float64 {
	return 0.8 + 0.1894393*math.Exp(-0.012778*minutes) + 0.2989558*math.Exp(-0.1932605*minutes)
}

// EstimateFitness derives a VDOT score from distance and duration, adjusted
// by heart-rate zone when a usable average heart rate is given.
// Returns nil when the inputs cannot produce a meaningful score.
func (e FitnessEstimator) EstimateFitness(distanceMeters, durationSeconds float64, avgHeartRate *float64) *float64 {
	if distanceMeters <= 0 || durationSeconds <= 0 {
		return nil
	}

	minutes := durationSeconds / 60
	velocity := distanceMeters / minutes

	pct := FractionOfMax(minutes)
	if pct <= 0 || pct > 1 {
		return nil
	}

	score := OxygenCost(velocity) / pct
	if zone := e.zoneFor(avgHeartRate); zone > 0 {
		score *= e.cfg.Multipliers[zone-1]
	}

	if math.IsNaN(score) || score < MinFitnessScore || score > MaxFitnessScore {
		return nil
	}

	score = math.Round(score*10) / 10
	return &score
}

// EstimateTrainingLoad returns duration in hours x 100, scaled by the zone
// load factor when heart rate classifies. Never fails; non-positive
// durations yield 0.
func (e FitnessEstimator) EstimateTrainingLoad(durationSeconds float64, avgHeartRate *float64) float64 {
	if durationSeconds <= 0 {
		return 0
	}

	load := durationSeconds / 3600 * 100
	if zone := e.zoneFor(avgHeartRate); zone > 0 {
		load *= e.cfg.LoadFactors[zone-1]
	}
	return math.Round(load)
}

// zoneFor classifies a heart rate, treating values at or below resting or
// above the physiological ceiling as absent.
func (e FitnessEstimator) zoneFor(avgHeartRate *float64) int {
	if avgHeartRate == nil {
		return 0
	}
	hr := *avgHeartRate
	if hr <= e.cfg.RestingHR || hr > maxPlausibleHR {
		return 0
	}
	return ClassifyHeartRateZone(hr, e.cfg.MaxHR)
}

// PredictRaceTime returns the time in seconds a runner with the given VDOT
// is expected to need for distanceMeters. Returns 0 for invalid input.
func PredictRaceTime(vdot, distanceMeters float64) float64 {
	if vdot <= 0 || distanceMeters <= 0 {
		return 0
	}

	// Score falls as the time grows, so bisect on minutes.
	lo, hi := 1.0, 1440.0
	for i := 0; i < 100; i++ {
		mid := (lo + hi) / 2
		score := OxygenCost(distanceMeters/mid) / FractionOfMax(mid)
		if score > vdot {
			lo = mid
		} else {
			hi = mid
		}
	}
	return math.Round((lo + hi) / 2 * 60)
}

// FitnessLabel returns a human-readable fitness level for a VDOT value
func FitnessLabel(vdot float64) string {
	switch {
	case vdot >= 75:
		return "Elite"
	case vdot >= 65:
		return "Highly Competitive"
	case vdot >= 55:
		return "Competitive"
	case vdot >= 45:
		return "Advanced Recreational"
	case vdot >= 38:
		return "Intermediate"
	case vdot >= 30:
		return "Beginner"
	default:
		return "Novice"
	}
}

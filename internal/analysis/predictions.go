package analysis

// PredictionTarget represents a target distance for predictions
type PredictionTarget struct {
	Name           string // "5k", "10k", "half", "marathon"
	DistanceMeters float64
}

// PredictionTargets defines the standard prediction distances
var PredictionTargets = []PredictionTarget{
	{"5k", Distance5K},
	{"10k", Distance10K},
	{"half", DistanceHalfMara},
	{"marathon", DistanceMarathon},
}

// RacePrediction represents a predicted race time
type RacePrediction struct {
	TargetName       string  `json:"target"`
	TargetMeters     float64 `json:"meters"`
	PredictedSeconds int     `json:"predicted_seconds"`
	PacePerKm        float64 `json:"pace_per_km"`
}

// PredictRaces returns a prediction for each standard target, or nil when
// vdot is outside the sanity bounds.
func PredictRaces(vdot float64) []RacePrediction {
	if vdot < MinFitnessScore || vdot > MaxFitnessScore {
		return nil
	}

	predictions := make([]RacePrediction, 0, len(PredictionTargets))
	for _, target := range PredictionTargets {
		seconds := PredictRaceTime(vdot, target.DistanceMeters)
		predictions = append(predictions, RacePrediction{
			TargetName:       target.Name,
			TargetMeters:     target.DistanceMeters,
			PredictedSeconds: int(seconds),
			PacePerKm:        PacePerKm(target.DistanceMeters, seconds),
		})
	}
	return predictions
}

package analysis

import (
	"math"
	"testing"
)

func ptr(v float64) *float64 { return &v }

func TestEstimateFitness(t *testing.T) {
	e := NewFitnessEstimator(DefaultFitnessConfig())

	tests := []struct {
		name     string
		distance float64
		duration float64
		hr       *float64
		want     *float64
	}{
		{"10K in 50:00 without HR", Distance10K, 3000, nil, ptr(40.0)},
		{"5K in 19:00", Distance5K, 1140, nil, ptr(52.9)},
		{"marathon in 2:54:54", DistanceMarathon, 10494, nil, ptr(55.4)},
		{"zone 2 HR scores slightly down", Distance10K, 3000, ptr(150), ptr(38.8)},
		{"zone 1 HR scores further down", Distance10K, 3000, ptr(120), ptr(38.0)},
		{"threshold HR at parity", Distance10K, 3000, ptr(170), ptr(40.0)},
		{"HR below resting is ignored", Distance10K, 3000, ptr(50), ptr(40.0)},
		{"implausible HR is ignored", Distance10K, 3000, ptr(300), ptr(40.0)},
		{"too short to be sustainable", Distance5K, 600, nil, nil},
		{"zero duration", Distance5K, 0, nil, nil},
		{"negative distance", -5, 1200, ptr(150), nil},
		{"walk below sanity floor", Distance5K, 5400, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.EstimateFitness(tt.distance, tt.duration, tt.hr)
			if tt.want == nil {
				if got != nil {
					t.Errorf("EstimateFitness() = %v, want nil", *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("EstimateFitness() = nil, want %v", *tt.want)
			}
			if math.Abs(*got-*tt.want) > 1e-9 {
				t.Errorf("EstimateFitness() = %v, want %v", *got, *tt.want)
			}
		})
	}
}

func TestEstimateFitness_Deterministic(t *testing.T) {
	e := NewFitnessEstimator(DefaultFitnessConfig())
	first := e.EstimateFitness(12000, 3700, ptr(155))
	for i := 0; i < 10; i++ {
		got := e.EstimateFitness(12000, 3700, ptr(155))
		if first == nil || got == nil || *got != *first {
			t.Fatalf("run %d: got %v, want %v", i, got, first)
		}
	}
}

func TestEstimateFitness_NonPositiveInputsAlwaysNil(t *testing.T) {
	e := NewFitnessEstimator(DefaultFitnessConfig())
	hrs := []*float64{nil, ptr(0), ptr(120), ptr(185)}
	for _, hr := range hrs {
		for _, d := range []float64{0, -1} {
			if got := e.EstimateFitness(d, 1800, hr); got != nil {
				t.Errorf("distance %v: got %v, want nil", d, *got)
			}
			if got := e.EstimateFitness(5000, d, hr); got != nil {
				t.Errorf("duration %v: got %v, want nil", d, *got)
			}
		}
	}
}

func TestEstimateFitness_CustomMultipliers(t *testing.T) {
	cfg := DefaultFitnessConfig()
	cfg.Multipliers = [NumZones]float64{1.1, 1.1, 1.1, 1.1, 1.1}
	e := NewFitnessEstimator(cfg)

	got := e.EstimateFitness(Distance10K, 3000, ptr(150))
	if got == nil || *got != 44.0 {
		t.Errorf("EstimateFitness() = %v, want 44.0", got)
	}
}

func TestEstimateTrainingLoad(t *testing.T) {
	e := NewFitnessEstimator(DefaultFitnessConfig())

	tests := []struct {
		name     string
		duration float64
		hr       *float64
		want     float64
	}{
		{"one hour without HR", 3600, nil, 100},
		{"one hour zone 1", 3600, ptr(120), 60},
		{"one hour zone 5", 3600, ptr(180), 150},
		{"half hour zone 3", 1800, ptr(160), 50},
		{"rounds to integer", 1000, nil, 28},
		{"zero duration", 0, ptr(150), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.EstimateTrainingLoad(tt.duration, tt.hr); got != tt.want {
				t.Errorf("EstimateTrainingLoad() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPredictRaceTime(t *testing.T) {
	tests := []struct {
		distance  float64
		want      float64
		tolerance float64
	}{
		{Distance5K, 1196, 2},
		{Distance10K, 2480, 2},
		{DistanceMarathon, 11440, 5},
	}

	for _, tt := range tests {
		got := PredictRaceTime(50, tt.distance)
		if math.Abs(got-tt.want) > tt.tolerance {
			t.Errorf("PredictRaceTime(50, %v) = %v, want ~%v", tt.distance, got, tt.want)
		}
	}

	if got := PredictRaceTime(0, Distance5K); got != 0 {
		t.Errorf("PredictRaceTime(0) = %v, want 0", got)
	}
}

func TestPredictRaceTime_RoundTrip(t *testing.T) {
	e := NewFitnessEstimator(DefaultFitnessConfig())
	seconds := PredictRaceTime(45, Distance10K)

	got := e.EstimateFitness(Distance10K, seconds, nil)
	if got == nil || math.Abs(*got-45) > 0.1 {
		t.Errorf("round trip gave %v, want ~45", got)
	}
}

func TestFitnessLabel(t *testing.T) {
	tests := []struct {
		vdot float64
		want string
	}{
		{80, "Elite"},
		{60, "Competitive"},
		{47, "Advanced Recreational"},
		{40, "Intermediate"},
		{25, "Novice"},
	}
	for _, tt := range tests {
		if got := FitnessLabel(tt.vdot); got != tt.want {
			t.Errorf("FitnessLabel(%v) = %q, want %q", tt.vdot, got, tt.want)
		}
	}
}

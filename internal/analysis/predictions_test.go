package analysis

import (
	"math"
	"testing"
)

func TestPredictRaces(t *testing.T) {
	predictions := PredictRaces(50)
	if len(predictions) != len(PredictionTargets) {
		t.Fatalf("expected %d predictions, got %d", len(PredictionTargets), len(predictions))
	}

	want := map[string]int{
		"5k":       1196,
		"10k":      2480,
		"half":     5491,
		"marathon": 11440,
	}

	for _, p := range predictions {
		w, ok := want[p.TargetName]
		if !ok {
			t.Errorf("unexpected target %q", p.TargetName)
			continue
		}
		if math.Abs(float64(p.PredictedSeconds-w)) > 5 {
			t.Errorf("%s = %ds, want ~%ds", p.TargetName, p.PredictedSeconds, w)
		}
		wantPace := float64(p.PredictedSeconds) / (p.TargetMeters / 1000)
		if math.Abs(p.PacePerKm-wantPace) > 1 {
			t.Errorf("%s pace = %v, want ~%v", p.TargetName, p.PacePerKm, wantPace)
		}
	}
}

func TestPredictRaces_LongerIsSlowerPerKm(t *testing.T) {
	predictions := PredictRaces(45)
	for i := 1; i < len(predictions); i++ {
		if predictions[i].PacePerKm <= predictions[i-1].PacePerKm {
			t.Errorf("%s pace %v should be slower than %s pace %v",
				predictions[i].TargetName, predictions[i].PacePerKm,
				predictions[i-1].TargetName, predictions[i-1].PacePerKm)
		}
	}
}

func TestPredictRaces_OutOfBounds(t *testing.T) {
	for _, vdot := range []float64{0, 19.9, 100.1} {
		if got := PredictRaces(vdot); got != nil {
			t.Errorf("PredictRaces(%v) = %v, want nil", vdot, got)
		}
	}
}

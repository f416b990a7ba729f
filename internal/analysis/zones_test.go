package analysis

import (
	"math"
	"testing"
)

func TestClassifyHeartRateZone(t *testing.T) {
	tests := []struct {
		hr    float64
		maxHR float64
		want  int
	}{
		{120, 190, 1},
		{132, 190, 1},
		{150, 190, 2},
		{160, 190, 3},
		{170, 190, 4},
		{180, 190, 5},
		{200, 190, 5},
		{0, 190, 0},
		{150, 0, 0},
	}

	for _, tt := range tests {
		if got := ClassifyHeartRateZone(tt.hr, tt.maxHR); got != tt.want {
			t.Errorf("ClassifyHeartRateZone(%v, %v) = %d, want %d", tt.hr, tt.maxHR, got, tt.want)
		}
	}
}

func TestPaceZoneBounds(t *testing.T) {
	bounds := PaceZoneBounds(50)
	if len(bounds) != NumZones {
		t.Fatalf("expected %d zones, got %d", NumZones, len(bounds))
	}

	want := map[int]PaceBounds{
		1: {Min: 293.53, Max: 351.89, Center: 319.84},
		2: {Min: 264.99, Max: 293.53, Center: 278.46},
		3: {Min: 255.2, Max: 264.99, Center: 259.99},
		4: {Min: 233.89, Max: 255.2, Center: 244.03},
		5: {Min: 198.48, Max: 233.89, Center: 214.56},
	}

	for zone, w := range want {
		got := bounds[zone]
		if math.Abs(got.Min-w.Min) > 0.01 || math.Abs(got.Max-w.Max) > 0.01 || math.Abs(got.Center-w.Center) > 0.01 {
			t.Errorf("zone %d = %+v, want %+v", zone, got, w)
		}
		if !(got.Min < got.Center && got.Center < got.Max) {
			t.Errorf("zone %d center %v outside (%v, %v)", zone, got.Center, got.Min, got.Max)
		}
	}
}

func TestPaceZoneBounds_Contiguous(t *testing.T) {
	for _, score := range []float64{30, 40, 50, 65} {
		bounds := PaceZoneBounds(score)
		for zone := 1; zone < NumZones; zone++ {
			if bounds[zone].Min != bounds[zone+1].Max {
				t.Errorf("score %v: zone %d min %v != zone %d max %v",
					score, zone, bounds[zone].Min, zone+1, bounds[zone+1].Max)
			}
		}
	}
}

func TestPaceZoneBounds_LowerScoreIsSlower(t *testing.T) {
	b40 := PaceZoneBounds(40)
	b50 := PaceZoneBounds(50)

	if math.Abs(b40[1].Min-350.94) > 0.01 || math.Abs(b40[1].Max-419.44) > 0.01 {
		t.Errorf("score 40 zone 1 = %+v, want [350.94, 419.44]", b40[1])
	}
	for zone := 1; zone <= NumZones; zone++ {
		if b40[zone].Center <= b50[zone].Center {
			t.Errorf("zone %d: score 40 center %v should be slower than score 50 center %v",
				zone, b40[zone].Center, b50[zone].Center)
		}
	}
}

func TestPaceZoneBounds_Invalid(t *testing.T) {
	if got := PaceZoneBounds(0); got != nil {
		t.Errorf("PaceZoneBounds(0) = %v, want nil", got)
	}
	if got := PaceZoneBounds(-10); got != nil {
		t.Errorf("PaceZoneBounds(-10) = %v, want nil", got)
	}
}

func TestPaceBoundsContains(t *testing.T) {
	b := PaceBounds{Min: 250, Max: 300}
	tests := []struct {
		pace float64
		want bool
	}{
		{250, true},
		{275, true},
		{300, true},
		{249.9, false},
		{300.1, false},
	}
	for _, tt := range tests {
		if got := b.Contains(tt.pace); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.pace, got, tt.want)
		}
	}
}

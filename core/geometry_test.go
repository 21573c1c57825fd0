package core

import (
	"math"
	"testing"
)

func TestRamp(t *testing.T) {
	tests := []struct {
		v, want float64
	}{
		{4, 0},
		{5, 0},
		{6.5, 0.5},
		{8, 1},
		{12, 1},
	}
	for _, tt := range tests {
		if got := ramp(tt.v, 5, 8); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("ramp(%v, 5, 8) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestAngleConversionRoundTrip(t *testing.T) {
	for _, deg := range []float64{0, 30, 45, 89.9, 180} {
		if got := radToDeg(degToRad(deg)); math.Abs(got-deg) > 1e-12 {
			t.Errorf("radToDeg(degToRad(%v)) = %v", deg, got)
		}
	}
	if got := degToRad(90); math.Abs(got-math.Pi/2) > 1e-15 {
		t.Errorf("degToRad(90) = %v, want pi/2", got)
	}
}

func TestClampAndFinite(t *testing.T) {
	if got := clamp(30, 2, 25); got != 25 {
		t.Errorf("clamp(30, 2, 25) = %v, want 25", got)
	}
	if got := clamp(-1, 2, 25); got != 2 {
		t.Errorf("clamp(-1, 2, 25) = %v, want 2", got)
	}
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if finite(v) {
			t.Errorf("finite(%v) = true, want false", v)
		}
	}
	if !finite(0) {
		t.Errorf("finite(0) = false, want true")
	}
}

package core

import (
	"math"
	"testing"
)

func TestRefractiveIndexVacuum(t *testing.T) {
	for _, f := range []float64{1e6, 14e6, 30e6} {
		for _, nu := range []float64{1, 1e3, 3.5e5} {
			n := RefractiveIndex(0, f, nu)
			if real(n) != 1 || imag(n) != 0 {
				t.Fatalf("RefractiveIndex(0, %v, %v) = %v, want 1+0i", f, nu, n)
			}
		}
	}
}

func TestRefractiveIndexAboveCriticalDensity(t *testing.T) {
	f := 5e6
	omega := 2 * math.Pi * f
	ne := 4 * omega * omega / plasmaConstant // X = 4
	n2 := RefractiveIndexSquared(ne, f, 1e3)
	if real(n2) >= 0 {
		t.Fatalf("Re(n²) = %v, want negative", real(n2))
	}
	n := RefractiveIndex(ne, f, 1e3)
	if real(n) < 0 || imag(n) < 0 {
		t.Fatalf("n = %v, want non-negative real and imaginary parts", n)
	}
	if real(n) > 1e-3 {
		t.Fatalf("Re(n) = %v, want close to zero", real(n))
	}
}

func TestPlasmaFrequency(t *testing.T) {
	if got := PlasmaFrequencyHz(0); got != 0 {
		t.Fatalf("PlasmaFrequencyHz(0) = %v, want 0", got)
	}
	if got := PlasmaFrequencyHz(-1); got != 0 {
		t.Fatalf("PlasmaFrequencyHz(-1) = %v, want 0", got)
	}
	// fp ≈ 8.98·sqrt(Ne) Hz.
	got := PlasmaFrequencyHz(1e12)
	if math.Abs(got-8.98e6)/8.98e6 > 1e-3 {
		t.Fatalf("PlasmaFrequencyHz(1e12) = %v, want ~8.98e6", got)
	}
}

func TestCollisionFrequency(t *testing.T) {
	tests := []struct {
		z    float64
		want float64
	}{
		{70, 3.5e5},
		{90, 1e5},
		{110, 1e5 * math.Exp(-1)},
		{150, 1e3},
		{400, 1e3},
	}
	for _, tt := range tests {
		if got := CollisionFrequencyHz(tt.z); math.Abs(got-tt.want)/tt.want > 1e-12 {
			t.Errorf("CollisionFrequencyHz(%v) = %v, want %v", tt.z, got, tt.want)
		}
	}
	if got, want := CollisionFrequencyHz(-25), CollisionFrequencyHz(0); got != want {
		t.Fatalf("CollisionFrequencyHz(-25) = %v, want ground value %v", got, want)
	}
}

func TestAbsorptionFallsWithFrequency(t *testing.T) {
	const ne = 1e11 // fp ≈ 2.8 MHz
	for _, nu := range []float64{1e3, 1e5, 3.5e5} {
		prev := math.Inf(1)
		for f := 6e6; f <= 30e6; f += 0.5e6 {
			a := AbsorptionCoefficient(ne, f, nu)
			if a < 0 {
				t.Fatalf("AbsorptionCoefficient(%v, %v, %v) = %v, want >= 0", ne, f, nu, a)
			}
			if a > prev {
				t.Fatalf("absorption rose from %v to %v at %v Hz (nu=%v)", prev, a, f, nu)
			}
			prev = a
		}
	}
}

func TestAbsorptionWithoutCollisionsIsZero(t *testing.T) {
	if got := AbsorptionCoefficient(1e11, 10e6, 0); got != 0 {
		t.Fatalf("AbsorptionCoefficient with nu=0 = %v, want 0", got)
	}
}

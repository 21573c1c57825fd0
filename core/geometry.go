package core

import "math"

// EarthRadiusKm is the mean Earth radius used by the spherical ray
// geometry (kilometres).
const EarthRadiusKm = 6371.0

// Physical constants (SI, CODATA 2018).
const (
	SpeedOfLight       = 299792458.0
	ElectronCharge     = 1.602176634e-19
	ElectronMass       = 9.1093837015e-31
	VacuumPermittivity = 8.8541878128e-12
)

// NepersToDB converts an accumulated attenuation in nepers to decibels.
const NepersToDB = 8.686

// Altitude window of the ionosphere seen by the integrator. Density is
// treated as zero outside it.
const (
	GroundAltitudeKm     = 0.0
	IonosphereCeilingKm  = 600.0
	escapeAltitudeKm     = 800.0
	minStepsBeforeReturn = 10
)

func degToRad(deg float64) float64 { return deg * math.Pi / 180 }

func radToDeg(rad float64) float64 { return rad * 180 / math.Pi }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// ramp maps v linearly from 0 at lo to 1 at hi, saturating on both sides.
func ramp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return 0
	case v >= hi:
		return 1
	}
	return (v - lo) / (hi - lo)
}

// finite reports whether v is neither NaN nor infinite.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

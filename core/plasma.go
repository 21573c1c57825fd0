package core

import (
	"math"
	"math/cmplx"
)

// plasmaConstant is e²/(ε₀·mₑ); multiplied by Ne it gives ωp².
const plasmaConstant = ElectronCharge * ElectronCharge / (VacuumPermittivity * ElectronMass)

// indexFloor keeps the absorption denominator away from zero near
// reflection.
const indexFloor = 1e-10

// PlasmaFrequencyHz returns the electron plasma frequency for density ne
// (m^-3). Non-positive densities give zero.
func PlasmaFrequencyHz(ne float64) float64 {
	if ne <= 0 {
		return 0
	}
	return math.Sqrt(ne*plasmaConstant) / (2 * math.Pi)
}

// CollisionFrequencyHz returns the electron-neutral collision frequency at
// altitude z. Altitudes below ground are evaluated at ground level.
func CollisionFrequencyHz(z float64) float64 {
	z = math.Max(0, z)
	switch {
	case z < 90:
		return 3.5e5 * math.Exp(-(z-70)/8)
	case z < 150:
		return 1e5 * math.Exp(-(z-90)/20)
	default:
		return 1e3
	}
}

// RefractiveIndexSquared returns the Appleton-Hartree n² without the
// magnetic field term, for density ne, wave frequency fHz and collision
// frequency nu.
func RefractiveIndexSquared(ne, fHz, nu float64) complex128 {
	omega := 2 * math.Pi * fHz
	x := ne * plasmaConstant / (omega * omega)
	z := nu / omega
	d := 1 + z*z
	return complex(1-x/d, x*z/d)
}

// RefractiveIndex returns the principal square root of n², with a
// non-negative real part.
func RefractiveIndex(ne, fHz, nu float64) complex128 {
	return principalSqrt(RefractiveIndexSquared(ne, fHz, nu))
}

// AbsorptionCoefficient returns the power attenuation rate in Np/km.
func AbsorptionCoefficient(ne, fHz, nu float64) float64 {
	n2 := RefractiveIndexSquared(ne, fHz, nu)
	return absorptionFrom(n2, principalSqrt(n2), fHz)
}

func absorptionFrom(n2, n complex128, fHz float64) float64 {
	omega := 2 * math.Pi * fHz
	return omega / (2 * SpeedOfLight) * math.Abs(imag(n2)) / math.Max(real(n), indexFloor) * 1000
}

func principalSqrt(z complex128) complex128 {
	return cmplx.Rect(math.Sqrt(cmplx.Abs(z)), cmplx.Phase(z)/2)
}

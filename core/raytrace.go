package core

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/ionoprop/model"
)

// Defaults for TraceOptions.
const (
	DefaultMaxDistanceKm = 10000.0
	DefaultStepKm        = 1.0

	// MaxTraceSteps bounds MaxDistanceKm/StepKm. The integrator may halve
	// the step near a turning point, so the actual count can be higher.
	MaxTraceSteps = 1_000_000
)

// Thresholds of the step loop.
const (
	reflectionIndex   = 1e-8  // |Re n| below this forces a reflection
	reflectionSinPsi  = 0.999 // clamp applied to sinψ at a turning point
	fineStepIndex     = 0.1   // Re n below this halves the step
	fineStepSinPsi    = 0.95  // |sinψ| above this halves the step
	azimuthMinSinPsi  = 0.1
	azimuthMinIndex   = 0.05
	azimuthTaperWidth = 0.1
	gradientCoarseKm  = 1.0
	gradientFineKm    = 0.5
)

// Medium answers electron density queries for the integrator. Altitude
// and horizontal range are in kilometres. Implementations must be safe
// for concurrent use.
type Medium interface {
	ElectronDensity(altitudeKm, horizontalKm float64) float64
}

// DensityFunc adapts a horizontally uniform density function to Medium.
type DensityFunc func(altitudeKm float64) float64

// ElectronDensity implements Medium.
func (f DensityFunc) ElectronDensity(altitudeKm, _ float64) float64 { return f(altitudeKm) }

// DensityFunc2D adapts a range-dependent density function to Medium.
type DensityFunc2D func(altitudeKm, horizontalKm float64) float64

// ElectronDensity implements Medium.
func (f DensityFunc2D) ElectronDensity(altitudeKm, horizontalKm float64) float64 {
	return f(altitudeKm, horizontalKm)
}

// TraceOptions selects the optional side computations of Trace. The zero
// value traces with default distance and step and records nothing but the
// summary fields.
type TraceOptions struct {
	// MaxDistanceKm bounds the ground range. Zero means DefaultMaxDistanceKm.
	MaxDistanceKm float64
	// StepKm is the nominal path step. Zero means DefaultStepKm.
	StepKm float64

	RecordPath bool
	Absorption bool
	// Azimuth integrates the lateral deflection caused by a horizontal
	// density gradient. It only has an effect for range-dependent media.
	Azimuth bool
}

// Normalized fills in defaults and validates the distance and step.
func (o TraceOptions) Normalized() (TraceOptions, error) {
	if o.MaxDistanceKm == 0 {
		o.MaxDistanceKm = DefaultMaxDistanceKm
	}
	if o.StepKm == 0 {
		o.StepKm = DefaultStepKm
	}
	if !finite(o.MaxDistanceKm) || o.MaxDistanceKm < 0 {
		return o, fmt.Errorf("%w: max distance %v km", ErrInvalidDistance, o.MaxDistanceKm)
	}
	if !finite(o.StepKm) || o.StepKm < 0 || o.StepKm > o.MaxDistanceKm {
		return o, fmt.Errorf("%w: step %v km with max distance %v km", ErrInvalidStep, o.StepKm, o.MaxDistanceKm)
	}
	if o.MaxDistanceKm/o.StepKm > MaxTraceSteps {
		return o, fmt.Errorf("%w: %v km over %v km exceeds %d steps", ErrInvalidStep, o.MaxDistanceKm, o.StepKm, MaxTraceSteps)
	}
	return o, nil
}

// ValidateLaunch checks a frequency and elevation pair.
func ValidateLaunch(frequencyMHz, elevationDeg float64) error {
	if !finite(frequencyMHz) || frequencyMHz <= 0 {
		return fmt.Errorf("%w: %v MHz must be positive", ErrInvalidFrequency, frequencyMHz)
	}
	if !finite(elevationDeg) || elevationDeg <= 0 || elevationDeg >= 90 {
		return fmt.Errorf("%w: %v deg must lie in (0, 90)", ErrInvalidElevation, elevationDeg)
	}
	return nil
}

// Trace integrates a ray launched at elevationDeg above the horizon through
// medium using the conserved spherical ray parameter b = n·r·sinψ, where ψ
// is measured from the local vertical. Reflection, escape and running out
// of range are reported in the result status, never as errors.
func Trace(frequencyMHz, elevationDeg float64, medium Medium, opts TraceOptions) (*model.RayTraceResult, error) {
	if err := ValidateLaunch(frequencyMHz, elevationDeg); err != nil {
		return nil, err
	}
	if medium == nil {
		return nil, ErrNilMedium
	}
	opts, err := opts.Normalized()
	if err != nil {
		return nil, err
	}

	rt := &rayTracer{
		fHz:    frequencyMHz * 1e6,
		medium: medium,
		opts:   opts,
		r:      EarthRadiusKm,
		up:     true,
		res: &model.RayTraceResult{
			FrequencyMHz: frequencyMHz,
			ElevationDeg: elevationDeg,
			HasLoss:      opts.Absorption,
		},
	}
	n0 := real(rt.index(0, 0, CollisionFrequencyHz(0)))
	rt.b = n0 * EarthRadiusKm * math.Sin(degToRad(90-elevationDeg))
	rt.record()
	rt.res.Status = rt.run()
	rt.finish()
	return rt.res, nil
}

// RayParameter returns b for a launch at elevationDeg, as Trace fixes it.
// ψ is the zenith angle, so ψ₀ = 90° − elevation, not the elevation itself.
func RayParameter(frequencyMHz, elevationDeg float64, medium Medium) float64 {
	ne := clippedDensity(medium, 0, 0)
	n0 := real(RefractiveIndex(ne, frequencyMHz*1e6, CollisionFrequencyHz(0)))
	return n0 * EarthRadiusKm * math.Sin(degToRad(90-elevationDeg))
}

type rayTracer struct {
	fHz    float64
	medium Medium
	opts   TraceOptions
	b      float64

	r, theta, x, phi float64
	up               bool
	lossNepers       float64
	apex             float64
	steps            int

	res *model.RayTraceResult
}

func clippedDensity(m Medium, z, x float64) float64 {
	if z < GroundAltitudeKm || z > IonosphereCeilingKm {
		return 0
	}
	return m.ElectronDensity(z, x)
}

func (rt *rayTracer) index(z, x, nu float64) complex128 {
	return RefractiveIndex(clippedDensity(rt.medium, z, x), rt.fHz, nu)
}

func (rt *rayTracer) run() model.RayStatus {
	maxIter := int(rt.opts.MaxDistanceKm / rt.opts.StepKm)
	for i := 0; i < maxIter; i++ {
		z := rt.r - EarthRadiusKm
		if z < 0 && rt.steps > minStepsBeforeReturn {
			return model.RayReturns
		}

		ne := clippedDensity(rt.medium, z, rt.x)
		nu := CollisionFrequencyHz(z)
		n2 := RefractiveIndexSquared(ne, rt.fHz, nu)
		n := principalSqrt(n2)
		nr := real(n)

		var sinPsi float64
		if math.Abs(nr) < reflectionIndex {
			sinPsi = 1
			rt.up = false
		} else {
			sinPsi = rt.b / (nr * rt.r)
		}
		if real(n2) <= 0 {
			rt.up = false
		}
		if math.Abs(sinPsi) >= 1 {
			if rt.up && z > IonosphereCeilingKm {
				return model.RayEscapes
			}
			rt.up = false
			sinPsi = math.Copysign(reflectionSinPsi, sinPsi)
		}
		if rt.up && z > escapeAltitudeKm {
			return model.RayEscapes
		}

		ds := rt.opts.StepKm
		if nr < fineStepIndex || math.Abs(sinPsi) > fineStepSinPsi {
			ds *= 0.5
		}
		cosPsi := math.Sqrt(1 - sinPsi*sinPsi)

		if rt.opts.Absorption {
			rt.lossNepers += absorptionFrom(n2, n, rt.fHz) * ds
		}
		if rt.opts.Azimuth {
			rt.phi += rt.azimuthRate(z, nu, nr, sinPsi) * ds
		}

		dr := ds * cosPsi
		if !rt.up {
			dr = -dr
		}
		dTheta := ds * sinPsi / rt.r
		rt.r += dr
		rt.theta += dTheta
		rt.x += math.Abs(dTheta * EarthRadiusKm)
		rt.steps++
		rt.apex = math.Max(rt.apex, rt.r-EarthRadiusKm)
		rt.record()

		if rt.theta*EarthRadiusKm > rt.opts.MaxDistanceKm {
			return model.RayStops
		}
	}
	return model.RayStops
}

// azimuthRate returns dφ/ds in radians per km from the horizontal
// gradient of Re n, tapered to zero near the turning point.
func (rt *rayTracer) azimuthRate(z, nu, nr, sinPsi float64) float64 {
	s := math.Abs(sinPsi)
	if s <= azimuthMinSinPsi || nr <= azimuthMinIndex {
		return 0
	}

	dx := gradientCoarseKm
	if nr < fineStepIndex {
		dx = gradientFineKm
	}
	var grad float64
	plus := real(rt.index(z, rt.x+dx, nu))
	if rt.x > dx {
		minus := real(rt.index(z, rt.x-dx, nu))
		grad = (plus - minus) / (2 * dx)
	} else {
		grad = (plus - nr) / dx
	}

	taper := clamp((1-s)/azimuthTaperWidth, 0, 1) * clamp((nr-azimuthMinIndex)/azimuthTaperWidth, 0, 1)
	return -(1 / nr) * grad / s * taper
}

func (rt *rayTracer) record() {
	if !rt.opts.RecordPath {
		return
	}
	rt.res.Distances = append(rt.res.Distances, rt.theta*EarthRadiusKm)
	rt.res.Altitudes = append(rt.res.Altitudes, rt.r-EarthRadiusKm)
	if rt.opts.Azimuth {
		rt.res.Azimuths = append(rt.res.Azimuths, radToDeg(rt.phi))
	}
}

func (rt *rayTracer) finish() {
	rt.res.GroundRangeKm = rt.theta * EarthRadiusKm
	rt.res.ApexAltitudeKm = rt.apex
	rt.res.FinalAzimuth = radToDeg(rt.phi)
	rt.res.Steps = rt.steps
	if rt.opts.Absorption {
		rt.res.TotalLossDB = rt.lossNepers * NepersToDB
	}
}

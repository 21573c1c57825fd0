package core

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/ionoprop/model"
)

// Fixed geometry and base strengths of the lower layers.
const (
	dPeakAltitudeKm  = 75.0
	dScaleHeightKm   = 8.0
	dBaseDensity     = 1.5e9
	ePeakAltitudeKm  = 110.0
	eScaleHeightKm   = 15.0
	eBaseDensity     = 8e10
	f1PeakAltitudeKm = 190.0
	f1ScaleHeightKm  = 30.0
	f1BaseDensity    = 6e11
)

// Regime boundaries on foF2 (MHz).
const (
	nightUpperFoF2 = 4.5
	dayLowerFoF2   = 7.0
)

// Bounds applied to the locally interpolated foF2 of a tilted profile.
const (
	MinFoF2MHz = 2.0
	MaxFoF2MHz = 25.0
)

// Chapman evaluates a single Chapman layer at altitude z.
func Chapman(z, peakDensity, peakAltitudeKm, scaleHeightKm float64) float64 {
	if peakDensity == 0 {
		return 0
	}
	u := (z - peakAltitudeKm) / scaleHeightKm
	return peakDensity * math.Exp(1-u-math.Exp(-u))
}

// RegimeFor classifies foF2 into the night, transition or day regime.
func RegimeFor(foF2 float64) model.Regime {
	switch {
	case foF2 < nightUpperFoF2:
		return model.RegimeNight
	case foF2 < dayLowerFoF2:
		return model.RegimeTransition
	default:
		return model.RegimeDay
	}
}

// DFactor scales the D layer from absent at night to full strength by day.
func DFactor(foF2 float64) float64 { return ramp(foF2, 5, 8) }

// F1Factor scales the F1 layer across the transition regime.
func F1Factor(foF2 float64) float64 { return ramp(foF2, nightUpperFoF2, dayLowerFoF2) }

// EFactor scales the E layer between half strength and full strength.
func EFactor(foF2 float64) float64 { return 0.5 + 0.5*math.Min(1, foF2/12) }

// F2PeakDensity converts a critical frequency in MHz to a peak electron
// density in m^-3.
func F2PeakDensity(foF2 float64) float64 {
	v := foF2 * 1e6 / 8.98
	return v * v
}

// F2PeakAltitudeKm returns h_F2 for the given regime driver and season.
func F2PeakAltitudeKm(foF2 float64, season model.Season) float64 {
	regime := RegimeFor(foF2)

	var h float64
	switch regime {
	case model.RegimeNight:
		h = clamp(260+36*(nightUpperFoF2-foF2), 260, 350)
	case model.RegimeTransition:
		h = 300 - 8*(foF2-nightUpperFoF2)
	default:
		h = clamp(300-2*(foF2-dayLowerFoF2), 250, 300)
	}

	switch season {
	case model.SeasonSummer:
		h -= 10
	case model.SeasonWinter:
		if regime == model.RegimeDay {
			h += 10
		} else {
			h += 15
		}
	}

	switch regime {
	case model.RegimeNight:
		return clamp(h, 260, 360)
	case model.RegimeTransition:
		return clamp(h, 280, 320)
	default:
		return clamp(h, 240, 330)
	}
}

// F2ScaleHeightKm returns H_F2, thicker in winter and thinner in summer.
func F2ScaleHeightKm(foF2 float64, season model.Season) float64 {
	var h float64
	switch RegimeFor(foF2) {
	case model.RegimeNight:
		h = 70
	case model.RegimeTransition:
		h = 70 - 15*(foF2-nightUpperFoF2)/(dayLowerFoF2-nightUpperFoF2)
	default:
		h = 55
	}
	switch season {
	case model.SeasonWinter:
		h *= 1.2
	case model.SeasonSummer:
		h *= 0.8
	}
	return h
}

// DeriveLayers builds the D, E, F1 and F2 layers for one foF2 and season.
func DeriveLayers(foF2 float64, season model.Season) [4]model.Layer {
	return [4]model.Layer{
		{
			Name:           model.LayerD,
			PeakDensity:    dBaseDensity * DFactor(foF2),
			PeakAltitudeKm: dPeakAltitudeKm,
			ScaleHeightKm:  dScaleHeightKm,
		},
		{
			Name:           model.LayerE,
			PeakDensity:    eBaseDensity * EFactor(foF2),
			PeakAltitudeKm: ePeakAltitudeKm,
			ScaleHeightKm:  eScaleHeightKm,
		},
		{
			Name:           model.LayerF1,
			PeakDensity:    f1BaseDensity * F1Factor(foF2),
			PeakAltitudeKm: f1PeakAltitudeKm,
			ScaleHeightKm:  f1ScaleHeightKm,
		},
		{
			Name:           model.LayerF2,
			PeakDensity:    F2PeakDensity(foF2),
			PeakAltitudeKm: F2PeakAltitudeKm(foF2, season),
			ScaleHeightKm:  F2ScaleHeightKm(foF2, season),
		},
	}
}

// Profile is a horizontally uniform four-layer electron density profile.
// The zero value is not useful; build one with NewProfile.
type Profile struct {
	params model.IonosphereParams
	layers [4]model.Layer
}

// NewProfile validates foF2 and derives the layer set for it.
func NewProfile(params model.IonosphereParams) (*Profile, error) {
	if !finite(params.FoF2MHz) || params.FoF2MHz <= 0 {
		return nil, fmt.Errorf("%w: foF2 %v MHz must be positive", ErrInvalidFoF2, params.FoF2MHz)
	}
	p := profileFor(params.FoF2MHz, params.Season)
	return &p, nil
}

func profileFor(foF2 float64, season model.Season) Profile {
	return Profile{
		params: model.IonosphereParams{FoF2MHz: foF2, Season: season},
		layers: DeriveLayers(foF2, season),
	}
}

// Params returns the parameters the profile was built from.
func (p *Profile) Params() model.IonosphereParams { return p.params }

// Layers returns a copy of the derived layers in D, E, F1, F2 order.
func (p *Profile) Layers() [4]model.Layer { return p.layers }

// LayerDensities returns the contribution of each layer at altitude z.
func (p *Profile) LayerDensities(z float64) [4]float64 {
	var out [4]float64
	for i, l := range p.layers {
		out[i] = Chapman(z, l.PeakDensity, l.PeakAltitudeKm, l.ScaleHeightKm)
	}
	return out
}

// Density returns the total electron density (m^-3) at altitude z.
func (p *Profile) Density(z float64) float64 {
	d := p.LayerDensities(z)
	return d[0] + d[1] + d[2] + d[3]
}

// ElectronDensity implements Medium. The profile ignores horizontal range.
func (p *Profile) ElectronDensity(altitudeKm, _ float64) float64 {
	return p.Density(altitudeKm)
}

// Sample evaluates the profile at each altitude, including per-layer
// densities and the local plasma frequency.
func (p *Profile) Sample(altitudes []float64) []model.ProfileSample {
	out := make([]model.ProfileSample, 0, len(altitudes))
	for _, z := range altitudes {
		d := p.LayerDensities(z)
		total := d[0] + d[1] + d[2] + d[3]
		out = append(out, model.ProfileSample{
			AltitudeKm:    z,
			D:             d[0],
			E:             d[1],
			F1:            d[2],
			F2:            d[3],
			Total:         total,
			PlasmaFreqMHz: PlasmaFrequencyHz(total) / 1e6,
		})
	}
	return out
}

// MaxProfileSamples bounds the length of an AltitudeGrid.
const MaxProfileSamples = 100_000

// AltitudeGrid returns evenly spaced altitudes from lo to hi inclusive.
func AltitudeGrid(loKm, hiKm, stepKm float64) ([]float64, error) {
	if !finite(stepKm) || stepKm <= 0 {
		return nil, fmt.Errorf("%w: altitude step %v km must be positive", ErrInvalidStep, stepKm)
	}
	if !finite(loKm) || !finite(hiKm) || hiKm < loKm {
		return nil, fmt.Errorf("%w: altitude range [%v, %v] km", ErrInvalidDistance, loKm, hiKm)
	}
	span := math.Floor((hiKm - loKm) / stepKm)
	if span >= MaxProfileSamples {
		return nil, fmt.Errorf("%w: altitude step %v km over [%v, %v] km exceeds %d samples", ErrInvalidStep, stepKm, loKm, hiKm, MaxProfileSamples)
	}
	n := int(span) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = loKm + float64(i)*stepKm
	}
	return out, nil
}

// DensityAt returns the one-dimensional electron density at altitude z.
// foF2 is not validated.
func DensityAt(z, foF2 float64, season model.Season) float64 {
	p := profileFor(foF2, season)
	return p.Density(z)
}

// TiltedProfile varies foF2 linearly with horizontal range, from the
// transmitter value at x=0 to the reference value at RefDistanceKm, and
// extrapolates beyond it.
type TiltedProfile struct {
	params model.TiltParams
}

// NewTiltedProfile validates the tilt endpoints and reference distance.
func NewTiltedProfile(params model.TiltParams) (*TiltedProfile, error) {
	for _, f := range []float64{params.FoF2TxMHz, params.FoF2RefMHz} {
		if !finite(f) || f < MinFoF2MHz || f > MaxFoF2MHz {
			return nil, fmt.Errorf("%w: foF2 %v MHz outside [%v, %v]", ErrInvalidFoF2, f, MinFoF2MHz, MaxFoF2MHz)
		}
	}
	if !finite(params.RefDistanceKm) || params.RefDistanceKm <= 0 {
		return nil, fmt.Errorf("%w: reference distance %v km must be positive", ErrInvalidDistance, params.RefDistanceKm)
	}
	return &TiltedProfile{params: params}, nil
}

// Params returns the tilt parameters.
func (t *TiltedProfile) Params() model.TiltParams { return t.params }

// LocalFoF2 returns the interpolated foF2 at horizontal range x, clamped
// to [MinFoF2MHz, MaxFoF2MHz].
func (t *TiltedProfile) LocalFoF2(x float64) float64 {
	p := t.params
	f := p.FoF2TxMHz + (p.FoF2RefMHz-p.FoF2TxMHz)*(x/p.RefDistanceKm)
	return clamp(f, MinFoF2MHz, MaxFoF2MHz)
}

// Density returns the electron density at altitude z and horizontal range x.
func (t *TiltedProfile) Density(z, x float64) float64 {
	return DensityAt(z, t.LocalFoF2(x), t.params.Season)
}

// ElectronDensity implements Medium.
func (t *TiltedProfile) ElectronDensity(altitudeKm, horizontalKm float64) float64 {
	return t.Density(altitudeKm, horizontalKm)
}

// Density2DAt evaluates a tilted profile without validating its inputs.
func Density2DAt(z, x, foF2Tx, foF2Ref, refDistanceKm float64, season model.Season) float64 {
	t := TiltedProfile{params: model.TiltParams{
		FoF2TxMHz:     foF2Tx,
		FoF2RefMHz:    foF2Ref,
		RefDistanceKm: refDistanceKm,
		Season:        season,
	}}
	return t.Density(z, x)
}

package model

// Scenario is a named set of ionospheric conditions and launch
// parameters. When Tilt is non-nil the scenario describes a 2D
// ionosphere and FoF2MHz is ignored.
type Scenario struct {
	ID          string
	Name        string
	Description string

	FoF2MHz float64
	Season  Season
	Tilt    *TiltParams

	ElevationDeg   float64
	FrequenciesMHz []float64
}

// IsTilted reports whether the scenario uses a horizontal gradient.
func (s *Scenario) IsTilted() bool {
	return s != nil && s.Tilt != nil
}

// Frequencies returns the scenario frequencies, falling back to
// AmateurBandsMHz when none are set.
func (s *Scenario) Frequencies() []float64 {
	if s == nil || len(s.FrequenciesMHz) == 0 {
		out := make([]float64, len(AmateurBandsMHz))
		copy(out, AmateurBandsMHz)
		return out
	}
	out := make([]float64, len(s.FrequenciesMHz))
	copy(out, s.FrequenciesMHz)
	return out
}

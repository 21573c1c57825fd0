package model

// RayStatus is the terminal state of a traced ray.
type RayStatus string

const (
	// RayReturns means the ray came back to the ground.
	RayReturns RayStatus = "returns"
	// RayEscapes means the ray passed through the ionosphere.
	RayEscapes RayStatus = "escapes"
	// RayStops means the distance or iteration budget ran out first.
	RayStops RayStatus = "stops"
)

// Valid reports whether s is one of the three terminal states.
func (s RayStatus) Valid() bool {
	switch s {
	case RayReturns, RayEscapes, RayStops:
		return true
	}
	return false
}

// RayTraceResult is the record handed to plotting and transport layers.
// Distances, Altitudes and Azimuths are parallel sequences and are only
// populated when path recording was requested; Azimuths additionally
// requires azimuth tracking.
type RayTraceResult struct {
	FrequencyMHz float64 `json:"frequency_mhz"`
	ElevationDeg float64 `json:"elevation_deg"`

	Distances []float64 `json:"distances_km,omitempty"`
	Altitudes []float64 `json:"altitudes_km,omitempty"`
	Azimuths  []float64 `json:"azimuths_deg,omitempty"`

	// TotalLossDB is meaningful only when HasLoss is set.
	TotalLossDB float64 `json:"total_loss_db,omitempty"`
	HasLoss     bool    `json:"has_loss"`

	Status RayStatus `json:"status"`

	// Summary values filled in on every trace.
	GroundRangeKm  float64 `json:"ground_range_km"`
	ApexAltitudeKm float64 `json:"apex_altitude_km"`
	FinalAzimuth   float64 `json:"final_azimuth_deg"`
	Steps          int     `json:"steps"`
}

// SignalQuality buckets an absorption loss for display.
type SignalQuality string

const (
	QualityExcellent SignalQuality = "excellent"
	QualityGood      SignalQuality = "good"
	QualityWeak      SignalQuality = "weak"
	QualityVeryWeak  SignalQuality = "very_weak"
)

// QualityForLoss classifies a total path loss in dB.
func QualityForLoss(lossDB float64) SignalQuality {
	switch {
	case lossDB < 10:
		return QualityExcellent
	case lossDB < 30:
		return QualityGood
	case lossDB < 60:
		return QualityWeak
	default:
		return QualityVeryWeak
	}
}

// AmateurBandsMHz is the default frequency set traced for one view,
// one representative frequency per HF amateur band.
var AmateurBandsMHz = []float64{1.8, 3.5, 5.3, 7.0, 10.1, 14.0, 18.068, 21.0, 24.89, 28.0}

package model

// LayerName identifies one of the four ionospheric layers.
type LayerName string

const (
	LayerD  LayerName = "D"
	LayerE  LayerName = "E"
	LayerF1 LayerName = "F1"
	LayerF2 LayerName = "F2"
)

// Layer is a single Chapman layer.
type Layer struct {
	Name           LayerName `json:"name"`
	PeakDensity    float64   `json:"peak_density_m3"`
	PeakAltitudeKm float64   `json:"peak_altitude_km"`
	ScaleHeightKm  float64   `json:"scale_height_km"`
}

// Regime is the diurnal regime implied by foF2.
type Regime string

const (
	RegimeNight      Regime = "night"
	RegimeTransition Regime = "transition"
	RegimeDay        Regime = "day"
)

// IonosphereParams parameterise a horizontally uniform ionosphere.
type IonosphereParams struct {
	FoF2MHz float64
	Season  Season
}

// TiltParams parameterise an ionosphere whose foF2 varies linearly with
// ground distance from the transmitter.
type TiltParams struct {
	FoF2TxMHz     float64 // foF2 above the transmitter
	FoF2RefMHz    float64 // foF2 at RefDistanceKm
	RefDistanceKm float64
	Season        Season
}

// ProfileSample is one altitude row of a sampled density profile.
type ProfileSample struct {
	AltitudeKm    float64 `json:"altitude_km"`
	D             float64 `json:"d_m3"`
	E             float64 `json:"e_m3"`
	F1            float64 `json:"f1_m3"`
	F2            float64 `json:"f2_m3"`
	Total         float64 `json:"total_m3"`
	PlasmaFreqMHz float64 `json:"plasma_frequency_mhz"`
}

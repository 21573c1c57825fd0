package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/ionoprop/core"
	"github.com/signalsfoundry/ionoprop/internal/sweep"
	"github.com/signalsfoundry/ionoprop/model"
)

// ErrInvalidRequest marks documents that do not decode into a request.
var ErrInvalidRequest = errors.New("invalid request")

// TiltSpec selects a tilted ionosphere.
type TiltSpec struct {
	FoF2TxMHz     float64 `json:"fof2_tx_mhz"`
	FoF2RefMHz    float64 `json:"fof2_ref_mhz"`
	RefDistanceKm float64 `json:"ref_distance_km"`
}

// IonosphereSpec names a catalog scenario and/or overrides its parameters.
// Without a scenario, FoF2MHz or Tilt must be set.
type IonosphereSpec struct {
	ScenarioID string    `json:"scenario_id,omitempty"`
	FoF2MHz    float64   `json:"fof2_mhz,omitempty"`
	Season     string    `json:"season,omitempty"`
	Tilt       *TiltSpec `json:"tilt,omitempty"`
}

// TraceRequest asks for one ray.
type TraceRequest struct {
	IonosphereSpec
	FrequencyMHz  float64 `json:"frequency_mhz"`
	ElevationDeg  float64 `json:"elevation_deg,omitempty"`
	MaxDistanceKm float64 `json:"max_distance_km,omitempty"`
	StepKm        float64 `json:"step_km,omitempty"`
	RecordPath    bool    `json:"record_path,omitempty"`
	Absorption    *bool   `json:"absorption,omitempty"`
	Azimuth       bool    `json:"azimuth,omitempty"`
}

// TraceResponse carries one traced ray.
type TraceResponse struct {
	Mode    string                `json:"mode"`
	Quality model.SignalQuality   `json:"quality,omitempty"`
	Cached  bool                  `json:"cached"`
	Result  *model.RayTraceResult `json:"result"`
}

// SweepRequest asks for a frequency × elevation grid.
type SweepRequest struct {
	IonosphereSpec
	FrequenciesMHz []float64 `json:"frequencies_mhz,omitempty"`
	ElevationsDeg  []float64 `json:"elevations_deg,omitempty"`
	MaxDistanceKm  float64   `json:"max_distance_km,omitempty"`
	StepKm         float64   `json:"step_km,omitempty"`
	Absorption     *bool     `json:"absorption,omitempty"`
	Azimuth        bool      `json:"azimuth,omitempty"`
	MUF            bool      `json:"muf,omitempty"`
	MUFLowMHz      float64   `json:"muf_low_mhz,omitempty"`
	MUFHighMHz     float64   `json:"muf_high_mhz,omitempty"`
}

// SweepCell summarises one ray of a sweep.
type SweepCell struct {
	FrequencyMHz   float64             `json:"frequency_mhz"`
	ElevationDeg   float64             `json:"elevation_deg"`
	Status         model.RayStatus     `json:"status"`
	GroundRangeKm  float64             `json:"ground_range_km"`
	ApexAltitudeKm float64             `json:"apex_altitude_km"`
	TotalLossDB    float64             `json:"total_loss_db,omitempty"`
	Quality        model.SignalQuality `json:"quality,omitempty"`
	FinalAzimuth   float64             `json:"final_azimuth_deg,omitempty"`
}

// FrequencySummary is the per-frequency aggregate of a sweep.
type FrequencySummary struct {
	FrequencyMHz   float64 `json:"frequency_mhz"`
	Returning      int     `json:"returning"`
	SkipDistanceKm float64 `json:"skip_distance_km"`
	MaxRangeKm     float64 `json:"max_range_km"`
}

// MUFEntry is the maximum usable frequency at one elevation.
type MUFEntry struct {
	ElevationDeg  float64 `json:"elevation_deg"`
	FrequencyMHz  float64 `json:"muf_mhz"`
	GroundRangeKm float64 `json:"ground_range_km,omitempty"`
}

// SweepResponse carries a completed sweep.
type SweepResponse struct {
	Mode        string             `json:"mode"`
	Cached      bool               `json:"cached"`
	Cells       []SweepCell        `json:"cells"`
	Frequencies []FrequencySummary `json:"frequencies"`
	MUF         []MUFEntry         `json:"muf,omitempty"`
	ElapsedMs   float64            `json:"elapsed_ms"`
}

// ProfileRequest asks for density samples between two altitudes.
type ProfileRequest struct {
	IonosphereSpec
	MinAltitudeKm float64 `json:"min_altitude_km,omitempty"`
	MaxAltitudeKm float64 `json:"max_altitude_km,omitempty"`
	StepKm        float64 `json:"step_km,omitempty"`
	// HorizontalKm picks the range at which a tilted ionosphere is sampled.
	HorizontalKm float64 `json:"horizontal_km,omitempty"`
}

// ProfileResponse carries a sampled density profile.
type ProfileResponse struct {
	FoF2MHz float64               `json:"fof2_mhz"`
	Season  model.Season          `json:"season"`
	Regime  model.Regime          `json:"regime"`
	Layers  []model.Layer         `json:"layers"`
	Samples []model.ProfileSample `json:"samples"`
}

// ScenarioView is the transport form of a catalog scenario.
type ScenarioView struct {
	ID             string    `json:"id"`
	Name           string    `json:"name,omitempty"`
	Description    string    `json:"description,omitempty"`
	FoF2MHz        float64   `json:"fof2_mhz,omitempty"`
	Season         string    `json:"season"`
	Tilt           *TiltSpec `json:"tilt,omitempty"`
	ElevationDeg   float64   `json:"elevation_deg,omitempty"`
	FrequenciesMHz []float64 `json:"frequencies_mhz,omitempty"`
}

// ListScenariosResponse carries the catalog.
type ListScenariosResponse struct {
	Scenarios []ScenarioView `json:"scenarios"`
}

// ViewOf converts a catalog scenario for transport.
func ViewOf(s *model.Scenario) ScenarioView {
	v := ScenarioView{
		ID:             s.ID,
		Name:           s.Name,
		Description:    s.Description,
		FoF2MHz:        s.FoF2MHz,
		Season:         s.Season.String(),
		ElevationDeg:   s.ElevationDeg,
		FrequenciesMHz: s.FrequenciesMHz,
	}
	if s.Tilt != nil {
		v.Tilt = &TiltSpec{
			FoF2TxMHz:     s.Tilt.FoF2TxMHz,
			FoF2RefMHz:    s.Tilt.FoF2RefMHz,
			RefDistanceKm: s.Tilt.RefDistanceKm,
		}
		v.Season = s.Tilt.Season.String()
	}
	return v
}

// Scenario converts a transport scenario into the catalog model.
func (v ScenarioView) Scenario() *model.Scenario {
	season := model.ParseSeason(v.Season)
	s := &model.Scenario{
		ID:             v.ID,
		Name:           v.Name,
		Description:    v.Description,
		FoF2MHz:        v.FoF2MHz,
		Season:         season,
		ElevationDeg:   v.ElevationDeg,
		FrequenciesMHz: v.FrequenciesMHz,
	}
	if v.Tilt != nil {
		s.Tilt = &model.TiltParams{
			FoF2TxMHz:     v.Tilt.FoF2TxMHz,
			FoF2RefMHz:    v.Tilt.FoF2RefMHz,
			RefDistanceKm: v.Tilt.RefDistanceKm,
			Season:        season,
		}
	}
	return s
}

func sweepResponse(res *sweep.Result) *SweepResponse {
	out := &SweepResponse{
		Mode:      res.Mode,
		Cells:     make([]SweepCell, 0, len(res.Cells)),
		ElapsedMs: float64(res.Elapsed.Microseconds()) / 1000,
	}
	for _, c := range res.Cells {
		out.Cells = append(out.Cells, SweepCell{
			FrequencyMHz:   c.FrequencyMHz,
			ElevationDeg:   c.ElevationDeg,
			Status:         c.Result.Status,
			GroundRangeKm:  c.Result.GroundRangeKm,
			ApexAltitudeKm: c.Result.ApexAltitudeKm,
			TotalLossDB:    c.Result.TotalLossDB,
			Quality:        c.Quality,
			FinalAzimuth:   c.Result.FinalAzimuth,
		})
	}
	for _, f := range res.Frequencies {
		out.Frequencies = append(out.Frequencies, FrequencySummary(f))
	}
	for _, m := range res.MUF {
		e := MUFEntry{ElevationDeg: m.ElevationDeg, FrequencyMHz: m.FrequencyMHz}
		if m.Trace != nil {
			e.GroundRangeKm = m.Trace.GroundRangeKm
		}
		out.MUF = append(out.MUF, e)
	}
	return out
}

func profileResponse(p *core.Profile, samples []model.ProfileSample) *ProfileResponse {
	params := p.Params()
	layers := p.Layers()
	return &ProfileResponse{
		FoF2MHz: params.FoF2MHz,
		Season:  params.Season,
		Regime:  core.RegimeFor(params.FoF2MHz),
		Layers:  layers[:],
		Samples: samples,
	}
}

func decodeStruct(in *structpb.Struct, v any) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	b, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func encodeStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return out, nil
}

// Package api exposes the ray tracer as a gRPC service whose requests and
// responses are JSON documents carried in google.protobuf.Struct.
package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/ionoprop/core"
	"github.com/signalsfoundry/ionoprop/internal/logging"
	"github.com/signalsfoundry/ionoprop/internal/observability"
	"github.com/signalsfoundry/ionoprop/internal/sweep"
	"github.com/signalsfoundry/ionoprop/kb"
	"github.com/signalsfoundry/ionoprop/model"
)

// Profile sampling defaults.
const (
	DefaultProfileMinKm  = 50.0
	DefaultProfileMaxKm  = 600.0
	DefaultProfileStepKm = 5.0
)

// DefaultSweepElevations is used when a sweep names no elevations.
var DefaultSweepElevations = []float64{5, 10, 15, 20, 25, 30, 35, 40, 45, 50, 55, 60, 65, 70, 75, 80}

// Defaults are the trace settings applied when a request leaves them unset.
type Defaults struct {
	Options      core.TraceOptions
	ElevationDeg float64
}

// Service implements RayTraceServer on top of a scenario catalog and a
// sweep engine.
type Service struct {
	catalog  *kb.Catalog
	engine   *sweep.Engine
	cache    *ResultCache
	defaults Defaults
	traces   *observability.TraceCollector
	log      logging.Logger
}

var _ RayTraceServer = (*Service)(nil)

// NewService wires a service. cache and traces may be nil.
func NewService(catalog *kb.Catalog, engine *sweep.Engine, cache *ResultCache, defaults Defaults, traces *observability.TraceCollector, log logging.Logger) *Service {
	if log == nil {
		log = logging.Noop()
	}
	if engine == nil {
		engine = sweep.NewEngine(0, log, traces)
	}
	if defaults.ElevationDeg == 0 {
		defaults.ElevationDeg = kb.DefaultElevationDeg
	}
	return &Service{
		catalog:  catalog,
		engine:   engine,
		cache:    cache,
		defaults: defaults,
		traces:   traces,
		log:      log,
	}
}

func (s *Service) logger(ctx context.Context) logging.Logger {
	return logging.FromContext(ctx, s.log)
}

// Trace implements RayTraceServer.
func (s *Service) Trace(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req TraceRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	resp, err := s.TraceRay(ctx, &req)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return s.encode(ctx, resp)
}

// Sweep implements RayTraceServer.
func (s *Service) Sweep(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SweepRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	resp, err := s.SweepGrid(ctx, &req)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return s.encode(ctx, resp)
}

// Profile implements RayTraceServer.
func (s *Service) Profile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ProfileRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	resp, err := s.SampleProfile(ctx, &req)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return s.encode(ctx, resp)
}

// ListScenarios implements RayTraceServer.
func (s *Service) ListScenarios(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct{}
	if err := decodeStruct(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	return s.encode(ctx, s.Scenarios())
}

// PutScenario implements RayTraceServer.
func (s *Service) PutScenario(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var view ScenarioView
	if err := decodeStruct(in, &view); err != nil {
		return nil, ToStatusError(err)
	}
	out, err := s.UpsertScenario(ctx, &view)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return s.encode(ctx, out)
}

func (s *Service) encode(ctx context.Context, v any) (*structpb.Struct, error) {
	out, err := encodeStruct(v)
	if err != nil {
		s.logger(ctx).Error(ctx, "encode response failed", logging.Err(err))
		return nil, ToStatusError(err)
	}
	return out, nil
}

// TraceRay traces one ray through the resolved ionosphere.
func (s *Service) TraceRay(ctx context.Context, req *TraceRequest) (*TraceResponse, error) {
	ctx, span := StartChildSpan(ctx, "api.TraceRay", req.ScenarioID,
		attribute.Float64("frequency_mhz", req.FrequencyMHz))
	defer span.End()

	scn, medium, err := s.Resolve(req.IonosphereSpec)
	if err != nil {
		return nil, err
	}
	opts, err := s.options(req.MaxDistanceKm, req.StepKm, req.Absorption, req.Azimuth)
	if err != nil {
		return nil, err
	}
	opts.RecordPath = req.RecordPath
	elev := s.elevation(req.ElevationDeg, scn)

	key := cacheKey("trace", mediumKey(scn), req.FrequencyMHz, elev, opts)
	if v, ok := s.cache.Get(key); ok {
		resp := *v.(*TraceResponse)
		resp.Cached = true
		return &resp, nil
	}

	mode := sweep.ModeOf(medium)
	start := time.Now()
	res, err := core.Trace(req.FrequencyMHz, elev, medium, opts)
	if err != nil {
		return nil, err
	}
	s.traces.ObserveTrace(mode, res, time.Since(start))

	resp := &TraceResponse{Mode: mode, Result: res}
	if res.HasLoss {
		resp.Quality = model.QualityForLoss(res.TotalLossDB)
	}
	s.logger(ctx).Debug(ctx, "ray traced",
		logging.Scenario(req.ScenarioID),
		logging.Ray(req.FrequencyMHz, elev),
		logging.String("status", string(res.Status)),
		logging.Float("ground_range_km", res.GroundRangeKm),
	)
	s.cache.Add(key, resp)
	return resp, nil
}

// SweepGrid traces a frequency × elevation grid on the sweep engine.
func (s *Service) SweepGrid(ctx context.Context, req *SweepRequest) (*SweepResponse, error) {
	ctx, span := StartChildSpan(ctx, "api.SweepGrid", req.ScenarioID)
	defer span.End()

	scn, medium, err := s.Resolve(req.IonosphereSpec)
	if err != nil {
		return nil, err
	}
	opts, err := s.options(req.MaxDistanceKm, req.StepKm, req.Absorption, req.Azimuth)
	if err != nil {
		return nil, err
	}
	freqs := req.FrequenciesMHz
	if len(freqs) == 0 {
		freqs = scn.Frequencies()
	}
	elevs := req.ElevationsDeg
	if len(elevs) == 0 {
		elevs = DefaultSweepElevations
	}

	sreq := sweep.Request{
		Medium:         medium,
		FrequenciesMHz: freqs,
		ElevationsDeg:  elevs,
		Options:        opts,
		MUF:            req.MUF,
		MUFLowMHz:      req.MUFLowMHz,
		MUFHighMHz:     req.MUFHighMHz,
	}
	key := cacheKey("sweep", mediumKey(scn), freqs, elevs, opts, req.MUF, req.MUFLowMHz, req.MUFHighMHz)
	if v, ok := s.cache.Get(key); ok {
		resp := *v.(*SweepResponse)
		resp.Cached = true
		return &resp, nil
	}

	res, err := s.engine.Run(ctx, sreq)
	if err != nil {
		return nil, err
	}
	resp := sweepResponse(res)
	s.logger(ctx).Info(ctx, "sweep complete",
		logging.Scenario(req.ScenarioID),
		logging.String("mode", res.Mode),
		logging.Int("cells", len(res.Cells)),
		logging.Duration("elapsed", res.Elapsed),
	)
	s.cache.Add(key, resp)
	return resp, nil
}

// SampleProfile samples the density profile between two altitudes. For a
// tilted ionosphere the profile is taken at HorizontalKm.
func (s *Service) SampleProfile(ctx context.Context, req *ProfileRequest) (*ProfileResponse, error) {
	ctx, span := StartChildSpan(ctx, "api.SampleProfile", req.ScenarioID)
	defer span.End()

	scn, _, err := s.Resolve(req.IonosphereSpec)
	if err != nil {
		return nil, err
	}
	lo, hi, step := req.MinAltitudeKm, req.MaxAltitudeKm, req.StepKm
	if lo == 0 && hi == 0 {
		lo, hi = DefaultProfileMinKm, DefaultProfileMaxKm
	}
	if step == 0 {
		step = DefaultProfileStepKm
	}
	grid, err := core.AltitudeGrid(lo, hi, step)
	if err != nil {
		return nil, err
	}

	params := model.IonosphereParams{FoF2MHz: scn.FoF2MHz, Season: scn.Season}
	if scn.IsTilted() {
		tp, err := core.NewTiltedProfile(*scn.Tilt)
		if err != nil {
			return nil, err
		}
		params = model.IonosphereParams{FoF2MHz: tp.LocalFoF2(req.HorizontalKm), Season: scn.Tilt.Season}
	}
	p, err := core.NewProfile(params)
	if err != nil {
		return nil, err
	}
	s.logger(ctx).Debug(ctx, "profile sampled",
		logging.Scenario(req.ScenarioID),
		logging.Float("fof2_mhz", params.FoF2MHz),
		logging.Int("samples", len(grid)),
	)
	return profileResponse(p, p.Sample(grid)), nil
}

// Scenarios lists the catalog.
func (s *Service) Scenarios() *ListScenariosResponse {
	list := s.catalog.List()
	out := &ListScenariosResponse{Scenarios: make([]ScenarioView, 0, len(list))}
	for _, scn := range list {
		out.Scenarios = append(out.Scenarios, ViewOf(scn))
	}
	return out
}

// UpsertScenario creates or replaces a catalog scenario.
func (s *Service) UpsertScenario(ctx context.Context, view *ScenarioView) (*ScenarioView, error) {
	scn := view.Scenario()
	err := s.catalog.Update(scn)
	if errors.Is(err, kb.ErrScenarioNotFound) {
		err = s.catalog.Add(scn)
	}
	if err != nil {
		return nil, err
	}
	stored, err := s.catalog.Get(scn.ID)
	if err != nil {
		return nil, err
	}
	s.logger(ctx).Info(ctx, "scenario stored", logging.Scenario(scn.ID))
	out := ViewOf(stored)
	return &out, nil
}

// Resolve builds the scenario a request refers to, applying its overrides,
// and the medium it describes.
func (s *Service) Resolve(spec IonosphereSpec) (*model.Scenario, core.Medium, error) {
	var scn *model.Scenario
	if spec.ScenarioID != "" {
		got, err := s.catalog.Get(spec.ScenarioID)
		if err != nil {
			return nil, nil, err
		}
		scn = got
	} else {
		if spec.FoF2MHz == 0 && spec.Tilt == nil {
			return nil, nil, fmt.Errorf("%w: one of scenario_id, fof2_mhz or tilt is required", ErrInvalidRequest)
		}
		scn = &model.Scenario{ID: "request"}
	}

	if spec.FoF2MHz != 0 {
		scn.FoF2MHz = spec.FoF2MHz
		scn.Tilt = nil
	}
	if spec.Tilt != nil {
		scn.Tilt = &model.TiltParams{
			FoF2TxMHz:     spec.Tilt.FoF2TxMHz,
			FoF2RefMHz:    spec.Tilt.FoF2RefMHz,
			RefDistanceKm: spec.Tilt.RefDistanceKm,
			Season:        scn.Season,
		}
	}
	if spec.Season != "" {
		scn.Season = model.ParseSeason(spec.Season)
		if scn.Tilt != nil {
			scn.Tilt.Season = scn.Season
		}
	}

	if err := kb.Validate(scn); err != nil {
		return nil, nil, err
	}
	medium, err := kb.Medium(scn)
	if err != nil {
		return nil, nil, err
	}
	return scn, medium, nil
}

func (s *Service) options(maxDistanceKm, stepKm float64, absorption *bool, azimuth bool) (core.TraceOptions, error) {
	opts := s.defaults.Options
	if maxDistanceKm != 0 {
		opts.MaxDistanceKm = maxDistanceKm
	}
	if stepKm != 0 {
		opts.StepKm = stepKm
	}
	if absorption != nil {
		opts.Absorption = *absorption
	}
	opts.Azimuth = opts.Azimuth || azimuth
	return opts.Normalized()
}

func (s *Service) elevation(requested float64, scn *model.Scenario) float64 {
	switch {
	case requested != 0:
		return requested
	case scn.ElevationDeg != 0:
		return scn.ElevationDeg
	default:
		return s.defaults.ElevationDeg
	}
}

// mediumKey identifies the density model independent of scenario naming.
func mediumKey(scn *model.Scenario) any {
	if scn.IsTilted() {
		return scn.Tilt
	}
	return model.IonosphereParams{FoF2MHz: scn.FoF2MHz, Season: scn.Season}
}

package api

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/signalsfoundry/ionoprop/core"
	"github.com/signalsfoundry/ionoprop/internal/logging"
	"github.com/signalsfoundry/ionoprop/internal/observability"
	"github.com/signalsfoundry/ionoprop/internal/sweep"
	"github.com/signalsfoundry/ionoprop/kb"
	"github.com/signalsfoundry/ionoprop/model"
)

func newTestService(t *testing.T) (*Service, *observability.TraceCollector) {
	t.Helper()

	traces, err := observability.NewTraceCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewTraceCollector: %v", err)
	}
	cache, err := NewResultCache(16, traces)
	if err != nil {
		t.Fatalf("NewResultCache: %v", err)
	}
	engine := sweep.NewEngine(2, logging.Noop(), traces)
	defaults := Defaults{Options: core.TraceOptions{Absorption: true}}
	return NewService(kb.NewDefaultCatalog(), engine, cache, defaults, traces, logging.Noop()), traces
}

func TestTraceRayDaytimeHop(t *testing.T) {
	svc, traces := newTestService(t)
	ctx := context.Background()

	resp, err := svc.TraceRay(ctx, &TraceRequest{
		IonosphereSpec: IonosphereSpec{ScenarioID: "day"},
		FrequencyMHz:   14,
	})
	if err != nil {
		t.Fatalf("TraceRay: %v", err)
	}
	res := resp.Result
	if res.Status != model.RayReturns {
		t.Fatalf("status = %s, want returns", res.Status)
	}
	if res.ElevationDeg != kb.DefaultElevationDeg {
		t.Fatalf("elevation = %v, want default %v", res.ElevationDeg, kb.DefaultElevationDeg)
	}
	if res.GroundRangeKm < 800 || res.GroundRangeKm > 1200 {
		t.Fatalf("ground range = %v km, want about 1000", res.GroundRangeKm)
	}
	if !res.HasLoss || resp.Quality != model.QualityExcellent {
		t.Fatalf("loss = %v dB quality %q, want excellent", res.TotalLossDB, resp.Quality)
	}
	if resp.Mode != sweep.Mode1D || resp.Cached {
		t.Fatalf("mode/cached = %s/%v, want 1d/false", resp.Mode, resp.Cached)
	}
	if len(res.Distances) != 0 {
		t.Fatalf("path recorded without record_path")
	}

	again, err := svc.TraceRay(ctx, &TraceRequest{
		IonosphereSpec: IonosphereSpec{ScenarioID: "day"},
		FrequencyMHz:   14,
	})
	if err != nil {
		t.Fatalf("second TraceRay: %v", err)
	}
	if !again.Cached || again.Result.GroundRangeKm != res.GroundRangeKm {
		t.Fatalf("second trace cached=%v range=%v, want cached copy", again.Cached, again.Result.GroundRangeKm)
	}
	if resp.Cached {
		t.Fatalf("cache hit mutated the stored response")
	}
	if got := testutil.ToFloat64(traces.Traces.WithLabelValues("returns", "1d")); got != 1 {
		t.Fatalf("traces{returns,1d} = %v, want 1", got)
	}
}

func TestTraceRayOverrides(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	night, err := svc.TraceRay(ctx, &TraceRequest{
		IonosphereSpec: IonosphereSpec{ScenarioID: "night"},
		FrequencyMHz:   14,
	})
	if err != nil {
		t.Fatalf("TraceRay(night): %v", err)
	}
	if night.Result.Status != model.RayEscapes {
		t.Fatalf("night 14 MHz status = %s, want escapes", night.Result.Status)
	}

	noLoss := false
	boosted, err := svc.TraceRay(ctx, &TraceRequest{
		IonosphereSpec: IonosphereSpec{ScenarioID: "night", FoF2MHz: 12},
		FrequencyMHz:   14,
		Absorption:     &noLoss,
		RecordPath:     true,
	})
	if err != nil {
		t.Fatalf("TraceRay(night, foF2 12): %v", err)
	}
	if boosted.Result.Status != model.RayReturns {
		t.Fatalf("overridden 14 MHz status = %s, want returns", boosted.Result.Status)
	}
	if boosted.Result.HasLoss || boosted.Quality != "" {
		t.Fatalf("absorption disabled but HasLoss=%v quality=%q", boosted.Result.HasLoss, boosted.Quality)
	}
	if len(boosted.Result.Distances) != boosted.Result.Steps+1 {
		t.Fatalf("recorded %d samples for %d steps", len(boosted.Result.Distances), boosted.Result.Steps)
	}
}

func TestTraceRayTerminatorDeflects(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.TraceRay(context.Background(), &TraceRequest{
		IonosphereSpec: IonosphereSpec{ScenarioID: "terminator"},
		FrequencyMHz:   7,
		Azimuth:        true,
	})
	if err != nil {
		t.Fatalf("TraceRay: %v", err)
	}
	if resp.Mode != sweep.Mode2D {
		t.Fatalf("mode = %s, want 2d", resp.Mode)
	}
	if resp.Result.FinalAzimuth >= 0 {
		t.Fatalf("final azimuth = %v, want negative deflection toward lower foF2", resp.Result.FinalAzimuth)
	}
}

func TestTraceRayErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  TraceRequest
		want error
	}{
		{"no ionosphere", TraceRequest{FrequencyMHz: 14}, ErrInvalidRequest},
		{"unknown scenario", TraceRequest{IonosphereSpec: IonosphereSpec{ScenarioID: "mars"}, FrequencyMHz: 14}, kb.ErrScenarioNotFound},
		{"bad tilt", TraceRequest{IonosphereSpec: IonosphereSpec{Tilt: &TiltSpec{FoF2TxMHz: 30, FoF2RefMHz: 4, RefDistanceKm: 3000}}, FrequencyMHz: 7}, core.ErrInvalidFoF2},
		{"bad frequency", TraceRequest{IonosphereSpec: IonosphereSpec{FoF2MHz: 10}, FrequencyMHz: -3}, core.ErrInvalidFrequency},
		{"bad elevation", TraceRequest{IonosphereSpec: IonosphereSpec{FoF2MHz: 10}, FrequencyMHz: 7, ElevationDeg: 95}, core.ErrInvalidElevation},
		{"bad step", TraceRequest{IonosphereSpec: IonosphereSpec{FoF2MHz: 10}, FrequencyMHz: 7, StepKm: -1}, core.ErrInvalidStep},
		{"too many steps", TraceRequest{IonosphereSpec: IonosphereSpec{FoF2MHz: 10}, FrequencyMHz: 7, StepKm: 1e-9}, core.ErrInvalidStep},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.TraceRay(ctx, &tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("TraceRay error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestSweepGrid(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := &SweepRequest{
		IonosphereSpec: IonosphereSpec{ScenarioID: "day"},
		FrequenciesMHz: []float64{7, 14, 28},
		ElevationsDeg:  []float64{30, 60},
		MUF:            true,
	}
	resp, err := svc.SweepGrid(ctx, req)
	if err != nil {
		t.Fatalf("SweepGrid: %v", err)
	}
	if len(resp.Cells) != 6 {
		t.Fatalf("cells = %d, want 6", len(resp.Cells))
	}
	if c := resp.Cells[2]; c.FrequencyMHz != 14 || c.ElevationDeg != 30 || c.Status != model.RayReturns {
		t.Fatalf("cell[2] = %+v, want 14 MHz at 30 deg returning", c)
	}
	if len(resp.Frequencies) != 3 {
		t.Fatalf("frequency summaries = %d, want 3", len(resp.Frequencies))
	}
	if got := resp.Frequencies[0].Returning; got != 2 {
		t.Fatalf("7 MHz returning = %d, want 2", got)
	}
	if got := resp.Frequencies[2]; got.Returning != 0 || got.SkipDistanceKm != 0 {
		t.Fatalf("28 MHz summary = %+v, want no returns", got)
	}
	if len(resp.MUF) != 2 {
		t.Fatalf("MUF entries = %d, want 2", len(resp.MUF))
	}
	if m := resp.MUF[0]; m.ElevationDeg != 30 || m.FrequencyMHz < 21 || m.FrequencyMHz > 22.5 {
		t.Fatalf("MUF at 30 deg = %+v, want about 21.8 MHz", m)
	}
	if resp.MUF[1].FrequencyMHz >= resp.MUF[0].FrequencyMHz {
		t.Fatalf("MUF at 60 deg %v not below MUF at 30 deg %v", resp.MUF[1].FrequencyMHz, resp.MUF[0].FrequencyMHz)
	}

	again, err := svc.SweepGrid(ctx, req)
	if err != nil {
		t.Fatalf("second SweepGrid: %v", err)
	}
	if !again.Cached {
		t.Fatalf("second sweep not served from cache")
	}
}

func TestSweepGridDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.SweepGrid(context.Background(), &SweepRequest{
		IonosphereSpec: IonosphereSpec{FoF2MHz: 8},
		ElevationsDeg:  []float64{45},
	})
	if err != nil {
		t.Fatalf("SweepGrid: %v", err)
	}
	if len(resp.Cells) != len(model.AmateurBandsMHz) {
		t.Fatalf("cells = %d, want one per amateur band (%d)", len(resp.Cells), len(model.AmateurBandsMHz))
	}
}

func TestSampleProfile(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.SampleProfile(ctx, &ProfileRequest{IonosphereSpec: IonosphereSpec{ScenarioID: "day"}})
	if err != nil {
		t.Fatalf("SampleProfile: %v", err)
	}
	if len(resp.Samples) != 111 {
		t.Fatalf("samples = %d, want 111", len(resp.Samples))
	}
	if first := resp.Samples[0].AltitudeKm; first != DefaultProfileMinKm {
		t.Fatalf("first altitude = %v, want %v", first, DefaultProfileMinKm)
	}
	if resp.Regime != model.RegimeDay || len(resp.Layers) != 4 {
		t.Fatalf("regime %q with %d layers, want day with 4", resp.Regime, len(resp.Layers))
	}

	far, err := svc.SampleProfile(ctx, &ProfileRequest{
		IonosphereSpec: IonosphereSpec{ScenarioID: "terminator"},
		HorizontalKm:   3000,
		MinAltitudeKm:  100,
		MaxAltitudeKm:  400,
		StepKm:         10,
	})
	if err != nil {
		t.Fatalf("SampleProfile(terminator): %v", err)
	}
	if far.FoF2MHz != 4 || far.Regime != model.RegimeNight {
		t.Fatalf("terminator at 3000 km = %v MHz %q, want 4 MHz night", far.FoF2MHz, far.Regime)
	}
	if len(far.Samples) != 31 {
		t.Fatalf("samples = %d, want 31", len(far.Samples))
	}

	if _, err := svc.SampleProfile(ctx, &ProfileRequest{
		IonosphereSpec: IonosphereSpec{FoF2MHz: 10},
		MinAltitudeKm:  400,
		MaxAltitudeKm:  100,
	}); !errors.Is(err, core.ErrInvalidDistance) {
		t.Fatalf("inverted range error = %v, want ErrInvalidDistance", err)
	}

	if _, err := svc.SampleProfile(ctx, &ProfileRequest{
		IonosphereSpec: IonosphereSpec{FoF2MHz: 10},
		StepKm:         1e-9,
	}); !errors.Is(err, core.ErrInvalidStep) {
		t.Fatalf("tiny altitude step error = %v, want ErrInvalidStep", err)
	}
}

func TestUpsertScenario(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	before := len(svc.Scenarios().Scenarios)

	created, err := svc.UpsertScenario(ctx, &ScenarioView{ID: "contest", FoF2MHz: 9, Season: "winter"})
	if err != nil {
		t.Fatalf("UpsertScenario(create): %v", err)
	}
	if created.Season != "winter" || created.FoF2MHz != 9 {
		t.Fatalf("created = %+v, want winter 9 MHz", created)
	}
	if _, err := svc.UpsertScenario(ctx, &ScenarioView{ID: "contest", FoF2MHz: 11}); err != nil {
		t.Fatalf("UpsertScenario(replace): %v", err)
	}

	list := svc.Scenarios().Scenarios
	if len(list) != before+1 {
		t.Fatalf("scenarios = %d, want %d", len(list), before+1)
	}
	for _, v := range list {
		if v.ID == "contest" && v.FoF2MHz != 11 {
			t.Fatalf("contest foF2 = %v, want 11", v.FoF2MHz)
		}
	}

	if _, err := svc.UpsertScenario(ctx, &ScenarioView{ID: "broken"}); !errors.Is(err, kb.ErrInvalidScenario) {
		t.Fatalf("UpsertScenario(no foF2) error = %v, want ErrInvalidScenario", err)
	}
}

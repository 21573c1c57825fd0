package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalsfoundry/ionoprop/core"
	"github.com/signalsfoundry/ionoprop/model"
)

const sampleTOML = `
[Server]
GRPCAddr = "127.0.0.1:6000"

[Trace]
StepKm = 0.5
Workers = 3
Absorption = false

[Cache]
Entries = 16

[[Scenarios]]
ID = "field-day"
FoF2MHz = 9.5
Season = "summer"
FrequenciesMHz = [7.0, 14.0]

[[Scenarios]]
ID = "grey-line"
TiltTxMHz = 12.0
TiltRefMHz = 5.0
TiltRefDistanceKm = 2500.0
`

func TestDecodeOverlaysDefaults(t *testing.T) {
	cfg := Defaults()
	if err := Decode(strings.NewReader(sampleTOML), &cfg); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if cfg.Server.GRPCAddr != "127.0.0.1:6000" {
		t.Fatalf("GRPCAddr = %q", cfg.Server.GRPCAddr)
	}
	if cfg.Server.MetricsAddr != Defaults().Server.MetricsAddr {
		t.Fatalf("MetricsAddr = %q, want default", cfg.Server.MetricsAddr)
	}
	if cfg.Trace.StepKm != 0.5 || cfg.Trace.Workers != 3 || cfg.Trace.Absorption {
		t.Fatalf("Trace = %+v", cfg.Trace)
	}
	if cfg.Trace.MaxDistanceKm != core.DefaultMaxDistanceKm {
		t.Fatalf("MaxDistanceKm = %v, want default", cfg.Trace.MaxDistanceKm)
	}
	if len(cfg.Scenarios) != 2 {
		t.Fatalf("got %d scenarios, want 2", len(cfg.Scenarios))
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}

	day := cfg.Scenarios[0].Scenario()
	if day.Season != model.SeasonSummer || day.FoF2MHz != 9.5 || day.IsTilted() {
		t.Fatalf("field-day scenario = %+v", day)
	}
	if len(day.FrequenciesMHz) != 2 {
		t.Fatalf("field-day frequencies = %v", day.FrequenciesMHz)
	}
	grey := cfg.Scenarios[1].Scenario()
	if !grey.IsTilted() || grey.Tilt.RefDistanceKm != 2500 || grey.Tilt.FoF2TxMHz != 12 {
		t.Fatalf("grey-line scenario = %+v", grey)
	}
}

func TestDecodeRejectsUnknownField(t *testing.T) {
	cfg := Defaults()
	err := Decode(strings.NewReader("[Server]\nListen = \":1\"\n"), &cfg)
	if err == nil || !strings.Contains(err.Error(), "Listen") {
		t.Fatalf("Decode error = %v, want unknown field error", err)
	}
}

func TestLoadAddsFileName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[Trace]\nWorkers = \"many\"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg := Defaults()
	err := Load(path, &cfg)
	if err == nil || !strings.Contains(err.Error(), path) {
		t.Fatalf("Load error = %v, want file name in message", err)
	}

	if err := Load(filepath.Join(t.TempDir(), "missing.toml"), &cfg); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load missing file error = %v, want os.ErrNotExist", err)
	}
}

func TestDumpWritesSections(t *testing.T) {
	cfg := Defaults()
	cfg.Scenarios = []ScenarioConfig{{ID: "x", FoF2MHz: 8, Season: "winter"}}
	var buf bytes.Buffer
	if err := Dump(&buf, cfg); err != nil {
		t.Fatalf("Dump error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"[Server]", "GRPCAddr", `":50061"`, "[Trace]", "[[Scenarios]]", `"winter"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("dumped config missing %q:\n%s", want, out)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("IONOPROP_GRPC_ADDR", ":7000")
	t.Setenv("IONOPROP_STEP_KM", "0.25")
	t.Setenv("IONOPROP_WORKERS", "zero")
	t.Setenv("IONOPROP_CACHE_ENTRIES", "0")
	t.Setenv("IONOPROP_TRACING_ENABLED", "true")

	cfg := Defaults()
	workers := cfg.Trace.Workers
	cfg.ApplyEnv(nil)

	if cfg.Server.GRPCAddr != ":7000" {
		t.Fatalf("GRPCAddr = %q, want :7000", cfg.Server.GRPCAddr)
	}
	if cfg.Trace.StepKm != 0.25 {
		t.Fatalf("StepKm = %v, want 0.25", cfg.Trace.StepKm)
	}
	if cfg.Trace.Workers != workers {
		t.Fatalf("Workers = %d, want default %d after invalid value", cfg.Trace.Workers, workers)
	}
	if cfg.Cache.Entries != 0 {
		t.Fatalf("Cache.Entries = %d, want 0", cfg.Cache.Entries)
	}
	if !cfg.TracingConfig().Enabled {
		t.Fatalf("tracing not enabled from environment")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
		want error
	}{
		{"negative step", func(c *Config) { c.Trace.StepKm = -1 }, core.ErrInvalidStep},
		{"bad elevation", func(c *Config) { c.Trace.ElevationDeg = 120 }, core.ErrInvalidElevation},
	}
	for _, tt := range tests {
		cfg := Defaults()
		tt.mod(&cfg)
		if err := cfg.Validate(); !errors.Is(err, tt.want) {
			t.Errorf("%s: Validate error = %v, want %v", tt.name, err, tt.want)
		}
	}

	cfg := Defaults()
	cfg.Scenarios = []ScenarioConfig{{ID: "a"}, {ID: "a"}}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("duplicate scenarios accepted")
	}
	cfg = Defaults()
	cfg.Cache.Entries = -1
	if err := cfg.Validate(); err == nil {
		t.Fatalf("negative cache size accepted")
	}
}

func TestDefaultsMatchIntegrator(t *testing.T) {
	cfg := Defaults()
	opts, err := cfg.TraceOptions().Normalized()
	if err != nil {
		t.Fatalf("Normalized error: %v", err)
	}
	if opts.StepKm != core.DefaultStepKm || opts.MaxDistanceKm != core.DefaultMaxDistanceKm || !opts.Absorption {
		t.Fatalf("default trace options = %+v", opts)
	}
}

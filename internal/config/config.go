// Package config loads ionoprop settings from a TOML file and IONOPROP_*
// environment variables.
package config

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"reflect"
	"runtime"
	"strconv"

	"github.com/naoina/toml"

	"github.com/signalsfoundry/ionoprop/core"
	"github.com/signalsfoundry/ionoprop/internal/logging"
	"github.com/signalsfoundry/ionoprop/internal/observability"
	"github.com/signalsfoundry/ionoprop/model"
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// ServerConfig holds listener addresses.
type ServerConfig struct {
	GRPCAddr    string
	MetricsAddr string
}

// TraceConfig holds integrator and sweep defaults.
type TraceConfig struct {
	StepKm        float64
	MaxDistanceKm float64
	Workers       int
	Absorption    bool
	ElevationDeg  float64
}

// CacheConfig sizes the result cache. Zero entries disables it.
type CacheConfig struct {
	Entries int
}

// LogConfig selects the log level and handler format.
type LogConfig struct {
	Level  string
	Format string
}

// TracingConfig mirrors observability.TracingConfig in file form.
type TracingConfig struct {
	Enabled     bool
	Exporter    string
	Endpoint    string `toml:",omitempty"`
	ServiceName string
	SampleRatio float64
}

// ScenarioConfig declares a catalog scenario. Setting TiltRefDistanceKm
// selects a tilted ionosphere built from TiltTxMHz and TiltRefMHz.
type ScenarioConfig struct {
	ID                string
	Name              string    `toml:",omitempty"`
	Description       string    `toml:",omitempty"`
	FoF2MHz           float64   `toml:",omitempty"`
	Season            string    `toml:",omitempty"`
	ElevationDeg      float64   `toml:",omitempty"`
	FrequenciesMHz    []float64 `toml:",omitempty"`
	TiltTxMHz         float64   `toml:",omitempty"`
	TiltRefMHz        float64   `toml:",omitempty"`
	TiltRefDistanceKm float64   `toml:",omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	Server    ServerConfig
	Trace     TraceConfig
	Cache     CacheConfig
	Log       LogConfig
	Tracing   TracingConfig
	Scenarios []ScenarioConfig `toml:",omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	tracing := observability.DefaultTracingConfig()
	return Config{
		Server: ServerConfig{
			GRPCAddr:    ":50061",
			MetricsAddr: ":9100",
		},
		Trace: TraceConfig{
			StepKm:        core.DefaultStepKm,
			MaxDistanceKm: core.DefaultMaxDistanceKm,
			Workers:       runtime.NumCPU(),
			Absorption:    true,
			ElevationDeg:  30,
		},
		Cache: CacheConfig{Entries: 512},
		Log:   LogConfig{Level: "info", Format: "text"},
		Tracing: TracingConfig{
			Enabled:     tracing.Enabled,
			Exporter:    tracing.Exporter,
			ServiceName: tracing.ServiceName,
			SampleRatio: tracing.SampleRatio,
		},
	}
}

// Load decodes file into cfg. Fields absent from the file keep their
// current values, so callers normally start from Defaults.
func Load(file string, cfg *Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := Decode(bufio.NewReader(f), cfg); err != nil {
		return fmt.Errorf("%s, %w", file, err)
	}
	return nil
}

// Decode reads TOML from r into cfg.
func Decode(r io.Reader, cfg *Config) error {
	return tomlSettings.NewDecoder(r).Decode(cfg)
}

// Dump writes cfg as TOML.
func Dump(w io.Writer, cfg Config) error {
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// ApplyEnv overlays IONOPROP_* environment variables. Invalid values are
// logged and ignored.
func (c *Config) ApplyEnv(log logging.Logger) {
	if log == nil {
		log = logging.Noop()
	}
	ctx := context.Background()

	if v := os.Getenv("IONOPROP_GRPC_ADDR"); v != "" {
		c.Server.GRPCAddr = v
	}
	if v := os.Getenv("IONOPROP_METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}
	if v := os.Getenv("IONOPROP_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("IONOPROP_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}

	if v := os.Getenv("IONOPROP_STEP_KM"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n <= 0 {
			log.Warn(ctx, "invalid IONOPROP_STEP_KM value, using default", logging.String("value", v), logging.Float("default", c.Trace.StepKm))
		} else {
			c.Trace.StepKm = n
		}
	}
	if v := os.Getenv("IONOPROP_MAX_DISTANCE_KM"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n <= 0 {
			log.Warn(ctx, "invalid IONOPROP_MAX_DISTANCE_KM value, using default", logging.String("value", v), logging.Float("default", c.Trace.MaxDistanceKm))
		} else {
			c.Trace.MaxDistanceKm = n
		}
	}
	if v := os.Getenv("IONOPROP_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			log.Warn(ctx, "invalid IONOPROP_WORKERS value, using default", logging.String("value", v), logging.Int("default", c.Trace.Workers))
		} else {
			c.Trace.Workers = n
		}
	}
	if v := os.Getenv("IONOPROP_CACHE_ENTRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			log.Warn(ctx, "invalid IONOPROP_CACHE_ENTRIES value, using default", logging.String("value", v), logging.Int("default", c.Cache.Entries))
		} else {
			c.Cache.Entries = n
		}
	}

	tc := observability.TracingConfigFromEnv(c.TracingConfig())
	c.Tracing = TracingConfig{
		Enabled:     tc.Enabled,
		Exporter:    tc.Exporter,
		Endpoint:    tc.Endpoint,
		ServiceName: tc.ServiceName,
		SampleRatio: tc.SampleRatio,
	}
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := c.TraceOptions().Normalized(); err != nil {
		return err
	}
	if c.Trace.ElevationDeg != 0 {
		if err := core.ValidateLaunch(1, c.Trace.ElevationDeg); err != nil {
			return err
		}
	}
	if c.Cache.Entries < 0 {
		return fmt.Errorf("cache entries %d must not be negative", c.Cache.Entries)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing sample ratio %v outside [0, 1]", c.Tracing.SampleRatio)
	}
	seen := make(map[string]bool, len(c.Scenarios))
	for _, s := range c.Scenarios {
		if seen[s.ID] {
			return fmt.Errorf("duplicate scenario %q", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

// TraceOptions converts the trace section into integrator options.
func (c *Config) TraceOptions() core.TraceOptions {
	return core.TraceOptions{
		StepKm:        c.Trace.StepKm,
		MaxDistanceKm: c.Trace.MaxDistanceKm,
		Absorption:    c.Trace.Absorption,
	}
}

// TracingConfig converts the tracing section for observability.InitTracing.
func (c *Config) TracingConfig() observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     c.Tracing.Enabled,
		ServiceName: c.Tracing.ServiceName,
		Exporter:    c.Tracing.Exporter,
		Endpoint:    c.Tracing.Endpoint,
		SampleRatio: c.Tracing.SampleRatio,
	}
}

// LoggingConfig converts the log section for logging.New.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{Level: c.Log.Level, Format: c.Log.Format}
}

// Scenario converts a scenario declaration into the catalog model.
func (s ScenarioConfig) Scenario() *model.Scenario {
	out := &model.Scenario{
		ID:             s.ID,
		Name:           s.Name,
		Description:    s.Description,
		FoF2MHz:        s.FoF2MHz,
		Season:         model.ParseSeason(s.Season),
		ElevationDeg:   s.ElevationDeg,
		FrequenciesMHz: append([]float64(nil), s.FrequenciesMHz...),
	}
	if s.TiltRefDistanceKm != 0 {
		out.Tilt = &model.TiltParams{
			FoF2TxMHz:     s.TiltTxMHz,
			FoF2RefMHz:    s.TiltRefMHz,
			RefDistanceKm: s.TiltRefDistanceKm,
			Season:        out.Season,
		}
	}
	return out
}

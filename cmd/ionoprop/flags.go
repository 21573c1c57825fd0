package main

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/urfave/cli.v1"

	"github.com/signalsfoundry/ionoprop/internal/api"
	"github.com/signalsfoundry/ionoprop/internal/sweep"
)

// Flags shared by every command that selects an ionosphere.
var ionosphereFlags = []cli.Flag{
	cli.StringFlag{Name: "scenario, s", Usage: "catalog scenario ID"},
	cli.Float64Flag{Name: "fof2", Usage: "F2 critical frequency in MHz, overrides the scenario"},
	cli.StringFlag{Name: "season", Usage: "winter, equinox or summer"},
	cli.StringFlag{Name: "tilt", Usage: "tilted ionosphere as TX_MHZ,REF_MHZ,REF_KM"},
}

// Flags shared by every command that traces rays.
var traceOptionFlags = []cli.Flag{
	cli.Float64Flag{Name: "step", Usage: "integration step in km (default from config)"},
	cli.Float64Flag{Name: "max-distance", Usage: "ground range limit in km (default from config)"},
	cli.BoolFlag{Name: "no-absorption", Usage: "skip the absorption integral"},
	cli.BoolFlag{Name: "azimuth", Usage: "integrate lateral deflection in a tilted ionosphere"},
}

func withFlags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func ionosphereSpec(ctx *cli.Context) (api.IonosphereSpec, error) {
	spec := api.IonosphereSpec{
		ScenarioID: ctx.String("scenario"),
		FoF2MHz:    ctx.Float64("fof2"),
		Season:     ctx.String("season"),
	}
	if raw := ctx.String("tilt"); raw != "" {
		vals, err := parseFloats(raw)
		if err != nil {
			return spec, fmt.Errorf("--tilt: %w", err)
		}
		if len(vals) != 3 {
			return spec, fmt.Errorf("--tilt wants TX_MHZ,REF_MHZ,REF_KM, got %d values", len(vals))
		}
		spec.Tilt = &api.TiltSpec{FoF2TxMHz: vals[0], FoF2RefMHz: vals[1], RefDistanceKm: vals[2]}
	}
	if spec.ScenarioID == "" && spec.FoF2MHz == 0 && spec.Tilt == nil {
		spec.ScenarioID = "day"
	}
	return spec, nil
}

func absorption(ctx *cli.Context) *bool {
	if !ctx.Bool("no-absorption") {
		return nil
	}
	off := false
	return &off
}

// parseFloats splits a comma separated list.
func parseFloats(raw string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseElevations accepts either a list ("10,20,30") or a range
// ("LO:HI:STEP").
func parseElevations(raw string) ([]float64, error) {
	if raw == "" {
		return nil, nil
	}
	if !strings.Contains(raw, ":") {
		return parseFloats(raw)
	}
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("elevation range %q wants LO:HI:STEP", raw)
	}
	var bounds [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", p)
		}
		bounds[i] = v
	}
	return sweep.ElevationRange(bounds[0], bounds[1], bounds[2])
}

package main

import (
	"context"
	"fmt"

	"gopkg.in/urfave/cli.v1"

	"github.com/signalsfoundry/ionoprop/core"
	"github.com/signalsfoundry/ionoprop/internal/api"
	"github.com/signalsfoundry/ionoprop/internal/sweep"
)

func traceCommand(e *env) cli.Command {
	return cli.Command{
		Name:      "trace",
		Usage:     "Trace a single ray",
		ArgsUsage: " ",
		Flags: withFlags(ionosphereFlags, traceOptionFlags, []cli.Flag{
			cli.Float64Flag{Name: "freq, f", Value: 14, Usage: "frequency in MHz"},
			cli.Float64Flag{Name: "elev, e", Usage: "elevation in degrees (default from scenario or config)"},
			cli.BoolFlag{Name: "path", Usage: "print the recorded ray path"},
		}),
		Action: func(ctx *cli.Context) error {
			svc, err := e.service()
			if err != nil {
				return err
			}
			spec, err := ionosphereSpec(ctx)
			if err != nil {
				return err
			}
			resp, err := svc.TraceRay(context.Background(), &api.TraceRequest{
				IonosphereSpec: spec,
				FrequencyMHz:   ctx.Float64("freq"),
				ElevationDeg:   ctx.Float64("elev"),
				MaxDistanceKm:  ctx.Float64("max-distance"),
				StepKm:         ctx.Float64("step"),
				RecordPath:     ctx.Bool("path"),
				Absorption:     absorption(ctx),
				Azimuth:        ctx.Bool("azimuth"),
			})
			if err != nil {
				return err
			}
			if ctx.GlobalBool(jsonFlag.Name) {
				return writeJSON(e.out, resp)
			}
			renderTrace(e.out, resp)
			if ctx.Bool("path") {
				renderPath(e.out, resp.Result)
			}
			return nil
		},
	}
}

func sweepCommand(e *env) cli.Command {
	return cli.Command{
		Name:      "sweep",
		Usage:     "Trace a frequency × elevation grid",
		ArgsUsage: " ",
		Flags: withFlags(ionosphereFlags, traceOptionFlags, []cli.Flag{
			cli.StringFlag{Name: "freqs", Usage: "comma separated MHz (default: scenario or amateur bands)"},
			cli.StringFlag{Name: "elevs", Usage: "comma separated degrees or LO:HI:STEP"},
			cli.BoolFlag{Name: "muf", Usage: "search the maximum usable frequency per elevation"},
			cli.Float64Flag{Name: "muf-low", Value: sweep.DefaultMUFLowMHz, Usage: "MUF search lower bound in MHz"},
			cli.Float64Flag{Name: "muf-high", Value: sweep.DefaultMUFHighMHz, Usage: "MUF search upper bound in MHz"},
		}),
		Action: func(ctx *cli.Context) error {
			svc, err := e.service()
			if err != nil {
				return err
			}
			spec, err := ionosphereSpec(ctx)
			if err != nil {
				return err
			}
			freqs, err := parseFloats(ctx.String("freqs"))
			if err != nil {
				return fmt.Errorf("--freqs: %w", err)
			}
			elevs, err := parseElevations(ctx.String("elevs"))
			if err != nil {
				return fmt.Errorf("--elevs: %w", err)
			}
			resp, err := svc.SweepGrid(context.Background(), &api.SweepRequest{
				IonosphereSpec: spec,
				FrequenciesMHz: freqs,
				ElevationsDeg:  elevs,
				MaxDistanceKm:  ctx.Float64("max-distance"),
				StepKm:         ctx.Float64("step"),
				Absorption:     absorption(ctx),
				Azimuth:        ctx.Bool("azimuth"),
				MUF:            ctx.Bool("muf"),
				MUFLowMHz:      ctx.Float64("muf-low"),
				MUFHighMHz:     ctx.Float64("muf-high"),
			})
			if err != nil {
				return err
			}
			if ctx.GlobalBool(jsonFlag.Name) {
				return writeJSON(e.out, resp)
			}
			renderSweep(e.out, resp)
			return nil
		},
	}
}

func mufCommand(e *env) cli.Command {
	return cli.Command{
		Name:      "muf",
		Usage:     "Find the maximum usable frequency at each elevation",
		ArgsUsage: " ",
		Flags: withFlags(ionosphereFlags, traceOptionFlags, []cli.Flag{
			cli.StringFlag{Name: "elevs", Value: "5:80:5", Usage: "comma separated degrees or LO:HI:STEP"},
			cli.Float64Flag{Name: "low", Value: sweep.DefaultMUFLowMHz, Usage: "search lower bound in MHz"},
			cli.Float64Flag{Name: "high", Value: sweep.DefaultMUFHighMHz, Usage: "search upper bound in MHz"},
			cli.Float64Flag{Name: "tol", Value: core.DefaultMUFToleranceMHz, Usage: "bisection tolerance in MHz"},
		}),
		Action: func(ctx *cli.Context) error {
			svc, err := e.service()
			if err != nil {
				return err
			}
			spec, err := ionosphereSpec(ctx)
			if err != nil {
				return err
			}
			elevs, err := parseElevations(ctx.String("elevs"))
			if err != nil {
				return fmt.Errorf("--elevs: %w", err)
			}
			_, medium, err := svc.Resolve(spec)
			if err != nil {
				return err
			}
			opts, err := e.traceOptions(ctx)
			if err != nil {
				return err
			}

			out := make([]api.MUFEntry, 0, len(elevs))
			for _, el := range elevs {
				m, err := core.MaximumUsableFrequency(el, medium, ctx.Float64("low"), ctx.Float64("high"), ctx.Float64("tol"), opts)
				if err != nil {
					return err
				}
				entry := api.MUFEntry{ElevationDeg: el, FrequencyMHz: m.FrequencyMHz}
				if m.Trace != nil {
					entry.GroundRangeKm = m.Trace.GroundRangeKm
				}
				out = append(out, entry)
			}
			if ctx.GlobalBool(jsonFlag.Name) {
				return writeJSON(e.out, out)
			}
			renderMUF(e.out, out)
			return nil
		},
	}
}

func profileCommand(e *env) cli.Command {
	return cli.Command{
		Name:      "profile",
		Usage:     "Print the electron density profile",
		ArgsUsage: " ",
		Flags: withFlags(ionosphereFlags, []cli.Flag{
			cli.Float64Flag{Name: "min", Value: api.DefaultProfileMinKm, Usage: "lowest altitude in km"},
			cli.Float64Flag{Name: "max", Value: api.DefaultProfileMaxKm, Usage: "highest altitude in km"},
			cli.Float64Flag{Name: "alt-step", Value: api.DefaultProfileStepKm, Usage: "altitude step in km"},
			cli.Float64Flag{Name: "x", Usage: "horizontal range in km for a tilted ionosphere"},
		}),
		Action: func(ctx *cli.Context) error {
			svc, err := e.service()
			if err != nil {
				return err
			}
			spec, err := ionosphereSpec(ctx)
			if err != nil {
				return err
			}
			resp, err := svc.SampleProfile(context.Background(), &api.ProfileRequest{
				IonosphereSpec: spec,
				MinAltitudeKm:  ctx.Float64("min"),
				MaxAltitudeKm:  ctx.Float64("max"),
				StepKm:         ctx.Float64("alt-step"),
				HorizontalKm:   ctx.Float64("x"),
			})
			if err != nil {
				return err
			}
			if ctx.GlobalBool(jsonFlag.Name) {
				return writeJSON(e.out, resp)
			}
			renderProfile(e.out, resp)
			return nil
		},
	}
}

func scenariosCommand(e *env) cli.Command {
	return cli.Command{
		Name:  "scenarios",
		Usage: "List the scenario catalog",
		Action: func(ctx *cli.Context) error {
			svc, err := e.service()
			if err != nil {
				return err
			}
			resp := svc.Scenarios()
			if ctx.GlobalBool(jsonFlag.Name) {
				return writeJSON(e.out, resp)
			}
			renderScenarios(e.out, resp)
			return nil
		},
	}
}

// traceOptions applies the trace option flags to the configured defaults.
func (e *env) traceOptions(ctx *cli.Context) (core.TraceOptions, error) {
	opts := e.cfg.TraceOptions()
	if v := ctx.Float64("step"); v != 0 {
		opts.StepKm = v
	}
	if v := ctx.Float64("max-distance"); v != 0 {
		opts.MaxDistanceKm = v
	}
	if ctx.Bool("no-absorption") {
		opts.Absorption = false
	}
	opts.Azimuth = ctx.Bool("azimuth")
	return opts.Normalized()
}

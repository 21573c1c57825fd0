// Command ionoprop-server serves RayTraceService over gRPC with Prometheus
// metrics and optional OpenTelemetry tracing.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/urfave/cli.v1"

	"github.com/signalsfoundry/ionoprop/internal/config"
	"github.com/signalsfoundry/ionoprop/internal/logging"
	"github.com/signalsfoundry/ionoprop/internal/observability"
	"github.com/signalsfoundry/ionoprop/internal/server"
)

func main() {
	app := cli.NewApp()
	app.Name = "ionoprop-server"
	app.Usage = "HF ray tracing gRPC server"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "TOML configuration file", EnvVar: "IONOPROP_CONFIG"},
		cli.StringFlag{Name: "grpc-addr", Usage: "TCP address the gRPC server listens on"},
		cli.StringFlag{Name: "metrics-addr", Usage: "HTTP address for Prometheus /metrics"},
	}
	app.Action = func(ctx *cli.Context) error {
		cfg, log, err := loadConfig(ctx.String("config"))
		if err != nil {
			return err
		}
		if ctx.IsSet("grpc-addr") {
			cfg.Server.GRPCAddr = ctx.String("grpc-addr")
		}
		if ctx.IsSet("metrics-addr") {
			cfg.Server.MetricsAddr = ctx.String("metrics-addr")
		}

		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			log.Error(context.Background(), "failed to listen for gRPC", logging.String("addr", cfg.Server.GRPCAddr), logging.Err(err))
			return err
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(runCtx, cfg, log, lis)
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig layers the config file and IONOPROP_* variables over the
// defaults and builds the logger they describe.
func loadConfig(file string) (config.Config, logging.Logger, error) {
	cfg := config.Defaults()
	if file != "" {
		if err := config.Load(file, &cfg); err != nil {
			return cfg, nil, err
		}
	}
	cfg.ApplyEnv(logging.New(cfg.LoggingConfig()))
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	return cfg, logging.New(cfg.LoggingConfig()), nil
}

func run(ctx context.Context, cfg config.Config, log logging.Logger, lis net.Listener) error {
	shutdown, err := observability.InitTracing(ctx, cfg.TracingConfig(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown, log)

	srv, err := server.New(cfg, log, nil)
	if err != nil {
		return err
	}
	return srv.Serve(ctx, lis)
}

package main

import (
	"context"
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

func serveCommand(e *env) cli.Command {
	return cli.Command{
		Name:  "serve",
		Usage: "Serve RayTraceService over gRPC",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "grpc-addr", Usage: "gRPC listen address (default from config)"},
			cli.StringFlag{Name: "metrics-addr", Usage: "Prometheus /metrics address, empty string disables"},
		},
		Action: func(ctx *cli.Context) error {
			cfg := e.cfg
			if ctx.IsSet("grpc-addr") {
				cfg.Server.GRPCAddr = ctx.String("grpc-addr")
			}
			if ctx.IsSet("metrics-addr") {
				cfg.Server.MetricsAddr = ctx.String("metrics-addr")
			}
			runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(runCtx, cfg, e.log)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, log logging.Logger) error {
	shutdown, err := observability.InitTracing(ctx, cfg.TracingConfig(), log)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown, log)

	srv, err := server.New(cfg, log, nil)
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.Server.GRPCAddr), logging.Err(err))
		return err
	}
	return srv.Serve(ctx, lis)
}

func dumpConfigCommand(e *env) cli.Command {
	return cli.Command{
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		Description: "The dumpconfig command prints the effective configuration as TOML.",
		Action: func(ctx *cli.Context) error {
			return config.Dump(e.out, e.cfg)
		},
	}
}

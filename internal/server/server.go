// Package server assembles the RayTraceService gRPC server and its metrics
// endpoint from a configuration.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/ionoprop/internal/api"
	"github.com/signalsfoundry/ionoprop/internal/config"
	"github.com/signalsfoundry/ionoprop/internal/logging"
	"github.com/signalsfoundry/ionoprop/internal/observability"
	"github.com/signalsfoundry/ionoprop/internal/sweep"
	"github.com/signalsfoundry/ionoprop/kb"
)

// NewCatalog returns the built-in scenarios overlaid with those declared in
// cfg. A configured scenario replaces a built-in one with the same ID.
func NewCatalog(cfg config.Config) (*kb.Catalog, error) {
	catalog := kb.NewDefaultCatalog()
	for _, sc := range cfg.Scenarios {
		s := sc.Scenario()
		err := catalog.Update(s)
		if errors.Is(err, kb.ErrScenarioNotFound) {
			err = catalog.Add(s)
		}
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", sc.ID, err)
		}
	}
	return catalog, nil
}

// NewService builds a service over catalog using the trace and cache
// settings of cfg. traces may be nil.
func NewService(cfg config.Config, catalog *kb.Catalog, traces *observability.TraceCollector, log logging.Logger) (*api.Service, error) {
	cache, err := api.NewResultCache(cfg.Cache.Entries, traces)
	if err != nil {
		return nil, fmt.Errorf("result cache: %w", err)
	}
	engine := sweep.NewEngine(cfg.Trace.Workers, log, traces)
	defaults := api.Defaults{
		Options:      cfg.TraceOptions(),
		ElevationDeg: cfg.Trace.ElevationDeg,
	}
	return api.NewService(catalog, engine, cache, defaults, traces, log), nil
}

// Server is a configured gRPC server plus optional metrics listener.
type Server struct {
	cfg     config.Config
	log     logging.Logger
	catalog *kb.Catalog
	rpc     *observability.RPCCollector
	grpc    *grpc.Server

	unsubscribe func()
}

// New wires the catalog, collectors, cache, sweep engine and gRPC server.
// reg defaults to the global Prometheus registry when nil.
func New(cfg config.Config, log logging.Logger, reg prometheus.Registerer) (*Server, error) {
	if log == nil {
		log = logging.Noop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rpc, err := observability.NewRPCCollector(reg)
	if err != nil {
		return nil, fmt.Errorf("rpc metrics: %w", err)
	}
	traces, err := observability.NewTraceCollector(reg)
	if err != nil {
		return nil, fmt.Errorf("trace metrics: %w", err)
	}

	catalog, err := NewCatalog(cfg)
	if err != nil {
		return nil, err
	}
	rpc.SetScenarioCount(catalog.Len())
	unsubscribe := catalog.Subscribe(func(kb.Event) {
		rpc.SetScenarioCount(catalog.Len())
	})

	svc, err := NewService(cfg, catalog, traces, log)
	if err != nil {
		unsubscribe()
		return nil, err
	}

	gs := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			api.RequestIDUnaryServerInterceptor(log),
			api.TracingUnaryServerInterceptor(),
			rpc.UnaryServerInterceptor(),
		),
	)
	api.RegisterRayTraceServiceServer(gs, svc)

	return &Server{
		cfg:         cfg,
		log:         log,
		catalog:     catalog,
		rpc:         rpc,
		grpc:        gs,
		unsubscribe: unsubscribe,
	}, nil
}

// Catalog returns the live scenario catalog.
func (s *Server) Catalog() *kb.Catalog { return s.catalog }

// Serve accepts gRPC connections on lis until ctx is cancelled, then stops
// gracefully. A metrics listener is started when MetricsAddr is set.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	defer s.unsubscribe()

	metricsSrv := s.serveMetrics(s.cfg.Server.MetricsAddr)

	s.log.Info(ctx, "starting gRPC server",
		logging.String("addr", lis.Addr().String()),
		logging.Int("scenarios", s.catalog.Len()),
	)
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpc.Serve(lis)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		s.log.Info(context.Background(), "shutting down gRPC server")
		s.grpc.GracefulStop()
		<-errCh
	case serveErr = <-errCh:
		if errors.Is(serveErr, grpc.ErrServerStopped) {
			serveErr = nil
		}
	}

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return serveErr
}

func (s *Server) serveMetrics(addr string) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.rpc.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	s.log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

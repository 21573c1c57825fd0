package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/ionoprop/internal/api"
	"github.com/signalsfoundry/ionoprop/internal/config"
	"github.com/signalsfoundry/ionoprop/internal/logging"
	"github.com/signalsfoundry/ionoprop/kb"
	"github.com/signalsfoundry/ionoprop/model"
)

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.Server.MetricsAddr = ""
	cfg.Trace.Workers = 2
	cfg.Scenarios = []config.ScenarioConfig{
		{ID: "contest", FoF2MHz: 14, Season: "winter"},
		{ID: "day", FoF2MHz: 10},
	}
	return cfg
}

func TestNewCatalogOverlaysConfig(t *testing.T) {
	catalog, err := NewCatalog(testConfig())
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	if got, want := catalog.Len(), len(kb.DefaultScenarios())+1; got != want {
		t.Fatalf("catalog size = %d, want %d", got, want)
	}
	day, err := catalog.Get("day")
	if err != nil {
		t.Fatalf("Get(day): %v", err)
	}
	if day.FoF2MHz != 10 {
		t.Fatalf("day foF2 = %v, want configured 10", day.FoF2MHz)
	}
	contest, err := catalog.Get("contest")
	if err != nil {
		t.Fatalf("Get(contest): %v", err)
	}
	if contest.Season != model.SeasonWinter {
		t.Fatalf("contest season = %v, want winter", contest.Season)
	}
}

func TestNewCatalogRejectsInvalidScenario(t *testing.T) {
	cfg := config.Defaults()
	cfg.Scenarios = []config.ScenarioConfig{{ID: "flat"}}
	if _, err := NewCatalog(cfg); err == nil {
		t.Fatalf("NewCatalog accepted a scenario without foF2")
	}
}

func TestServerStartupSmoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reg := prometheus.NewRegistry()
	srv, err := New(testConfig(), logging.New(logging.Config{Level: "warn"}), reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	serveCtx, stop := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(serveCtx, lis)
	}()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	defer conn.Close()
	client := api.NewRayTraceClient(conn)

	list, err := client.ListScenarios(ctx)
	if err != nil {
		t.Fatalf("ListScenarios: %v", err)
	}
	found := false
	for _, s := range list.Scenarios {
		if s.ID == "contest" {
			found = true
		}
	}
	if !found {
		t.Fatalf("configured scenario missing from %d listed", len(list.Scenarios))
	}

	if _, err := client.PutScenario(ctx, &api.ScenarioView{ID: "late", FoF2MHz: 5}); err != nil {
		t.Fatalf("PutScenario: %v", err)
	}
	gauge, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var scenarios float64
	for _, mf := range gauge {
		if mf.GetName() == "ionoprop_catalog_scenarios" {
			scenarios = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	if want := float64(srv.Catalog().Len()); scenarios != want {
		t.Fatalf("ionoprop_catalog_scenarios = %v, want %v", scenarios, want)
	}

	resp, err := client.Trace(ctx, &api.TraceRequest{
		IonosphereSpec: api.IonosphereSpec{ScenarioID: "contest"},
		FrequencyMHz:   14,
	})
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if !resp.Result.Status.Valid() {
		t.Fatalf("status = %q, want a terminal status", resp.Result.Status)
	}
	if got, err := testutil.GatherAndCount(reg, "ionoprop_traces_total"); err != nil || got == 0 {
		t.Fatalf("ionoprop_traces_total series = %d (%v), want at least one", got, err)
	}

	stop()
	if err := <-errCh; err != nil {
		t.Fatalf("Serve returned error: %v", err)
	}
}

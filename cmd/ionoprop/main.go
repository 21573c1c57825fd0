// Command ionoprop traces HF rays through a model ionosphere from the
// command line and can serve the same operations over gRPC.
package main

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/urfave/cli.v1"

	"github.com/signalsfoundry/ionoprop/internal/api"
	"github.com/signalsfoundry/ionoprop/internal/config"
	"github.com/signalsfoundry/ionoprop/internal/logging"
	"github.com/signalsfoundry/ionoprop/internal/server"
)

var (
	configFileFlag = cli.StringFlag{
		Name:   "config",
		Usage:  "TOML configuration file",
		EnvVar: "IONOPROP_CONFIG",
	}
	logLevelFlag = cli.StringFlag{
		Name:  "log-level",
		Usage: "log level (debug, info, warn, error)",
	}
	jsonFlag = cli.BoolFlag{
		Name:  "json",
		Usage: "print results as JSON instead of tables",
	}
)

// env is the state shared by every command once the global flags have
// been applied.
type env struct {
	cfg config.Config
	log logging.Logger
	svc *api.Service
	out io.Writer
}

func newApp(out io.Writer) *cli.App {
	e := &env{out: out}

	app := cli.NewApp()
	app.Name = "ionoprop"
	app.Usage = "HF ionospheric ray tracing"
	app.Writer = out
	app.Flags = []cli.Flag{configFileFlag, logLevelFlag, jsonFlag}
	app.Before = e.setup
	app.Commands = []cli.Command{
		traceCommand(e),
		sweepCommand(e),
		mufCommand(e),
		profileCommand(e),
		scenariosCommand(e),
		serveCommand(e),
		dumpConfigCommand(e),
	}
	return app
}

func (e *env) setup(ctx *cli.Context) error {
	e.cfg = config.Defaults()
	if file := ctx.GlobalString(configFileFlag.Name); file != "" {
		if err := config.Load(file, &e.cfg); err != nil {
			return err
		}
	}

	boot := logging.New(e.cfg.LoggingConfig())
	e.cfg.ApplyEnv(boot)
	if lvl := ctx.GlobalString(logLevelFlag.Name); lvl != "" {
		e.cfg.Log.Level = lvl
	}
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	e.log = logging.New(e.cfg.LoggingConfig())
	return nil
}

// service builds the in-process service on first use.
func (e *env) service() (*api.Service, error) {
	if e.svc != nil {
		return e.svc, nil
	}
	catalog, err := server.NewCatalog(e.cfg)
	if err != nil {
		return nil, err
	}
	svc, err := server.NewService(e.cfg, catalog, nil, e.log)
	if err != nil {
		return nil, err
	}
	e.svc = svc
	return svc, nil
}

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

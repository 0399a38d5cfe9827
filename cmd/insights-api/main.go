package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	flag "github.com/spf13/pflag"

	"retail-insights/internal/api"
	"retail-insights/internal/api/handler"
	"retail-insights/internal/config"
	"retail-insights/internal/logger"
	"retail-insights/internal/metrics"
	"retail-insights/internal/pipeline"
	"retail-insights/internal/store"
	"retail-insights/pkg/router"
	"retail-insights/pkg/utils"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configFlag := flag.String("config", "config.toml", "Path to the TOML config file")
	envFlag := flag.String("env-file", ".env", "Optional .env file loaded before the config")
	verboseFlag := flag.Bool("verbose", false, "Enable verbose (debug) logging")
	listenAddrFlag := flag.String("listen-addr", "", "Address to listen on, overrides server.listen_addr")
	shutdownFlag := flag.String("shutdown-timeout", "", "Graceful shutdown timeout such as 30s, overrides server.shutdown_timeout")
	flag.Parse()

	if err := config.LoadEnv(*envFlag); err != nil {
		return err
	}
	cfg, err := config.Load(*configFlag)
	if err != nil {
		return err
	}
	if flag.CommandLine.Changed("listen-addr") {
		cfg.Server.ListenAddr = *listenAddrFlag
	}
	cfg.Server.ShutdownTimeout = utils.ParseDuration(*shutdownFlag, cfg.Server.ShutdownTimeout)

	log := logger.New(*verboseFlag || cfg.Log.Verbose)
	metrics.BuildInfo.WithLabelValues(version, commit).Set(1)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	clock := clockwork.NewRealClock()
	runnerOpts := []pipeline.Option{pipeline.WithClock(clock)}
	var handlerOpts []handler.Option
	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path, clock)
		if err != nil {
			return err
		}
		defer st.Close()
		runnerOpts = append(runnerOpts, pipeline.WithRecorder(st))
		handlerOpts = append(handlerOpts, handler.WithRunStore(st))
		log.Info("run store opened", "path", cfg.Store.Path)
	}
	handlerOpts = append(handlerOpts, handler.WithReadOptions(pipeline.ReadOptions{
		Encoding:  cfg.Input.Encoding,
		Delimiter: cfg.Input.Delimiter,
	}))

	runner := pipeline.NewRunner(cfg.Data, log, runnerOpts...)
	h := handler.New(log, runner, handlerOpts...)

	r := router.New(log, metrics.Middleware)
	api.RegisterRoutes(r, h)
	for _, route := range r.Routes() {
		log.Debug("route registered", "route", route)
	}

	log.Info("starting retail insights api", slog.String("version", version), slog.String("address", cfg.Server.ListenAddr))
	return r.Serve(ctx, cfg.Server.ListenAddr, cfg.Server.ShutdownTimeout)
}

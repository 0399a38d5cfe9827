package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	flag "github.com/spf13/pflag"

	"retail-insights/internal/config"
	"retail-insights/internal/logger"
	"retail-insights/internal/pipeline"
	"retail-insights/internal/store"
	"retail-insights/pkg/utils"
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
	inputFlag := flag.StringSlice("input", nil, "Input CSV files, overrides input.paths")
	outputFlag := flag.String("output-dir", "", "Output directory, overrides output.dir")
	dimensionFlag := flag.String("dimension", "", "Split daily revenue by ship_state, category or sku")
	flag.Parse()

	if err := config.LoadEnv(*envFlag); err != nil {
		return err
	}
	cfg, err := config.Load(*configFlag)
	if err != nil {
		return err
	}
	if flag.CommandLine.Changed("input") {
		cfg.Input.Paths = *inputFlag
	}
	if flag.CommandLine.Changed("output-dir") {
		cfg.Output.Dir = *outputFlag
	}
	if len(cfg.Input.Paths) == 0 {
		return fmt.Errorf("no input files: set input.paths or pass --input")
	}
	dim, err := pipeline.ParseDimension(*dimensionFlag)
	if err != nil {
		return err
	}

	log := logger.New(*verboseFlag || cfg.Log.Verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	clock := clockwork.NewRealClock()
	opts := []pipeline.Option{pipeline.WithClock(clock)}
	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path, clock)
		if err != nil {
			return err
		}
		defer st.Close()
		opts = append(opts, pipeline.WithRecorder(st))
	}

	runner := pipeline.NewRunner(cfg.Data, log, opts...)
	res, err := runner.RunBatch(ctx, cfg.Input.Sources(), utils.NewOutputManager(cfg.Output.Dir), pipeline.BatchOptions{
		TopN:      cfg.Output.TopN,
		Dimension: dim,
		JSON:      cfg.Output.JSON,
	})
	if err != nil {
		return fmt.Errorf("run %s failed: %w", res.Summary.RunID, err)
	}

	for _, f := range res.Files {
		log.Info("output file", "name", f.Name, "path", f.Path, "size", f.Size)
	}
	log.Info("batch complete", "run_id", res.Summary.RunID, "rows_in", res.Summary.RecordsIn, "rows_out", res.Summary.RecordsOut)
	return nil
}

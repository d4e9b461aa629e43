package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/gridstitch/internal/grid"
	"github.com/GriffinCanCode/gridstitch/internal/heif"
	"github.com/GriffinCanCode/gridstitch/internal/infrastructure/logging"
	"github.com/GriffinCanCode/gridstitch/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/gridstitch/internal/shared/id"
)

// Exit codes
const (
	exitOK     = 0
	exitFailed = 1 // at least one grid or input failed
	exitFatal  = 2 // bad usage, configuration or environment
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		return exitFatal
	}
	if opts.help {
		opts.flagSet.Usage()
		return exitOK
	}
	if len(opts.inputs) == 0 {
		fmt.Fprintln(stderr, "gridstitch: no inputs given")
		opts.flagSet.Usage()
		return exitFatal
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "gridstitch: %v\n", err)
		return exitFatal
	}

	base, err := logging.FromLevel(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(stderr, "gridstitch: %v\n", err)
		return exitFatal
	}
	defer base.Sync()

	runID := id.NewRunID()
	logger := base.ForRun(runID)

	transcoderPath, err := exec.LookPath(cfg.Transcoder.Path)
	if err != nil {
		logger.Error("transcoder not found", zap.String("transcoder", cfg.Transcoder.Path), zap.Error(err))
		return exitFatal
	}

	inputs, err := collectInputs(ctx, opts.inputs)
	if err != nil {
		logger.Error("collecting inputs", zap.Strings("args", opts.inputs), zap.Error(err))
		return exitFatal
	}

	metrics := monitoring.NewMetrics()
	tc := grid.NewTranscoder(cfg.Transcoder)
	tc.Path = transcoderPath
	pipeline := grid.NewPipeline(tc, grid.Options{
		SampleBufferSize:  cfg.Pipeline.SampleBufferSize,
		StrictTiles:       cfg.Pipeline.StrictTiles,
		DumpRaw:           cfg.Output.DumpRaw,
		MaxLaunchFailures: cfg.Transcoder.MaxLaunchFailures,
	}, logger, metrics)
	driver := &grid.Driver{
		Pipeline:    pipeline,
		OutDir:      cfg.Output.Dir,
		Format:      cfg.Output.Format,
		PrefixInput: len(inputs) > 1,
		Logger:      logger,
	}

	logger.Info("starting",
		zap.Int("inputs", len(inputs)),
		zap.String("transcoder", transcoderPath),
		zap.String("out_dir", cfg.Output.Dir),
		zap.String("format", cfg.Output.Format))

	report := grid.NewReport(runID)
	opened, fileErrors := processInputs(ctx, logger, driver, inputs, report)
	report.Finished = time.Now()

	if cfg.Metrics.File != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.File); err != nil {
			logger.Warn("writing metrics", zap.String("path", cfg.Metrics.File), zap.Error(err))
		}
	}
	if cfg.Output.Report != "" {
		if err := report.WriteFile(cfg.Output.Report); err != nil {
			logger.Warn("writing report", zap.String("path", cfg.Output.Report), zap.Error(err))
		}
	}

	logger.Info("finished",
		zap.Int("grids", report.Grids),
		zap.Int("failed", report.Failed),
		zap.Int("input_errors", fileErrors),
		zap.Duration("duration", report.Finished.Sub(report.Started)))

	switch {
	case opened == 0:
		return exitFatal
	case ctx.Err() != nil, fileErrors > 0, report.Failed > 0:
		return exitFailed
	default:
		return exitOK
	}
}

// processInputs runs every container through the driver, one at a time.
// It returns how many containers could be opened and how many failed as a
// whole.
func processInputs(ctx context.Context, logger *logging.Logger, driver *grid.Driver, inputs []string, report *grid.Report) (opened, failed int) {
	for _, input := range inputs {
		if ctx.Err() != nil {
			logger.Warn("interrupted, skipping remaining inputs")
			break
		}

		hf, err := heif.Open(input)
		if err != nil {
			logger.Error("opening input", zap.String("input", input), zap.Error(err))
			report.Add(&grid.FileResult{Input: input, Error: err.Error()})
			failed++
			continue
		}
		opened++

		fr, err := driver.Run(ctx, input, hf)
		if cerr := hf.Close(); cerr != nil {
			logger.Debug("closing input", zap.String("input", input), zap.Error(cerr))
		}
		report.Add(fr)
		if err != nil {
			logger.Error("processing input", zap.String("input", input), zap.Error(err))
			failed++
		}
	}
	return opened, failed
}

package main

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/GriffinCanCode/gridstitch/internal/infrastructure/config"
)

// options holds everything parsed from the command line.
type options struct {
	configFile  string
	outDir      string
	format      string
	transcoder  string
	strictTiles bool
	dumpRaw     bool
	metricsFile string
	report      string
	logLevel    string
	dev         bool
	help        bool

	flagSet *pflag.FlagSet
	inputs  []string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("gridstitch", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.configFile, "config", "c", "", "YAML or TOML configuration file")
	fs.StringVarP(&opts.outDir, "out-dir", "o", "", "directory for stitched images (default \".\")")
	fs.StringVarP(&opts.format, "format", "f", "", "output file extension, chosen encoder format (default \"png\")")
	fs.StringVar(&opts.transcoder, "transcoder", "", "transcoder executable (default \"ffmpeg\")")
	fs.BoolVar(&opts.strictTiles, "strict-tiles", false, "fail a grid when a decoded tile is incomplete")
	fs.BoolVar(&opts.dumpRaw, "dump-raw", false, "also write the uncropped canvas as zstd-compressed RGB24")
	fs.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	fs.StringVar(&opts.report, "report", "", "write a JSON run report to this file")
	fs.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	fs.BoolVar(&opts.dev, "dev", false, "human-readable console logging")
	fs.BoolVarP(&opts.help, "help", "h", false, "show help")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: gridstitch [flags] <file|dir|glob>...\n\n"+
			"Extracts every grid image from HEIF/AVIF containers, decoding and\n"+
			"re-encoding tiles through an external transcoder.\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.flagSet = fs
	opts.inputs = fs.Args()
	return opts, nil
}

// apply overrides cfg with every flag set explicitly on the command line.
func (o *options) apply(cfg *config.Config) {
	changed := o.flagSet.Changed
	if changed("out-dir") {
		cfg.Output.Dir = o.outDir
	}
	if changed("format") {
		cfg.Output.Format = o.format
	}
	if changed("transcoder") {
		cfg.Transcoder.Path = o.transcoder
	}
	if changed("strict-tiles") {
		cfg.Pipeline.StrictTiles = o.strictTiles
	}
	if changed("dump-raw") {
		cfg.Output.DumpRaw = o.dumpRaw
	}
	if changed("metrics-file") {
		cfg.Metrics.File = o.metricsFile
	}
	if changed("report") {
		cfg.Output.Report = o.report
	}
	if changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if changed("dev") {
		cfg.Logging.Development = o.dev
	}
}

func (o *options) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configFile != "" {
		cfg, err = config.LoadFile(o.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	o.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

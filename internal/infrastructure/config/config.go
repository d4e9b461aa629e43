package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/gridstitch/internal/shared/paths"
)

// Placeholders substituted into transcoder arguments.
const (
	PlaceholderWidth  = "{width}"
	PlaceholderHeight = "{height}"
	PlaceholderOutput = "{output}"
)

const (
	defaultDecodeArgs = "-hide_banner,-loglevel,error,-i,-,-f,rawvideo,-pix_fmt,rgb24,-"
	defaultEncodeArgs = "-hide_banner,-loglevel,error,-y,-f,rawvideo,-pix_fmt,rgb24,-s,{width}x{height},-i,-,{output}"
)

// Config holds all application configuration.
type Config struct {
	Transcoder TranscoderConfig `yaml:"transcoder" toml:"transcoder"`
	Pipeline   PipelineConfig   `yaml:"pipeline" toml:"pipeline"`
	Output     OutputConfig     `yaml:"output" toml:"output"`
	Logging    LogConfig        `yaml:"logging" toml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics" toml:"metrics"`
}

// TranscoderConfig describes the external decoder/encoder program.
type TranscoderConfig struct {
	Path       string   `envconfig:"GRIDSTITCH_TRANSCODER" default:"ffmpeg" yaml:"path" toml:"path"`
	DecodeArgs []string `envconfig:"GRIDSTITCH_DECODE_ARGS" default:"-hide_banner,-loglevel,error,-i,-,-f,rawvideo,-pix_fmt,rgb24,-" yaml:"decode_args" toml:"decode_args"`
	EncodeArgs []string `envconfig:"GRIDSTITCH_ENCODE_ARGS" default:"-hide_banner,-loglevel,error,-y,-f,rawvideo,-pix_fmt,rgb24,-s,{width}x{height},-i,-,{output}" yaml:"encode_args" toml:"encode_args"`
	// PipeSize requests a kernel pipe buffer size in bytes; 0 keeps the default.
	PipeSize int `envconfig:"GRIDSTITCH_PIPE_SIZE" default:"0" yaml:"pipe_size" toml:"pipe_size"`
	// MaxLaunchFailures consecutive failed launches stop further grids.
	MaxLaunchFailures uint32 `envconfig:"GRIDSTITCH_MAX_LAUNCH_FAILURES" default:"3" yaml:"max_launch_failures" toml:"max_launch_failures"`
}

// PipelineConfig holds decode pass settings.
type PipelineConfig struct {
	SampleBufferSize int  `envconfig:"GRIDSTITCH_SAMPLE_BUFFER" default:"67108864" yaml:"sample_buffer" toml:"sample_buffer"`
	StrictTiles      bool `envconfig:"GRIDSTITCH_STRICT_TILES" default:"false" yaml:"strict_tiles" toml:"strict_tiles"`
}

// OutputConfig holds output placement settings.
type OutputConfig struct {
	Dir     string `envconfig:"GRIDSTITCH_OUT_DIR" default:"." yaml:"dir" toml:"dir"`
	Format  string `envconfig:"GRIDSTITCH_FORMAT" default:"png" yaml:"format" toml:"format"`
	DumpRaw bool   `envconfig:"GRIDSTITCH_DUMP_RAW" default:"false" yaml:"dump_raw" toml:"dump_raw"`
	Report  string `envconfig:"GRIDSTITCH_REPORT" yaml:"report" toml:"report"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"GRIDSTITCH_LOG_LEVEL" default:"info" yaml:"level" toml:"level"`
	Development bool   `envconfig:"GRIDSTITCH_LOG_DEV" default:"false" yaml:"development" toml:"development"`
}

// MetricsConfig holds metrics output configuration.
type MetricsConfig struct {
	File string `envconfig:"GRIDSTITCH_METRICS_FILE" yaml:"file" toml:"file"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile loads the environment and then overlays a YAML or TOML file,
// chosen by extension. Keys present in the file win over the environment.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Transcoder: TranscoderConfig{
			Path:              "ffmpeg",
			DecodeArgs:        strings.Split(defaultDecodeArgs, ","),
			EncodeArgs:        strings.Split(defaultEncodeArgs, ","),
			PipeSize:          0,
			MaxLaunchFailures: 3,
		},
		Pipeline: PipelineConfig{
			SampleBufferSize: 8192 * 8192,
			StrictTiles:      false,
		},
		Output: OutputConfig{
			Dir:    ".",
			Format: "png",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// Validate reports configuration that cannot produce a working run.
func (c *Config) Validate() error {
	var errs []error
	if c.Transcoder.Path == "" {
		errs = append(errs, errors.New("transcoder path is empty"))
	}
	if len(c.Transcoder.DecodeArgs) == 0 {
		errs = append(errs, errors.New("decode arguments are empty"))
	}
	if !slices.ContainsFunc(c.Transcoder.EncodeArgs, func(arg string) bool {
		return strings.Contains(arg, PlaceholderOutput)
	}) {
		errs = append(errs, fmt.Errorf("encode arguments must contain %s", PlaceholderOutput))
	}
	if c.Transcoder.PipeSize < 0 {
		errs = append(errs, fmt.Errorf("pipe size %d is negative", c.Transcoder.PipeSize))
	}
	if c.Pipeline.SampleBufferSize <= 0 {
		errs = append(errs, fmt.Errorf("sample buffer size %d must be positive", c.Pipeline.SampleBufferSize))
	}
	if err := paths.ValidateFormat(c.Output.Format); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

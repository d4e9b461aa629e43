// Package config provides 12-factor configuration management for gridstitch.
//
// Configuration is loaded from environment variables with sensible defaults,
// optionally overlaid by a YAML or TOML file. CLI flags override both.
//
// Configuration Sections:
//   - Transcoder: external program path, decode/encode argument templates
//   - Pipeline: sample buffer ceiling, strict tile handling
//   - Output: directory, image format, raw canvas dumps, run report
//   - Logging: log level and output format
//   - Metrics: Prometheus textfile destination
//
// Encode arguments may use {width}, {height} and {output}, which are
// substituted per grid.
//
// Example Usage:
//
//	cfg, err := config.LoadFile("gridstitch.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//
// Environment Variables:
//   - GRIDSTITCH_TRANSCODER, GRIDSTITCH_DECODE_ARGS, GRIDSTITCH_ENCODE_ARGS
//   - GRIDSTITCH_PIPE_SIZE, GRIDSTITCH_MAX_LAUNCH_FAILURES
//   - GRIDSTITCH_SAMPLE_BUFFER, GRIDSTITCH_STRICT_TILES
//   - GRIDSTITCH_OUT_DIR, GRIDSTITCH_FORMAT, GRIDSTITCH_DUMP_RAW, GRIDSTITCH_REPORT
//   - GRIDSTITCH_LOG_LEVEL, GRIDSTITCH_LOG_DEV, GRIDSTITCH_METRICS_FILE
package config

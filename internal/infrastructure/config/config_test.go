package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Transcoder config
	assert.Equal(t, "ffmpeg", cfg.Transcoder.Path)
	assert.Equal(t, []string{"-hide_banner", "-loglevel", "error", "-i", "-", "-f", "rawvideo", "-pix_fmt", "rgb24", "-"}, cfg.Transcoder.DecodeArgs)
	assert.Contains(t, cfg.Transcoder.EncodeArgs, "{width}x{height}")
	assert.Contains(t, cfg.Transcoder.EncodeArgs, "{output}")
	assert.Equal(t, uint32(3), cfg.Transcoder.MaxLaunchFailures)

	// Pipeline config
	assert.Equal(t, 8192*8192, cfg.Pipeline.SampleBufferSize)
	assert.False(t, cfg.Pipeline.StrictTiles)

	// Output config
	assert.Equal(t, ".", cfg.Output.Dir)
	assert.Equal(t, "png", cfg.Output.Format)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	assert.NoError(t, cfg.Validate())
}

func TestLoadMatchesDefault(t *testing.T) {
	// Should match Default when no env vars are set
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"GRIDSTITCH_TRANSCODER":          "/opt/ffmpeg/bin/ffmpeg",
		"GRIDSTITCH_DECODE_ARGS":         "-i,-,-f,rawvideo,-",
		"GRIDSTITCH_PIPE_SIZE":           "1048576",
		"GRIDSTITCH_MAX_LAUNCH_FAILURES": "1",
		"GRIDSTITCH_SAMPLE_BUFFER":       "4096",
		"GRIDSTITCH_STRICT_TILES":        "true",
		"GRIDSTITCH_OUT_DIR":             "/tmp/out",
		"GRIDSTITCH_FORMAT":              "jpg",
		"GRIDSTITCH_DUMP_RAW":            "true",
		"GRIDSTITCH_LOG_LEVEL":           "debug",
		"GRIDSTITCH_LOG_DEV":             "true",
		"GRIDSTITCH_METRICS_FILE":        "/tmp/gridstitch.prom",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	// Verify transcoder config
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.Transcoder.Path)
	assert.Equal(t, []string{"-i", "-", "-f", "rawvideo", "-"}, cfg.Transcoder.DecodeArgs)
	assert.Equal(t, 1048576, cfg.Transcoder.PipeSize)
	assert.Equal(t, uint32(1), cfg.Transcoder.MaxLaunchFailures)

	// Verify pipeline config
	assert.Equal(t, 4096, cfg.Pipeline.SampleBufferSize)
	assert.True(t, cfg.Pipeline.StrictTiles)

	// Verify output config
	assert.Equal(t, "/tmp/out", cfg.Output.Dir)
	assert.Equal(t, "jpg", cfg.Output.Format)
	assert.True(t, cfg.Output.DumpRaw)

	// Verify logging and metrics config
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, "/tmp/gridstitch.prom", cfg.Metrics.File)
}

func TestLoadWithInvalidEnvironment(t *testing.T) {
	t.Setenv("GRIDSTITCH_SAMPLE_BUFFER", "lots")

	_, err := Load()
	assert.Error(t, err)

	cfg := LoadOrDefault()
	assert.Equal(t, 8192*8192, cfg.Pipeline.SampleBufferSize)
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
	}{
		{
			name:     "yaml",
			filename: "gridstitch.yaml",
			content: `transcoder:
  path: /usr/local/bin/ffmpeg
  pipe_size: 65536
pipeline:
  strict_tiles: true
output:
  format: webp
`,
		},
		{
			name:     "toml",
			filename: "gridstitch.toml",
			content: `[transcoder]
path = "/usr/local/bin/ffmpeg"
pipe_size = 65536

[pipeline]
strict_tiles = true

[output]
format = "webp"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.filename)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			cfg, err := LoadFile(path)
			require.NoError(t, err)

			assert.Equal(t, "/usr/local/bin/ffmpeg", cfg.Transcoder.Path)
			assert.Equal(t, 65536, cfg.Transcoder.PipeSize)
			assert.True(t, cfg.Pipeline.StrictTiles)
			assert.Equal(t, "webp", cfg.Output.Format)

			// Keys absent from the file keep their defaults
			assert.Equal(t, Default().Transcoder.DecodeArgs, cfg.Transcoder.DecodeArgs)
			assert.Equal(t, ".", cfg.Output.Dir)
			assert.Equal(t, "info", cfg.Logging.Level)
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	ini := filepath.Join(dir, "gridstitch.ini")
	require.NoError(t, os.WriteFile(ini, []byte("path=ffmpeg\n"), 0o644))
	_, err = LoadFile(ini)
	assert.Error(t, err)

	broken := filepath.Join(dir, "broken.toml")
	require.NoError(t, os.WriteFile(broken, []byte("[transcoder\npath = "), 0o644))
	_, err = LoadFile(broken)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty transcoder", mutate: func(c *Config) { c.Transcoder.Path = "" }, wantErr: true},
		{name: "no decode args", mutate: func(c *Config) { c.Transcoder.DecodeArgs = nil }, wantErr: true},
		{name: "encode without output", mutate: func(c *Config) { c.Transcoder.EncodeArgs = []string{"-i", "-"} }, wantErr: true},
		{name: "negative pipe size", mutate: func(c *Config) { c.Transcoder.PipeSize = -1 }, wantErr: true},
		{name: "zero sample buffer", mutate: func(c *Config) { c.Pipeline.SampleBufferSize = 0 }, wantErr: true},
		{name: "format with path", mutate: func(c *Config) { c.Output.Format = "../png" }, wantErr: true},
		{name: "shell encoder", mutate: func(c *Config) {
			c.Transcoder.EncodeArgs = []string{"-c", `cat > "$1"`, "sh", "{output}"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

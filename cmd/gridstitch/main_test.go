package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/gridstitch/internal/grid"
	"github.com/GriffinCanCode/gridstitch/internal/testutil"
)

func TestRunUsage(t *testing.T) {
	var stderr bytes.Buffer

	assert.Equal(t, exitOK, run(context.Background(), []string{"--help"}, &stderr))
	assert.Contains(t, stderr.String(), "--strict-tiles")

	stderr.Reset()
	assert.Equal(t, exitFatal, run(context.Background(), nil, &stderr))
	assert.Contains(t, stderr.String(), "no inputs")

	stderr.Reset()
	assert.Equal(t, exitFatal, run(context.Background(), []string{"--no-such-flag"}, &stderr))
}

func TestRunRejectsBadConfiguration(t *testing.T) {
	input := touch(t, filepath.Join(t.TempDir(), "a.heic"))

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing transcoder", args: []string{"--transcoder", "/nonexistent/gridstitch-ffmpeg", input}},
		{name: "bad format", args: []string{"--format", "../png", input}},
		{name: "bad log level", args: []string{"--log-level", "chatty", input}},
		{name: "missing config file", args: []string{"--config", "/nonexistent/gridstitch.yaml", input}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			assert.Equal(t, exitFatal, run(context.Background(), tt.args, &stderr))
		})
	}
}

func TestRunNoReadableInputs(t *testing.T) {
	testutil.LookPath(t, "sh")
	dir := t.TempDir()
	input := filepath.Join(dir, "photo.heic")
	require.NoError(t, os.WriteFile(input, []byte("plain text masquerading as an image\n"), 0o644))
	reportPath := filepath.Join(dir, "report.json")
	metricsPath := filepath.Join(dir, "gridstitch.prom")

	var stderr bytes.Buffer
	code := run(context.Background(), []string{
		"--transcoder", "sh",
		"--out-dir", filepath.Join(dir, "out"),
		"--report", reportPath,
		"--metrics-file", metricsPath,
		"--log-level", "error",
		input,
	}, &stderr)
	assert.Equal(t, exitFatal, code)

	report, err := grid.ReadReport(reportPath)
	require.NoError(t, err)
	require.Len(t, report.Files, 1)
	assert.Equal(t, input, report.Files[0].Input)
	assert.Contains(t, report.Files[0].Error, "not a HEIF")
	assert.FileExists(t, metricsPath)
	assert.NoDirExists(t, filepath.Join(dir, "out"))
}

func TestOptionsApplyOnlyChangedFlags(t *testing.T) {
	t.Setenv("GRIDSTITCH_FORMAT", "jpg")

	opts, err := parseFlags([]string{"--out-dir", "/tmp/grids", "--strict-tiles", "in.heic"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, []string{"in.heic"}, opts.inputs)

	cfg, err := opts.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/grids", cfg.Output.Dir)
	assert.True(t, cfg.Pipeline.StrictTiles)
	assert.Equal(t, "jpg", cfg.Output.Format, "unset flags keep environment values")
}

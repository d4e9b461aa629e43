package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with the fields gridstitch tags its output with.
type Logger struct {
	*zap.Logger
}

// FromLevel builds the CLI logger. Output always goes to stderr so it never
// mixes with transcoder data. Production writes JSON at info; dev switches
// to a coloured console encoder at debug. An empty level keeps the mode's
// default.
func FromLevel(level string, dev bool) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	// Per-tile diagnostics are rare and each one matters.
	cfg.Sampling = nil

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: logger}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// ForRun returns a logger tagged with the invocation's run id.
func (l *Logger) ForRun(runID fmt.Stringer) *Logger {
	return &Logger{Logger: l.With(zap.Stringer("run", runID))}
}

// ForGrid returns a child logger tagged with one grid pass.
func (l *Logger) ForGrid(gridRunID string, gridID uint32) *zap.Logger {
	return l.With(zap.String("grid_run", gridRunID), zap.Uint32("grid", gridID))
}

// Sync flushes buffered entries, ignoring the EINVAL/ENOTTY that syncing a
// terminal or pipe returns.
func (l *Logger) Sync() {
	_ = l.Logger.Sync()
}

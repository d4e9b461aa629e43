// Package logging provides structured logging using uber/zap.
//
// This package offers logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// All output goes to stderr. The CLI tags everything with the run id, and
// grid pipelines log through child loggers carrying grid_run and grid
// fields, with row/col/tile added at the point a tile fails.
//
// Example Usage:
//
//	logger, err := logging.FromLevel("debug", true)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//	runLog := logger.ForRun(id.NewRunID())
//	gridLog := runLog.ForGrid(gridRunID, 49)
//	gridLog.Error("decoder stopped", zap.Int("row", 1), zap.Int("col", 3))
package logging

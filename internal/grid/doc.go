// Package grid turns the grid items of a HEIF container into image files.
//
// For every grid a Pipeline:
//  1. reads the tile size from the first tile and rejects grids whose tiles
//     differ (ErrHeterogeneousTiles) or whose crop exceeds the canvas
//  2. starts the transcoder as a decoder and runs a stitch.Stitcher against
//     it, filling a full-resolution RGB24 canvas
//  3. starts the transcoder again as an encoder and writes the top-left
//     OutputWidth x OutputHeight region of the canvas row by row
//
// The encoder writes to a staging file that is renamed to grid-<id>.<ext>
// only after it exits 0, so a failed grid never leaves a file behind.
// Transcoder launches go through a circuit breaker per stage: once a stage
// has failed to start MaxLaunchFailures times in a row, later grids are
// skipped rather than spawning the same broken program again.
//
// A Driver runs the pipeline over every grid of a container, sequentially,
// and keeps going when one grid fails.
package grid

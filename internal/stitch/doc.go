// Package stitch assembles decoded tiles into one RGB24 canvas.
//
// A Stitcher runs two loops against a started decoder process: the feed
// loop writes each tile's compressed sample to the decoder's input, and the
// drain loop reads exactly one tile of raw pixels per grid cell back out and
// copies it row by row into the canvas. The decoded stream carries no tile
// boundaries, so the drain relies on the decoder emitting tiles in the order
// they were fed.
//
// The drain goroutine is the only writer of Buffers. Run joins it before
// returning, after which the canvas is safe to read.
package stitch

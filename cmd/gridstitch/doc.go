// Command gridstitch extracts grid images from HEIF and AVIF containers.
//
// Every grid item is decoded tile by tile through an external transcoder
// (ffmpeg by default), stitched into one canvas, cropped to the grid's
// declared output size and encoded back to an image file named
// grid-<id>.<ext>.
//
// Usage:
//
//	gridstitch [flags] <file|dir|glob>...
//
// Directories are searched recursively for .heic, .heif, .hif and .avif
// files. Glob patterns support "**".
//
// Configuration is read from GRIDSTITCH_* environment variables, then an
// optional YAML or TOML file (--config), then flags. The exit status is 0
// when every grid was written, 1 when any grid or input failed, and 2 for
// usage, configuration or environment errors.
package main

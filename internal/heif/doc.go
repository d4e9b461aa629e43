// Package heif reads grid images out of HEIF/ISOBMFF containers.
//
// It exposes only what the grid pipeline consumes: the list of grid items,
// each grid's descriptor (rows, columns, row-major tile ids, output crop),
// per-tile pixel dimensions from the ispe property, and per-tile
// compressed samples. HEVC samples are returned as an Annex-B stream with
// the VPS/SPS/PPS from the tile's hvcC property in front, which is what a
// command line decoder reading from a pipe expects.
//
// Box parsing is delegated to github.com/jdeng/goheif/heif/bmff.
package heif

package stitch

import (
	"errors"
	"fmt"
)

// BytesPerPixel is the size of one interleaved RGB24 pixel.
const BytesPerPixel = 3

var (
	ErrEmptyGrid = errors.New("grid has no tiles")
	ErrCrop      = errors.New("crop exceeds stitched canvas")
)

// Geometry describes one grid whose tiles all share the same size.
type Geometry struct {
	Rows    int
	Columns int

	TileWidth  int
	TileHeight int
	TileStride int
	TileSize   int

	FinalWidth  int
	FinalHeight int
	FinalStride int
	FinalSize   int
}

// NewGeometry derives tile and canvas layout from the grid shape and the
// size of its first tile.
func NewGeometry(rows, columns, tileWidth, tileHeight int) (Geometry, error) {
	if rows <= 0 || columns <= 0 {
		return Geometry{}, fmt.Errorf("%w: %dx%d", ErrEmptyGrid, rows, columns)
	}
	if tileWidth <= 0 || tileHeight <= 0 {
		return Geometry{}, fmt.Errorf("invalid tile size %dx%d", tileWidth, tileHeight)
	}
	g := Geometry{
		Rows:        rows,
		Columns:     columns,
		TileWidth:   tileWidth,
		TileHeight:  tileHeight,
		TileStride:  tileWidth * BytesPerPixel,
		FinalWidth:  tileWidth * columns,
		FinalHeight: tileHeight * rows,
	}
	g.TileSize = g.TileStride * g.TileHeight
	g.FinalStride = g.FinalWidth * BytesPerPixel
	g.FinalSize = g.FinalStride * g.FinalHeight
	return g, nil
}

// Tiles returns the number of cells in the grid.
func (g Geometry) Tiles() int {
	return g.Rows * g.Columns
}

// Position maps a row-major tile index to its grid cell.
func (g Geometry) Position(index int) (row, col int) {
	return index / g.Columns, index % g.Columns
}

// TileOffset is the byte offset of the top-left pixel of cell (row, col)
// inside the canvas.
func (g Geometry) TileOffset(row, col int) int {
	return row*g.TileHeight*g.FinalStride + col*g.TileStride
}

// Place copies one decoded tile into its cell of the canvas. The rows are
// copied one at a time because the canvas stride is wider than the tile
// stride whenever there is more than one column.
func (g Geometry) Place(final, tile []byte, row, col int) {
	base := g.TileOffset(row, col)
	for y := 0; y < g.TileHeight; y++ {
		dst := base + y*g.FinalStride
		src := y * g.TileStride
		copy(final[dst:dst+g.TileStride], tile[src:src+g.TileStride])
	}
}

// CheckCrop verifies that a width x height crop anchored at the top-left
// corner fits inside the canvas.
func (g Geometry) CheckCrop(width, height int) error {
	if width <= 0 || height <= 0 || width > g.FinalWidth || height > g.FinalHeight {
		return fmt.Errorf("%w: %dx%d on %dx%d", ErrCrop, width, height, g.FinalWidth, g.FinalHeight)
	}
	return nil
}

// CropRows calls fn with each of the first height canvas rows trimmed to
// width pixels, stopping at the first error.
func (g Geometry) CropRows(final []byte, width, height int, fn func(row []byte) error) error {
	if err := g.CheckCrop(width, height); err != nil {
		return err
	}
	rowBytes := width * BytesPerPixel
	for y := 0; y < height; y++ {
		off := y * g.FinalStride
		if err := fn(final[off : off+rowBytes]); err != nil {
			return fmt.Errorf("writing crop row %d: %w", y, err)
		}
	}
	return nil
}

// Buffers holds the per-tile scratch buffer and the full canvas for one
// grid. Both are written only by the drain goroutine.
type Buffers struct {
	Tile  []byte
	Final []byte
}

// NewBuffers allocates both buffers once for the grid.
func NewBuffers(g Geometry) *Buffers {
	return &Buffers{
		Tile:  make([]byte, g.TileSize),
		Final: make([]byte, g.FinalSize),
	}
}

package heif

import (
	"encoding/binary"
	"fmt"
)

// parseGrid decodes an ImageGrid payload (ISO/IEC 23008-12 6.6.2.3):
//
//	version(8) flags(8) rows_minus_one(8) columns_minus_one(8)
//	output_width(16|32) output_height(16|32)
//
// Bit 0 of flags selects 32-bit output dimensions.
func parseGrid(payload []byte) (Grid, error) {
	if len(payload) < 4 {
		return Grid{}, fmt.Errorf("%w: %d byte payload", ErrBadGrid, len(payload))
	}
	if payload[0] != 0 {
		return Grid{}, fmt.Errorf("%w: version %d", ErrBadGrid, payload[0])
	}
	grid := Grid{
		Rows:    int(payload[2]) + 1,
		Columns: int(payload[3]) + 1,
	}
	rest := payload[4:]
	if payload[1]&1 == 0 {
		if len(rest) < 4 {
			return Grid{}, fmt.Errorf("%w: truncated 16-bit dimensions", ErrBadGrid)
		}
		grid.OutputWidth = int(binary.BigEndian.Uint16(rest[0:2]))
		grid.OutputHeight = int(binary.BigEndian.Uint16(rest[2:4]))
	} else {
		if len(rest) < 8 {
			return Grid{}, fmt.Errorf("%w: truncated 32-bit dimensions", ErrBadGrid)
		}
		grid.OutputWidth = int(binary.BigEndian.Uint32(rest[0:4]))
		grid.OutputHeight = int(binary.BigEndian.Uint32(rest[4:8]))
	}
	return grid, nil
}

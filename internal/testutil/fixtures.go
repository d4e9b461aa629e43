package testutil

import "errors"

var (
	ErrNoSample       = errors.New("no sample for item")
	ErrSampleTooLarge = errors.New("sample larger than buffer")
)

// SolidTile returns width*height RGB24 pixels of a single colour.
func SolidTile(width, height int, r, g, b byte) []byte {
	tile := make([]byte, width*height*3)
	for i := 0; i < len(tile); i += 3 {
		tile[i] = r
		tile[i+1] = g
		tile[i+2] = b
	}
	return tile
}

// TileColor gives every tile index a distinct, non-black colour.
func TileColor(index int) (r, g, b byte) {
	return byte(10 + index*37), byte(200 - index*13), byte(1 + index*7)
}

// Samples serves pre-built byte slices as compressed tile samples keyed by
// item id. It satisfies stitch.SampleSource.
type Samples map[uint32][]byte

// ItemData copies the sample for id into buf.
func (s Samples) ItemData(id uint32, buf []byte) (int, error) {
	data, ok := s[id]
	if !ok {
		return 0, ErrNoSample
	}
	if len(data) > len(buf) {
		return 0, ErrSampleTooLarge
	}
	return copy(buf, data), nil
}

package heif

import "errors"

var (
	ErrNotHEIF        = errors.New("input is not a HEIF container")
	ErrNoMeta         = errors.New("container has no meta box")
	ErrItemNotFound   = errors.New("item not found")
	ErrNoDimensions   = errors.New("item has no spatial extents")
	ErrSampleTooLarge = errors.New("item data exceeds sample buffer")
	ErrBadGrid        = errors.New("malformed grid descriptor")
	ErrBadExtent      = errors.New("item extent outside its data source")
)

// ItemTypeGrid is the item type of a derived grid image.
const ItemTypeGrid = "grid"

// Reader is the read-only view of a HEIF container the grid pipeline needs.
type Reader interface {
	FileInformation() FileInfo
	// ItemsByType lists item ids of the given four-character type in
	// container order.
	ItemsByType(itemType string) ([]uint32, error)
	Grid(id uint32) (Grid, error)
	Width(id uint32) (int, error)
	Height(id uint32) (int, error)
	// ItemData writes the item's compressed bytes, preceded by its decoder
	// parameter sets, into buf. It returns ErrSampleTooLarge without
	// touching buf when the result would not fit.
	ItemData(id uint32, buf []byte) (int, error)
}

// FileInfo summarizes a container.
type FileInfo struct {
	MajorBrand       string   `json:"major_brand"`
	CompatibleBrands []string `json:"compatible_brands"`
	PrimaryItem      uint32   `json:"primary_item"`
	Items            int      `json:"items"`
}

// Grid describes a derived image made of Rows x Columns coded tiles,
// listed row-major, cropped to OutputWidth x OutputHeight.
type Grid struct {
	ID           uint32   `json:"id"`
	Rows         int      `json:"rows"`
	Columns      int      `json:"columns"`
	OutputWidth  int      `json:"output_width"`
	OutputHeight int      `json:"output_height"`
	ImageIDs     []uint32 `json:"image_ids"`
}

// Tiles returns Rows*Columns.
func (g Grid) Tiles() int {
	return g.Rows * g.Columns
}

package heif

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jdeng/goheif/heif/bmff"
)

// mimeTypes accepted by Open.
var mimeTypes = []string{
	"image/heic",
	"image/heic-sequence",
	"image/heif",
	"image/heif-sequence",
	"image/avif",
}

// item is the flattened view of one entry in iinf/iloc/ipma.
type item struct {
	id       uint32
	itemType string
	location *bmff.ItemLocationBoxEntry
	ispe     *bmff.ImageSpatialExtentsProperty
	hvcc     *bmff.ItemHevcConfigBox
	dimg     []uint32
}

// File is a parsed HEIF container.
type File struct {
	ra     io.ReaderAt
	size   int64
	closer io.Closer

	info  FileInfo
	order []uint32
	items map[uint32]*item
	idat  []byte
}

var _ Reader = (*File)(nil)

// Open sniffs path, rejecting anything that is not a HEIF-family image,
// and parses its meta box.
func Open(path string) (*File, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detecting %s: %w", path, err)
	}
	if !mimetype.EqualsAny(mtype.String(), mimeTypes...) {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotHEIF, path, mtype.String())
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	hf, err := NewFile(f, st.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	hf.closer = f
	return hf, nil
}

// NewFile parses a container held in ra.
func NewFile(ra io.ReaderAt, size int64) (*File, error) {
	hf := &File{ra: ra, size: size, items: make(map[uint32]*item)}

	r := bmff.NewReader(io.NewSectionReader(ra, 0, size))
	var meta *bmff.MetaBox
	for meta == nil {
		box, err := r.ReadBox()
		if errors.Is(err, io.EOF) {
			return nil, ErrNoMeta
		}
		if err != nil {
			return nil, err
		}
		switch box.Type() {
		case bmff.TypeFtyp:
			parsed, err := box.Parse()
			if err != nil {
				return nil, fmt.Errorf("parsing ftyp: %w", err)
			}
			ft := parsed.(*bmff.FileTypeBox)
			hf.info.MajorBrand = ft.MajorBrand
			hf.info.CompatibleBrands = ft.Compatible
		case bmff.TypeMeta:
			parsed, err := box.Parse()
			if err != nil {
				return nil, fmt.Errorf("parsing meta: %w", err)
			}
			meta = parsed.(*bmff.MetaBox)
		}
	}

	if err := hf.index(meta); err != nil {
		return nil, err
	}
	hf.info.Items = len(hf.order)
	return hf, nil
}

func (hf *File) index(meta *bmff.MetaBox) error {
	var (
		infos []*bmff.ItemInfoEntry
		locs  []bmff.ItemLocationBoxEntry
		refs  []*bmff.ItemReferenceEntry
		props *bmff.ItemPropertiesBox
	)
	for _, child := range meta.Children {
		parsed, err := child.Parse()
		if errors.Is(err, bmff.ErrUnknownBox) {
			continue
		}
		if err != nil {
			return fmt.Errorf("parsing %s: %w", child.Type(), err)
		}
		switch b := parsed.(type) {
		case *bmff.PrimaryItemBox:
			hf.info.PrimaryItem = uint32(b.ItemID)
		case *bmff.ItemInfoBox:
			infos = b.ItemInfos
		case *bmff.ItemLocationBox:
			locs = b.Items
		case *bmff.ItemReferenceBox:
			refs = b.ItemRefs
		case *bmff.ItemPropertiesBox:
			props = b
		case *bmff.ItemDataBox:
			hf.idat = b.Data
		}
	}

	for _, info := range infos {
		id := uint32(info.ItemID)
		hf.items[id] = &item{id: id, itemType: info.ItemType}
		hf.order = append(hf.order, id)
	}
	for i := range locs {
		if it, ok := hf.items[uint32(locs[i].ItemID)]; ok {
			it.location = &locs[i]
		}
	}
	for _, ref := range refs {
		if !ref.Type().EqualString("dimg") {
			continue
		}
		if it, ok := hf.items[ref.FromItemID]; ok {
			it.dimg = append(it.dimg, ref.ToItemIDs...)
		}
	}
	if props != nil {
		if err := hf.associate(props); err != nil {
			return err
		}
	}
	return nil
}

// associate attaches the ispe and hvcC properties named by ipma to their
// items. Property indices are 1-based; 0 means "no property".
func (hf *File) associate(props *bmff.ItemPropertiesBox) error {
	container := props.PropertyContainer.Properties
	for _, assoc := range props.Associations {
		for _, entry := range assoc.Entries {
			it, ok := hf.items[entry.ItemID]
			if !ok {
				continue
			}
			for _, prop := range entry.Associations {
				if prop.Index == 0 || int(prop.Index) > len(container) {
					continue
				}
				parsed, err := container[prop.Index-1].Parse()
				if errors.Is(err, bmff.ErrUnknownBox) {
					continue
				}
				if err != nil {
					return fmt.Errorf("parsing property %d of item %d: %w", prop.Index, entry.ItemID, err)
				}
				switch p := parsed.(type) {
				case *bmff.ImageSpatialExtentsProperty:
					it.ispe = p
				case *bmff.ItemHevcConfigBox:
					it.hvcc = p
				}
			}
		}
	}
	return nil
}

// Close releases the underlying file when the container came from Open.
func (hf *File) Close() error {
	if hf.closer == nil {
		return nil
	}
	return hf.closer.Close()
}

// FileInformation returns brand and item summary data.
func (hf *File) FileInformation() FileInfo {
	return hf.info
}

// ItemsByType lists items of itemType in container order.
func (hf *File) ItemsByType(itemType string) ([]uint32, error) {
	if len(itemType) != 4 {
		return nil, fmt.Errorf("item type %q is not a four-character code", itemType)
	}
	var ids []uint32
	for _, id := range hf.order {
		if hf.items[id].itemType == itemType {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (hf *File) lookup(id uint32) (*item, error) {
	it, ok := hf.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrItemNotFound, id)
	}
	return it, nil
}

// Width returns the ispe width of an image item.
func (hf *File) Width(id uint32) (int, error) {
	it, err := hf.lookup(id)
	if err != nil {
		return 0, err
	}
	if it.ispe == nil {
		return 0, fmt.Errorf("%w: item %d", ErrNoDimensions, id)
	}
	return int(it.ispe.ImageWidth), nil
}

// Height returns the ispe height of an image item.
func (hf *File) Height(id uint32) (int, error) {
	it, err := hf.lookup(id)
	if err != nil {
		return 0, err
	}
	if it.ispe == nil {
		return 0, fmt.Errorf("%w: item %d", ErrNoDimensions, id)
	}
	return int(it.ispe.ImageHeight), nil
}

// Grid decodes the ImageGrid payload of a grid item and pairs it with the
// item's dimg references.
func (hf *File) Grid(id uint32) (Grid, error) {
	it, err := hf.lookup(id)
	if err != nil {
		return Grid{}, err
	}
	if it.itemType != ItemTypeGrid {
		return Grid{}, fmt.Errorf("%w: item %d has type %q", ErrBadGrid, id, it.itemType)
	}
	size, err := hf.dataSize(it)
	if err != nil {
		return Grid{}, err
	}
	payload := make([]byte, size)
	if err := hf.readData(it, payload); err != nil {
		return Grid{}, err
	}
	grid, err := parseGrid(payload)
	if err != nil {
		return Grid{}, fmt.Errorf("item %d: %w", id, err)
	}
	grid.ID = id
	grid.ImageIDs = append([]uint32(nil), it.dimg...)
	if len(grid.ImageIDs) != grid.Tiles() {
		return Grid{}, fmt.Errorf("%w: item %d references %d tiles for a %dx%d grid",
			ErrBadGrid, id, len(grid.ImageIDs), grid.Rows, grid.Columns)
	}
	return grid, nil
}

// ItemData writes the decoder-ready sample of an image item into buf.
func (hf *File) ItemData(id uint32, buf []byte) (int, error) {
	it, err := hf.lookup(id)
	if err != nil {
		return 0, err
	}
	size, err := hf.dataSize(it)
	if err != nil {
		return 0, err
	}

	var header []byte
	if it.hvcc != nil {
		header = it.hvcc.AsHeader()
	}
	if uint64(len(header))+size > uint64(len(buf)) {
		return 0, fmt.Errorf("%w: item %d needs %d bytes, buffer holds %d",
			ErrSampleTooLarge, id, uint64(len(header))+size, len(buf))
	}
	total := len(header) + int(size)

	copy(buf, header)
	if err := hf.readData(it, buf[len(header):total]); err != nil {
		return 0, err
	}
	if it.itemType == "hvc1" {
		if err := lengthPrefixedToAnnexB(buf[:total]); err != nil {
			return 0, fmt.Errorf("item %d: %w", id, err)
		}
	}
	return total, nil
}

// dataSize sums the item's extents after checking each lies inside the
// file or idat, so callers can allocate from the result.
func (hf *File) dataSize(it *item) (uint64, error) {
	loc := it.location
	if loc == nil {
		return 0, fmt.Errorf("item %d has no location", it.id)
	}
	var limit uint64
	switch loc.ConstructionMethod {
	case 0:
		limit = uint64(hf.size)
	case 1:
		limit = uint64(len(hf.idat))
	default:
		return 0, fmt.Errorf("item %d uses unsupported construction method %d", it.id, loc.ConstructionMethod)
	}

	var size uint64
	for _, ext := range loc.Extents {
		if ext.Length == 0 {
			return 0, fmt.Errorf("item %d has an open-ended extent", it.id)
		}
		if loc.BaseOffset > limit || ext.Offset > limit-loc.BaseOffset {
			return 0, fmt.Errorf("%w: item %d starts past byte %d", ErrBadExtent, it.id, limit)
		}
		start := loc.BaseOffset + ext.Offset
		if ext.Length > limit-start {
			return 0, fmt.Errorf("%w: item %d extent %d+%d exceeds %d bytes", ErrBadExtent, it.id, start, ext.Length, limit)
		}
		size += ext.Length
		if size > limit {
			return 0, fmt.Errorf("%w: item %d extents total more than %d bytes", ErrBadExtent, it.id, limit)
		}
	}
	return size, nil
}

// readData fills dst with the item's extents, either from the file
// (construction method 0) or from idat (method 1).
func (hf *File) readData(it *item, dst []byte) error {
	loc := it.location
	var off int
	for _, ext := range loc.Extents {
		start := loc.BaseOffset + ext.Offset
		chunk := dst[off : off+int(ext.Length)]
		switch loc.ConstructionMethod {
		case 0:
			if _, err := hf.ra.ReadAt(chunk, int64(start)); err != nil {
				return fmt.Errorf("reading item %d at %d: %w", it.id, start, err)
			}
		case 1:
			end := start + ext.Length
			if end > uint64(len(hf.idat)) {
				return fmt.Errorf("item %d extent %d-%d outside idat (%d bytes)", it.id, start, end, len(hf.idat))
			}
			copy(chunk, hf.idat[start:end])
		default:
			return fmt.Errorf("item %d uses unsupported construction method %d", it.id, loc.ConstructionMethod)
		}
		off += int(ext.Length)
	}
	return nil
}

package paths

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Extensions of inputs picked up when walking a directory
var InputExtensions = []string{".heic", ".heif", ".hif", ".avif"}

// RawDumpExt is appended to the output name for the zstd canvas dump
const RawDumpExt = ".rgb24.zst"

// GridOutput returns the path of the stitched image for a grid item,
// "<dir>/grid-<id>.<ext>".
func GridOutput(dir string, gridID uint32, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("grid-%d.%s", gridID, strings.TrimPrefix(ext, ".")))
}

// GridOutputFor returns the output path for a grid of input. With a single
// input the name is grid-<id>.<ext>; with several, the input's base name
// is prepended so grids from different files do not collide.
func GridOutputFor(dir, input string, multi bool, gridID uint32, ext string) string {
	if !multi {
		return GridOutput(dir, gridID, ext)
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	ext = strings.TrimPrefix(ext, ".")
	return filepath.Join(dir, fmt.Sprintf("%s-grid-%d.%s", base, gridID, ext))
}

// Staging returns a unique sibling of final that keeps its extension, so
// encoders that pick a container from the file name still see the right
// one: "out/grid-49.png" becomes "out/.grid-49.<uuid>.png".
func Staging(final string) string {
	dir, name := filepath.Split(final)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return filepath.Join(dir, fmt.Sprintf(".%s.%s%s", stem, uuid.NewString(), ext))
}

// RawDump returns the path of the compressed canvas dump for an output.
func RawDump(final string) string {
	return strings.TrimSuffix(final, filepath.Ext(final)) + RawDumpExt
}

// IsInput reports whether path has one of InputExtensions, ignoring case.
func IsInput(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range InputExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ValidateFormat checks that an output extension cannot escape the output
// directory.
func ValidateFormat(ext string) error {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return fmt.Errorf("output format cannot be empty")
	}
	if strings.HasPrefix(ext, ".") || strings.ContainsAny(ext, `/\`) || ext != filepath.Clean(ext) {
		return fmt.Errorf("output format %q contains path components", ext)
	}
	return nil
}

package heif

import (
	"encoding/binary"
	"fmt"
)

var startCode = [4]byte{0, 0, 0, 1}

// lengthPrefixedToAnnexB rewrites a run of NAL units carrying 4-byte
// big-endian length prefixes into start-code delimited form, in place.
func lengthPrefixedToAnnexB(b []byte) error {
	for pos := 0; pos < len(b); {
		if pos+4 > len(b) {
			return fmt.Errorf("truncated NAL length at offset %d", pos)
		}
		n := int(binary.BigEndian.Uint32(b[pos : pos+4]))
		if n > len(b)-pos-4 {
			return fmt.Errorf("NAL unit at offset %d overruns sample (%d bytes)", pos, n)
		}
		copy(b[pos:pos+4], startCode[:])
		pos += 4 + n
	}
	return nil
}

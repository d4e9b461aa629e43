package grid

import (
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
)

// writeRawDump stores the uncropped canvas as zstd-compressed RGB24 at
// path. The frame carries no header; the dimensions are logged and
// reported alongside it.
func writeRawDump(path string, canvas []byte) (int64, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("creating raw dump: %w", err)
	}

	enc, err := zstd.NewWriter(f,
		zstd.WithEncoderLevel(zstd.SpeedFastest),
		zstd.WithEncoderConcurrency(1),
		zstd.WithZeroFrames(true),
	)
	if err != nil {
		f.Close()
		os.Remove(path)
		return 0, err
	}
	if _, err := enc.Write(canvas); err != nil {
		enc.Close()
		f.Close()
		os.Remove(path)
		return 0, fmt.Errorf("compressing raw dump: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		os.Remove(path)
		return 0, fmt.Errorf("compressing raw dump: %w", err)
	}

	st, err := f.Stat()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return 0, err
	}
	return st.Size(), nil
}

// ReadRawDump decompresses a canvas written with the raw dump option.
func ReadRawDump(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

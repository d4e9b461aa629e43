package grid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/gridstitch/internal/infrastructure/config"
)

// Transcoder is the external program invoked once to decode a grid's tiles
// and once to encode the stitched result. Arguments may contain the
// {width}, {height} and {output} placeholders.
type Transcoder struct {
	Path       string
	DecodeArgs []string
	EncodeArgs []string
	PipeSize   int
	// Stderr receives the transcoder's diagnostics. Nil inherits ours.
	Stderr *os.File
}

// NewTranscoder builds a Transcoder from configuration.
func NewTranscoder(cfg config.TranscoderConfig) *Transcoder {
	return &Transcoder{
		Path:       cfg.Path,
		DecodeArgs: cfg.DecodeArgs,
		EncodeArgs: cfg.EncodeArgs,
		PipeSize:   cfg.PipeSize,
	}
}

// DecodeArgv returns the argument vector, argv[0] included, for decoding
// tiles of the given size.
func (t *Transcoder) DecodeArgv(tileWidth, tileHeight int) []string {
	return t.argv(t.DecodeArgs, tileWidth, tileHeight, "")
}

// EncodeArgv returns the argument vector for encoding a width x height
// raster into output.
func (t *Transcoder) EncodeArgv(width, height int, output string) []string {
	return t.argv(t.EncodeArgs, width, height, output)
}

func (t *Transcoder) argv(args []string, width, height int, output string) []string {
	r := strings.NewReplacer(
		config.PlaceholderWidth, strconv.Itoa(width),
		config.PlaceholderHeight, strconv.Itoa(height),
		config.PlaceholderOutput, output,
	)
	argv := make([]string, 0, len(args)+1)
	argv = append(argv, filepath.Base(t.Path))
	for _, arg := range args {
		argv = append(argv, r.Replace(arg))
	}
	return argv
}

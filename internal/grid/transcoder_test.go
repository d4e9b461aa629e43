package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/gridstitch/internal/infrastructure/config"
)

func TestTranscoderArgv(t *testing.T) {
	tc := NewTranscoder(config.Default().Transcoder)

	decode := tc.DecodeArgv(512, 512)
	assert.Equal(t, "ffmpeg", decode[0])
	assert.Equal(t, config.Default().Transcoder.DecodeArgs, decode[1:])

	encode := tc.EncodeArgv(180, 120, "/out/.grid-1.abc.png")
	assert.Equal(t, "ffmpeg", encode[0])
	assert.Contains(t, encode, "180x120")
	assert.Equal(t, "/out/.grid-1.abc.png", encode[len(encode)-1])
	assert.NotContains(t, encode, "{output}")
}

func TestTranscoderArgvUsesBaseName(t *testing.T) {
	tc := &Transcoder{
		Path:       "/usr/local/bin/heif-tool",
		DecodeArgs: []string{"decode", "--size={width}:{height}"},
		EncodeArgs: []string{"encode", "-o", "{output}"},
	}

	assert.Equal(t, []string{"heif-tool", "decode", "--size=64:32"}, tc.DecodeArgv(64, 32))
	assert.Equal(t, []string{"heif-tool", "encode", "-o", "x.png"}, tc.EncodeArgv(1, 1, "x.png"))
}

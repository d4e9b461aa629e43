//go:build unix && !linux

package childproc

import (
	"errors"
	"os"
)

func setPipeSize(*os.File, int) error {
	return errors.New("pipe resizing is only supported on linux")
}

//go:build linux

package childproc

import (
	"os"

	"golang.org/x/sys/unix"
)

// setPipeSize resizes the kernel buffer behind f. It goes through
// SyscallConn because File.Fd would switch the descriptor to blocking mode.
func setPipeSize(f *os.File, size int) error {
	conn, err := f.SyscallConn()
	if err != nil {
		return err
	}
	var opErr error
	if err := conn.Control(func(fd uintptr) {
		_, opErr = unix.FcntlInt(fd, unix.F_SETPIPE_SZ, size)
	}); err != nil {
		return err
	}
	return opErr
}

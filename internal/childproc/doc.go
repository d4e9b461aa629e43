// Package childproc runs an external program as a pure byte-stream
// transform connected through two unidirectional pipes.
//
// The parent writes to the child's standard input and reads its standard
// output. Three independent flags track the lifecycle:
//   - ready: the child is alive and the pipes are usable
//   - input closed: end-of-stream was signalled on the child's stdin
//   - stopped: both pipes are closed and no further I/O is attempted
//
// Ready performs a non-blocking wait4 so callers can poll it after every
// write. Write and ReadFull are the only blocking points and are safe to
// call from two goroutines (one writer, one reader) at the same time.
//
// Example Usage:
//
//	proc, err := childproc.Start("/usr/bin/ffmpeg", argv, childproc.Options{Logger: logger})
//	if err != nil {
//	    return err
//	}
//	defer proc.Close()
//
//	proc.Write(sample)
//	proc.CloseInput()
//	n, err := proc.ReadFull(tile)
//
// Close is the guaranteed cleanup path: it stops the child and reaps it even
// when an earlier Stop(false) left it running. POSIX only.
package childproc

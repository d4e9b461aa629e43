package childproc

import (
	"bytes"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookPath(t *testing.T, name string) string {
	t.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
	return path
}

func startCat(t *testing.T) *Process {
	t.Helper()
	proc, err := Start(lookPath(t, "cat"), []string{"cat"}, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { proc.Close() })
	return proc
}

func TestStartAndRoundTrip(t *testing.T) {
	proc := startCat(t)
	require.True(t, proc.Ready())
	assert.Greater(t, proc.Pid(), 0)

	n, err := proc.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	proc.CloseInput()

	buf := make([]byte, 10)
	n, err = proc.ReadFull(buf)
	require.NoError(t, err)
	assert.Equal(t, 5, n, "end-of-stream yields a short count, not an error")
	assert.Equal(t, "hello", string(buf[:n]))

	n, err = proc.ReadFull(buf)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStartMissingExecutable(t *testing.T) {
	proc, err := Start("/nonexistent/transcoder", []string{"transcoder"}, Options{})
	assert.Error(t, err)
	assert.Nil(t, proc)
}

func TestIdempotentShutdown(t *testing.T) {
	proc := startCat(t)

	proc.CloseInput()
	proc.CloseInput()

	_, err := proc.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrInputClosed)

	proc.Stop(false)
	proc.Stop(false)
	proc.Stop(true)
	proc.CloseInput()

	_, err = proc.ReadFull(make([]byte, 1))
	assert.ErrorIs(t, err, ErrStopped)
	assert.False(t, proc.Ready())

	require.NoError(t, proc.Close())
	require.NoError(t, proc.Close())
	assert.True(t, proc.Exited())
	assert.Equal(t, 0, proc.ExitCode())
}

func TestForcedStopReapsChild(t *testing.T) {
	proc := startCat(t)
	assert.Equal(t, -1, proc.ExitCode())

	proc.Stop(true)
	assert.True(t, proc.Exited())
}

func TestReadyDetectsExit(t *testing.T) {
	proc, err := Start(lookPath(t, "sh"), []string{"sh", "-c", "exit 3"}, Options{})
	require.NoError(t, err)
	defer proc.Close()

	require.Eventually(t, func() bool { return !proc.Ready() }, 5*time.Second, 10*time.Millisecond)
	assert.False(t, proc.Ready(), "not ready stays not ready")
	assert.Equal(t, 3, proc.ExitCode())

	_, err = proc.Write([]byte("late"))
	assert.ErrorIs(t, err, ErrNotReady)

	err = proc.Close()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.ExitCode())
}

func TestWriteToDeadChildFails(t *testing.T) {
	proc, err := Start(lookPath(t, "sh"), []string{"sh", "-c", "head -c 16 >/dev/null"}, Options{})
	require.NoError(t, err)
	defer proc.Close()

	chunk := make([]byte, 64*1024)
	var writeErr error
	for i := 0; i < 1000 && writeErr == nil; i++ {
		_, writeErr = proc.Write(chunk)
	}
	require.Error(t, writeErr)
	assert.False(t, proc.Ready())
}

func TestConcurrentFeedAndDrain(t *testing.T) {
	proc := startCat(t)

	// Larger than any default pipe buffer, so feeding without draining
	// would block forever.
	payload := bytes.Repeat([]byte{0x01, 0x02, 0x03, 0xfe}, 1<<18)

	done := make(chan error, 1)
	go func() {
		for off := 0; off < len(payload); off += 4096 {
			if _, err := proc.Write(payload[off : off+4096]); err != nil {
				done <- err
				return
			}
		}
		proc.CloseInput()
		done <- nil
	}()

	got := make([]byte, len(payload)+1)
	n, err := proc.ReadFull(got)
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, len(payload), n)
	assert.True(t, bytes.Equal(payload, got[:n]))
}

func TestPipeSizeOption(t *testing.T) {
	proc, err := Start(lookPath(t, "cat"), []string{"cat"}, Options{PipeSize: 1 << 20})
	require.NoError(t, err)
	defer proc.Close()

	_, err = proc.Write([]byte("abc"))
	require.NoError(t, err)
	proc.CloseInput()

	buf := make([]byte, 3)
	n, err := proc.ReadFull(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

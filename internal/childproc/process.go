package childproc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

var (
	ErrNotReady    = errors.New("child process is not ready")
	ErrInputClosed = errors.New("child process input is closed")
	ErrStopped     = errors.New("child process is stopped")
)

// Options configures how a child process is spawned.
type Options struct {
	// Stderr receives the child's standard error. Nil inherits ours.
	Stderr *os.File
	// Dir is the working directory of the child. Empty means ours.
	Dir string
	// Env is the child's environment. Nil inherits ours.
	Env []string
	// PipeSize requests a pipe capacity in bytes (Linux only, 0 keeps the
	// kernel default).
	PipeSize int
	Logger   *zap.Logger
}

// Process owns one external program connected through two unidirectional
// pipes: one feeding its standard input and one draining its standard
// output.
//
// ready, inputClosed and stopped are independent facts. A process whose
// input is closed can still be read, and a process can die while both pipes
// remain open on our side.
type Process struct {
	name   string
	pid    int
	proc   *os.Process
	stdin  *os.File
	stdout *os.File
	logger *zap.Logger

	ready       atomic.Bool
	inputClosed atomic.Bool
	stopped     atomic.Bool

	stopOnce  sync.Once
	inputOnce sync.Once

	// reapMu serializes wait4 calls so exactly one caller records the exit.
	reapMu sync.Mutex
	reaped bool
	status unix.WaitStatus
}

// Start creates the two pipes, spawns path with argv and wires the child
// ends to its stdin and stdout. argv[0] is the program name as the child
// sees it. On failure every descriptor opened so far is closed.
func Start(path string, argv []string, opts Options) (*Process, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	inR, inW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("allocating pipe for child stdin: %w", err)
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		inR.Close()
		inW.Close()
		return nil, fmt.Errorf("allocating pipe for child stdout: %w", err)
	}

	if opts.PipeSize > 0 {
		for _, f := range []*os.File{inW, outR} {
			if err := setPipeSize(f, opts.PipeSize); err != nil {
				logger.Debug("pipe size not applied", zap.Int("size", opts.PipeSize), zap.Error(err))
			}
		}
	}

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	proc, err := os.StartProcess(path, argv, &os.ProcAttr{
		Dir:   opts.Dir,
		Env:   opts.Env,
		Files: []*os.File{inR, outW, stderr},
	})

	// The child owns its ends now (or never will); ours must go either way
	// so that EOF propagates once the other side closes.
	inR.Close()
	outW.Close()

	if err != nil {
		inW.Close()
		outR.Close()
		return nil, fmt.Errorf("starting %s: %w", path, err)
	}

	p := &Process{
		name:   path,
		pid:    proc.Pid,
		proc:   proc,
		stdin:  inW,
		stdout: outR,
		logger: logger.With(zap.String("process", path), zap.Int("pid", proc.Pid)),
	}
	p.ready.Store(true)
	p.logger.Debug("child process started", zap.Strings("argv", argv))
	return p, nil
}

// Pid returns the operating system process id of the child.
func (p *Process) Pid() int {
	return p.pid
}

// Ready reports whether the child is alive and its pipes are usable. The
// liveness check never blocks: if the child has already exited it is reaped
// here and the process flips to not ready for every later call.
func (p *Process) Ready() bool {
	if !p.ready.Load() {
		return false
	}
	exited, err := p.reap(false)
	if err != nil {
		p.logger.Warn("liveness check failed", zap.Error(err))
		p.ready.Store(false)
		return false
	}
	if exited {
		p.logger.Warn("child process exited", zap.Int("exit_code", p.ExitCode()))
		p.ready.Store(false)
		return false
	}
	return true
}

// Write writes all of b to the child's input. It is a no-op returning
// ErrNotReady or ErrInputClosed when the process cannot accept input. A
// short or failed write marks the process not ready.
func (p *Process) Write(b []byte) (int, error) {
	if p.stopped.Load() {
		return 0, ErrStopped
	}
	if p.inputClosed.Load() {
		return 0, ErrInputClosed
	}
	if !p.ready.Load() {
		return 0, ErrNotReady
	}
	n, err := p.stdin.Write(b)
	if err == nil && n < len(b) {
		err = io.ErrShortWrite
	}
	if err != nil {
		p.ready.Store(false)
		return n, fmt.Errorf("pipe write: %w", err)
	}
	return n, nil
}

// ReadFull reads from the child's output until buf is full, the child
// closes its output, or an error occurs. Reaching end-of-stream early is
// not an error: the returned count is simply less than len(buf). A lower
// level read error marks the process not ready and returns the bytes
// collected so far alongside the error.
func (p *Process) ReadFull(buf []byte) (int, error) {
	if p.stopped.Load() {
		return 0, ErrStopped
	}
	if !p.ready.Load() {
		return 0, ErrNotReady
	}
	var total int
	for total < len(buf) {
		n, err := p.stdout.Read(buf[total:])
		total += n
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			p.ready.Store(false)
			return total, fmt.Errorf("pipe read: %w", err)
		}
	}
	return total, nil
}

// CloseInput closes our end of the child's input pipe, which the child sees
// as end-of-stream. Its output stays readable. Calling it again, or after
// Stop, does nothing.
func (p *Process) CloseInput() {
	if p.stopped.Load() || p.inputClosed.Load() {
		return
	}
	p.inputOnce.Do(func() {
		p.inputClosed.Store(true)
		if err := p.stdin.Close(); err != nil {
			p.logger.Debug("closing child input", zap.Error(err))
		}
	})
}

// Stop closes both pipes. With force it also blocks until the child has
// exited and reaps it; without force reaping is left to Close. Only the
// first call has any effect.
func (p *Process) Stop(force bool) {
	p.stopOnce.Do(func() {
		p.ready.Store(false)
		p.stopped.Store(true)

		p.inputOnce.Do(func() {
			p.inputClosed.Store(true)
			p.stdin.Close()
		})
		p.stdout.Close()

		if force {
			if _, err := p.reap(true); err != nil {
				p.logger.Warn("waiting for child process", zap.Error(err))
			}
		}
	})
}

// Close stops the child if needed and always waits for it to exit, even if
// an earlier Stop(false) left it unreaped. It returns an error when the
// child did not exit cleanly.
func (p *Process) Close() error {
	p.Stop(true)
	if _, err := p.reap(true); err != nil {
		return err
	}
	p.proc.Release()
	if code := p.ExitCode(); code != 0 {
		return &ExitError{Name: p.name, Pid: p.pid, Status: p.waitStatus()}
	}
	return nil
}

// Exited reports whether the child has been reaped.
func (p *Process) Exited() bool {
	p.reapMu.Lock()
	defer p.reapMu.Unlock()
	return p.reaped
}

// ExitCode returns the child's exit status once it has been reaped, 128+N
// when it was killed by signal N, and -1 while it is still running.
func (p *Process) ExitCode() int {
	p.reapMu.Lock()
	defer p.reapMu.Unlock()
	if !p.reaped {
		return -1
	}
	return exitCode(p.status)
}

func (p *Process) waitStatus() unix.WaitStatus {
	p.reapMu.Lock()
	defer p.reapMu.Unlock()
	return p.status
}

// reap collects the child's exit status. With block false it uses WNOHANG
// and reports whether the child had already exited.
func (p *Process) reap(block bool) (bool, error) {
	p.reapMu.Lock()
	defer p.reapMu.Unlock()
	if p.reaped {
		return true, nil
	}

	options := unix.WNOHANG
	if block {
		options = 0
	}
	for {
		var ws unix.WaitStatus
		wpid, err := unix.Wait4(p.pid, &ws, options, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if errors.Is(err, unix.ECHILD) {
			// Someone else collected it; all we know is that it is gone.
			p.reaped = true
			return true, nil
		}
		if err != nil {
			return false, fmt.Errorf("wait4 %d: %w", p.pid, err)
		}
		if wpid == 0 {
			return false, nil
		}
		if ws.Stopped() || ws.Continued() {
			if block {
				continue
			}
			return false, nil
		}
		p.reaped = true
		p.status = ws
		return true, nil
	}
}

func exitCode(ws unix.WaitStatus) int {
	switch {
	case ws.Exited():
		return ws.ExitStatus()
	case ws.Signaled():
		return 128 + int(ws.Signal())
	default:
		return -1
	}
}

// ExitError reports a child that exited with a non-zero status.
type ExitError struct {
	Name   string
	Pid    int
	Status unix.WaitStatus
}

func (e *ExitError) Error() string {
	if e.Status.Signaled() {
		return fmt.Sprintf("%s (pid %d) killed by signal %v", e.Name, e.Pid, e.Status.Signal())
	}
	return fmt.Sprintf("%s (pid %d) exited with status %d", e.Name, e.Pid, e.Status.ExitStatus())
}

// ExitCode returns the numeric exit status, 128+N for signal N.
func (e *ExitError) ExitCode() int {
	return exitCode(e.Status)
}

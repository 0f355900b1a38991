package procio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// ExitStatus describes how a child process ended.
type ExitStatus struct {
	Code     int
	Signal   syscall.Signal
	Signaled bool
	Err      error
}

// String renders the status for logs.
func (s ExitStatus) String() string {
	switch {
	case s.Signaled:
		return "signal " + s.Signal.String()
	case s.Err != nil:
		return "error " + s.Err.Error()
	default:
		return fmt.Sprintf("exit code %d", s.Code)
	}
}

// Spec describes a child process to launch.
type Spec struct {
	Binary string
	Args   []string
	// Stdout, when set, receives the raw standard output instead of the
	// line callback. Used to route audio data.
	Stdout io.Writer
}

// LineHandlers receive complete lines from the child's output streams.
type LineHandlers struct {
	Stdout func(string)
	Stderr func(string)
}

// Process is a running child placed in its own process group so it can be
// stopped together with anything it forks.
type Process struct {
	cmd    *exec.Cmd
	done   chan struct{}
	status ExitStatus

	termOnce sync.Once
}

// Start launches the child and begins delivering its output lines. When ctx
// is cancelled the process group is terminated.
func Start(ctx context.Context, spec Spec, handlers LineHandlers) (*Process, error) {
	binary := strings.TrimSpace(spec.Binary)
	if binary == "" {
		return nil, errors.New("binary not configured")
	}

	cmd := exec.Command(binary, spec.Args...) //nolint:gosec
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var readers []io.Reader
	var forwards []func(string)
	if spec.Stdout != nil {
		cmd.Stdout = spec.Stdout
	} else {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("stdout pipe: %w", err)
		}
		readers = append(readers, stdout)
		forwards = append(forwards, handlers.Stdout)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	readers = append(readers, stderr)
	forwards = append(forwards, handlers.Stderr)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}

	p := &Process{cmd: cmd, done: make(chan struct{})}

	var wg sync.WaitGroup
	for i := range readers {
		wg.Add(1)
		go func(r io.Reader, forward func(string)) {
			defer wg.Done()
			_ = ScanLines(r, func(line string) {
				if forward != nil {
					forward(line)
				}
			})
		}(readers[i], forwards[i])
	}

	go func() {
		wg.Wait()
		p.status = exitStatus(cmd.Wait())
		close(p.done)
	}()

	go func() {
		select {
		case <-ctx.Done():
			p.Terminate()
		case <-p.done:
		}
	}()

	return p, nil
}

// PID returns the child's process id.
func (p *Process) PID() int {
	if p == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Terminate sends SIGTERM to the child's process group. Calling it more than
// once, or after the process exited, is harmless.
func (p *Process) Terminate() {
	if p == nil {
		return
	}
	p.termOnce.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}
		if pid := p.PID(); pid > 0 {
			_ = unix.Kill(-pid, unix.SIGTERM)
		}
	})
}

// Done is closed once the process has exited and its output is drained.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Status returns the exit status. It is only meaningful after Done is closed.
func (p *Process) Status() ExitStatus {
	<-p.done
	return p.status
}

// Wait blocks until the process exits or ctx ends.
func (p *Process) Wait(ctx context.Context) (ExitStatus, error) {
	select {
	case <-p.done:
		return p.status, nil
	case <-ctx.Done():
		return ExitStatus{}, ctx.Err()
	}
}

func exitStatus(err error) ExitStatus {
	if err == nil {
		return ExitStatus{}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if ws.Signaled() {
				return ExitStatus{Signal: ws.Signal(), Signaled: true, Code: -1}
			}
			return ExitStatus{Code: ws.ExitStatus()}
		}
		return ExitStatus{Code: exitErr.ExitCode()}
	}
	return ExitStatus{Code: -1, Err: err}
}

package shell

import (
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"syscall"

	"go.trai.ch/zerr"

	"smallsh/internal/command"
)

// ExecFailureCode is the status recorded when the program could not be
// executed.
const ExecFailureCode = 1

// ExecError means the child could not become the requested program. It
// only affects the command that produced it.
type ExecError struct {
	Name string
	Err  error
}

func (e *ExecError) Error() string {
	if errors.Is(e.Err, exec.ErrNotFound) {
		return e.Name + ": command not found"
	}
	var errno syscall.Errno
	if errors.As(e.Err, &errno) {
		return e.Name + ": " + errno.Error()
	}
	return e.Name + ": " + e.Err.Error()
}

func (e *ExecError) Unwrap() error { return e.Err }

// Stdio is the set of streams children inherit when a command does not
// redirect them.
type Stdio struct {
	In  *os.File
	Out *os.File
	Err *os.File
}

func DefaultStdio() Stdio {
	return Stdio{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

type launchOutcome int

const (
	launchRunning launchOutcome = iota
	launchExecFailed
	launchForkFailed
)

// Launcher starts external programs for resolved commands.
type Launcher struct {
	stdio   Stdio
	signals *signals
	log     *slog.Logger
}

func NewLauncher(stdio Stdio, sigs *signals, log *slog.Logger) *Launcher {
	return &Launcher{stdio: stdio, signals: sigs, log: log}
}

// start creates the child for c. Exactly one outcome applies: the child
// is running, the program could not be executed, or no child could be
// created at all.
func (l *Launcher) start(c *command.Command) (*exec.Cmd, launchOutcome, error) {
	cmd := exec.Command(c.Name(), c.Args[1:]...) //nolint:gosec // running user commands is the point
	cmd.Env = os.Environ()
	cmd.Stdin = l.stdio.In
	if c.Stdin != nil {
		cmd.Stdin = c.Stdin
	}
	cmd.Stdout = l.stdio.Out
	if c.Stdout != nil {
		cmd.Stdout = c.Stdout
	}
	cmd.Stderr = l.stdio.Err

	restore := l.signals.forChild(c.Foreground)
	err := cmd.Start()
	restore()

	switch {
	case err == nil:
		l.log.Debug("process started", "pid", cmd.Process.Pid, "command", c.String(), "foreground", c.Foreground)
		return cmd, launchRunning, nil
	case isForkFailure(err):
		l.log.Error("fork failed", "command", c.String(), "error", err)
		return nil, launchForkFailed, zerr.With(zerr.Wrap(err, "failed to create child process"), "command", c.String())
	default:
		l.log.Info("exec failed", "command", c.String(), "error", err)
		return nil, launchExecFailed, &ExecError{Name: c.Name(), Err: err}
	}
}

// Foreground runs c and blocks until it exits. An *ExecError comes with
// the ExecFailureCode status; any other error means no child could be
// created. The command's files are closed before returning.
func (l *Launcher) Foreground(c *command.Command) (Status, error) {
	defer l.release(c)

	cmd, outcome, err := l.start(c)
	switch outcome {
	case launchForkFailed:
		return Status{}, err
	case launchExecFailed:
		return exitStatus(ExecFailureCode), err
	}

	// Wait reports non-zero exits as errors; ProcessState has the details.
	if werr := cmd.Wait(); werr != nil && cmd.ProcessState == nil {
		return Status{}, zerr.With(zerr.Wrap(werr, "failed to wait for process"), "pid", cmd.Process.Pid)
	}
	ws, _ := cmd.ProcessState.Sys().(syscall.WaitStatus)
	status := fromWaitStatus(ws)
	l.log.Debug("process finished", "pid", cmd.Process.Pid, "status", status.String())
	return status, nil
}

// Background starts c without waiting and returns its pid. The command's
// files move to the registry entry that tracks the child.
func (l *Launcher) Background(c *command.Command, jobs *Registry) (int, error) {
	cmd, outcome, err := l.start(c)
	if outcome != launchRunning {
		l.release(c)
		return 0, err
	}

	pid := cmd.Process.Pid
	// The registry reaps by pid, the handle is not needed.
	_ = cmd.Process.Release()
	jobs.Record(pid, c.Stdin, c.Stdout)
	return pid, nil
}

func (l *Launcher) release(c *command.Command) {
	if err := c.Close(l.stdio.In, l.stdio.Out, l.stdio.Err); err != nil {
		l.log.Warn("failed to close redirection", "command", c.String(), "error", err)
	}
}

func isForkFailure(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.ENOMEM)
}

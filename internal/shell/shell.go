package shell

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"smallsh/internal/command"
	"smallsh/internal/config"
	"smallsh/internal/history"
)

const commentPrefix = "#"

type Shell struct {
	config   *config.Config
	history  *history.History
	reader   LineReader
	out      io.Writer
	stdio    Stdio
	mode     *Mode
	signals  *signals
	launcher *Launcher
	jobs     *Registry
	last     Status
	log      *slog.Logger
	diag     *color.Color
	pid      int
}

// Options wires the shell to its terminal. Zero values are replaced with
// the process's own streams and a discarding logger.
type Options struct {
	Reader LineReader
	// Out receives shell messages. It defaults to Stdio.Out.
	Out   io.Writer
	Stdio Stdio
	Log   *slog.Logger
}

func New(cfg *config.Config, hist *history.History, opts Options) (*Shell, error) {
	if opts.Stdio.In == nil || opts.Stdio.Out == nil || opts.Stdio.Err == nil {
		opts.Stdio = DefaultStdio()
	}
	if opts.Out == nil {
		opts.Out = opts.Stdio.Out
	}
	if opts.Log == nil {
		opts.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Reader == nil {
		return nil, errors.New("shell: no line reader")
	}

	diag := color.New(color.FgRed)
	if !cfg.Color {
		diag.DisableColor()
	}

	mode := NewMode(opts.Out)
	sigs := newSignals(mode, opts.Log)

	return &Shell{
		config:   cfg,
		history:  hist,
		reader:   opts.Reader,
		out:      opts.Out,
		stdio:    opts.Stdio,
		mode:     mode,
		signals:  sigs,
		launcher: NewLauncher(opts.Stdio, sigs, opts.Log),
		jobs:     NewRegistry(opts.Log),
		log:      opts.Log,
		diag:     diag,
		pid:      os.Getpid(),
	}, nil
}

// Mode exposes the foreground-only switch.
func (s *Shell) Mode() *Mode {
	return s.mode
}

// LastStatus is the result of the last foreground command.
func (s *Shell) LastStatus() Status {
	return s.last
}

// Run reads and executes lines until exit, end of input, or a line that
// cannot be parsed at all. Only a failure to create a child process is
// returned as an error.
func (s *Shell) Run() error {
	s.signals.setup()
	defer s.signals.stop()
	defer s.jobs.DrainAll()

	for {
		s.jobs.ReapFinished(s.out)

		line, err := s.reader.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt), errors.Is(err, syscall.EINTR):
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("error reading input: %w", err)
		}

		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}
		s.addToHistory(line)

		tokens := command.Tokenize(line, s.pid)
		if len(tokens) == 0 || command.IsOperator(tokens[0]) {
			s.log.Info("unparsable command line, exiting", "line", line)
			return nil
		}

		done, err := s.Execute(tokens)
		if err != nil || done {
			return err
		}
	}
}

// Execute dispatches one tokenized line. done reports that the shell
// should stop.
func (s *Shell) Execute(tokens []string) (done bool, err error) {
	if handled, done := s.executeBuiltin(tokens); handled {
		return done, nil
	}
	return false, s.runExternal(tokens)
}

func (s *Shell) runExternal(tokens []string) error {
	cmd, err := command.Resolve(tokens, command.Options{ForegroundOnly: s.mode.ForegroundOnly()})
	if err != nil {
		s.diagnose(err)
		return nil
	}

	if cmd.Foreground {
		status, err := s.launcher.Foreground(cmd)
		if err := s.launchFailure(err); err != nil {
			return err
		}
		s.last = status
		if status.Signaled {
			fmt.Fprintln(s.out, status)
		}
		return nil
	}

	pid, err := s.launcher.Background(cmd, s.jobs)
	if err != nil {
		return s.launchFailure(err)
	}
	fmt.Fprintf(s.out, "New Background Process with PID[%d]\n", pid)
	return nil
}

// launchFailure reports failures confined to one command and returns
// the ones that must end the shell.
func (s *Shell) launchFailure(err error) error {
	var execErr *ExecError
	if errors.As(err, &execErr) {
		s.diagnose(execErr)
		return nil
	}
	return err
}

func (s *Shell) diagnose(err error) {
	s.diag.Fprintln(s.out, err.Error())
}

func (s *Shell) addToHistory(line string) {
	if s.history == nil {
		return
	}
	if err := s.history.Add(line); err != nil {
		s.log.Warn("history not saved", "error", err)
	}
}

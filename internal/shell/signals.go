package shell

import (
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

const (
	enterForegroundOnly = "\nEntering foreground-only mode (& is now ignored)\n"
	exitForegroundOnly  = "\nExiting foreground-only mode\n"
)

// Mode is the foreground-only switch. It is flipped from the signal
// goroutine and read by the shell loop.
type Mode struct {
	foregroundOnly atomic.Bool
	out            io.Writer
}

func NewMode(out io.Writer) *Mode {
	return &Mode{out: out}
}

func (m *Mode) ForegroundOnly() bool {
	return m.foregroundOnly.Load()
}

// Toggle flips the mode and writes the matching banner. The banner is
// written before the new value becomes visible. While the shell runs,
// only the signal goroutine calls it.
func (m *Mode) Toggle() bool {
	on := !m.foregroundOnly.Load()
	banner := exitForegroundOnly
	if on {
		banner = enterForegroundOnly
	}
	_, _ = io.WriteString(m.out, banner)
	m.foregroundOnly.Store(on)
	return on
}

// signals owns the shell's SIGINT and SIGTSTP subscriptions. Signals the
// runtime is notifying on are reset to their defaults in a child, while
// ignored ones stay ignored across exec, so the dispositions a child
// starts with are chosen by briefly ignoring around process creation.
type signals struct {
	intr chan os.Signal
	tstp chan os.Signal
	mode *Mode
	log  *slog.Logger
	done chan struct{}
}

func newSignals(mode *Mode, log *slog.Logger) *signals {
	return &signals{
		intr: make(chan os.Signal, 1),
		tstp: make(chan os.Signal, 1),
		mode: mode,
		log:  log,
		done: make(chan struct{}),
	}
}

func (s *signals) setup() {
	signal.Notify(s.intr, syscall.SIGINT)
	signal.Notify(s.tstp, syscall.SIGTSTP)
	go s.handleSignals()
}

func (s *signals) handleSignals() {
	for {
		select {
		case <-s.intr:
			// The shell itself never terminates on an interrupt.
		case <-s.tstp:
			on := s.mode.Toggle()
			s.log.Debug("foreground-only mode toggled", "enabled", on)
		case <-s.done:
			return
		}
	}
}

// forChild prepares dispositions inherited by the next child: SIGTSTP is
// always ignored and SIGINT is ignored for background children. The
// returned func restores the shell's own handling.
func (s *signals) forChild(foreground bool) (restore func()) {
	signal.Ignore(syscall.SIGTSTP)
	if !foreground {
		signal.Ignore(syscall.SIGINT)
	}
	return func() {
		signal.Notify(s.tstp, syscall.SIGTSTP)
		if !foreground {
			signal.Notify(s.intr, syscall.SIGINT)
		}
	}
}

func (s *signals) stop() {
	signal.Stop(s.intr)
	signal.Stop(s.tstp)
	signal.Reset(syscall.SIGINT, syscall.SIGTSTP)
	close(s.done)
}

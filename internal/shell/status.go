package shell

import (
	"fmt"
	"syscall"
)

// Status is how a finished process ended: an exit code, or the signal
// that terminated it.
type Status struct {
	Code     int
	Signal   syscall.Signal
	Signaled bool
}

// waitStatus is satisfied by both syscall.WaitStatus and unix.WaitStatus.
type waitStatus interface {
	ExitStatus() int
	Signaled() bool
	Signal() syscall.Signal
}

func exitStatus(code int) Status {
	return Status{Code: code}
}

func fromWaitStatus(ws waitStatus) Status {
	if ws.Signaled() {
		return Status{Signal: ws.Signal(), Signaled: true}
	}
	return Status{Code: ws.ExitStatus()}
}

// String is the text printed by the status builtin.
func (s Status) String() string {
	if s.Signaled {
		return fmt.Sprintf("terminated by signal %d", int(s.Signal))
	}
	return fmt.Sprintf("exit value %d", s.Code)
}

package shell

import (
	"fmt"
	"os"
)

// executeBuiltin runs cd, status and exit. handled is false for anything
// else.
func (s *Shell) executeBuiltin(args []string) (handled, done bool) {
	switch args[0] {
	case "cd":
		if err := s.changeDirectory(args[1:]); err != nil {
			s.diagnose(err)
		}
		return true, false
	case "status":
		fmt.Fprintln(s.out, s.last)
		return true, false
	case "exit":
		s.exit()
		return true, true
	default:
		return false, false
	}
}

func (s *Shell) changeDirectory(args []string) error {
	var dir string
	if len(args) == 0 {
		dir = s.config.HomeDir
	} else {
		dir = args[0]
	}

	if err := os.Chdir(dir); err != nil {
		return fmt.Errorf("cd: %w", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("cd: %w", err)
	}
	if err := os.Setenv("PWD", wd); err != nil {
		return fmt.Errorf("cd: %w", err)
	}
	s.log.Debug("working directory changed", "dir", wd)
	return nil
}

// exit stops tracking background jobs; they keep running.
func (s *Shell) exit() {
	s.log.Info("exiting", "background_jobs", s.jobs.Len())
	s.jobs.DrainAll()
}

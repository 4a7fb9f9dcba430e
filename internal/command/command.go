// Package command holds the parsed form of one shell input line and the
// redirection rules that turn tokens into it.
package command

import (
	"errors"
	"os"

	"github.com/kballard/go-shellquote"
)

// MaxArgs bounds the number of tokens accepted from one line.
const MaxArgs = 511

const (
	opInput      = "<"
	opOutput     = ">"
	opBackground = "&"
)

// Command is a request to run one program.
type Command struct {
	Args []string

	// Stdin and Stdout are nil when the stream is inherited from the shell.
	// Otherwise the file is owned by the Command until it is handed to a
	// job or closed.
	Stdin  *os.File
	Stdout *os.File

	Foreground bool
}

// Name returns the program name.
func (c *Command) Name() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[0]
}

func (c *Command) String() string {
	return shellquote.Join(c.Args...)
}

// Close releases the files owned by the command. Files in keep are
// never closed, which protects the shell's own stdio.
func (c *Command) Close(keep ...*os.File) error {
	var errs []error
	for _, f := range []*os.File{c.Stdin, c.Stdout} {
		if err := closeOwned(f, keep); err != nil {
			errs = append(errs, err)
		}
	}
	c.Stdin, c.Stdout = nil, nil
	return errors.Join(errs...)
}

// IsOperator reports whether tok is a redirection or background operator.
func IsOperator(tok string) bool {
	switch tok {
	case opInput, opOutput, opBackground:
		return true
	}
	return false
}

func closeOwned(f *os.File, keep []*os.File) error {
	if f == nil || f == os.Stdin || f == os.Stdout || f == os.Stderr {
		return nil
	}
	for _, k := range keep {
		if f == k {
			return nil
		}
	}
	return f.Close()
}

package command

import (
	"fmt"
	"os"
)

// OutputPerm is the mode used when a '>' target is created.
const OutputPerm os.FileMode = 0o640

// ErrorKind enumerates the ways resolving a line can fail.
type ErrorKind int

const (
	MissingInputFilename ErrorKind = iota + 1
	MissingOutputFilename
	NoSuchInputFile
	FileOpenFailure
)

// Error is returned by Resolve. No process must be started for a line
// that produced one.
type Error struct {
	Kind ErrorKind
	Name string
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case MissingInputFilename:
		return "expected filename after " + opInput
	case MissingOutputFilename:
		return "expected filename after " + opOutput
	case NoSuchInputFile:
		return fmt.Sprintf("cannot open %s for input", e.Name)
	default:
		return fmt.Sprintf("cannot open %s for output", e.Name)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Options carries the shell state consulted while resolving.
type Options struct {
	ForegroundOnly bool

	// NullDevice defaults to os.DevNull.
	NullDevice string
}

// Resolve builds a Command from tokens, opening redirection targets.
func Resolve(tokens []string, opts Options) (*Command, error) {
	cmd := &Command{Foreground: true}
	if err := cmd.apply(tokens, opts); err != nil {
		_ = cmd.Close()
		return nil, err
	}
	return cmd, nil
}

func (c *Command) apply(tokens []string, opts Options) error {
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		last := i == len(tokens)-1
		switch {
		case tok == opInput:
			if last {
				return &Error{Kind: MissingInputFilename}
			}
			i++
			f, err := os.Open(tokens[i])
			if err != nil {
				return &Error{Kind: NoSuchInputFile, Name: tokens[i], Err: err}
			}
			replace(&c.Stdin, f)
		case tok == opOutput:
			if last {
				return &Error{Kind: MissingOutputFilename}
			}
			i++
			f, err := os.OpenFile(tokens[i], os.O_WRONLY|os.O_CREATE|os.O_TRUNC, OutputPerm)
			if err != nil {
				return &Error{Kind: FileOpenFailure, Name: tokens[i], Err: err}
			}
			replace(&c.Stdout, f)
		case tok == opBackground && last:
			if !opts.ForegroundOnly {
				c.Foreground = false
			}
		default:
			c.Args = append(c.Args, tok)
		}
	}

	if c.Foreground {
		return nil
	}
	null := opts.NullDevice
	if null == "" {
		null = os.DevNull
	}
	if c.Stdin == nil {
		f, err := os.Open(null)
		if err != nil {
			return &Error{Kind: NoSuchInputFile, Name: null, Err: err}
		}
		c.Stdin = f
	}
	if c.Stdout == nil {
		f, err := os.OpenFile(null, os.O_WRONLY, 0)
		if err != nil {
			return &Error{Kind: FileOpenFailure, Name: null, Err: err}
		}
		c.Stdout = f
	}
	return nil
}

// replace installs f in slot, closing a file from an earlier redirection
// of the same stream.
func replace(slot **os.File, f *os.File) {
	if *slot != nil {
		_ = (*slot).Close()
	}
	*slot = f
}

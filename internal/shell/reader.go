package shell

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/sys/unix"
)

//go:generate mockgen -source=reader.go -destination=mocks/mock_reader.go -package=mocks

// LineReader yields one input line per call, without the newline.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

type readlineReader struct {
	*readline.Instance
}

// NewReadline returns an interactive line editor. Ctrl-Z at the prompt
// is turned into a SIGTSTP for the shell, since the terminal is in raw
// mode while editing and would otherwise never generate one.
func NewReadline(prompt string, history []string) (LineReader, io.Writer, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 prompt,
		DisableAutoSaveHistory: true,
		FuncFilterInputRune: func(r rune) (rune, bool) {
			if r == readline.CharCtrlZ {
				_ = unix.Kill(os.Getpid(), unix.SIGTSTP)
				return r, false
			}
			return r, true
		},
	})
	if err != nil {
		return nil, nil, err
	}
	for _, line := range history {
		_ = rl.SaveHistory(line)
	}
	return &readlineReader{rl}, rl.Stdout(), nil
}

func (r *readlineReader) Readline() (string, error) {
	line, err := r.Instance.Readline()
	if err == nil {
		_ = r.Instance.SaveHistory(line)
	}
	return line, err
}

// plainReader serves non-terminal input such as pipes and files.
type plainReader struct {
	prompt string
	in     *bufio.Reader
	out    io.Writer
}

func NewPlainReader(prompt string, in io.Reader, out io.Writer) LineReader {
	return &plainReader{prompt: prompt, in: bufio.NewReader(in), out: out}
}

func (r *plainReader) Readline() (string, error) {
	if r.prompt != "" {
		_, _ = io.WriteString(r.out, r.prompt)
	}
	line, err := r.in.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"), err
}

func (r *plainReader) Close() error {
	return nil
}

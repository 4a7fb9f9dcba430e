package shell_test

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/chzyer/readline"
	"github.com/sebdah/goldie/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/sys/unix"

	"smallsh/internal/config"
	"smallsh/internal/history"
	"smallsh/internal/logger"
	"smallsh/internal/shell"
	"smallsh/internal/shell/mocks"
)

type testShell struct {
	*shell.Shell
	reader *mocks.MockLineReader
	out    *os.File
	hist   *history.History
	cfg    *config.Config
}

func newTestShell(t *testing.T) *testShell {
	t.Helper()

	ctrl := gomock.NewController(t)
	reader := mocks.NewMockLineReader(ctrl)

	out, err := os.CreateTemp(t.TempDir(), "terminal")
	require.NoError(t, err)
	devnull, err := os.Open(os.DevNull)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = out.Close()
		_ = devnull.Close()
	})

	cfg := config.Default()
	cfg.Color = false
	cfg.HomeDir = t.TempDir()

	hist, err := history.New(afero.NewMemMapFs(), "/history", 100)
	require.NoError(t, err)

	sh, err := shell.New(cfg, hist, shell.Options{
		Reader: reader,
		Stdio:  shell.Stdio{In: devnull, Out: out, Err: out},
		Log:    logger.Discard(),
	})
	require.NoError(t, err)

	return &testShell{Shell: sh, reader: reader, out: out, hist: hist, cfg: cfg}
}

// script queues lines to be read in order.
func (ts *testShell) script(lines ...string) {
	var prev *gomock.Call
	for _, line := range lines {
		call := ts.reader.EXPECT().Readline().Return(line, nil)
		if prev != nil {
			call.After(prev)
		}
		prev = call
	}
}

func (ts *testShell) output(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(ts.out.Name())
	require.NoError(t, err)
	return string(data)
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestShell_Transcript(t *testing.T) {
	ts := newTestShell(t)
	ts.script(
		"# a comment is skipped",
		"",
		"echo hello",
		"status",
		"false",
		"status",
		"true",
		"cat < /nonexistent/smallsh/in.txt",
		"status",
		"cat <",
		"ls >",
		"smallsh-no-such-command",
		"status",
		"exit",
	)

	require.NoError(t, ts.Run())

	g := goldie.New(t)
	g.Assert(t, "transcript", []byte(ts.output(t)))

	assert.Equal(t, shell.Status{Code: 1}, ts.LastStatus())
	assert.NotContains(t, ts.hist.GetAll(), "# a comment is skipped")
	assert.Contains(t, ts.hist.GetAll(), "echo hello")
	assert.Len(t, ts.hist.GetAll(), 12)
}

func TestShell_Redirection(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PWD", os.Getenv("PWD"))
	chdir(t, ".")

	ts := newTestShell(t)
	ts.script(
		"cd "+dir,
		"echo one two > out.txt",
		"wc < out.txt > count.txt",
		"exit",
	)

	require.NoError(t, ts.Run())

	data, err := os.ReadFile(filepath.Join(dir, "count.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "8"}, strings.Fields(string(data)))
	assert.Empty(t, ts.output(t))

	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	pwd, err := filepath.EvalSymlinks(os.Getenv("PWD"))
	require.NoError(t, err)
	assert.Equal(t, resolved, pwd)
}

func TestShell_CdHomeAndFailure(t *testing.T) {
	t.Setenv("PWD", os.Getenv("PWD"))
	chdir(t, t.TempDir())

	ts := newTestShell(t)
	ts.script(
		"cd /nonexistent/smallsh",
		"cd",
		"exit",
	)

	require.NoError(t, ts.Run())

	assert.Equal(t, "cd: chdir /nonexistent/smallsh: no such file or directory\n", ts.output(t))

	wd, err := os.Getwd()
	require.NoError(t, err)
	home, err := filepath.EvalSymlinks(ts.cfg.HomeDir)
	require.NoError(t, err)
	wd, err = filepath.EvalSymlinks(wd)
	require.NoError(t, err)
	assert.Equal(t, home, wd)
}

var backgroundReport = regexp.MustCompile(`^New Background Process with PID\[(\d+)\]\nProcess (\d+) exited with status 0\n$`)

func TestShell_BackgroundJobIsReaped(t *testing.T) {
	ts := newTestShell(t)

	calls := 0
	deadline := time.Now().Add(5 * time.Second)
	ts.reader.EXPECT().Readline().DoAndReturn(func() (string, error) {
		calls++
		switch {
		case calls == 1:
			return "echo hidden &", nil
		case strings.Contains(ts.output(t), "exited with status"), time.Now().After(deadline):
			return "exit", nil
		default:
			time.Sleep(10 * time.Millisecond)
			return "", nil
		}
	}).MinTimes(2)

	require.NoError(t, ts.Run())

	out := ts.output(t)
	m := backgroundReport.FindStringSubmatch(out)
	require.NotNil(t, m, "unexpected output %q", out)
	assert.Equal(t, m[1], m[2])
	assert.NotContains(t, out, "hidden")
	assert.Equal(t, shell.Status{}, ts.LastStatus(), "background jobs do not touch the foreground status")
}

func TestShell_ForegroundOnlyMode(t *testing.T) {
	ts := newTestShell(t)
	ts.Mode().Toggle()
	ts.script(
		"echo hi &",
		"exit",
	)

	require.NoError(t, ts.Run())

	assert.Equal(t, "\nEntering foreground-only mode (& is now ignored)\nhi\n", ts.output(t))
}

func TestShell_SuspendSignalTogglesMode(t *testing.T) {
	ts := newTestShell(t)
	gomock.InOrder(
		ts.reader.EXPECT().Readline().DoAndReturn(func() (string, error) {
			require.NoError(t, unix.Kill(os.Getpid(), unix.SIGTSTP))
			require.Eventually(t, ts.Mode().ForegroundOnly, 2*time.Second, 10*time.Millisecond)
			return "echo fg &", nil
		}),
		ts.reader.EXPECT().Readline().DoAndReturn(func() (string, error) {
			require.NoError(t, unix.Kill(os.Getpid(), unix.SIGINT))
			time.Sleep(50 * time.Millisecond)
			return "exit", nil
		}),
	)

	require.NoError(t, ts.Run())

	assert.Equal(t, "\nEntering foreground-only mode (& is now ignored)\nfg\n", ts.output(t))
}

func TestShell_ParseFatalEndsSession(t *testing.T) {
	for _, line := range []string{"< in.txt", "> out.txt", "&", "   "} {
		t.Run(line, func(t *testing.T) {
			ts := newTestShell(t)
			ts.script(line)

			require.NoError(t, ts.Run())
			assert.Empty(t, ts.output(t))
		})
	}
}

func TestShell_InterruptedReadIsRetried(t *testing.T) {
	ts := newTestShell(t)
	gomock.InOrder(
		ts.reader.EXPECT().Readline().Return("", readline.ErrInterrupt),
		ts.reader.EXPECT().Readline().Return("", unix.EINTR),
		ts.reader.EXPECT().Readline().Return("status", nil),
		ts.reader.EXPECT().Readline().Return("", io.EOF),
	)

	require.NoError(t, ts.Run())
	assert.Equal(t, "exit value 0\n", ts.output(t))
}

func TestShell_SignaledForegroundIsReported(t *testing.T) {
	script := filepath.Join(t.TempDir(), "suicide.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nkill -TERM $$\n"), 0o700)) //nolint:gosec // test needs an executable

	ts := newTestShell(t)
	ts.script(
		script,
		"status",
		"exit",
	)

	require.NoError(t, ts.Run())

	assert.Equal(t, "terminated by signal 15\nterminated by signal 15\n", ts.output(t))
}

func TestNew_RequiresReader(t *testing.T) {
	_, err := shell.New(config.Default(), nil, shell.Options{})
	assert.Error(t, err)
}

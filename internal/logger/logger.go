// Package logger builds the shell's diagnostic logger on log/slog.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/afero"
	"go.trai.ch/zerr"
)

// New returns a text logger writing to w at the named level.
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return New(io.Discard, "error")
}

// Open appends to file through fsys. An empty file name yields a
// discarding logger and a no-op closer.
func Open(fsys afero.Fs, file, level string) (*slog.Logger, io.Closer, error) {
	if file == "" {
		return Discard(), io.NopCloser(nil), nil
	}
	f, err := fsys.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, zerr.With(zerr.Wrap(err, "failed to open log file"), "path", file)
	}
	return New(f, level), f, nil
}

// ParseLevel maps a config level name to a slog level. Unknown names
// map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package history

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/spf13/afero"
	"go.trai.ch/zerr"
)

type History struct {
	items    []string
	fs       afero.Fs
	file     string
	maxItems int
	mu       sync.Mutex
}

// New loads the history stored in file. A maxItems of zero disables
// persistence and recording.
func New(fsys afero.Fs, file string, maxItems int) (*History, error) {
	h := &History{
		fs:       fsys,
		file:     file,
		maxItems: maxItems,
	}
	if err := h.load(); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to load history"), "path", file)
	}
	return h, nil
}

// Add records item and rewrites the history file.
func (h *History) Add(item string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.maxItems == 0 {
		return nil
	}
	h.items = append(h.items, item)
	h.trim()
	if err := h.save(); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to save history"), "path", h.file)
	}
	return nil
}

func (h *History) GetAll() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]string{}, h.items...)
}

func (h *History) trim() {
	if len(h.items) > h.maxItems {
		h.items = h.items[len(h.items)-h.maxItems:]
	}
}

func (h *History) load() error {
	if h.maxItems == 0 {
		return nil
	}
	file, err := h.fs.Open(h.file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		h.items = append(h.items, scanner.Text())
	}
	h.trim()
	return scanner.Err()
}

func (h *History) save() error {
	file, err := h.fs.OpenFile(h.file, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, item := range h.items {
		if _, err := writer.WriteString(item + "\n"); err != nil {
			return err
		}
	}
	return writer.Flush()
}

// Package datalog stores readings in one plain-text file per calendar day and
// reads them back for the visualizers.
package datalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/allbin/cleanroom/reading"
)

const (
	// FileLayout names a day file, e.g. 2019_04_23.txt
	FileLayout = "2006_01_02"
	FileExt    = ".txt"
)

// Writer appends readings to <dir>/YYYY_MM_DD.txt. The day is taken from the
// reading's own timestamp.
type Writer struct {
	mu     sync.Mutex
	dir    string
	perm   os.FileMode
	logger *zap.Logger
}

// WriterOption configures a Writer
type WriterOption func(*Writer)

// WithFileMode sets the permission bits of newly created day files
func WithFileMode(perm os.FileMode) WriterOption {
	return func(w *Writer) {
		w.perm = perm
	}
}

// WithLogger sets the writer's logger
func WithLogger(logger *zap.Logger) WriterOption {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func NewWriter(dir string, opts ...WriterOption) *Writer {
	w := &Writer{
		dir:    dir,
		perm:   0o644,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the directory day files are written to
func (w *Writer) Dir() string {
	return w.dir
}

// PathFor returns the day file a reading belongs in
func (w *Writer) PathFor(r reading.Reading) string {
	return filepath.Join(w.dir, r.Time.Format(FileLayout)+FileExt)
}

// Record implements the recorder sink interface
func (w *Writer) Record(_ context.Context, r reading.Reading) error {
	return w.Append(r)
}

// Append writes one line, creating the directory and the day file with its
// header first if needed.
func (w *Writer) Append(r reading.Reading) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	path := w.PathFor(r)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, w.perm)
	switch {
	case err == nil:
		w.logger.Info("starting day file", zap.String("path", path))
		if _, err := f.WriteString(reading.Header + "\n"); err != nil {
			f.Close()
			return fmt.Errorf("write header: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	case !os.IsExist(err):
		return fmt.Errorf("create day file: %w", err)
	}

	f, err = os.OpenFile(path, os.O_WRONLY|os.O_APPEND, w.perm)
	if err != nil {
		return fmt.Errorf("open day file: %w", err)
	}
	if _, err := f.WriteString(r.Format() + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("append reading: %w", err)
	}
	return f.Close()
}

package datalog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/allbin/cleanroom/reading"
)

// Files returns the day files in dir, oldest first. A missing directory has
// no files.
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !IsDayFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// IsDayFile reports whether name looks like YYYY_MM_DD.txt
func IsDayFile(name string) bool {
	if !strings.HasSuffix(name, FileExt) {
		return false
	}
	_, err := time.Parse(FileLayout, strings.TrimSuffix(name, FileExt))
	return err == nil
}

// ReadOption configures ReadFile and LoadLast
type ReadOption func(*readConfig)

type readConfig struct {
	logger *zap.Logger
}

// WithReadLogger reports skipped lines to logger
func WithReadLogger(logger *zap.Logger) ReadOption {
	return func(c *readConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// ReadFile loads every record of a day file in write order. Header and blank
// lines are skipped, and so is any line that does not parse, such as a record
// cut short by a power loss during an append.
func ReadFile(path string, opts ...ReadOption) ([]reading.Reading, error) {
	cfg := readConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []reading.Reading
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if reading.IsComment(line) {
			continue
		}
		r, err := reading.Parse(line)
		if err != nil {
			cfg.logger.Warn("skipping malformed record",
				zap.String("file", path),
				zap.Int("line", lineNo),
				zap.Error(err))
			continue
		}
		out = append(out, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s:%d: %w", path, lineNo+1, err)
	}
	return out, nil
}

// LoadLast loads the records of the newest days day files, oldest first
func LoadLast(dir string, days int, opts ...ReadOption) ([]reading.Reading, error) {
	files, err := Files(dir)
	if err != nil {
		return nil, err
	}
	if days > 0 && len(files) > days {
		files = files[len(files)-days:]
	}

	var out []reading.Reading
	for _, path := range files {
		rs, err := ReadFile(path, opts...)
		if err != nil {
			return nil, err
		}
		out = append(out, rs...)
	}
	return out, nil
}

// Since returns the readings at or after t. The input must be in time order.
func Since(readings []reading.Reading, t time.Time) []reading.Reading {
	i := sort.Search(len(readings), func(i int) bool {
		return !readings[i].Time.Before(t)
	})
	return readings[i:]
}

// Tail returns the last n readings
func Tail(readings []reading.Reading, n int) []reading.Reading {
	if n <= 0 || len(readings) <= n {
		return readings
	}
	return readings[len(readings)-n:]
}

// Every returns every step-th reading, keeping the first
func Every(readings []reading.Reading, step int) []reading.Reading {
	if step <= 1 {
		return readings
	}
	out := make([]reading.Reading, 0, len(readings)/step+1)
	for i := 0; i < len(readings); i += step {
		out = append(out, readings[i])
	}
	return out
}

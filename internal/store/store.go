// Package store implements the append-only flat-file historical store.
//
// The dataset builder is the only writer and runs offline; queries read the
// file sequentially while no writer is active, so no cross-process
// coordination is needed. Every query is a linear scan, a deliberate
// simplicity-over-throughput trade-off for a store bounded by the ingestion
// window.
package store

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/aqimonitor/aqimonitor/internal/observation"
)

// Store provides access to one historical store file.
type Store struct {
	path string
}

// Open returns a store backed by the file at path. The file does not need to
// exist yet; it is created with a header line on first append.
func Open(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Scan reads the store sequentially, invoking fn for every well-formed
// observation row. The header line and malformed rows are skipped silently.
// Scanning stops early when fn returns false. The file handle is released on
// every return path.
func (s *Store) Scan(fn func(observation.Observation) bool) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open store %s: %w", s.path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	first := true
	for sc.Scan() {
		if first {
			first = false
			continue
		}
		obs, ok := observation.DecodeRow(sc.Text())
		if !ok {
			continue
		}
		if !fn(obs) {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan store %s: %w", s.path, err)
	}
	return nil
}

// OpenAppender opens the store for appending, writing the header line when
// the file is new or empty.
func (s *Store) OpenAppender() (*Appender, error) {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open store %s for append: %w", s.path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat store %s: %w", s.path, err)
	}

	a := &Appender{f: f, w: bufio.NewWriter(f)}
	if info.Size() == 0 {
		if _, err := a.w.WriteString(observation.Header + "\n"); err != nil {
			f.Close()
			return nil, fmt.Errorf("write store header: %w", err)
		}
		if err := a.Flush(); err != nil {
			f.Close()
			return nil, err
		}
	}
	return a, nil
}

// Exists reports whether the store file is present on disk.
func (s *Store) Exists() (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Appender writes observation rows to the end of the store file. Rows become
// durable only after Flush; the builder flushes after every slot so a crash
// mid-run never loses previously flushed rows.
type Appender struct {
	f *os.File
	w *bufio.Writer
}

// Append buffers one row per observation.
func (a *Appender) Append(observations ...observation.Observation) error {
	for _, o := range observations {
		if _, err := a.w.WriteString(observation.EncodeRow(o) + "\n"); err != nil {
			return fmt.Errorf("append row: %w", err)
		}
	}
	return nil
}

// Flush drains the write buffer and syncs the file to stable storage.
func (a *Appender) Flush() error {
	if err := a.w.Flush(); err != nil {
		return fmt.Errorf("flush store: %w", err)
	}
	if err := a.f.Sync(); err != nil {
		return fmt.Errorf("sync store: %w", err)
	}
	return nil
}

// Close flushes pending rows and releases the file handle.
func (a *Appender) Close() error {
	flushErr := a.Flush()
	closeErr := a.f.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// Package manifest writes and reads the append-only manifest.jsonl of a corpus.
package manifest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/jonesrussell/north-cloud/corpus/internal/domain"
)

// ErrClosed is returned when writing to a closed Writer.
var ErrClosed = errors.New("manifest writer closed")

const filePerm = 0o644

// Writer appends one JSON line per entry. It owns the file handle from Open
// until Close.
type Writer struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	buf    *bufio.Writer
	count  int
	closed bool
}

// Open creates (or truncates) the manifest at path.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePerm)
	if err != nil {
		return nil, &domain.FilesystemError{Op: "open", Path: path, Err: err}
	}
	return &Writer{
		path: path,
		file: f,
		buf:  bufio.NewWriter(f),
	}, nil
}

// Write encodes entry as one line and flushes it to disk.
func (w *Writer) Write(entry domain.ManifestEntry) error {
	line, err := Encode(entry)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if _, err = w.buf.Write(line); err != nil {
		return &domain.FilesystemError{Op: "write", Path: w.path, Err: err}
	}
	if err = w.buf.Flush(); err != nil {
		return &domain.FilesystemError{Op: "flush", Path: w.path, Err: err}
	}
	w.count++
	return nil
}

// Count returns the number of lines written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Path returns the manifest location.
func (w *Writer) Path() string {
	return w.path
}

// Close flushes and closes the file. It is safe to call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	flushErr := w.buf.Flush()
	closeErr := w.file.Close()
	if err := errors.Join(flushErr, closeErr); err != nil {
		return &domain.FilesystemError{Op: "close", Path: w.path, Err: err}
	}
	return nil
}

// Encode renders entry as a newline-terminated JSON object with sorted keys.
func Encode(entry domain.ManifestEntry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entry); err != nil {
		return nil, fmt.Errorf("encode manifest entry %d: %w", entry.Index, err)
	}
	return buf.Bytes(), nil
}

// ReadAll decodes every line of a manifest.
func ReadAll(r io.Reader) ([]domain.ManifestEntry, error) {
	var entries []domain.ManifestEntry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(bytes.TrimSpace(scanner.Bytes())) == 0 {
			continue
		}
		var entry domain.ManifestEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("manifest line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return entries, nil
}

// ReadFile decodes the manifest at path.
func ReadFile(path string) ([]domain.ManifestEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.FilesystemError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()
	return ReadAll(f)
}

// Package storage writes corpus artifacts beneath the corpus root.
package storage

import (
	"bytes"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jonesrussell/north-cloud/corpus/internal/domain"
	"github.com/klauspost/compress/gzip"
)

// Artifact categories, each a subtree of the corpus root.
const (
	CategoryRaw      = "raw"
	CategoryText     = "text"
	CategoryOutlinks = "outlinks"
)

// GzipSuffix is appended to compressed artifacts.
const GzipSuffix = ".gz"

var errEscapesRoot = errors.New("path escapes corpus root")

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Interface persists artifacts and reports the path actually written.
type Interface interface {
	Write(relPath string, payload []byte, compress bool) (string, error)
}

// Storage writes files under a fixed corpus root.
type Storage struct {
	root string
}

var _ Interface = (*Storage)(nil)

// New returns a Storage rooted at root.
func New(root string) *Storage {
	return &Storage{root: root}
}

// Root returns the corpus root directory.
func (s *Storage) Root() string {
	return s.root
}

// Write stores payload at relPath (slash separated, relative to the root),
// gzip-compressing it and adding GzipSuffix when compress is set. The returned
// path is relative to the root and uses forward slashes.
func (s *Storage) Write(relPath string, payload []byte, compress bool) (string, error) {
	rel := path.Clean(filepath.ToSlash(relPath))
	if rel == "." || path.IsAbs(rel) || strings.HasPrefix(rel, "../") || rel == ".." {
		return "", &domain.FilesystemError{Op: "write", Path: relPath, Err: errEscapesRoot}
	}

	if compress {
		var err error
		if payload, err = gzipPayload(payload); err != nil {
			return "", &domain.FilesystemError{Op: "compress", Path: relPath, Err: err}
		}
		rel += GzipSuffix
	}

	target := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return "", &domain.FilesystemError{Op: "mkdir", Path: filepath.Dir(target), Err: err}
	}
	if err := os.WriteFile(target, payload, filePerm); err != nil {
		return "", &domain.FilesystemError{Op: "write", Path: target, Err: err}
	}

	return rel, nil
}

func gzipPayload(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		_ = zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

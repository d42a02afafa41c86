package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/talentops/cv-advisor/internal/log"
)

// Dir implements ObjectStore on a local directory. It backs the local corpus
// provider and tests; the "bucket" is the directory name and URIs use the
// file:// scheme.
type Dir struct {
	root   string
	logger log.Logger
}

// NewDir creates a directory-backed object store rooted at root.
func NewDir(root string, logger log.Logger) (*Dir, error) {
	if root == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create object directory: %w", err)
	}
	return &Dir{root: root, logger: logger}, nil
}

// Upload writes the object under root/key and returns its file:// URI.
func (s *Dir) Upload(_ context.Context, key string, r io.Reader) (string, error) {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("failed to create prefix directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- key is sanitized by the pipeline
	if err != nil {
		return "", fmt.Errorf("failed to create object file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write object %q: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object %q: %w", key, err)
	}

	uri := "file://" + filepath.ToSlash(path)
	s.logger.Debug("stored object", "uri", uri)
	return uri, nil
}

// Open reads an object back by its file:// URI.
func (s *Dir) Open(_ context.Context, uri string) (io.ReadCloser, error) {
	path, ok := strings.CutPrefix(uri, "file://")
	if !ok {
		return nil, fmt.Errorf("not a file:// URI: %q", uri)
	}
	f, err := os.Open(filepath.FromSlash(path)) // #nosec G304 -- URI produced by Upload
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", uri, err)
	}
	return f, nil
}

package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes objects into a directory on disk.
type LocalStore struct {
	dir string
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create %q: %w", abs, err)
	}
	return &LocalStore{dir: abs}, nil
}

// Put implements Store. contentType is not recorded on disk.
func (s *LocalStore) Put(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	target := filepath.Join(s.dir, filepath.FromSlash(name))
	if !strings.HasPrefix(target, s.dir+string(filepath.Separator)) {
		return "", fmt.Errorf("object name %q escapes the store directory", name)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create %q: %w", filepath.Dir(target), err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", fmt.Errorf("read object content: %w", err)
	}
	if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write %q: %w", target, err)
	}
	return "file://" + filepath.ToSlash(target), nil
}

// Get implements Store.
func (s *LocalStore) Get(ctx context.Context, uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "file://") {
		return nil, fmt.Errorf("invalid file URI: %s", uri)
	}
	data, err := os.ReadFile(filepath.FromSlash(strings.TrimPrefix(uri, "file://")))
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return data, nil
}

var _ Store = (*LocalStore)(nil)

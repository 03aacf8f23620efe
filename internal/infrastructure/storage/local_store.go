// Package storage keeps uploaded export files until the import worker reads them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrObjectNotFound is returned when a stored file does not exist
var ErrObjectNotFound = errors.New("storage: object not found")

// LocalFileStore keeps files in a directory on the local filesystem
type LocalFileStore struct {
	dir string
}

// NewLocalFileStore creates the directory if needed
func NewLocalFileStore(dir string) (*LocalFileStore, error) {
	if dir == "" {
		return nil, errors.New("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalFileStore{dir: dir}, nil
}

// Put writes r to name. The name is reduced to its base to stay inside the directory.
func (s *LocalFileStore) Put(_ context.Context, name string, r io.Reader) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to store file: %w", err)
	}
	return nil
}

// Fetch returns the path of a stored file. release is a no-op.
func (s *LocalFileStore) Fetch(_ context.Context, name string) (string, func(), error) {
	path, err := s.path(name)
	if err != nil {
		return "", nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("%w: %s", ErrObjectNotFound, name)
		}
		return "", nil, err
	}
	return path, func() {}, nil
}

// Delete removes a stored file. Missing files are ignored.
func (s *LocalFileStore) Delete(_ context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalFileStore) path(name string) (string, error) {
	base := filepath.Base(name)
	if base == "." || base == "/" || base == ".." || base == "" {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return filepath.Join(s.dir, base), nil
}

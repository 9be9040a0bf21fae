// Package blob abstracts file payload storage. The service keeps metadata in
// postgres and hands the bytes to a Store, so the backend can change without
// touching the feature packages.
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"communityhub/pkg/platform/sentinel"
)

// Store persists and serves file payloads by name.
type Store interface {
	// Save writes the payload and returns the stored name. The returned name,
	// not the caller's, is what later Open and Delete calls must use.
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, int64, error)
	Delete(ctx context.Context, name string) error
}

// LocalStore keeps payloads as flat files under one directory. Stored names
// carry a random prefix so caller-chosen names can never collide or traverse
// out of the directory.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Save(_ context.Context, name string, r io.Reader) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "upload"
	}
	stored := uuid.New().String() + "_" + base

	f, err := os.Create(filepath.Join(s.dir, stored))
	if err != nil {
		return "", fmt.Errorf("create blob file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write blob file: %w", err)
	}
	return stored, nil
}

func (s *LocalStore) Open(_ context.Context, name string) (io.ReadCloser, int64, error) {
	path := filepath.Join(s.dir, filepath.Base(name))
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, 0, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open blob file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat blob file: %w", err)
	}
	return f, info.Size(), nil
}

func (s *LocalStore) Delete(_ context.Context, name string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(name)))
	if os.IsNotExist(err) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete blob file: %w", err)
	}
	return nil
}

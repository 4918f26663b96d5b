package content

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/eringen/storypub/internal/fsutil"
)

// FSBackend keeps each blob as a file in a single directory.
type FSBackend struct {
	dir string
}

// NewFS returns a filesystem backend rooted at dir. The directory is created
// lazily on the first write.
func NewFS(dir string) (*FSBackend, error) {
	if dir == "" {
		return nil, errors.New("base directory is required")
	}
	return &FSBackend{dir: filepath.Clean(dir)}, nil
}

// Dir returns the directory blobs are written to.
func (b *FSBackend) Dir() string {
	return b.dir
}

// Put writes data under key, replacing any previous blob.
func (b *FSBackend) Put(ctx context.Context, key string, data []byte) error {
	return fsutil.WriteFile(filepath.Join(b.dir, key), data, 0o644)
}

// Get reads the blob stored under key.
func (b *FSBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(b.dir, key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

// Delete removes the blob stored under key.
func (b *FSBackend) Delete(ctx context.Context, key string) error {
	err := os.Remove(filepath.Join(b.dir, key))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DiskStore writes uploads into a local directory that the HTTP server
// exposes as static files.
type DiskStore struct {
	dir     string
	baseURL string
}

// NewDiskStore creates dir if needed. publicURL is the absolute URL the
// directory is served at, e.g. http://localhost:5000/uploads.
func NewDiskStore(dir, publicURL string) (*DiskStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("upload dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{
		dir:     dir,
		baseURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

func (d *DiskStore) Dir() string {
	return d.dir
}

func (d *DiskStore) Put(ctx context.Context, data []byte, contentType string) (Object, error) {
	if len(data) == 0 {
		return Object{}, ErrEmptyObject
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	name := uuid.NewString() + ExtensionFor(contentType)
	if err := os.WriteFile(filepath.Join(d.dir, name), data, 0o644); err != nil {
		return Object{}, fmt.Errorf("write upload: %w", err)
	}
	return Object{Key: name, URL: d.baseURL + "/" + name}, nil
}

// Delete removes the file. A file that is already gone is not an error.
func (d *DiskStore) Delete(_ context.Context, key string) error {
	if key == "" || filepath.Base(key) != key {
		return fmt.Errorf("invalid upload key %q", key)
	}
	if err := os.Remove(filepath.Join(d.dir, key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

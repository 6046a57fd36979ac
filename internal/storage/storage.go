// Package storage holds the temporary copies of original uploads that are
// exposed to the frontend by URL.
package storage

import (
	"context"
	"errors"
	"strings"
)

var ErrEmptyObject = errors.New("no data to store")

// Object locates a stored upload. Key is what Delete expects.
type Object struct {
	Key string
	URL string
}

// Store is implemented by DiskStore and S3Store.
type Store interface {
	Put(ctx context.Context, data []byte, contentType string) (Object, error)
	Delete(ctx context.Context, key string) error
}

func ExtensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}

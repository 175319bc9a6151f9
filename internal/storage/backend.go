// Package storage persists plugin binaries outside the catalog databases:
// plugin rows in function.db carry only name/tag/url/sha256, the bytes
// themselves live on the configured backend under plugins/<name>.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	ErrNotFound      = errors.New("file not found")
	ErrInvalidConfig = errors.New("invalid backend configuration")
	ErrChecksum      = errors.New("sha256 mismatch")
)

// Backend stores opaque byte blobs under a bucket/key pair.
type Backend interface {
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64) error
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, bucket, key string) error
	Exists(ctx context.Context, bucket, key string) (bool, error)
}

// BackendConfig selects and configures a Backend. Query only ships the
// filesystem backend; the interface stays small enough that a future
// object-storage backend could be added without touching callers.
type BackendConfig struct {
	Path        string
	Compression string // "", "gzip", or "zstd"
}

func NewBackend(cfg BackendConfig) (Backend, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: filesystem backend requires path", ErrInvalidConfig)
	}

	var backend Backend = NewFilesystemBackend(cfg.Path)
	if cfg.Compression != "" {
		backend = NewCompressedBackend(backend, cfg.Compression)
	}
	return backend, nil
}

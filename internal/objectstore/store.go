// Package objectstore holds job input images and result artifacts in an
// S3-compatible bucket. MinIO is the default backend; AWS S3 (or any
// S3-compatible endpoint) is selected with OBJECT_STORE_PROVIDER=s3.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/NethraK15/Giza-Global-Eval-Task/internal/config"
)

var ErrObjectNotFound = errors.New("object not found")

// Object is an open object body. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Store is the object storage capability used by the API and the worker.
type Store interface {
	// Put uploads size bytes from r. A size of -1 means unknown.
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error
	// Get opens an object. A missing key returns ErrObjectNotFound.
	Get(ctx context.Context, bucket, key string) (*Object, error)
	// EnsureBucket creates bucket if it does not exist yet.
	EnsureBucket(ctx context.Context, bucket string) error
	Ping(ctx context.Context, bucket string) error
}

// New builds the backend named by cfg.Provider.
func New(ctx context.Context, cfg config.ObjectStoreConfig) (Store, error) {
	switch cfg.Provider {
	case "minio":
		return NewMinioStore(cfg)
	case "s3":
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported object store provider: %s", cfg.Provider)
	}
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/skillbridge/apiserver/config"
)

var (
	// ErrDisabled is returned by Open when no storage backend is configured.
	ErrDisabled = errors.New("object storage disabled")
	// ErrObjectNotFound is returned when the requested key does not exist.
	ErrObjectNotFound = errors.New("object not found")
)

// Object is an open object body with its metadata.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (Object, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Open builds the backend selected by cfg.Backend and makes sure its bucket
// exists.
func Open(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", config.StorageBackendNone:
		return nil, ErrDisabled
	case config.StorageBackendMinio:
		backend, err = NewMinioClient(cfg.Minio)
	case config.StorageBackendGCS:
		backend, err = NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return backend, nil
}

// LessonKey returns a fresh object key for uploaded lesson content, keeping
// the original file extension.
func LessonKey(courseID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join("courses", courseID, "lessons", uuid.NewString()+ext)
}

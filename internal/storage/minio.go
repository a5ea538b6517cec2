package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/skillbridge/apiserver/config"
)

// MinioClient stores lesson content in a MinIO or S3-compatible bucket.
type MinioClient struct {
	client *minio.Client
	bucket string
}

// NewMinioClient constructs a MinIO client from config.
func NewMinioClient(cfg config.MinioConfig) (*MinioClient, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("minio endpoint is required")
	}
	if strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("minio access key and secret key are required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("minio bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	return &MinioClient{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the configured bucket when it does not exist yet.
func (m *MinioClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
}

// Put uploads lesson content under key. A negative size streams with an unknown length.
func (m *MinioClient) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// Get opens the object. GetObject is lazy, so the Stat call is what surfaces
// a missing key.
func (m *MinioClient) Get(ctx context.Context, key string) (Object, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return Object{}, mapMinioError(err)
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return Object{}, mapMinioError(err)
	}
	return Object{Body: obj, ContentType: info.ContentType, Size: info.Size}, nil
}

// Delete removes key from the bucket.
func (m *MinioClient) Delete(ctx context.Context, key string) error {
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}

// Bucket returns the configured bucket name.
func (m *MinioClient) Bucket() string {
	return m.bucket
}

func mapMinioError(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrObjectNotFound
	}
	return err
}

package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/skillbridge/apiserver/config"
	"github.com/stretchr/testify/assert"
)

func TestLessonKey(t *testing.T) {
	key := LessonKey("64b7f0c2a1b2c3d4e5f60718", "Intro Video.MP4")

	assert.True(t, strings.HasPrefix(key, "courses/64b7f0c2a1b2c3d4e5f60718/lessons/"))
	assert.True(t, strings.HasSuffix(key, ".mp4"))
	assert.NotEqual(t, key, LessonKey("64b7f0c2a1b2c3d4e5f60718", "Intro Video.MP4"))
}

func TestLessonKeyWithoutExtension(t *testing.T) {
	key := LessonKey("abc", "notes")

	assert.True(t, strings.HasPrefix(key, "courses/abc/lessons/"))
	assert.NotContains(t, strings.TrimPrefix(key, "courses/abc/lessons/"), ".")
}

func TestOpenValidation(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, config.StorageConfig{Backend: "none"})
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = Open(ctx, config.StorageConfig{Backend: "s3"})
	assert.Error(t, err)

	_, err = Open(ctx, config.StorageConfig{Backend: "minio", Minio: config.MinioConfig{Endpoint: "localhost:9000"}})
	assert.EqualError(t, err, "minio access key and secret key are required")

	_, err = Open(ctx, config.StorageConfig{Backend: "gcs"})
	assert.EqualError(t, err, "gcs bucket is required")
}

package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/larderhq/larder/internal/config"
)

// ImageStore persists uploaded receipt images. Keys are opaque to callers;
// the store that wrote a key is the store that can read it back.
type ImageStore interface {
	Save(ctx context.Context, data []byte, contentType string) (key string, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// NewImageStore builds the store selected by the configuration
func NewImageStore(cfg *config.Config) (ImageStore, error) {
	switch cfg.ImageStorage {
	case "s3":
		return NewS3ImageStore(cfg)
	case "local", "":
		return NewLocalImageStore(cfg.ReceiptsDir)
	default:
		return nil, fmt.Errorf("unknown image storage backend %q", cfg.ImageStorage)
	}
}

func newImageKey(contentType string) string {
	ext := ".jpg"
	switch contentType {
	case "image/png":
		ext = ".png"
	case "image/webp":
		ext = ".webp"
	case "image/heic":
		ext = ".heic"
	}
	return time.Now().UTC().Format("2006/01/02") + "/" + uuid.NewString() + ext
}

// LocalImageStore writes images under a base directory
type LocalImageStore struct {
	baseDir string
}

// NewLocalImageStore creates the base directory and returns a local store
func NewLocalImageStore(baseDir string) (*LocalImageStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create receipts directory: %w", err)
	}
	return &LocalImageStore{baseDir: baseDir}, nil
}

// Save writes the image to disk and returns its key
func (s *LocalImageStore) Save(ctx context.Context, data []byte, contentType string) (string, error) {
	key := newImageKey(contentType)
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return key, nil
}

// Open returns a reader over a stored image
func (s *LocalImageStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	// Reject keys that try to escape the base directory
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("invalid image key %q", key)
	}

	f, err := os.Open(filepath.Join(s.baseDir, clean))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return f, nil
}

// Delete removes a stored image. A missing file is not an error.
func (s *LocalImageStore) Delete(ctx context.Context, key string) error {
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return fmt.Errorf("invalid image key %q", key)
	}

	err := os.Remove(filepath.Join(s.baseDir, clean))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// S3ImageStore writes images to an S3-compatible bucket
type S3ImageStore struct {
	client *minio.Client
	bucket string
	region string
}

// NewS3ImageStore creates an S3-backed store and ensures its bucket exists
func NewS3ImageStore(cfg *config.Config) (*S3ImageStore, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	store := &S3ImageStore{client: client, bucket: cfg.S3Bucket, region: cfg.S3Region}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *S3ImageStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// Save uploads the image and returns its key
func (s *S3ImageStore) Save(ctx context.Context, data []byte, contentType string) (string, error) {
	key := newImageKey(contentType)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return key, nil
}

// Open returns a reader over a stored image
func (s *S3ImageStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return obj, nil
}

// Delete removes a stored image
func (s *S3ImageStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

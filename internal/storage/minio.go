// Package storage archives uploaded source images in MinIO (or any
// S3-compatible store) so an import can be audited later.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/shopdesk/catalog-service/internal/config"
)

// ErrNotConfigured is returned by New when no endpoint is configured.
var ErrNotConfigured = errors.New("object storage not configured")

// ImageStore uploads and serves archived images.
type ImageStore struct {
	client *minio.Client
	bucket string
	now    func() time.Time
}

// New connects to MinIO and checks the bucket exists.
func New(ctx context.Context, cfg config.StorageConfig) (*ImageStore, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNotConfigured
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.Bucket)
	}

	return &ImageStore{client: client, bucket: cfg.Bucket, now: time.Now}, nil
}

// ObjectName builds the archive path {kind}/YYYY/MM/{uuid}{ext}.
func ObjectName(kind string, at time.Time, contentType string) string {
	return fmt.Sprintf("%s/%d/%02d/%s%s",
		kind,
		at.Year(),
		at.Month(),
		uuid.NewString(),
		FileExtension(contentType),
	)
}

// Upload stores data under kind and returns the bucket-qualified path.
func (s *ImageStore) Upload(ctx context.Context, kind string, data []byte, contentType string) (string, error) {
	objectName := ObjectName(kind, s.now(), contentType)

	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return path.Join(s.bucket, objectName), nil
}

// PresignedURL returns a 24h URL for viewing an archived object.
func (s *ImageStore) PresignedURL(ctx context.Context, objectPath string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, s.objectName(objectPath), 24*time.Hour, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return u.String(), nil
}

// Open streams an archived object. The caller closes the reader.
func (s *ImageStore) Open(ctx context.Context, objectPath string) (io.ReadCloser, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectName(objectPath), minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get object: %w", err)
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, "", fmt.Errorf("failed to stat object: %w", err)
	}

	contentType := info.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = "image/jpeg"
	}
	return obj, contentType, nil
}

// Ping checks the bucket is still reachable.
func (s *ImageStore) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist", s.bucket)
	}
	return nil
}

// Delete removes an archived object.
func (s *ImageStore) Delete(ctx context.Context, objectPath string) error {
	return s.client.RemoveObject(ctx, s.bucket, s.objectName(objectPath), minio.RemoveObjectOptions{})
}

// objectName strips the bucket prefix if present.
func (s *ImageStore) objectName(objectPath string) string {
	return strings.TrimPrefix(objectPath, s.bucket+"/")
}

// FileExtension extracts file extension from content type
func FileExtension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/tiff":
		return ".tiff"
	case "text/csv":
		return ".csv"
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return ".xlsx"
	default:
		return ".bin"
	}
}

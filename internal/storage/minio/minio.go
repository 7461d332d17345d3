package minio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ulasari/RentalGo/internal/storage"
)

// Config holds the connection parameters for an S3-compatible endpoint.
type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// Storage implements storage.Storage against a MinIO/S3 bucket.
type Storage struct {
	bucket         string
	publicBaseURL  string
	client         *minio.Client
	logger         *slog.Logger
	bucketInitOnce sync.Once
	bucketInitErr  error
}

// New configures a MinIO-backed storage using the provided endpoint and
// credentials. The bucket is created lazily on first upload.
func New(cfg Config, logger *slog.Logger) (*Storage, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("minio: endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("minio: bucket is required")
	}

	client, err := minio.New(parseEndpoint(endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: create client: %w", err)
	}

	base := strings.TrimSpace(cfg.PublicBaseURL)
	if base == "" {
		base = endpoint
	}

	return &Storage{
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(base, "/"),
		client:        client,
		logger:        logger,
	}, nil
}

// Upload stores the blob and returns its key and public URL.
func (s *Storage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	if input == nil || input.Data == nil {
		return nil, errors.New("minio: upload data is required")
	}
	key := strings.Trim(strings.TrimSpace(input.Key), "/")
	if key == "" {
		return nil, errors.New("minio: object key is required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}

	contentType := input.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	size := input.Size
	if size <= 0 {
		size = -1
	}

	if _, err := s.client.PutObject(ctx, s.bucket, key, input.Data, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return nil, fmt.Errorf("minio: put object: %w", err)
	}

	result := &storage.UploadResult{Key: key, URL: s.objectURL(key)}
	s.logger.DebugContext(ctx, "blob uploaded",
		slog.String("bucket", s.bucket),
		slog.String("key", key),
	)
	return result, nil
}

// Move copies the blob to its new key and removes the source.
func (s *Storage) Move(ctx context.Context, fromKey, toKey string) error {
	src := minio.CopySrcOptions{Bucket: s.bucket, Object: fromKey}
	dst := minio.CopyDestOptions{Bucket: s.bucket, Object: toKey}
	if _, err := s.client.CopyObject(ctx, dst, src); err != nil {
		return fmt.Errorf("minio: copy object: %w", err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, fromKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio: remove source object: %w", err)
	}
	return nil
}

// Delete removes the blob from the bucket.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio: remove object: %w", err)
	}
	return nil
}

// GetURL returns the public URL for the given key. The bucket is made
// publicly readable on creation, so the URL is a direct object link.
func (s *Storage) GetURL(_ context.Context, key string) (string, error) {
	return s.objectURL(key), nil
}

func (s *Storage) ensureBucket(ctx context.Context) error {
	s.bucketInitOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.bucketInitErr = fmt.Errorf("minio: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			s.bucketInitErr = fmt.Errorf("minio: create bucket: %w", err)
			return
		}
		if err := s.allowPublicRead(ctx); err != nil {
			s.bucketInitErr = err
		}
	})
	return s.bucketInitErr
}

func (s *Storage) allowPublicRead(ctx context.Context) error {
	policy := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, s.bucket)
	if err := s.client.SetBucketPolicy(ctx, s.bucket, policy); err != nil {
		return fmt.Errorf("minio: set bucket policy: %w", err)
	}
	return nil
}

func (s *Storage) objectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, strings.TrimLeft(key, "/"))
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

var _ storage.Storage = (*Storage)(nil)

package storage

import (
	"context"
	"io"
)

// Storage defines the interface for blob storage operations. Property images
// are uploaded under a temporary key first and promoted once the database
// write commits.
type Storage interface {
	// Upload stores a blob and returns the result with key and URL.
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)

	// Move renames a blob. The source key disappears on success.
	Move(ctx context.Context, fromKey, toKey string) error

	// Delete removes a blob by its key.
	Delete(ctx context.Context, key string) error

	// GetURL returns the public URL for the given key.
	GetURL(ctx context.Context, key string) (string, error)
}

// UploadInput holds the parameters for uploading a blob.
type UploadInput struct {
	Key         string
	ContentType string
	Size        int64
	Data        io.Reader
}

// UploadResult holds the result of a successful upload.
type UploadResult struct {
	Key string
	URL string
}

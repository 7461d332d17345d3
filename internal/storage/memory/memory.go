package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ulasari/RentalGo/internal/storage"
)

// blobEntry stores metadata about an uploaded blob in memory.
type blobEntry struct {
	Key         string
	ContentType string
	Size        int64
	URL         string
}

// Storage implements storage.Storage using an in-memory map. It stores
// metadata only (no actual blob bytes) for testing purposes.
type Storage struct {
	mu      sync.RWMutex
	blobs   map[string]*blobEntry
	baseURL string
}

// New creates a new in-memory storage instance.
func New(baseURL string) *Storage {
	return &Storage{
		blobs:   make(map[string]*blobEntry),
		baseURL: baseURL,
	}
}

// Upload stores blob metadata in memory and returns the generated URL.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	url := fmt.Sprintf("%s/%s", s.baseURL, input.Key)
	s.blobs[input.Key] = &blobEntry{
		Key:         input.Key,
		ContentType: input.ContentType,
		Size:        input.Size,
		URL:         url,
	}

	return &storage.UploadResult{Key: input.Key, URL: url}, nil
}

// Move renames a stored blob.
func (s *Storage) Move(_ context.Context, fromKey, toKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.blobs[fromKey]
	if !exists {
		return fmt.Errorf("blob not found: %s", fromKey)
	}
	delete(s.blobs, fromKey)
	entry.Key = toKey
	entry.URL = fmt.Sprintf("%s/%s", s.baseURL, toKey)
	s.blobs[toKey] = entry
	return nil
}

// Delete removes blob metadata from memory.
func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.blobs[key]; !exists {
		return fmt.Errorf("blob not found: %s", key)
	}
	delete(s.blobs, key)
	return nil
}

// GetURL returns the URL for the given key.
func (s *Storage) GetURL(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.blobs[key]
	if !exists {
		return "", fmt.Errorf("blob not found: %s", key)
	}
	return entry.URL, nil
}

var _ storage.Storage = (*Storage)(nil)

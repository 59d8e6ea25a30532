package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStorage is an in-memory Storage used for tests and dev mode. Safe for
// concurrent use.
type MemoryStorage struct {
	files map[string]memoryFile
	mu    sync.RWMutex
}

type memoryFile struct {
	data        []byte
	contentType string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		files: make(map[string]memoryFile),
	}
}

var _ Storage = (*MemoryStorage)(nil)

func (s *MemoryStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return ErrInvalidKey
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read data: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.files[key] = memoryFile{data: data, contentType: contentType}
	return nil
}

func (s *MemoryStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, exists := s.files[key]
	if !exists {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(file.data)), nil
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.files[key]; !exists {
		return ErrNotFound
	}
	delete(s.files, key)
	return nil
}

func (s *MemoryStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.files[key]
	return exists, nil
}

func (s *MemoryStorage) GetPresignedURL(ctx context.Context, key string, expirySeconds int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.files[key]; !exists {
		return "", ErrNotFound
	}
	return fmt.Sprintf("http://memory-storage/%s?expires=%d", key, expirySeconds), nil
}

func (s *MemoryStorage) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

// Len reports the number of stored objects (test helper).
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

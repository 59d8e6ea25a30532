// Package cache holds processing results for the short window between job
// completion and client pickup. It replaces ad-hoc module-level maps with an
// injected key-value store carrying an explicit TTL, so entries survive being
// looked at from multiple handlers and nothing leaks past the eviction sweep.
package cache

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("cache: key not found")

// Entry is one cached processing result, keyed by content+options hash.
type Entry struct {
	Key         string    `json:"key"`
	StorageKey  string    `json:"storage_key"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Metadata    []byte    `json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Cache interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

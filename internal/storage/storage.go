// Package storage abstracts the blob store used for large-file handoff.
// Uploads and processing outputs live under derived keys; payloads are opaque
// media bytes.
package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound     = errors.New("storage: file not found")
	ErrInvalidKey   = errors.New("storage: invalid key")
	ErrAccessDenied = errors.New("storage: access denied")
)

type Storage interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	GetPresignedURL(ctx context.Context, key string, expirySeconds int) (string, error)
	HealthCheck(ctx context.Context) error
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

// Temp wraps a temporary artifact so release happens on every path: callers
// defer Dispose immediately after acquiring the handle instead of scattering
// best-effort deletes through the handlers.
type Temp struct {
	Key     string
	storage Storage
}

func NewTemp(s Storage, key string) *Temp {
	return &Temp{Key: key, storage: s}
}

// Dispose removes the artifact. Missing objects are not an error; anything
// else is returned for the caller to log.
func (t *Temp) Dispose(ctx context.Context) error {
	if t == nil || t.Key == "" {
		return nil
	}
	err := t.storage.Delete(ctx, t.Key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

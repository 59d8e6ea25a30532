package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestEntry(key string) *Entry {
	return &Entry{
		Key:         key,
		StorageKey:  "results/" + key + "/out.jpg",
		ContentType: "image/jpeg",
		Size:        1234,
		CreatedAt:   time.Now(),
	}
}

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache()
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	entry := newTestEntry("abc")
	if err := c.Set(ctx, "abc", entry, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := c.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.StorageKey != entry.StorageKey {
		t.Errorf("StorageKey = %q, want %q", got.StorageKey, entry.StorageKey)
	}
	if got.Size != 1234 {
		t.Errorf("Size = %d, want 1234", got.Size)
	}
}

func TestMemoryCache_Miss(t *testing.T) {
	c := NewMemoryCache()
	defer func() { _ = c.Close() }()

	_, err := c.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	c := NewMemoryCache()
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	if err := c.Set(ctx, "short", newTestEntry("short"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, err := c.Get(ctx, "short"); err != nil {
		t.Fatalf("Get() before expiry error = %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	if _, err := c.Get(ctx, "short"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after expiry = %v, want ErrNotFound", err)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	c := NewMemoryCache()
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "gone", newTestEntry("gone"), time.Minute)
	if err := c.Delete(ctx, "gone"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := c.Get(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete = %v, want ErrNotFound", err)
	}
}

func TestMemoryCache_OverwriteResetsTTL(t *testing.T) {
	c := NewMemoryCache()
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "k", newTestEntry("k"), 10*time.Millisecond)
	_ = c.Set(ctx, "k", newTestEntry("k"), time.Minute)

	time.Sleep(20 * time.Millisecond)

	if _, err := c.Get(ctx, "k"); err != nil {
		t.Errorf("Get() after overwrite = %v, want entry to survive", err)
	}
}

func TestMemoryCache_CloseTwice(t *testing.T) {
	c := NewMemoryCache()
	if err := c.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestMemoryCache_CanceledContext(t *testing.T) {
	c := NewMemoryCache()
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Set(ctx, "x", newTestEntry("x"), time.Minute); err == nil {
		t.Error("Set() with canceled context should fail")
	}
	if _, err := c.Get(ctx, "x"); err == nil {
		t.Error("Get() with canceled context should fail")
	}
}

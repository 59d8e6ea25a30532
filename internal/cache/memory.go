package cache

import (
	"context"
	"sync"
	"time"

	"github.com/bytepress/bytepress/internal/metrics"
)

// MemoryCache is an in-process Cache with TTL eviction. A background sweeper
// drops expired entries so the map does not grow unbounded between reads.
type MemoryCache struct {
	entries map[string]memoryEntry
	mu      sync.RWMutex
	done    chan struct{}
	once    sync.Once
}

type memoryEntry struct {
	entry     *Entry
	expiresAt time.Time
}

var _ Cache = (*MemoryCache)(nil)

const sweepInterval = time.Minute

func NewMemoryCache() *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]memoryEntry),
		done:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

func (c *MemoryCache) Get(ctx context.Context, key string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		metrics.CacheOperationsTotal.WithLabelValues("get", "miss").Inc()
		return nil, ErrNotFound
	}

	metrics.CacheOperationsTotal.WithLabelValues("get", "hit").Inc()
	return e.entry, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.entries[key] = memoryEntry{entry: entry, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()

	metrics.CacheOperationsTotal.WithLabelValues("set", "ok").Inc()
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *MemoryCache) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for key, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

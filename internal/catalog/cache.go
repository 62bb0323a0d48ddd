package catalog

import (
	"context"
	"sync"
	"time"
)

// Cache holds the latest Snapshot and reloads it after ttl.
type Cache struct {
	load func(ctx context.Context) (*Snapshot, error)
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	snap     *Snapshot
	loadedAt time.Time
}

func NewCache(load func(ctx context.Context) (*Snapshot, error), ttl time.Duration) *Cache {
	return &Cache{load: load, ttl: ttl, now: time.Now}
}

// Get returns the cached snapshot, loading a new one when stale.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap != nil && c.now().Sub(c.loadedAt) < c.ttl {
		return c.snap, nil
	}
	snap, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	c.snap, c.loadedAt = snap, c.now()
	return snap, nil
}

// Invalidate forces the next Get to reload.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
}

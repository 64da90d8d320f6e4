// Package assetcache deduplicates asset loads within one scene
// reconstruction.
package assetcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"vpc-scene/internal/asset"
)

// Cache is a concurrency-safe model cache keyed by source URI. At most one
// load is issued per key; concurrent callers share the in-flight load.
// Failures are cached too, so a bad key is not retried within the same
// cache. Create one Cache per reconstruction.
type Cache struct {
	loader asset.Loader
	group  singleflight.Group

	mu    sync.RWMutex
	items map[string]*cacheEntry
	loads atomic.Int64
}

type cacheEntry struct {
	model *asset.Model
	err   error
}

// New creates an empty cache backed by loader.
func New(loader asset.Loader) *Cache {
	return &Cache{
		loader: loader,
		items:  make(map[string]*cacheEntry),
	}
}

// Resolve returns the model for key, loading it on first use.
func (c *Cache) Resolve(ctx context.Context, key string) (*asset.Model, error) {
	// Fast path: read lock
	if e, ok := c.lookup(key); ok {
		return e.model, e.err
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A load may have completed between the fast path and Do.
		if e, ok := c.lookup(key); ok {
			return e.model, e.err
		}
		c.loads.Add(1)
		m, err := c.loader.Load(ctx, key)
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return nil, err
		}
		c.mu.Lock()
		c.items[key] = &cacheEntry{model: m, err: err}
		c.mu.Unlock()
		return m, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*asset.Model), nil
}

func (c *Cache) lookup(key string) (*cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	return e, ok
}

// Loads returns the number of loads issued so far.
func (c *Cache) Loads() int {
	return int(c.loads.Load())
}

// Len returns the number of settled keys.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

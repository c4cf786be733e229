// Package cache holds the process-scoped caches of the explorer: loaded
// tables by locator, and derived views by parameters.
package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"airbnb-explorer/metrics"
	"airbnb-explorer/models"
)

// Loader builds a Table for a locator.
type Loader interface {
	Load(ctx context.Context, locator string) (*models.Table, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, locator string) (*models.Table, error)

func (f LoaderFunc) Load(ctx context.Context, locator string) (*models.Table, error) {
	return f(ctx, locator)
}

// FetchCache loads each locator at most once. Concurrent first requests for
// the same locator share a single in-flight load. Failed loads are not
// remembered, so a later call tries again.
type FetchCache struct {
	loader Loader
	group  singleflight.Group

	mu     sync.RWMutex
	tables map[string]*models.Table
	gens   map[string]uint64 // bumped by Invalidate, per locator
}

// NewFetchCache creates an empty cache around loader.
func NewFetchCache(loader Loader) *FetchCache {
	return &FetchCache{
		loader: loader,
		tables: make(map[string]*models.Table),
		gens:   make(map[string]uint64),
	}
}

// GetOrLoad returns the cached table for locator, loading it if needed.
// ctx bounds only this caller's wait: the shared load is detached from any
// single caller's cancellation so other waiters are not failed by it.
func (c *FetchCache) GetOrLoad(ctx context.Context, locator string) (*models.Table, error) {
	if t, ok := c.lookup(locator); ok {
		metrics.CacheRequests.WithLabelValues("fetch", metrics.ResultHit).Inc()
		return t, nil
	}

	ch := c.group.DoChan(locator, func() (interface{}, error) {
		// A load that finished between lookup and DoChan is already stored.
		if t, ok := c.lookup(locator); ok {
			return t, nil
		}
		c.mu.RLock()
		gen := c.gens[locator]
		c.mu.RUnlock()

		t, err := c.loader.Load(context.WithoutCancel(ctx), locator)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		// An Invalidate of this locator during the load makes the result
		// stale for storage.
		if c.gens[locator] == gen {
			c.tables[locator] = t
		}
		c.mu.Unlock()
		return t, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		result := metrics.ResultMiss
		if res.Shared {
			result = metrics.ResultShared
		}
		metrics.CacheRequests.WithLabelValues("fetch", result).Inc()
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.Table), nil
	}
}

// Invalidate forgets the table for locator; the next GetOrLoad reloads it.
// A load already in flight is not interrupted.
func (c *FetchCache) Invalidate(locator string) {
	c.mu.Lock()
	delete(c.tables, locator)
	c.gens[locator]++
	c.mu.Unlock()
	c.group.Forget(locator)
	metrics.CacheResets.WithLabelValues("fetch").Inc()
}

// Len returns the number of cached tables.
func (c *FetchCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}

func (c *FetchCache) lookup(locator string) (*models.Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[locator]
	return t, ok
}

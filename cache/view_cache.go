package cache

import (
	"fmt"
	"reflect"
	"sync"

	"airbnb-explorer/apperrors"
	"airbnb-explorer/metrics"
)

// Key identifies a derived view: the operation and the parameters that
// produced it. Params must be comparable; keys compare structurally.
type Key struct {
	Op     string
	Params any
}

func (k Key) String() string {
	return fmt.Sprintf("%s%+v", k.Op, k.Params)
}

type entry struct {
	done chan struct{}
	val  any
	err  error
}

// ViewCache memoizes derived views for the lifetime of one source table.
// Each key is computed at most once at a time; concurrent requests for a key
// being computed wait for that result. Failed computations are dropped so
// the next request recomputes.
type ViewCache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	calls   int64
}

// NewViewCache creates an empty ViewCache.
func NewViewCache() *ViewCache {
	return &ViewCache{entries: make(map[Key]*entry)}
}

// ComputeOrFetch returns the cached value for key or runs compute once to
// produce it.
func ComputeOrFetch[V any](c *ViewCache, key Key, compute func() (V, error)) (V, error) {
	var zero V
	if key.Params != nil && !reflect.TypeOf(key.Params).Comparable() {
		return zero, apperrors.New(apperrors.KindInvalidArgument,
			"cache key params %T are not comparable", key.Params)
	}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		<-e.done
		if e.err != nil {
			return zero, e.err
		}
		metrics.CacheRequests.WithLabelValues("view", metrics.ResultHit).Inc()
		return typed[V](key, e.val)
	}
	e := &entry{done: make(chan struct{})}
	c.entries[key] = e
	c.calls++
	entries := c.entries
	c.mu.Unlock()

	metrics.CacheRequests.WithLabelValues("view", metrics.ResultMiss).Inc()
	func() {
		defer close(e.done)
		defer func() {
			if r := recover(); r != nil {
				e.err = fmt.Errorf("cache: computing %s panicked: %v", key, r)
			}
		}()
		e.val, e.err = compute()
	}()

	if e.err != nil {
		c.mu.Lock()
		// Only drop our own entry, and only from the generation it belongs to.
		if entries[key] == e {
			delete(entries, key)
		}
		c.mu.Unlock()
		return zero, e.err
	}
	return typed[V](key, e.val)
}

// typed asserts a cached value back to V. A key reused with another result
// type is an error, never a zero value.
func typed[V any](key Key, val any) (V, error) {
	if v, ok := val.(V); ok {
		return v, nil
	}
	var zero V
	want := reflect.TypeOf((*V)(nil)).Elem()
	if val == nil && want.Kind() == reflect.Interface {
		return zero, nil
	}
	return zero, apperrors.New(apperrors.KindInvalidArgument,
		"cached value for %s is %T, not %s", key, val, want)
}

// Reset discards every entry at once. Computations in flight finish into the
// discarded generation and are never served afterwards.
func (c *ViewCache) Reset() {
	c.mu.Lock()
	c.entries = make(map[Key]*entry)
	c.mu.Unlock()
	metrics.CacheResets.WithLabelValues("view").Inc()
}

// Len returns the number of cached or in-flight keys.
func (c *ViewCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Computations returns how many times a compute function has been started.
func (c *ViewCache) Computations() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

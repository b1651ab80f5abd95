package cache

import (
	"context"
	"strconv"
	"sync"

	csmap "github.com/mhmtszr/concurrent-swiss-map"

	"github.com/PenteractAI/python-practice-platform/internal/store"
)

// AssignmentCache is a read-through decorator over a store.AssignmentStore.
// Reads populate the cache keyed by method and arguments; Add flushes the
// whole cache, since an inserted assignment invalidates All and any
// ByOrder lookup that previously missed.
type AssignmentCache struct {
	inner store.AssignmentStore

	mu      sync.RWMutex
	entries *csmap.CsMap[string, any]
}

var _ store.AssignmentStore = (*AssignmentCache)(nil)

// NewAssignmentCache wraps an assignment store with an in-process cache.
func NewAssignmentCache(inner store.AssignmentStore) *AssignmentCache {
	return &AssignmentCache{inner: inner, entries: newEntries()}
}

func newEntries() *csmap.CsMap[string, any] {
	return csmap.Create[string, any](
		csmap.WithShardCount[string, any](16),
	)
}

func (c *AssignmentCache) lookup(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries.Load(key)
}

func (c *AssignmentCache) put(key string, v any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.entries.Store(key, v)
}

// Flush drops every cached entry.
func (c *AssignmentCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = newEntries()
}

// Len returns the number of cached entries.
func (c *AssignmentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries.Count()
}

func (c *AssignmentCache) Get(ctx context.Context, id int64) (store.Assignment, error) {
	key := "get/" + strconv.FormatInt(id, 10)
	if v, ok := c.lookup(key); ok {
		return v.(store.Assignment), nil
	}
	a, err := c.inner.Get(ctx, id)
	if err != nil {
		return store.Assignment{}, err
	}
	c.put(key, a)
	return a, nil
}

func (c *AssignmentCache) ByOrder(ctx context.Context, order int) (store.Assignment, error) {
	key := "byorder/" + strconv.Itoa(order)
	if v, ok := c.lookup(key); ok {
		return v.(store.Assignment), nil
	}
	a, err := c.inner.ByOrder(ctx, order)
	if err != nil {
		return store.Assignment{}, err
	}
	c.put(key, a)
	return a, nil
}

func (c *AssignmentCache) All(ctx context.Context) ([]store.Assignment, error) {
	const key = "all"
	if v, ok := c.lookup(key); ok {
		cached := v.([]store.Assignment)
		return append([]store.Assignment(nil), cached...), nil
	}
	out, err := c.inner.All(ctx)
	if err != nil {
		return nil, err
	}
	c.put(key, append([]store.Assignment(nil), out...))
	return out, nil
}

// Add writes through to the inner store and flushes the cache.
func (c *AssignmentCache) Add(ctx context.Context, a store.Assignment) (store.Assignment, error) {
	added, err := c.inner.Add(ctx, a)
	if err != nil {
		return store.Assignment{}, err
	}
	c.Flush()
	return added, nil
}

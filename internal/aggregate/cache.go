package aggregate

import (
	"context"
	"sync"
	"time"
)

/*
 * Fallback cache.
 *
 * Stores the last successfully collected payload per (source type,
 * identifier) so aggregation can degrade to stale data instead of failing
 * outright. The interface is satisfied by the in-memory implementation here
 * and by the sqlx-backed store in internal/core/db for deployments that want
 * fallback data to survive restarts.
 */

// CacheStats is an observability snapshot for get_health_status.
type CacheStats struct {
	Backend string
	Entries int
	Hits    int64
	Misses  int64
}

// Cache persists the most recent payload per source.
type Cache interface {
	Put(ctx context.Context, source SourceType, identifier string, data map[string]any) error
	Get(ctx context.Context, source SourceType, identifier string) (data map[string]any, storedAt time.Time, ok bool)
	Stats() CacheStats
}

type memoryEntry struct {
	data     map[string]any
	storedAt time.Time
}

// MemoryCache is the default in-process Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	hits    int64
	misses  int64
	now     func() time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]memoryEntry{}, now: time.Now}
}

func cacheKey(source SourceType, identifier string) string {
	return string(source) + "/" + identifier
}

// Put stores the payload, overwriting any previous entry for the source.
func (c *MemoryCache) Put(_ context.Context, source SourceType, identifier string, data map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(source, identifier)] = memoryEntry{data: data, storedAt: c.now()}
	return nil
}

// Get returns the last stored payload for the source, if any.
func (c *MemoryCache) Get(_ context.Context, source SourceType, identifier string) (map[string]any, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[cacheKey(source, identifier)]
	if !ok {
		c.misses++
		return nil, time.Time{}, false
	}
	c.hits++
	return entry.data, entry.storedAt, true
}

// Stats returns running cache counters.
func (c *MemoryCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Backend: "memory", Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}

package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hookwise/hookwise/internal/aggregate"
)

/*
 * Persistent fallback cache.
 *
 * aggregate.Cache implementation that survives restarts: one row per
 * (source type, identifier) holding the JSON-encoded payload and an RFC3339
 * timestamp. TEXT timestamps keep the schema identical across SQLite and
 * PostgreSQL.
 *
 * Schema bootstrap happens in NewCacheStore via the create-cache-table
 * named query; there is no migration runner.
 */

// CacheStore persists source payloads through sqlx named queries.
type CacheStore struct {
	q *Queries

	mu     sync.Mutex
	hits   int64
	misses int64
}

type cacheRow struct {
	Payload  string `db:"payload"`
	StoredAt string `db:"stored_at"`
}

// NewCacheStore wraps an open connection and bootstraps the cache schema.
func NewCacheStore(conn *sqlx.DB) (*CacheStore, error) {
	q, err := LoadQueries(conn)
	if err != nil {
		return nil, err
	}
	if _, err := q.Exec("create-cache-table"); err != nil {
		return nil, fmt.Errorf("failed to bootstrap cache schema: %w", err)
	}
	return &CacheStore{q: q}, nil
}

// Put stores the payload, replacing any previous entry for the source.
func (c *CacheStore) Put(_ context.Context, source aggregate.SourceType, identifier string, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	_, err = c.q.Exec("upsert-cache-entry",
		string(source), identifier, string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Get returns the last stored payload for the source, if any. Decode or
// query failures count as misses; the fallback path treats them as absence.
func (c *CacheStore) Get(_ context.Context, source aggregate.SourceType, identifier string) (map[string]any, time.Time, bool) {
	var row cacheRow
	if err := c.q.Get("get-cache-entry", &row, string(source), identifier); err != nil {
		// ErrNoRows and transport errors alike: the caller degrades gracefully.
		c.count(false)
		return nil, time.Time{}, false
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(row.Payload), &data); err != nil {
		c.count(false)
		return nil, time.Time{}, false
	}
	storedAt, err := time.Parse(time.RFC3339, row.StoredAt)
	if err != nil {
		storedAt = time.Time{}
	}

	c.count(true)
	return data, storedAt, true
}

// Stats returns running cache counters plus the row count.
func (c *CacheStore) Stats() aggregate.CacheStats {
	c.mu.Lock()
	hits, misses := c.hits, c.misses
	c.mu.Unlock()

	var entries int
	if err := c.q.Get("count-cache-entries", &entries); err != nil {
		entries = 0
	}
	return aggregate.CacheStats{Backend: "database", Entries: entries, Hits: hits, Misses: misses}
}

func (c *CacheStore) count(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

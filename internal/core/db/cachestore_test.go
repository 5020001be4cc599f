package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hookwise/hookwise/internal/aggregate"
)

func newTestStore(t *testing.T) *CacheStore {
	t.Helper()
	conn, err := Open("sqlite://" + filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	store, err := NewCacheStore(conn)
	if err != nil {
		t.Fatalf("NewCacheStore() error = %v", err)
	}
	return store
}

func TestCacheStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	payload := map[string]any{
		"commits": []any{map[string]any{"sha": "abc"}},
		"count":   float64(3),
	}
	if err := store.Put(ctx, aggregate.SourceGitHub, "gh-main", payload); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	data, storedAt, ok := store.Get(ctx, aggregate.SourceGitHub, "gh-main")
	if !ok {
		t.Fatal("Get() = miss, want hit")
	}
	if storedAt.IsZero() {
		t.Error("storedAt is zero, want the write timestamp")
	}
	if data["count"] != float64(3) {
		t.Errorf("count = %v, want 3", data["count"])
	}
	commits, ok := data["commits"].([]any)
	if !ok || len(commits) != 1 {
		t.Errorf("commits = %#v, want the stored list back", data["commits"])
	}
}

func TestCacheStore_PutReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Put(ctx, aggregate.SourceJira, "jira-main", map[string]any{"issues": []any{"old"}})
	store.Put(ctx, aggregate.SourceJira, "jira-main", map[string]any{"issues": []any{"new"}})

	data, _, ok := store.Get(ctx, aggregate.SourceJira, "jira-main")
	if !ok {
		t.Fatal("Get() = miss, want hit")
	}
	issues := data["issues"].([]any)
	if len(issues) != 1 || issues[0] != "new" {
		t.Errorf("issues = %v, want the replacement payload", issues)
	}

	if entries := store.Stats().Entries; entries != 1 {
		t.Errorf("Entries = %d, want 1 after upsert", entries)
	}
}

func TestCacheStore_MissAndStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, _, ok := store.Get(ctx, aggregate.SourceCalendar, "absent"); ok {
		t.Error("Get() on empty store = hit, want miss")
	}
	store.Put(ctx, aggregate.SourceCalendar, "cal-main", map[string]any{"events": []any{}})
	store.Get(ctx, aggregate.SourceCalendar, "cal-main")

	stats := store.Stats()
	if stats.Backend != "database" {
		t.Errorf("Backend = %q, want database", stats.Backend)
	}
	if stats.Hits != 1 || stats.Misses != 1 || stats.Entries != 1 {
		t.Errorf("Stats() = %+v, want 1 hit, 1 miss, 1 entry", stats)
	}
}

// The store satisfies the aggregate cache contract.
var _ aggregate.Cache = (*CacheStore)(nil)

func TestOpen_RejectsUnknownScheme(t *testing.T) {
	if _, err := Open("mysql://localhost/db"); err == nil {
		t.Error("Open() error = nil, want unsupported-scheme error")
	}
}

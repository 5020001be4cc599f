package rules

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hookwise/hookwise/internal/types"
)

/*
 * Rule configuration store.
 *
 * Loads one YAML rule document per team from a directory, parses it into a
 * TeamRuleSet, and caches the result with a TTL (default 300s). Two file
 * naming schemes are tried in order: <team_id>.yaml, then <team_id>_rules.yaml;
 * first found wins.
 *
 * Load never returns an error: a missing document, unreadable file, or parse
 * failure is logged and reported as nil so the caller can fail a single team
 * without affecting others.
 *
 * Concurrency: the mutex protects cache map integrity only. Concurrent
 * misses for the same team may redundantly reload the document; this is
 * tolerated rather than serialized (no single-flight).
 */

// DefaultCacheTTL is how long a parsed rule set stays fresh.
const DefaultCacheTTL = 300 * time.Second

type cacheEntry struct {
	set      *types.TeamRuleSet
	loadedAt time.Time
}

// Store loads and caches per-team rule sets.
type Store struct {
	dir string
	ttl time.Duration
	log *slog.Logger
	now func() time.Time

	mu     sync.Mutex
	cache  map[string]cacheEntry
	hits   int64
	misses int64
}

// NewStore creates a store reading documents from dir. A non-positive ttl
// falls back to DefaultCacheTTL; a nil logger falls back to slog.Default.
func NewStore(dir string, ttl time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:   dir,
		ttl:   ttl,
		log:   logger,
		now:   time.Now,
		cache: map[string]cacheEntry{},
	}
}

// Load returns the team's rule set, from cache when fresh. Returns nil when
// no document exists or parsing fails; the cause is logged, never raised.
func (s *Store) Load(teamID string) *types.TeamRuleSet {
	s.mu.Lock()
	if entry, ok := s.cache[teamID]; ok && s.now().Sub(entry.loadedAt) < s.ttl {
		s.hits++
		s.mu.Unlock()
		return entry.set
	}
	s.misses++
	s.mu.Unlock()

	set := s.loadFromDisk(teamID)
	if set == nil {
		return nil
	}

	s.mu.Lock()
	s.cache[teamID] = cacheEntry{set: set, loadedAt: s.now()}
	s.mu.Unlock()
	return set
}

func (s *Store) loadFromDisk(teamID string) *types.TeamRuleSet {
	candidates := []string{
		filepath.Join(s.dir, teamID+".yaml"),
		filepath.Join(s.dir, teamID+"_rules.yaml"),
	}

	var data []byte
	var path string
	for _, candidate := range candidates {
		b, err := os.ReadFile(candidate)
		if err == nil {
			data, path = b, candidate
			break
		}
		if !os.IsNotExist(err) {
			s.log.Warn("rule document unreadable", "team_id", teamID, "path", candidate, "error", err)
			return nil
		}
	}
	if path == "" {
		s.log.Debug("no rule document for team", "team_id", teamID)
		return nil
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		s.log.Warn("rule document malformed", "team_id", teamID, "path", path, "error", err)
		return nil
	}

	set, err := ParseDocument(doc)
	if err != nil {
		s.log.Warn("rule document rejected", "team_id", teamID, "path", path, "error", err)
		return nil
	}
	return set
}

// ClearCache evicts one team's entry, or every entry when teamID is empty.
func (s *Store) ClearCache(teamID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if teamID == "" {
		s.cache = map[string]cacheEntry{}
		return
	}
	delete(s.cache, teamID)
}

// Stats returns running cache hit/miss counters.
func (s *Store) Stats() (hits, misses int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.misses
}

// CachedTeams returns the team IDs currently held in cache.
func (s *Store) CachedTeams() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	teams := make([]string, 0, len(s.cache))
	for id := range s.cache {
		teams = append(teams, id)
	}
	return teams
}

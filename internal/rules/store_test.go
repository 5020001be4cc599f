package rules

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleDocYAML = `
team_id: engineering
team_name: Engineering Team
default_channels:
  StatusChangeHook: "#eng-status"
rules:
  - rule_id: high_priority_rule
    name: High Priority Issues
    hook_types: [StatusChangeHook]
    priority: 10
    conditions:
      logic: and
      conditions:
        - field: ticket.priority.name
          operator: in
          value: [High, Critical]
    metadata:
      channels: ["#alerts"]
      urgency_override: critical
`

func writeRuleDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestStore_LoadFilenameSchemes(t *testing.T) {
	tests := []struct {
		name     string
		filename string
	}{
		{name: "plain scheme", filename: "engineering.yaml"},
		{name: "suffixed scheme", filename: "engineering_rules.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeRuleDoc(t, dir, tt.filename, sampleDocYAML)

			store := NewStore(dir, time.Minute, nil)
			set := store.Load("engineering")
			if set == nil {
				t.Fatal("Load() = nil, want rule set")
			}
			if set.TeamID != "engineering" {
				t.Errorf("TeamID = %q, want engineering", set.TeamID)
			}
			if len(set.Rules) != 1 {
				t.Fatalf("len(Rules) = %d, want 1", len(set.Rules))
			}
			if set.Rules[0].RuleID != "high_priority_rule" {
				t.Errorf("RuleID = %q, want high_priority_rule", set.Rules[0].RuleID)
			}
		})
	}
}

func TestStore_PlainSchemeWins(t *testing.T) {
	dir := t.TempDir()
	writeRuleDoc(t, dir, "engineering.yaml", sampleDocYAML)
	writeRuleDoc(t, dir, "engineering_rules.yaml", `
team_id: engineering
team_name: Shadowed
rules: []
`)

	store := NewStore(dir, time.Minute, nil)
	set := store.Load("engineering")
	if set == nil {
		t.Fatal("Load() = nil, want rule set")
	}
	if set.TeamName != "Engineering Team" {
		t.Errorf("TeamName = %q, want the plain-scheme document to win", set.TeamName)
	}
}

func TestStore_CacheAndTTL(t *testing.T) {
	dir := t.TempDir()
	writeRuleDoc(t, dir, "engineering.yaml", sampleDocYAML)

	store := NewStore(dir, 300*time.Second, nil)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	if store.Load("engineering") == nil {
		t.Fatal("first Load() = nil")
	}
	if store.Load("engineering") == nil {
		t.Fatal("second Load() = nil")
	}
	hits, misses := store.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Stats() = (%d, %d), want (1, 1)", hits, misses)
	}

	// Within TTL the cached set survives even if the file disappears.
	if err := os.Remove(filepath.Join(dir, "engineering.yaml")); err != nil {
		t.Fatal(err)
	}
	if store.Load("engineering") == nil {
		t.Error("Load() within TTL = nil, want cached set")
	}

	// Past TTL the entry is stale; with the file gone the reload fails.
	clock = clock.Add(301 * time.Second)
	if set := store.Load("engineering"); set != nil {
		t.Errorf("Load() past TTL = %v, want nil after file removal", set)
	}
}

func TestStore_ClearCache(t *testing.T) {
	dir := t.TempDir()
	writeRuleDoc(t, dir, "engineering.yaml", sampleDocYAML)
	writeRuleDoc(t, dir, "platform.yaml", `
team_id: platform
team_name: Platform
rules: []
`)

	store := NewStore(dir, time.Hour, nil)
	store.Load("engineering")
	store.Load("platform")
	if got := len(store.CachedTeams()); got != 2 {
		t.Fatalf("CachedTeams() = %d entries, want 2", got)
	}

	store.ClearCache("engineering")
	teams := store.CachedTeams()
	if len(teams) != 1 || teams[0] != "platform" {
		t.Errorf("CachedTeams() after single clear = %v, want [platform]", teams)
	}

	store.ClearCache("")
	if got := len(store.CachedTeams()); got != 0 {
		t.Errorf("CachedTeams() after full clear = %d entries, want 0", got)
	}
}

func TestStore_FailuresYieldNil(t *testing.T) {
	dir := t.TempDir()
	writeRuleDoc(t, dir, "broken.yaml", "team_id: [not: valid: yaml")
	writeRuleDoc(t, dir, "incomplete.yaml", "team_name: No ID\nrules: []")

	store := NewStore(dir, time.Minute, nil)

	tests := []struct {
		name   string
		teamID string
	}{
		{name: "missing document", teamID: "nonexistent"},
		{name: "malformed yaml", teamID: "broken"},
		{name: "document missing team_id", teamID: "incomplete"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if set := store.Load(tt.teamID); set != nil {
				t.Errorf("Load(%q) = %v, want nil", tt.teamID, set)
			}
		})
	}

	// Failures are never cached.
	if got := len(store.CachedTeams()); got != 0 {
		t.Errorf("CachedTeams() = %d entries, want 0 after failed loads", got)
	}
}

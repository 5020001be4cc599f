package rules

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hookwise/hookwise/internal/types"
)

/*
 * Rule engine orchestration.
 *
 * EvaluateRules is the single entry point the event dispatcher calls per
 * webhook. Flow:
 *   1. Load the team's rule set from the store (TTL cache behind it)
 *   2. Filter to enabled rules intersecting the requested hook types
 *   3. Stable-sort by priority descending (document order breaks ties)
 *   4. Evaluate in order; first matching rule wins
 *   5. Derive routing: rule metadata channels, per-hook-type team defaults,
 *      general fallback when nothing else resolved, de-duplicated
 *
 * Error isolation: a single rule failing to evaluate (bad regex, malformed
 * node) is recorded in the result's error list and the scan continues with
 * the next candidate. The engine itself never fails or panics outward; a
 * recover at the boundary converts unexpected faults into an unmatched
 * result per the propagation policy.
 */

// Metrics is a snapshot of engine-wide counters.
type Metrics struct {
	EvaluationsCount int64
	CacheHits        int64
	CacheMisses      int64
	CacheHitRate     float64
	CachedTeams      int
	ValidationErrors int64
}

// Engine evaluates events against team rule sets.
type Engine struct {
	store *Store
	log   *slog.Logger

	mu               sync.Mutex
	evaluations      int64
	validationErrors int64
}

// NewEngine creates an engine backed by the given store.
func NewEngine(store *Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, log: logger}
}

// EvaluateRules evaluates the event against the team's rules and returns
// routing metadata for the first match. Never fails: degraded outcomes are
// signaled through Matched=false and the Errors list.
func (e *Engine) EvaluateRules(ev *types.Event, teamID string, hookTypes []types.HookType) (result types.EvaluationResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("rule evaluation panicked", "team_id", teamID, "panic", r)
			result = types.EvaluationResult{
				Errors: []string{fmt.Sprintf("evaluation failed: %v", r)},
			}
		}
		result.EvaluationTimeMS = float64(time.Since(start).Microseconds()) / 1000.0
	}()

	e.mu.Lock()
	e.evaluations++
	e.mu.Unlock()

	set := e.store.Load(teamID)
	if set == nil {
		return types.EvaluationResult{
			Errors: []string{fmt.Sprintf("no rule set for team %q", teamID)},
		}
	}
	if !set.Enabled {
		return types.EvaluationResult{
			Errors: []string{fmt.Sprintf("rule set for team %q is disabled", teamID)},
		}
	}

	candidates := filterRules(set.Rules, hookTypes)
	// Stable sort: equal-priority rules keep document order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority > candidates[j].Priority
	})

	var errs []string
	for i := range candidates {
		rule := &candidates[i]
		matched, err := EvaluateNode(rule.Conditions, ev)
		if err != nil {
			errs = append(errs, fmt.Sprintf("rule %q: %v", rule.RuleID, err))
			e.log.Warn("rule evaluation error", "team_id", teamID, "rule_id", rule.RuleID, "error", err)
			continue
		}
		if matched {
			return e.buildMatch(rule, set, errs)
		}
	}

	return types.EvaluationResult{
		Metadata: map[string]any{"evaluated_rules": len(candidates)},
		Errors:   errs,
	}
}

// filterRules keeps enabled rules that subscribe to at least one of the
// requested hook types. A nil request keeps every enabled rule.
func filterRules(rules []types.Rule, hookTypes []types.HookType) []types.Rule {
	out := make([]types.Rule, 0, len(rules))
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if hookTypes != nil && !intersects(rule.HookTypes, hookTypes) {
			continue
		}
		out = append(out, rule)
	}
	return out
}

func intersects(a, b []types.HookType) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func (e *Engine) buildMatch(rule *types.Rule, set *types.TeamRuleSet, errs []string) types.EvaluationResult {
	result := types.EvaluationResult{
		Matched:   true,
		RuleID:    rule.RuleID,
		RuleName:  rule.Name,
		HookTypes: rule.HookTypes,
		Channels:  resolveChannels(rule, set),
		Metadata:  rule.Metadata,
		Errors:    errs,
	}
	if urgency, ok := rule.UrgencyOverride(); ok {
		result.UrgencyOverride = urgency
	}
	return result
}

// resolveChannels unions the rule's own channels with the team default for
// each of the rule's hook types. Only when nothing resolves at all does the
// team's "general" default apply. Order-preserving de-duplication.
func resolveChannels(rule *types.Rule, set *types.TeamRuleSet) []string {
	channels := rule.Channels()
	for _, hook := range rule.HookTypes {
		if ch, ok := set.DefaultChannels[hook]; ok && ch != "" {
			channels = append(channels, ch)
		}
	}
	if len(channels) == 0 {
		if ch, ok := set.DefaultChannels["general"]; ok && ch != "" {
			channels = append(channels, ch)
		}
	}

	seen := make(map[string]bool, len(channels))
	deduped := channels[:0]
	for _, ch := range channels {
		if !seen[ch] {
			seen[ch] = true
			deduped = append(deduped, ch)
		}
	}
	return deduped
}

// LoadTeamRules exposes the store's view of one team, nil when absent.
func (e *Engine) LoadTeamRules(teamID string) *types.TeamRuleSet {
	return e.store.Load(teamID)
}

// ValidateRuleSyntax statically checks a candidate document and counts
// failed validations toward engine metrics.
func (e *Engine) ValidateRuleSyntax(doc map[string]any) ValidationResult {
	res := Validate(doc)
	if !res.Valid {
		e.mu.Lock()
		e.validationErrors++
		e.mu.Unlock()
	}
	return res
}

// ClearCache evicts one team's cached rule set, or all when teamID is empty.
func (e *Engine) ClearCache(teamID string) {
	e.store.ClearCache(teamID)
}

// GetMetrics returns a snapshot of engine counters.
func (e *Engine) GetMetrics() Metrics {
	e.mu.Lock()
	evaluations, validationErrors := e.evaluations, e.validationErrors
	e.mu.Unlock()

	hits, misses := e.store.Stats()
	var hitRate float64
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses)
	}
	return Metrics{
		EvaluationsCount: evaluations,
		CacheHits:        hits,
		CacheMisses:      misses,
		CacheHitRate:     hitRate,
		CachedTeams:      len(e.store.CachedTeams()),
		ValidationErrors: validationErrors,
	}
}

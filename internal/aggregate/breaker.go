package aggregate

import (
	"context"
	"sync"
	"time"

	"github.com/hookwise/hookwise/internal/types"
)

/*
 * Data source registry state and circuit breaker.
 *
 * Each registered source carries its own breaker state; no cross-source
 * locking. State machine per source:
 *
 *   closed -> open       after threshold consecutive failures (default 5)
 *   open -> half_open    once recovery timeout elapses (default 60s); the
 *                        transition happens lazily inside Check
 *   half_open -> closed  on the next recorded success (failure count resets)
 *   half_open failure    keeps counting; the count is already at or past the
 *                        threshold, so the source trips straight back to open
 *
 * Check returns false only while strictly open with the recovery timeout not
 * yet elapsed; half_open lets exactly the probing call through.
 */

// SourceType identifies the kind of external collaborator behind a source.
type SourceType string

const (
	SourceGitHub      SourceType = "github"
	SourceJira        SourceType = "jira"
	SourceTeamMetrics SourceType = "team_metrics"
	SourceCalendar    SourceType = "calendar"
	SourceCustom      SourceType = "custom"
)

// BreakerState is the circuit state of one data source.
type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half_open"
)

// Breaker defaults.
const (
	DefaultFailureThreshold = 5
	DefaultRecoveryTimeout  = 60 * time.Second
)

// Collector is the handle to one external data source. Implementations live
// outside this module (GitHub/JIRA/calendar clients); the aggregator only
// needs this single blocking call.
type Collector interface {
	Collect(ctx context.Context, teamID string, window types.DateRange) (map[string]any, error)
}

// DataSource is one registered collaborator plus its breaker state.
// The mutex guards breaker fields; every collection attempt mutates them.
type DataSource struct {
	Type       SourceType
	Identifier string
	Handle     Collector
	Config     map[string]any

	mu           sync.Mutex
	state        BreakerState
	failureCount int
	lastFailure  time.Time
	lastSuccess  time.Time
}

// State returns the current circuit state.
func (s *DataSource) State() BreakerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == "" {
		return StateClosed
	}
	return s.state
}

// FailureCount returns the rolling consecutive-failure count.
func (s *DataSource) FailureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failureCount
}

// LastSuccess returns the time of the last successful collection.
func (s *DataSource) LastSuccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSuccess
}

// LastFailure returns the time of the last failed collection.
func (s *DataSource) LastFailure() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFailure
}

// Breaker applies the shared threshold/timeout policy to per-source state.
type Breaker struct {
	threshold int
	recovery  time.Duration
	now       func() time.Time
}

// NewBreaker creates a breaker policy. Non-positive arguments fall back to
// the defaults.
func NewBreaker(threshold int, recovery time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if recovery <= 0 {
		recovery = DefaultRecoveryTimeout
	}
	return &Breaker{threshold: threshold, recovery: recovery, now: time.Now}
}

// Check reports whether a collection attempt is currently allowed.
// An open circuit transitions to half_open once the recovery timeout has
// elapsed, letting the probing call through.
func (b *Breaker) Check(src *DataSource) bool {
	src.mu.Lock()
	defer src.mu.Unlock()

	if src.state != StateOpen {
		return true
	}
	if b.now().Sub(src.lastFailure) >= b.recovery {
		src.state = StateHalfOpen
		return true
	}
	return false
}

// RecordOutcome folds one collection outcome into the source's state.
// Success closes the circuit and resets the failure count; failure counts
// toward the threshold (the count is not reset by the half_open transition).
func (b *Breaker) RecordOutcome(src *DataSource, success bool) {
	src.mu.Lock()
	defer src.mu.Unlock()

	if success {
		src.state = StateClosed
		src.failureCount = 0
		src.lastSuccess = b.now()
		return
	}

	src.failureCount++
	src.lastFailure = b.now()
	if src.failureCount >= b.threshold {
		src.state = StateOpen
	}
}

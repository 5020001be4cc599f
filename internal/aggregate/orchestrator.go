// Package aggregate implements the parallel data aggregation engine:
// per-source circuit breakers, bounded-backoff retries, quality scoring,
// confidence-weighted conflict resolution, and cached-fallback degradation.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hookwise/hookwise/internal/types"
)

/*
 * Aggregation orchestration.
 *
 * AggregateData launches one collection task per matching registered source
 * and waits for all of them to settle; a timeout or failure in one task
 * never cancels its siblings. Failed collections are logged and discarded.
 * Survivors below the quality threshold are dropped, but if nothing clears
 * the bar the single best-scoring collection is kept rather than returning
 * nothing. Disagreements between same-type sources go through conflict
 * resolution. If no live collection succeeded at all, the result is built
 * from cached payloads and flagged fallback_data_used with a fixed
 * low-quality score.
 *
 * Sources that failed live collection but have cached data still contribute
 * their cached payload to the result; they are not counted in
 * data_sources_used and do not flip the fallback flag.
 */

// DefaultMinQuality is the default quality threshold for survivors.
const DefaultMinQuality = 0.5

// FallbackQualityScore is the fixed overall quality reported when the
// result was assembled entirely from cache.
const FallbackQualityScore = 0.3

// defaultConfidence applies to sources that do not declare one in config.
const defaultConfidence = 0.8

// Options configures the aggregation engine.
type Options struct {
	FailureThreshold  int
	RecoveryTimeout   time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	BackoffFactor     float64
	CollectionTimeout time.Duration
	MaxDataAge        time.Duration
}

// AggregatedData is the final output of one AggregateData call.
type AggregatedData struct {
	TeamID            string
	Data              map[SourceType]map[string]any
	OverallQuality    float64
	DataSourcesUsed   []string
	ConflictsResolved []string
	FallbackUsed      bool
	GeneratedAt       time.Time
}

// SourceHealth is one source's breaker snapshot for health reporting.
type SourceHealth struct {
	State        BreakerState
	FailureCount int
	LastSuccess  time.Time
	LastFailure  time.Time
}

// HealthStatus is the aggregator's observability snapshot.
type HealthStatus struct {
	Status  string
	Sources map[string]SourceHealth
	Cache   CacheStats
}

// Aggregator runs collection across registered sources.
type Aggregator struct {
	breaker  *Breaker
	retrier  *Retrier
	assessor *Assessor
	cache    Cache
	log      *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	sources []*DataSource
}

// NewAggregator creates an aggregator. A nil cache gets an in-memory one; a
// nil logger falls back to slog.Default.
func NewAggregator(opts Options, cache Cache, logger *slog.Logger) *Aggregator {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	breaker := NewBreaker(opts.FailureThreshold, opts.RecoveryTimeout)
	return &Aggregator{
		breaker:  breaker,
		retrier:  NewRetrier(opts.MaxRetries, opts.RetryDelay, opts.BackoffFactor, opts.CollectionTimeout, breaker),
		assessor: NewAssessor(opts.MaxDataAge),
		cache:    cache,
		log:      logger,
		now:      time.Now,
	}
}

// RegisterDataSource adds one external collaborator. The (type, identifier)
// pair must be unique.
func (a *Aggregator) RegisterDataSource(st SourceType, identifier string, handle Collector, config map[string]any) error {
	if handle == nil {
		return fmt.Errorf("handle cannot be nil")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, src := range a.sources {
		if src.Type == st && src.Identifier == identifier {
			return fmt.Errorf("%w: %s/%s", types.ErrSourceExists, st, identifier)
		}
	}
	a.sources = append(a.sources, &DataSource{
		Type:       st,
		Identifier: identifier,
		Handle:     handle,
		Config:     config,
		state:      StateClosed,
	})
	return nil
}

// AggregateData collects from every matching source in parallel and merges
// the survivors. Always returns a structurally valid result; degradation is
// signaled through FallbackUsed and an empty DataSourcesUsed.
func (a *Aggregator) AggregateData(ctx context.Context, teamID string, window types.DateRange, sourceTypes []SourceType, minQuality float64) AggregatedData {
	if minQuality <= 0 {
		minQuality = DefaultMinQuality
	}
	selected := a.selectSources(sourceTypes)

	collected := make([]*CollectedData, len(selected))
	var wg sync.WaitGroup
	for i, src := range selected {
		wg.Add(1)
		go func(i int, src *DataSource) {
			defer wg.Done()
			data, err := a.retrier.Call(ctx, src, teamID, window)
			if err != nil {
				a.log.Warn("collection failed", "source", src.Type, "identifier", src.Identifier, "error", err)
				return
			}
			cd := &CollectedData{
				SourceType:       src.Type,
				SourceIdentifier: src.Identifier,
				Data:             data,
				CollectedAt:      a.now(),
				Confidence:       sourceConfidence(src),
			}
			cd.Quality = a.assessor.Assess(cd)
			collected[i] = cd
			if err := a.cache.Put(ctx, src.Type, src.Identifier, data); err != nil {
				a.log.Warn("cache write failed", "source", src.Type, "identifier", src.Identifier, "error", err)
			}
		}(i, src)
	}
	wg.Wait()

	survivors := make([]*CollectedData, 0, len(collected))
	for _, cd := range collected {
		if cd != nil {
			survivors = append(survivors, cd)
		}
	}

	if len(survivors) == 0 {
		return a.fallbackResult(ctx, teamID, selected)
	}

	filtered := make([]*CollectedData, 0, len(survivors))
	for _, cd := range survivors {
		if cd.Quality.OverallScore >= minQuality {
			filtered = append(filtered, cd)
		}
	}
	if len(filtered) == 0 {
		// Nothing cleared the bar: keep the single best-scoring collection.
		best := survivors[0]
		for _, cd := range survivors[1:] {
			if cd.Quality.OverallScore > best.Quality.OverallScore {
				best = cd
			}
		}
		filtered = []*CollectedData{best}
	}

	resolved, conflicts := ResolveConflicts(filtered)

	result := AggregatedData{
		TeamID:            teamID,
		Data:              resolved,
		OverallQuality:    overallQuality(filtered),
		ConflictsResolved: conflicts,
		GeneratedAt:       a.now(),
	}
	for _, cd := range filtered {
		result.DataSourcesUsed = append(result.DataSourcesUsed, cd.SourceIdentifier)
	}

	// Sources that failed live collection still contribute cached payloads
	// without counting as used or flipping the fallback flag.
	for _, src := range selected {
		if _, ok := result.Data[src.Type]; ok {
			continue
		}
		if data, _, ok := a.cache.Get(ctx, src.Type, src.Identifier); ok {
			result.Data[src.Type] = data
		}
	}

	return result
}

// fallbackResult assembles a degraded result from whatever cached data
// remains after every live collection failed.
func (a *Aggregator) fallbackResult(ctx context.Context, teamID string, selected []*DataSource) AggregatedData {
	result := AggregatedData{
		TeamID:       teamID,
		Data:         map[SourceType]map[string]any{},
		FallbackUsed: true,
		GeneratedAt:  a.now(),
	}
	for _, src := range selected {
		if _, ok := result.Data[src.Type]; ok {
			continue
		}
		if data, _, ok := a.cache.Get(ctx, src.Type, src.Identifier); ok {
			result.Data[src.Type] = data
		}
	}
	if len(result.Data) > 0 {
		result.OverallQuality = FallbackQualityScore
	}
	a.log.Warn("aggregation degraded to cached data", "team_id", teamID, "cached_sources", len(result.Data))
	return result
}

func (a *Aggregator) selectSources(sourceTypes []SourceType) []*DataSource {
	a.mu.Lock()
	defer a.mu.Unlock()
	if sourceTypes == nil {
		return append([]*DataSource(nil), a.sources...)
	}
	var out []*DataSource
	for _, src := range a.sources {
		for _, st := range sourceTypes {
			if src.Type == st {
				out = append(out, src)
				break
			}
		}
	}
	return out
}

// GetHealthStatus reports breaker state per source plus cache counters.
func (a *Aggregator) GetHealthStatus() HealthStatus {
	a.mu.Lock()
	sources := append([]*DataSource(nil), a.sources...)
	a.mu.Unlock()

	status := HealthStatus{
		Status:  "healthy",
		Sources: make(map[string]SourceHealth, len(sources)),
		Cache:   a.cache.Stats(),
	}

	open := 0
	for _, src := range sources {
		state := src.State()
		if state != StateClosed {
			open++
		}
		status.Sources[string(src.Type)+"/"+src.Identifier] = SourceHealth{
			State:        state,
			FailureCount: src.FailureCount(),
			LastSuccess:  src.LastSuccess(),
			LastFailure:  src.LastFailure(),
		}
	}
	switch {
	case len(sources) > 0 && open == len(sources):
		status.Status = "unhealthy"
	case open > 0:
		status.Status = "degraded"
	}
	return status
}

// overallQuality is the confidence-weighted average of survivor scores.
func overallQuality(items []*CollectedData) float64 {
	var weighted, confidence float64
	for _, cd := range items {
		weighted += cd.Quality.OverallScore * cd.Confidence
		confidence += cd.Confidence
	}
	if confidence == 0 {
		var sum float64
		for _, cd := range items {
			sum += cd.Quality.OverallScore
		}
		return sum / float64(len(items))
	}
	return weighted / confidence
}

func sourceConfidence(src *DataSource) float64 {
	if v, ok := src.Config["confidence"]; ok {
		if f, ok := asFloat(v); ok && f >= 0 && f <= 1 {
			return f
		}
	}
	return defaultConfidence
}

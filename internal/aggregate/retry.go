package aggregate

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hookwise/hookwise/internal/types"
)

/*
 * Retry coordination.
 *
 * Wraps one source's collection call with bounded exponential backoff while
 * respecting the circuit breaker. Each attempt first consults the breaker: a
 * disallowed call fails immediately with ErrCircuitOpen without consuming a
 * retry. Allowed attempts run under their own timeout; every outcome is
 * recorded against the breaker. Delay before attempt n+1 is
 * delay * backoff^n. After the final attempt, the last error is returned.
 */

// Retry defaults.
const (
	DefaultMaxRetries        = 3
	DefaultRetryDelay        = time.Second
	DefaultBackoffFactor     = 2.0
	DefaultCollectionTimeout = 30 * time.Second
)

// Retrier coordinates retries for collection calls.
type Retrier struct {
	maxRetries int
	delay      time.Duration
	backoff    float64
	timeout    time.Duration
	breaker    *Breaker
	sleep      func(time.Duration)
}

// NewRetrier creates a retry coordinator bound to a breaker policy.
// Non-positive arguments fall back to the defaults.
func NewRetrier(maxRetries int, delay time.Duration, backoff float64, timeout time.Duration, breaker *Breaker) *Retrier {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	if backoff <= 0 {
		backoff = DefaultBackoffFactor
	}
	if timeout <= 0 {
		timeout = DefaultCollectionTimeout
	}
	return &Retrier{
		maxRetries: maxRetries,
		delay:      delay,
		backoff:    backoff,
		timeout:    timeout,
		breaker:    breaker,
		sleep:      time.Sleep,
	}
}

// Call collects from the source with retries. Returns the collected payload,
// or the last error once retries are exhausted, or ErrCircuitOpen when the
// breaker refuses the attempt.
func (r *Retrier) Call(ctx context.Context, src *DataSource, teamID string, window types.DateRange) (map[string]any, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		if !r.breaker.Check(src) {
			return nil, fmt.Errorf("%w: %s/%s", types.ErrCircuitOpen, src.Type, src.Identifier)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		data, err := src.Handle.Collect(attemptCtx, teamID, window)
		cancel()

		if err == nil {
			r.breaker.RecordOutcome(src, true)
			return data, nil
		}

		r.breaker.RecordOutcome(src, false)
		lastErr = err

		if attempt+1 < r.maxRetries {
			r.sleep(time.Duration(float64(r.delay) * math.Pow(r.backoff, float64(attempt))))
		}
	}

	return nil, lastErr
}

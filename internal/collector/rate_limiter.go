package collector

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/harvestkit/bucket-harvest/internal/logging"
)

const (
	// githubRateLimit is the authenticated hourly quota.
	githubRateLimit = 5000

	// proactiveRate keeps sustained throughput under the hourly quota
	// even before the first response headers arrive (~4320 req/hr).
	proactiveRate = 1.2

	// minRemaining is the reserve below which callers wait for the reset.
	minRemaining = 10

	// minDelay is the process-wide floor between any two requests,
	// independent of per-page retry backoff.
	minDelay = 200 * time.Millisecond
)

// RateLimiter manages GitHub API request pacing shared by all workers.
type RateLimiter interface {
	Wait(ctx context.Context) error
	UpdateLimit(remaining int, resetTime time.Time)
	CheckLimit() (remaining int, resetTime time.Time)
}

// githubRateLimiter combines a proactive token bucket with reactive
// header-driven state. One instance is shared by every concurrent caller;
// the mutex guards remaining/resetTime and the last-request timestamp.
type githubRateLimiter struct {
	mu        sync.Mutex
	remaining int
	resetTime time.Time
	lastCall  time.Time
	bucket    *rate.Limiter
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter() RateLimiter {
	return &githubRateLimiter{
		remaining: githubRateLimit,
		resetTime: time.Now().Add(time.Hour),
		bucket:    rate.NewLimiter(rate.Limit(proactiveRate), 1),
	}
}

// Wait blocks until it's safe to make another API call
func (r *githubRateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Wait out the quota reset when the reserve is exhausted.
	if r.remaining <= minRemaining {
		waitDuration := time.Until(r.resetTime)
		if waitDuration > 0 {
			logger := logging.NewLogger("ratelimit")
			logger.Warn().
				Int("remaining", r.remaining).
				Dur("wait", waitDuration.Round(time.Second)).
				Msg("rate limit reserve low, waiting for reset")
			r.mu.Unlock()
			select {
			case <-ctx.Done():
				r.mu.Lock()
				return ctx.Err()
			case <-time.After(waitDuration):
				r.mu.Lock()
			}
		}
		r.remaining = githubRateLimit
		r.resetTime = time.Now().Add(time.Hour)
	}

	// Enforce the minimum inter-request delay.
	elapsed := time.Since(r.lastCall)
	if elapsed < minDelay {
		r.mu.Unlock()
		select {
		case <-ctx.Done():
			r.mu.Lock()
			return ctx.Err()
		case <-time.After(minDelay - elapsed):
			r.mu.Lock()
		}
	}

	r.lastCall = time.Now()
	return nil
}

// UpdateLimit updates the rate limit from API response headers
func (r *githubRateLimiter) UpdateLimit(remaining int, resetTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remaining = remaining
	if !resetTime.IsZero() {
		r.resetTime = resetTime
	}
}

// CheckLimit returns the current rate limit status
func (r *githubRateLimiter) CheckLimit() (remaining int, resetTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining, r.resetTime
}

package collector

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v55/github"

	apperrors "github.com/harvestkit/bucket-harvest/internal/errors"
)

const (
	// maxAttempts bounds retries of transient failures per fetch unit.
	maxAttempts = 3

	// transientBackoff is the base delay between transient retries.
	transientBackoff = 2 * time.Second

	// minRateLimitWait is the floor applied to any computed reset wait.
	minRateLimitWait = 60 * time.Second
)

// classify maps a go-github error to the application error taxonomy.
// Rate limiting is detected structurally (typed errors carrying reset
// headers); the body-substring check is kept only as a last resort for
// proxies that strip the headers, and is fragile by nature.
func (c *githubCollector) classify(err error) error {
	if rateErr, ok := err.(*github.RateLimitError); ok {
		wait := time.Until(rateErr.Rate.Reset.Time)
		if wait < c.rateLimitFloor {
			wait = c.rateLimitFloor
		}
		return apperrors.NewRateLimitedError("primary rate limit exceeded", wait)
	}

	if abuseErr, ok := err.(*github.AbuseRateLimitError); ok {
		wait := c.rateLimitFloor
		if abuseErr.RetryAfter != nil && *abuseErr.RetryAfter > wait {
			wait = *abuseErr.RetryAfter
		}
		return apperrors.NewRateLimitedError("secondary rate limit exceeded", wait)
	}

	if respErr, ok := err.(*github.ErrorResponse); ok {
		switch respErr.Response.StatusCode {
		case http.StatusNotFound:
			resource := "resource"
			if respErr.Response.Request != nil && respErr.Response.Request.URL != nil {
				resource = respErr.Response.Request.URL.Path
			}
			return apperrors.NewNotFoundError(resource)
		case http.StatusForbidden:
			if strings.Contains(strings.ToLower(respErr.Message), "rate limit") {
				return apperrors.NewRateLimitedError("rate limit reported without reset header", c.rateLimitFloor)
			}
		}
		return apperrors.NewTransientError(
			fmt.Sprintf("unexpected status %d", respErr.Response.StatusCode), err)
	}

	// Network errors, timeouts, malformed responses.
	return apperrors.NewTransientError("request failed", err)
}

// withRetry issues one rate-limited API call and retries it per the
// taxonomy: not-found is terminal, rate limiting always waits out the
// computed reset and retries the same call, transient failures retry up
// to maxAttempts with backoff. Re-fetching a page is idempotent, so
// retries are safe.
func (c *githubCollector) withRetry(ctx context.Context, op string, call func() (*github.Response, error)) error {
	attempts := 0

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return err
		}

		resp, err := call()
		if resp != nil && resp.Rate.Limit > 0 {
			c.rateLimiter.UpdateLimit(resp.Rate.Remaining, resp.Rate.Reset.Time)
		}
		if err == nil {
			return nil
		}

		cerr := c.classify(err)

		if wait, ok := apperrors.RateLimitWait(cerr); ok {
			c.log.Warn().
				Str("op", op).
				Dur("wait", wait.Round(time.Second)).
				Msg("rate limit hit, waiting until reset")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		if apperrors.IsTransient(cerr) {
			attempts++
			if attempts >= maxAttempts {
				return cerr
			}
			backoff := time.Duration(attempts) * c.retryBackoff
			c.log.Warn().
				Str("op", op).
				Err(err).
				Int("attempt", attempts+1).
				Int("max_attempts", maxAttempts).
				Dur("backoff", backoff).
				Msg("transient error, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			continue
		}

		// Not-found and anything else terminal.
		return cerr
	}
}

package azdo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// apiError is an upstream HTTP error response. It carries the status code so
// the retry classifier can distinguish transient from fatal failures.
type apiError struct {
	StatusCode int
	URL        string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api request %s failed with status %d", e.URL, e.StatusCode)
}

// Retryer wraps a single remote call with exponential backoff and jitter.
// Error classification lives here and nowhere else: callers never
// re-implement retry policy.
type Retryer struct {
	limiter     *RateLimiter
	maxRetries  int
	minInterval time.Duration
	maxInterval time.Duration
}

// NewRetryer creates a Retryer that acquires a rate-limit token before every
// attempt and retries up to maxRetries times beyond the first attempt, with
// backoff growing from 1s toward a 30s cap.
func NewRetryer(limiter *RateLimiter, maxRetries int) *Retryer {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Retryer{
		limiter:     limiter,
		maxRetries:  maxRetries,
		minInterval: time.Second,
		maxInterval: 30 * time.Second,
	}
}

// Execute runs op, retrying transient failures. HTTP 429 and 5xx responses
// and network-class errors retry; HTTP 400, 401, 403, and 404 abort
// immediately. After retries exhaust, the original error propagates.
func (r *Retryer) Execute(ctx context.Context, operation string, op func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.minInterval
	b.MaxInterval = r.maxInterval
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.maxRetries)), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		if err := r.limiter.Acquire(ctx); err != nil {
			return backoff.Permanent(err)
		}

		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return backoff.Permanent(err)
		}

		slog.Warn("retryable failure",
			"operation", operation,
			"attempt", attempt,
			"error", err,
		)
		return err
	}, policy)
}

// isRetryable classifies an error as transient. HTTP 429 and 5xx are
// retryable; other HTTP statuses are fatal. Network-class errors (timeouts,
// connection reset/refused, unknown host) are retryable.
func isRetryable(err error) bool {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := err.Error()
	for _, transient := range []string{
		"connection reset",
		"connection refused",
		"no such host",
		"timeout",
		"timed out",
		"EOF",
	} {
		if strings.Contains(msg, transient) {
			return true
		}
	}

	return false
}

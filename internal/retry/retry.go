package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/amishk599/jobsweep/internal/model"
)

var _ model.Connector = (*Connector)(nil)

// Connector retries transient search failures with exponential backoff and
// jitter before giving up on the wrapped connector.
type Connector struct {
	inner      model.Connector
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// Wrap decorates inner with retry logic.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is the delay before the first retry, doubled on each subsequent retry.
func Wrap(inner model.Connector, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Connector {
	return &Connector{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Name returns the wrapped connector's name.
func (c *Connector) Name() string {
	return c.inner.Name()
}

// Search runs the query, retrying on transient errors.
func (c *Connector) Search(ctx context.Context, q model.Query) ([]model.Listing, error) {
	listings, err := c.inner.Search(ctx, q)
	if err == nil || !shouldRetry(ctx, err) {
		return listings, err
	}

	lastErr := err
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		delay := c.backoffDelay(attempt, lastErr)

		c.logger.Warn("retrying search after transient error",
			"source", c.inner.Name(),
			"keyword", q.Keyword,
			"location", q.Location,
			"attempt", attempt,
			"max_retries", c.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		listings, err = c.inner.Search(ctx, q)
		if err == nil {
			return listings, nil
		}
		if !shouldRetry(ctx, err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// A Retry-After duration on an HTTP 429 takes precedence.
func (c *Connector) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	delay := c.baseDelay << (attempt - 1)

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// shouldRetry is isRetryable plus per-attempt deadlines: a deadline error while
// the caller's ctx is still live came from a timeout below this connector.
func shouldRetry(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return true
	}
	return isRetryable(err)
}

// isRetryable reports whether err is a transient failure worth another attempt.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, model.ErrSourceTimeout) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, model.ErrUnsupportedSource) {
		return false
	}

	// A page we could not parse will not parse any better on the next attempt.
	var parseErr *model.ParseError
	if errors.As(err, &parseErr) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == 429 || httpErr.StatusCode >= 500
	}

	// Network, DNS, etc.
	return true
}

package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/amishk599/jobsweep/internal/model"
)

// SourceLimiter paces requests per source. Every connector for the same source
// shares one token bucket, so a board sees the configured rate no matter how
// many keywords and scopes are being searched.
type SourceLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter // key: source id
	rateFor  func(source string) float64
	burst    int
}

// NewSourceLimiter creates a limiter. rateFor returns requests per second for a
// source; zero or negative means unlimited.
func NewSourceLimiter(rateFor func(source string) float64, burst int) *SourceLimiter {
	if burst < 1 {
		burst = 1
	}
	return &SourceLimiter{
		limiters: make(map[string]*rate.Limiter),
		rateFor:  rateFor,
		burst:    burst,
	}
}

// Wait blocks until the source may be queried again.
// Returns an error if the context is cancelled while waiting.
func (l *SourceLimiter) Wait(ctx context.Context, source string) error {
	if err := l.limiter(source).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", source, err)
	}
	return nil
}

func (l *SourceLimiter) limiter(source string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[source]
	if !ok {
		limit := rate.Inf
		if rps := l.rateFor(source); rps > 0 {
			limit = rate.Limit(rps)
		}
		lim = rate.NewLimiter(limit, l.burst)
		l.limiters[source] = lim
	}
	return lim
}

var _ model.Connector = (*Connector)(nil)

// Connector waits on a shared SourceLimiter before delegating a search.
type Connector struct {
	inner   model.Connector
	limiter *SourceLimiter
}

// Wrap decorates inner with source-level pacing.
func Wrap(inner model.Connector, limiter *SourceLimiter) *Connector {
	return &Connector{inner: inner, limiter: limiter}
}

// Name returns the wrapped connector's name.
func (c *Connector) Name() string {
	return c.inner.Name()
}

// Search waits for the limiter to allow a request, then delegates.
func (c *Connector) Search(ctx context.Context, q model.Query) ([]model.Listing, error) {
	if err := c.limiter.Wait(ctx, c.inner.Name()); err != nil {
		return nil, err
	}
	return c.inner.Search(ctx, q)
}

package connector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/amishk599/jobsweep/internal/model"
)

const userAgent = "Mozilla/5.0 (compatible; jobsweep/1.0)"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// fetch GETs url and returns the body. Non-200 responses become *model.HTTPError.
func fetch(ctx context.Context, client *http.Client, url string, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("unexpected status from %s", req.URL.Host),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

var _ model.Connector = (*timeoutConnector)(nil)

type timeoutConnector struct {
	inner model.Connector
	d     time.Duration
}

// WithTimeout bounds each search on c to d. A zero d returns c unchanged.
func WithTimeout(c model.Connector, d time.Duration) model.Connector {
	if d <= 0 {
		return c
	}
	return &timeoutConnector{inner: c, d: d}
}

func (t *timeoutConnector) Name() string { return t.inner.Name() }

// Search runs one attempt under its own deadline. Running out of that deadline
// is reported as model.ErrSourceTimeout so it is not mistaken for the run
// being cancelled.
func (t *timeoutConnector) Search(ctx context.Context, q model.Query) ([]model.Listing, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	listings, err := t.inner.Search(attemptCtx, q)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%s: %w after %s: %v", t.inner.Name(), model.ErrSourceTimeout, t.d, err)
	}
	return listings, err
}

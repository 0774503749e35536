package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobsweep/internal/connector"
	"github.com/amishk599/jobsweep/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockConnector calls a function on each invocation, tracking call count.
type mockConnector struct {
	calls int
	fn    func(attempt int) ([]model.Listing, error)
}

func (m *mockConnector) Name() string { return "mock.com" }

func (m *mockConnector) Search(_ context.Context, _ model.Query) ([]model.Listing, error) {
	m.calls++
	return m.fn(m.calls)
}

var query = model.Query{Keyword: "gold trader", Location: "India"}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	listings := []model.Listing{{Title: "Gold Trader", URL: "https://x/1"}}
	mock := &mockConnector{fn: func(_ int) ([]model.Listing, error) {
		return listings, nil
	}}

	rc := Wrap(mock, 2, 10*time.Millisecond, discardLogger())
	got, err := rc.Search(context.Background(), query)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Gold Trader" {
		t.Fatalf("unexpected listings: %v", got)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.calls)
	}
	if rc.Name() != "mock.com" {
		t.Fatalf("Name() = %q, want mock.com", rc.Name())
	}
}

func TestRetry_RetriesOn5xx_SucceedsOnSecondAttempt(t *testing.T) {
	mock := &mockConnector{fn: func(attempt int) ([]model.Listing, error) {
		if attempt == 1 {
			return nil, &model.HTTPError{StatusCode: 503, Err: errors.New("service unavailable")}
		}
		return []model.Listing{{Title: "Bullion Analyst"}}, nil
	}}

	rc := Wrap(mock, 2, 10*time.Millisecond, discardLogger())
	got, err := rc.Search(context.Background(), query)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(got))
	}
	if mock.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.calls)
	}
}

func TestRetry_UsesRetryAfter(t *testing.T) {
	mock := &mockConnector{fn: func(attempt int) ([]model.Listing, error) {
		if attempt == 1 {
			return nil, &model.HTTPError{StatusCode: 429, RetryAfter: 20 * time.Millisecond}
		}
		return nil, nil
	}}

	rc := Wrap(mock, 1, time.Hour, discardLogger())
	start := time.Now()
	if _, err := rc.Search(context.Background(), query); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("expected Retry-After delay to win over base delay, waited %v", elapsed)
	}
}

func TestRetry_DoesNotRetryOn4xx(t *testing.T) {
	mock := &mockConnector{fn: func(_ int) ([]model.Listing, error) {
		return nil, &model.HTTPError{StatusCode: 404, Err: errors.New("not found")}
	}}

	rc := Wrap(mock, 2, 10*time.Millisecond, discardLogger())
	_, err := rc.Search(context.Background(), query)
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 404 {
		t.Fatalf("expected HTTPError with status 404, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call (no retry), got %d", mock.calls)
	}
}

func TestRetry_DoesNotRetryParseOrUnsupported(t *testing.T) {
	for _, failure := range []error{
		&model.ParseError{Err: errors.New("bad json")},
		model.ErrUnsupportedSource,
	} {
		mock := &mockConnector{fn: func(_ int) ([]model.Listing, error) {
			return nil, failure
		}}
		rc := Wrap(mock, 2, 10*time.Millisecond, discardLogger())
		if _, err := rc.Search(context.Background(), query); err == nil {
			t.Fatalf("expected error for %v", failure)
		}
		if mock.calls != 1 {
			t.Fatalf("%v: expected 1 call, got %d", failure, mock.calls)
		}
	}
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	mock := &mockConnector{fn: func(_ int) ([]model.Listing, error) {
		return nil, &model.HTTPError{StatusCode: 500, Err: errors.New("internal error")}
	}}

	rc := Wrap(mock, 2, 10*time.Millisecond, discardLogger())
	if _, err := rc.Search(context.Background(), query); err == nil {
		t.Fatal("expected error after max retries, got nil")
	}
	// 1 initial + 2 retries = 3
	if mock.calls != 3 {
		t.Fatalf("expected 3 calls (1 + 2 retries), got %d", mock.calls)
	}
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	mock := &mockConnector{fn: func(_ int) ([]model.Listing, error) {
		return nil, errors.New("connection reset")
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rc := Wrap(mock, 2, time.Second, discardLogger())
	_, err := rc.Search(ctx, query)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", mock.calls)
	}
}

// hangsOnce blocks until its context ends on the first call and answers
// immediately afterwards.
type hangsOnce struct {
	calls atomic.Int32
}

func (h *hangsOnce) Name() string { return "slowboard.com" }

func (h *hangsOnce) Search(ctx context.Context, _ model.Query) ([]model.Listing, error) {
	if h.calls.Add(1) == 1 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return []model.Listing{{Title: "Gold Assayer"}}, nil
}

func TestRetry_RetriesAttemptTimeout(t *testing.T) {
	inner := &hangsOnce{}
	rc := Wrap(connector.WithTimeout(inner, 20*time.Millisecond), 2, time.Millisecond, discardLogger())

	got, err := rc.Search(context.Background(), query)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Gold Assayer" {
		t.Fatalf("unexpected listings: %v", got)
	}
	if c := inner.calls.Load(); c != 2 {
		t.Fatalf("expected 2 calls, got %d", c)
	}
}

func TestRetry_RetriesBareDeadlineWhileCallerLive(t *testing.T) {
	mock := &mockConnector{fn: func(attempt int) ([]model.Listing, error) {
		if attempt == 1 {
			return nil, context.DeadlineExceeded
		}
		return []model.Listing{{Title: "Bullion Dealer"}}, nil
	}}

	rc := Wrap(mock, 2, time.Millisecond, discardLogger())
	if _, err := rc.Search(context.Background(), query); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.calls)
	}
}

func TestRetry_DoesNotRetryCallerDeadline(t *testing.T) {
	mock := &mockConnector{fn: func(_ int) ([]model.Listing, error) {
		return nil, context.DeadlineExceeded
	}}

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	rc := Wrap(mock, 2, time.Millisecond, discardLogger())
	if _, err := rc.Search(ctx, query); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.calls)
	}
}

package model

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// FailureKind classifies a soft failure.
type FailureKind string

const (
	FailureTransport   FailureKind = "transport"
	FailureHTTPStatus  FailureKind = "http_status"
	FailureParse       FailureKind = "parse"
	FailurePanic       FailureKind = "panic"
	FailureCanceled    FailureKind = "canceled"
	FailureUnsupported FailureKind = "unsupported"
	FailureDate        FailureKind = "date"
)

// ErrUnsupportedSource is returned by connectors that have no implementation for
// the requested board.
var ErrUnsupportedSource = errors.New("unsupported source")

// ErrSourceTimeout marks a single search attempt that ran out of time while the
// run itself was still live. It is a transport failure, not a cancellation.
var ErrSourceTimeout = errors.New("source timed out")

// ParseError marks a failure to interpret a source's response body.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "parse: " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// SoftFailure is a non-fatal failure of one pipeline step. The run continues;
// the failure is kept on the run report so it stays inspectable.
type SoftFailure struct {
	Source string      // connector name, or the listing title for date failures
	Stage  string      // "search", "filter", "cache_load", ...
	Kind   FailureKind
	Err    error
}

func (f *SoftFailure) Error() string {
	return fmt.Sprintf("%s %s (%s): %v", f.Stage, f.Source, f.Kind, f.Err)
}

func (f *SoftFailure) Unwrap() error {
	return f.Err
}

// Classify maps an error returned by a connector to a FailureKind.
func Classify(err error) FailureKind {
	var httpErr *HTTPError
	var parseErr *ParseError
	switch {
	case errors.Is(err, ErrSourceTimeout):
		return FailureTransport
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return FailureCanceled
	case errors.Is(err, ErrUnsupportedSource):
		return FailureUnsupported
	case errors.As(err, &httpErr):
		return FailureHTTPStatus
	case errors.As(err, &parseErr):
		return FailureParse
	default:
		return FailureTransport
	}
}

package connector

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// redirectClient sends every request to srv while keeping path and query, and
// records the last requested URL.
func redirectClient(srv *httptest.Server, last *string) *http.Client {
	return &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if last != nil {
				*last = req.URL.String()
			}
			req.URL.Scheme = "http"
			req.URL.Host = srv.Listener.Addr().String()
			return http.DefaultTransport.RoundTrip(req)
		}),
	}
}

func fixedNow() time.Time {
	return time.Date(2026, 5, 20, 9, 30, 0, 0, time.UTC)
}

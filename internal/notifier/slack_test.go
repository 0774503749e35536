package notifier

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/amishk599/jobsweep/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleListing(title, company string) model.Listing {
	return model.Listing{
		Title:       title,
		Company:     company,
		Location:    "Mumbai",
		URL:         "https://example.com/apply",
		DatePosted:  "2026-05-18",
		Description: "Physical gold desk",
		Source:      "naukri.com",
		Country:     "india",
		SearchTerm:  "gold trader",
	}
}

func manyListings(n int) []model.Listing {
	out := make([]model.Listing, n)
	for i := range out {
		out[i] = sampleListing(fmt.Sprintf("Trader %d", i), "Acme")
	}
	return out
}

func newTestSlack(url string, client *http.Client) *SlackNotifier {
	n := NewSlackNotifier(url, client, discardLogger())
	n.pause = 0
	return n
}

func TestSlackNotifier_EmptyListings(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())
	if err := n.Notify(nil); err != nil {
		t.Errorf("Notify(nil) = %v, want nil", err)
	}
	if err := n.Notify([]model.Listing{}); err != nil {
		t.Errorf("Notify([]) = %v, want nil", err)
	}
	if c := calls.Load(); c != 0 {
		t.Errorf("expected 0 HTTP calls, got %d", c)
	}
}

func TestSlackNotifier_DigestPayload(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())
	listings := []model.Listing{
		sampleListing("Gold Trader", "Acme Bullion"),
		sampleListing("Bullion <Analyst>", "Metals & Co"),
	}
	if err := n.Notify(listings); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}

	// header, context, 2 sections, divider
	if len(payload.Blocks) != 5 {
		t.Fatalf("expected 5 blocks, got %d", len(payload.Blocks))
	}
	if payload.Blocks[0].Type != "header" || payload.Blocks[0].Text.Text != "2 new job listings" {
		t.Errorf("header = %+v", payload.Blocks[0])
	}
	if payload.Blocks[1].Elements[0].Text != "naukri.com: 2" {
		t.Errorf("context = %q", payload.Blocks[1].Elements[0].Text)
	}

	first := payload.Blocks[2].Text.Text
	if !strings.HasPrefix(first, "*<https://example.com/apply|Gold Trader>*") {
		t.Errorf("section text = %q", first)
	}
	if !strings.Contains(first, "Acme Bullion · Mumbai (india)") || !strings.Contains(first, "Posted: 2026-05-18") {
		t.Errorf("section text = %q", first)
	}

	second := payload.Blocks[3].Text.Text
	if !strings.Contains(second, "Bullion &lt;Analyst&gt;") || !strings.Contains(second, "Metals &amp; Co") {
		t.Errorf("expected escaped text, got %q", second)
	}
	if payload.Blocks[4].Type != "divider" {
		t.Errorf("last block = %q, want divider", payload.Blocks[4].Type)
	}
}

func TestSlackNotifier_ChunksLargeDigests(t *testing.T) {
	var mu sync.Mutex
	var payloads []slackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p slackPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		payloads = append(payloads, p)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())
	if err := n.Notify(manyListings(100)); err != nil {
		t.Fatalf("Notify() = %v", err)
	}

	if len(payloads) != 3 {
		t.Fatalf("expected 3 messages for 100 listings, got %d", len(payloads))
	}
	for i, p := range payloads {
		if len(p.Blocks) > slackMaxBlocks {
			t.Errorf("message %d has %d blocks, limit is %d", i, len(p.Blocks), slackMaxBlocks)
		}
	}
	if got := payloads[2].Blocks[0].Text.Text; got != "100 new job listings (3/3)" {
		t.Errorf("last header = %q", got)
	}
}

func TestSlackNotifier_AllFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())
	if err := n.Notify(manyListings(60)); err == nil {
		t.Error("expected error when all messages fail, got nil")
	}
}

func TestSlackNotifier_PartialFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
		} else {
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())
	if err := n.Notify(manyListings(60)); err != nil {
		t.Errorf("expected nil (partial success), got %v", err)
	}
}

func TestSlackNotifier_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		} else {
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())
	if err := n.Notify([]model.Listing{sampleListing("Rate Limited", "Test")}); err != nil {
		t.Fatalf("expected nil after retry, got %v", err)
	}
	if c := calls.Load(); c != 2 {
		t.Errorf("expected 2 HTTP calls (initial + retry), got %d", c)
	}
}

func TestSendTestMessage(t *testing.T) {
	rec := &recordingNotifier{}
	if err := SendTestMessage(rec); err != nil {
		t.Fatalf("SendTestMessage = %v", err)
	}
	if len(rec.got) != 1 || rec.got[0].Source != "test" {
		t.Errorf("unexpected test listing: %+v", rec.got)
	}
}

type recordingNotifier struct {
	got []model.Listing
}

func (r *recordingNotifier) Notify(listings []model.Listing) error {
	r.got = append(r.got, listings...)
	return nil
}

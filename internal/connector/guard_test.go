package connector

import (
	"context"
	"errors"
	"testing"

	"github.com/amishk599/jobsweep/internal/model"
)

func TestGuard_StampsOrchestratorFields(t *testing.T) {
	inner := &stubConnector{name: "naukri.com", listings: []model.Listing{
		{Title: "Gold Trader", URL: "https://n/1", Source: "ignored", SearchTerm: "ignored"},
		{Title: "Bullion Dealer", URL: "https://n/2"},
	}}
	g := NewGuard(inner, discardLogger())

	out := g.Run(context.Background(), model.Query{Keyword: "gold trader", Location: "India", CountryCode: "india"})
	if out.Failure != nil {
		t.Fatalf("unexpected failure: %v", out.Failure)
	}
	if len(out.Listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(out.Listings))
	}
	for _, l := range out.Listings {
		if l.Source != "naukri.com" || l.SearchTerm != "gold trader" || l.Country != "india" {
			t.Errorf("listing not stamped: %+v", l)
		}
	}
	if inner.listings[0].Source != "ignored" {
		t.Error("Guard mutated the connector's slice")
	}
}

func TestGuard_CapsAtLimit(t *testing.T) {
	inner := &stubConnector{name: "shine.com", listings: []model.Listing{
		{Title: "a"}, {Title: "b"}, {Title: "c"},
	}}
	out := NewGuard(inner, discardLogger()).Run(context.Background(), model.Query{Keyword: "gold", Limit: 2})
	if len(out.Listings) != 2 || out.Listings[1].Title != "b" {
		t.Fatalf("expected first 2 listings, got %+v", out.Listings)
	}
}

func TestGuard_ErrorBecomesSoftFailure(t *testing.T) {
	inner := &stubConnector{name: "timesjobs.com", err: &model.HTTPError{StatusCode: 403, Err: errors.New("blocked")}}
	out := NewGuard(inner, discardLogger()).Run(context.Background(), model.Query{Keyword: "gold"})

	if len(out.Listings) != 0 {
		t.Fatalf("expected no listings, got %d", len(out.Listings))
	}
	if out.Failure == nil {
		t.Fatal("expected failure, got nil")
	}
	if out.Failure.Kind != model.FailureHTTPStatus || out.Failure.Source != "timesjobs.com" || out.Failure.Stage != "search" {
		t.Errorf("unexpected failure: %+v", out.Failure)
	}
	var httpErr *model.HTTPError
	if !errors.As(out.Failure, &httpErr) {
		t.Error("failure should unwrap to HTTPError")
	}
}

func TestGuard_RecoversPanic(t *testing.T) {
	inner := &stubConnector{name: "jobstreet.com", panicVal: "nil map"}
	out := NewGuard(inner, discardLogger()).Run(context.Background(), model.Query{Keyword: "gold"})

	if out.Failure == nil || out.Failure.Kind != model.FailurePanic {
		t.Fatalf("expected panic failure, got %+v", out.Failure)
	}
	if len(out.Listings) != 0 {
		t.Fatalf("expected no listings, got %d", len(out.Listings))
	}
}

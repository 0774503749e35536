package model

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIdentity_EqualURLAndTitleCollapse(t *testing.T) {
	a := Listing{URL: "a.com/1", Title: "Gold Trader", Company: "Acme", Location: "London", Description: "x"}
	b := Listing{URL: "a.com/1", Title: "Gold Trader", Company: "Other", Location: "Dubai", Description: "y"}

	if Identity(a) != Identity(b) {
		t.Errorf("Identity(a) = %q, Identity(b) = %q, want equal", Identity(a), Identity(b))
	}
}

func TestIdentity_DifferentFieldsDiffer(t *testing.T) {
	base := Listing{URL: "a.com/1", Title: "Gold Trader"}
	cases := []Listing{
		{URL: "a.com/2", Title: "Gold Trader"},
		{URL: "a.com/1", Title: "Gold trader"},
		{URL: "a.com/1", Title: "Gold Trader "},
		{URL: "", Title: "Gold Trader"},
	}
	for _, c := range cases {
		if Identity(c) == Identity(base) {
			t.Errorf("Identity(%+v) collides with base", c)
		}
	}
}

func TestIdentity_Format(t *testing.T) {
	got := Identity(Listing{URL: "https://x.io/j/9", Title: "Bullion Dealer"})
	if got != "https://x.io/j/9_Bullion Dealer" {
		t.Errorf("Identity = %q", got)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want FailureKind
	}{
		{context.Canceled, FailureCanceled},
		{fmt.Errorf("naukri.com: %w after 30s: context deadline exceeded", ErrSourceTimeout), FailureTransport},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), FailureCanceled},
		{&HTTPError{StatusCode: 503}, FailureHTTPStatus},
		{&ParseError{Err: errors.New("bad html")}, FailureParse},
		{fmt.Errorf("x: %w", ErrUnsupportedSource), FailureUnsupported},
		{errors.New("dial tcp: refused"), FailureTransport},
	}
	for _, c := range cases {
		if got := Classify(c.err); got != c.want {
			t.Errorf("Classify(%v) = %s, want %s", c.err, got, c.want)
		}
	}
}

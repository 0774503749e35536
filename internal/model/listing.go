package model

import (
	"context"
)

// Listing is one normalized job posting as produced by a source connector.
// Source, Country and SearchTerm are stamped by the orchestrator, never trusted
// from the connector.
type Listing struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	URL         string `json:"url"`         // may be empty
	DatePosted  string `json:"date_posted"` // source-dependent text, may be empty
	Description string `json:"description"`
	Source      string `json:"source"`      // connector name
	Country     string `json:"country"`     // scope code the search ran under
	SearchTerm  string `json:"search_term"` // keyword that produced it
}

// Identity returns the deduplication key for a listing: the url and title joined
// verbatim. No case folding or trimming is applied, so mirrors that reformat a
// title produce distinct identities.
func Identity(l Listing) string {
	return l.URL + "_" + l.Title
}

// Query is what a connector is asked to search for.
type Query struct {
	Keyword     string
	Location    string // human-readable scope name, e.g. "India" or "Global"
	CountryCode string // scope code, e.g. "india" or "global"
	Limit       int    // per-scope result cap; zero means no cap
}

// Connector searches one external job board or API.
type Connector interface {
	Name() string
	Search(ctx context.Context, q Query) ([]Listing, error)
}

// Notifier delivers a digest of newly discovered listings.
type Notifier interface {
	Notify(listings []Listing) error
}

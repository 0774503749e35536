package model

import (
	"sort"
	"time"
)

// RunReport holds the counters of one aggregation run. It is owned by the
// engine for the duration of the run and discarded once logged.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	CountriesSearched int
	DomainsSearched   int
	SourcesAttempted  int
	SourceFailures    int
	ListingsFound     int
	NewListings       int
	NewByRegion       map[string]int
	Recent            int
	Notified          bool
	Interrupted       bool

	Listings  []Listing // admitted listings in discovery order
	Failures  []*SoftFailure
	CacheErr  error // load (fail-open) or save failure
	NotifyErr error
}

// NewRunReport returns an empty report stamped with id and start time.
func NewRunReport(id string, start time.Time) *RunReport {
	return &RunReport{
		RunID:       id,
		StartedAt:   start,
		NewByRegion: make(map[string]int),
	}
}

// Regions returns the regions that received new listings, sorted by name.
func (r *RunReport) Regions() []string {
	regions := make([]string, 0, len(r.NewByRegion))
	for region := range r.NewByRegion {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions
}

// Duration is the wall-clock length of the run.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

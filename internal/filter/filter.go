package filter

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobsweep/internal/model"
)

// DateLayout is the single posted-date format the recency filter understands.
// Connectors normalize to it where they can.
const DateLayout = "2006-01-02"

// Recency admits listings posted within MaxAgeDays of today. It rejects only on
// confirmed staleness: a date that cannot be parsed admits the listing.
type Recency struct {
	maxAgeDays int
	now        func() time.Time
	logger     *slog.Logger
}

// Result is the outcome of one Apply call.
type Result struct {
	Admitted []model.Listing
	Stale    int                  // parsed and older than the window
	Unparsed []*model.SoftFailure // admitted with an unknown age
}

// NewRecency returns a filter with the given window. now may be nil to use the
// wall clock.
func NewRecency(maxAgeDays int, now func() time.Time, logger *slog.Logger) *Recency {
	if now == nil {
		now = time.Now
	}
	return &Recency{maxAgeDays: maxAgeDays, now: now, logger: logger}
}

// Apply filters listings, preserving input order.
func (r *Recency) Apply(listings []model.Listing) Result {
	now := r.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	cutoff := today.AddDate(0, 0, -r.maxAgeDays)

	var res Result
	for _, l := range listings {
		posted, err := time.ParseInLocation(DateLayout, l.DatePosted, now.Location())
		if err != nil {
			r.logger.Warn("could not parse posted date, skipping age filter",
				"date_posted", l.DatePosted,
				"title", l.Title,
				"source", l.Source,
			)
			res.Unparsed = append(res.Unparsed, &model.SoftFailure{
				Source: l.Source,
				Stage:  "filter",
				Kind:   model.FailureDate,
				Err:    fmt.Errorf("listing %q: %w", l.Title, err),
			})
			res.Admitted = append(res.Admitted, l)
			continue
		}

		if posted.Before(cutoff) {
			res.Stale++
			continue
		}
		res.Admitted = append(res.Admitted, l)
	}
	return res
}

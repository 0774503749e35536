package connector

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/amishk599/jobsweep/internal/model"
)

// Outcome is the result of one guarded search. Failure is nil on success.
type Outcome struct {
	Listings []model.Listing
	Failure  *model.SoftFailure
}

// Guard is the isolation boundary around a connector. Run never returns an
// error and never panics: a failing connector yields an empty Outcome with a
// Failure attached.
type Guard struct {
	inner  model.Connector
	logger *slog.Logger
}

// NewGuard wraps c.
func NewGuard(c model.Connector, logger *slog.Logger) *Guard {
	return &Guard{inner: c, logger: logger}
}

// Name returns the wrapped connector's name.
func (g *Guard) Name() string {
	return g.inner.Name()
}

// Run searches and stamps Source, SearchTerm and Country on every listing.
// Results beyond q.Limit are dropped when Limit is positive.
func (g *Guard) Run(ctx context.Context, q model.Query) (out Outcome) {
	source := g.inner.Name()

	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("connector panicked",
				"source", source,
				"keyword", q.Keyword,
				"location", q.Location,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			out = Outcome{Failure: &model.SoftFailure{
				Source: source,
				Stage:  "search",
				Kind:   model.FailurePanic,
				Err:    fmt.Errorf("panic: %v", r),
			}}
		}
	}()

	listings, err := g.inner.Search(ctx, q)
	if err != nil {
		kind := model.Classify(err)
		level := slog.LevelError
		if kind == model.FailureCanceled || kind == model.FailureUnsupported {
			level = slog.LevelWarn
		}
		g.logger.Log(ctx, level, "connector search failed",
			"source", source,
			"keyword", q.Keyword,
			"location", q.Location,
			"kind", kind,
			"error", err,
		)
		return Outcome{Failure: &model.SoftFailure{
			Source: source,
			Stage:  "search",
			Kind:   kind,
			Err:    err,
		}}
	}

	if q.Limit > 0 && len(listings) > q.Limit {
		listings = listings[:q.Limit]
	}

	stamped := make([]model.Listing, len(listings))
	for i, l := range listings {
		l.Source = source
		l.SearchTerm = q.Keyword
		l.Country = q.CountryCode
		stamped[i] = l
	}

	g.logger.Debug("connector search done",
		"source", source,
		"keyword", q.Keyword,
		"location", q.Location,
		"listings", len(stamped),
	)
	return Outcome{Listings: stamped}
}

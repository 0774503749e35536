package engine

import (
	"context"
	"fmt"

	"github.com/amishk599/jobsweep/internal/cache"
	"github.com/amishk599/jobsweep/internal/config"
	"github.com/amishk599/jobsweep/internal/model"
)

// PreviewResult is what one (keyword, scope) query returns, split into every
// listing found and the ones a real run would report.
type PreviewResult struct {
	Keyword  string
	Scope    config.Scope
	All      []model.Listing
	Fresh    []model.Listing // unseen and recent
	Failures []*model.SoftFailure
}

// Preview queries a single scope for keyword without recording anything in
// the identity cache and without notifying.
func (e *Engine) Preview(ctx context.Context, keyword, scopeCode string) (*PreviewResult, error) {
	scope, ok := e.settings.Catalog.Lookup(scopeCode)
	if !ok {
		return nil, fmt.Errorf("preview: unknown scope %q", scopeCode)
	}

	c, err := e.backend.Load()
	if err != nil {
		e.logger.Warn("identity cache unreadable, previewing against empty cache", "error", err)
	}
	if c == nil {
		c = cache.New()
	}

	res := &PreviewResult{Keyword: keyword, Scope: scope}

	seen := make(map[string]bool)
	var unseen []model.Listing
	for _, out := range e.searchScope(ctx, keyword, scope) {
		if out.Failure != nil {
			res.Failures = append(res.Failures, out.Failure)
			continue
		}
		for _, l := range out.Listings {
			res.All = append(res.All, l)
			id := model.Identity(l)
			if c.Contains(id) || seen[id] {
				continue
			}
			seen[id] = true
			unseen = append(unseen, l)
		}
	}

	filtered := e.recency.Apply(unseen)
	res.Fresh = filtered.Admitted
	res.Failures = append(res.Failures, filtered.Unparsed...)

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

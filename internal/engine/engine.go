// Package engine runs the aggregation pipeline: fan out over keywords and
// scopes, dedup against the identity cache, filter by recency, notify and
// persist.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobsweep/internal/cache"
	"github.com/amishk599/jobsweep/internal/config"
	"github.com/amishk599/jobsweep/internal/connector"
	"github.com/amishk599/jobsweep/internal/filter"
	"github.com/amishk599/jobsweep/internal/model"
)

// Resolver returns the connectors for a scope's source ids, in order.
type Resolver interface {
	Resolve(ids []string) []model.Connector
}

// Locker guards the identity cache against a concurrent run in another process.
type Locker interface {
	Acquire() error
	Release() error
}

// Settings are the run parameters taken from configuration.
type Settings struct {
	Keywords        []string
	Catalog         *config.Catalog
	LimitPerScope   int
	ParallelSources int
	CacheMaxAge     time.Duration // zero disables pruning
}

// Engine owns one aggregation pipeline. Runs must not overlap; the scheduler
// guarantees that within a process and the optional Locker across processes.
type Engine struct {
	settings Settings
	resolver Resolver
	backend  cache.Backend
	recency  *filter.Recency
	notifier model.Notifier
	lock     Locker
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLock makes every run hold l for its duration.
func WithLock(l Locker) Option {
	return func(e *Engine) { e.lock = l }
}

// WithClock overrides the time source used for cache timestamps and pruning.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides run id generation.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// New creates an Engine wired with all its dependencies.
func New(
	settings Settings,
	resolver Resolver,
	backend cache.Backend,
	recency *filter.Recency,
	notifier model.Notifier,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	if settings.ParallelSources < 1 {
		settings.ParallelSources = 1
	}
	e := &Engine{
		settings: settings,
		resolver: resolver,
		backend:  backend,
		recency:  recency,
		notifier: notifier,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one aggregation run.
//
// Only a lock refusal is returned as an error with a nil report. Connector,
// cache and notification failures are logged and recorded on the report. If
// ctx is cancelled mid fan-out, querying stops, filtering and notification are
// skipped, the cache is still saved, and the partial report is returned along
// with the context error.
func (e *Engine) Run(ctx context.Context) (*model.RunReport, error) {
	report := model.NewRunReport(e.newID(), e.now())
	logger := e.logger.With("run_id", report.RunID)

	if e.lock != nil {
		if err := e.lock.Acquire(); err != nil {
			return nil, fmt.Errorf("run %s: %w", report.RunID, err)
		}
		defer func() {
			if err := e.lock.Release(); err != nil {
				logger.Warn("failed to release run lock", "error", err)
			}
		}()
	}

	logger.Info("run started",
		"keywords", len(e.settings.Keywords),
		"scopes", len(e.settings.Catalog.Scopes())+1,
	)

	c := e.loadCache(logger, report)

	newListings, runErr := e.fanOut(ctx, logger, c, report)
	report.NewListings = len(newListings)

	if runErr != nil {
		report.Interrupted = true
		logger.Warn("run interrupted, skipping filter and notification",
			"new", len(newListings),
			"error", runErr,
		)
	} else {
		e.filterAndNotify(logger, newListings, report)
	}

	if err := e.backend.Save(c); err != nil {
		report.CacheErr = errors.Join(report.CacheErr, fmt.Errorf("save cache: %w", err))
		logger.Error("failed to save identity cache", "error", err)
	}

	report.FinishedAt = e.now()
	logReport(logger, report)

	return report, runErr
}

func (e *Engine) loadCache(logger *slog.Logger, report *model.RunReport) *cache.Cache {
	c, err := e.backend.Load()
	if err != nil {
		report.CacheErr = fmt.Errorf("load cache: %w", err)
		logger.Warn("identity cache unreadable, starting empty", "error", err)
	}
	if c == nil {
		c = cache.New()
	}

	if e.settings.CacheMaxAge > 0 {
		cutoff := e.now().Add(-e.settings.CacheMaxAge)
		if pruned := c.Prune(cutoff); pruned > 0 {
			logger.Info("pruned identity cache", "removed", pruned, "older_than", cutoff.Format(cache.TimestampLayout))
		}
	}

	logger.Debug("identity cache loaded", "entries", c.Len())
	return c
}

// fanOut queries every (keyword, scope) pair in configured order and records
// each unseen identity the moment it is merged. It returns the context error
// if the run was cancelled.
func (e *Engine) fanOut(ctx context.Context, logger *slog.Logger, c *cache.Cache, report *model.RunReport) ([]model.Listing, error) {
	global := e.settings.Catalog.Global()
	scopes := e.settings.Catalog.All()

	var newListings []model.Listing
	for _, keyword := range e.settings.Keywords {
		logger.Info("searching keyword", "keyword", keyword)

		for _, scope := range scopes {
			if err := ctx.Err(); err != nil {
				return newListings, err
			}

			isGlobal := scope.Code == global.Code
			if !isGlobal {
				report.CountriesSearched++
				report.DomainsSearched += len(scope.Sources)
			}

			outcomes := e.searchScope(ctx, keyword, scope)

			region := scope.Region
			if isGlobal {
				region = "global"
			}

			for _, out := range outcomes {
				report.SourcesAttempted++
				if out.Failure != nil {
					report.SourceFailures++
					report.Failures = append(report.Failures, out.Failure)
					continue
				}
				report.ListingsFound += len(out.Listings)

				for _, l := range out.Listings {
					entry := cache.Entry{
						FirstSeen:  cache.Timestamp{Time: e.now()},
						Title:      l.Title,
						SearchTerm: keyword,
					}
					if !isGlobal {
						entry.Country = scope.Name
					}
					if !c.Record(model.Identity(l), entry) {
						continue
					}
					newListings = append(newListings, l)
					report.NewByRegion[region]++
				}
			}
		}
	}

	return newListings, ctx.Err()
}

// searchScope queries a scope's sources, up to ParallelSources at a time. The
// outcomes are indexed by source position so the merge order never depends on
// which connector answered first.
func (e *Engine) searchScope(ctx context.Context, keyword string, scope config.Scope) []connector.Outcome {
	conns := e.resolver.Resolve(scope.Sources)
	outcomes := make([]connector.Outcome, len(conns))

	q := model.Query{
		Keyword:     keyword,
		Location:    scope.Name,
		CountryCode: scope.Code,
		Limit:       e.settings.LimitPerScope,
	}

	var g errgroup.Group
	g.SetLimit(e.settings.ParallelSources)
	for i, conn := range conns {
		g.Go(func() error {
			outcomes[i] = connector.NewGuard(conn, e.logger).Run(ctx, q)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (e *Engine) filterAndNotify(logger *slog.Logger, newListings []model.Listing, report *model.RunReport) {
	result := e.recency.Apply(newListings)
	report.Recent = len(result.Admitted)
	report.Listings = result.Admitted
	report.Failures = append(report.Failures, result.Unparsed...)

	if len(result.Admitted) == 0 {
		logger.Info("no new recent listings, skipping notification", "new", len(newListings), "stale", result.Stale)
		return
	}

	if err := e.notifier.Notify(result.Admitted); err != nil {
		report.NotifyErr = err
		logger.Error("notification failed", "listings", len(result.Admitted), "error", err)
		return
	}
	report.Notified = true
}

func logReport(logger *slog.Logger, r *model.RunReport) {
	regions := make([]string, 0, len(r.NewByRegion))
	for _, region := range r.Regions() {
		regions = append(regions, fmt.Sprintf("%s=%d", region, r.NewByRegion[region]))
	}

	logger.Info("run complete",
		"countries", r.CountriesSearched,
		"domains", r.DomainsSearched,
		"sources", r.SourcesAttempted,
		"source_failures", r.SourceFailures,
		"found", r.ListingsFound,
		"new", r.NewListings,
		"by_region", strings.Join(regions, ","),
		"recent", r.Recent,
		"notified", r.Notified,
		"interrupted", r.Interrupted,
		"duration", r.Duration().Round(time.Millisecond),
	)
}

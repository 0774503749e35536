// Package connector holds the source connectors jobsweep queries and the
// registry that maps a source id to one of them.
package connector

import (
	"context"
	"log/slog"
	"sync"

	"github.com/amishk599/jobsweep/internal/model"
)

// Registry maps a source id (a board domain such as "naukri.com") to the
// connector that searches it. Ids with no registration resolve to General.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]model.Connector
	logger     *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		connectors: make(map[string]model.Connector),
		logger:     logger,
	}
}

// Register binds id to c, replacing any previous binding.
func (r *Registry) Register(id string, c model.Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[id] = c
}

// Lookup returns the connector registered for id and whether one exists.
func (r *Registry) Lookup(id string) (model.Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[id]
	return c, ok
}

// Get returns the connector for id, or a General connector named id.
func (r *Registry) Get(id string) model.Connector {
	if c, ok := r.Lookup(id); ok {
		return c
	}
	return NewGeneral(id, r.logger)
}

// Resolve returns one connector per id, in the order given.
func (r *Registry) Resolve(ids []string) []model.Connector {
	out := make([]model.Connector, len(ids))
	for i, id := range ids {
		out[i] = r.Get(id)
	}
	return out
}

// Registered returns whether id has a dedicated connector.
func (r *Registry) Registered(id string) bool {
	_, ok := r.Lookup(id)
	return ok
}

var _ model.Connector = (*General)(nil)

// General is the connector for sources with no dedicated implementation.
// It always returns no listings.
type General struct {
	id     string
	logger *slog.Logger
}

// NewGeneral creates a General connector for the given source id.
func NewGeneral(id string, logger *slog.Logger) *General {
	return &General{id: id, logger: logger}
}

func (g *General) Name() string { return g.id }

func (g *General) Search(_ context.Context, q model.Query) ([]model.Listing, error) {
	g.logger.Debug("no connector for source, skipping",
		"source", g.id,
		"keyword", q.Keyword,
		"location", q.Location,
	)
	return nil, nil
}

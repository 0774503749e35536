package config

import (
	"fmt"
)

// Scope pairs a search location with the source group queried for it.
type Scope struct {
	Code    string   // stable key, e.g. "india"
	Name    string   // passed to connectors as the location, e.g. "India"
	Region  string   // reporting bucket, e.g. "asia"
	Sources []string // source ids in query order
}

// Catalog is the immutable set of scopes a run iterates over: the global scope
// first, then the others in configured order. Accessors return copies.
type Catalog struct {
	global Scope
	scopes []Scope
}

// NewCatalog validates and copies the given scopes.
func NewCatalog(global Scope, scopes []Scope) (*Catalog, error) {
	if global.Code == "" {
		global.Code = "global"
	}
	if global.Region == "" {
		global.Region = "global"
	}
	if global.Name == "" {
		global.Name = "Global"
	}

	seen := map[string]bool{global.Code: true}
	out := make([]Scope, 0, len(scopes))
	for i, s := range scopes {
		if s.Code == "" {
			return nil, fmt.Errorf("catalog.scopes[%d].code is required", i)
		}
		if seen[s.Code] {
			return nil, fmt.Errorf("catalog.scopes[%d]: duplicate scope code %q", i, s.Code)
		}
		seen[s.Code] = true
		if s.Name == "" {
			return nil, fmt.Errorf("catalog.scopes[%d].name is required", i)
		}
		if s.Region == "" {
			return nil, fmt.Errorf("catalog.scopes[%d].region is required", i)
		}
		out = append(out, copyScope(s))
	}

	if len(global.Sources) == 0 && len(out) == 0 {
		return nil, fmt.Errorf("catalog must define at least one scope with sources")
	}

	return &Catalog{global: copyScope(global), scopes: out}, nil
}

// Global returns the cross-region scope.
func (c *Catalog) Global() Scope {
	return copyScope(c.global)
}

// Scopes returns the non-global scopes in configured order.
func (c *Catalog) Scopes() []Scope {
	out := make([]Scope, len(c.scopes))
	for i, s := range c.scopes {
		out[i] = copyScope(s)
	}
	return out
}

// All returns the global scope followed by every other scope.
func (c *Catalog) All() []Scope {
	return append([]Scope{c.Global()}, c.Scopes()...)
}

// Lookup finds a scope by code, including the global scope.
func (c *Catalog) Lookup(code string) (Scope, bool) {
	if code == c.global.Code {
		return c.Global(), true
	}
	for _, s := range c.scopes {
		if s.Code == code {
			return copyScope(s), true
		}
	}
	return Scope{}, false
}

// SourceIDs returns every distinct source id in first-appearance order.
func (c *Catalog) SourceIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, s := range c.All() {
		for _, id := range s.Sources {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func copyScope(s Scope) Scope {
	s.Sources = append([]string(nil), s.Sources...)
	return s
}

// expandSources resolves group references and inline sources into one ordered,
// de-duplicated list.
func expandSources(groups map[string][]string, refs []string, inline []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, ref := range refs {
		members, ok := groups[ref]
		if !ok {
			return nil, fmt.Errorf("unknown source group %q", ref)
		}
		for _, id := range members {
			add(id)
		}
	}
	for _, id := range inline {
		add(id)
	}
	return out, nil
}

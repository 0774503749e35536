package cache

import (
	"encoding/json"
	"time"
)

// TimestampLayout is the persisted first_seen format.
const TimestampLayout = "2006-01-02 15:04:05"

// Timestamp is a first-seen time that serializes as TimestampLayout. Values that
// cannot be parsed decode to the zero time instead of failing the whole load.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(TimestampLayout))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		t.Time = time.Time{}
		return nil
	}
	t.Time = parseTimestamp(s)
	return nil
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if ts, err := time.ParseInLocation(TimestampLayout, s, time.Local); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts
	}
	return time.Time{}
}

// Entry is the first-seen metadata stored for an identity. It is written once
// and never updated.
type Entry struct {
	FirstSeen  Timestamp `json:"first_seen"`
	Title      string    `json:"title"`
	SearchTerm string    `json:"search_term"`
	Country    string    `json:"country,omitempty"`
}

// Cache is the in-memory identity mapping. It is not safe for concurrent
// mutation; one run owns it between load and save.
type Cache struct {
	entries map[string]Entry
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]Entry)}
}

// FromEntries builds a cache around a copy of entries.
func FromEntries(entries map[string]Entry) *Cache {
	c := New()
	for id, e := range entries {
		c.entries[id] = e
	}
	return c
}

// Contains reports whether the identity has been recorded.
func (c *Cache) Contains(id string) bool {
	_, ok := c.entries[id]
	return ok
}

// Get returns the entry recorded for id.
func (c *Cache) Get(id string) (Entry, bool) {
	e, ok := c.entries[id]
	return e, ok
}

// Record inserts entry under id if absent. A second sighting is a no-op and the
// original first-seen metadata is kept. It returns true if the entry was added.
func (c *Cache) Record(id string, entry Entry) bool {
	if _, ok := c.entries[id]; ok {
		return false
	}
	c.entries[id] = entry
	return true
}

// Len returns the number of recorded identities.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Entries returns a copy of the mapping.
func (c *Cache) Entries() map[string]Entry {
	out := make(map[string]Entry, len(c.entries))
	for id, e := range c.entries {
		out[id] = e
	}
	return out
}

// Prune removes entries first seen before cutoff and returns how many were
// removed. Entries with an unknown first-seen time are kept. The cache never
// prunes on its own; callers opt in.
func (c *Cache) Prune(cutoff time.Time) int {
	removed := 0
	for id, e := range c.entries {
		if !e.FirstSeen.IsZero() && e.FirstSeen.Before(cutoff) {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// Backend persists a Cache.
//
// Load always returns a usable cache. Missing storage yields an empty cache and
// a nil error; corrupt storage yields an empty cache and a non-nil error so the
// caller can log it and carry on.
type Backend interface {
	Load() (*Cache, error)
	Save(c *Cache) error
}

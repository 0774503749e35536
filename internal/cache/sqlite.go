package cache

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

var _ Backend = (*SQLite)(nil)

// SQLite stores the identity mapping in a single SQLite table. It holds the
// same flat mapping as the JSON backend.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) a SQLite database at dbPath and ensures the
// identity_cache table exists.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS identity_cache (
		identity    TEXT PRIMARY KEY,
		first_seen  TEXT NOT NULL DEFAULT '',
		title       TEXT NOT NULL DEFAULT '',
		search_term TEXT NOT NULL DEFAULT '',
		country     TEXT NOT NULL DEFAULT ''
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating identity_cache table: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Load reads every row. A query failure yields an empty cache and the error.
func (s *SQLite) Load() (*Cache, error) {
	rows, err := s.db.Query("SELECT identity, first_seen, title, search_term, country FROM identity_cache")
	if err != nil {
		return New(), fmt.Errorf("loading identity cache: %w", err)
	}
	defer rows.Close()

	c := New()
	for rows.Next() {
		var id, firstSeen string
		var e Entry
		if err := rows.Scan(&id, &firstSeen, &e.Title, &e.SearchTerm, &e.Country); err != nil {
			return New(), fmt.Errorf("scanning identity cache row: %w", err)
		}
		e.FirstSeen = Timestamp{parseTimestamp(firstSeen)}
		c.entries[id] = e
	}
	if err := rows.Err(); err != nil {
		return New(), fmt.Errorf("iterating identity cache: %w", err)
	}
	return c, nil
}

// Save replaces the table contents with c inside one transaction.
func (s *SQLite) Save(c *Cache) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning cache save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM identity_cache"); err != nil {
		return fmt.Errorf("clearing identity cache: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO identity_cache (identity, first_seen, title, search_term, country) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing cache insert: %w", err)
	}
	defer stmt.Close()

	for id, e := range c.entries {
		firstSeen := ""
		if !e.FirstSeen.IsZero() {
			firstSeen = e.FirstSeen.Format(TimestampLayout)
		}
		if _, err := stmt.Exec(id, firstSeen, e.Title, e.SearchTerm, e.Country); err != nil {
			return fmt.Errorf("saving identity %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing cache save: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

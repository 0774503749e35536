package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var _ Backend = (*JSONFile)(nil)

// JSONFile stores the cache as a single JSON object mapping identity to entry.
type JSONFile struct {
	path string
}

// NewJSONFile returns a backend persisting to path.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Path returns the cache file location.
func (j *JSONFile) Path() string { return j.path }

// Load reads the cache file. A missing file is an empty cache; an unreadable or
// corrupt file is an empty cache plus an error.
func (j *JSONFile) Load() (*Cache, error) {
	data, err := os.ReadFile(j.path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return New(), fmt.Errorf("reading cache %s: %w", j.path, err)
	}

	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return New(), fmt.Errorf("decoding cache %s: %w", j.path, err)
	}
	return FromEntries(entries), nil
}

// Save writes the full mapping to a temp file in the same directory, syncs it
// and renames it over the previous file, so a crash mid-write leaves the old
// cache intact.
func (j *JSONFile) Save(c *Cache) error {
	data, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	dir := filepath.Dir(j.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(j.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("writing temp cache file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("syncing temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, j.path); err != nil {
		cleanup()
		return fmt.Errorf("replacing cache %s: %w", j.path, err)
	}
	return nil
}

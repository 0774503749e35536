package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrRunInProgress is returned when another process holds the cache lock.
var ErrRunInProgress = errors.New("another run holds the cache lock")

// Lock is a cross-process advisory lock next to the cache storage. Only one
// aggregation run may mutate a given cache at a time.
type Lock struct {
	fl *flock.Flock
}

// NewLock returns a lock on storagePath + ".lock".
func NewLock(storagePath string) *Lock {
	return &Lock{fl: flock.New(storagePath + ".lock")}
}

// Acquire takes the lock without blocking. It returns ErrRunInProgress if the
// lock is held elsewhere. A missing parent directory is created, as the cache
// itself would be on first save.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.fl.Path()), 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}
	ok, err := l.fl.TryLock()
	if err != nil {
		return fmt.Errorf("locking %s: %w", l.fl.Path(), err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunInProgress, l.fl.Path())
	}
	return nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("unlocking %s: %w", l.fl.Path(), err)
	}
	return nil
}

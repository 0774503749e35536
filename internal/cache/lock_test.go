package cache

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestLock_SecondAcquireRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job_cache.json")

	first := NewLock(path)
	if err := first.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(func() { _ = first.Release() })

	err := NewLock(path).Acquire()
	if !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
}

func TestLock_ReacquireAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job_cache.json")

	l := NewLock(path)
	if err := l.Acquire(); err != nil {
		t.Fatal(err)
	}
	if err := l.Release(); err != nil {
		t.Fatal(err)
	}

	other := NewLock(path)
	if err := other.Acquire(); err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if err := other.Release(); err != nil {
		t.Fatal(err)
	}
}

func TestLock_CreatesMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "nested", "job_cache.json")

	l := NewLock(path)
	if err := l.Acquire(); err != nil {
		t.Fatalf("Acquire in missing directory: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatal(err)
	}

	c, err := NewJSONFile(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

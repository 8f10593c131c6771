package testutil

import (
	"path/filepath"
	"testing"

	"github.com/roach88/beentity/internal/store"
)

// OpenStore opens a store in a per-test temp directory with sequential keys.
// The store is closed when the test ends.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixtures.db")
	s, err := store.Open(path, store.WithKeyGenerator(NewSequentialKeys("")))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

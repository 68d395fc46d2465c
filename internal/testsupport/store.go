package testsupport

import (
	"testing"

	"github.com/nico2sh/romst/internal/catalog/catalogdb"
	"github.com/nico2sh/romst/internal/config"
)

// MustOpenStore opens a catalog database for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalogdb.Store {
	t.Helper()

	store, err := catalogdb.Open(cfg.Paths.DatabasePath)
	if err != nil {
		t.Fatalf("catalogdb.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

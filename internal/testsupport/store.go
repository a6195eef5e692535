package testsupport

import (
	"path/filepath"
	"testing"

	"estatemap/internal/database"
)

// NewStore opens a migrated SQLite store in a per-test temp directory and
// closes it when the test finishes.
func NewStore(t testing.TB) *database.SQLStore {
	t.Helper()

	store, err := database.NewSQLStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	if err := store.RunMigrations(); err != nil {
		t.Fatalf("migrate test store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

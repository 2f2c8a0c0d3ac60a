// Package testutil provides shared test helpers for caselight packages.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/caselight/internal/storage"
)

// SetupTestStore creates a migrated SQLite store in a temp directory.
// It is closed automatically when the test finishes.
//
// Example:
//
//	store := testutil.SetupTestStore(t)
//	notes, err := notes.New(ctx, store)
func SetupTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "caselight.db"))
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

package postgres

import (
	"database/sql"
	"os"
	"testing"

	"github.com/julianstephens/tally/internal/storage"
	"github.com/julianstephens/tally/internal/storage/sqlstore"
	"github.com/julianstephens/tally/internal/storage/storagetest"
)

// TestStore_Integration runs the backend suite against a real database.
// Set TALLY_TEST_POSTGRES to run it, e.g.
// TALLY_TEST_POSTGRES="postgres://tally@localhost:5432/tally_test?sslmode=disable"
func TestStore_Integration(t *testing.T) {
	connStr := os.Getenv("TALLY_TEST_POSTGRES")
	if connStr == "" {
		t.Skip("TALLY_TEST_POSTGRES not set, skipping PostgreSQL integration test")
	}

	storagetest.Run(t, func(t *testing.T) storage.Provider {
		resetSchema(t, connStr)
		store := New(connStr, sqlstore.Options{})
		if err := store.Init(); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func resetSchema(t *testing.T, connStr string) {
	t.Helper()
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open postgres database: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec("DROP SCHEMA IF EXISTS tally CASCADE"); err != nil {
		t.Fatalf("failed to reset schema: %v", err)
	}
}

// Package databasetest opens migrated in-memory SQLite databases for tests.
package databasetest

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-crud-api/pkg/database"
)

// New returns a fresh, fully migrated database that is closed when the test ends.
func New(t testing.TB) *sqlx.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, DSN: "file::memory:"})
	if err != nil {
		t.Fatalf("connect sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(context.Background(), db, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

package testutil

import (
	"database/sql"
	"testing"

	"github.com/vrsandeep/intake-go/internal/assets"
	"github.com/vrsandeep/intake-go/internal/db"
)

// SetupTestDB returns a migrated in-memory database that is closed when
// the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.Open(":memory:", assets.MigrationsFS)
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

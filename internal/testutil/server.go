// Shared test server setup, which simplifies all API tests.

package testutil

import (
	"database/sql"
	"testing"

	"github.com/vrsandeep/intake-go/internal/api"
	"github.com/vrsandeep/intake-go/internal/config"
	"github.com/vrsandeep/intake-go/internal/core"
)

// SetupTestApp builds a core.App over an in-memory database.
func SetupTestApp(t *testing.T) *core.App {
	t.Helper()
	db := SetupTestDB(t)

	cfg := &config.Config{}
	cfg.Jobs.NotificationRetentionDays = 30
	cfg.Storage.Dir = t.TempDir()
	return core.NewWith(cfg, db, "1.2.0")
}

// SetupTestServer initializes a full core.App and api.Server for integration testing.
func SetupTestServer(t *testing.T) (*api.Server, *sql.DB, *core.App) {
	t.Helper()
	app := SetupTestApp(t)
	return api.NewServer(app), app.DB(), app
}

package db

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/httpfs"

	// Registers the "sqlite3" driver with database/sql.
	_ "github.com/mattn/go-sqlite3"
)

const memoryPath = ":memory:"

// dsn turns a plain path into a go-sqlite3 DSN. Pragmas passed in the DSN
// apply to every pooled connection, not only the first one.
func dsn(path string) string {
	params := "_foreign_keys=on&_busy_timeout=5000"
	if path == memoryPath {
		return "file::memory:?" + params
	}
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	// Status ingestion writes while list requests read.
	return "file:" + path + "?" + params + "&_journal_mode=WAL"
}

// InitDB opens the SQLite database at path and verifies the connection.
func InitDB(path string) (*sql.DB, error) {
	database, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is its own database.
	if path == memoryPath {
		database.SetMaxOpenConns(1)
	}

	if err = database.Ping(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return database, nil
}

// Open initializes the database at path and applies the migrations found
// under "migrations/" in migrationsFS.
func Open(path string, migrationsFS fs.FS) (*sql.DB, error) {
	database, err := InitDB(path)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(database, migrationsFS); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// RunMigrations applies every pending migration under "migrations/" in
// migrationsFS. An up-to-date schema is not an error.
func RunMigrations(database *sql.DB, migrationsFS fs.FS) error {
	source, err := httpfs.New(http.FS(migrationsFS), "migrations")
	if err != nil {
		return fmt.Errorf("could not create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(database, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("could not create sqlite3 migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("httpfs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Println("Database schema is up to date.")
	case err != nil:
		return fmt.Errorf("an error occurred while applying migrations: %w", err)
	default:
		log.Println("Migrations applied successfully.")
	}
	return nil
}

// SchemaVersion reports the applied migration version and whether the last
// migration left the schema dirty. It returns 0 before any migration ran.
func SchemaVersion(database *sql.DB) (uint, bool, error) {
	var (
		version int64
		dirty   bool
	)
	err := database.QueryRow("SELECT version, dirty FROM schema_migrations LIMIT 1").Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return uint(version), dirty, nil
}

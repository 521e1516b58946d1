// Package assets holds the files compiled into the relay binary.
package assets

import "embed"

// MigrationsFS carries the SQL schema migrations under "migrations/",
// numbered for golang-migrate.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS

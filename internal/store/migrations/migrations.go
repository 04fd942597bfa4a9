// Package migrations embeds the SQLite schema and registers the one-time
// data migrations. goose records applied versions in goose_db_version, so
// each migration runs exactly once per database.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS

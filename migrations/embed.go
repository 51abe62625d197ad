// Package migrations embeds the SQL schema of the local store backend.
package migrations

import (
	"embed"

	"github.com/nerrad567/beacon-station/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}

package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds every schema change of the quiz store, applied in name order.
var Migrations = migrate.NewMigrations()

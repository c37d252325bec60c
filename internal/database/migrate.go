package database

import (
	"context"
	"embed"
	"fmt"
)

//go:embed schema/*.sql
var schemas embed.FS

// Migrate creates the ledger tables if they do not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	name := "schema/postgres.sql"
	if db.dialect == SQLite {
		name = "schema/sqlite.sql"
	}

	ddl, err := schemas.ReadFile(name)
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}

	if _, err := db.ExecContext(ctx, string(ddl)); err != nil {
		return fmt.Errorf("applying %s: %w", name, err)
	}

	return nil
}

// Package dbtest opens migrated in-memory databases for store tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ledger/internal/database"
)

const memoryDSN = "file::memory:?_txlock=immediate&_foreign_keys=on"

func New(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.New(string(database.SQLite), memoryDSN, database.DefaultPool)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(context.Background()))

	return db
}

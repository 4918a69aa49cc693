// Package dbtest provides migrated sqlite databases for repository tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/Vovarama1992/tabletalk-host/internal/db"
)

// Open returns a migrated sqlite database living in t.TempDir.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	ctx := context.Background()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	conn, err := db.Open(ctx, db.DriverSQLite, dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.Migrate(ctx, conn, db.DriverSQLite); err != nil {
		t.Fatal(err)
	}
	return conn
}

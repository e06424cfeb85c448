// Package testutil holds setup shared by tests of several packages.
package testutil

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// MemoryDB opens an in-memory sqlite database closed at the end of the
// test, migrate (if not nil) is run on it first.
func MemoryDB(t testing.TB, migrate func(ctx context.Context, db *sql.DB) error) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// every connection to :memory: is a new database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if migrate != nil {
		err = migrate(context.Background(), db)
		if err != nil {
			t.Fatal(err)
		}
	}
	return db
}

package model

import (
	"database/sql"
	"testing"

	"github.com/DavidDevlo/FINTide/src/database"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.InitDB(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.EnsureSchema(db); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	return db
}

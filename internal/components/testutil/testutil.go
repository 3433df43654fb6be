package testutil

import (
	"database/sql"
	"fmt"
	"net/url"
	"testing"

	"gradesync-backend/internal/components/db"

	_ "modernc.org/sqlite"
)

// SetupDB opens a migrated in-memory sqlite database private to the test.
func SetupDB(t testing.TB) *sql.DB {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
		url.PathEscape(t.Name()),
	)
	database, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatal(err)
	}
	database.SetMaxOpenConns(1)

	err = db.RunMigrations(database)
	if err != nil {
		database.Close()
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

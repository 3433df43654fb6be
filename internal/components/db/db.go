package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{
		db: tx,
	}
}

func isRemote(url string) bool {
	return strings.HasPrefix(url, "libsql://") ||
		strings.HasPrefix(url, "https://") ||
		strings.HasPrefix(url, "http://")
}

// Open opens a database and applies all pending migrations. `url` is either
// a local sqlite file path or a remote libsql url (libsql://, http(s)://),
// remote auth tokens go in the url query as `?authToken=...`.
func Open(url string) (*sql.DB, error) {
	var (
		database *sql.DB
		err      error
	)
	if isRemote(url) {
		database, err = sql.Open("libsql", url)
	} else {
		if url != ":memory:" {
			os.MkdirAll(filepath.Dir(url), 0777)
		}
		dsn := fmt.Sprintf(
			"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
			url,
		)
		database, err = sql.Open("sqlite", dsn)
		if err == nil {
			// sqlite only supports one writer at a time
			database.SetMaxOpenConns(1)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Ping(); err != nil {
		database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(database); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

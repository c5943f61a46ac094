// Package storage persists the portfolio state: the allocation set and the
// runtime API token.
package storage

import (
	"database/sql"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

// DB is the subset of database/sql used by the store.
type DB interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	Close() error
}

// OpenSQLite opens the sqlite database at the given DSN.
func OpenSQLite(dsn string) (DB, error) {
	return sql.Open("sqlite3", dsn)
}

// InitSchema creates the portfolio and settings tables if missing.
func InitSchema(db DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS portfolio(
		symbol TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		price REAL NOT NULL DEFAULT 0,
		allocation REAL NOT NULL DEFAULT 0
	)`); err != nil {
		return err
	}
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS settings(
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`)
	return err
}

// Package store persists the household court document in SQLite.
package store

import "database/sql"

// execer is satisfied by both *sql.DB and *sql.Tx so insert helpers can run
// standalone or inside the document-wide transactions of StateStore.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Package storage opens the sqlite ledger database and defines the error
// shared by every store. Each table lives in its own subpackage and creates
// its schema on construction.
package storage

import (
	"database/sql"
	stderrors "errors"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// ErrUnavailable marks persistence failures. Stores join it with the
// underlying driver error so callers can both errors.Is the category and
// inspect the cause. Orchestration runs hitting it are safe to retry in full.
var ErrUnavailable = stderrors.New("store unavailable")

// Unavailable wraps a driver error with ErrUnavailable and the failing
// operation.
func Unavailable(op string, err error) error {
	return errors.Wrap(stderrors.Join(ErrUnavailable, err), op)
}

// Open opens (creating if needed) the sqlite database at path with WAL mode
// and a busy timeout. The pool is capped at a single connection: the ledger
// is specified single-writer and sqlite serializes writers anyway.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, Unavailable("open sqlite database", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, Unavailable("ping sqlite database", err)
	}

	return db, nil
}

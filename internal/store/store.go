// Package store holds the SQL for every table. Functions take a DBTX so the
// same query runs standalone or inside WithTx. Lookups return (nil, nil)
// when the row does not exist; mutations return ErrNotFound instead.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/erazemk/popis/internal/model"
)

// Sentinel errors shared by all store functions.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrReferenced = errors.New("still referenced")
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn in a transaction, committing when it returns nil.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", mapError(err))
	}
	return nil
}

// constraintError is a constraint failure classified as one of the
// sentinels. Its message omits the driver text, which stays reachable
// through Unwrap for logging.
type constraintError struct {
	kind  error
	cause error
}

func (e *constraintError) Error() string { return e.kind.Error() }
func (e *constraintError) Unwrap() []error { return []error{e.kind, e.cause} }

// mapError turns SQLite constraint failures into the package sentinels.
func mapError(err error) error {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return &constraintError{kind: ErrConflict, cause: err}
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, sqlite3.SQLITE_CONSTRAINT_TRIGGER:
		// RESTRICT actions are reported as trigger failures.
		return &constraintError{kind: ErrReferenced, cause: err}
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		return &model.ValidationError{Message: "value out of range"}
	}
	return err
}

// checkAffected returns ErrNotFound when a mutation touched no rows.
func checkAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// nullString stores empty strings as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

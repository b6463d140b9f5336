// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vinovest/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a record with the same key already exists.
	ErrConflict = errors.New("record already exists")
)

// Repository provides database access for accounts, reference phrases and
// clarification contexts. A Repository returned by WithTx is bound to the
// transaction.
type Repository struct {
	db *sqlx.DB
	q  sqlx.ExtContext
}

// New creates a new Repository instance.
func New(db *sqlx.DB) *Repository {
	return &Repository{db: db, q: db}
}

// DB returns the underlying database handle.
func (r *Repository) DB() *sqlx.DB {
	return r.db
}

// WithTx runs fn with a Repository bound to a new transaction. The
// transaction commits when fn returns nil and rolls back on error or panic.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) (err error) {
	if _, inTx := r.q.(*sqlx.Tx); inTx {
		return errors.New("repository: nested transaction")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(&Repository{db: r.db, q: tx})
}

// wrapError converts driver errors to repository errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
	}
	return err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

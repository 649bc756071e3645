// Package dbx holds the small database/sql helpers the repositories share.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is what a repository needs from its handle. *sql.DB, *sql.Tx and
// *sql.Conn all satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxFunc is a unit of work run against a transactional handle.
type TxFunc func(ctx context.Context, tx DBTX) error

// WithTx runs fn in a new transaction on db. The transaction commits when fn
// returns nil and rolls back otherwise. A panic in fn rolls back and is
// re-raised.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn TxFunc) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
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
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("commit transaction: %w", cerr)
		}
	}()

	return fn(ctx, tx)
}

// Atomic runs fn so that its statements apply all or nothing. On a *sql.DB
// a transaction is started; any other handle is assumed to already be one
// (or to belong to the caller, who decides), and fn joins it.
func Atomic(ctx context.Context, h DBTX, fn TxFunc) error {
	if db, ok := h.(*sql.DB); ok {
		return WithTx(ctx, db, nil, fn)
	}
	return fn(ctx, h)
}

// Package repository is the shared data access layer for the billing and
// session lifecycle core. All four core components read and write through
// these queries; the atomicity-sensitive ones (conditional balance debit,
// status-guarded session transitions, fulfillment markers) are expressed as
// single conditional statements so the database enforces them.
package repository

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same queries run
// standalone or inside a transaction.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// New creates a Queries instance over the given database handle.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries holds all database queries.
type Queries struct {
	db DBTX
}

// WithTx returns a Queries instance that runs against the transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

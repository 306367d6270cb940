// Package service contains the business logic layer.
//
// This file adapts the query layer to the per-service store interfaces.
// Services that compose several writes atomically (booking, fulfillment)
// depend on a Begin method returning a transaction-scoped store; in
// production that is a *repository.Queries bound to a *sql.Tx.
package service

import (
	"context"
	"database/sql"

	"github.com/tutorhive/tutorhive/internal/repository"
)

// txQueries is a transaction-scoped query layer. Writes take effect only
// on Commit; Rollback after Commit is a no-op.
type txQueries struct {
	*repository.Queries
	tx *sql.Tx
}

func (t *txQueries) Commit() error   { return t.tx.Commit() }
func (t *txQueries) Rollback() error { return t.tx.Rollback() }

func beginTxQueries(ctx context.Context, db *sql.DB, queries *repository.Queries) (*txQueries, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &txQueries{Queries: queries.WithTx(tx), tx: tx}, nil
}

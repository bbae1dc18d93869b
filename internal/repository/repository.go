// Package repository persists papers, votes, user tags and job checkpoints
// in Postgres. Queries are built with squirrel and run over database.DBTX,
// so every method works against the pool, a transaction or pgxmock alike.
//
// Failures carry domain errors where the caller branches on them:
// domain.ErrNotFound for a missing row and domain.ErrAlreadyExists for a
// unique violation. Everything else is wrapped with the failing step.
//
// Batch inserts and tag read-modify-writes run in their own transaction.
// Handing a pgx.Tx in as the TxDB turns those into savepoints.
package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helixir/paper-feed-service/internal/database"
)

type DBTX = database.DBTX

// TxDB is a DBTX that can open a transaction: *database.DB, *pgxpool.Pool
// and pgx.Tx all qualify.
type TxDB interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// psql is the statement builder for every query in this package.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// SQLSTATE codes the repositories translate.
const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == code
}

// withTx commits when fn succeeds and rolls back when it fails. A failed
// rollback is joined to fn's error.
func withTx(ctx context.Context, db TxDB, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

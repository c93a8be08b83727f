// Package crdb persists rooms, guests and reservations in CockroachDB
// through pgx. All booking writes run in SERIALIZABLE transactions;
// conflicts detected by the database surface as
// domain.ErrSerializationFailure for the engine to retry.
package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/hotel-reservations/internal/domain"
	"github.com/robertarktes/hotel-reservations/internal/observability"
)

const (
	SerializationFailureCode = "40001"
	UniqueViolationCode      = "23505"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.DBTxDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		return mapPgError(err)
	}

	return mapPgError(tx.Commit(ctx))
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
		return domain.ErrSerializationFailure
	}
	return err
}

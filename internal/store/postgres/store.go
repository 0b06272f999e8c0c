// Package postgres implements the persistence collaborator on pgx.
//
// Uniqueness is enforced by named constraints and translated into core error
// kinds, so a lost race surfaces as ErrConflict / ErrAlreadyInvoiced /
// ErrAlreadyExists instead of a driver error.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"syzygy-tms/internal/core"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements core.Store on a connection pool.
type Store struct {
	queries
	pool *pgxpool.Pool
}

var _ core.Store = (*Store)(nil)

func New(pool *pgxpool.Pool) *Store {
	return &Store{queries: queries{db: pool}, pool: pool}
}

// InTx runs fn in a READ COMMITTED transaction. Row locks taken by
// LockOrder / LockInvoice are held until commit.
func (s *Store) InTx(ctx context.Context, fn func(q core.Queries) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&queries{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapError(err))
	}
	return nil
}

const (
	sqlstateUniqueViolation     = "23505"
	sqlstateForeignKeyViolation = "23503"
	sqlstateSerialization       = "40001"
	sqlstateDeadlock            = "40P01"
)

// mapError translates driver errors into core error kinds.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case sqlstateUniqueViolation:
		switch pgErr.ConstraintName {
		case "invoices_order_id_key":
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, core.ErrAlreadyInvoiced)
		case "trips_order_id_key", "orders_ref_key":
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, core.ErrAlreadyExists)
		default:
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, core.ErrConflict)
		}
	case sqlstateForeignKeyViolation:
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, core.ErrNotFound)
	case sqlstateSerialization, sqlstateDeadlock:
		return fmt.Errorf("%s: %w", pgErr.Message, core.ErrConflict)
	}
	return err
}

func notFound(what string, id any, err error) error {
	mapped := mapError(err)
	if errors.Is(mapped, core.ErrNotFound) {
		return fmt.Errorf("%s %v: %w", what, id, core.ErrNotFound)
	}
	return fmt.Errorf("failed to read %s %v: %w", what, id, mapped)
}

package postgres

import (
	"context"
	"fmt"

	"github.com/DanielPopoola/coach-settlement/internal/core/ports"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionCoordinator hands ledger and catalog repositories bound to one
// transaction to fn, committing only when fn returns nil.
type TransactionCoordinator struct {
	pool *pgxpool.Pool
}

func NewTransactionCoordinator(db *DB) *TransactionCoordinator {
	return &TransactionCoordinator{
		pool: db.Pool,
	}
}

func (tc *TransactionCoordinator) WithTransaction(
	ctx context.Context,
	fn func(ctx context.Context, ledger ports.LedgerRepository, catalog ports.CatalogRepository) error,
) error {
	tx, err := tc.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &LedgerRepository{q: tx}, &CatalogRepository{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskflow-api/internal/platform/logger"
)

// TxFn is a function that executes within a database transaction.
// It receives the context and the open transaction, and reports failure by
// returning an error. The transaction is committed if the function returns
// nil, or rolled back if it returns an error.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTransaction executes fn within a database transaction.
//
// Stores obtained through WithTx(tx) inside fn share the transaction, so every
// row locked with SELECT ... FOR UPDATE stays locked until fn returns and the
// transaction commits or rolls back. The services rely on this to run a guard
// check and the mutation it permits as one unit.
//
// If fn returns an error the transaction is rolled back and the error is
// returned unchanged, so callers can still match sentinels with errors.Is.
// A panic inside fn rolls the transaction back and is re-raised.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn) error {
	// Prefer the request-scoped logger so transaction failures carry the
	// request's trace id.
	log := logger.FromContext(ctx)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", slog.String("error", err.Error()))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Roll back on panic so the connection is not returned to the pool with
	// an open transaction, then let the panic continue.
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to roll back transaction after panic",
					slog.String("error", rbErr.Error()),
					slog.Any("panic", p))
			} else {
				log.Error("rolled back transaction after panic", slog.Any("panic", p))
			}
			// ALLOW-PANIC: re-raising the panic recovered above
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("failed to roll back transaction",
				slog.String("rollback_error", rbErr.Error()),
				slog.String("original_error", err.Error()))
			// Keep the original error wrapped so sentinels still match.
			return fmt.Errorf("error rolling back transaction: %v (original error: %w)", rbErr, err)
		}
		// Guard violations and permission errors end up here; they are
		// expected outcomes, hence debug level.
		log.Debug("rolled back transaction due to error", slog.String("error", err.Error()))
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction", slog.String("error", err.Error()))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Debug("transaction committed")
	return nil
}

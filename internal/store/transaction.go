package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-fsrs/internal/platform/logger"
)

// TxFn is the unit of work run by RunInTransaction.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTransaction runs fn inside one transaction, committing when it returns
// nil and rolling back otherwise. A card and its review log entry are always
// written through a single call. A panic in fn rolls back and is re-raised.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn) error {
	log := logger.FromContext(ctx).With(slog.String("component", "transaction"))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("begin failed", slog.String("error", err.Error()))
		return fmt.Errorf("%w: begin: %w", ErrTransactionFailed, err)
	}

	defer func() {
		if p := recover(); p != nil {
			rollback(log, tx, fmt.Errorf("panic: %v", p))
			// ALLOW-PANIC: re-raised after rollback
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := rollback(log, tx, err); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("commit failed", slog.String("error", err.Error()))
		return fmt.Errorf("%w: commit: %w", ErrTransactionFailed, err)
	}
	return nil
}

// rollback aborts tx after cause. It returns a wrapped error only when the
// rollback itself failed.
func rollback(log *slog.Logger, tx *sql.Tx, cause error) error {
	err := tx.Rollback()
	if err == nil || errors.Is(err, sql.ErrTxDone) {
		log.Debug("rolled back", slog.String("cause", cause.Error()))
		return nil
	}
	log.Error("rollback failed",
		slog.String("error", err.Error()),
		slog.String("cause", cause.Error()))
	return fmt.Errorf("%w: rollback: %w", ErrTransactionFailed, err)
}

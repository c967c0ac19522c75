package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/careops/careops-backend/pkg/errors"
)

// Transaction executes fn within a database transaction. The transaction is
// stored in the context so DB query methods route through it; nested calls
// join the already-open transaction instead of starting a new one.
func (db *DB) Transaction(ctx context.Context, fn func(context.Context) error) error {
	return db.transact(ctx, nil, "", fn)
}

// WithTenantRLS executes fn in a transaction with row-level-security tenant
// isolation. It sets "SET LOCAL app.current_tenant" so RLS policies filter
// rows to the tenant; SET LOCAL is scoped to the transaction, so pooled
// connections come back clean.
func (db *DB) WithTenantRLS(ctx context.Context, tenantID string, fn func(context.Context) error) error {
	return db.transact(ctx, nil, tenantID, fn)
}

// RunSerializable executes fn in a SERIALIZABLE tenant transaction, retrying
// with exponential backoff when the store aborts on contention. fn must be
// idempotent up to commit: no side effects outside the transaction.
// Retry exhaustion surfaces as a Conflict error.
func (db *DB) RunSerializable(ctx context.Context, tenantID string, fn func(context.Context) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelSerializable}

	operation := func() error {
		err := db.transact(ctx, opts, tenantID, fn)
		if err == nil {
			return nil
		}
		if IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(db.txMaxRetries)), ctx))
	if err != nil && IsRetryable(err) {
		db.logger.Warn().Err(err).Msg("transaction retries exhausted")
		return errors.Conflict("operation aborted after retries due to contention")
	}
	return err
}

// transact is the shared transaction runner. An empty tenantID skips the RLS
// session variable (used for cross-tenant maintenance queries).
func (db *DB) transact(ctx context.Context, opts *sql.TxOptions, tenantID string, fn func(context.Context) error) error {
	// Join an already-open transaction.
	if tx := TxFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if tenantID != "" {
		// SET LOCAL doesn't support bind parameters. tenantID is a UUID
		// validated upstream, not raw user input.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL app.current_tenant = '%s'", tenantID)); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				db.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
			return fmt.Errorf("failed to set app.current_tenant: %w", err)
		}
	}

	if err := fn(withTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

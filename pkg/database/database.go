package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/careops/careops-backend/pkg/config"
	"github.com/careops/careops-backend/pkg/logger"
)

// DB wraps sqlx.DB with transaction-in-context routing and tenant isolation.
// Query methods defined on DB prefer the transaction stored in the context,
// so repository code works unchanged inside and outside WithTenantRLS.
type DB struct {
	*sqlx.DB
	logger       *logger.Logger
	queryTimeout time.Duration
	txMaxRetries int
}

// New creates a new database connection
func New(cfg *config.DatabaseConfig, log *logger.Logger) (*DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return &DB{
		DB:           db,
		logger:       log,
		queryTimeout: cfg.QueryTimeout,
		txMaxRetries: cfg.TxMaxRetries,
	}, nil
}

// NewWithDSN creates a new database connection with a DSN string
func NewWithDSN(dsn string, log *logger.Logger) (*DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{
		DB:           db,
		logger:       log,
		queryTimeout: 10 * time.Second,
		txMaxRetries: 5,
	}, nil
}

// FromSqlx wraps an existing sqlx.DB. Used by tests with sqlmock.
func FromSqlx(db *sqlx.DB, log *logger.Logger) *DB {
	return &DB{
		DB:           db,
		logger:       log,
		queryTimeout: 10 * time.Second,
		txMaxRetries: 5,
	}
}

// Ping checks the database connection
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// Health returns the health status of the database
func (db *DB) Health(ctx context.Context) map[string]string {
	status := map[string]string{
		"status": "up",
	}

	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		status["status"] = "down"
		status["error"] = err.Error()
	}

	return status
}

type txKey struct{}

// TxFromContext extracts the transaction from context if present
func TxFromContext(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}

// withTx stores the transaction in the context so DB query methods route
// through it.
func withTx(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// GetContext routes to the context transaction when one is active.
func (db *DB) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	if tx := TxFromContext(ctx); tx != nil {
		return tx.GetContext(ctx, dest, query, args...)
	}
	ctx, cancel := context.WithTimeout(ctx, db.queryTimeout)
	defer cancel()
	return db.DB.GetContext(ctx, dest, query, args...)
}

// SelectContext routes to the context transaction when one is active.
func (db *DB) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	if tx := TxFromContext(ctx); tx != nil {
		return tx.SelectContext(ctx, dest, query, args...)
	}
	ctx, cancel := context.WithTimeout(ctx, db.queryTimeout)
	defer cancel()
	return db.DB.SelectContext(ctx, dest, query, args...)
}

// ExecContext routes to the context transaction when one is active.
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if tx := TxFromContext(ctx); tx != nil {
		return tx.ExecContext(ctx, query, args...)
	}
	ctx, cancel := context.WithTimeout(ctx, db.queryTimeout)
	defer cancel()
	return db.DB.ExecContext(ctx, query, args...)
}

// QueryRowxContext routes to the context transaction when one is active.
// No query timeout is applied here: the returned row is scanned by the
// caller after this method returns.
func (db *DB) QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	if tx := TxFromContext(ctx); tx != nil {
		return tx.QueryRowxContext(ctx, query, args...)
	}
	return db.DB.QueryRowxContext(ctx, query, args...)
}

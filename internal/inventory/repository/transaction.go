package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/careops/careops-backend/pkg/database"
	"github.com/careops/careops-backend/pkg/tenant"
)

// Stock transaction types
const (
	TxStockIn    = "STOCK_IN"
	TxStockOut   = "STOCK_OUT"
	TxTransfer   = "TRANSFER"
	TxAdjustment = "ADJUSTMENT"
	TxExpired    = "EXPIRED"
	TxDamaged    = "DAMAGED"
)

// StockTransaction is an immutable log entry for a stock movement.
// Rows are appended on success only and never updated or deleted.
type StockTransaction struct {
	ID              string    `db:"id" json:"id"`
	ItemID          string    `db:"item_id" json:"item_id"`
	BatchID         string    `db:"batch_id" json:"batch_id"`
	TransactionType string    `db:"transaction_type" json:"transaction_type"`
	Quantity        int       `db:"quantity" json:"quantity"`
	FromLocationID  *string   `db:"from_location_id" json:"from_location_id,omitempty"`
	ToLocationID    *string   `db:"to_location_id" json:"to_location_id,omitempty"`
	Reference       *string   `db:"reference" json:"reference,omitempty"`
	Notes           *string   `db:"notes" json:"notes,omitempty"`
	PerformedBy     string    `db:"performed_by" json:"performed_by"`
	PerformedAt     time.Time `db:"performed_at" json:"performed_at"`
}

// TransactionRepository handles the append-only stock transaction log
type TransactionRepository struct {
	db *database.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Insert appends a transaction log entry. performed_at is server-assigned.
// Runs inside the transaction processor's store transaction.
func (r *TransactionRepository) Insert(ctx context.Context, tx *StockTransaction) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}

	query := `
		INSERT INTO stock_transactions (
			id, tenant_id, item_id, batch_id, transaction_type, quantity,
			from_location_id, to_location_id, reference, notes, performed_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING performed_at
	`
	err = r.db.QueryRowxContext(ctx, query,
		tx.ID, tenantID, tx.ItemID, tx.BatchID, tx.TransactionType, tx.Quantity,
		tx.FromLocationID, tx.ToLocationID, tx.Reference, tx.Notes, tx.PerformedBy,
	).Scan(&tx.PerformedAt)
	if err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return mapped
		}
	}
	return err
}

// ListByItem lists transactions for an item, most recent first
func (r *TransactionRepository) ListByItem(ctx context.Context, itemID string, page, perPage int) ([]*StockTransaction, int64, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	var txs []*StockTransaction

	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		countQuery := `SELECT COUNT(*) FROM stock_transactions WHERE item_id = $1`
		if err := r.db.GetContext(ctx, &total, countQuery, itemID); err != nil {
			return err
		}

		offset := (page - 1) * perPage
		query := `
			SELECT id, item_id, batch_id, transaction_type, quantity,
			       from_location_id, to_location_id, reference, notes,
			       performed_by, performed_at
			FROM stock_transactions
			WHERE item_id = $1
			ORDER BY performed_at DESC
			LIMIT $2 OFFSET $3
		`
		return r.db.SelectContext(ctx, &txs, query, itemID, perPage, offset)
	})
	if err != nil {
		return nil, 0, err
	}

	return txs, total, nil
}

// ListByBatch lists the full movement history of one batch, oldest first
func (r *TransactionRepository) ListByBatch(ctx context.Context, batchID string) ([]*StockTransaction, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var txs []*StockTransaction
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT id, item_id, batch_id, transaction_type, quantity,
			       from_location_id, to_location_id, reference, notes,
			       performed_by, performed_at
			FROM stock_transactions
			WHERE batch_id = $1
			ORDER BY performed_at
		`
		return r.db.SelectContext(ctx, &txs, query, batchID)
	})
	if err != nil {
		return nil, err
	}
	return txs, nil
}

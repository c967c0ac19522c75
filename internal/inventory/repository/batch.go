package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/careops/careops-backend/pkg/database"
	"github.com/careops/careops-backend/pkg/errors"
	"github.com/careops/careops-backend/pkg/tenant"
)

// Batch represents a traceable lot of an item at one location.
// quantity is only ever written by the transaction processor; the ledger
// itself enforces nothing beyond the schema's non-negativity check.
type Batch struct {
	ID                string     `db:"id" json:"id"`
	ItemID            string     `db:"item_id" json:"item_id"`
	BatchNumber       string     `db:"batch_number" json:"batch_number"`
	ManufacturingDate *time.Time `db:"manufacturing_date" json:"manufacturing_date,omitempty"`
	ExpiryDate        time.Time  `db:"expiry_date" json:"expiry_date"`
	Quantity          int        `db:"quantity" json:"quantity"`
	UnitCostCents     int        `db:"unit_cost_cents" json:"unit_cost_cents"`
	LocationID        string     `db:"location_id" json:"location_id"`
	SupplierID        *string    `db:"supplier_id" json:"supplier_id,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
	// Computed field for API compatibility
	UnitCost float64 `db:"-" json:"unit_cost"`
}

const batchColumns = `id, item_id, batch_number, manufacturing_date, expiry_date,
	       quantity, unit_cost_cents, location_id, supplier_id, created_at, updated_at`

// BatchRepository handles batch persistence
type BatchRepository struct {
	db *database.DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *database.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create creates a new batch
func (r *BatchRepository) Create(ctx context.Context, batch *Batch) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO batches (
				id, tenant_id, item_id, batch_number, manufacturing_date,
				expiry_date, quantity, unit_cost_cents, location_id, supplier_id
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at, updated_at
		`
		err := r.db.QueryRowxContext(ctx, query,
			batch.ID, tenantID, batch.ItemID, batch.BatchNumber, batch.ManufacturingDate,
			batch.ExpiryDate, batch.Quantity, batch.UnitCostCents, batch.LocationID,
			batch.SupplierID,
		).Scan(&batch.CreatedAt, &batch.UpdatedAt)
		if err != nil {
			if mapped := database.MapPQError(err); mapped != nil {
				return mapped
			}
			return err
		}
		batch.UnitCost = float64(batch.UnitCostCents) / 100.0
		return nil
	})
}

// GetByID gets a batch by ID
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*Batch, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var batch Batch
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `SELECT ` + batchColumns + ` FROM batches WHERE id = $1`
		return r.db.GetContext(ctx, &batch, query, id)
	})

	if err == sql.ErrNoRows {
		return nil, errors.NotFound("batch")
	}
	if err != nil {
		return nil, err
	}

	batch.UnitCost = float64(batch.UnitCostCents) / 100.0
	return &batch, nil
}

// GetForUpdate loads a batch with a row lock. Must run inside a transaction;
// concurrent movements on the same batch serialize here.
func (r *BatchRepository) GetForUpdate(ctx context.Context, id string) (*Batch, error) {
	var batch Batch
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = $1 FOR UPDATE`
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	batch.UnitCost = float64(batch.UnitCostCents) / 100.0
	return &batch, nil
}

// FindAtLocationForUpdate finds the batch for the same lot at a location,
// with a row lock. TRANSFER uses it to locate the credit side, STOCK_IN to
// find an existing lot before creating one.
func (r *BatchRepository) FindAtLocationForUpdate(ctx context.Context, itemID, batchNumber string, expiryDate time.Time, locationID string) (*Batch, error) {
	var batch Batch
	query := `
		SELECT ` + batchColumns + `
		FROM batches
		WHERE item_id = $1 AND batch_number = $2 AND expiry_date = $3::date AND location_id = $4
		FOR UPDATE
	`
	if err := r.db.GetContext(ctx, &batch, query, itemID, batchNumber, expiryDate, locationID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	batch.UnitCost = float64(batch.UnitCostCents) / 100.0
	return &batch, nil
}

// SetQuantity writes an already-validated quantity. Only the transaction
// processor calls this, inside its transaction.
func (r *BatchRepository) SetQuantity(ctx context.Context, id string, quantity int) error {
	query := `UPDATE batches SET quantity = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, quantity)
	if err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return mapped
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("batch")
	}
	return nil
}

// ListByItem lists batches for an item, soonest expiry first
func (r *BatchRepository) ListByItem(ctx context.Context, itemID string) ([]*Batch, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var batches []*Batch
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT ` + batchColumns + ` FROM batches
			WHERE item_id = $1
			ORDER BY expiry_date
		`
		return r.db.SelectContext(ctx, &batches, query, itemID)
	})
	if err != nil {
		return nil, err
	}

	for _, b := range batches {
		b.UnitCost = float64(b.UnitCostCents) / 100.0
	}
	return batches, nil
}

// TotalStock sums on-hand quantity for an item across all locations
func (r *BatchRepository) TotalStock(ctx context.Context, itemID string) (int, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return 0, err
	}

	var total sql.NullInt64
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `SELECT SUM(quantity) FROM batches WHERE item_id = $1`
		return r.db.GetContext(ctx, &total, query, itemID)
	})
	if err != nil {
		return 0, err
	}
	if !total.Valid {
		return 0, nil
	}
	return int(total.Int64), nil
}

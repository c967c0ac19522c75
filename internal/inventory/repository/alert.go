package repository

import (
	"context"
	"time"

	"github.com/careops/careops-backend/pkg/database"
	"github.com/careops/careops-backend/pkg/tenant"
)

// LowStockAlert reports an item whose total on-hand stock has fallen
// below its reorder point
type LowStockAlert struct {
	ItemID        string `db:"item_id" json:"item_id"`
	ItemNumber    int64  `db:"item_number" json:"item_number"`
	Name          string `db:"name" json:"name"`
	Category      string `db:"category" json:"category"`
	Unit          string `db:"unit" json:"unit"`
	TotalQuantity int    `db:"total_quantity" json:"total_quantity"`
	MinStockLevel int    `db:"min_stock_level" json:"min_stock_level"`
	ReorderPoint  int    `db:"reorder_point" json:"reorder_point"`
}

// ExpiringBatch reports a batch whose expiry date falls inside the
// lookahead window and still holds stock
type ExpiringBatch struct {
	BatchID     string    `db:"batch_id" json:"batch_id"`
	BatchNumber string    `db:"batch_number" json:"batch_number"`
	ItemID      string    `db:"item_id" json:"item_id"`
	ItemName    string    `db:"item_name" json:"item_name"`
	LocationID  string    `db:"location_id" json:"location_id"`
	Quantity    int       `db:"quantity" json:"quantity"`
	ExpiryDate  time.Time `db:"expiry_date" json:"expiry_date"`
	DaysLeft    int       `db:"days_left" json:"days_left"`
}

// AlertRepository computes stock alert views. Alerts are derived from
// current state on every call, never stored.
type AlertRepository struct {
	db *database.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *database.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// LowStock returns active items whose summed batch quantity is below
// reorder_point. Items with no batches count as zero stock, so an item
// with a positive reorder point and no batches is included.
func (r *AlertRepository) LowStock(ctx context.Context) ([]*LowStockAlert, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var alerts []*LowStockAlert
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT i.id AS item_id, i.item_number, i.name, i.category, i.unit,
			       COALESCE(SUM(b.quantity), 0) AS total_quantity,
			       i.min_stock_level, i.reorder_point
			FROM items i
			LEFT JOIN batches b ON b.item_id = i.id
			WHERE i.is_active = true
			GROUP BY i.id, i.item_number, i.name, i.category, i.unit,
			         i.min_stock_level, i.reorder_point
			HAVING COALESCE(SUM(b.quantity), 0) < i.reorder_point
			ORDER BY i.name
		`
		return r.db.SelectContext(ctx, &alerts, query)
	})
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// Expiring returns batches with stock whose expiry date falls within the
// next days days, soonest first. Already expired batches are excluded.
func (r *AlertRepository) Expiring(ctx context.Context, days int) ([]*ExpiringBatch, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var batches []*ExpiringBatch
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT b.id AS batch_id, b.batch_number, b.item_id, i.name AS item_name,
			       b.location_id, b.quantity, b.expiry_date,
			       (b.expiry_date - CURRENT_DATE) AS days_left
			FROM batches b
			JOIN items i ON i.id = b.item_id
			WHERE b.quantity > 0
			  AND b.expiry_date > CURRENT_DATE
			  AND b.expiry_date <= CURRENT_DATE + $1::int
			ORDER BY b.expiry_date, i.name
		`
		return r.db.SelectContext(ctx, &batches, query, days)
	})
	if err != nil {
		return nil, err
	}
	return batches, nil
}

// Expired returns batches past their expiry date that still hold stock
// and need to be written off
func (r *AlertRepository) Expired(ctx context.Context) ([]*ExpiringBatch, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var batches []*ExpiringBatch
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT b.id AS batch_id, b.batch_number, b.item_id, i.name AS item_name,
			       b.location_id, b.quantity, b.expiry_date,
			       (b.expiry_date - CURRENT_DATE) AS days_left
			FROM batches b
			JOIN items i ON i.id = b.item_id
			WHERE b.quantity > 0
			  AND b.expiry_date <= CURRENT_DATE
			ORDER BY b.expiry_date, i.name
		`
		return r.db.SelectContext(ctx, &batches, query)
	})
	if err != nil {
		return nil, err
	}
	return batches, nil
}

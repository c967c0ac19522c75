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

// Purchase order statuses
const (
	OrderDraft     = "DRAFT"
	OrderPending   = "PENDING"
	OrderApproved  = "APPROVED"
	OrderOrdered   = "ORDERED"
	OrderReceived  = "RECEIVED"
	OrderCancelled = "CANCELLED"
)

var orderTransitions = map[string][]string{
	OrderDraft:    {OrderPending, OrderCancelled},
	OrderPending:  {OrderApproved, OrderCancelled},
	OrderApproved: {OrderOrdered, OrderCancelled},
	OrderOrdered:  {OrderReceived, OrderCancelled},
}

// CanTransition reports whether a purchase order may move from one status to another
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether a status admits no further transitions
func IsTerminalStatus(status string) bool {
	return status == OrderReceived || status == OrderCancelled
}

// PurchaseOrderLine is one ordered item on a purchase order
type PurchaseOrderLine struct {
	ID             string `db:"id" json:"id"`
	OrderID        string `db:"order_id" json:"-"`
	ItemID         string `db:"item_id" json:"item_id"`
	Quantity       int    `db:"quantity" json:"quantity"`
	UnitPriceCents int    `db:"unit_price_cents" json:"-"`
	LineTotalCents int    `db:"line_total_cents" json:"-"`

	UnitPrice float64 `db:"-" json:"unit_price"`
	LineTotal float64 `db:"-" json:"line_total"`
}

// PurchaseOrder is an order placed with a supplier
type PurchaseOrder struct {
	ID           string     `db:"id" json:"id"`
	OrderNumber  int64      `db:"order_number" json:"order_number"`
	SupplierID   string     `db:"supplier_id" json:"supplier_id"`
	Status       string     `db:"status" json:"status"`
	TotalCents   int        `db:"total_cents" json:"-"`
	ExpectedDate *time.Time `db:"expected_date" json:"expected_date,omitempty"`
	ReceivedDate *time.Time `db:"received_date" json:"received_date,omitempty"`
	Notes        *string    `db:"notes" json:"notes,omitempty"`
	ApprovedBy   *string    `db:"approved_by" json:"approved_by,omitempty"`
	CreatedBy    string     `db:"created_by" json:"created_by"`
	UpdatedBy    string     `db:"updated_by" json:"updated_by"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`

	Total float64             `db:"-" json:"total"`
	Lines []PurchaseOrderLine `db:"-" json:"lines,omitempty"`
}

// ComputeMoney fills the derived float money fields from the cent columns
func (o *PurchaseOrder) ComputeMoney() {
	o.Total = float64(o.TotalCents) / 100
	for i := range o.Lines {
		o.Lines[i].UnitPrice = float64(o.Lines[i].UnitPriceCents) / 100
		o.Lines[i].LineTotal = float64(o.Lines[i].LineTotalCents) / 100
	}
}

const orderColumns = `
	id, order_number, supplier_id, status, total_cents,
	expected_date, received_date, notes, approved_by,
	created_by, updated_by, created_at, updated_at
`

// PurchaseOrderRepository handles purchase order data access
type PurchaseOrderRepository struct {
	db *database.DB
}

// NewPurchaseOrderRepository creates a new purchase order repository
func NewPurchaseOrderRepository(db *database.DB) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{db: db}
}

// Create inserts a purchase order with its lines. The order number and
// totals are assigned by the service before the call; the call must run
// inside the service's transaction so the minted number commits with it.
func (r *PurchaseOrderRepository) Create(ctx context.Context, order *PurchaseOrder) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if order.ID == "" {
		order.ID = uuid.New().String()
	}

	query := `
		INSERT INTO purchase_orders (
			id, tenant_id, order_number, supplier_id, status, total_cents,
			expected_date, notes, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	err = r.db.QueryRowxContext(ctx, query,
		order.ID, tenantID, order.OrderNumber, order.SupplierID, order.Status,
		order.TotalCents, order.ExpectedDate, order.Notes,
		order.CreatedBy, order.UpdatedBy,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return mapped
		}
		return err
	}

	lineQuery := `
		INSERT INTO purchase_order_lines (
			id, tenant_id, order_id, item_id, quantity, unit_price_cents, line_total_cents
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i := range order.Lines {
		line := &order.Lines[i]
		if line.ID == "" {
			line.ID = uuid.New().String()
		}
		line.OrderID = order.ID
		_, err := r.db.ExecContext(ctx, lineQuery,
			line.ID, tenantID, order.ID, line.ItemID,
			line.Quantity, line.UnitPriceCents, line.LineTotalCents,
		)
		if err != nil {
			if mapped := database.MapPQError(err); mapped != nil {
				return mapped
			}
			return err
		}
	}

	order.ComputeMoney()
	return nil
}

// GetByID retrieves a purchase order with its lines
func (r *PurchaseOrderRepository) GetByID(ctx context.Context, id string) (*PurchaseOrder, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var order PurchaseOrder
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `SELECT ` + orderColumns + ` FROM purchase_orders WHERE id = $1`
		if err := r.db.GetContext(ctx, &order, query, id); err != nil {
			return err
		}
		return r.loadLines(ctx, &order)
	})
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("purchase order")
		}
		return nil, err
	}

	order.ComputeMoney()
	return &order, nil
}

// GetForUpdate locks an order row for a status transition.
// Must run inside the caller's transaction.
func (r *PurchaseOrderRepository) GetForUpdate(ctx context.Context, id string) (*PurchaseOrder, error) {
	var order PurchaseOrder
	query := `SELECT ` + orderColumns + ` FROM purchase_orders WHERE id = $1 FOR UPDATE`
	if err := r.db.GetContext(ctx, &order, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("purchase order")
		}
		return nil, err
	}
	if err := r.loadLines(ctx, &order); err != nil {
		return nil, err
	}
	order.ComputeMoney()
	return &order, nil
}

// List lists purchase orders, newest first, optionally filtered by status
func (r *PurchaseOrderRepository) List(ctx context.Context, status string, page, perPage int) ([]*PurchaseOrder, int64, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	var orders []*PurchaseOrder

	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		countQuery := `SELECT COUNT(*) FROM purchase_orders WHERE ($1 = '' OR status = $1)`
		if err := r.db.GetContext(ctx, &total, countQuery, status); err != nil {
			return err
		}

		offset := (page - 1) * perPage
		query := `
			SELECT ` + orderColumns + `
			FROM purchase_orders
			WHERE ($1 = '' OR status = $1)
			ORDER BY order_number DESC
			LIMIT $2 OFFSET $3
		`
		return r.db.SelectContext(ctx, &orders, query, status, perPage, offset)
	})
	if err != nil {
		return nil, 0, err
	}

	for _, order := range orders {
		order.ComputeMoney()
	}
	return orders, total, nil
}

// UpdateStatus records a status change. The caller validates the transition
// and holds the row lock; received_date is set when moving to RECEIVED and
// approved_by records the acting user when moving to APPROVED.
func (r *PurchaseOrderRepository) UpdateStatus(ctx context.Context, id, status, updatedBy string) error {
	query := `
		UPDATE purchase_orders
		SET status = $2,
		    received_date = CASE WHEN $2 = 'RECEIVED' THEN CURRENT_DATE ELSE received_date END,
		    approved_by = CASE WHEN $2 = 'APPROVED' THEN $3 ELSE approved_by END,
		    updated_by = $3,
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, status, updatedBy)
	if err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return mapped
		}
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("purchase order")
	}
	return nil
}

func (r *PurchaseOrderRepository) loadLines(ctx context.Context, order *PurchaseOrder) error {
	query := `
		SELECT id, order_id, item_id, quantity, unit_price_cents, line_total_cents
		FROM purchase_order_lines
		WHERE order_id = $1
		ORDER BY id
	`
	return r.db.SelectContext(ctx, &order.Lines, query, order.ID)
}

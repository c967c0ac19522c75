package repository

import (
	"context"

	"github.com/careops/careops-backend/pkg/database"
	"github.com/careops/careops-backend/pkg/tenant"
)

// Counter names
const (
	CounterItemNumber  = "item_number"
	CounterOrderNumber = "order_number"
)

// CounterRepository mints gapless per-tenant sequence numbers.
// The upsert row-locks the counter row, so concurrent callers inside
// separate transactions serialize on it and each observe a distinct value.
type CounterRepository struct {
	db *database.DB
}

// NewCounterRepository creates a new counter repository
func NewCounterRepository(db *database.DB) *CounterRepository {
	return &CounterRepository{db: db}
}

// Next increments and returns the named counter for the current tenant.
// Must run inside the caller's transaction so the minted number is only
// consumed if the enclosing operation commits.
func (r *CounterRepository) Next(ctx context.Context, name string) (int64, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO counters (tenant_id, name, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, name)
		DO UPDATE SET value = counters.value + 1
		RETURNING value
	`
	var value int64
	if err := r.db.QueryRowxContext(ctx, query, tenantID, name).Scan(&value); err != nil {
		if mapped := database.MapPQError(err); mapped != nil {
			return 0, mapped
		}
		return 0, err
	}
	return value, nil
}

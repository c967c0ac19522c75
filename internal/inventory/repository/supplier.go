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

// Supplier represents a vendor in the supplier directory
type Supplier struct {
	ID                 string    `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	ContactPerson      string    `db:"contact_person" json:"contact_person"`
	Email              string    `db:"email" json:"email"`
	Phone              string    `db:"phone" json:"phone"`
	Address            string    `db:"address" json:"address"`
	TaxID              *string   `db:"tax_id" json:"tax_id,omitempty"`
	RegistrationNumber *string   `db:"registration_number" json:"registration_number,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// SupplierReferences counts the records still pointing at a supplier.
// Deleting a supplier with live references would orphan batch provenance and
// in-flight orders.
type SupplierReferences struct {
	Batches    int64 `db:"batches" json:"batches"`
	OpenOrders int64 `db:"open_orders" json:"open_orders"`
}

// InUse reports whether any references remain
func (s SupplierReferences) InUse() bool {
	return s.Batches > 0 || s.OpenOrders > 0
}

// SupplierRepository handles supplier persistence
type SupplierRepository struct {
	db *database.DB
}

// NewSupplierRepository creates a new supplier repository
func NewSupplierRepository(db *database.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

// Create creates a new supplier
func (r *SupplierRepository) Create(ctx context.Context, s *Supplier) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO suppliers (
				id, tenant_id, name, contact_person, email, phone, address,
				tax_id, registration_number
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING created_at, updated_at
		`
		err := r.db.QueryRowxContext(ctx, query,
			s.ID, tenantID, s.Name, s.ContactPerson, s.Email, s.Phone, s.Address,
			s.TaxID, s.RegistrationNumber,
		).Scan(&s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			if mapped := database.MapPQError(err); mapped != nil {
				return mapped
			}
		}
		return err
	})
}

// GetByID gets a supplier by ID
func (r *SupplierRepository) GetByID(ctx context.Context, id string) (*Supplier, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var s Supplier
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT id, name, contact_person, email, phone, address, tax_id,
			       registration_number, created_at, updated_at
			FROM suppliers WHERE id = $1
		`
		return r.db.GetContext(ctx, &s, query, id)
	})

	if err == sql.ErrNoRows {
		return nil, errors.NotFound("supplier")
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// List lists all suppliers
func (r *SupplierRepository) List(ctx context.Context) ([]*Supplier, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var suppliers []*Supplier
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT id, name, contact_person, email, phone, address, tax_id,
			       registration_number, created_at, updated_at
			FROM suppliers ORDER BY name
		`
		return r.db.SelectContext(ctx, &suppliers, query)
	})
	if err != nil {
		return nil, err
	}
	return suppliers, nil
}

// Update updates a supplier
func (r *SupplierRepository) Update(ctx context.Context, s *Supplier) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			UPDATE suppliers SET
				name = $2, contact_person = $3, email = $4, phone = $5,
				address = $6, tax_id = $7, registration_number = $8,
				updated_at = NOW()
			WHERE id = $1
		`
		result, err := r.db.ExecContext(ctx, query,
			s.ID, s.Name, s.ContactPerson, s.Email, s.Phone, s.Address,
			s.TaxID, s.RegistrationNumber,
		)
		if err != nil {
			if mapped := database.MapPQError(err); mapped != nil {
				return mapped
			}
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("supplier")
		}
		return nil
	})
}

// References counts batches and non-terminal purchase orders that still
// point at the supplier.
func (r *SupplierRepository) References(ctx context.Context, id string) (*SupplierReferences, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var refs SupplierReferences
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT
				(SELECT COUNT(*) FROM batches WHERE supplier_id = $1) AS batches,
				(SELECT COUNT(*) FROM purchase_orders
				 WHERE supplier_id = $1 AND status NOT IN ('RECEIVED', 'CANCELLED')) AS open_orders
		`
		return r.db.GetContext(ctx, &refs, query, id)
	})
	if err != nil {
		return nil, err
	}
	return &refs, nil
}

// Delete hard-deletes a supplier. Callers must check References first;
// the service layer refuses to delete a supplier that is still in use.
func (r *SupplierRepository) Delete(ctx context.Context, id string) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		result, err := r.db.ExecContext(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
		if err != nil {
			if mapped := database.MapPQError(err); mapped != nil {
				return mapped
			}
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("supplier")
		}
		return nil
	})
}

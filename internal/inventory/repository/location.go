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

// Location types
const (
	LocationWarehouse = "WAREHOUSE"
	LocationPharmacy  = "PHARMACY"
	LocationStorage   = "STORAGE"
	LocationOther     = "OTHER"
)

// Location represents a physical or logical stock location
type Location struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Description  *string   `db:"description" json:"description,omitempty"`
	FacilityID   *string   `db:"facility_id" json:"facility_id,omitempty"`
	LocationType string    `db:"location_type" json:"location_type"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// LocationRepository handles location persistence
type LocationRepository struct {
	db *database.DB
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db *database.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// Create creates a new location
func (r *LocationRepository) Create(ctx context.Context, loc *Location) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if loc.ID == "" {
		loc.ID = uuid.New().String()
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO locations (id, tenant_id, name, description, facility_id, location_type)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at, updated_at
		`
		err := r.db.QueryRowxContext(ctx, query,
			loc.ID, tenantID, loc.Name, loc.Description, loc.FacilityID, loc.LocationType,
		).Scan(&loc.CreatedAt, &loc.UpdatedAt)
		if err != nil {
			if mapped := database.MapPQError(err); mapped != nil {
				return mapped
			}
		}
		return err
	})
}

// GetByID gets a location by ID
func (r *LocationRepository) GetByID(ctx context.Context, id string) (*Location, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var loc Location
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT id, name, description, facility_id, location_type, created_at, updated_at
			FROM locations WHERE id = $1
		`
		return r.db.GetContext(ctx, &loc, query, id)
	})

	if err == sql.ErrNoRows {
		return nil, errors.NotFound("location")
	}
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// List lists all locations
func (r *LocationRepository) List(ctx context.Context) ([]*Location, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var locations []*Location
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT id, name, description, facility_id, location_type, created_at, updated_at
			FROM locations ORDER BY name
		`
		return r.db.SelectContext(ctx, &locations, query)
	})
	if err != nil {
		return nil, err
	}
	return locations, nil
}

// Update updates a location
func (r *LocationRepository) Update(ctx context.Context, loc *Location) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			UPDATE locations SET
				name = $2, description = $3, facility_id = $4, location_type = $5,
				updated_at = NOW()
			WHERE id = $1
		`
		result, err := r.db.ExecContext(ctx, query,
			loc.ID, loc.Name, loc.Description, loc.FacilityID, loc.LocationType,
		)
		if err != nil {
			if mapped := database.MapPQError(err); mapped != nil {
				return mapped
			}
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("location")
		}
		return nil
	})
}

// Delete deletes a location
func (r *LocationRepository) Delete(ctx context.Context, id string) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		result, err := r.db.ExecContext(ctx, `DELETE FROM locations WHERE id = $1`, id)
		if err != nil {
			if mapped := database.MapPQError(err); mapped != nil {
				return mapped
			}
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("location")
		}
		return nil
	})
}

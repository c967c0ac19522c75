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

// Item categories
const (
	CategoryMedication   = "MEDICATION"
	CategorySurgicalTool = "SURGICAL_TOOL"
	CategoryPPE          = "PPE"
	CategoryConsumable   = "CONSUMABLE"
	CategoryEquipment    = "EQUIPMENT"
	CategoryOther        = "OTHER"
)

// Medical code types
const (
	CodeTypeSNOMED = "SNOMED"
	CodeTypeLOINC  = "LOINC"
	CodeTypeOther  = "OTHER"
)

// MedicalCode is a coded cross-reference attached to an item
type MedicalCode struct {
	Code        string  `db:"code" json:"code"`
	CodeType    string  `db:"code_type" json:"code_type"`
	Description *string `db:"description" json:"description,omitempty"`
}

// Item represents a catalog item
type Item struct {
	ID            string        `db:"id" json:"id"`
	ItemNumber    int64         `db:"item_number" json:"item_number"`
	Name          string        `db:"name" json:"name"`
	Description   *string       `db:"description" json:"description,omitempty"`
	Category      string        `db:"category" json:"category"`
	Unit          string        `db:"unit" json:"unit"`
	MinStockLevel int           `db:"min_stock_level" json:"min_stock_level"`
	ReorderPoint  int           `db:"reorder_point" json:"reorder_point"`
	IsActive      bool          `db:"is_active" json:"is_active"`
	CreatedBy     string        `db:"created_by" json:"created_by"`
	UpdatedBy     string        `db:"updated_by" json:"updated_by"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
	Codes         []MedicalCode `db:"-" json:"medical_codes"`
}

const itemColumns = `id, item_number, name, description, category, unit,
	       min_stock_level, reorder_point, is_active, created_by, updated_by,
	       created_at, updated_at`

// ItemRepository handles catalog item persistence
type ItemRepository struct {
	db *database.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create creates a new catalog item together with its medical codes.
// TENANT-ISOLATED: Inserts into the tenant's row set via RLS.
func (r *ItemRepository) Create(ctx context.Context, item *Item) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO items (
				id, tenant_id, item_number, name, description, category, unit,
				min_stock_level, reorder_point, is_active, created_by, updated_by
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING created_at, updated_at
		`

		err := r.db.QueryRowxContext(ctx, query,
			item.ID, tenantID, item.ItemNumber, item.Name, item.Description,
			item.Category, item.Unit, item.MinStockLevel, item.ReorderPoint,
			item.IsActive, item.CreatedBy, item.UpdatedBy,
		).Scan(&item.CreatedAt, &item.UpdatedAt)
		if err != nil {
			if mapped := database.MapPQError(err); mapped != nil {
				return mapped
			}
			return err
		}

		return r.replaceCodes(ctx, tenantID, item.ID, item.Codes)
	})
}

// GetByID gets an item by ID, including its medical codes.
// TENANT-ISOLATED via RLS.
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*Item, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var item Item

	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1 AND is_active = true`
		if err := r.db.GetContext(ctx, &item, query, id); err != nil {
			return err
		}
		return r.loadCodes(ctx, &item)
	})

	if err == sql.ErrNoRows {
		return nil, errors.NotFound("item")
	}
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// List lists items with pagination and an optional category filter.
// TENANT-ISOLATED via RLS.
func (r *ItemRepository) List(ctx context.Context, page, perPage int, category string) ([]*Item, int64, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	var items []*Item

	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		countQuery := `SELECT COUNT(*) FROM items WHERE is_active = true`
		args := []interface{}{}

		if category != "" {
			countQuery += ` AND category = $1`
			args = append(args, category)
		}

		if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
			return err
		}

		offset := (page - 1) * perPage
		query := `SELECT ` + itemColumns + ` FROM items WHERE is_active = true`
		if category != "" {
			query += ` AND category = $1 ORDER BY name LIMIT $2 OFFSET $3`
			args = append(args, perPage, offset)
		} else {
			query += ` ORDER BY name LIMIT $1 OFFSET $2`
			args = append(args, perPage, offset)
		}

		if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
			return err
		}

		for _, item := range items {
			if err := r.loadCodes(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// GetAllActive gets all active items. Used by the alert sweeper.
// TENANT-ISOLATED via RLS.
func (r *ItemRepository) GetAllActive(ctx context.Context) ([]*Item, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var items []*Item
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `SELECT ` + itemColumns + ` FROM items WHERE is_active = true ORDER BY name`
		return r.db.SelectContext(ctx, &items, query)
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Update updates a catalog item and replaces its medical codes.
// TENANT-ISOLATED via RLS.
func (r *ItemRepository) Update(ctx context.Context, item *Item) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			UPDATE items SET
				name = $2, description = $3, category = $4, unit = $5,
				min_stock_level = $6, reorder_point = $7, is_active = $8,
				updated_by = $9, updated_at = NOW()
			WHERE id = $1
		`

		result, err := r.db.ExecContext(ctx, query,
			item.ID, item.Name, item.Description, item.Category, item.Unit,
			item.MinStockLevel, item.ReorderPoint, item.IsActive, item.UpdatedBy,
		)
		if err != nil {
			if mapped := database.MapPQError(err); mapped != nil {
				return mapped
			}
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("item")
		}

		return r.replaceCodes(ctx, tenantID, item.ID, item.Codes)
	})
}

// loadCodes fetches the medical codes for an item
func (r *ItemRepository) loadCodes(ctx context.Context, item *Item) error {
	query := `
		SELECT code, code_type, description FROM item_medical_codes
		WHERE item_id = $1 ORDER BY code_type, code
	`
	codes := []MedicalCode{}
	if err := r.db.SelectContext(ctx, &codes, query, item.ID); err != nil {
		return err
	}
	item.Codes = codes
	return nil
}

// replaceCodes replaces all medical codes for an item. Runs inside the
// surrounding item transaction.
func (r *ItemRepository) replaceCodes(ctx context.Context, tenantID, itemID string, codes []MedicalCode) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM item_medical_codes WHERE item_id = $1`, itemID); err != nil {
		return err
	}

	for _, code := range codes {
		query := `
			INSERT INTO item_medical_codes (id, tenant_id, item_id, code, code_type, description)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := r.db.ExecContext(ctx, query,
			uuid.New().String(), tenantID, itemID, code.Code, code.CodeType, code.Description,
		); err != nil {
			if mapped := database.MapPQError(err); mapped != nil {
				return mapped
			}
			return err
		}
	}
	return nil
}

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careops/careops-backend/internal/inventory/repository"
	"github.com/careops/careops-backend/pkg/database"
	"github.com/careops/careops-backend/pkg/errors"
	"github.com/careops/careops-backend/pkg/logger"
	"github.com/careops/careops-backend/pkg/tenant"
	"github.com/careops/careops-backend/pkg/testutil"
)

func newItemRepo(t *testing.T) (*testutil.MockDB, *repository.ItemRepository, context.Context) {
	mockDB := testutil.NewMockDB(t)
	db := database.FromSqlx(mockDB.DB, logger.New("test", "test"))
	ctx := tenant.WithTenantID(context.Background(), testutil.TenantID())
	return mockDB, repository.NewItemRepository(db), ctx
}

func TestItemRepository_GetByID(t *testing.T) {
	mockDB, repo, ctx := newItemRepo(t)
	defer mockDB.Close()

	itemID := "33333333-3333-3333-3333-333333333333"
	now := time.Now()

	mockDB.ExpectTenantBegin(testutil.TenantID())
	mockDB.ExpectQuery("FROM items WHERE id = $1 AND is_active = true").
		WithArgs(itemID).
		WillReturnRows(testutil.MockRows(
			"id", "item_number", "name", "description", "category", "unit",
			"min_stock_level", "reorder_point", "is_active", "created_by", "updated_by",
			"created_at", "updated_at",
		).AddRow(itemID, int64(12), "Sterile Gauze", nil, "CONSUMABLE", "pack",
			10, 25, true, testutil.UserID(), testutil.UserID(), now, now))
	mockDB.ExpectQuery("FROM item_medical_codes").
		WithArgs(itemID).
		WillReturnRows(testutil.MockRows("code", "code_type", "description").
			AddRow("706046003", "SNOMED", nil))
	mockDB.ExpectCommit()

	item, err := repo.GetByID(ctx, itemID)
	require.NoError(t, err)

	assert.Equal(t, "Sterile Gauze", item.Name)
	assert.Equal(t, int64(12), item.ItemNumber)
	assert.Equal(t, "CONSUMABLE", item.Category)
	require.Len(t, item.Codes, 1)
	assert.Equal(t, "706046003", item.Codes[0].Code)
	assert.Equal(t, "SNOMED", item.Codes[0].CodeType)

	mockDB.ExpectationsWereMet(t)
}

func TestItemRepository_GetByID_NotFound(t *testing.T) {
	mockDB, repo, ctx := newItemRepo(t)
	defer mockDB.Close()

	itemID := "33333333-3333-3333-3333-333333333333"

	mockDB.ExpectTenantBegin(testutil.TenantID())
	mockDB.ExpectQuery("FROM items WHERE id = $1 AND is_active = true").
		WithArgs(itemID).
		WillReturnRows(testutil.MockRows("id"))
	mockDB.ExpectRollback()

	_, err := repo.GetByID(ctx, itemID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mockDB.ExpectationsWereMet(t)
}

func TestItemRepository_Create(t *testing.T) {
	mockDB, repo, ctx := newItemRepo(t)
	defer mockDB.Close()

	now := time.Now()
	item := &repository.Item{
		ItemNumber:    3,
		Name:          "Nitrile Gloves",
		Category:      "PPE",
		Unit:          "box",
		MinStockLevel: 5,
		ReorderPoint:  15,
		IsActive:      true,
		CreatedBy:     testutil.UserID(),
		UpdatedBy:     testutil.UserID(),
		Codes: []repository.MedicalCode{
			{Code: "470618009", CodeType: "SNOMED"},
		},
	}

	mockDB.ExpectTenantBegin(testutil.TenantID())
	mockDB.ExpectQuery("INSERT INTO items").
		WithArgs(testutil.AnyUUID{}, testutil.TenantID(), int64(3), "Nitrile Gloves", nil,
			"PPE", "box", 5, 15, true, testutil.UserID(), testutil.UserID()).
		WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(now, now))
	mockDB.ExpectExec("DELETE FROM item_medical_codes").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectExec("INSERT INTO item_medical_codes").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	err := repo.Create(ctx, item)
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, now, item.CreatedAt)

	mockDB.ExpectationsWereMet(t)
}

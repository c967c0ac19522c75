package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careops/careops-backend/internal/inventory/repository"
	"github.com/careops/careops-backend/pkg/database"
	"github.com/careops/careops-backend/pkg/logger"
	"github.com/careops/careops-backend/pkg/tenant"
	"github.com/careops/careops-backend/pkg/testutil"
)

func TestCounterRepository_Next(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	db := database.FromSqlx(mockDB.DB, logger.New("test", "test"))
	repo := repository.NewCounterRepository(db)

	tenantID := testutil.TenantID()
	ctx := tenant.WithTenantID(context.Background(), tenantID)

	mockDB.ExpectQuery("INSERT INTO counters").
		WithArgs(tenantID, repository.CounterItemNumber).
		WillReturnRows(testutil.MockRows("value").AddRow(int64(7)))

	value, err := repo.Next(ctx, repository.CounterItemNumber)
	require.NoError(t, err)
	assert.Equal(t, int64(7), value)

	mockDB.ExpectationsWereMet(t)
}

func TestCounterRepository_Next_NoTenant(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	db := database.FromSqlx(mockDB.DB, logger.New("test", "test"))
	repo := repository.NewCounterRepository(db)

	_, err := repo.Next(context.Background(), repository.CounterOrderNumber)
	assert.ErrorIs(t, err, tenant.ErrNoTenantInContext)
}

package database_test

import (
	"context"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careops/careops-backend/pkg/database"
	"github.com/careops/careops-backend/pkg/errors"
	"github.com/careops/careops-backend/pkg/logger"
	"github.com/careops/careops-backend/pkg/testutil"
)

func TestRunSerializable_RetriesOnSerializationFailure(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	db := database.FromSqlx(mockDB.DB, logger.New("test", "test"))
	tenantID := testutil.TenantID()

	serializationErr := &pq.Error{Code: "40001"}

	// First attempt aborts with a serialization failure
	mockDB.ExpectTenantBegin(tenantID)
	mockDB.ExpectQuery("SELECT value").WillReturnError(serializationErr)
	mockDB.ExpectRollback()

	// Second attempt succeeds
	mockDB.ExpectTenantBegin(tenantID)
	mockDB.ExpectQuery("SELECT value").
		WillReturnRows(testutil.MockRows("value").AddRow(1))
	mockDB.ExpectCommit()

	attempts := 0
	err := db.RunSerializable(context.Background(), tenantID, func(ctx context.Context) error {
		attempts++
		var value int
		return db.GetContext(ctx, &value, "SELECT value")
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	mockDB.ExpectationsWereMet(t)
}

func TestRunSerializable_PermanentErrorDoesNotRetry(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	db := database.FromSqlx(mockDB.DB, logger.New("test", "test"))
	tenantID := testutil.TenantID()

	mockDB.ExpectTenantBegin(tenantID)
	mockDB.ExpectRollback()

	attempts := 0
	err := db.RunSerializable(context.Background(), tenantID, func(ctx context.Context) error {
		attempts++
		return errors.BadRequest("nope")
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
	assert.Equal(t, 1, attempts)
	mockDB.ExpectationsWereMet(t)
}

func TestTransaction_NestedCallJoinsOpenTransaction(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	db := database.FromSqlx(mockDB.DB, logger.New("test", "test"))
	tenantID := testutil.TenantID()

	// Only one begin/commit pair despite the nested WithTenantRLS call
	mockDB.ExpectTenantBegin(tenantID)
	mockDB.ExpectQuery("SELECT 1").
		WillReturnRows(testutil.MockRows("one").AddRow(1))
	mockDB.ExpectCommit()

	err := db.WithTenantRLS(context.Background(), tenantID, func(ctx context.Context) error {
		return db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
			var one int
			return db.GetContext(ctx, &one, "SELECT 1")
		})
	})

	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}

func TestWithTenantRLS_RollsBackOnError(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	db := database.FromSqlx(mockDB.DB, logger.New("test", "test"))
	tenantID := testutil.TenantID()

	mockDB.ExpectTenantBegin(tenantID)
	mockDB.ExpectRollback()

	sentinel := errors.NotFound("thing")
	err := db.WithTenantRLS(context.Background(), tenantID, func(ctx context.Context) error {
		return sentinel
	})

	assert.Equal(t, sentinel, err)
	mockDB.ExpectationsWereMet(t)
}

package service_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careops/careops-backend/internal/inventory/repository"
	"github.com/careops/careops-backend/internal/inventory/service"
	"github.com/careops/careops-backend/pkg/database"
	"github.com/careops/careops-backend/pkg/errors"
	"github.com/careops/careops-backend/pkg/logger"
	"github.com/careops/careops-backend/pkg/tenant"
	"github.com/careops/careops-backend/pkg/testutil"
)

const (
	testSupplierID = "99999999-9999-9999-9999-999999999999"
	testOrderID    = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
)

var orderCols = []string{
	"id", "order_number", "supplier_id", "status", "total_cents",
	"expected_date", "received_date", "notes", "approved_by",
	"created_by", "updated_by", "created_at", "updated_at",
}

var lineCols = []string{"id", "order_id", "item_id", "quantity", "unit_price_cents", "line_total_cents"}

func newOrderService(t *testing.T) (*testutil.MockDB, *service.PurchaseOrderService, context.Context) {
	mockDB := testutil.NewMockDB(t)
	log := logger.New("test", "test")
	db := database.FromSqlx(mockDB.DB, log)

	svc := service.NewPurchaseOrderService(db,
		repository.NewPurchaseOrderRepository(db),
		repository.NewSupplierRepository(db),
		repository.NewItemRepository(db),
		repository.NewBatchRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewCounterRepository(db),
		nil, log)

	ctx := tenant.WithTenantID(context.Background(), testutil.TenantID())
	return mockDB, svc, ctx
}

func orderRow(status string, totalCents int) *sqlmock.Rows {
	now := time.Now()
	return testutil.MockRows(orderCols...).AddRow(
		testOrderID, int64(41), testSupplierID, status, totalCents,
		nil, nil, nil, nil, testutil.UserID(), testutil.UserID(), now, now)
}

func TestPurchaseOrderService_Create_Validation(t *testing.T) {
	mockDB, svc, ctx := newOrderService(t)
	defer mockDB.Close()

	expected := time.Now().AddDate(0, 0, 14)

	t.Run("requires lines", func(t *testing.T) {
		_, err := svc.Create(ctx, &service.CreateOrderRequest{
			SupplierID: testSupplierID,
			CreatedBy:  testutil.UserID(),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrValidation))
	})

	t.Run("requires expected delivery date", func(t *testing.T) {
		_, err := svc.Create(ctx, &service.CreateOrderRequest{
			SupplierID: testSupplierID,
			Lines:      []service.OrderLineRequest{{ItemID: testItemID, Quantity: 2, UnitPriceCents: 100}},
			CreatedBy:  testutil.UserID(),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrValidation))

		var appErr *errors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Contains(t, appErr.Details, "expected_date")
	})

	t.Run("rejects non-positive line quantity", func(t *testing.T) {
		_, err := svc.Create(ctx, &service.CreateOrderRequest{
			SupplierID:   testSupplierID,
			Lines:        []service.OrderLineRequest{{ItemID: testItemID, Quantity: 0, UnitPriceCents: 100}},
			ExpectedDate: &expected,
			CreatedBy:    testutil.UserID(),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrValidation))
	})

	t.Run("rejects negative unit price", func(t *testing.T) {
		_, err := svc.Create(ctx, &service.CreateOrderRequest{
			SupplierID:   testSupplierID,
			Lines:        []service.OrderLineRequest{{ItemID: testItemID, Quantity: 2, UnitPriceCents: -1}},
			ExpectedDate: &expected,
			CreatedBy:    testutil.UserID(),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrValidation))
	})

	// Validation failures never reach the store
	mockDB.ExpectationsWereMet(t)
}

func TestPurchaseOrderService_Create(t *testing.T) {
	mockDB, svc, ctx := newOrderService(t)
	defer mockDB.Close()

	now := time.Now()

	// Supplier existence check
	mockDB.ExpectTenantBegin(testutil.TenantID())
	mockDB.ExpectQuery("FROM suppliers WHERE id = $1").
		WithArgs(testSupplierID).
		WillReturnRows(testutil.MockRows(
			"id", "name", "contact_person", "email", "phone", "address",
			"tax_id", "registration_number", "created_at", "updated_at",
		).AddRow(testSupplierID, "MedSupply", "", "", "", "", nil, nil, now, now))
	mockDB.ExpectCommit()

	// Item existence check
	mockDB.ExpectTenantBegin(testutil.TenantID())
	mockDB.ExpectQuery("FROM items WHERE id = $1 AND is_active = true").
		WithArgs(testItemID).
		WillReturnRows(testutil.MockRows(
			"id", "item_number", "name", "description", "category", "unit",
			"min_stock_level", "reorder_point", "is_active", "created_by", "updated_by",
			"created_at", "updated_at",
		).AddRow(testItemID, int64(1), "Gauze", nil, "CONSUMABLE", "pack",
			10, 20, true, testutil.UserID(), testutil.UserID(), now, now))
	mockDB.ExpectQuery("FROM item_medical_codes").
		WillReturnRows(testutil.MockRows("code", "code_type", "description"))
	mockDB.ExpectCommit()

	// Order number mint and insert share one transaction
	mockDB.ExpectTenantBegin(testutil.TenantID())
	mockDB.ExpectQuery("INSERT INTO counters").
		WithArgs(testutil.TenantID(), repository.CounterOrderNumber).
		WillReturnRows(testutil.MockRows("value").AddRow(int64(41)))
	mockDB.ExpectQuery("INSERT INTO purchase_orders").
		WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(now, now))
	mockDB.ExpectExec("INSERT INTO purchase_order_lines").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	expected := time.Now().AddDate(0, 0, 14)
	order, err := svc.Create(ctx, &service.CreateOrderRequest{
		SupplierID:   testSupplierID,
		Lines:        []service.OrderLineRequest{{ItemID: testItemID, Quantity: 12, UnitPriceCents: 250}},
		ExpectedDate: &expected,
		CreatedBy:    testutil.UserID(),
	})
	require.NoError(t, err)

	assert.Equal(t, repository.OrderDraft, order.Status)
	assert.Equal(t, int64(41), order.OrderNumber)
	// Totals are computed server side from the lines
	assert.Equal(t, 3000, order.TotalCents)
	assert.Equal(t, 30.00, order.Total)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, 3000, order.Lines[0].LineTotalCents)

	mockDB.ExpectationsWereMet(t)
}

func TestPurchaseOrderService_Transition(t *testing.T) {
	t.Run("rejects illegal transition", func(t *testing.T) {
		mockDB, svc, ctx := newOrderService(t)
		defer mockDB.Close()

		mockDB.ExpectTenantBegin(testutil.TenantID())
		mockDB.ExpectQuery("FROM purchase_orders WHERE id = $1 FOR UPDATE").
			WithArgs(testOrderID).
			WillReturnRows(orderRow(repository.OrderDraft, 3000))
		mockDB.ExpectQuery("FROM purchase_order_lines").
			WillReturnRows(testutil.MockRows(lineCols...))
		mockDB.ExpectRollback()

		_, err := svc.Transition(ctx, testOrderID, repository.OrderOrdered, testutil.UserID())
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidTransition))

		var appErr *errors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, repository.OrderDraft, appErr.Details["from"])
		assert.Equal(t, repository.OrderOrdered, appErr.Details["to"])

		mockDB.ExpectationsWereMet(t)
	})

	t.Run("refuses RECEIVED as a plain transition", func(t *testing.T) {
		mockDB, svc, ctx := newOrderService(t)
		defer mockDB.Close()

		_, err := svc.Transition(ctx, testOrderID, repository.OrderReceived, testutil.UserID())
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrBadRequest))

		mockDB.ExpectationsWereMet(t)
	})

	t.Run("applies legal transition", func(t *testing.T) {
		mockDB, svc, ctx := newOrderService(t)
		defer mockDB.Close()

		mockDB.ExpectTenantBegin(testutil.TenantID())
		mockDB.ExpectQuery("FROM purchase_orders WHERE id = $1 FOR UPDATE").
			WithArgs(testOrderID).
			WillReturnRows(orderRow(repository.OrderDraft, 3000))
		mockDB.ExpectQuery("FROM purchase_order_lines").
			WillReturnRows(testutil.MockRows(lineCols...))
		mockDB.ExpectExec("UPDATE purchase_orders").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mockDB.ExpectCommit()

		order, err := svc.Transition(ctx, testOrderID, repository.OrderPending, testutil.UserID())
		require.NoError(t, err)
		assert.Equal(t, repository.OrderPending, order.Status)

		mockDB.ExpectationsWereMet(t)
	})

	t.Run("records the approver on approval", func(t *testing.T) {
		mockDB, svc, ctx := newOrderService(t)
		defer mockDB.Close()

		mockDB.ExpectTenantBegin(testutil.TenantID())
		mockDB.ExpectQuery("FROM purchase_orders WHERE id = $1 FOR UPDATE").
			WithArgs(testOrderID).
			WillReturnRows(orderRow(repository.OrderPending, 3000))
		mockDB.ExpectQuery("FROM purchase_order_lines").
			WillReturnRows(testutil.MockRows(lineCols...))
		mockDB.ExpectExec("UPDATE purchase_orders").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mockDB.ExpectCommit()

		order, err := svc.Transition(ctx, testOrderID, repository.OrderApproved, testutil.UserID())
		require.NoError(t, err)
		assert.Equal(t, repository.OrderApproved, order.Status)
		require.NotNil(t, order.ApprovedBy)
		assert.Equal(t, testutil.UserID(), *order.ApprovedBy)

		mockDB.ExpectationsWereMet(t)
	})
}

func TestPurchaseOrderService_Receive(t *testing.T) {
	expiry := time.Now().AddDate(1, 0, 0)

	t.Run("rejects orders not in ORDERED", func(t *testing.T) {
		mockDB, svc, ctx := newOrderService(t)
		defer mockDB.Close()

		mockDB.ExpectTenantBegin(testutil.TenantID())
		mockDB.ExpectQuery("FROM purchase_orders WHERE id = $1 FOR UPDATE").
			WithArgs(testOrderID).
			WillReturnRows(orderRow(repository.OrderPending, 3000))
		mockDB.ExpectQuery("FROM purchase_order_lines").
			WillReturnRows(testutil.MockRows(lineCols...))
		mockDB.ExpectRollback()

		_, err := svc.Receive(ctx, &service.ReceiveOrderRequest{
			OrderID:    testOrderID,
			LocationID: testLocationID,
			ExpiryDate: expiry,
			ReceivedBy: testutil.UserID(),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidTransition))

		mockDB.ExpectationsWereMet(t)
	})

	t.Run("creates batches and log entries atomically", func(t *testing.T) {
		mockDB, svc, ctx := newOrderService(t)
		defer mockDB.Close()

		now := time.Now()

		mockDB.ExpectTenantBegin(testutil.TenantID())
		mockDB.ExpectQuery("FROM purchase_orders WHERE id = $1 FOR UPDATE").
			WithArgs(testOrderID).
			WillReturnRows(orderRow(repository.OrderOrdered, 3000))
		mockDB.ExpectQuery("FROM purchase_order_lines").
			WillReturnRows(testutil.MockRows(lineCols...).
				AddRow("l1", testOrderID, testItemID, 12, 250, 3000))
		// One batch plus one STOCK_IN entry per line
		mockDB.ExpectQuery("INSERT INTO batches").
			WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(now, now))
		mockDB.ExpectQuery("INSERT INTO stock_transactions").
			WillReturnRows(testutil.MockRows("performed_at").AddRow(now))
		mockDB.ExpectExec("UPDATE purchase_orders").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mockDB.ExpectCommit()

		order, err := svc.Receive(ctx, &service.ReceiveOrderRequest{
			OrderID:    testOrderID,
			LocationID: testLocationID,
			ExpiryDate: expiry,
			ReceivedBy: testutil.UserID(),
		})
		require.NoError(t, err)
		assert.Equal(t, repository.OrderReceived, order.Status)

		mockDB.ExpectationsWereMet(t)
	})

	t.Run("rolls back the whole receipt when a line fails", func(t *testing.T) {
		mockDB, svc, ctx := newOrderService(t)
		defer mockDB.Close()

		now := time.Now()

		mockDB.ExpectTenantBegin(testutil.TenantID())
		mockDB.ExpectQuery("FROM purchase_orders WHERE id = $1 FOR UPDATE").
			WithArgs(testOrderID).
			WillReturnRows(orderRow(repository.OrderOrdered, 9000))
		mockDB.ExpectQuery("FROM purchase_order_lines").
			WillReturnRows(testutil.MockRows(lineCols...).
				AddRow("l1", testOrderID, testItemID, 12, 250, 3000).
				AddRow("l2", testOrderID, testItemID, 12, 250, 3000).
				AddRow("l3", testOrderID, testItemID, 12, 250, 3000))
		// First two lines land, the third does not
		mockDB.ExpectQuery("INSERT INTO batches").
			WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(now, now))
		mockDB.ExpectQuery("INSERT INTO stock_transactions").
			WillReturnRows(testutil.MockRows("performed_at").AddRow(now))
		mockDB.ExpectQuery("INSERT INTO batches").
			WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(now, now))
		mockDB.ExpectQuery("INSERT INTO stock_transactions").
			WillReturnRows(testutil.MockRows("performed_at").AddRow(now))
		mockDB.ExpectQuery("INSERT INTO batches").
			WillReturnError(stderrors.New("connection reset"))
		mockDB.ExpectRollback()

		_, err := svc.Receive(ctx, &service.ReceiveOrderRequest{
			OrderID:    testOrderID,
			LocationID: testLocationID,
			ExpiryDate: expiry,
			ReceivedBy: testutil.UserID(),
		})
		require.Error(t, err)
		// No UPDATE purchase_orders and no commit were ever expected:
		// a failed line leaves nothing behind
		mockDB.ExpectationsWereMet(t)
	})
}

//go:build integration

package service_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careops/careops-backend/internal/inventory/repository"
	"github.com/careops/careops-backend/internal/inventory/service"
	"github.com/careops/careops-backend/pkg/errors"
	"github.com/careops/careops-backend/pkg/testutil"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	ctx := context.Background()
	var err error

	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		panic("failed to create integration suite: " + err.Error())
	}

	code := m.Run()

	suite.Cleanup(ctx)
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

// services wires the full service stack against the test database.
// The event publisher is nil; publishing is a no-op without a broker.
type services struct {
	inventory *service.InventoryService
	stock     *service.StockService
	orders    *service.PurchaseOrderService
}

func newServices() *services {
	itemRepo := repository.NewItemRepository(suite.DB)
	locRepo := repository.NewLocationRepository(suite.DB)
	supplierRepo := repository.NewSupplierRepository(suite.DB)
	batchRepo := repository.NewBatchRepository(suite.DB)
	txRepo := repository.NewTransactionRepository(suite.DB)
	orderRepo := repository.NewPurchaseOrderRepository(suite.DB)
	counterRepo := repository.NewCounterRepository(suite.DB)

	return &services{
		inventory: service.NewInventoryService(suite.DB, itemRepo, locRepo, supplierRepo, batchRepo, counterRepo, nil, suite.Logger),
		stock:     service.NewStockService(suite.DB, batchRepo, txRepo, nil, suite.Logger),
		orders:    service.NewPurchaseOrderService(suite.DB, orderRepo, supplierRepo, itemRepo, batchRepo, txRepo, counterRepo, nil, suite.Logger),
	}
}

func (s *services) seedItem(t *testing.T, ctx context.Context, name string) *repository.Item {
	t.Helper()
	item := &repository.Item{
		Name:      name,
		Category:  repository.CategoryConsumable,
		Unit:      "piece",
		CreatedBy: testutil.UserID(),
		UpdatedBy: testutil.UserID(),
	}
	require.NoError(t, s.inventory.CreateItem(ctx, item))
	return item
}

func (s *services) seedLocation(t *testing.T, ctx context.Context, name string) *repository.Location {
	t.Helper()
	loc := &repository.Location{Name: name, LocationType: repository.LocationWarehouse}
	require.NoError(t, s.inventory.CreateLocation(ctx, loc))
	return loc
}

func (s *services) seedBatch(t *testing.T, ctx context.Context, itemID, locationID string, qty int) *repository.Batch {
	t.Helper()
	fx := suite.Fixtures.Batch(itemID, locationID, func(b *testutil.BatchFixture) { b.Quantity = qty })
	batch := &repository.Batch{
		ItemID:        fx.ItemID,
		BatchNumber:   fx.BatchNumber,
		ExpiryDate:    fx.ExpiryDate,
		Quantity:      fx.Quantity,
		UnitCostCents: fx.UnitCostCents,
		LocationID:    fx.LocationID,
	}
	require.NoError(t, s.inventory.CreateBatch(ctx, batch))
	return batch
}

func TestStockService_RecordAndLog(t *testing.T) {
	tenantID := suite.SetupTenant(t, context.Background(), "clinic-stock-svc")
	ctx := suite.TenantContext(tenantID)
	svc := newServices()

	item := svc.seedItem(t, ctx, "Syringe 5ml")
	loc := svc.seedLocation(t, ctx, "Pharmacy Shelf")
	batch := svc.seedBatch(t, ctx, item.ID, loc.ID, 100)

	entry, err := svc.stock.Record(ctx, &service.StockRequest{
		BatchID:         batch.ID,
		TransactionType: repository.TxStockOut,
		Quantity:        30,
		Reference:       "ward-b",
		PerformedBy:     testutil.UserID(),
	})
	require.NoError(t, err)
	assert.Equal(t, repository.TxStockOut, entry.TransactionType)
	assert.False(t, entry.PerformedAt.IsZero())

	got, err := svc.inventory.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 70, got.Quantity)

	log, err := svc.stock.ListByBatch(ctx, batch.ID)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, 30, log[0].Quantity)

	// Draining past the available quantity is rejected and nothing is written.
	_, err = svc.stock.Record(ctx, &service.StockRequest{
		BatchID:         batch.ID,
		TransactionType: repository.TxStockOut,
		Quantity:        71,
		PerformedBy:     testutil.UserID(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))

	got, err = svc.inventory.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 70, got.Quantity)
}

func TestStockService_StockInWithoutBatch(t *testing.T) {
	tenantID := suite.SetupTenant(t, context.Background(), "clinic-intake-svc")
	ctx := suite.TenantContext(tenantID)
	svc := newServices()

	item := svc.seedItem(t, ctx, "Face Mask FFP2")
	loc := svc.seedLocation(t, ctx, "Intake Bay")
	expiry := time.Now().AddDate(3, 0, 0)

	// Initial intake: no batch yet, so the movement creates one.
	entry, err := svc.stock.Record(ctx, &service.StockRequest{
		TransactionType: repository.TxStockIn,
		Quantity:        500,
		ItemID:          item.ID,
		BatchNumber:     "LOT-INTAKE-1",
		ExpiryDate:      expiry,
		LocationID:      loc.ID,
		UnitCostCents:   40,
		PerformedBy:     testutil.UserID(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, entry.BatchID)

	batch, err := svc.inventory.GetBatch(ctx, entry.BatchID)
	require.NoError(t, err)
	assert.Equal(t, 500, batch.Quantity)
	assert.Equal(t, "LOT-INTAKE-1", batch.BatchNumber)
	assert.Equal(t, loc.ID, batch.LocationID)

	log, err := svc.stock.ListByBatch(ctx, entry.BatchID)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, repository.TxStockIn, log[0].TransactionType)

	// The same lot arriving again credits the existing batch.
	again, err := svc.stock.Record(ctx, &service.StockRequest{
		TransactionType: repository.TxStockIn,
		Quantity:        100,
		ItemID:          item.ID,
		BatchNumber:     "LOT-INTAKE-1",
		ExpiryDate:      expiry,
		LocationID:      loc.ID,
		UnitCostCents:   40,
		PerformedBy:     testutil.UserID(),
	})
	require.NoError(t, err)
	assert.Equal(t, entry.BatchID, again.BatchID)

	batch, err = svc.inventory.GetBatch(ctx, entry.BatchID)
	require.NoError(t, err)
	assert.Equal(t, 600, batch.Quantity)

	batches, err := svc.inventory.ListBatchesByItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, batches, 1)
}

func TestStockService_TransferCreatesDestinationBatch(t *testing.T) {
	tenantID := suite.SetupTenant(t, context.Background(), "clinic-transfer-svc")
	ctx := suite.TenantContext(tenantID)
	svc := newServices()

	item := svc.seedItem(t, ctx, "Gauze Roll")
	source := svc.seedLocation(t, ctx, "Central Store")
	dest := svc.seedLocation(t, ctx, "OR Supply")
	batch := svc.seedBatch(t, ctx, item.ID, source.ID, 80)

	_, err := svc.stock.Record(ctx, &service.StockRequest{
		BatchID:         batch.ID,
		TransactionType: repository.TxTransfer,
		Quantity:        25,
		ToLocationID:    dest.ID,
		PerformedBy:     testutil.UserID(),
	})
	require.NoError(t, err)

	src, err := svc.inventory.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 55, src.Quantity)

	batches, err := svc.inventory.ListBatchesByItem(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, batches, 2)

	var destBatch *repository.Batch
	for _, b := range batches {
		if b.LocationID == dest.ID {
			destBatch = b
		}
	}
	require.NotNil(t, destBatch, "transfer should create a batch at the destination")
	assert.Equal(t, 25, destBatch.Quantity)
	assert.Equal(t, batch.BatchNumber, destBatch.BatchNumber)
	assert.True(t, batch.ExpiryDate.Equal(destBatch.ExpiryDate))
}

func TestPurchaseOrderService_Lifecycle(t *testing.T) {
	tenantID := suite.SetupTenant(t, context.Background(), "clinic-po-svc")
	ctx := suite.TenantContext(tenantID)
	svc := newServices()

	supplier := &repository.Supplier{Name: "MedSupply GmbH"}
	require.NoError(t, svc.inventory.CreateSupplier(ctx, supplier))

	item := svc.seedItem(t, ctx, "Bandage Pack")
	loc := svc.seedLocation(t, ctx, "Receiving Dock")

	expected := time.Now().AddDate(0, 0, 10)
	order, err := svc.orders.Create(ctx, &service.CreateOrderRequest{
		SupplierID: supplier.ID,
		Lines: []service.OrderLineRequest{
			{ItemID: item.ID, Quantity: 200, UnitPriceCents: 150},
		},
		ExpectedDate: &expected,
		CreatedBy:    testutil.UserID(),
	})
	require.NoError(t, err)
	assert.Equal(t, repository.OrderDraft, order.Status)
	assert.Equal(t, int64(1), order.OrderNumber)
	assert.Equal(t, 30000, order.TotalCents)

	// Receiving is only valid from ORDERED.
	_, err = svc.orders.Receive(ctx, &service.ReceiveOrderRequest{
		OrderID:    order.ID,
		LocationID: loc.ID,
		ExpiryDate: time.Now().AddDate(2, 0, 0),
		ReceivedBy: testutil.UserID(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))

	for _, status := range []string{repository.OrderPending, repository.OrderApproved, repository.OrderOrdered} {
		order, err = svc.orders.Transition(ctx, order.ID, status, testutil.UserID())
		require.NoError(t, err)
		assert.Equal(t, status, order.Status)
	}
	// Approval stamped the approver, and it survives later transitions.
	require.NotNil(t, order.ApprovedBy)
	assert.Equal(t, testutil.UserID(), *order.ApprovedBy)

	received, err := svc.orders.Receive(ctx, &service.ReceiveOrderRequest{
		OrderID:    order.ID,
		LocationID: loc.ID,
		ExpiryDate: time.Now().AddDate(2, 0, 0),
		ReceivedBy: testutil.UserID(),
	})
	require.NoError(t, err)
	assert.Equal(t, repository.OrderReceived, received.Status)
	require.NotNil(t, received.ReceivedDate)

	// Receiving stocked one batch per line and logged the intake.
	batches, err := svc.inventory.ListBatchesByItem(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, 200, batches[0].Quantity)
	assert.Equal(t, loc.ID, batches[0].LocationID)
	assert.Equal(t, 150, batches[0].UnitCostCents)

	log, err := svc.stock.ListByBatch(ctx, batches[0].ID)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, repository.TxStockIn, log[0].TransactionType)

	// Terminal orders accept no further transitions.
	_, err = svc.orders.Transition(ctx, order.ID, repository.OrderCancelled, testutil.UserID())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
}

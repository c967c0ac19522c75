package events

import (
	"context"

	"github.com/careops/careops-backend/internal/inventory/repository"
	"github.com/careops/careops-backend/pkg/logger"
	"github.com/careops/careops-backend/pkg/messaging"
)

// InventoryEventPublisher publishes inventory-related events.
// A nil publisher is safe to call; the service runs without a broker in tests.
type InventoryEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewInventoryEventPublisher creates a new inventory event publisher
func NewInventoryEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*InventoryEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeInventoryEvents, "inventory-service", log)
	if err != nil {
		return nil, err
	}

	return &InventoryEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishStockRecorded publishes a stock recorded event
func (p *InventoryEventPublisher) PublishStockRecorded(ctx context.Context, tenantID string, tx *repository.StockTransaction) {
	if p == nil {
		return
	}

	data := messaging.StockRecordedEvent{
		TenantID:        tenantID,
		TransactionID:   tx.ID,
		TransactionType: tx.TransactionType,
		ItemID:          tx.ItemID,
		BatchID:         tx.BatchID,
		Quantity:        tx.Quantity,
		PerformedBy:     tx.PerformedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockRecorded, data); err != nil {
		p.logger.Error().Err(err).Str("transaction_id", tx.ID).Msg("failed to publish stock recorded event")
	}
}

// PublishBatchCreated publishes a batch created event
func (p *InventoryEventPublisher) PublishBatchCreated(ctx context.Context, tenantID string, batch *repository.Batch) {
	if p == nil {
		return
	}

	data := messaging.BatchCreatedEvent{
		TenantID:    tenantID,
		BatchID:     batch.ID,
		BatchNumber: batch.BatchNumber,
		ItemID:      batch.ItemID,
		LocationID:  batch.LocationID,
		Quantity:    batch.Quantity,
		ExpiryDate:  batch.ExpiryDate,
	}

	if err := p.publisher.Publish(ctx, messaging.EventBatchCreated, data); err != nil {
		p.logger.Error().Err(err).Str("batch_id", batch.ID).Msg("failed to publish batch created event")
	}
}

// PublishOrderReceived publishes an order received event
func (p *InventoryEventPublisher) PublishOrderReceived(ctx context.Context, tenantID, locationID, receivedBy string, order *repository.PurchaseOrder) {
	if p == nil {
		return
	}

	data := messaging.OrderReceivedEvent{
		TenantID:    tenantID,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		SupplierID:  order.SupplierID,
		LocationID:  locationID,
		LineCount:   len(order.Lines),
		ReceivedBy:  receivedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventOrderReceived, data); err != nil {
		p.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to publish order received event")
	}
}

// PublishLowStockAlert publishes a low stock alert event
func (p *InventoryEventPublisher) PublishLowStockAlert(ctx context.Context, tenantID string, alert *repository.LowStockAlert) {
	if p == nil {
		return
	}

	data := messaging.LowStockAlertEvent{
		TenantID:      tenantID,
		ItemID:        alert.ItemID,
		ItemName:      alert.Name,
		TotalStock:    alert.TotalQuantity,
		MinStockLevel: alert.MinStockLevel,
		ReorderPoint:  alert.ReorderPoint,
	}

	if err := p.publisher.Publish(ctx, messaging.EventLowStockAlert, data); err != nil {
		p.logger.Error().Err(err).Str("item_id", alert.ItemID).Msg("failed to publish low stock alert event")
	}
}

// PublishExpiringAlert publishes an expiring batch alert event
func (p *InventoryEventPublisher) PublishExpiringAlert(ctx context.Context, tenantID string, batch *repository.ExpiringBatch) {
	if p == nil {
		return
	}

	data := messaging.ExpiringBatchAlertEvent{
		TenantID:        tenantID,
		BatchID:         batch.BatchID,
		BatchNumber:     batch.BatchNumber,
		ItemID:          batch.ItemID,
		Quantity:        batch.Quantity,
		ExpiryDate:      batch.ExpiryDate,
		DaysUntilExpiry: batch.DaysLeft,
	}

	if err := p.publisher.Publish(ctx, messaging.EventExpiringAlert, data); err != nil {
		p.logger.Error().Err(err).Str("batch_id", batch.BatchID).Msg("failed to publish expiring batch alert event")
	}
}

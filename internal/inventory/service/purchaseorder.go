package service

import (
	"context"
	"fmt"
	"time"

	"github.com/careops/careops-backend/internal/inventory/events"
	"github.com/careops/careops-backend/internal/inventory/repository"
	"github.com/careops/careops-backend/pkg/database"
	"github.com/careops/careops-backend/pkg/errors"
	"github.com/careops/careops-backend/pkg/logger"
	"github.com/careops/careops-backend/pkg/tenant"
)

// OrderLineRequest is one requested line on a new purchase order
type OrderLineRequest struct {
	ItemID         string
	Quantity       int
	UnitPriceCents int
}

// CreateOrderRequest describes a new purchase order
type CreateOrderRequest struct {
	SupplierID   string
	Lines        []OrderLineRequest
	ExpectedDate *time.Time
	Notes        string
	CreatedBy    string
}

// ReceiveOrderRequest describes receiving an ordered purchase order into stock
type ReceiveOrderRequest struct {
	OrderID    string
	LocationID string
	ExpiryDate time.Time
	ReceivedBy string
}

// PurchaseOrderService drives the purchase order lifecycle
type PurchaseOrderService struct {
	db           *database.DB
	orderRepo    *repository.PurchaseOrderRepository
	supplierRepo *repository.SupplierRepository
	itemRepo     *repository.ItemRepository
	batchRepo    *repository.BatchRepository
	txRepo       *repository.TransactionRepository
	counterRepo  *repository.CounterRepository
	publisher    *events.InventoryEventPublisher
	logger       *logger.Logger
}

// NewPurchaseOrderService creates a new purchase order service
func NewPurchaseOrderService(
	db *database.DB,
	orderRepo *repository.PurchaseOrderRepository,
	supplierRepo *repository.SupplierRepository,
	itemRepo *repository.ItemRepository,
	batchRepo *repository.BatchRepository,
	txRepo *repository.TransactionRepository,
	counterRepo *repository.CounterRepository,
	publisher *events.InventoryEventPublisher,
	log *logger.Logger,
) *PurchaseOrderService {
	return &PurchaseOrderService{
		db:           db,
		orderRepo:    orderRepo,
		supplierRepo: supplierRepo,
		itemRepo:     itemRepo,
		batchRepo:    batchRepo,
		txRepo:       txRepo,
		counterRepo:  counterRepo,
		publisher:    publisher,
		logger:       log,
	}
}

// Create creates a purchase order in DRAFT. Line totals and the order total
// are computed server side; the order number is minted in the same
// transaction as the insert.
func (s *PurchaseOrderService) Create(ctx context.Context, req *CreateOrderRequest) (*repository.PurchaseOrder, error) {
	if len(req.Lines) == 0 {
		return nil, errors.Validation(map[string]string{"lines": "at least one line is required"})
	}
	if req.ExpectedDate == nil || req.ExpectedDate.IsZero() {
		return nil, errors.Validation(map[string]string{"expected_date": "is required"})
	}
	for i, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, errors.Validation(map[string]string{fmt.Sprintf("lines[%d].quantity", i): "must be positive"})
		}
		if line.UnitPriceCents < 0 {
			return nil, errors.Validation(map[string]string{fmt.Sprintf("lines[%d].unit_price", i): "must not be negative"})
		}
	}

	if _, err := s.supplierRepo.GetByID(ctx, req.SupplierID); err != nil {
		return nil, err
	}
	for _, line := range req.Lines {
		if _, err := s.itemRepo.GetByID(ctx, line.ItemID); err != nil {
			return nil, err
		}
	}

	order := &repository.PurchaseOrder{
		SupplierID:   req.SupplierID,
		Status:       repository.OrderDraft,
		ExpectedDate: req.ExpectedDate,
		CreatedBy:    req.CreatedBy,
		UpdatedBy:    req.CreatedBy,
	}
	if req.Notes != "" {
		order.Notes = &req.Notes
	}
	for _, line := range req.Lines {
		lineTotal := line.Quantity * line.UnitPriceCents
		order.TotalCents += lineTotal
		order.Lines = append(order.Lines, repository.PurchaseOrderLine{
			ItemID:         line.ItemID,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
			LineTotalCents: lineTotal,
		})
	}

	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	err = s.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		number, err := s.counterRepo.Next(ctx, repository.CounterOrderNumber)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		return s.orderRepo.Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID).
		Int64("order_number", order.OrderNumber).
		Msg("purchase order created")
	return order, nil
}

// Get retrieves a purchase order with its lines
func (s *PurchaseOrderService) Get(ctx context.Context, id string) (*repository.PurchaseOrder, error) {
	return s.orderRepo.GetByID(ctx, id)
}

// List lists purchase orders, optionally filtered by status
func (s *PurchaseOrderService) List(ctx context.Context, status string, page, perPage int) ([]*repository.PurchaseOrder, int64, error) {
	return s.orderRepo.List(ctx, status, page, perPage)
}

// Transition moves an order to a new status. The order row is locked for
// the check-and-set so concurrent transitions serialize; an illegal move
// fails without changing anything. Receiving must go through Receive.
func (s *PurchaseOrderService) Transition(ctx context.Context, id, target, updatedBy string) (*repository.PurchaseOrder, error) {
	if target == repository.OrderReceived {
		return nil, errors.BadRequest("orders are received via the receive operation")
	}

	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var order *repository.PurchaseOrder
	err = s.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		order, err = s.orderRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !repository.CanTransition(order.Status, target) {
			return errors.InvalidTransition(order.Status, target)
		}
		if err := s.orderRepo.UpdateStatus(ctx, id, target, updatedBy); err != nil {
			return err
		}
		order.Status = target
		order.UpdatedBy = updatedBy
		if target == repository.OrderApproved {
			order.ApprovedBy = &updatedBy
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", id).
		Str("status", target).
		Msg("purchase order transitioned")
	return order, nil
}

// Receive receives an ORDERED purchase order into stock. For every line a
// new batch is created at the receiving location and a STOCK_IN transaction
// is logged; the batches, the log entries and the status change commit
// atomically. Received batches are numbered PO-<order_number>-<line>.
func (s *PurchaseOrderService) Receive(ctx context.Context, req *ReceiveOrderRequest) (*repository.PurchaseOrder, error) {
	if req.LocationID == "" {
		return nil, errors.Validation(map[string]string{"location_id": "is required"})
	}
	if req.ExpiryDate.IsZero() {
		return nil, errors.Validation(map[string]string{"expiry_date": "is required"})
	}

	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var order *repository.PurchaseOrder
	err = s.db.RunSerializable(ctx, tenantID, func(ctx context.Context) error {
		order, err = s.orderRepo.GetForUpdate(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if order.Status != repository.OrderOrdered {
			return errors.InvalidTransition(order.Status, repository.OrderReceived)
		}

		reference := fmt.Sprintf("PO-%d", order.OrderNumber)
		for i, line := range order.Lines {
			batch := &repository.Batch{
				ItemID:        line.ItemID,
				BatchNumber:   fmt.Sprintf("PO-%d-%d", order.OrderNumber, i+1),
				ExpiryDate:    req.ExpiryDate,
				Quantity:      line.Quantity,
				UnitCostCents: line.UnitPriceCents,
				LocationID:    req.LocationID,
				SupplierID:    &order.SupplierID,
			}
			if err := s.batchRepo.Create(ctx, batch); err != nil {
				return err
			}

			entry := &repository.StockTransaction{
				ItemID:          line.ItemID,
				BatchID:         batch.ID,
				TransactionType: repository.TxStockIn,
				Quantity:        line.Quantity,
				ToLocationID:    &req.LocationID,
				Reference:       &reference,
				PerformedBy:     req.ReceivedBy,
			}
			if err := s.txRepo.Insert(ctx, entry); err != nil {
				return err
			}
		}

		if err := s.orderRepo.UpdateStatus(ctx, order.ID, repository.OrderReceived, req.ReceivedBy); err != nil {
			return err
		}
		order.Status = repository.OrderReceived
		order.UpdatedBy = req.ReceivedBy
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID).
		Int64("order_number", order.OrderNumber).
		Int("lines", len(order.Lines)).
		Msg("purchase order received into stock")

	s.publisher.PublishOrderReceived(ctx, tenantID, req.LocationID, req.ReceivedBy, order)
	return order, nil
}

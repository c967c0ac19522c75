package service

import (
	"context"
	"time"

	"github.com/careops/careops-backend/internal/inventory/events"
	"github.com/careops/careops-backend/internal/inventory/repository"
	"github.com/careops/careops-backend/pkg/database"
	"github.com/careops/careops-backend/pkg/errors"
	"github.com/careops/careops-backend/pkg/logger"
	"github.com/careops/careops-backend/pkg/tenant"
)

// StockRequest describes a requested stock movement. A STOCK_IN may omit
// BatchID and identify the lot by its attributes instead; the batch is then
// created (or credited, if the lot already sits at the location) as part of
// the movement, so an initial intake is a single logged transaction.
type StockRequest struct {
	BatchID         string
	TransactionType string
	Quantity        int
	FromLocationID  string
	ToLocationID    string
	Reference       string
	Notes           string
	PerformedBy     string

	// Lot attributes, used by STOCK_IN when BatchID is empty
	ItemID            string
	BatchNumber       string
	ExpiryDate        time.Time
	ManufacturingDate *time.Time
	LocationID        string
	UnitCostCents     int
	SupplierID        *string
}

// StockService is the single write path for batch quantities. Every
// movement validates against current state, updates the affected batches
// and appends a transaction log entry in one serializable transaction.
type StockService struct {
	db        *database.DB
	batchRepo *repository.BatchRepository
	txRepo    *repository.TransactionRepository
	publisher *events.InventoryEventPublisher
	logger    *logger.Logger
}

// NewStockService creates a new stock service
func NewStockService(
	db *database.DB,
	batchRepo *repository.BatchRepository,
	txRepo *repository.TransactionRepository,
	publisher *events.InventoryEventPublisher,
	log *logger.Logger,
) *StockService {
	return &StockService{
		db:        db,
		batchRepo: batchRepo,
		txRepo:    txRepo,
		publisher: publisher,
		logger:    log,
	}
}

// Record applies a stock movement. Validation, the quantity writes and the
// log append commit atomically; on any failure nothing is recorded.
// ADJUSTMENT quantities are signed deltas; all other types are positive.
func (s *StockService) Record(ctx context.Context, req *StockRequest) (*repository.StockTransaction, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var logged *repository.StockTransaction
	err = s.db.RunSerializable(ctx, tenantID, func(ctx context.Context) error {
		entry := &repository.StockTransaction{
			TransactionType: req.TransactionType,
			Quantity:        req.Quantity,
			PerformedBy:     req.PerformedBy,
		}
		if req.Reference != "" {
			entry.Reference = &req.Reference
		}
		if req.Notes != "" {
			entry.Notes = &req.Notes
		}

		if req.TransactionType == repository.TxStockIn && req.BatchID == "" {
			if err := s.stockInLot(ctx, req, entry); err != nil {
				return err
			}
			if err := s.txRepo.Insert(ctx, entry); err != nil {
				return err
			}
			logged = entry
			return nil
		}

		batch, err := s.batchRepo.GetForUpdate(ctx, req.BatchID)
		if err != nil {
			return err
		}
		entry.ItemID = batch.ItemID
		entry.BatchID = batch.ID

		switch req.TransactionType {
		case repository.TxStockIn:
			entry.ToLocationID = &batch.LocationID
			if err := s.batchRepo.SetQuantity(ctx, batch.ID, batch.Quantity+req.Quantity); err != nil {
				return err
			}

		case repository.TxStockOut, repository.TxExpired, repository.TxDamaged:
			if req.Quantity > batch.Quantity {
				return errors.InsufficientStock(batch.ID, req.Quantity, batch.Quantity)
			}
			entry.FromLocationID = &batch.LocationID
			if err := s.batchRepo.SetQuantity(ctx, batch.ID, batch.Quantity-req.Quantity); err != nil {
				return err
			}

		case repository.TxAdjustment:
			next := batch.Quantity + req.Quantity
			if next < 0 {
				return errors.InsufficientStock(batch.ID, -req.Quantity, batch.Quantity)
			}
			entry.ToLocationID = &batch.LocationID
			if err := s.batchRepo.SetQuantity(ctx, batch.ID, next); err != nil {
				return err
			}

		case repository.TxTransfer:
			if err := s.transfer(ctx, batch, req, entry); err != nil {
				return err
			}
		}

		if err := s.txRepo.Insert(ctx, entry); err != nil {
			return err
		}
		logged = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("transaction_id", logged.ID).
		Str("type", logged.TransactionType).
		Str("batch_id", logged.BatchID).
		Int("quantity", logged.Quantity).
		Msg("stock movement recorded")

	s.publisher.PublishStockRecorded(ctx, tenantID, logged)
	return logged, nil
}

// stockInLot credits the lot identified by the request's attributes at the
// target location, creating the batch when it does not exist there yet.
func (s *StockService) stockInLot(ctx context.Context, req *StockRequest, entry *repository.StockTransaction) error {
	entry.ItemID = req.ItemID
	entry.ToLocationID = &req.LocationID

	batch, err := s.batchRepo.FindAtLocationForUpdate(ctx, req.ItemID, req.BatchNumber, req.ExpiryDate, req.LocationID)
	switch {
	case err == nil:
		entry.BatchID = batch.ID
		return s.batchRepo.SetQuantity(ctx, batch.ID, batch.Quantity+req.Quantity)
	case errors.Is(err, errors.ErrNotFound):
		batch = &repository.Batch{
			ItemID:            req.ItemID,
			BatchNumber:       req.BatchNumber,
			ManufacturingDate: req.ManufacturingDate,
			ExpiryDate:        req.ExpiryDate,
			Quantity:          req.Quantity,
			UnitCostCents:     req.UnitCostCents,
			LocationID:        req.LocationID,
			SupplierID:        req.SupplierID,
		}
		if err := s.batchRepo.Create(ctx, batch); err != nil {
			return err
		}
		entry.BatchID = batch.ID
		return nil
	default:
		return err
	}
}

// transfer moves quantity from the locked batch to the same lot at the
// destination, creating the destination batch if it does not exist yet.
// Total stock across both sides is unchanged.
func (s *StockService) transfer(ctx context.Context, batch *repository.Batch, req *StockRequest, entry *repository.StockTransaction) error {
	if req.ToLocationID == batch.LocationID {
		return errors.Validation(map[string]string{"to_location_id": "must differ from the batch's location"})
	}
	if req.Quantity > batch.Quantity {
		return errors.InsufficientStock(batch.ID, req.Quantity, batch.Quantity)
	}

	entry.FromLocationID = &batch.LocationID
	entry.ToLocationID = &req.ToLocationID

	if err := s.batchRepo.SetQuantity(ctx, batch.ID, batch.Quantity-req.Quantity); err != nil {
		return err
	}

	dest, err := s.batchRepo.FindAtLocationForUpdate(ctx, batch.ItemID, batch.BatchNumber, batch.ExpiryDate, req.ToLocationID)
	switch {
	case err == nil:
		return s.batchRepo.SetQuantity(ctx, dest.ID, dest.Quantity+req.Quantity)
	case errors.Is(err, errors.ErrNotFound):
		dest = &repository.Batch{
			ItemID:            batch.ItemID,
			BatchNumber:       batch.BatchNumber,
			ManufacturingDate: batch.ManufacturingDate,
			ExpiryDate:        batch.ExpiryDate,
			Quantity:          req.Quantity,
			UnitCostCents:     batch.UnitCostCents,
			LocationID:        req.ToLocationID,
			SupplierID:        batch.SupplierID,
		}
		return s.batchRepo.Create(ctx, dest)
	default:
		return err
	}
}

// ListByItem returns an item's transaction history, most recent first
func (s *StockService) ListByItem(ctx context.Context, itemID string, page, perPage int) ([]*repository.StockTransaction, int64, error) {
	return s.txRepo.ListByItem(ctx, itemID, page, perPage)
}

// ListByBatch returns a batch's full movement history, oldest first
func (s *StockService) ListByBatch(ctx context.Context, batchID string) ([]*repository.StockTransaction, error) {
	return s.txRepo.ListByBatch(ctx, batchID)
}

func (s *StockService) validate(req *StockRequest) error {
	details := map[string]string{}

	switch req.TransactionType {
	case repository.TxStockIn, repository.TxStockOut, repository.TxTransfer,
		repository.TxExpired, repository.TxDamaged:
		if req.Quantity <= 0 {
			details["quantity"] = "must be positive"
		}
	case repository.TxAdjustment:
		if req.Quantity == 0 {
			details["quantity"] = "must be a non-zero delta"
		}
	default:
		details["transaction_type"] = "unknown transaction type"
	}

	if req.TransactionType == repository.TxTransfer && req.ToLocationID == "" {
		details["to_location_id"] = "is required for transfers"
	}
	if req.BatchID == "" {
		if req.TransactionType == repository.TxStockIn {
			// The lot attributes stand in for the batch id.
			if req.ItemID == "" {
				details["item_id"] = "is required when batch_id is not set"
			}
			if req.BatchNumber == "" {
				details["batch_number"] = "is required when batch_id is not set"
			}
			if req.LocationID == "" {
				details["location_id"] = "is required when batch_id is not set"
			}
			if req.ExpiryDate.IsZero() {
				details["expiry_date"] = "is required when batch_id is not set"
			}
		} else {
			details["batch_id"] = "is required"
		}
	}

	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

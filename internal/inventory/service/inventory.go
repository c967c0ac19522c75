package service

import (
	"context"
	"strconv"
	"time"

	"github.com/careops/careops-backend/internal/inventory/events"
	"github.com/careops/careops-backend/internal/inventory/repository"
	"github.com/careops/careops-backend/pkg/database"
	"github.com/careops/careops-backend/pkg/errors"
	"github.com/careops/careops-backend/pkg/logger"
	"github.com/careops/careops-backend/pkg/tenant"
)

var validCategories = map[string]bool{
	repository.CategoryMedication:   true,
	repository.CategorySurgicalTool: true,
	repository.CategoryPPE:          true,
	repository.CategoryConsumable:   true,
	repository.CategoryEquipment:    true,
	repository.CategoryOther:        true,
}

var validLocationTypes = map[string]bool{
	repository.LocationWarehouse: true,
	repository.LocationPharmacy:  true,
	repository.LocationStorage:   true,
	repository.LocationOther:     true,
}

// InventoryService handles catalog business logic: items, locations,
// suppliers and batch registration
type InventoryService struct {
	db           *database.DB
	itemRepo     *repository.ItemRepository
	locationRepo *repository.LocationRepository
	supplierRepo *repository.SupplierRepository
	batchRepo    *repository.BatchRepository
	counterRepo  *repository.CounterRepository
	publisher    *events.InventoryEventPublisher
	logger       *logger.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(
	db *database.DB,
	itemRepo *repository.ItemRepository,
	locationRepo *repository.LocationRepository,
	supplierRepo *repository.SupplierRepository,
	batchRepo *repository.BatchRepository,
	counterRepo *repository.CounterRepository,
	publisher *events.InventoryEventPublisher,
	log *logger.Logger,
) *InventoryService {
	return &InventoryService{
		db:           db,
		itemRepo:     itemRepo,
		locationRepo: locationRepo,
		supplierRepo: supplierRepo,
		batchRepo:    batchRepo,
		counterRepo:  counterRepo,
		publisher:    publisher,
		logger:       log,
	}
}

// ItemWithStock is an item enriched with its batches and stock summary
type ItemWithStock struct {
	*repository.Item
	Batches       []*repository.Batch `json:"batches"`
	TotalStock    int                 `json:"total_stock"`
	NearestExpiry *time.Time          `json:"nearest_expiry,omitempty"`
}

// Item operations

// CreateItem creates a catalog item, minting its sequential item number.
// The number is minted in the same transaction as the insert so it is only
// consumed on commit.
func (s *InventoryService) CreateItem(ctx context.Context, item *repository.Item) error {
	if !validCategories[item.Category] {
		return errors.Validation(map[string]string{"category": "unknown category"})
	}
	if item.MinStockLevel < 0 || item.ReorderPoint < 0 {
		return errors.Validation(map[string]string{"stock_levels": "must not be negative"})
	}
	s.warnInvertedLevels(item)

	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	item.IsActive = true
	return s.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		number, err := s.counterRepo.Next(ctx, repository.CounterItemNumber)
		if err != nil {
			return err
		}
		item.ItemNumber = number
		return s.itemRepo.Create(ctx, item)
	})
}

// GetItem gets an item with its batches and stock summary
func (s *InventoryService) GetItem(ctx context.Context, id string) (*ItemWithStock, error) {
	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	batches, err := s.batchRepo.ListByItem(ctx, id)
	if err != nil {
		return nil, err
	}

	return enrichItem(item, batches), nil
}

// ListItems lists items with their stock summaries
func (s *InventoryService) ListItems(ctx context.Context, page, perPage int, category string) ([]*ItemWithStock, int64, error) {
	if category != "" && !validCategories[category] {
		return nil, 0, errors.Validation(map[string]string{"category": "unknown category"})
	}

	items, total, err := s.itemRepo.List(ctx, page, perPage, category)
	if err != nil {
		return nil, 0, err
	}

	result := make([]*ItemWithStock, len(items))
	for i, item := range items {
		batches, err := s.batchRepo.ListByItem(ctx, item.ID)
		if err != nil {
			return nil, 0, err
		}
		result[i] = enrichItem(item, batches)
	}

	return result, total, nil
}

// UpdateItem updates a catalog item. The item number is immutable.
func (s *InventoryService) UpdateItem(ctx context.Context, item *repository.Item) error {
	if !validCategories[item.Category] {
		return errors.Validation(map[string]string{"category": "unknown category"})
	}
	if item.MinStockLevel < 0 || item.ReorderPoint < 0 {
		return errors.Validation(map[string]string{"stock_levels": "must not be negative"})
	}
	s.warnInvertedLevels(item)
	return s.itemRepo.Update(ctx, item)
}

// warnInvertedLevels flags a minimum stock level above the reorder point.
// The combination is suspicious but legal, so it is logged, not rejected.
func (s *InventoryService) warnInvertedLevels(item *repository.Item) {
	if item.MinStockLevel > item.ReorderPoint {
		s.logger.Warn().
			Str("item_name", item.Name).
			Int("min_stock_level", item.MinStockLevel).
			Int("reorder_point", item.ReorderPoint).
			Msg("min stock level exceeds reorder point")
	}
}

// RetireItem deactivates an item. Its batches and transaction history stay
// readable through batch endpoints; the item disappears from catalog listings.
func (s *InventoryService) RetireItem(ctx context.Context, id, updatedBy string) error {
	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	item.IsActive = false
	item.UpdatedBy = updatedBy
	return s.itemRepo.Update(ctx, item)
}

// Location operations

// CreateLocation creates a stock location
func (s *InventoryService) CreateLocation(ctx context.Context, loc *repository.Location) error {
	if !validLocationTypes[loc.LocationType] {
		return errors.Validation(map[string]string{"location_type": "unknown location type"})
	}
	return s.locationRepo.Create(ctx, loc)
}

// GetLocation gets a location by ID
func (s *InventoryService) GetLocation(ctx context.Context, id string) (*repository.Location, error) {
	return s.locationRepo.GetByID(ctx, id)
}

// ListLocations lists all locations
func (s *InventoryService) ListLocations(ctx context.Context) ([]*repository.Location, error) {
	return s.locationRepo.List(ctx)
}

// UpdateLocation updates a location
func (s *InventoryService) UpdateLocation(ctx context.Context, loc *repository.Location) error {
	if !validLocationTypes[loc.LocationType] {
		return errors.Validation(map[string]string{"location_type": "unknown location type"})
	}
	return s.locationRepo.Update(ctx, loc)
}

// DeleteLocation deletes a location. Foreign keys from batches surface as
// a bad request when the location still holds stock.
func (s *InventoryService) DeleteLocation(ctx context.Context, id string) error {
	return s.locationRepo.Delete(ctx, id)
}

// Supplier operations

// CreateSupplier creates a supplier
func (s *InventoryService) CreateSupplier(ctx context.Context, sup *repository.Supplier) error {
	return s.supplierRepo.Create(ctx, sup)
}

// GetSupplier gets a supplier by ID
func (s *InventoryService) GetSupplier(ctx context.Context, id string) (*repository.Supplier, error) {
	return s.supplierRepo.GetByID(ctx, id)
}

// ListSuppliers lists all suppliers
func (s *InventoryService) ListSuppliers(ctx context.Context) ([]*repository.Supplier, error) {
	return s.supplierRepo.List(ctx)
}

// UpdateSupplier updates a supplier
func (s *InventoryService) UpdateSupplier(ctx context.Context, sup *repository.Supplier) error {
	return s.supplierRepo.Update(ctx, sup)
}

// DeleteSupplier deletes a supplier unless batches or open purchase orders
// still reference it
func (s *InventoryService) DeleteSupplier(ctx context.Context, id string) error {
	refs, err := s.supplierRepo.References(ctx, id)
	if err != nil {
		return err
	}
	if refs.InUse() {
		return errors.Conflict("supplier is referenced by existing batches or open orders").WithDetails(map[string]string{
			"batches":     strconv.FormatInt(refs.Batches, 10),
			"open_orders": strconv.FormatInt(refs.OpenOrders, 10),
		})
	}
	return s.supplierRepo.Delete(ctx, id)
}

// Batch operations

// CreateBatch registers a new batch of stock. The initial quantity is
// recorded directly on the batch; subsequent movement goes through the
// transaction processor.
func (s *InventoryService) CreateBatch(ctx context.Context, batch *repository.Batch) error {
	if batch.Quantity < 0 {
		return errors.Validation(map[string]string{"quantity": "must not be negative"})
	}
	if batch.UnitCostCents < 0 {
		return errors.Validation(map[string]string{"unit_cost": "must not be negative"})
	}
	if batch.ExpiryDate.IsZero() {
		return errors.Validation(map[string]string{"expiry_date": "is required"})
	}
	if batch.ManufacturingDate != nil && !batch.ManufacturingDate.Before(batch.ExpiryDate) {
		return errors.Validation(map[string]string{"manufacturing_date": "must be before expiry date"})
	}

	if _, err := s.itemRepo.GetByID(ctx, batch.ItemID); err != nil {
		return err
	}
	if _, err := s.locationRepo.GetByID(ctx, batch.LocationID); err != nil {
		return err
	}

	if err := s.batchRepo.Create(ctx, batch); err != nil {
		return err
	}

	tenantID, _ := tenant.TenantID(ctx)
	s.publisher.PublishBatchCreated(ctx, tenantID, batch)
	return nil
}

// GetBatch gets a batch by ID
func (s *InventoryService) GetBatch(ctx context.Context, id string) (*repository.Batch, error) {
	return s.batchRepo.GetByID(ctx, id)
}

// ListBatchesByItem lists an item's batches, soonest expiry first
func (s *InventoryService) ListBatchesByItem(ctx context.Context, itemID string) ([]*repository.Batch, error) {
	return s.batchRepo.ListByItem(ctx, itemID)
}

func enrichItem(item *repository.Item, batches []*repository.Batch) *ItemWithStock {
	enriched := &ItemWithStock{
		Item:    item,
		Batches: batches,
	}
	for _, b := range batches {
		enriched.TotalStock += b.Quantity
		if b.Quantity > 0 {
			expiry := b.ExpiryDate
			if enriched.NearestExpiry == nil || expiry.Before(*enriched.NearestExpiry) {
				enriched.NearestExpiry = &expiry
			}
		}
	}
	return enriched
}

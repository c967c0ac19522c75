package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ItemFixture represents test catalog item data
type ItemFixture struct {
	ID            string
	ItemNumber    int64
	Name          string
	Category      string
	Unit          string
	MinStockLevel int
	ReorderPoint  int
	IsActive      bool
	CreatedAt     time.Time
}

// BatchFixture represents test batch data
type BatchFixture struct {
	ID            string
	ItemID        string
	BatchNumber   string
	ExpiryDate    time.Time
	Quantity      int
	UnitCostCents int
	LocationID    string
	CreatedAt     time.Time
}

// LocationFixture represents test location data
type LocationFixture struct {
	ID           string
	Name         string
	LocationType string
	CreatedAt    time.Time
}

// SupplierFixture represents test supplier data
type SupplierFixture struct {
	ID            string
	Name          string
	ContactPerson string
	Email         string
	Phone         string
	CreatedAt     time.Time
}

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

func (f *FixtureFactory) next() int {
	f.sequence++
	return f.sequence
}

// Item creates an item fixture. Overrides mutate the returned struct.
func (f *FixtureFactory) Item(overrides ...func(*ItemFixture)) *ItemFixture {
	n := f.next()
	item := &ItemFixture{
		ID:            uuid.New().String(),
		ItemNumber:    int64(n),
		Name:          fmt.Sprintf("Test Item %d", n),
		Category:      "CONSUMABLE",
		Unit:          "piece",
		MinStockLevel: 10,
		ReorderPoint:  20,
		IsActive:      true,
		CreatedAt:     time.Now().UTC(),
	}
	for _, override := range overrides {
		override(item)
	}
	return item
}

// Batch creates a batch fixture tied to an item and location
func (f *FixtureFactory) Batch(itemID, locationID string, overrides ...func(*BatchFixture)) *BatchFixture {
	n := f.next()
	batch := &BatchFixture{
		ID:            uuid.New().String(),
		ItemID:        itemID,
		BatchNumber:   fmt.Sprintf("LOT-%04d", n),
		ExpiryDate:    time.Now().UTC().AddDate(1, 0, 0).Truncate(24 * time.Hour),
		Quantity:      100,
		UnitCostCents: 250,
		LocationID:    locationID,
		CreatedAt:     time.Now().UTC(),
	}
	for _, override := range overrides {
		override(batch)
	}
	return batch
}

// Location creates a location fixture
func (f *FixtureFactory) Location(overrides ...func(*LocationFixture)) *LocationFixture {
	n := f.next()
	loc := &LocationFixture{
		ID:           uuid.New().String(),
		Name:         fmt.Sprintf("Test Location %d", n),
		LocationType: "WAREHOUSE",
		CreatedAt:    time.Now().UTC(),
	}
	for _, override := range overrides {
		override(loc)
	}
	return loc
}

// Supplier creates a supplier fixture
func (f *FixtureFactory) Supplier(overrides ...func(*SupplierFixture)) *SupplierFixture {
	n := f.next()
	sup := &SupplierFixture{
		ID:            uuid.New().String(),
		Name:          fmt.Sprintf("Test Supplier %d", n),
		ContactPerson: "Alex Doe",
		Email:         fmt.Sprintf("supplier%d@example.com", n),
		Phone:         "+1-555-0100",
		CreatedAt:     time.Now().UTC(),
	}
	for _, override := range overrides {
		override(sup)
	}
	return sup
}

// TenantID returns a stable UUID for use as test tenant
func TenantID() string {
	return "11111111-1111-1111-1111-111111111111"
}

// UserID returns a stable UUID for use as test user
func UserID() string {
	return "22222222-2222-2222-2222-222222222222"
}

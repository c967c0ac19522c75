package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Inventory events
	EventStockRecorded  = "inventory.stock.recorded"
	EventBatchCreated   = "inventory.batch.created"
	EventOrderReceived  = "inventory.order.received"
	EventLowStockAlert  = "inventory.alert.low_stock"
	EventExpiringAlert  = "inventory.alert.expiring_batch"
)

// Exchange names
const (
	ExchangeInventoryEvents = "inventory.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// GenerateEventID returns a unique event identifier
func GenerateEventID() string {
	return uuid.New().String()
}

// Inventory events

// StockRecordedEvent is published whenever a stock transaction commits
type StockRecordedEvent struct {
	TenantID        string `json:"tenant_id"`
	TransactionID   string `json:"transaction_id"`
	TransactionType string `json:"transaction_type"`
	ItemID          string `json:"item_id"`
	BatchID         string `json:"batch_id"`
	Quantity        int    `json:"quantity"`
	PerformedBy     string `json:"performed_by"`
}

// BatchCreatedEvent is published when a new batch enters the system
type BatchCreatedEvent struct {
	TenantID    string    `json:"tenant_id"`
	BatchID     string    `json:"batch_id"`
	BatchNumber string    `json:"batch_number"`
	ItemID      string    `json:"item_id"`
	LocationID  string    `json:"location_id"`
	Quantity    int       `json:"quantity"`
	ExpiryDate  time.Time `json:"expiry_date"`
}

// OrderReceivedEvent is published when a purchase order is received into stock
type OrderReceivedEvent struct {
	TenantID    string `json:"tenant_id"`
	OrderID     string `json:"order_id"`
	OrderNumber int64  `json:"order_number"`
	SupplierID  string `json:"supplier_id"`
	LocationID  string `json:"location_id"`
	LineCount   int    `json:"line_count"`
	ReceivedBy  string `json:"received_by"`
}

// LowStockAlertEvent is published by the alert sweeper for items at or
// below their minimum stock level
type LowStockAlertEvent struct {
	TenantID      string `json:"tenant_id"`
	ItemID        string `json:"item_id"`
	ItemName      string `json:"item_name"`
	TotalStock    int    `json:"total_stock"`
	MinStockLevel int    `json:"min_stock_level"`
	ReorderPoint  int    `json:"reorder_point"`
}

// ExpiringBatchAlertEvent is published by the alert sweeper for batches
// nearing expiry
type ExpiringBatchAlertEvent struct {
	TenantID        string    `json:"tenant_id"`
	BatchID         string    `json:"batch_id"`
	BatchNumber     string    `json:"batch_number"`
	ItemID          string    `json:"item_id"`
	Quantity        int       `json:"quantity"`
	ExpiryDate      time.Time `json:"expiry_date"`
	DaysUntilExpiry int       `json:"days_until_expiry"`
}

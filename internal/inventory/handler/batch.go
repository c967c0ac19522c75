package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/careops/careops-backend/internal/inventory/repository"
	"github.com/careops/careops-backend/internal/inventory/service"
	"github.com/careops/careops-backend/pkg/errors"
	"github.com/careops/careops-backend/pkg/httputil"
	"github.com/careops/careops-backend/pkg/logger"
)

// BatchHandler handles batch endpoints
type BatchHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(svc *service.InventoryService, log *logger.Logger) *BatchHandler {
	return &BatchHandler{
		service: svc,
		logger:  log,
	}
}

type batchRequest struct {
	ItemID            string  `json:"item_id" validate:"required,uuid"`
	BatchNumber       string  `json:"batch_number" validate:"required,max=100"`
	ManufacturingDate *string `json:"manufacturing_date"`
	ExpiryDate        string  `json:"expiry_date" validate:"required"`
	Quantity          int     `json:"quantity" validate:"gte=0"`
	UnitCostCents     int     `json:"unit_cost_cents" validate:"gte=0"`
	LocationID        string  `json:"location_id" validate:"required,uuid"`
	SupplierID        *string `json:"supplier_id" validate:"omitempty,uuid"`
}

// Create registers a new batch
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	expiry, err := time.Parse("2006-01-02", req.ExpiryDate)
	if err != nil {
		httputil.Error(w, errors.Validation(map[string]string{"expiry_date": "must be a date in YYYY-MM-DD format"}))
		return
	}

	batch := &repository.Batch{
		ItemID:        req.ItemID,
		BatchNumber:   req.BatchNumber,
		ExpiryDate:    expiry,
		Quantity:      req.Quantity,
		UnitCostCents: req.UnitCostCents,
		LocationID:    req.LocationID,
		SupplierID:    req.SupplierID,
	}
	if req.ManufacturingDate != nil {
		mfg, err := time.Parse("2006-01-02", *req.ManufacturingDate)
		if err != nil {
			httputil.Error(w, errors.Validation(map[string]string{"manufacturing_date": "must be a date in YYYY-MM-DD format"}))
			return
		}
		batch.ManufacturingDate = &mfg
	}

	if err := h.service.CreateBatch(r.Context(), batch); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, batch)
}

// Get gets a batch by ID
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	batch, err := h.service.GetBatch(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// ListByItem lists an item's batches, soonest expiry first
func (h *BatchHandler) ListByItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	batches, err := h.service.ListBatchesByItem(r.Context(), itemID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batches)
}

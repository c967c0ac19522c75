package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/careops/careops-backend/internal/inventory/service"
	"github.com/careops/careops-backend/pkg/actor"
	"github.com/careops/careops-backend/pkg/errors"
	"github.com/careops/careops-backend/pkg/httputil"
	"github.com/careops/careops-backend/pkg/logger"
)

// StockHandler handles stock movement endpoints
type StockHandler struct {
	service *service.StockService
	logger  *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(svc *service.StockService, log *logger.Logger) *StockHandler {
	return &StockHandler{
		service: svc,
		logger:  log,
	}
}

type stockRequest struct {
	BatchID         string `json:"batch_id" validate:"omitempty,uuid"`
	TransactionType string `json:"transaction_type" validate:"required,oneof=STOCK_IN STOCK_OUT TRANSFER ADJUSTMENT EXPIRED DAMAGED"`
	Quantity        int    `json:"quantity" validate:"required"`
	ToLocationID    string `json:"to_location_id" validate:"omitempty,uuid"`
	Reference       string `json:"reference" validate:"max=255"`
	Notes           string `json:"notes"`

	// Lot attributes for a STOCK_IN without a batch_id; the batch is
	// created or credited as part of the movement.
	ItemID            string `json:"item_id" validate:"omitempty,uuid"`
	BatchNumber       string `json:"batch_number" validate:"max=100"`
	ExpiryDate        string `json:"expiry_date"`
	ManufacturingDate string `json:"manufacturing_date"`
	LocationID        string `json:"location_id" validate:"omitempty,uuid"`
	UnitCostCents     int    `json:"unit_cost_cents" validate:"gte=0"`
	SupplierID        string `json:"supplier_id" validate:"omitempty,uuid"`
}

// Record applies a stock movement
func (h *StockHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	record := &service.StockRequest{
		BatchID:         req.BatchID,
		TransactionType: req.TransactionType,
		Quantity:        req.Quantity,
		ToLocationID:    req.ToLocationID,
		Reference:       req.Reference,
		Notes:           req.Notes,
		PerformedBy:     actor.UserID(r.Context()),
		ItemID:          req.ItemID,
		BatchNumber:     req.BatchNumber,
		LocationID:      req.LocationID,
		UnitCostCents:   req.UnitCostCents,
	}
	if req.ExpiryDate != "" {
		expiry, err := time.Parse("2006-01-02", req.ExpiryDate)
		if err != nil {
			httputil.Error(w, errors.Validation(map[string]string{"expiry_date": "must be a date in YYYY-MM-DD format"}))
			return
		}
		record.ExpiryDate = expiry
	}
	if req.ManufacturingDate != "" {
		mfg, err := time.Parse("2006-01-02", req.ManufacturingDate)
		if err != nil {
			httputil.Error(w, errors.Validation(map[string]string{"manufacturing_date": "must be a date in YYYY-MM-DD format"}))
			return
		}
		record.ManufacturingDate = &mfg
	}
	if req.SupplierID != "" {
		record.SupplierID = &req.SupplierID
	}

	tx, err := h.service.Record(r.Context(), record)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, tx)
}

// ListByItem lists an item's transaction history
func (h *StockHandler) ListByItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	txs, total, err := h.service.ListByItem(r.Context(), itemID, page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, txs, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// ListByBatch lists a batch's full movement history
func (h *StockHandler) ListByBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "id")

	txs, err := h.service.ListByBatch(r.Context(), batchID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, txs)
}

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

// PurchaseOrderHandler handles purchase order endpoints
type PurchaseOrderHandler struct {
	service *service.PurchaseOrderService
	logger  *logger.Logger
}

// NewPurchaseOrderHandler creates a new purchase order handler
func NewPurchaseOrderHandler(svc *service.PurchaseOrderService, log *logger.Logger) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{
		service: svc,
		logger:  log,
	}
}

type orderLineRequest struct {
	ItemID         string `json:"item_id" validate:"required,uuid"`
	Quantity       int    `json:"quantity" validate:"gt=0"`
	UnitPriceCents int    `json:"unit_price_cents" validate:"gte=0"`
}

type createOrderRequest struct {
	SupplierID   string             `json:"supplier_id" validate:"required,uuid"`
	Lines        []orderLineRequest `json:"lines" validate:"required,min=1,dive"`
	ExpectedDate string             `json:"expected_date" validate:"required"`
	Notes        string             `json:"notes"`
}

// Create creates a purchase order in DRAFT
func (h *PurchaseOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	create := &service.CreateOrderRequest{
		SupplierID: req.SupplierID,
		Notes:      req.Notes,
		CreatedBy:  actor.UserID(r.Context()),
	}
	expected, err := time.Parse("2006-01-02", req.ExpectedDate)
	if err != nil {
		httputil.Error(w, errors.Validation(map[string]string{"expected_date": "must be a date in YYYY-MM-DD format"}))
		return
	}
	create.ExpectedDate = &expected
	for _, line := range req.Lines {
		create.Lines = append(create.Lines, service.OrderLineRequest{
			ItemID:         line.ItemID,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
		})
	}

	order, err := h.service.Create(r.Context(), create)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, order)
}

// Get gets a purchase order with its lines
func (h *PurchaseOrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, order)
}

// List lists purchase orders
func (h *PurchaseOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	status := r.URL.Query().Get("status")

	orders, total, err := h.service.List(r.Context(), status, page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, orders, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// Transition moves an order to a new status
func (h *PurchaseOrderHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Status string `json:"status" validate:"required,oneof=PENDING APPROVED ORDERED CANCELLED"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	order, err := h.service.Transition(r.Context(), id, req.Status, actor.UserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, order)
}

// Receive receives an ordered purchase order into stock
func (h *PurchaseOrderHandler) Receive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		LocationID string `json:"location_id" validate:"required,uuid"`
		ExpiryDate string `json:"expiry_date" validate:"required"`
	}
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

	order, err := h.service.Receive(r.Context(), &service.ReceiveOrderRequest{
		OrderID:    id,
		LocationID: req.LocationID,
		ExpiryDate: expiry,
		ReceivedBy: actor.UserID(r.Context()),
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, order)
}

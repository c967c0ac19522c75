package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/careops/careops-backend/internal/inventory/repository"
	"github.com/careops/careops-backend/internal/inventory/service"
	"github.com/careops/careops-backend/pkg/actor"
	"github.com/careops/careops-backend/pkg/httputil"
	"github.com/careops/careops-backend/pkg/logger"
)

// ItemHandler handles catalog item endpoints
type ItemHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(svc *service.InventoryService, log *logger.Logger) *ItemHandler {
	return &ItemHandler{
		service: svc,
		logger:  log,
	}
}

type itemRequest struct {
	Name          string                   `json:"name" validate:"required,max=255"`
	Description   *string                  `json:"description"`
	Category      string                   `json:"category" validate:"required"`
	Unit          string                   `json:"unit" validate:"required,max=50"`
	MinStockLevel int                      `json:"min_stock_level" validate:"gte=0"`
	ReorderPoint  int                      `json:"reorder_point" validate:"gte=0"`
	MedicalCodes  []repository.MedicalCode `json:"medical_codes"`
}

// List lists catalog items
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	category := r.URL.Query().Get("category")

	items, total, err := h.service.ListItems(r.Context(), page, perPage, category)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, items, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// Get gets an item by ID with its batches
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// Create creates a new catalog item
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	userID := actor.UserID(r.Context())
	item := &repository.Item{
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Unit:          req.Unit,
		MinStockLevel: req.MinStockLevel,
		ReorderPoint:  req.ReorderPoint,
		Codes:         req.MedicalCodes,
		CreatedBy:     userID,
		UpdatedBy:     userID,
	}

	if err := h.service.CreateItem(r.Context(), item); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, item)
}

// Update updates a catalog item
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req itemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	item := &repository.Item{
		ID:            id,
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Unit:          req.Unit,
		MinStockLevel: req.MinStockLevel,
		ReorderPoint:  req.ReorderPoint,
		IsActive:      true,
		Codes:         req.MedicalCodes,
		UpdatedBy:     actor.UserID(r.Context()),
	}

	if err := h.service.UpdateItem(r.Context(), item); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// Delete retires a catalog item
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.RetireItem(r.Context(), id, actor.UserID(r.Context())); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/careops/careops-backend/internal/inventory/repository"
	"github.com/careops/careops-backend/internal/inventory/service"
	"github.com/careops/careops-backend/pkg/httputil"
	"github.com/careops/careops-backend/pkg/logger"
)

// SupplierHandler handles supplier directory endpoints
type SupplierHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewSupplierHandler creates a new supplier handler
func NewSupplierHandler(svc *service.InventoryService, log *logger.Logger) *SupplierHandler {
	return &SupplierHandler{
		service: svc,
		logger:  log,
	}
}

type supplierRequest struct {
	Name               string  `json:"name" validate:"required,max=255"`
	ContactPerson      string  `json:"contact_person" validate:"required,max=255"`
	Email              string  `json:"email" validate:"required,email"`
	Phone              string  `json:"phone" validate:"required,max=50"`
	Address            string  `json:"address"`
	TaxID              *string `json:"tax_id"`
	RegistrationNumber *string `json:"registration_number"`
}

// List lists all suppliers
func (h *SupplierHandler) List(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.service.ListSuppliers(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, suppliers)
}

// Get gets a supplier by ID
func (h *SupplierHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	supplier, err := h.service.GetSupplier(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, supplier)
}

// Create creates a new supplier
func (h *SupplierHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	supplier := supplierFromRequest("", &req)
	if err := h.service.CreateSupplier(r.Context(), supplier); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, supplier)
}

// Update updates a supplier
func (h *SupplierHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req supplierRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	supplier := supplierFromRequest(id, &req)
	if err := h.service.UpdateSupplier(r.Context(), supplier); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, supplier)
}

// Delete deletes a supplier if nothing references it
func (h *SupplierHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteSupplier(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

func supplierFromRequest(id string, req *supplierRequest) *repository.Supplier {
	return &repository.Supplier{
		ID:                 id,
		Name:               req.Name,
		ContactPerson:      req.ContactPerson,
		Email:              req.Email,
		Phone:              req.Phone,
		Address:            req.Address,
		TaxID:              req.TaxID,
		RegistrationNumber: req.RegistrationNumber,
	}
}

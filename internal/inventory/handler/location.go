package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/careops/careops-backend/internal/inventory/repository"
	"github.com/careops/careops-backend/internal/inventory/service"
	"github.com/careops/careops-backend/pkg/httputil"
	"github.com/careops/careops-backend/pkg/logger"
)

// LocationHandler handles stock location endpoints
type LocationHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(svc *service.InventoryService, log *logger.Logger) *LocationHandler {
	return &LocationHandler{
		service: svc,
		logger:  log,
	}
}

type locationRequest struct {
	Name         string  `json:"name" validate:"required,max=255"`
	Description  string  `json:"description" validate:"required"`
	FacilityID   *string `json:"facility_id"`
	LocationType string  `json:"location_type" validate:"required"`
}

// List lists all locations
func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	locations, err := h.service.ListLocations(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, locations)
}

// Get gets a location by ID
func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	location, err := h.service.GetLocation(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, location)
}

// Create creates a new location
func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	location := &repository.Location{
		Name:         req.Name,
		Description:  &req.Description,
		FacilityID:   req.FacilityID,
		LocationType: req.LocationType,
	}

	if err := h.service.CreateLocation(r.Context(), location); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, location)
}

// Update updates a location
func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req locationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	location := &repository.Location{
		ID:           id,
		Name:         req.Name,
		Description:  &req.Description,
		FacilityID:   req.FacilityID,
		LocationType: req.LocationType,
	}

	if err := h.service.UpdateLocation(r.Context(), location); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, location)
}

// Delete deletes a location
func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteLocation(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

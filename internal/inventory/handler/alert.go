package handler

import (
	"net/http"
	"strconv"

	"github.com/careops/careops-backend/internal/inventory/service"
	"github.com/careops/careops-backend/pkg/httputil"
	"github.com/careops/careops-backend/pkg/logger"
)

// AlertHandler handles stock alert endpoints
type AlertHandler struct {
	service           *service.AlertService
	defaultExpiryDays int
	logger            *logger.Logger
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(svc *service.AlertService, defaultExpiryDays int, log *logger.Logger) *AlertHandler {
	return &AlertHandler{
		service:           svc,
		defaultExpiryDays: defaultExpiryDays,
		logger:            log,
	}
}

// LowStock lists items whose total stock fell below their reorder point
func (h *AlertHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.service.LowStock(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, alerts)
}

// Expiring lists batches expiring within the lookahead window.
// The window defaults from config and can be overridden with ?days=N.
func (h *AlertHandler) Expiring(w http.ResponseWriter, r *http.Request) {
	days := h.defaultExpiryDays
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err == nil {
			days = parsed
		}
	}

	batches, err := h.service.Expiring(r.Context(), days)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batches)
}

// Expired lists batches past expiry that still hold stock
func (h *AlertHandler) Expired(w http.ResponseWriter, r *http.Request) {
	batches, err := h.service.Expired(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batches)
}

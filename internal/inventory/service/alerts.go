package service

import (
	"context"

	"github.com/careops/careops-backend/internal/inventory/repository"
	"github.com/careops/careops-backend/pkg/errors"
	"github.com/careops/careops-backend/pkg/logger"
)

// AlertService serves the stock alert views. Alerts are computed from
// current batch state on every request, so they disappear as soon as the
// underlying condition clears.
type AlertService struct {
	alertRepo *repository.AlertRepository
	logger    *logger.Logger
}

// NewAlertService creates a new alert service
func NewAlertService(alertRepo *repository.AlertRepository, log *logger.Logger) *AlertService {
	return &AlertService{
		alertRepo: alertRepo,
		logger:    log,
	}
}

// LowStock lists items whose total stock is below their reorder point
func (s *AlertService) LowStock(ctx context.Context) ([]*repository.LowStockAlert, error) {
	return s.alertRepo.LowStock(ctx)
}

// Expiring lists batches with stock expiring within the given number of days
func (s *AlertService) Expiring(ctx context.Context, days int) ([]*repository.ExpiringBatch, error) {
	if days <= 0 {
		return nil, errors.Validation(map[string]string{"days": "must be positive"})
	}
	return s.alertRepo.Expiring(ctx, days)
}

// Expired lists batches past expiry that still hold stock
func (s *AlertService) Expired(ctx context.Context) ([]*repository.ExpiringBatch, error) {
	return s.alertRepo.Expired(ctx)
}

package service

import (
	"context"
	"time"

	"github.com/careops/careops-backend/internal/inventory/events"
	"github.com/careops/careops-backend/internal/inventory/repository"
	"github.com/careops/careops-backend/pkg/database"
	"github.com/careops/careops-backend/pkg/logger"
	"github.com/careops/careops-backend/pkg/tenant"
)

// AlertSweeper periodically evaluates the alert views for every active
// tenant and publishes alert events to the broker. The views themselves
// stay request-time; the sweeper only notifies.
type AlertSweeper struct {
	alertRepo  *repository.AlertRepository
	db         *database.DB
	publisher  *events.InventoryEventPublisher
	interval   time.Duration
	expiryDays int
	logger     *logger.Logger
	cancel     context.CancelFunc
}

// NewAlertSweeper creates a new alert sweeper
func NewAlertSweeper(
	alertRepo *repository.AlertRepository,
	db *database.DB,
	publisher *events.InventoryEventPublisher,
	interval time.Duration,
	expiryDays int,
	log *logger.Logger,
) *AlertSweeper {
	return &AlertSweeper{
		alertRepo:  alertRepo,
		db:         db,
		publisher:  publisher,
		interval:   interval,
		expiryDays: expiryDays,
		logger:     log,
	}
}

// Start starts the sweeper in a background goroutine. An initial sweep runs
// immediately, then one per interval.
func (s *AlertSweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		s.logger.Info().Dur("interval", s.interval).Msg("alert sweeper started")

		s.runSweep(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("alert sweeper stopped")
				return
			case <-ticker.C:
				s.runSweep(ctx)
			}
		}
	}()
}

// Stop stops the sweeper goroutine
func (s *AlertSweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *AlertSweeper) runSweep(ctx context.Context) {
	start := time.Now()

	tenantIDs, err := s.getActiveTenantIDs(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to query active tenants")
		return
	}

	for _, tenantID := range tenantIDs {
		tenantCtx := tenant.WithTenantID(ctx, tenantID)
		if err := s.sweepTenant(tenantCtx, tenantID); err != nil {
			s.logger.Error().Err(err).Str("tenant_id", tenantID).Msg("alert sweep failed for tenant")
		}
	}

	s.logger.Info().
		Dur("duration", time.Since(start)).
		Int("tenant_count", len(tenantIDs)).
		Msg("alert sweep completed")
}

func (s *AlertSweeper) sweepTenant(ctx context.Context, tenantID string) error {
	lowStock, err := s.alertRepo.LowStock(ctx)
	if err != nil {
		return err
	}
	for _, alert := range lowStock {
		s.publisher.PublishLowStockAlert(ctx, tenantID, alert)
	}

	expiring, err := s.alertRepo.Expiring(ctx, s.expiryDays)
	if err != nil {
		return err
	}
	for _, batch := range expiring {
		s.publisher.PublishExpiringAlert(ctx, tenantID, batch)
	}

	return nil
}

// getActiveTenantIDs queries active tenant IDs from public.tenants, which
// has no RLS, so no tenant context is needed.
func (s *AlertSweeper) getActiveTenantIDs(ctx context.Context) ([]string, error) {
	var tenantIDs []string
	query := `SELECT id FROM public.tenants WHERE is_active = TRUE`
	if err := s.db.DB.SelectContext(ctx, &tenantIDs, query); err != nil {
		return nil, err
	}
	return tenantIDs, nil
}

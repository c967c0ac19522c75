package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/careops/careops-backend/internal/inventory/events"
	"github.com/careops/careops-backend/internal/inventory/handler"
	"github.com/careops/careops-backend/internal/inventory/repository"
	"github.com/careops/careops-backend/internal/inventory/service"
	"github.com/careops/careops-backend/pkg/config"
	"github.com/careops/careops-backend/pkg/database"
	"github.com/careops/careops-backend/pkg/httputil"
	"github.com/careops/careops-backend/pkg/logger"
	"github.com/careops/careops-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("inventory-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("inventory-service", cfg.Server.Environment)
	log.Info().Msg("starting Inventory Service")

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	publisher, err := events.NewInventoryEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Repositories
	itemRepo := repository.NewItemRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	counterRepo := repository.NewCounterRepository(db)
	orderRepo := repository.NewPurchaseOrderRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	// Services
	inventoryService := service.NewInventoryService(db, itemRepo, locationRepo, supplierRepo, batchRepo, counterRepo, publisher, log)
	stockService := service.NewStockService(db, batchRepo, txRepo, publisher, log)
	orderService := service.NewPurchaseOrderService(db, orderRepo, supplierRepo, itemRepo, batchRepo, txRepo, counterRepo, publisher, log)
	alertService := service.NewAlertService(alertRepo, log)

	// Handlers
	itemHandler := handler.NewItemHandler(inventoryService, log)
	locationHandler := handler.NewLocationHandler(inventoryService, log)
	supplierHandler := handler.NewSupplierHandler(inventoryService, log)
	batchHandler := handler.NewBatchHandler(inventoryService, log)
	stockHandler := handler.NewStockHandler(stockService, log)
	orderHandler := handler.NewPurchaseOrderHandler(orderService, log)
	alertHandler := handler.NewAlertHandler(alertService, cfg.Alerts.ExpiryWindowDays, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background alert sweeper
	sweeper := service.NewAlertSweeper(alertRepo, db, publisher, cfg.Alerts.SweepInterval, cfg.Alerts.ExpiryWindowDays, log)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// Router
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Tenant-ID", "X-User-ID", "X-User-Name", "X-User-Email", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(httputil.TenantMiddleware)
	r.Use(httputil.ActorMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "inventory-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	r.Route("/api/v1/inventory", func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Get("/", itemHandler.List)
			r.Post("/", itemHandler.Create)
			r.Get("/{id}", itemHandler.Get)
			r.Put("/{id}", itemHandler.Update)
			r.Delete("/{id}", itemHandler.Delete)
			r.Get("/{id}/batches", batchHandler.ListByItem)
			r.Get("/{id}/transactions", stockHandler.ListByItem)
		})

		r.Route("/locations", func(r chi.Router) {
			r.Get("/", locationHandler.List)
			r.Post("/", locationHandler.Create)
			r.Get("/{id}", locationHandler.Get)
			r.Put("/{id}", locationHandler.Update)
			r.Delete("/{id}", locationHandler.Delete)
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", supplierHandler.List)
			r.Post("/", supplierHandler.Create)
			r.Get("/{id}", supplierHandler.Get)
			r.Put("/{id}", supplierHandler.Update)
			r.Delete("/{id}", supplierHandler.Delete)
		})

		r.Route("/batches", func(r chi.Router) {
			r.Post("/", batchHandler.Create)
			r.Get("/{id}", batchHandler.Get)
			r.Get("/{id}/transactions", stockHandler.ListByBatch)
		})

		r.Post("/transactions", stockHandler.Record)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orderHandler.List)
			r.Post("/", orderHandler.Create)
			r.Get("/{id}", orderHandler.Get)
			r.Post("/{id}/transition", orderHandler.Transition)
			r.Post("/{id}/receive", orderHandler.Receive)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/low-stock", alertHandler.LowStock)
			r.Get("/expiring", alertHandler.Expiring)
			r.Get("/expired", alertHandler.Expired)
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

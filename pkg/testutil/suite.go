package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/careops/careops-backend/pkg/database"
	"github.com/careops/careops-backend/pkg/logger"
	"github.com/careops/careops-backend/pkg/tenant"
)

var (
	// Global test container, shared across all integration tests in a package
	globalContainer *PostgresContainer
	globalDB        *sqlx.DB
	containerOnce   sync.Once
	containerErr    error
)

// IntegrationSuite provides a base for integration tests with real PostgreSQL
type IntegrationSuite struct {
	Container *PostgresContainer
	RawDB     *sqlx.DB
	DB        *database.DB
	Fixtures  *FixtureFactory
	Logger    *logger.Logger
}

// NewIntegrationSuite creates a new integration test suite.
// Call this in TestMain to set up shared test infrastructure.
//
// Usage:
//
//	var suite *testutil.IntegrationSuite
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    var err error
//	    suite, err = testutil.NewIntegrationSuite(ctx)
//	    if err != nil {
//	        log.Fatalf("failed to create integration suite: %v", err)
//	    }
//	    defer suite.Cleanup(ctx)
//	    os.Exit(m.Run())
//	}
func NewIntegrationSuite(ctx context.Context) (*IntegrationSuite, error) {
	container, db, err := getOrCreateContainer(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.New("test", "test")
	wrappedDB, err := database.NewWithDSN(container.DSN, log)
	if err != nil {
		return nil, err
	}

	if err := container.CreateInventorySchema(ctx, db); err != nil {
		return nil, err
	}

	return &IntegrationSuite{
		Container: container,
		RawDB:     db,
		DB:        wrappedDB,
		Fixtures:  NewFixtureFactory(),
		Logger:    log,
	}, nil
}

func getOrCreateContainer(ctx context.Context) (*PostgresContainer, *sqlx.DB, error) {
	containerOnce.Do(func() {
		globalContainer, containerErr = NewPostgresContainer(ctx, DefaultPostgresConfig())
		if containerErr != nil {
			return
		}
		globalDB, containerErr = globalContainer.Connect(ctx)
	})

	return globalContainer, globalDB, containerErr
}

// SetupTenant registers a fresh tenant for one test. Each test should use
// its own tenant; RLS keeps their rows apart without per-test truncation.
func (s *IntegrationSuite) SetupTenant(t *testing.T, ctx context.Context, name string) string {
	t.Helper()

	tenantID := uuid.New().String()
	if err := s.Container.SeedTenant(ctx, s.RawDB, tenantID, name); err != nil {
		t.Fatalf("failed to seed tenant: %v", err)
	}
	return tenantID
}

// TenantContext returns a context scoped to the given tenant
func (s *IntegrationSuite) TenantContext(tenantID string) context.Context {
	return tenant.WithTenantID(context.Background(), tenantID)
}

// Cleanup closes the suite's database handles. The shared container is
// terminated by TerminateContainer.
func (s *IntegrationSuite) Cleanup(ctx context.Context) {
	if s.DB != nil {
		s.DB.Close()
	}
}

// TerminateContainer stops the shared container. Call it from TestMain
// after all tests in the package have run.
func TerminateContainer(ctx context.Context) {
	if globalDB != nil {
		globalDB.Close()
		globalDB = nil
	}
	if globalContainer != nil {
		globalContainer.Terminate(ctx)
		globalContainer = nil
	}
}

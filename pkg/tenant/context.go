// Package tenant carries the tenant identity through request contexts.
// Every repository call is tenant-scoped; a missing tenant is a hard error,
// never a silent fallback to shared data.
package tenant

import (
	"context"
	"errors"
)

// contextKey is a private type for context keys to prevent collisions
type contextKey string

const tenantIDKey contextKey = "tenant_id"

// ErrNoTenantInContext is returned when tenant context is missing
var ErrNoTenantInContext = errors.New("no tenant in context")

// WithTenantID adds the tenant ID to the context.
// This should be called by middleware after extracting the tenant from
// the gateway headers.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// TenantID extracts the tenant ID from context.
// Returns ErrNoTenantInContext if the tenant ID is not found.
func TenantID(ctx context.Context) (string, error) {
	id, ok := ctx.Value(tenantIDKey).(string)
	if !ok || id == "" {
		return "", ErrNoTenantInContext
	}
	return id, nil
}

// MustTenantID extracts the tenant ID from context and panics if not found.
// Use only in cases where a missing tenant is a programming error.
func MustTenantID(ctx context.Context) string {
	id, err := TenantID(ctx)
	if err != nil {
		panic("tenant ID not found in context")
	}
	return id
}

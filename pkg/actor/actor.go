// Package actor identifies the user or system performing an action.
// The inventory service never authenticates anyone itself; the gateway does
// that and forwards the identity in headers. Actor is what lands in
// performed_by / created_by / approved_by columns.
package actor

import (
	"context"
	"fmt"
)

// Actor represents the entity performing an action in the system.
type Actor struct {
	// ID is the unique identifier of the actor (user ID)
	ID string `json:"id"`

	// Name is the actor's display name
	Name string `json:"name"`

	// Email is the actor's email address
	Email string `json:"email"`

	// TenantID is the tenant the actor belongs to
	TenantID string `json:"tenant_id"`
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return "system"
	}
	return fmt.Sprintf("%s (%s)", a.Name, a.Email)
}

// contextKey is the type for context keys to avoid collisions
type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present (e.g., system operations).
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

// UserID returns the acting user's ID, or the system ID when no actor is
// attached. Convenient for audit columns that must never be empty.
func UserID(ctx context.Context) string {
	a := FromContext(ctx)
	if a == nil {
		return systemActorID
	}
	return a.ID
}

const systemActorID = "00000000-0000-0000-0000-000000000000"

// SystemActor returns an Actor representing the system itself.
// Use this for background jobs and system-initiated operations.
func SystemActor() *Actor {
	return &Actor{
		ID:    systemActorID,
		Name:  "System",
		Email: "system@careops.local",
	}
}

// IsSystem returns true if the actor represents the system.
func (a *Actor) IsSystem() bool {
	if a == nil {
		return true
	}
	return a.ID == systemActorID
}

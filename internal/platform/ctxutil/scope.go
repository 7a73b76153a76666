package ctxutil

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type tenantKey struct{}
type actorKey struct{}

// HostScope is the scope name used when no tenant is attached to the context.
const HostScope = ""

// WithTenant attaches a logical tenant/scope name to ctx. An empty name
// selects the host scope.
func WithTenant(ctx context.Context, tenant string) context.Context {
	return context.WithValue(Default(ctx), tenantKey{}, strings.TrimSpace(tenant))
}

// Tenant returns the scope carried by ctx, or HostScope.
func Tenant(ctx context.Context) string {
	if ctx == nil {
		return HostScope
	}
	if v, ok := ctx.Value(tenantKey{}).(string); ok {
		return v
	}
	return HostScope
}

// WithActor attaches the id of the user performing the current operation.
func WithActor(ctx context.Context, actor uuid.UUID) context.Context {
	return context.WithValue(Default(ctx), actorKey{}, actor)
}

// Actor returns the acting user id, if any.
func Actor(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	v, ok := ctx.Value(actorKey{}).(uuid.UUID)
	if !ok || v == uuid.Nil {
		return uuid.Nil, false
	}
	return v, true
}

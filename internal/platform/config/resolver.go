package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/elementstore/internal/platform/ctxutil"
)

// ConnectionResolver returns the connection string for a named connection in
// the scope carried by ctx. Implementations are consulted on every call.
type ConnectionResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// ResolverFunc adapts a function to ConnectionResolver.
type ResolverFunc func(ctx context.Context, name string) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context, name string) (string, error) {
	return f(ctx, name)
}

// UnknownScopeError is returned for a tenant that is not configured.
type UnknownScopeError struct {
	Scope string
}

func (e *UnknownScopeError) Error() string {
	return fmt.Sprintf("config: unknown tenant %q", e.Scope)
}

type configResolver struct {
	cfg *Config
}

// NewResolver resolves from cfg. A tenant without its own connection string
// shares the host one.
func NewResolver(cfg *Config) ConnectionResolver {
	return &configResolver{cfg: cfg}
}

func (r *configResolver) Resolve(ctx context.Context, name string) (string, error) {
	if r == nil || r.cfg == nil {
		return "", fmt.Errorf("config: resolver has no configuration")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = ConnectionDefault
	}
	scope := ctxutil.Tenant(ctx)
	if scope != ctxutil.HostScope {
		tenant, ok := r.tenant(scope)
		if !ok {
			return "", &UnknownScopeError{Scope: scope}
		}
		if dsn := strings.TrimSpace(tenant.ConnectionStrings[name]); dsn != "" {
			return dsn, nil
		}
	}
	dsn := strings.TrimSpace(r.cfg.ConnectionStrings[name])
	if dsn == "" {
		return "", fmt.Errorf("config: connection string %q is not configured", name)
	}
	return dsn, nil
}

func (r *configResolver) tenant(name string) (TenantConfig, bool) {
	for _, t := range r.cfg.Tenants {
		if strings.TrimSpace(t.Name) == name {
			return t, true
		}
	}
	return TenantConfig{}, false
}

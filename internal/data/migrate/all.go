package migrate

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	domain "github.com/yungbote/elementstore/internal/domain/elements"
	"github.com/yungbote/elementstore/internal/platform/ctxutil"
)

type targeted interface {
	Target(ctx context.Context) (string, error)
}

// MigrateAll migrates the host scope and every tenant concurrently. When m
// can report its target, scopes that share a database are migrated once, by
// the first scope in host-then-tenants order.
func MigrateAll(ctx context.Context, m domain.SchemaMigrator, tenants []string) error {
	scopes, err := distinctScopes(ctx, m, append([]string{ctxutil.HostScope}, tenants...))
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, scope := range scopes {
		g.Go(func() error {
			if err := m.Migrate(ctxutil.WithTenant(gctx, scope)); err != nil {
				return fmt.Errorf("migrate scope %q: %w", scopeLabel(scope), err)
			}
			return nil
		})
	}
	return g.Wait()
}

func distinctScopes(ctx context.Context, m domain.SchemaMigrator, scopes []string) ([]string, error) {
	t, ok := m.(targeted)
	if !ok {
		return scopes, nil
	}
	seen := map[string]bool{}
	var out []string
	for _, scope := range scopes {
		dsn, err := t.Target(ctxutil.WithTenant(ctx, scope))
		if err != nil {
			return nil, fmt.Errorf("resolve scope %q: %w", scopeLabel(scope), err)
		}
		if seen[dsn] {
			continue
		}
		seen[dsn] = true
		out = append(out, scope)
	}
	return out, nil
}

func scopeLabel(scope string) string {
	if scope == ctxutil.HostScope {
		return "host"
	}
	return scope
}

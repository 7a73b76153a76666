package app

import (
	"context"
	"fmt"

	redisclient "github.com/yungbote/elementstore/internal/clients/redis"
	"github.com/yungbote/elementstore/internal/data/aggregates"
	"github.com/yungbote/elementstore/internal/data/db"
	"github.com/yungbote/elementstore/internal/data/migrate"
	elementrepo "github.com/yungbote/elementstore/internal/data/repos/elements"
	domain "github.com/yungbote/elementstore/internal/domain/elements"
	"github.com/yungbote/elementstore/internal/observability"
	"github.com/yungbote/elementstore/internal/platform/config"
	"github.com/yungbote/elementstore/internal/platform/logger"
)

// Repos builds the element repository of the configured backend for the
// scope carried by ctx.
type Repos struct {
	backend  string
	sql      db.Provider
	docs     *redisclient.Provider
	migrator domain.SchemaMigrator
	prefix   string
	hooks    aggregates.Hooks
	log      *logger.Logger
}

func wireRepos(cfg *config.Config, resolver config.ConnectionResolver, metrics *observability.Metrics, log *logger.Logger) (Repos, error) {
	log.Info("Wiring repos...", "provider", cfg.Database.Provider)
	switch cfg.Database.Provider {
	case config.ProviderRelational:
		return Repos{
			backend:  elementrepo.BackendRelational,
			sql:      db.NewProvider(cfg, resolver, log),
			migrator: migrate.NewMigrator(cfg, resolver, log, migrate.WithMetrics(metrics)),
			hooks:    aggregates.NewObservabilityHooks(metrics, elementrepo.BackendRelational),
			log:      log,
		}, nil
	case config.ProviderDocument:
		return Repos{
			backend:  elementrepo.BackendDocument,
			docs:     redisclient.NewProvider(resolver, log),
			migrator: migrate.NullMigrator{},
			prefix:   cfg.Database.CollectionPrefix,
			hooks:    aggregates.NewObservabilityHooks(metrics, elementrepo.BackendDocument),
			log:      log,
		}, nil
	default:
		return Repos{}, fmt.Errorf("app: unsupported database provider %q", cfg.Database.Provider)
	}
}

func (r Repos) Backend() string { return r.backend }

func (r Repos) Migrator() domain.SchemaMigrator { return r.migrator }

func (r Repos) Elements(ctx context.Context) (domain.Repository, error) {
	var repo domain.Repository
	switch r.backend {
	case elementrepo.BackendRelational:
		gdb, err := r.sql.DB(ctx)
		if err != nil {
			return nil, err
		}
		repo = elementrepo.NewGormRepo(gdb, r.log, elementrepo.WithHooks(r.hooks))
	case elementrepo.BackendDocument:
		rdb, err := r.docs.Client(ctx)
		if err != nil {
			return nil, err
		}
		repo = elementrepo.NewRedisRepo(rdb, r.log,
			elementrepo.WithHooks(r.hooks),
			elementrepo.WithCollectionPrefix(r.prefix))
	default:
		return nil, fmt.Errorf("app: repos not wired")
	}
	return instrumentRepository(observability.Tracer(), repo), nil
}

func (r Repos) close() error {
	if r.sql != nil {
		return r.sql.Close()
	}
	if r.docs != nil {
		return r.docs.Close()
	}
	return nil
}

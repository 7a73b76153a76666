package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/elementstore/internal/data/migrate"
	"github.com/yungbote/elementstore/internal/observability"
	"github.com/yungbote/elementstore/internal/platform/audit"
	"github.com/yungbote/elementstore/internal/platform/config"
	"github.com/yungbote/elementstore/internal/platform/ctxutil"
	"github.com/yungbote/elementstore/internal/platform/guid"
	"github.com/yungbote/elementstore/internal/platform/logger"
	svcelements "github.com/yungbote/elementstore/internal/services/elements"
	"github.com/yungbote/elementstore/internal/services/seed"
)

type App struct {
	Log     *logger.Logger
	Cfg     *config.Config
	Metrics *observability.Metrics
	Repos   Repos

	gen          guid.Generator
	stamper      audit.Stamper
	shutdownOTel func(context.Context) error
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if cfg.Source != "" {
		log.Info("Loaded configuration", "path", cfg.Source)
	}

	metrics := observability.NewMetrics(cfg.Metrics.Namespace)
	shutdown := observability.InitOTel(ctx, log, otelConfig(cfg))

	reposet, err := wireRepos(cfg, config.NewResolver(cfg), metrics, log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	return &App{
		Log:          log,
		Cfg:          cfg,
		Metrics:      metrics,
		Repos:        reposet,
		gen:          guid.TimeOrdered(),
		stamper:      audit.NewStamper(),
		shutdownOTel: shutdown,
	}, nil
}

// Scopes lists the host scope followed by every configured tenant.
func (a *App) Scopes() []string {
	return append([]string{ctxutil.HostScope}, a.Cfg.TenantNames()...)
}

// Bootstrap migrates every scope and then seeds each of them in turn.
func (a *App) Bootstrap(ctx context.Context) error {
	if err := migrate.MigrateAll(ctx, a.Repos.Migrator(), a.Cfg.TenantNames()); err != nil {
		return err
	}
	if a.Cfg.Seed.Disabled {
		a.Log.Info("Seeding disabled")
		return nil
	}
	for _, scope := range a.Scopes() {
		if err := a.seedScope(ctxutil.WithTenant(ctx, scope)); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) seedScope(ctx context.Context) error {
	repo, err := a.Repos.Elements(ctx)
	if err != nil {
		return err
	}
	seeder := seed.NewDataSeeder(a.Log, a.Metrics, seed.ElementContributor{
		Repo:    repo,
		Gen:     a.gen,
		Stamper: a.stamper,
	})
	return seeder.Seed(ctx)
}

// Elements returns the element manager for the scope carried by ctx.
func (a *App) Elements(ctx context.Context) (svcelements.Manager, error) {
	repo, err := a.Repos.Elements(ctx)
	if err != nil {
		return nil, err
	}
	return svcelements.NewManager(repo, a.gen, a.stamper, a.Log), nil
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if err := a.Repos.close(); err != nil && a.Log != nil {
		a.Log.Warn("closing connections failed", "error", err)
	}
	if a.shutdownOTel != nil {
		_ = a.shutdownOTel(ctx)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

package db

import (
	"context"
	"errors"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/yungbote/elementstore/internal/platform/config"
	"github.com/yungbote/elementstore/internal/platform/logger"
)

// Provider hands out one pooled connection per connection string for the
// scope carried by ctx.
type Provider interface {
	DB(ctx context.Context) (*gorm.DB, error)
	Close() error
}

type cachingProvider struct {
	resolver config.ConnectionResolver
	cfg      *config.Config
	log      *logger.Logger

	mu    sync.Mutex
	pools map[string]*gorm.DB
}

// NewProvider resolves the Default connection per call and caches the pool
// by connection string.
func NewProvider(cfg *config.Config, resolver config.ConnectionResolver, log *logger.Logger) Provider {
	if log == nil {
		log = logger.Nop()
	}
	return &cachingProvider{
		resolver: resolver,
		cfg:      cfg,
		log:      log.With("service", "DBProvider"),
		pools:    map[string]*gorm.DB{},
	}
}

func (p *cachingProvider) DB(ctx context.Context) (*gorm.DB, error) {
	dsn, err := p.resolver.Resolve(ctx, config.ConnectionDefault)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if gdb, ok := p.pools[dsn]; ok {
		return gdb, nil
	}
	gdb, err := Open(Options{
		Dialect:     p.cfg.DialectFor(dsn),
		DSN:         dsn,
		TablePrefix: p.cfg.Database.TablePrefix,
		Log:         p.log,
	})
	if err != nil {
		return nil, err
	}
	p.pools[dsn] = gdb
	p.log.Debug("opened connection pool", "dsn", dsn)
	return gdb, nil
}

func (p *cachingProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for dsn, gdb := range p.pools {
		if err := Close(gdb); err != nil {
			errs = append(errs, err)
		}
		delete(p.pools, dsn)
	}
	return errors.Join(errs...)
}

type staticProvider struct {
	db *gorm.DB
}

// Static wraps an already open connection; Close is a no-op.
func Static(gdb *gorm.DB) Provider {
	return staticProvider{db: gdb}
}

func (s staticProvider) DB(context.Context) (*gorm.DB, error) {
	if s.db == nil {
		return nil, errors.New("db: static provider has no connection")
	}
	return s.db, nil
}

func (staticProvider) Close() error { return nil }

// IsPostgres reports whether gdb talks to PostgreSQL.
func IsPostgres(gdb *gorm.DB) bool {
	return strings.HasPrefix(Dialect(gdb), "postgres")
}

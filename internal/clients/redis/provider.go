package redis

import (
	"context"
	"errors"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/elementstore/internal/platform/config"
	"github.com/yungbote/elementstore/internal/platform/logger"
)

// Provider hands out one client per Documents connection string for the
// scope carried by ctx.
type Provider struct {
	resolver config.ConnectionResolver
	log      *logger.Logger

	mu      sync.Mutex
	clients map[string]*goredis.Client
}

func NewProvider(resolver config.ConnectionResolver, log *logger.Logger) *Provider {
	if log == nil {
		log = logger.Nop()
	}
	return &Provider{
		resolver: resolver,
		log:      log.With("service", "RedisProvider"),
		clients:  map[string]*goredis.Client{},
	}
}

func (p *Provider) Client(ctx context.Context) (*goredis.Client, error) {
	dsn, err := p.resolver.Resolve(ctx, config.ConnectionDocuments)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if rdb, ok := p.clients[dsn]; ok {
		return rdb, nil
	}
	rdb, err := Open(ctx, p.log, dsn)
	if err != nil {
		return nil, err
	}
	p.clients[dsn] = rdb
	return rdb, nil
}

func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for dsn, rdb := range p.clients {
		if err := rdb.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(p.clients, dsn)
	}
	return errors.Join(errs...)
}

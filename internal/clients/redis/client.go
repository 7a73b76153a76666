package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domainagg "github.com/yungbote/elementstore/internal/domain/aggregates"
	"github.com/yungbote/elementstore/internal/platform/logger"
)

// Options builds client options from either a redis:// URL or a bare
// host:port address.
func Options(dsn string) (*goredis.Options, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("redis: connection string is required")
	}
	if strings.Contains(dsn, "://") {
		opts, err := goredis.ParseURL(dsn)
		if err != nil {
			return nil, fmt.Errorf("redis: parse connection string: %w", err)
		}
		return opts, nil
	}
	return &goredis.Options{Addr: dsn, DialTimeout: 5 * time.Second}, nil
}

// Open connects and pings once so a bad address fails at composition time.
func Open(ctx context.Context, log *logger.Logger, dsn string) (*goredis.Client, error) {
	opts, err := Options(dsn)
	if err != nil {
		return nil, err
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, domainagg.Wrap(domainagg.CodeStoreUnavailable, "redis.open", fmt.Errorf("redis ping: %w", err))
	}
	if log != nil {
		log.Debug("redis connected", "addr", opts.Addr, "db", opts.DB)
	}
	return rdb, nil
}

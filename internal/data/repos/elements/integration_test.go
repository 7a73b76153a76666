//go:build integration

package elements_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	redisclient "github.com/yungbote/elementstore/internal/clients/redis"
	"github.com/yungbote/elementstore/internal/data/aggregates/testutil"
	"github.com/yungbote/elementstore/internal/data/db"
	"github.com/yungbote/elementstore/internal/data/migrate"
	elementrepo "github.com/yungbote/elementstore/internal/data/repos/elements"
	domain "github.com/yungbote/elementstore/internal/domain/elements"
	"github.com/yungbote/elementstore/internal/platform/audit"
	"github.com/yungbote/elementstore/internal/platform/config"
)

func terminateOnCleanup(t *testing.T, c testcontainers.Container) {
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })
}

func TestPostgresRepositoryContract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("elements"),
		tcpostgres.WithUsername("app"),
		tcpostgres.WithPassword("app"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	terminateOnCleanup(t, container)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}
	cfg := &config.Config{
		Database:          config.DatabaseConfig{Provider: config.ProviderRelational, Dialect: config.DialectPostgres, TablePrefix: "app_"},
		ConnectionStrings: map[string]string{config.ConnectionDefault: dsn},
	}
	if err := migrate.NewMigrator(cfg, nil, nil).Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	gdb, err := db.Open(db.Options{Dialect: config.DialectPostgres, DSN: dsn, TablePrefix: "app_"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })

	suite.Run(t, &RepositoryContractSuite{
		factory: func(s *RepositoryContractSuite, hooks *testutil.HooksRecorder, stamper audit.Stamper) domain.Repository {
			s.Require().NoError(gdb.Exec("TRUNCATE app_sub_elements, app_elements").Error)
			return elementrepo.NewGormRepo(gdb, nil,
				elementrepo.WithHooks(hooks),
				elementrepo.WithStamper(stamper))
		},
	})
}

func TestRedisServerRepositoryContract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	terminateOnCleanup(t, container)

	addr, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get redis connection string: %v", err)
	}
	rdb, err := redisclient.Open(ctx, nil, addr)
	if err != nil {
		t.Fatalf("open redis: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })

	suite.Run(t, &RepositoryContractSuite{
		factory: func(s *RepositoryContractSuite, hooks *testutil.HooksRecorder, stamper audit.Stamper) domain.Repository {
			s.Require().NoError(rdb.FlushAll(context.Background()).Err())
			return elementrepo.NewRedisRepo(rdb, nil,
				elementrepo.WithHooks(hooks),
				elementrepo.WithStamper(stamper))
		},
	})
}

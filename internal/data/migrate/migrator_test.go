package migrate

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/elementstore/internal/data/db"
	domainagg "github.com/yungbote/elementstore/internal/domain/aggregates"
	"github.com/yungbote/elementstore/internal/platform/config"
	"github.com/yungbote/elementstore/internal/platform/ctxutil"
)

func sqliteConfig(t *testing.T, tenants ...config.TenantConfig) *config.Config {
	t.Helper()
	return &config.Config{
		Database: config.DatabaseConfig{
			Provider:    config.ProviderRelational,
			Dialect:     config.DialectSQLite,
			TablePrefix: "app_",
		},
		ConnectionStrings: map[string]string{
			config.ConnectionDefault: filepath.Join(t.TempDir(), "host.db"),
		},
		Tenants: tenants,
	}
}

func hasTable(t *testing.T, dsn, table string) bool {
	t.Helper()
	gdb, err := db.Open(db.Options{Dialect: config.DialectSQLite, DSN: dsn, TablePrefix: "app_"})
	if err != nil {
		t.Fatalf("open %s: %v", dsn, err)
	}
	defer db.Close(gdb)
	return gdb.Migrator().HasTable(table)
}

func TestMigrateIsIdempotent(t *testing.T) {
	cfg := sqliteConfig(t)
	m := NewMigrator(cfg, nil, nil)
	ctx := context.Background()

	applied, err := m.Upgrade(ctx)
	if err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	if len(applied) != len(Steps()) {
		t.Fatalf("expected every step applied, got %v", applied)
	}
	applied, err = m.Upgrade(ctx)
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("second run must be a no-op, applied %v", applied)
	}
	dsn := cfg.ConnectionStrings[config.ConnectionDefault]
	for _, table := range []string{"app_elements", "app_sub_elements", "app_schema_migrations"} {
		if !hasTable(t, dsn, table) {
			t.Fatalf("expected table %s", table)
		}
	}
}

func TestStatusReportsPendingThenApplied(t *testing.T) {
	m := NewMigrator(sqliteConfig(t), nil, nil)
	ctx := context.Background()

	before, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, s := range before {
		if s.Applied {
			t.Fatalf("step %s should be pending", s.Version)
		}
	}
	if err := m.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	after, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(after) != len(Steps()) {
		t.Fatalf("expected %d steps, got %d", len(Steps()), len(after))
	}
	for _, s := range after {
		if !s.Applied || s.AppliedAt == nil {
			t.Fatalf("step %s should be applied", s.Version)
		}
	}
}

func TestMigrateResolvesScopePerCall(t *testing.T) {
	dir := t.TempDir()
	cfg := sqliteConfig(t, config.TenantConfig{
		Name:              "acme",
		ConnectionStrings: map[string]string{config.ConnectionDefault: filepath.Join(dir, "acme.db")},
	})
	var calls int
	resolver := config.ResolverFunc(func(ctx context.Context, name string) (string, error) {
		calls++
		return config.NewResolver(cfg).Resolve(ctx, name)
	})
	m := NewMigrator(cfg, resolver, nil)

	if err := m.Migrate(ctxutil.WithTenant(context.Background(), "acme")); err != nil {
		t.Fatalf("migrate acme: %v", err)
	}
	if !hasTable(t, filepath.Join(dir, "acme.db"), "app_elements") {
		t.Fatalf("tenant database was not migrated")
	}
	if hasTable(t, cfg.ConnectionStrings[config.ConnectionDefault], "app_elements") {
		t.Fatalf("host database must be untouched")
	}
	if err := m.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate host: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected the resolver to be consulted on every call, got %d", calls)
	}
}

func TestMigrateUnknownTenant(t *testing.T) {
	m := NewMigrator(sqliteConfig(t), nil, nil)
	var unknown *config.UnknownScopeError
	if err := m.Migrate(ctxutil.WithTenant(context.Background(), "initech")); !errors.As(err, &unknown) {
		t.Fatalf("expected unknown scope error, got %v", err)
	}
}

func TestMigrateConcurrentlyAgainstOneDatabase(t *testing.T) {
	const workers = 6
	for round := 0; round < 5; round++ {
		cfg := sqliteConfig(t)
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- NewMigrator(cfg, nil, nil).Migrate(context.Background())
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("round %d: concurrent migrate failed: %v", round, err)
			}
		}
		status, err := NewMigrator(cfg, nil, nil).Status(context.Background())
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		for _, s := range status {
			if !s.Applied {
				t.Fatalf("round %d: step %s not recorded", round, s.Version)
			}
		}
	}
}

func TestMigrateReportsUnreachableStore(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.ConnectionStrings[config.ConnectionDefault] = filepath.Join(t.TempDir(), "missing", "host.db")
	err := NewMigrator(cfg, nil, nil).Migrate(context.Background())
	if !domainagg.IsCode(err, domainagg.CodeStoreUnavailable) {
		t.Fatalf("expected store_unavailable, got %v (code=%q)", err, domainagg.CodeOf(err))
	}
}

func TestMigrateToleratesExistingObjects(t *testing.T) {
	steps := []Step{{
		Version:     "0001",
		Description: "raced with another migrator",
		Up: func(tx *gorm.DB) error {
			return errors.New("table app_elements already exists")
		},
	}}
	m := NewMigrator(sqliteConfig(t), nil, nil, WithSteps(steps))
	applied, err := m.Upgrade(context.Background())
	if err != nil {
		t.Fatalf("expected already-exists to count as success, got %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("expected the step to be recorded, got %v", applied)
	}
}

func TestMigrateStopsOnFailedStep(t *testing.T) {
	boom := errors.New("boom")
	steps := []Step{
		{Version: "0001", Description: "ok", Up: func(tx *gorm.DB) error { return nil }},
		{Version: "0002", Description: "fails", Up: func(tx *gorm.DB) error { return boom }},
		{Version: "0003", Description: "never", Up: func(tx *gorm.DB) error { return nil }},
	}
	m := NewMigrator(sqliteConfig(t), nil, nil, WithSteps(steps))
	applied, err := m.Upgrade(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected step error, got %v", err)
	}
	if len(applied) != 1 || applied[0] != "0001" {
		t.Fatalf("unexpected applied steps %v", applied)
	}
	status, err := m.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status[0].Applied || status[1].Applied || status[2].Applied {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestMigrateAllSkipsSharedDatabases(t *testing.T) {
	dir := t.TempDir()
	cfg := sqliteConfig(t,
		config.TenantConfig{Name: "acme", ConnectionStrings: map[string]string{config.ConnectionDefault: filepath.Join(dir, "acme.db")}},
		config.TenantConfig{Name: "globex"},
	)
	m := NewMigrator(cfg, nil, nil)
	if err := MigrateAll(context.Background(), m, cfg.TenantNames()); err != nil {
		t.Fatalf("MigrateAll: %v", err)
	}
	if !hasTable(t, filepath.Join(dir, "acme.db"), "app_elements") {
		t.Fatalf("acme database not migrated")
	}
	if !hasTable(t, cfg.ConnectionStrings[config.ConnectionDefault], "app_elements") {
		t.Fatalf("host database not migrated")
	}
	scopes, err := distinctScopes(context.Background(), m, []string{"", "acme", "globex"})
	if err != nil {
		t.Fatalf("distinctScopes: %v", err)
	}
	if len(scopes) != 2 || scopes[0] != "" || scopes[1] != "acme" {
		t.Fatalf("unexpected scopes %v", scopes)
	}
}

type recordingMigrator struct {
	mu     sync.Mutex
	scopes []string
	fail   string
}

func (r *recordingMigrator) Migrate(ctx context.Context) error {
	scope := ctxutil.Tenant(ctx)
	r.mu.Lock()
	r.scopes = append(r.scopes, scope)
	r.mu.Unlock()
	if scope == r.fail {
		return errors.New("down")
	}
	return nil
}

func TestMigrateAllRunsEveryScope(t *testing.T) {
	rec := &recordingMigrator{fail: "-"}
	if err := MigrateAll(context.Background(), rec, []string{"a", "b"}); err != nil {
		t.Fatalf("MigrateAll: %v", err)
	}
	sort.Strings(rec.scopes)
	if len(rec.scopes) != 3 || rec.scopes[0] != "" || rec.scopes[1] != "a" || rec.scopes[2] != "b" {
		t.Fatalf("unexpected scopes %v", rec.scopes)
	}

	failing := &recordingMigrator{fail: "b"}
	if err := MigrateAll(context.Background(), failing, []string{"a", "b"}); err == nil {
		t.Fatalf("expected the failing scope to surface")
	}
}

func TestNullMigrator(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (NullMigrator{}).Migrate(ctx); err != nil {
		t.Fatalf("NullMigrator must always succeed, got %v", err)
	}
}

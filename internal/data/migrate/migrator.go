package migrate

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/elementstore/internal/data/aggregates"
	"github.com/yungbote/elementstore/internal/data/db"
	"github.com/yungbote/elementstore/internal/observability"
	"github.com/yungbote/elementstore/internal/platform/config"
	"github.com/yungbote/elementstore/internal/platform/ctxutil"
	"github.com/yungbote/elementstore/internal/platform/logger"
)

// Migrator applies the versioned relational schema. It resolves the
// connection string for the scope in ctx on every call and never keeps a
// connection open between calls.
type Migrator struct {
	cfg      *config.Config
	resolver config.ConnectionResolver
	log      *logger.Logger
	metrics  *observability.Metrics
	steps    []Step
}

type Option func(*Migrator)

func WithMetrics(m *observability.Metrics) Option {
	return func(mg *Migrator) { mg.metrics = m }
}

// WithSteps replaces the schema history; tests use it.
func WithSteps(steps []Step) Option {
	return func(mg *Migrator) { mg.steps = steps }
}

func NewMigrator(cfg *config.Config, resolver config.ConnectionResolver, baseLog *logger.Logger, opts ...Option) *Migrator {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	if resolver == nil {
		resolver = config.NewResolver(cfg)
	}
	m := &Migrator{
		cfg:      cfg,
		resolver: resolver,
		log:      baseLog.With("service", "SchemaMigrator"),
		steps:    Steps(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	sort.SliceStable(m.steps, func(i, j int) bool { return m.steps[i].Version < m.steps[j].Version })
	return m
}

// Migrate applies every pending step for the scope carried by ctx.
func (m *Migrator) Migrate(ctx context.Context) error {
	_, err := m.Upgrade(ctx)
	return err
}

// Target resolves the connection string the next call would use.
func (m *Migrator) Target(ctx context.Context) (string, error) {
	return m.resolver.Resolve(ctx, config.ConnectionDefault)
}

// Upgrade applies pending steps and returns the versions it applied.
func (m *Migrator) Upgrade(ctx context.Context) ([]string, error) {
	start := time.Now()
	scope := ctxutil.Tenant(ctx)
	var applied []string
	err := m.withConnection(ctx, func(gdb *gorm.DB) error {
		return withSchemaLock(gdb, func(conn *gorm.DB) error {
			var err error
			applied, err = m.applyPending(conn)
			return err
		})
	})
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.metrics.ObserveMigration(scope, status, len(applied), time.Since(start))
	if err != nil {
		m.log.Error("schema migration failed", "scope", scope, "error", err)
		return applied, err
	}
	m.log.Info("schema up to date", "scope", scope, "applied", applied)
	return applied, nil
}

// StepStatus is one row of Status.
type StepStatus struct {
	Version     string
	Description string
	Applied     bool
	AppliedAt   *time.Time
}

// Status lists every known step and whether the scope in ctx has it.
func (m *Migrator) Status(ctx context.Context) ([]StepStatus, error) {
	var out []StepStatus
	err := m.withConnection(ctx, func(gdb *gorm.DB) error {
		done, err := appliedVersions(gdb)
		if err != nil {
			return err
		}
		for _, s := range m.steps {
			st := StepStatus{Version: s.Version, Description: s.Description}
			if rec, ok := done[s.Version]; ok {
				at := rec.AppliedAt
				st.Applied = true
				st.AppliedAt = &at
			}
			out = append(out, st)
		}
		return nil
	})
	return out, err
}

func (m *Migrator) withConnection(ctx context.Context, fn func(gdb *gorm.DB) error) error {
	dsn, err := m.Target(ctx)
	if err != nil {
		return err
	}
	gdb, err := db.Open(db.Options{
		Dialect:     m.cfg.DialectFor(dsn),
		DSN:         dsn,
		TablePrefix: m.cfg.Database.TablePrefix,
		Log:         m.log,
	})
	if err != nil {
		return aggregates.MapError("schema.open", err)
	}
	defer func() {
		if cerr := db.Close(gdb); cerr != nil {
			m.log.Warn("closing schema connection failed", "error", cerr)
		}
	}()
	return aggregates.MapError("schema.migrate", fn(gdb.WithContext(ctx)))
}

func (m *Migrator) applyPending(conn *gorm.DB) ([]string, error) {
	if err := conn.AutoMigrate(&SchemaMigration{}); err != nil && !aggregates.IsAlreadyExists(err) {
		return nil, fmt.Errorf("ensure migration table: %w", err)
	}
	done, err := appliedVersions(conn)
	if err != nil {
		return nil, err
	}
	var applied []string
	for _, step := range m.steps {
		if _, ok := done[step.Version]; ok {
			continue
		}
		err := conn.Transaction(func(tx *gorm.DB) error {
			if err := step.Up(tx); err != nil && !aggregates.IsAlreadyExists(err) {
				return err
			}
			return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&SchemaMigration{
				Version:     step.Version,
				Description: step.Description,
				AppliedAt:   time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", step.Version, err)
		}
		applied = append(applied, step.Version)
		m.log.Debug("applied schema migration", "version", step.Version, "description", step.Description)
	}
	return applied, nil
}

func appliedVersions(conn *gorm.DB) (map[string]SchemaMigration, error) {
	out := map[string]SchemaMigration{}
	if !conn.Migrator().HasTable(&SchemaMigration{}) {
		return out, nil
	}
	var rows []SchemaMigration
	if err := conn.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read applied migrations: %w", err)
	}
	for _, r := range rows {
		out[r.Version] = r
	}
	return out, nil
}

// withSchemaLock serializes migrators across processes on PostgreSQL with a
// session advisory lock held on one pinned connection.
func withSchemaLock(gdb *gorm.DB, fn func(conn *gorm.DB) error) error {
	if !db.IsPostgres(gdb) {
		return fn(gdb)
	}
	return gdb.Connection(func(conn *gorm.DB) error {
		key := schemaLockKey()
		if err := conn.Exec("SELECT pg_advisory_lock(?)", key).Error; err != nil {
			return err
		}
		defer conn.Exec("SELECT pg_advisory_unlock(?)", key)
		return fn(conn)
	})
}

func schemaLockKey() int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("elementstore:schema"))
	return int64(h.Sum64())
}

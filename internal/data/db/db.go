package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	domainagg "github.com/yungbote/elementstore/internal/domain/aggregates"
	"github.com/yungbote/elementstore/internal/platform/config"
	"github.com/yungbote/elementstore/internal/platform/logger"
)

type Options struct {
	Dialect     string
	DSN         string
	TablePrefix string
	Log         *logger.Logger
	// LogLevel overrides the default Warn level of the GORM logger.
	LogLevel gormLogger.LogLevel
}

// Open connects to PostgreSQL or SQLite with the shared GORM configuration.
func Open(opts Options) (*gorm.DB, error) {
	dsn := strings.TrimSpace(opts.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("db: connection string is required")
	}
	dialect := strings.ToLower(strings.TrimSpace(opts.Dialect))
	if dialect == "" {
		dialect = config.InferDialect(dsn)
	}

	var dialector gorm.Dialector
	switch dialect {
	case config.DialectPostgres, "postgresql":
		dialector = postgres.Open(dsn)
	case config.DialectSQLite:
		dialector = sqlite.Open(sqliteDSN(dsn))
	default:
		return nil, fmt.Errorf("db: unsupported dialect %q", opts.Dialect)
	}

	level := opts.LogLevel
	if level == 0 {
		level = gormLogger.Warn
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.New(newZapWriter(opts.Log), gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
		NamingStrategy: schema.NamingStrategy{TablePrefix: opts.TablePrefix},
		TranslateError: true,
	})
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeStoreUnavailable, "db.open", fmt.Errorf("failed to connect to %s: %w", dialect, err))
	}
	if dialect == config.DialectSQLite && isMemory(dsn) {
		// Every pooled connection would otherwise get its own empty database.
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	return gdb, nil
}

// Close releases the pool behind gdb.
func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Dialect reports the dialect name of an open connection.
func Dialect(gdb *gorm.DB) string {
	if gdb == nil || gdb.Dialector == nil {
		return ""
	}
	return gdb.Dialector.Name()
}

func isMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// sqliteDSN turns on foreign keys (for ON DELETE CASCADE) and a busy timeout.
// Transactions take the write lock at BEGIN; a deferred transaction that
// reads before writing cannot wait out a concurrent writer and fails with
// "database is locked" instead.
func sqliteDSN(dsn string) string {
	var params []string
	if !strings.Contains(dsn, "_foreign_keys") && !strings.Contains(dsn, "_fk=") {
		params = append(params, "_foreign_keys=1")
	}
	if !strings.Contains(dsn, "_busy_timeout") {
		params = append(params, "_busy_timeout=5000")
	}
	if !strings.Contains(dsn, "_txlock") {
		params = append(params, "_txlock=immediate")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	if !strings.HasPrefix(dsn, "file:") && !isMemory(dsn) {
		dsn = "file:" + dsn
	}
	return dsn + sep + strings.Join(params, "&")
}

type zapWriter struct {
	log *logger.Logger
}

func newZapWriter(log *logger.Logger) gormLogger.Writer {
	if log == nil {
		log = logger.Nop()
	}
	return zapWriter{log: log.With("component", "gorm")}
}

func (w zapWriter) Printf(format string, args ...interface{}) {
	w.log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

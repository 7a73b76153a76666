package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/elementstore/internal/platform/envutil"
)

const (
	ProviderRelational = "relational"
	ProviderDocument   = "document"

	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	// ConnectionDefault names the relational connection string.
	ConnectionDefault = "Default"
	// ConnectionDocuments names the document store connection string.
	ConnectionDocuments = "Documents"
)

// SearchPaths are tried in order when Load is called without a path.
var SearchPaths = []string{"appsettings.yaml", filepath.Join("cmd", "dbmigrator", "appsettings.yaml")}

type Config struct {
	Log               LogConfig         `yaml:"log"`
	Database          DatabaseConfig    `yaml:"database"`
	ConnectionStrings map[string]string `yaml:"connectionStrings"`
	Tenants           []TenantConfig    `yaml:"tenants"`
	Tracing           TracingConfig     `yaml:"tracing"`
	Metrics           MetricsConfig     `yaml:"metrics"`
	Seed              SeedConfig        `yaml:"seed"`

	// Source is the file the config was read from; empty when only defaults
	// and environment were used.
	Source string `yaml:"-"`
}

type LogConfig struct {
	Mode string `yaml:"mode"`
}

type DatabaseConfig struct {
	Provider         string `yaml:"provider"`
	Dialect          string `yaml:"dialect"`
	TablePrefix      string `yaml:"tablePrefix"`
	CollectionPrefix string `yaml:"collectionPrefix"`
}

type TenantConfig struct {
	Name              string            `yaml:"name"`
	ConnectionStrings map[string]string `yaml:"connectionStrings"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"serviceName"`
	Environment string  `yaml:"environment"`
	Endpoint    string  `yaml:"endpoint"`
	Headers     string  `yaml:"headers"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sampleRatio"`
}

type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}

type SeedConfig struct {
	Disabled bool `yaml:"disabled"`
}

// Load reads path (or the first file found on the search path), applies
// environment overrides and defaults, and validates the result. A missing
// file is only an error when path was given explicitly.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = envutil.String("ELEMENTSTORE_CONFIG", "")
		explicit = path != ""
	}
	if explicit {
		if err := readFile(path, cfg); err != nil {
			return nil, err
		}
	} else {
		for _, candidate := range SearchPaths {
			err := readFile(candidate, cfg)
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, err
			}
			break
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML without touching the environment or the filesystem.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Source = path
	return nil
}

func (c *Config) applyEnv() {
	c.Log.Mode = envutil.String("LOG_MODE", c.Log.Mode)
	c.Database.Provider = envutil.String("DATABASE_PROVIDER", c.Database.Provider)
	c.Database.Dialect = envutil.String("DATABASE_DIALECT", c.Database.Dialect)
	if c.ConnectionStrings == nil {
		c.ConnectionStrings = map[string]string{}
	}
	if v := envutil.String("CONNECTION_STRING_DEFAULT", ""); v != "" {
		c.ConnectionStrings[ConnectionDefault] = v
	}
	if v := envutil.String("CONNECTION_STRING_DOCUMENTS", ""); v != "" {
		c.ConnectionStrings[ConnectionDocuments] = v
	}
	c.Tracing.Enabled = envutil.Bool("OTEL_ENABLED", c.Tracing.Enabled)
	c.Tracing.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", c.Tracing.Endpoint)
	c.Tracing.Headers = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", c.Tracing.Headers)
	c.Tracing.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", c.Tracing.Insecure)
	c.Tracing.ServiceName = envutil.String("OTEL_SERVICE_NAME", c.Tracing.ServiceName)
}

func (c *Config) applyDefaults() {
	if c.Log.Mode == "" {
		c.Log.Mode = "dev"
	}
	c.Database.Provider = strings.ToLower(strings.TrimSpace(c.Database.Provider))
	if c.Database.Provider == "" {
		c.Database.Provider = ProviderRelational
	}
	if c.Database.TablePrefix == "" {
		c.Database.TablePrefix = "app_"
	}
	if c.Database.CollectionPrefix == "" {
		c.Database.CollectionPrefix = "App"
	}
	if c.ConnectionStrings == nil {
		c.ConnectionStrings = map[string]string{}
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "elementstore"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "elementstore"
	}
}

// Validate checks the provider and that its connection string is present.
func (c *Config) Validate() error {
	switch c.Database.Provider {
	case ProviderRelational:
		if strings.TrimSpace(c.ConnectionStrings[ConnectionDefault]) == "" {
			return fmt.Errorf("config: connection string %q is required for the relational provider", ConnectionDefault)
		}
		switch strings.ToLower(strings.TrimSpace(c.Database.Dialect)) {
		case "", DialectPostgres, "postgresql", DialectSQLite:
		default:
			return fmt.Errorf("config: unsupported dialect %q", c.Database.Dialect)
		}
		// The migrator closes its connection when done, which would drop an
		// in-memory schema before anything could use it.
		if isMemoryDSN(c.ConnectionStrings[ConnectionDefault]) {
			return fmt.Errorf("config: in-memory SQLite is not supported for connection string %q", ConnectionDefault)
		}
		for _, t := range c.Tenants {
			if isMemoryDSN(t.ConnectionStrings[ConnectionDefault]) {
				return fmt.Errorf("config: in-memory SQLite is not supported for tenant %q", t.Name)
			}
		}
	case ProviderDocument:
		if strings.TrimSpace(c.ConnectionStrings[ConnectionDocuments]) == "" {
			return fmt.Errorf("config: connection string %q is required for the document provider", ConnectionDocuments)
		}
	default:
		return fmt.Errorf("config: unsupported database provider %q", c.Database.Provider)
	}
	seen := map[string]bool{}
	for _, t := range c.Tenants {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return errors.New("config: tenant name is required")
		}
		if seen[name] {
			return fmt.Errorf("config: duplicate tenant %q", name)
		}
		seen[name] = true
	}
	return nil
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// TenantNames lists the configured tenants in file order.
func (c *Config) TenantNames() []string {
	out := make([]string, 0, len(c.Tenants))
	for _, t := range c.Tenants {
		out = append(out, strings.TrimSpace(t.Name))
	}
	return out
}

// DialectFor returns the configured dialect, or infers it from dsn.
func (c *Config) DialectFor(dsn string) string {
	switch d := strings.ToLower(strings.TrimSpace(c.Database.Dialect)); d {
	case DialectPostgres, "postgresql":
		return DialectPostgres
	case DialectSQLite:
		return DialectSQLite
	}
	return InferDialect(dsn)
}

// InferDialect treats URL and key=value DSNs with a host as PostgreSQL and
// everything else as a SQLite file path.
func InferDialect(dsn string) string {
	d := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case strings.HasPrefix(d, "postgres://"), strings.HasPrefix(d, "postgresql://"):
		return DialectPostgres
	case strings.Contains(d, "host=") && strings.Contains(d, "dbname="):
		return DialectPostgres
	default:
		return DialectSQLite
	}
}

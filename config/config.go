// Package config loads sqlflow settings from YAML and opens the matching
// driver.
//
//	dialect: sqlite
//	dsn: file:app.db?_pragma=foreign_keys(1)
//	slow_query_threshold: 200ms
//	cache:
//	  enabled: true
//	  size: 1000
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/syssam/sqlflow"
	"github.com/syssam/sqlflow/dialect"
	"github.com/syssam/sqlflow/dialect/sql"

	// Drivers for the supported dialects.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Config holds the settings for a store connection.
type Config struct {
	// Dialect is one of "sqlite", "mysql" or "postgres". Defaults to sqlite.
	Dialect string `yaml:"dialect"`
	// DSN is the data source name passed to the driver.
	DSN string `yaml:"dsn"`
	// Debug logs every statement.
	Debug bool `yaml:"debug"`
	// SlowQueryThreshold enables query statistics and logs statements
	// slower than the threshold. Zero disables both.
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`
	// MaxOpenConns limits the pool size. SQLite in-memory databases need 1.
	MaxOpenConns int `yaml:"max_open_conns"`
	// StrictConversion fails rendering of values without a converter.
	StrictConversion bool `yaml:"strict_conversion"`
	Cache            Cache `yaml:"cache"`
}

// Cache configures the model caches of cacheable loaders.
type Cache struct {
	Enabled bool `yaml:"enabled"`
	// Size bounds every per-model cache with LRU eviction. Zero means
	// unbounded.
	Size int `yaml:"size"`
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML into a Config, applies defaults and validates it.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) defaults() {
	if c.Dialect == "" {
		c.Dialect = dialect.SQLite
	}
	if c.DSN == "" && c.Dialect == dialect.SQLite {
		c.DSN = ":memory:"
	}
	if c.MaxOpenConns == 0 && c.Dialect == dialect.SQLite && c.DSN == ":memory:" {
		c.MaxOpenConns = 1
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	switch c.Dialect {
	case dialect.SQLite, dialect.MySQL, dialect.Postgres:
	default:
		errs = append(errs, fmt.Errorf("config: unsupported dialect %q", c.Dialect))
	}
	if c.DSN == "" {
		errs = append(errs, errors.New("config: dsn is required"))
	}
	if c.SlowQueryThreshold < 0 {
		errs = append(errs, errors.New("config: slow_query_threshold must not be negative"))
	}
	if c.MaxOpenConns < 0 {
		errs = append(errs, errors.New("config: max_open_conns must not be negative"))
	}
	if c.Cache.Size < 0 {
		errs = append(errs, errors.New("config: cache.size must not be negative"))
	}
	return sqlflow.NewAggregateError(errs...)
}

// Option configures Open.
type Option func(*options)

type options struct {
	log *slog.Logger
}

// WithLogger sets the logger used by Open and the drivers it wraps.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// Open opens the store described by c. The driver is wrapped with a
// sql.DebugDriver when Debug is set, otherwise with a sql.StatsDriver when
// SlowQueryThreshold is positive.
func (c *Config) Open(opts ...Option) (dialect.Driver, error) {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	drv, err := sql.Open(c.Dialect, c.DSN)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", c.Dialect, err)
	}
	if c.MaxOpenConns > 0 {
		drv.DB().SetMaxOpenConns(c.MaxOpenConns)
	}
	switch {
	case c.Debug:
		o.log.Info("opened store", "dialect", c.Dialect, "driver", "debug")
		return sql.NewDebugDriver(drv, sql.DebugWithLogger(o.log)), nil
	case c.SlowQueryThreshold > 0:
		o.log.Info("opened store", "dialect", c.Dialect, "driver", "stats", "slow_query_threshold", c.SlowQueryThreshold)
		return sql.NewStatsDriver(drv,
			sql.WithSlowThreshold(c.SlowQueryThreshold),
			sql.WithSlowQueryLog(o.log),
		), nil
	default:
		o.log.Info("opened store", "dialect", c.Dialect)
		return drv, nil
	}
}

// Builder returns a statement builder for the configured dialect.
func (c *Config) Builder(opts ...sql.Option) *sql.DialectBuilder {
	if c.StrictConversion {
		opts = append(opts, sql.Strict())
	}
	return sql.Dialect(c.Dialect, opts...)
}

// Caches returns a cache registry for cacheable loaders, or nil when
// caching is disabled.
func (c *Config) Caches() *sqlflow.Caches {
	if !c.Cache.Enabled {
		return nil
	}
	var opts []sqlflow.CachesOption
	if c.Cache.Size > 0 {
		opts = append(opts, sqlflow.WithLRU(c.Cache.Size))
	}
	return sqlflow.NewCaches(opts...)
}

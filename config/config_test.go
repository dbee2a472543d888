package config_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlflow"
	"github.com/syssam/sqlflow/config"
	"github.com/syssam/sqlflow/dialect"
	"github.com/syssam/sqlflow/dialect/sql"
)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("Full", func(t *testing.T) {
		cfg, err := config.Parse([]byte(`
dialect: mysql
dsn: root:pass@tcp(localhost:3306)/app
debug: true
slow_query_threshold: 250ms
max_open_conns: 10
strict_conversion: true
cache:
  enabled: true
  size: 500
`))
		require.NoError(t, err)
		assert.Equal(t, &config.Config{
			Dialect:            dialect.MySQL,
			DSN:                "root:pass@tcp(localhost:3306)/app",
			Debug:              true,
			SlowQueryThreshold: 250 * time.Millisecond,
			MaxOpenConns:       10,
			StrictConversion:   true,
			Cache:              config.Cache{Enabled: true, Size: 500},
		}, cfg)
	})

	t.Run("Defaults", func(t *testing.T) {
		cfg, err := config.Parse(nil)
		require.NoError(t, err)
		assert.Equal(t, dialect.SQLite, cfg.Dialect)
		assert.Equal(t, ":memory:", cfg.DSN)
		assert.Equal(t, 1, cfg.MaxOpenConns)
		assert.Nil(t, cfg.Caches())
	})

	t.Run("UnknownKey", func(t *testing.T) {
		_, err := config.Parse([]byte("dialct: mysql\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dialct")
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := config.Parse([]byte(`
dialect: oracle
slow_query_threshold: -1s
cache:
  size: -1
`))
		require.Error(t, err)
		var agg *sqlflow.AggregateError
		require.ErrorAs(t, err, &agg)
		assert.Len(t, agg.Errors, 4)
		assert.Contains(t, err.Error(), `unsupported dialect "oracle"`)
		assert.Contains(t, err.Error(), "dsn is required")
	})
}

func TestLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "sqlflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dialect: postgres\ndsn: postgres://localhost/app\n"), 0o600))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, dialect.Postgres, cfg.Dialect)
	assert.Zero(t, cfg.MaxOpenConns)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("Plain", func(t *testing.T) {
		cfg, err := config.Parse([]byte("dialect: sqlite\n"))
		require.NoError(t, err)
		drv, err := cfg.Open()
		require.NoError(t, err)
		defer drv.Close()
		require.IsType(t, &sql.Driver{}, drv)

		_, err = sql.Exec(ctx, drv, sql.RawQuery(`CREATE TABLE "users" ("id" INTEGER PRIMARY KEY, "name" TEXT)`))
		require.NoError(t, err)
		_, err = cfg.Builder().Insert("users").Columns("name").Values("a8m").Exec(ctx, drv)
		require.NoError(t, err)
		n, err := cfg.Builder().Select().From(sql.Table("users")).Count(ctx, drv)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})

	t.Run("Stats", func(t *testing.T) {
		var buf bytes.Buffer
		cfg, err := config.Parse([]byte("slow_query_threshold: 1ns\n"))
		require.NoError(t, err)
		drv, err := cfg.Open(config.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
		require.NoError(t, err)
		defer drv.Close()
		sd, ok := drv.(*sql.StatsDriver)
		require.True(t, ok)
		assert.Equal(t, time.Nanosecond, sd.SlowThreshold())

		_, err = sql.Exec(ctx, drv, sql.RawQuery(`CREATE TABLE "t" ("id" INTEGER)`))
		require.NoError(t, err)
		assert.EqualValues(t, 1, sd.QueryStats().Snapshot().Execs)
		assert.Contains(t, buf.String(), "opened store")
		assert.Contains(t, buf.String(), "slow query detected")
	})

	t.Run("Debug", func(t *testing.T) {
		var buf bytes.Buffer
		cfg, err := config.Parse([]byte("debug: true\n"))
		require.NoError(t, err)
		drv, err := cfg.Open(config.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
		require.NoError(t, err)
		defer drv.Close()
		require.IsType(t, &sql.DebugDriver{}, drv)

		_, err = sql.Exec(ctx, drv, sql.RawQuery(`CREATE TABLE "t" ("id" INTEGER)`))
		require.NoError(t, err)
		assert.Contains(t, buf.String(), `CREATE TABLE`)
	})
}

func TestBuilder(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Dialect: dialect.MySQL, StrictConversion: true}
	q, err := cfg.Builder().Select("id").From(sql.Table("users")).Query()
	require.NoError(t, err)
	assert.Equal(t, "SELECT `id` FROM `users`", q)

	type point struct{ X, Y int }
	_, err = cfg.Builder().Select().From(sql.Table("users")).Where(sql.C("p").EQ(point{1, 2})).Query()
	assert.True(t, sqlflow.IsMisuse(err))
}

func TestCaches(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Cache: config.Cache{Enabled: true, Size: 2}}
	caches := cfg.Caches()
	require.NotNil(t, caches)
	c := sqlflow.CacheFor[*struct{ ID int }](caches, "things")
	for i := 0; i < 3; i++ {
		c.PutIfAbsent(sqlflow.MustKeyOf(i), &struct{ ID int }{ID: i})
	}
	assert.Equal(t, 2, c.Len())
}

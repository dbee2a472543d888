package loader_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/sqlflow"
	"github.com/syssam/sqlflow/dialect"
	"github.com/syssam/sqlflow/dialect/sql"
	"github.com/syssam/sqlflow/loader"
)

func openSQLite(t *testing.T) *sql.Driver {
	t.Helper()
	return openSQLiteDSN(t, ":memory:", 1)
}

// openSQLiteFile opens a file database so that several connections see the
// same data.
func openSQLiteFile(t *testing.T, conns int) *sql.Driver {
	t.Helper()
	return openSQLiteDSN(t, filepath.Join(t.TempDir(), "members.db"), conns)
}

func openSQLiteDSN(t *testing.T, dsn string, conns int) *sql.Driver {
	t.Helper()
	drv, err := sql.Open(dialect.SQLite, dsn)
	require.NoError(t, err)
	drv.DB().SetMaxOpenConns(conns)
	t.Cleanup(func() { drv.Close() })
	_, err = sql.Exec(context.Background(), drv, sql.RawQuery(
		`CREATE TABLE "members" ("user_id" INTEGER NOT NULL, "team" TEXT NOT NULL, "role" TEXT, "nick" TEXT, PRIMARY KEY ("user_id", "team"))`,
	))
	require.NoError(t, err)
	_, err = sql.Insert("members").
		Columns("user_id", "team", "role", "nick").
		Values(1, "x", "admin", "bob").
		Values(1, "y", "dev", "eve").
		Exec(context.Background(), drv)
	require.NoError(t, err)
	return drv
}

func TestSQLiteCacheIdentity(t *testing.T) {
	ctx := context.Background()
	drv := openSQLite(t)
	caches := sqlflow.NewCaches()
	a := members(t)
	l, err := loader.NewCacheableSingle(a, sqlflow.CacheFor[*Member](caches, a.Table()))
	require.NoError(t, err)

	byKey := func() *sql.Statement {
		return sql.Select().From(sql.Table("members")).Where(sql.C("user_id").EQ(1), sql.C("team").EQ("x"))
	}
	first, ok, err := l.Load(ctx, drv, byKey())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "admin", first.Role)

	n, err := sql.Update("members").
		SetValue("role", "owner").
		SetValue("nick", "robert").
		Where(sql.C("user_id").EQ(1), sql.C("team").EQ("x")).
		Exec(ctx, drv)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	second, ok, err := l.Load(ctx, drv, byKey())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, first, second)
	assert.Equal(t, "owner", second.Role)
	assert.Equal(t, "bob", second.Nick)
}

func TestSQLiteCompositeKeys(t *testing.T) {
	ctx := context.Background()
	drv := openSQLite(t)
	cache := sqlflow.NewModelCache[*Member]()
	l, err := loader.NewCacheableList(members(t), cache)
	require.NoError(t, err)

	q := sql.Select().From(sql.Table("members")).OrderBy(sql.C("team").Asc())
	list, err := l.Load(ctx, drv, q)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "x", list[0].Team)
	assert.Equal(t, "y", list[1].Team)
	assert.NotSame(t, list[0], list[1])
	assert.Equal(t, 2, cache.Len())

	again, err := l.Load(ctx, drv, q)
	require.NoError(t, err)
	assert.Same(t, list[0], again[0])
	assert.Same(t, list[1], again[1])

	empty, err := l.Load(ctx, drv, sql.Select().From(sql.Table("members")).Where(sql.C("user_id").EQ(2)))
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	n, err := sql.Select().From(sql.Table("members")).Count(ctx, drv)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSQLiteConcurrentLoads(t *testing.T) {
	ctx := context.Background()
	const workers = 16
	drv := openSQLiteFile(t, workers)
	cache := sqlflow.NewModelCache[*Member]()
	l, err := loader.NewCacheableList(members(t), cache)
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results = make([][]*Member, workers)
		errs    = make([]error, workers)
	)
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results[i], errs[i] = l.Load(ctx, drv, sql.Select().From(sql.Table("members")).OrderBy(sql.C("team").Asc()))
		}()
	}
	close(start)
	wg.Wait()

	for i := 0; i < workers; i++ {
		i := i
		require.NoError(t, errs[i])
		require.Len(t, results[i], 2)
		assert.Same(t, results[0][0], results[i][0])
		assert.Same(t, results[0][1], results[i][1])
	}
	assert.Equal(t, 2, cache.Len())
}

// gatedMembers holds every full population until release is closed, so
// that concurrent loads of the same key all miss the cache.
type gatedMembers struct {
	*loader.StructAdapter[Member]
	arrived chan struct{}
	release chan struct{}
}

func (g *gatedMembers) Set(m *Member, column string, v any) error {
	if column == "nick" {
		g.arrived <- struct{}{}
		<-g.release
	}
	return g.StructAdapter.Set(m, column, v)
}

func TestSQLiteConcurrentMiss(t *testing.T) {
	ctx := context.Background()
	drv := openSQLiteFile(t, 2)
	cache := sqlflow.NewModelCache[*Member]()
	a := &gatedMembers{StructAdapter: members(t), arrived: make(chan struct{}, 2), release: make(chan struct{})}
	l, err := loader.NewCacheableSingle[*Member](a, cache)
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		results [2]*Member
		errs    [2]error
	)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			q := sql.Select().From(sql.Table("members")).Where(sql.C("user_id").EQ(1), sql.C("team").EQ("x"))
			results[i], _, errs[i] = l.Load(ctx, drv, q)
		}()
	}
	// Both loads populate a model of their own before either is cached.
	<-a.arrived
	<-a.arrived
	close(a.release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Same(t, results[0], results[1], "the losing load returns the cached model")
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, "admin", results[0].Role)
}

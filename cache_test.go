package sqlflow_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlflow"
)

type user struct {
	ID   int64
	Team string
}

func TestKeyOf(t *testing.T) {
	t.Parallel()

	t.Run("ScalarNormalization", func(t *testing.T) {
		assert.Equal(t, sqlflow.MustKeyOf(1), sqlflow.MustKeyOf(int64(1)))
		assert.Equal(t, sqlflow.MustKeyOf(uint8(7)), sqlflow.MustKeyOf(int32(7)))
		assert.Equal(t, sqlflow.MustKeyOf("a"), sqlflow.MustKeyOf([]byte("a")))
		n := 5
		assert.Equal(t, sqlflow.MustKeyOf(5), sqlflow.MustKeyOf(&n))
		id := uuid.New()
		assert.Equal(t, sqlflow.MustKeyOf(id), sqlflow.MustKeyOf(id.String()))
		assert.NotEqual(t, sqlflow.MustKeyOf(1), sqlflow.MustKeyOf("1"))
	})

	t.Run("Composite", func(t *testing.T) {
		x := sqlflow.MustKeyOf(1, "x")
		y := sqlflow.MustKeyOf(1, "y")
		assert.NotEqual(t, x, y)
		assert.Equal(t, x, sqlflow.MustKeyOf(int64(1), []byte("x")))
		assert.NotEqual(t, sqlflow.MustKeyOf(1, "x"), sqlflow.MustKeyOf("x", 1))
		assert.Equal(t, "[1 x]", x.String())
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := sqlflow.KeyOf()
		assert.Error(t, err)
		_, err = sqlflow.KeyOf(nil)
		assert.Error(t, err)
		var p *int
		_, err = sqlflow.KeyOf(1, p)
		assert.Error(t, err)
		assert.True(t, sqlflow.CacheKey{}.IsZero())
		assert.Panics(t, func() { sqlflow.MustKeyOf() })
	})
}

func testModelCache(t *testing.T, c sqlflow.ModelCache[*user]) {
	k1, k2 := sqlflow.MustKeyOf(1), sqlflow.MustKeyOf(2)

	_, ok := c.Get(k1)
	assert.False(t, ok)

	u1 := &user{ID: 1}
	got, loaded := c.PutIfAbsent(k1, u1)
	assert.False(t, loaded)
	assert.Same(t, u1, got)

	got, loaded = c.PutIfAbsent(k1, &user{ID: 1})
	assert.True(t, loaded)
	assert.Same(t, u1, got, "an existing model is never replaced")

	got, ok, err := c.Update(k1, func(u *user) error {
		u.Team = "blue"
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, u1, got)
	assert.Equal(t, "blue", u1.Team)

	_, ok, err = c.Update(k2, func(*user) error { return errors.New("unreachable") })
	assert.NoError(t, err)
	assert.False(t, ok)

	failure := errors.New("refresh failed")
	_, ok, err = c.Update(k1, func(*user) error { return failure })
	assert.True(t, ok)
	assert.ErrorIs(t, err, failure)

	c.PutIfAbsent(k2, &user{ID: 2})
	assert.Equal(t, 2, c.Len())
	c.Remove(k1)
	assert.Equal(t, 1, c.Len())
	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestMapCache(t *testing.T) {
	t.Parallel()
	c := sqlflow.NewModelCache[*user]()
	testModelCache(t, c)
	s := c.Stats()
	assert.Positive(t, s.Hits)
	assert.Positive(t, s.Misses)
}

func TestLRUCache(t *testing.T) {
	t.Parallel()
	testModelCache(t, sqlflow.NewLRUModelCache[*user](8))

	c := sqlflow.NewLRUModelCache[*user](2)
	c.PutIfAbsent(sqlflow.MustKeyOf(1), &user{ID: 1})
	c.PutIfAbsent(sqlflow.MustKeyOf(2), &user{ID: 2})
	_, ok := c.Get(sqlflow.MustKeyOf(1))
	require.True(t, ok)
	c.PutIfAbsent(sqlflow.MustKeyOf(3), &user{ID: 3})

	assert.Equal(t, 2, c.Len())
	_, ok = c.Get(sqlflow.MustKeyOf(2))
	assert.False(t, ok, "least recently used entry is evicted")
	_, ok = c.Get(sqlflow.MustKeyOf(1))
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestModelCacheConcurrentIdentity(t *testing.T) {
	t.Parallel()
	for name, c := range map[string]sqlflow.ModelCache[*user]{
		"map": sqlflow.NewModelCache[*user](),
		"lru": sqlflow.NewLRUModelCache[*user](16),
	} {
		t.Run(name, func(t *testing.T) {
			const workers = 32
			var (
				wg  sync.WaitGroup
				got = make([]*user, workers)
				k   = sqlflow.MustKeyOf(42)
			)
			for i := 0; i < workers; i++ {
				i := i
				wg.Add(1)
				go func() {
					defer wg.Done()
					got[i], _ = c.PutIfAbsent(k, &user{ID: 42})
				}()
			}
			wg.Wait()
			for _, u := range got {
				assert.Same(t, got[0], u)
			}
			assert.Equal(t, 1, c.Len())
		})
	}
}

func TestCaches(t *testing.T) {
	t.Parallel()
	caches := sqlflow.NewCaches()
	users := sqlflow.CacheFor[*user](caches, "users")
	assert.Same(t, users, sqlflow.CacheFor[*user](caches, "users"))
	assert.NotSame(t, users, sqlflow.CacheFor[*user](caches, "admins"))
	_, isMap := users.(*sqlflow.MapCache[*user])
	assert.True(t, isMap)

	users.PutIfAbsent(sqlflow.MustKeyOf(1), &user{ID: 1})
	sqlflow.CacheFor[*user](caches, "admins").PutIfAbsent(sqlflow.MustKeyOf(1), &user{ID: 1})
	assert.Equal(t, 2, caches.Len())
	caches.Clear()
	assert.Equal(t, 0, caches.Len())

	bounded := sqlflow.NewCaches(sqlflow.WithLRU(10))
	_, isLRU := sqlflow.CacheFor[*user](bounded, "users").(*sqlflow.LRUCache[*user])
	assert.True(t, isLRU)
}

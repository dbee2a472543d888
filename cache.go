package sqlflow

import (
	"container/list"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// ModelCache is an identity map from primary key to a live model.
// Implementations must be safe for concurrent use: synchronous loads and
// queued transactions commonly race on the same table.
type ModelCache[T any] interface {
	// Get returns the model stored under key.
	Get(key CacheKey) (T, bool)

	// PutIfAbsent stores v under key unless a model is already present.
	// It returns the model that ends up in the cache and whether it was
	// already there.
	PutIfAbsent(key CacheKey, v T) (actual T, loaded bool)

	// Update runs fn on the model stored under key while holding the
	// entry's lock, and returns that model.
	Update(key CacheKey, fn func(T) error) (T, bool, error)

	// Remove drops the model stored under key.
	Remove(key CacheKey)

	// Clear drops all models.
	Clear()

	// Len returns the number of cached models.
	Len() int
}

// CacheStats holds cache counters.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// String returns a human-readable summary.
func (s CacheStats) String() string {
	return fmt.Sprintf("hits=%d misses=%d evictions=%d", s.Hits, s.Misses, s.Evictions)
}

type cacheEntry[T any] struct {
	mu sync.Mutex
	v  T
}

// MapCache is the default unbounded ModelCache.
type MapCache[T any] struct {
	mu     sync.RWMutex
	m      map[CacheKey]*cacheEntry[T]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewModelCache returns an empty unbounded cache.
func NewModelCache[T any]() *MapCache[T] {
	return &MapCache[T]{m: make(map[CacheKey]*cacheEntry[T])}
}

func (c *MapCache[T]) entry(key CacheKey) (*cacheEntry[T], bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return e, ok
}

// Get implements ModelCache.
func (c *MapCache[T]) Get(key CacheKey) (T, bool) {
	e, ok := c.entry(key)
	if !ok {
		var zero T
		return zero, false
	}
	return e.v, true
}

// PutIfAbsent implements ModelCache.
func (c *MapCache[T]) PutIfAbsent(key CacheKey, v T) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.m[key]; ok {
		return e.v, true
	}
	c.m[key] = &cacheEntry[T]{v: v}
	return v, false
}

// Update implements ModelCache.
func (c *MapCache[T]) Update(key CacheKey, fn func(T) error) (T, bool, error) {
	e, ok := c.entry(key)
	if !ok {
		var zero T
		return zero, false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.v, true, fn(e.v)
}

// Remove implements ModelCache.
func (c *MapCache[T]) Remove(key CacheKey) {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
}

// Clear implements ModelCache.
func (c *MapCache[T]) Clear() {
	c.mu.Lock()
	c.m = make(map[CacheKey]*cacheEntry[T])
	c.mu.Unlock()
}

// Len implements ModelCache.
func (c *MapCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Stats returns the cache counters.
func (c *MapCache[T]) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// LRUCache is a ModelCache holding at most size models. The least recently
// used model is evicted first; an evicted model keeps living with whoever
// holds it, but a later load creates a new instance.
type LRUCache[T any] struct {
	mu    sync.Mutex
	size  int
	ll    *list.List
	m     map[CacheKey]*list.Element
	stats CacheStats
}

type lruItem[T any] struct {
	key CacheKey
	*cacheEntry[T]
}

// NewLRUModelCache returns a cache bounded to size models. A size below 1
// is treated as 1.
func NewLRUModelCache[T any](size int) *LRUCache[T] {
	if size < 1 {
		size = 1
	}
	return &LRUCache[T]{size: size, ll: list.New(), m: make(map[CacheKey]*list.Element)}
}

func (c *LRUCache[T]) lookup(key CacheKey) (*lruItem[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.m[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	c.ll.MoveToFront(el)
	return el.Value.(*lruItem[T]), true
}

// Get implements ModelCache.
func (c *LRUCache[T]) Get(key CacheKey) (T, bool) {
	it, ok := c.lookup(key)
	if !ok {
		var zero T
		return zero, false
	}
	return it.v, true
}

// PutIfAbsent implements ModelCache.
func (c *LRUCache[T]) PutIfAbsent(key CacheKey, v T) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.m[key]; ok {
		c.ll.MoveToFront(el)
		return el.Value.(*lruItem[T]).v, true
	}
	c.m[key] = c.ll.PushFront(&lruItem[T]{key: key, cacheEntry: &cacheEntry[T]{v: v}})
	for c.ll.Len() > c.size {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.m, oldest.Value.(*lruItem[T]).key)
		c.stats.Evictions++
	}
	return v, false
}

// Update implements ModelCache.
func (c *LRUCache[T]) Update(key CacheKey, fn func(T) error) (T, bool, error) {
	it, ok := c.lookup(key)
	if !ok {
		var zero T
		return zero, false, nil
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.v, true, fn(it.v)
}

// Remove implements ModelCache.
func (c *LRUCache[T]) Remove(key CacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.m[key]; ok {
		c.ll.Remove(el)
		delete(c.m, key)
	}
}

// Clear implements ModelCache.
func (c *LRUCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.m = make(map[CacheKey]*list.Element)
}

// Len implements ModelCache.
func (c *LRUCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Stats returns the cache counters.
func (c *LRUCache[T]) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

var (
	_ ModelCache[any] = (*MapCache[any])(nil)
	_ ModelCache[any] = (*LRUCache[any])(nil)
)

// CacheKey identifies a cached model by its primary-key values.
// The zero CacheKey is not a valid key.
type CacheKey struct {
	v any
}

// composite holds the msgpack encoding of a multi-column key, so that it
// never compares equal to a single-column text key.
type composite string

// KeyOf builds the cache key for the given primary-key values, in declared
// column order. A single value is used directly after normalization, so
// int(1) and int64(1) produce the same key. Several values form an ordered
// tuple.
func KeyOf(vals ...any) (CacheKey, error) {
	norm := make([]any, len(vals))
	for i, v := range vals {
		n, err := normalizeKey(v)
		if err != nil {
			return CacheKey{}, err
		}
		norm[i] = n
	}
	switch len(norm) {
	case 0:
		return CacheKey{}, fmt.Errorf("sqlflow: empty cache key")
	case 1:
		if t := reflect.TypeOf(norm[0]); t == nil || t.Comparable() {
			return CacheKey{v: norm[0]}, nil
		}
	}
	b, err := msgpack.Marshal(norm)
	if err != nil {
		return CacheKey{}, fmt.Errorf("sqlflow: encoding cache key: %w", err)
	}
	return CacheKey{v: composite(b)}, nil
}

// MustKeyOf is like KeyOf but panics on error.
func MustKeyOf(vals ...any) CacheKey {
	k, err := KeyOf(vals...)
	if err != nil {
		panic(err)
	}
	return k
}

// IsZero reports whether k is the zero key.
func (k CacheKey) IsZero() bool { return k.v == nil }

// String returns a printable form of the key.
func (k CacheKey) String() string {
	if c, ok := k.v.(composite); ok {
		var vals []any
		if err := msgpack.Unmarshal([]byte(c), &vals); err != nil {
			return fmt.Sprintf("%x", string(c))
		}
		return fmt.Sprint(vals)
	}
	return fmt.Sprint(k.v)
}

// normalizeKey maps the values a driver or a model may hold for the same
// column to one representation.
func normalizeKey(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, fmt.Errorf("sqlflow: NULL primary key value")
	case []byte:
		return string(v), nil
	case uuid.UUID:
		return v.String(), nil
	case fmt.Stringer:
		if isEnum(v) {
			return v.String(), nil
		}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, fmt.Errorf("sqlflow: NULL primary key value")
		}
		return normalizeKey(rv.Elem().Interface())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u := rv.Uint(); u <= 1<<63-1 {
			return int64(u), nil
		}
		return rv.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	}
	return v, nil
}

func isEnum(v any) bool {
	_, ok := v.(interface{ Values() []string })
	return ok
}

// Caches holds one ModelCache per table and model type. The zero value is
// not usable; use NewCaches.
type Caches struct {
	mu   sync.Mutex
	size int
	m    map[cachesKey]clearer
}

type cachesKey struct {
	table string
	typ   reflect.Type
}

type clearer interface {
	Clear()
	Len() int
}

// CachesOption configures a Caches registry.
type CachesOption func(*Caches)

// WithLRU bounds every cache created by the registry to size models.
func WithLRU(size int) CachesOption {
	return func(c *Caches) {
		c.size = size
	}
}

// NewCaches returns an empty registry.
func NewCaches(opts ...CachesOption) *Caches {
	c := &Caches{m: make(map[cachesKey]clearer)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CacheFor returns the cache for table, creating it on first use.
func CacheFor[T any](c *Caches, table string) ModelCache[T] {
	k := cachesKey{table: table, typ: reflect.TypeOf((*T)(nil)).Elem()}
	c.mu.Lock()
	defer c.mu.Unlock()
	if mc, ok := c.m[k]; ok {
		return mc.(ModelCache[T])
	}
	var mc ModelCache[T]
	if c.size > 0 {
		mc = NewLRUModelCache[T](c.size)
	} else {
		mc = NewModelCache[T]()
	}
	c.m[k] = mc
	return mc
}

// Clear empties every cache in the registry.
func (c *Caches) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, mc := range c.m {
		mc.Clear()
	}
}

// Len returns the number of models across all caches.
func (c *Caches) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, mc := range c.m {
		n += mc.Len()
	}
	return n
}

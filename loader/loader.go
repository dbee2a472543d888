package loader

import (
	"context"
	"errors"
	"log/slog"

	"github.com/syssam/sqlflow"
	"github.com/syssam/sqlflow/dialect"
	"github.com/syssam/sqlflow/dialect/sql"
)

type options struct {
	logger *slog.Logger
	conv   *sql.Converters
}

// Option configures a loader.
type Option func(*options)

// WithLogger sets the logger used for metadata warnings and cache traces.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithConverters sets the registry used to turn model primary-key values
// into their storage form when computing cache keys.
func WithConverters(c *sql.Converters) Option {
	return func(o *options) {
		o.conv = c
	}
}

// loader holds what Single and List share.
type loader[M any] struct {
	adapter   Adapter[M]
	populator Populator[M]
	cache     sqlflow.ModelCache[M]
	table     string
	columns   []Column
	pks       []string
	log       *slog.Logger
	conv      *sql.Converters
}

func newLoader[M any](a Adapter[M], cache sqlflow.ModelCache[M], opts []Option) (*loader[M], error) {
	o := options{logger: slog.Default(), conv: sql.DefaultConverters()}
	for _, opt := range opts {
		opt(&o)
	}
	res := Validate(a, cache != nil)
	if res.HasErrors() {
		return nil, res.Err()
	}
	for _, w := range res.Warnings {
		o.logger.Warn("loader: adapter metadata", "table", w.Table, "column", w.Column, "reason", w.Reason)
	}
	l := &loader[M]{
		adapter: a,
		cache:   cache,
		table:   a.Table(),
		columns: a.Columns(),
		pks:     PrimaryKey(a),
		log:     o.logger,
		conv:    o.conv,
	}
	l.populator, _ = a.(Populator[M])
	return l, nil
}

// Cache returns the cache of a cacheable loader, or nil.
func (l *loader[M]) Cache() sqlflow.ModelCache[M] { return l.cache }

// Adapter returns the adapter the loader was built with.
func (l *loader[M]) Adapter() Adapter[M] { return l.adapter }

// query runs q and feeds its rows to fn. The rows are closed before query
// returns.
func (l *loader[M]) query(ctx context.Context, ex dialect.ExecQuerier, q sql.Querier, op string, fn func(*Row) (bool, error)) (rerr error) {
	rows, err := sql.QueryRows(ctx, ex, q)
	if err != nil {
		if sql.IsMisuse(err) {
			return err
		}
		return sqlflow.NewQueryError(l.table, op, err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && rerr == nil {
			rerr = sqlflow.NewQueryError(l.table, op, cerr)
		}
	}()
	if err := scan(rows, fn); err != nil {
		var (
			ce *sqlflow.ConversionError
			ke *keyError
		)
		if errors.As(err, &ce) || errors.As(err, &ke) {
			return err
		}
		return sqlflow.NewQueryError(l.table, op, err)
	}
	return nil
}

// materialize turns row into a model. dst, when valid, is populated instead
// of a new model on a cache miss.
func (l *loader[M]) materialize(row *Row, dst M, reuse bool) (M, error) {
	if l.cache == nil {
		m := l.target(dst, reuse)
		if err := l.populateAll(m, row); err != nil {
			var zero M
			return zero, err
		}
		return m, nil
	}
	key, err := l.rowKey(row)
	if err != nil {
		var zero M
		return zero, err
	}
	refresh := func(m M) error { return l.refreshRelationships(m, row) }
	if m, ok, err := l.cache.Update(key, refresh); ok {
		l.log.Debug("loader: cache hit", "table", l.table, "key", key)
		return m, err
	}
	m := l.target(dst, reuse)
	if err := l.populateAll(m, row); err != nil {
		var zero M
		return zero, err
	}
	actual, loaded := l.cache.PutIfAbsent(key, m)
	if !loaded {
		l.log.Debug("loader: cache miss", "table", l.table, "key", key)
		return m, nil
	}
	// Another load stored the model first.
	if _, _, err := l.cache.Update(key, refresh); err != nil {
		var zero M
		return zero, err
	}
	return actual, nil
}

func (l *loader[M]) target(dst M, reuse bool) M {
	if reuse {
		return dst
	}
	return l.adapter.New()
}

func (l *loader[M]) populateAll(m M, row *Row) error {
	if l.populator != nil {
		return l.wrap(l.populator.PopulateAll(m, row))
	}
	return l.populate(m, row, false)
}

func (l *loader[M]) refreshRelationships(m M, row *Row) error {
	if l.populator != nil {
		return l.wrap(l.populator.RefreshRelationships(m, row))
	}
	return l.populate(m, row, true)
}

// populate copies the columns present in row into m in declared order.
// Columns missing from the result set are left untouched.
func (l *loader[M]) populate(m M, row *Row, relationsOnly bool) error {
	for _, c := range l.columns {
		if relationsOnly && !c.Relationship {
			continue
		}
		v, ok := row.Value(c.Name)
		if !ok {
			continue
		}
		if err := l.adapter.Set(m, c.Name, v); err != nil {
			return sqlflow.NewConversionError(l.table, c.Name, err)
		}
	}
	return nil
}

func (l *loader[M]) wrap(err error) error {
	if err == nil {
		return nil
	}
	var ce *sqlflow.ConversionError
	if errors.As(err, &ce) {
		return err
	}
	return sqlflow.NewConversionError(l.table, "", err)
}

// keyError reports a row whose primary key cannot form a cache key.
type keyError struct {
	table string
	err   error
}

func (e *keyError) Error() string { return "loader: " + e.table + " cache key: " + e.err.Error() }
func (e *keyError) Unwrap() error { return e.err }

func (l *loader[M]) rowKey(row *Row) (sqlflow.CacheKey, error) {
	vals := make([]any, len(l.pks))
	for i, pk := range l.pks {
		v, ok := row.Value(pk)
		if !ok {
			return sqlflow.CacheKey{}, &keyError{table: l.table, err: sql.NewMisuseError("load", "primary-key column "+pk+" not selected")}
		}
		vals[i] = v
	}
	key, err := sqlflow.KeyOf(vals...)
	if err != nil {
		return sqlflow.CacheKey{}, &keyError{table: l.table, err: err}
	}
	return key, nil
}

// Evict drops m from the loader's cache. It is a no-op for plain loaders.
func (l *loader[M]) Evict(m M) error {
	if l.cache == nil {
		return nil
	}
	key, err := modelKey(l.adapter, l.pks, l.conv, m)
	if err != nil {
		return err
	}
	l.cache.Remove(key)
	return nil
}

func modelKey[M any](a Adapter[M], pks []string, conv *sql.Converters, m M) (sqlflow.CacheKey, error) {
	vals := make([]any, len(pks))
	for i, pk := range pks {
		v, err := a.Get(m, pk)
		if err != nil {
			return sqlflow.CacheKey{}, err
		}
		if vals[i], err = conv.ToStorage(v); err != nil {
			return sqlflow.CacheKey{}, err
		}
	}
	return sqlflow.KeyOf(vals...)
}

// Single loads at most one model.
type Single[M any] struct {
	*loader[M]
}

// NewSingle returns a loader that materializes the first row of a result.
func NewSingle[M any](a Adapter[M], opts ...Option) (*Single[M], error) {
	l, err := newLoader(a, nil, opts)
	if err != nil {
		return nil, err
	}
	return &Single[M]{l}, nil
}

// NewCacheableSingle returns a single loader backed by cache. It fails if
// the adapter declares no primary key or several auto-increment columns.
func NewCacheableSingle[M any](a Adapter[M], cache sqlflow.ModelCache[M], opts ...Option) (*Single[M], error) {
	if cache == nil {
		return nil, sqlflow.NewConfigError(a.Table(), "", "nil cache")
	}
	l, err := newLoader(a, cache, opts)
	if err != nil {
		return nil, err
	}
	return &Single[M]{l}, nil
}

// Load returns the model of the first row of q. It reports false if q
// returned no rows.
func (s *Single[M]) Load(ctx context.Context, ex dialect.ExecQuerier, q sql.Querier) (M, bool, error) {
	var zero M
	return s.load(ctx, ex, q, zero, false)
}

// LoadInto is like Load but populates dst instead of a new model. A
// cacheable loader returns the cached model instead when the row's key is
// already cached.
func (s *Single[M]) LoadInto(ctx context.Context, ex dialect.ExecQuerier, q sql.Querier, dst M) (M, bool, error) {
	return s.load(ctx, ex, q, dst, true)
}

func (s *Single[M]) load(ctx context.Context, ex dialect.ExecQuerier, q sql.Querier, dst M, reuse bool) (M, bool, error) {
	var (
		m     M
		found bool
	)
	err := s.query(ctx, ex, q, "single", func(row *Row) (bool, error) {
		var err error
		m, err = s.materialize(row, dst, reuse)
		found = err == nil
		return false, err
	})
	if err != nil {
		var zero M
		return zero, false, err
	}
	return m, found, nil
}

// Only returns the single model q selects. It fails with a NotFoundError
// if there is none and a NotSingularError if there are several. The row is
// materialized, and cached, only once it is known to be the only one.
func (s *Single[M]) Only(ctx context.Context, ex dialect.ExecQuerier, q sql.Querier) (M, error) {
	var (
		first *Row
		rows  int
	)
	err := s.query(ctx, ex, q, "only", func(row *Row) (bool, error) {
		rows++
		if rows == 1 {
			first = row
		}
		return rows == 1, nil
	})
	var zero M
	switch {
	case err != nil:
		return zero, err
	case rows == 0:
		return zero, sqlflow.NewNotFoundError(s.table)
	case rows > 1:
		return zero, sqlflow.NewNotSingularError(s.table)
	}
	return s.materialize(first, zero, false)
}

// List loads every row of a result.
type List[M any] struct {
	*loader[M]
}

// NewList returns a loader that materializes every row of a result.
func NewList[M any](a Adapter[M], opts ...Option) (*List[M], error) {
	l, err := newLoader(a, nil, opts)
	if err != nil {
		return nil, err
	}
	return &List[M]{l}, nil
}

// NewCacheableList returns a list loader backed by cache. It fails if the
// adapter declares no primary key or several auto-increment columns.
func NewCacheableList[M any](a Adapter[M], cache sqlflow.ModelCache[M], opts ...Option) (*List[M], error) {
	if cache == nil {
		return nil, sqlflow.NewConfigError(a.Table(), "", "nil cache")
	}
	l, err := newLoader(a, cache, opts)
	if err != nil {
		return nil, err
	}
	return &List[M]{l}, nil
}

// Load returns one model per row of q, in row order. No rows yields an
// empty, non-nil slice.
func (l *List[M]) Load(ctx context.Context, ex dialect.ExecQuerier, q sql.Querier) ([]M, error) {
	list := make([]M, 0)
	err := l.query(ctx, ex, q, "list", func(row *Row) (bool, error) {
		var zero M
		m, err := l.materialize(row, zero, false)
		if err != nil {
			return false, err
		}
		list = append(list, m)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// QuerySingle loads the first row of q into a new model without caching.
func QuerySingle[M any](ctx context.Context, ex dialect.ExecQuerier, a Adapter[M], q sql.Querier) (M, bool, error) {
	l, err := NewSingle(a)
	if err != nil {
		var zero M
		return zero, false, err
	}
	return l.Load(ctx, ex, q)
}

// QueryList loads every row of q into new models without caching.
func QueryList[M any](ctx context.Context, ex dialect.ExecQuerier, a Adapter[M], q sql.Querier) ([]M, error) {
	l, err := NewList(a)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, ex, q)
}

// KeyOf returns the cache key of m, built from its primary-key values in
// storage form.
func KeyOf[M any](a Adapter[M], m M) (sqlflow.CacheKey, error) {
	return modelKey(a, PrimaryKey(a), sql.DefaultConverters(), m)
}

// Evict removes m from cache, so that the next load of its key builds a new
// model.
func Evict[M any](cache sqlflow.ModelCache[M], a Adapter[M], m M) error {
	key, err := KeyOf(a, m)
	if err != nil {
		return err
	}
	cache.Remove(key)
	return nil
}

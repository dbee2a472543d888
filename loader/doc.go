// Package loader materializes query results into models.
//
// An Adapter describes a table: its columns in declared order, which of them
// form the primary key and which are relationships. Loaders bind an adapter
// to a result shape (Single or List) and, optionally, to a
// sqlflow.ModelCache. Cacheable loaders keep one live model per primary key:
// a row whose key is already cached refreshes only the relationship columns
// of the cached model, which is then returned in place of a new one.
//
//	users, err := loader.NewStructAdapter[User]()
//	...
//	l, err := loader.NewCacheableList(users, sqlflow.CacheFor[*User](caches, users.Table()))
//	...
//	list, err := l.Load(ctx, drv, sql.Select().From(sql.Table(users.Table())))
//
// Rows are always closed before a load returns, including on failure. A model
// whose conversion failed is never stored in the cache.
package loader

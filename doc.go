// Package sqlflow holds the pieces shared by the loader and transaction
// packages: the error taxonomy and the identity cache that keeps one live
// model per primary key.
//
// Statements are built and executed with package dialect/sql; rows are
// materialized into models with package loader.
//
//	caches := sqlflow.NewCaches()
//	users := sqlflow.CacheFor[*User](caches, "users")
//	k := sqlflow.MustKeyOf(1)
//	u, _ := users.PutIfAbsent(k, &User{ID: 1})
package sqlflow

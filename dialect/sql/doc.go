// Package sql builds, renders and executes SQL statements.
//
// Statements are composed as values and rendered to dialect-correct text.
// Literal values are inlined and escaped; only the "?" placeholder token is
// left for the store to bind. SQLite is the reference dialect, MySQL and
// PostgreSQL quoting is also supported.
//
// # Statements
//
// A Statement is rooted in SELECT, INSERT, UPDATE or DELETE. Clauses may be
// added in any order; they are always written in canonical order and
// validated once, when Query is called:
//
//	q, err := sql.Select("id", "name").
//		From(sql.Table("users")).
//		Where(sql.C("age").GT(18)).
//		OrderBy(sql.C("name").Asc()).
//		Limit(10).
//		Query()
//	// SELECT "id", "name" FROM "users" WHERE "age" > 18 ORDER BY "name" ASC LIMIT 10
//
// Build-time misuse, such as an INSERT row with the wrong number of values
// or HAVING without GROUP BY, is reported by Query as an error matching
// ErrMisuse.
//
// # Conditions
//
// An Operator compares a left-hand expression with a value. An
// OperatorGroup joins conditions; And and Or set the separator between the
// previous member and the new one:
//
//	sql.Clause().And(a).And(b).Or(c) // (a AND b OR c)
//
// # Values
//
// Values are classified once by ValueOf. Types registered in a Converters
// registry (time.Time and uuid.UUID by default) are converted to their
// storage form before being written.
//
// # Dialects
//
//	d := sql.Dialect(dialect.MySQL, sql.Strict())
//	d.Select().From(sql.Table("users")) // SELECT * FROM `users`
//
// # Execution
//
// Exec, QueryRows, CountRows and Compile run statements through any
// dialect.ExecQuerier. QueryRows rejects statements that are not rooted in
// SELECT before contacting the store.
package sql

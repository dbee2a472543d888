// Package dialect defines the store-facing interfaces of sqlflow.
//
// The statement builders in dialect/sql render plain SQL text; everything
// that talks to a database goes through the Driver and Tx interfaces defined
// here, so that tests and wrappers (statistics, debug logging) can stand in
// for the real connection.
//
// # Supported Dialects
//
//	dialect.SQLite   = "sqlite"
//	dialect.MySQL    = "mysql"
//	dialect.Postgres = "postgres"
//
// SQLite is the reference target. The dialect only changes identifier
// quoting, string escaping and a few clause spellings.
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// Exec scans into a *sql.Result (or nil), Query into a *sql.Rows.
package dialect

package sql

import (
	"context"
	"fmt"

	"github.com/syssam/sqlflow/dialect"
)

// Kinder is implemented by statements that know their root keyword.
type Kinder interface {
	RootKind() StmtKind
}

// RawQuery is verbatim SQL text usable wherever a Querier is expected.
// It is treated as row-returning.
type RawQuery string

// Query implements Querier.
func (r RawQuery) Query() (string, error) { return string(r), nil }

// Exec runs q and returns the number of affected rows. Store errors are
// returned unchanged apart from wrapping.
func Exec(ctx context.Context, ex dialect.ExecQuerier, q Querier) (int64, error) {
	res, err := execResult(ctx, ex, q)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExecInsert runs q and returns the id of the last inserted row.
func ExecInsert(ctx context.Context, ex dialect.ExecQuerier, q Querier) (int64, error) {
	res, err := execResult(ctx, ex, q)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func execResult(ctx context.Context, ex dialect.ExecQuerier, q Querier) (Result, error) {
	query, err := q.Query()
	if err != nil {
		return nil, err
	}
	var res Result
	if err := ex.Exec(ctx, query, []any{}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// QueryRows runs a row-returning statement. Statements whose root is not
// SELECT are rejected with a misuse error before the store is touched.
// The caller must close the returned rows.
func QueryRows(ctx context.Context, ex dialect.ExecQuerier, q Querier) (*Rows, error) {
	if k, ok := q.(Kinder); ok && k.RootKind() != SelectStmt {
		return nil, NewMisuseError("query rows", fmt.Sprintf("statement rooted in %s does not return rows", k.RootKind()))
	}
	query, err := q.Query()
	if err != nil {
		return nil, err
	}
	rows := &Rows{}
	if err := ex.Query(ctx, query, []any{}, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Int64 runs q and returns the first column of the first row as int64.
// No rows yields 0.
func Int64(ctx context.Context, ex dialect.ExecQuerier, q Querier) (_ int64, rerr error) {
	rows, err := QueryRows(ctx, ex, q)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := rows.Close(); rerr == nil {
			rerr = cerr
		}
	}()
	if !rows.Next() {
		return 0, rows.Err()
	}
	var n NullInt64
	if err := rows.Scan(&n); err != nil {
		return 0, fmt.Errorf("dialect/sql: scan int64: %w", err)
	}
	return n.Int64, rows.Err()
}

// CountRows returns the number of rows q would return.
func CountRows(ctx context.Context, ex dialect.ExecQuerier, q Querier) (int64, error) {
	if k, ok := q.(Kinder); ok && k.RootKind() != SelectStmt {
		return 0, NewMisuseError("count rows", fmt.Sprintf("statement rooted in %s does not return rows", k.RootKind()))
	}
	query, err := Trimmed(q)
	if err != nil {
		return 0, err
	}
	return Int64(ctx, ex, RawQuery("SELECT COUNT(*) FROM ("+query+") AS t"))
}

// HasData reports whether q returns at least one row.
func HasData(ctx context.Context, ex dialect.ExecQuerier, q Querier) (bool, error) {
	n, err := CountRows(ctx, ex, q)
	return n > 0, err
}

// Compile prepares q for repeated execution.
func Compile(ctx context.Context, p Preparer, q Querier) (*Stmt, error) {
	query, err := q.Query()
	if err != nil {
		return nil, err
	}
	return p.Prepare(ctx, query)
}

// Exec runs the statement and returns the number of affected rows.
func (s *Statement) Exec(ctx context.Context, ex dialect.ExecQuerier) (int64, error) {
	return Exec(ctx, ex, s)
}

// Rows runs a SELECT statement and returns its rows.
func (s *Statement) Rows(ctx context.Context, ex dialect.ExecQuerier) (*Rows, error) {
	return QueryRows(ctx, ex, s)
}

// Count returns the number of rows the SELECT statement would return.
func (s *Statement) Count(ctx context.Context, ex dialect.ExecQuerier) (int64, error) {
	return CountRows(ctx, ex, s)
}

// HasData reports whether the SELECT statement returns any row.
func (s *Statement) HasData(ctx context.Context, ex dialect.ExecQuerier) (bool, error) {
	return HasData(ctx, ex, s)
}

// Compile prepares the statement.
func (s *Statement) Compile(ctx context.Context, p Preparer) (*Stmt, error) {
	return Compile(ctx, p, s)
}

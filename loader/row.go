package loader

import (
	"fmt"

	"github.com/syssam/sqlflow/dialect/sql"
)

// Row is one scanned result row. Values are the driver's representation,
// before any conversion into model types.
type Row struct {
	columns []string
	index   map[string]int
	values  []any
}

// NewRow returns a row with the given columns and values.
func NewRow(columns []string, values []any) *Row {
	return &Row{columns: columns, index: indexOf(columns), values: values}
}

func indexOf(columns []string) map[string]int {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, ok := index[c]; !ok {
			index[c] = i
		}
	}
	return index
}

// Columns returns the column names of the result set.
func (r *Row) Columns() []string { return r.columns }

// Value returns the value of column. It reports false if the column is not
// part of the result set.
func (r *Row) Value(column string) (any, bool) {
	i, ok := r.index[column]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Len returns the number of columns.
func (r *Row) Len() int { return len(r.values) }

// scan calls fn for every row until fn reports false or fails.
func scan(rows *sql.Rows, fn func(*Row) (bool, error)) error {
	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("loader: columns: %w", err)
	}
	index := indexOf(columns)
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("loader: scan: %w", err)
		}
		more, err := fn(&Row{columns: columns, index: index, values: values})
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return rows.Err()
}

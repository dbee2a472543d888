package loader

import (
	"fmt"
	"strings"

	"github.com/syssam/sqlflow"
	"github.com/syssam/sqlflow/schema/field"
)

// Column describes one column of a table.
type Column struct {
	Name          string
	Type          field.Type
	PrimaryKey    bool
	AutoIncrement bool
	// Relationship columns hold values that may change independently of the
	// model's identity, such as foreign keys. They are refreshed when a
	// cached model is loaded again.
	Relationship bool
}

// Adapter maps models of type M to rows of a table.
type Adapter[M any] interface {
	// Table returns the table name.
	Table() string
	// Columns returns the columns in declared order. Primary-key columns
	// form the cache key in this order.
	Columns() []Column
	// New returns an empty model.
	New() M
	// Get returns the value of column in m.
	Get(m M, column string) (any, error)
	// Set stores the scanned value v of column in m.
	Set(m M, column string, v any) error
}

// Populator is implemented by adapters that copy rows into models
// themselves instead of column by column through Set.
type Populator[M any] interface {
	// PopulateAll copies every column of row into m.
	PopulateAll(m M, row *Row) error
	// RefreshRelationships copies only the relationship columns of row
	// into m.
	RefreshRelationships(m M, row *Row) error
}

// PrimaryKey returns the names of the primary-key columns of a in declared
// order.
func PrimaryKey[M any](a Adapter[M]) []string {
	var pks []string
	for _, c := range a.Columns() {
		if c.PrimaryKey {
			pks = append(pks, c.Name)
		}
	}
	return pks
}

// ValidationResult holds the problems found in an adapter's metadata.
type ValidationResult struct {
	Errors   []*sqlflow.ConfigError
	Warnings []*sqlflow.ConfigError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Err returns the validation errors as a single error, or nil.
func (r *ValidationResult) Err() error {
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return sqlflow.NewAggregateError(errs...)
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	if len(r.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&sb, "  - %s\n", e.Error())
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&sb, "  - %s\n", w.Error())
		}
	}
	if sb.Len() == 0 {
		return "No issues found"
	}
	return sb.String()
}

// Validate checks the metadata of a. A missing primary key and several
// auto-increment columns are errors when cacheable is set and warnings
// otherwise.
func Validate[M any](a Adapter[M], cacheable bool) *ValidationResult {
	result := &ValidationResult{}
	table := a.Table()
	fail := func(column, reason string) {
		result.Errors = append(result.Errors, sqlflow.NewConfigError(table, column, reason))
	}
	warn := func(column, reason string) {
		result.Warnings = append(result.Warnings, sqlflow.NewConfigError(table, column, reason))
	}
	strict := fail
	if !cacheable {
		strict = warn
	}

	if table == "" {
		fail("", "empty table name")
	}
	cols := a.Columns()
	if len(cols) == 0 {
		fail("", "no columns")
	}
	var (
		names = make(map[string]bool, len(cols))
		pks   int
		autos []string
	)
	for _, c := range cols {
		switch {
		case c.Name == "":
			fail("", "empty column name")
		case names[c.Name]:
			fail(c.Name, "duplicate column name")
		}
		names[c.Name] = true
		if c.PrimaryKey {
			pks++
		}
		if c.AutoIncrement {
			autos = append(autos, c.Name)
			if c.Type.Valid() && !c.Type.Integer() {
				warn(c.Name, fmt.Sprintf("auto-increment column of type %s", c.Type))
			}
			if !c.PrimaryKey {
				warn(c.Name, "auto-increment column is not part of the primary key")
			}
		}
	}
	if pks == 0 {
		strict("", "no primary key column")
	}
	if len(autos) > 1 {
		strict("", fmt.Sprintf("%d auto-increment columns (%s), expected at most one", len(autos), strings.Join(autos, ", ")))
	}
	return result
}

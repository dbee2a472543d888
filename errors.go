package sqlflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/sqlflow/dialect/sql"
	"github.com/syssam/sqlflow/dialect/sql/sqlerr"
)

// Standard sentinel errors for common operations.
var (
	// ErrMisuse is matched by every build-time misuse error, such as
	// retrieving rows from a statement that is not rooted in SELECT.
	ErrMisuse = sql.ErrMisuse

	// ErrNotFound is returned when a requested model does not exist.
	ErrNotFound = errors.New("sqlflow: model not found")

	// ErrNotSingular is returned when a query that expects exactly one result
	// returns zero or multiple results.
	ErrNotSingular = errors.New("sqlflow: model not singular")

	// ErrTxStarted is returned when attempting to start a new transaction
	// within an existing transaction.
	ErrTxStarted = errors.New("sqlflow: cannot start a transaction within a transaction")

	// ErrQueueStopped is returned when a transaction is added to a queue
	// that is not running.
	ErrQueueStopped = errors.New("sqlflow: transaction queue stopped")
)

// IsMisuse reports whether err is a build-time misuse error.
func IsMisuse(err error) bool {
	return sql.IsMisuse(err)
}

// NotFoundError represents an error when a model is not found.
type NotFoundError struct {
	table string
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("sqlflow: %s not found", e.table)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Table returns the table that was queried.
func (e *NotFoundError) Table() string {
	return e.table
}

// NewNotFoundError returns a new NotFoundError for the given table.
func NewNotFoundError(table string) *NotFoundError {
	return &NotFoundError{table: table}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// NotSingularError represents an error when a query expects a singular result
// but receives multiple results.
type NotSingularError struct {
	table string
}

// Error returns the error string.
func (e *NotSingularError) Error() string {
	return fmt.Sprintf("sqlflow: %s not singular", e.table)
}

// Is reports whether the target error matches NotSingularError.
func (e *NotSingularError) Is(err error) bool {
	return err == ErrNotSingular
}

// NewNotSingularError returns a new NotSingularError for the given table.
func NewNotSingularError(table string) *NotSingularError {
	return &NotSingularError{table: table}
}

// IsNotSingular returns true if the error is a NotSingularError.
func IsNotSingular(err error) bool {
	if err == nil {
		return false
	}
	var e *NotSingularError
	return errors.As(err, &e) || errors.Is(err, ErrNotSingular)
}

// ConfigError reports an adapter that cannot back the requested loader,
// e.g. a cacheable loader over a table without a primary key.
type ConfigError struct {
	Table  string
	Column string // empty when the problem is not tied to one column
	Reason string
}

// Error returns the error string.
func (e *ConfigError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("sqlflow: invalid adapter %s.%s: %s", e.Table, e.Column, e.Reason)
	}
	return fmt.Sprintf("sqlflow: invalid adapter %s: %s", e.Table, e.Reason)
}

// NewConfigError returns a new ConfigError.
func NewConfigError(table, column, reason string) *ConfigError {
	return &ConfigError{Table: table, Column: column, Reason: reason}
}

// IsConfigError returns true if the error is a ConfigError.
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigError
	return errors.As(err, &e)
}

// ConversionError reports a row that could not be copied into a model.
// A model that failed conversion is never stored in a cache.
type ConversionError struct {
	Table  string
	Column string
	Err    error
}

// Error returns the error string.
func (e *ConversionError) Error() string {
	return fmt.Sprintf("sqlflow: converting %s.%s: %v", e.Table, e.Column, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConversionError) Unwrap() error {
	return e.Err
}

// NewConversionError returns a new ConversionError.
func NewConversionError(table, column string, err error) *ConversionError {
	return &ConversionError{Table: table, Column: column, Err: err}
}

// IsConversionError returns true if the error is a ConversionError.
func IsConversionError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConversionError
	return errors.As(err, &e)
}

// ConstraintError represents a database constraint violation error.
type ConstraintError struct {
	kind sqlerr.Kind
	wrap error
}

// Error returns the error string.
func (e ConstraintError) Error() string {
	return fmt.Sprintf("sqlflow: %s constraint failed: %v", e.kind, e.wrap)
}

// Unwrap returns the underlying error.
func (e ConstraintError) Unwrap() error {
	return e.wrap
}

// Kind returns the class of the violated constraint.
func (e ConstraintError) Kind() sqlerr.Kind {
	return e.kind
}

// NewConstraintError returns err wrapped in a ConstraintError if the store
// reported a constraint violation. Other errors are returned as is.
func NewConstraintError(err error) error {
	if err == nil {
		return nil
	}
	var e ConstraintError
	if errors.As(err, &e) {
		return err
	}
	if k := sqlerr.Classify(err); k != sqlerr.KindNone {
		return ConstraintError{kind: k, wrap: err}
	}
	return err
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}

// QueryError wraps a store error with the table and loader shape that
// issued the query.
type QueryError struct {
	Table string // Table being loaded
	Op    string // Operation (e.g., "single", "list", "only")
	Err   error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("sqlflow: querying %s (%s): %v", e.Table, e.Op, e.Err)
	}
	return fmt.Sprintf("sqlflow: querying %s: %v", e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(table, op string, err error) *QueryError {
	return &QueryError{Table: table, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error // Original error that triggered rollback
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("sqlflow: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "sqlflow: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("sqlflow: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}

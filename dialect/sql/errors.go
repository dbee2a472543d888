package sql

import (
	"errors"
	"fmt"
)

// ErrMisuse is returned when a statement or condition is composed in a way
// that can never produce valid SQL. It signals a programming error.
var ErrMisuse = errors.New("sql: builder misuse")

// MisuseError describes a build-time misuse of the statement builders.
type MisuseError struct {
	Op     string // Operation that detected the misuse (e.g. "insert", "query rows")
	Reason string
}

// Error returns the error string.
func (e *MisuseError) Error() string {
	return fmt.Sprintf("sql: %s: %s", e.Op, e.Reason)
}

// Is reports whether the target error matches ErrMisuse.
func (e *MisuseError) Is(err error) bool {
	return err == ErrMisuse
}

// NewMisuseError returns a new MisuseError.
func NewMisuseError(op, reason string) *MisuseError {
	return &MisuseError{Op: op, Reason: reason}
}

// IsMisuse returns true if the error is, or wraps, a MisuseError.
func IsMisuse(err error) bool {
	if err == nil {
		return false
	}
	var e *MisuseError
	return errors.As(err, &e) || errors.Is(err, ErrMisuse)
}

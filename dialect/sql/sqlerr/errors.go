// Package sqlerr classifies errors returned by the supported stores.
//
// The typed errors of github.com/go-sql-driver/mysql, github.com/lib/pq and
// modernc.org/sqlite are inspected first. Messages are matched as a fallback
// for wrapped or re-created errors that lost their concrete type.
package sqlerr

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Kind is the class of a constraint violation.
type Kind uint8

// Constraint kinds.
const (
	KindNone Kind = iota
	KindUnique
	KindForeignKey
	KindCheck
	KindNotNull
)

func (k Kind) String() string {
	switch k {
	case KindUnique:
		return "unique"
	case KindForeignKey:
		return "foreign key"
	case KindCheck:
		return "check"
	case KindNotNull:
		return "not null"
	default:
		return "none"
	}
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlBadNull                = 1048
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// Classify returns the constraint kind of err, or KindNone.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if e, ok := asError[*sqlite.Error](err); ok {
		if k := sqliteKind(e.Code()); k != KindNone {
			return k
		}
	}
	if e, ok := asError[*pq.Error](err); ok {
		switch string(e.Code) {
		case pgUniqueViolation:
			return KindUnique
		case pgForeignKeyViolation:
			return KindForeignKey
		case pgCheckViolation:
			return KindCheck
		case pgNotNullViolation:
			return KindNotNull
		}
	}
	if e, ok := asError[*mysql.MySQLError](err); ok {
		switch e.Number {
		case mysqlDuplicateEntry:
			return KindUnique
		case mysqlForeignKeyParent, mysqlForeignKeyChild:
			return KindForeignKey
		case mysqlCheckConstraintViolate:
			return KindCheck
		case mysqlBadNull:
			return KindNotNull
		}
	}
	msg := err.Error()
	switch {
	case containsAny(msg,
		"Error 1062",                 // MySQL
		"violates unique constraint", // Postgres
		"UNIQUE constraint failed",   // SQLite
	):
		return KindUnique
	case containsAny(msg,
		"Error 1451",
		"Error 1452",
		"violates foreign key constraint",
		"FOREIGN KEY constraint failed",
	):
		return KindForeignKey
	case containsAny(msg,
		"Error 3819",
		"violates check constraint",
		"CHECK constraint failed",
	):
		return KindCheck
	case containsAny(msg,
		"Error 1048",
		"violates not-null constraint",
		"NOT NULL constraint failed",
	):
		return KindNotNull
	}
	return KindNone
}

// sqliteKind maps extended result codes. Connections without extended
// codes report the primary SQLITE_CONSTRAINT and fall through to the
// message match.
func sqliteKind(code int) Kind {
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return KindUnique
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return KindForeignKey
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		return KindCheck
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return KindNotNull
	}
	return KindNone
}

// IsConstraintError reports whether err resulted from any constraint violation.
func IsConstraintError(err error) bool {
	return Classify(err) != KindNone
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness
// constraint violation, e.g. a duplicate value in a unique index.
func IsUniqueConstraintError(err error) bool {
	return Classify(err) == KindUnique
}

// IsForeignKeyConstraintError reports if the error resulted from a foreign-key
// constraint violation, e.g. the parent row does not exist.
func IsForeignKeyConstraintError(err error) bool {
	return Classify(err) == KindForeignKey
}

// IsCheckConstraintError reports if the error resulted from a check
// constraint violation.
func IsCheckConstraintError(err error) bool {
	return Classify(err) == KindCheck
}

// IsNotNullConstraintError reports if a NULL was written to a NOT NULL column.
func IsNotNullConstraintError(err error) bool {
	return Classify(err) == KindNotNull
}

// asError extracts an error of type T from the error chain.
func asError[T error](err error) (T, bool) {
	var target T
	if errors.As(err, &target) {
		return target, true
	}
	return target, false
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

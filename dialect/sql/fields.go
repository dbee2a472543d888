package sql

import (
	"time"

	"github.com/google/uuid"
)

// Field is a typed column reference. It provides type-safe condition
// builders so that generated adapters can declare their columns once.
//
// Usage:
//
//	var Age = sql.Field[int]("age")
//	sql.Select().From(sql.Table("users")).Where(Age.GT(18))
type Field[T any] string

// Name returns the column name.
func (f Field[T]) Name() string { return string(f) }

// C returns the column reference.
func (f Field[T]) C() NameAlias { return C(string(f)) }

// WriteSQL implements Expr.
func (f Field[T]) WriteSQL(b *Builder) { f.C().WriteSQL(b) }

// EQ returns a condition that checks if the field equals the given value.
func (f Field[T]) EQ(v T) *Operator { return Op(f.C()).EQ(v) }

// NEQ returns a condition that checks if the field does not equal the given value.
func (f Field[T]) NEQ(v T) *Operator { return Op(f.C()).NEQ(v) }

// GT returns a condition that checks if the field is greater than the given value.
func (f Field[T]) GT(v T) *Operator { return Op(f.C()).GT(v) }

// GTE returns a condition that checks if the field is greater than or equal to the given value.
func (f Field[T]) GTE(v T) *Operator { return Op(f.C()).GTE(v) }

// LT returns a condition that checks if the field is less than the given value.
func (f Field[T]) LT(v T) *Operator { return Op(f.C()).LT(v) }

// LTE returns a condition that checks if the field is less than or equal to the given value.
func (f Field[T]) LTE(v T) *Operator { return Op(f.C()).LTE(v) }

// In returns a condition that checks if the field value is in the given list.
func (f Field[T]) In(vs ...T) *In { return Op(f.C()).In(anys(vs)...) }

// NotIn returns a condition that checks if the field value is not in the given list.
func (f Field[T]) NotIn(vs ...T) *In { return Op(f.C()).NotIn(anys(vs)...) }

// Between returns a condition that checks if the field is within [lo, hi].
func (f Field[T]) Between(lo, hi T) *Between { return Op(f.C()).Between(lo).And(hi) }

// IsNull returns a condition that checks if the field is NULL.
func (f Field[T]) IsNull() *Operator { return Op(f.C()).IsNull() }

// NotNull returns a condition that checks if the field is not NULL.
func (f Field[T]) NotNull() *Operator { return Op(f.C()).IsNotNull() }

// Set returns the assignment "field = v" for UPDATE statements.
func (f Field[T]) Set(v T) *Operator { return Op(f.C()).EQ(v) }

// Asc orders by the field ascending.
func (f Field[T]) Asc() OrderTerm { return Asc(f.C()) }

// Desc orders by the field descending.
func (f Field[T]) Desc() OrderTerm { return Desc(f.C()) }

type (
	// IntField is an int column.
	IntField = Field[int]
	// Int64Field is an int64 column.
	Int64Field = Field[int64]
	// Float64Field is a float64 column.
	Float64Field = Field[float64]
	// BoolField is a bool column.
	BoolField = Field[bool]
	// BytesField is a blob column.
	BytesField = Field[[]byte]
	// TimeField is a time column stored through the time converter.
	TimeField = Field[time.Time]
	// UUIDField is a uuid column stored as text.
	UUIDField = Field[uuid.UUID]
)

// StringField is a text column with pattern-matching conditions.
type StringField struct {
	Field[string]
}

// String returns a StringField for the named column.
func String(name string) StringField { return StringField{Field[string](name)} }

// Like returns a condition that checks if the field matches the LIKE pattern.
func (f StringField) Like(pattern string) *Operator { return Op(f.C()).Like(pattern) }

// Glob returns a condition that checks if the field matches the GLOB pattern.
func (f StringField) Glob(pattern string) *Operator { return Op(f.C()).Glob(pattern) }

// Contains returns a condition that checks if the field contains the given substring.
func (f StringField) Contains(v string) *Operator {
	return Op(f.C()).Like("%" + escapeLike(v) + "%").Postfix(`ESCAPE '\'`)
}

// HasPrefix returns a condition that checks if the field has the given prefix.
func (f StringField) HasPrefix(v string) *Operator {
	return Op(f.C()).Like(escapeLike(v) + "%").Postfix(`ESCAPE '\'`)
}

// HasSuffix returns a condition that checks if the field has the given suffix.
func (f StringField) HasSuffix(v string) *Operator {
	return Op(f.C()).Like("%" + escapeLike(v)).Postfix(`ESCAPE '\'`)
}

// EqualFold returns a condition that checks if the field equals the given value (case-insensitive).
func (f StringField) EqualFold(v string) *Operator {
	return Op(f.C()).EQ(v).Collate("NOCASE")
}

// Concatenate returns the assignment "field = field || v".
func (f StringField) Concatenate(v string) *Operator {
	o, _ := Op(f.C()).Concatenate(v)
	return o
}

// EnumField is a column holding values of a string-based enum type.
type EnumField[T ~string] string

// Name returns the column name.
func (f EnumField[T]) Name() string { return string(f) }

// C returns the column reference.
func (f EnumField[T]) C() NameAlias { return C(string(f)) }

// EQ returns a condition that checks if the field equals the given value.
func (f EnumField[T]) EQ(v T) *Operator { return Op(f.C()).EQ(string(v)) }

// NEQ returns a condition that checks if the field does not equal the given value.
func (f EnumField[T]) NEQ(v T) *Operator { return Op(f.C()).NEQ(string(v)) }

// In returns a condition that checks if the field value is in the given list.
func (f EnumField[T]) In(vs ...T) *In { return Op(f.C()).In(anys(vs)...) }

// NotIn returns a condition that checks if the field value is not in the given list.
func (f EnumField[T]) NotIn(vs ...T) *In { return Op(f.C()).NotIn(anys(vs)...) }

// IsNull returns a condition that checks if the field is NULL.
func (f EnumField[T]) IsNull() *Operator { return Op(f.C()).IsNull() }

// NotNull returns a condition that checks if the field is not NULL.
func (f EnumField[T]) NotNull() *Operator { return Op(f.C()).IsNotNull() }

func anys[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

// escapeLike escapes the LIKE wildcards in s using '\'.
func escapeLike(s string) string {
	var (
		buf     []byte
		escaped bool
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '%', '_', '\\':
			if !escaped {
				buf, escaped = append(buf, s[:i]...), true
			}
			buf = append(buf, '\\', c)
		default:
			if escaped {
				buf = append(buf, c)
			}
		}
	}
	if !escaped {
		return s
	}
	return string(buf)
}

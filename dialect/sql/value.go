package sql

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/syssam/sqlflow/dialect"
)

// Placeholder is the bound-parameter token. A string value equal to it is
// written verbatim and never quoted.
const Placeholder = "?"

// ValueKind classifies a value at the point it enters the builders.
type ValueKind uint8

// Value kinds.
const (
	KindNull ValueKind = iota
	KindNumber
	KindText
	KindBlob
	KindPlaceholder
	KindExpr
	KindQuery
	KindConverted
)

var kindNames = [...]string{
	KindNull:        "null",
	KindNumber:      "number",
	KindText:        "text",
	KindBlob:        "blob",
	KindPlaceholder: "placeholder",
	KindExpr:        "expr",
	KindQuery:       "query",
	KindConverted:   "converted",
}

func (k ValueKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a classified right-hand side value. The zero Value is NULL.
type Value struct {
	kind  ValueKind
	text  string
	blob  []byte
	expr  Expr
	query Querier
	// raw holds the original Go value for converter lookups.
	raw any
}

// Kind returns the kind of the value.
func (v Value) Kind() ValueKind { return v.kind }

// Raw returns the Go value the Value was built from.
func (v Value) Raw() any { return v.raw }

// enumer is implemented by enum-like types: a symbolic name plus the
// list of valid names.
type enumer interface {
	fmt.Stringer
	Values() []string
}

// ValueOf classifies v once. Nil pointers become NULL, non-nil pointers are
// dereferenced. Named byte slices such as json.RawMessage are blobs. Types
// that are neither primitive nor SQL expressions are kept as KindConverted
// and resolved through the converter registry when serialized.
func ValueOf(v any) Value {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return Value{kind: KindNull}
	}
	switch x := v.(type) {
	case nil:
		return Value{kind: KindNull}
	case Value:
		return x
	case Querier:
		return Value{kind: KindQuery, query: x}
	case Expr:
		return Value{kind: KindExpr, expr: x}
	case []byte:
		if x == nil {
			return Value{kind: KindNull}
		}
		return Value{kind: KindBlob, blob: x, raw: x}
	case string:
		if x == Placeholder {
			return Value{kind: KindPlaceholder, text: x, raw: x}
		}
		return Value{kind: KindText, text: x, raw: x}
	case bool:
		if x {
			return Value{kind: KindNumber, text: "1", raw: x}
		}
		return Value{kind: KindNumber, text: "0", raw: x}
	case int:
		return Value{kind: KindNumber, text: strconv.Itoa(x), raw: x}
	case int64:
		return Value{kind: KindNumber, text: strconv.FormatInt(x, 10), raw: x}
	case float64:
		return Value{kind: KindNumber, text: strconv.FormatFloat(x, 'g', -1, 64), raw: x}
	case enumer:
		return Value{kind: KindText, text: x.String(), raw: x}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return Value{kind: KindNull}
		}
		return ValueOf(rv.Elem().Interface())
	case reflect.Bool:
		return ValueOf(rv.Bool()).withRaw(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Value{kind: KindNumber, text: strconv.FormatInt(rv.Int(), 10), raw: v}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Value{kind: KindNumber, text: strconv.FormatUint(rv.Uint(), 10), raw: v}
	case reflect.Float32:
		return Value{kind: KindNumber, text: strconv.FormatFloat(rv.Float(), 'g', -1, 32), raw: v}
	case reflect.Float64:
		return Value{kind: KindNumber, text: strconv.FormatFloat(rv.Float(), 'g', -1, 64), raw: v}
	case reflect.String:
		return Value{kind: KindText, text: rv.String(), raw: v}
	case reflect.Slice:
		if rv.Type().Elem().Kind() != reflect.Uint8 {
			break
		}
		if rv.IsNil() {
			return Value{kind: KindNull}
		}
		return Value{kind: KindBlob, blob: rv.Bytes(), raw: v}
	}
	return Value{kind: KindConverted, raw: v}
}

func (v Value) withRaw(raw any) Value {
	v.raw = raw
	return v
}

// Serialize converts v to SQL literal text using the SQLite dialect and the
// default converter registry. Errors (only possible in strict mode or from
// a failing converter) are dropped; use a Builder to observe them.
func Serialize(v any, innerParens, applyConversion bool) string {
	b := defaultConfig().builder()
	b.Value(ValueOf(v), innerParens, applyConversion)
	return b.String()
}

// Value writes the SQL literal form of v.
//
// When applyConversion is set and a converter is registered for the Go type
// of the value, the converted storage value is written instead. Nested
// statements are wrapped in parentheses iff innerParens is set.
func (b *Builder) Value(v Value, innerParens, applyConversion bool) *Builder {
	if applyConversion && v.raw != nil && v.kind != KindPlaceholder {
		if c, ok := b.conv.Lookup(reflect.TypeOf(v.raw)); ok {
			s, err := c.ToStorage(v.raw)
			if err != nil {
				b.AddError(fmt.Errorf("sql: converting %T: %w", v.raw, err))
				return b.WriteString("NULL")
			}
			return b.Value(ValueOf(s), innerParens, false)
		}
	}
	switch v.kind {
	case KindNull:
		b.WriteString("NULL")
	case KindNumber, KindPlaceholder:
		b.WriteString(v.text)
	case KindText:
		b.WriteString(b.escape(v.text))
	case KindBlob:
		b.WriteString("X" + b.escape(strings.ToUpper(hex.EncodeToString(v.blob))))
	case KindExpr:
		b.Expr(v.expr)
	case KindQuery:
		if innerParens {
			b.Wrap(func(b *Builder) { b.writeQuery(v.query) })
		} else {
			b.writeQuery(v.query)
		}
	case KindConverted:
		b.degraded(v.raw, innerParens)
	}
	return b
}

// degraded writes a value that has no converter and no primitive shape.
// driver.Valuer implementations are honored; anything else is stringified.
func (b *Builder) degraded(raw any, innerParens bool) {
	if dv, ok := raw.(driver.Valuer); ok {
		if s, err := dv.Value(); err == nil {
			b.Value(ValueOf(s), innerParens, false)
			return
		}
	}
	if b.strict {
		b.AddError(NewMisuseError("serialize", fmt.Sprintf("no converter registered for %T", raw)))
	} else {
		b.log().Warn("sql: serializing value without a converter", "type", fmt.Sprintf("%T", raw))
	}
	b.WriteString(b.escape(fmt.Sprint(raw)))
}

// escape quotes s as a SQL string literal for the builder dialect.
func (b *Builder) escape(s string) string {
	if b.dialect == dialect.MySQL {
		return "'" + escapeStringValue(s) + "'"
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Lit returns an expression that writes v as a literal.
func Lit(v any) Expr {
	val := ValueOf(v)
	return ExprFunc(func(b *Builder) {
		b.Value(val, true, true)
	})
}

// escapeStringValue escapes a string value for MySQL, where backslash is an
// escape character inside string literals.
func escapeStringValue(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", "''")
}

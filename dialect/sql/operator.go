package sql

import (
	"fmt"
	"reflect"
)

// Comparison and test operators.
const (
	OpEQ        = "="
	OpNEQ       = "!="
	OpGT        = ">"
	OpGTE       = ">="
	OpLT        = "<"
	OpLTE       = "<="
	OpLike      = "LIKE"
	OpNotLike   = "NOT LIKE"
	OpGlob      = "GLOB"
	OpNotGlob   = "NOT GLOB"
	OpMatch     = "MATCH"
	OpIsNull    = "IS NULL"
	OpIsNotNull = "IS NOT NULL"
	OpBetween   = "BETWEEN"
	OpIn        = "IN"
	OpNotIn     = "NOT IN"
)

// Condition is a predicate that can be placed in WHERE, HAVING, ON, WHEN
// and SET lists.
type Condition interface {
	Expr
}

// ColumnCondition is a condition over a single left-hand expression.
type ColumnCondition interface {
	Condition
	// Column returns the left-hand side.
	Column() Expr
	// Operation returns the operator symbol.
	Operation() string
	// Value returns the right-hand value and whether one was set.
	Value() (Value, bool)
}

// Operator is a single predicate: left OP [value] [postfix].
//
// Whether a right-hand value is present is tracked explicitly, so that
// EQ(nil) writes "= NULL" and IsNull writes no value at all.
type Operator struct {
	left     Expr
	op       string
	value    Value
	hasValue bool
	postfix  string
	noConv   bool
	// concat is "||" or "+" once Concatenate was applied.
	concat string
}

// Op starts an operator on the given left-hand expression.
func Op(left Expr) *Operator {
	return &Operator{left: left}
}

func (o *Operator) set(op string, v any) *Operator {
	o.op, o.value, o.hasValue, o.concat = op, ValueOf(v), true, ""
	return o
}

// EQ sets the "=" operator.
func (o *Operator) EQ(v any) *Operator { return o.set(OpEQ, v) }

// Is is an alias for EQ.
func (o *Operator) Is(v any) *Operator { return o.set(OpEQ, v) }

// NEQ sets the "!=" operator.
func (o *Operator) NEQ(v any) *Operator { return o.set(OpNEQ, v) }

// IsNot is an alias for NEQ.
func (o *Operator) IsNot(v any) *Operator { return o.set(OpNEQ, v) }

// GT sets the ">" operator.
func (o *Operator) GT(v any) *Operator { return o.set(OpGT, v) }

// GTE sets the ">=" operator.
func (o *Operator) GTE(v any) *Operator { return o.set(OpGTE, v) }

// LT sets the "<" operator.
func (o *Operator) LT(v any) *Operator { return o.set(OpLT, v) }

// LTE sets the "<=" operator.
func (o *Operator) LTE(v any) *Operator { return o.set(OpLTE, v) }

// Like sets the LIKE operator.
func (o *Operator) Like(v any) *Operator { return o.set(OpLike, v) }

// NotLike sets the NOT LIKE operator.
func (o *Operator) NotLike(v any) *Operator { return o.set(OpNotLike, v) }

// Glob sets the GLOB operator.
func (o *Operator) Glob(v any) *Operator { return o.set(OpGlob, v) }

// NotGlob sets the NOT GLOB operator.
func (o *Operator) NotGlob(v any) *Operator { return o.set(OpNotGlob, v) }

// Match sets the full-text MATCH operator.
func (o *Operator) Match(v any) *Operator { return o.set(OpMatch, v) }

// IsNull turns the operator into an IS NULL test and drops any value.
func (o *Operator) IsNull() *Operator {
	o.op, o.value, o.hasValue, o.concat = OpIsNull, Value{}, false, ""
	return o
}

// IsNotNull turns the operator into an IS NOT NULL test and drops any value.
func (o *Operator) IsNotNull() *Operator {
	o.op, o.value, o.hasValue, o.concat = OpIsNotNull, Value{}, false, ""
	return o
}

// Collate appends a COLLATE directive.
func (o *Operator) Collate(name string) *Operator {
	o.postfix = "COLLATE " + name
	return o
}

// Postfix appends arbitrary text after the value.
func (o *Operator) Postfix(s string) *Operator {
	o.postfix = s
	return o
}

// NoConversion disables type conversion of the right-hand value.
func (o *Operator) NoConversion() *Operator {
	o.noConv = true
	return o
}

// Concatenate turns the operator into an in-place update "c = c || v" for
// text values or "c = c + v" for numbers. The choice is made on the value
// after conversion with DefaultConverters, not the registry of the statement
// the operator is rendered in: a type only a custom registry converts is
// rejected. Booleans and other value kinds are rejected.
func (o *Operator) Concatenate(v any) (*Operator, error) {
	val := ValueOf(v)
	if !o.noConv && val.raw != nil {
		if c, ok := DefaultConverters().Lookup(reflect.TypeOf(val.raw)); ok {
			s, err := c.ToStorage(val.raw)
			if err != nil {
				return nil, fmt.Errorf("sql: concatenate: %w", err)
			}
			val = ValueOf(s)
		}
	}
	switch val.kind {
	case KindText, KindPlaceholder:
		o.concat = "||"
	case KindNumber:
		if reflect.ValueOf(val.raw).Kind() == reflect.Bool {
			return nil, NewMisuseError("concatenate", fmt.Sprintf("unsupported boolean value of type %T", v))
		}
		o.concat = "+"
	default:
		return nil, NewMisuseError("concatenate", fmt.Sprintf("unsupported value %s of type %T", val.kind, v))
	}
	o.op, o.value, o.hasValue = OpEQ, val, true
	return o, nil
}

// Between starts a BETWEEN predicate with the lower bound v.
// The upper bound is set with And.
func (o *Operator) Between(v any) *Between {
	return &Between{op: o, lower: ValueOf(v)}
}

// In returns a "left IN (v1,v2,...)" predicate.
func (o *Operator) In(vs ...any) *In {
	return &In{op: o, values: valuesOf(vs)}
}

// NotIn returns a "left NOT IN (v1,v2,...)" predicate.
func (o *Operator) NotIn(vs ...any) *In {
	return &In{op: o, not: true, values: valuesOf(vs)}
}

// Column implements ColumnCondition.
func (o *Operator) Column() Expr { return o.left }

// Operation implements ColumnCondition.
func (o *Operator) Operation() string { return o.op }

// Value implements ColumnCondition.
func (o *Operator) Value() (Value, bool) { return o.value, o.hasValue }

// WriteSQL implements Expr.
func (o *Operator) WriteSQL(b *Builder) {
	b.Ref(o.left)
	if o.op != "" {
		b.Byte(' ').WriteString(o.op)
	}
	if o.concat != "" {
		b.Byte(' ').Ref(o.left).Byte(' ').WriteString(o.concat)
	}
	if o.hasValue {
		b.Byte(' ').Value(o.value, true, !o.noConv)
	}
	o.writePostfix(b)
}

func (o *Operator) writePostfix(b *Builder) {
	if o.postfix != "" {
		b.Byte(' ').WriteString(o.postfix)
	}
}

// Between is a "left BETWEEN lower AND upper" predicate.
type Between struct {
	op       *Operator
	lower    Value
	upper    Value
	hasUpper bool
}

// And sets the upper bound.
func (bt *Between) And(v any) *Between {
	bt.upper, bt.hasUpper = ValueOf(v), true
	return bt
}

// Column implements ColumnCondition.
func (bt *Between) Column() Expr { return bt.op.left }

// Operation implements ColumnCondition.
func (bt *Between) Operation() string { return OpBetween }

// Value returns the lower bound.
func (bt *Between) Value() (Value, bool) { return bt.lower, true }

// Upper returns the upper bound.
func (bt *Between) Upper() (Value, bool) { return bt.upper, bt.hasUpper }

// WriteSQL implements Expr.
func (bt *Between) WriteSQL(b *Builder) {
	if !bt.hasUpper {
		b.AddError(NewMisuseError("between", "missing upper bound"))
	}
	conv := !bt.op.noConv
	b.Ref(bt.op.left).WriteString(" BETWEEN ").Value(bt.lower, true, conv).
		WriteString(" AND ").Value(bt.upper, true, conv)
	bt.op.writePostfix(b)
}

// In is a "left [NOT] IN (v1,v2,...)" predicate.
type In struct {
	op     *Operator
	not    bool
	values []Value
}

// And appends a value to the list.
func (in *In) And(v any) *In {
	in.values = append(in.values, ValueOf(v))
	return in
}

// Column implements ColumnCondition.
func (in *In) Column() Expr { return in.op.left }

// Operation implements ColumnCondition.
func (in *In) Operation() string {
	if in.not {
		return OpNotIn
	}
	return OpIn
}

// Value returns the first value of the list.
func (in *In) Value() (Value, bool) {
	if len(in.values) == 0 {
		return Value{}, false
	}
	return in.values[0], true
}

// Values returns all values of the list.
func (in *In) Values() []Value { return in.values }

// WriteSQL implements Expr.
func (in *In) WriteSQL(b *Builder) {
	if len(in.values) == 0 {
		b.AddError(NewMisuseError(in.Operation(), "empty value list"))
	}
	b.Ref(in.op.left).Byte(' ').WriteString(in.Operation()).WriteString(" (")
	for i, v := range in.values {
		if i > 0 {
			b.Byte(',')
		}
		b.Value(v, false, !in.op.noConv)
	}
	b.Byte(')')
	in.op.writePostfix(b)
}

func valuesOf(vs []any) []Value {
	values := make([]Value, len(vs))
	for i, v := range vs {
		values[i] = ValueOf(v)
	}
	return values
}

// Operator shortcuts on column references.

// EQ returns "n = v".
func (n NameAlias) EQ(v any) *Operator { return Op(n).EQ(v) }

// NEQ returns "n != v".
func (n NameAlias) NEQ(v any) *Operator { return Op(n).NEQ(v) }

// GT returns "n > v".
func (n NameAlias) GT(v any) *Operator { return Op(n).GT(v) }

// GTE returns "n >= v".
func (n NameAlias) GTE(v any) *Operator { return Op(n).GTE(v) }

// LT returns "n < v".
func (n NameAlias) LT(v any) *Operator { return Op(n).LT(v) }

// LTE returns "n <= v".
func (n NameAlias) LTE(v any) *Operator { return Op(n).LTE(v) }

// Like returns "n LIKE v".
func (n NameAlias) Like(v any) *Operator { return Op(n).Like(v) }

// Glob returns "n GLOB v".
func (n NameAlias) Glob(v any) *Operator { return Op(n).Glob(v) }

// IsNull returns "n IS NULL".
func (n NameAlias) IsNull() *Operator { return Op(n).IsNull() }

// IsNotNull returns "n IS NOT NULL".
func (n NameAlias) IsNotNull() *Operator { return Op(n).IsNotNull() }

// In returns "n IN (vs...)".
func (n NameAlias) In(vs ...any) *In { return Op(n).In(vs...) }

// NotIn returns "n NOT IN (vs...)".
func (n NameAlias) NotIn(vs ...any) *In { return Op(n).NotIn(vs...) }

// Between returns "n BETWEEN v AND ...".
func (n NameAlias) Between(v any) *Between { return Op(n).Between(v) }

var (
	_ ColumnCondition = (*Operator)(nil)
	_ ColumnCondition = (*Between)(nil)
	_ ColumnCondition = (*In)(nil)
)

package sql

// Method is a SQL function call such as COUNT("id") or DATE("created").
// It can be selected, grouped, ordered by and compared with Op.
type Method struct {
	name  string
	args  []Expr
	alias string
}

// Fn returns a call of the named function with the given arguments.
// Arguments that are not expressions are written as literals.
func Fn(name string, args ...any) *Method {
	m := &Method{name: name}
	for _, a := range args {
		switch a := a.(type) {
		case Expr:
			m.args = append(m.args, a)
		default:
			m.args = append(m.args, Lit(a))
		}
	}
	return m
}

// Count returns COUNT(e...). Without arguments it counts rows: COUNT(*).
func Count(exprs ...Expr) *Method {
	if len(exprs) == 0 {
		return &Method{name: "COUNT", args: []Expr{All}}
	}
	return &Method{name: "COUNT", args: exprs}
}

// Avg returns AVG(e).
func Avg(e Expr) *Method { return &Method{name: "AVG", args: []Expr{e}} }

// Max returns MAX(e...).
func Max(exprs ...Expr) *Method { return &Method{name: "MAX", args: exprs} }

// Min returns MIN(e...).
func Min(exprs ...Expr) *Method { return &Method{name: "MIN", args: exprs} }

// Sum returns SUM(e).
func Sum(e Expr) *Method { return &Method{name: "SUM", args: []Expr{e}} }

// Total returns TOTAL(e).
func Total(e Expr) *Method { return &Method{name: "TOTAL", args: []Expr{e}} }

// GroupConcat returns GROUP_CONCAT(e[, sep]).
func GroupConcat(e Expr, sep ...string) *Method {
	m := &Method{name: "GROUP_CONCAT", args: []Expr{e}}
	if len(sep) > 0 {
		m.args = append(m.args, Lit(sep[0]))
	}
	return m
}

// Date returns DATE(args...).
func Date(args ...any) *Method { return Fn("DATE", args...) }

// DateTime returns DATETIME(args...).
func DateTime(args ...any) *Method { return Fn("DATETIME", args...) }

// StrfTime returns STRFTIME(format, args...).
func StrfTime(format string, args ...any) *Method {
	return Fn("STRFTIME", append([]any{format}, args...)...)
}

// IfNull returns IFNULL(a, b).
func IfNull(a, b any) *Method { return Fn("IFNULL", a, b) }

// NullIf returns NULLIF(a, b).
func NullIf(a, b any) *Method { return Fn("NULLIF", a, b) }

// Replace returns REPLACE(e, find, replacement).
func Replace(e Expr, find, replacement string) *Method {
	return Fn("REPLACE", e, find, replacement)
}

// As returns a copy of the method with an output alias.
func (m *Method) As(alias string) *Method {
	c := *m
	c.alias = alias
	return &c
}

// Op starts a condition with the method on the left side.
func (m *Method) Op() *Operator { return Op(m) }

// WriteSQL implements Expr.
func (m *Method) WriteSQL(b *Builder) {
	m.writeRef(b)
	if m.alias != "" {
		b.WriteString(" AS ").Ident(m.alias)
	}
}

func (m *Method) writeRef(b *Builder) {
	b.WriteString(m.name).Byte('(')
	for i, a := range m.args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ref(a)
	}
	b.Byte(')')
}

// CastExpr is a CAST(e AS type) expression.
type CastExpr struct {
	e     Expr
	typ   string
	alias string
}

// Cast starts a CAST of e. The target type is set with As.
func Cast(e Expr) *CastExpr { return &CastExpr{e: e} }

// As sets the target type.
func (c *CastExpr) As(typ string) *CastExpr {
	c.typ = typ
	return c
}

// Alias sets the output alias.
func (c *CastExpr) Alias(alias string) *CastExpr {
	c.alias = alias
	return c
}

// Op starts a condition with the cast on the left side.
func (c *CastExpr) Op() *Operator { return Op(c) }

// WriteSQL implements Expr.
func (c *CastExpr) WriteSQL(b *Builder) {
	c.writeRef(b)
	if c.alias != "" {
		b.WriteString(" AS ").Ident(c.alias)
	}
}

func (c *CastExpr) writeRef(b *Builder) {
	if c.typ == "" {
		b.AddError(NewMisuseError("CAST", "missing target type"))
	}
	b.WriteString("CAST(").Ref(c.e).WriteString(" AS ").WriteString(c.typ).Byte(')')
}

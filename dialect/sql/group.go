package sql

import (
	"strings"
)

// Separators joining the members of an OperatorGroup.
const (
	SepAnd = "AND"
	SepOr  = "OR"
)

// OperatorGroup is an ordered list of conditions. Each member except the
// last carries the separator joining it to the next one; And and Or set
// the separator of the previously added member.
type OperatorGroup struct {
	conds  []groupEntry
	parens bool
	comma  bool
}

type groupEntry struct {
	cond Condition
	sep  string
}

// Clause returns a parenthesized group of the given conditions joined
// with AND.
//
//	Clause().And(a).And(b).Or(c) // (a AND b OR c)
func Clause(conds ...Condition) *OperatorGroup {
	return (&OperatorGroup{parens: true}).AndAll(conds...)
}

// NonGroupingClause is like Clause but never writes parentheses.
func NonGroupingClause(conds ...Condition) *OperatorGroup {
	return (&OperatorGroup{}).AndAll(conds...)
}

func (g *OperatorGroup) add(sep string, c Condition) *OperatorGroup {
	if c == nil {
		return g
	}
	if n := len(g.conds); n > 0 {
		g.conds[n-1].sep = sep
	}
	g.conds = append(g.conds, groupEntry{cond: c})
	return g
}

// And appends c, joining it to the previous member with AND.
func (g *OperatorGroup) And(c Condition) *OperatorGroup { return g.add(SepAnd, c) }

// Or appends c, joining it to the previous member with OR.
func (g *OperatorGroup) Or(c Condition) *OperatorGroup { return g.add(SepOr, c) }

// AndAll appends every condition with AND.
func (g *OperatorGroup) AndAll(conds ...Condition) *OperatorGroup {
	for _, c := range conds {
		g.add(SepAnd, c)
	}
	return g
}

// OrAll appends every condition with OR.
func (g *OperatorGroup) OrAll(conds ...Condition) *OperatorGroup {
	for _, c := range conds {
		g.add(SepOr, c)
	}
	return g
}

// Comma switches the group to comma-separated output, as used by SET
// lists. Member separators are ignored while it is set.
func (g *OperatorGroup) Comma() *OperatorGroup {
	g.comma = true
	return g
}

// Parens sets whether the group is wrapped in parentheses.
func (g *OperatorGroup) Parens(on bool) *OperatorGroup {
	g.parens = on
	return g
}

// Len returns the number of members.
func (g *OperatorGroup) Len() int { return len(g.conds) }

// Conditions returns the members in order.
func (g *OperatorGroup) Conditions() []Condition {
	conds := make([]Condition, len(g.conds))
	for i, e := range g.conds {
		conds[i] = e.cond
	}
	return conds
}

// WriteSQL implements Expr. Empty groups write nothing.
func (g *OperatorGroup) WriteSQL(b *Builder) {
	if len(g.conds) == 0 {
		return
	}
	if g.parens {
		b.Byte('(')
	}
	for i, e := range g.conds {
		b.Expr(e.cond)
		if i == len(g.conds)-1 {
			break
		}
		switch {
		case g.comma:
			b.WriteString(", ")
		case e.sep != "":
			b.Byte(' ').WriteString(e.sep).Byte(' ')
		default:
			b.WriteString(" AND ")
		}
	}
	if g.parens {
		b.Byte(')')
	}
}

// String returns the SQLite rendering of the group.
func (g *OperatorGroup) String() string {
	b := defaultConfig().builder()
	g.WriteSQL(b)
	return b.String()
}

// exists is an EXISTS (subquery) predicate.
type exists struct {
	not bool
	q   Querier
}

// Exists returns "EXISTS (q)".
func Exists(q Querier) Condition { return &exists{q: q} }

// NotExists returns "NOT EXISTS (q)".
func NotExists(q Querier) Condition { return &exists{not: true, q: q} }

func (e *exists) WriteSQL(b *Builder) {
	if e.not {
		b.WriteString("NOT ")
	}
	b.WriteString("EXISTS ")
	sub := b.clone()
	sub.writeQuery(e.q)
	b.AddError(sub.Err())
	b.Wrap(func(b *Builder) { b.WriteString(strings.TrimSpace(sub.String())) })
}

// RawCondition returns a condition written verbatim.
func RawCondition(text string) Condition {
	return ExprFunc(func(b *Builder) { b.WriteString(text) })
}

// Not returns "NOT c".
func Not(c Condition) Condition {
	return ExprFunc(func(b *Builder) {
		b.WriteString("NOT ").Expr(c)
	})
}

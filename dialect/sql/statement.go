package sql

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/syssam/sqlflow/dialect"
)

// StmtKind is the root keyword of a Statement.
type StmtKind uint8

// Statement roots.
const (
	SelectStmt StmtKind = iota + 1
	InsertStmt
	UpdateStmt
	DeleteStmt
)

func (k StmtKind) String() string {
	switch k {
	case SelectStmt:
		return "SELECT"
	case InsertStmt:
		return "INSERT"
	case UpdateStmt:
		return "UPDATE"
	case DeleteStmt:
		return "DELETE"
	}
	return "UNKNOWN"
}

// ConflictAction is the conflict-resolution algorithm of INSERT and UPDATE.
type ConflictAction string

// Conflict actions.
const (
	ConflictRollback ConflictAction = "ROLLBACK"
	ConflictAbort    ConflictAction = "ABORT"
	ConflictFail     ConflictAction = "FAIL"
	ConflictIgnore   ConflictAction = "IGNORE"
	ConflictReplace  ConflictAction = "REPLACE"
)

// JoinKind is the kind of a JOIN.
type JoinKind string

// Join kinds.
const (
	JoinInner     JoinKind = "INNER"
	JoinLeftOuter JoinKind = "LEFT OUTER"
	JoinOuter     JoinKind = "OUTER"
	JoinCross     JoinKind = "CROSS"
)

// clause identifies a statement slot for validation.
type clause uint16

const (
	clauseDistinct clause = 1 << iota
	clauseFrom
	clauseJoin
	clauseIndexedBy
	clauseSet
	clauseWhere
	clauseGroupBy
	clauseHaving
	clauseOrderBy
	clauseLimit
	clauseOffset
	clauseConflict
	clauseColumns
	clauseValues
	clauseFromSelect
)

var clauseNames = map[clause]string{
	clauseDistinct:   "DISTINCT",
	clauseFrom:       "FROM",
	clauseJoin:       "JOIN",
	clauseIndexedBy:  "INDEXED BY",
	clauseSet:        "SET",
	clauseWhere:      "WHERE",
	clauseGroupBy:    "GROUP BY",
	clauseHaving:     "HAVING",
	clauseOrderBy:    "ORDER BY",
	clauseLimit:      "LIMIT",
	clauseOffset:     "OFFSET",
	clauseConflict:   "OR <conflict>",
	clauseColumns:    "columns",
	clauseValues:     "VALUES",
	clauseFromSelect: "INSERT ... SELECT",
}

// allowed lists the clauses legal for each root.
var allowed = map[StmtKind]clause{
	SelectStmt: clauseDistinct | clauseFrom | clauseJoin | clauseIndexedBy | clauseWhere |
		clauseGroupBy | clauseHaving | clauseOrderBy | clauseLimit | clauseOffset,
	InsertStmt: clauseConflict | clauseColumns | clauseValues | clauseFromSelect,
	UpdateStmt: clauseConflict | clauseIndexedBy | clauseSet | clauseWhere |
		clauseOrderBy | clauseLimit | clauseOffset,
	DeleteStmt: clauseFrom | clauseIndexedBy | clauseWhere | clauseOrderBy | clauseLimit | clauseOffset,
}

type join struct {
	kind    JoinKind
	natural bool
	table   Expr
	on      *OperatorGroup
	using   []string
}

// OrderTerm is one ORDER BY entry.
type OrderTerm struct {
	expr    Expr
	dir     string
	collate string
}

// Asc orders by e ascending.
func Asc(e Expr) OrderTerm { return OrderTerm{expr: e, dir: "ASC"} }

// Desc orders by e descending.
func Desc(e Expr) OrderTerm { return OrderTerm{expr: e, dir: "DESC"} }

// OrderBy orders by e in the default direction.
func OrderBy(e Expr) OrderTerm { return OrderTerm{expr: e} }

// Collate returns a copy of the term with a COLLATE directive.
func (t OrderTerm) Collate(name string) OrderTerm {
	t.collate = name
	return t
}

// WriteSQL implements Expr.
func (t OrderTerm) WriteSQL(b *Builder) {
	b.Ref(t.expr)
	if t.collate != "" {
		b.WriteString(" COLLATE ").WriteString(t.collate)
	}
	if t.dir != "" {
		b.Byte(' ').WriteString(t.dir)
	}
}

// Asc orders by the column ascending.
func (n NameAlias) Asc() OrderTerm { return Asc(n) }

// Desc orders by the column descending.
func (n NameAlias) Desc() OrderTerm { return Desc(n) }

// plan is the clause slots of a statement. Slots are filled in any call
// order and written in canonical order.
type plan struct {
	kind      StmtKind
	used      clause
	distinct  bool
	columns   []Expr
	conflict  ConflictAction
	table     Expr
	joins     []*join
	indexedBy string
	set       *OperatorGroup
	where     *OperatorGroup
	groupBy   []Expr
	having    *OperatorGroup
	orderBy   []Expr
	limit     *int
	offset    *int
	insCols   []string
	values    [][]Value
	sub       Querier
}

// Statement builds a SELECT, INSERT, UPDATE or DELETE statement. It is a
// single-owner mutable builder; validation runs once when the statement
// is rendered.
type Statement struct {
	config
	plan
	errs []error
}

func newStatement(c config, kind StmtKind) *Statement {
	return &Statement{
		config: c,
		plan: plan{
			kind:   kind,
			where:  NonGroupingClause(),
			having: NonGroupingClause(),
			set:    NonGroupingClause().Comma(),
		},
	}
}

// Option configures a DialectBuilder.
type Option func(*config)

// WithConverters sets the converter registry used for value conversion.
func WithConverters(c *Converters) Option {
	return func(cfg *config) { cfg.conv = c }
}

// Strict makes values without a converter a rendering error instead of a
// logged best-effort stringification.
func Strict() Option {
	return func(cfg *config) { cfg.strict = true }
}

// WithLogger sets the logger for serialization warnings.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) { cfg.logger = l }
}

// DialectBuilder creates statements sharing a dialect and its settings.
type DialectBuilder struct {
	config
}

// Dialect returns a DialectBuilder for the given dialect.
//
//	d := sql.Dialect(dialect.MySQL, sql.Strict())
//	q, err := d.Select("id").From(sql.Table("users")).Query()
func Dialect(name string, opts ...Option) *DialectBuilder {
	c := defaultConfig()
	c.dialect = name
	for _, opt := range opts {
		opt(&c)
	}
	return &DialectBuilder{config: c}
}

// Builder returns a low-level Builder for the dialect.
func (d *DialectBuilder) Builder() *Builder { return d.builder() }

// Select starts a SELECT of the given columns. No columns selects "*".
func (d *DialectBuilder) Select(columns ...string) *Statement {
	return newStatement(d.config, SelectStmt).columnsOf(columns)
}

// SelectExpr starts a SELECT of the given expressions.
func (d *DialectBuilder) SelectExpr(exprs ...Expr) *Statement {
	s := newStatement(d.config, SelectStmt)
	s.columns = exprs
	return s
}

// SelectDistinct starts a SELECT DISTINCT of the given columns.
func (d *DialectBuilder) SelectDistinct(columns ...string) *Statement {
	return d.Select(columns...).Distinct()
}

// Insert starts an INSERT INTO table.
func (d *DialectBuilder) Insert(table string) *Statement {
	s := newStatement(d.config, InsertStmt)
	s.table = Table(table)
	return s
}

// Update starts an UPDATE of table.
func (d *DialectBuilder) Update(table string) *Statement {
	s := newStatement(d.config, UpdateStmt)
	s.table = Table(table)
	return s
}

// Delete starts a DELETE. The table is set with From.
func (d *DialectBuilder) Delete() *Statement {
	return newStatement(d.config, DeleteStmt)
}

var sqlite = &DialectBuilder{config: defaultConfig()}

// Select starts a SELECT using the SQLite dialect.
func Select(columns ...string) *Statement { return sqlite.Select(columns...) }

// SelectExpr starts a SELECT of expressions using the SQLite dialect.
func SelectExpr(exprs ...Expr) *Statement { return sqlite.SelectExpr(exprs...) }

// SelectDistinct starts a SELECT DISTINCT using the SQLite dialect.
func SelectDistinct(columns ...string) *Statement { return sqlite.SelectDistinct(columns...) }

// Insert starts an INSERT using the SQLite dialect.
func Insert(table string) *Statement { return sqlite.Insert(table) }

// Update starts an UPDATE using the SQLite dialect.
func Update(table string) *Statement { return sqlite.Update(table) }

// Delete starts a DELETE using the SQLite dialect.
func Delete() *Statement { return sqlite.Delete() }

func (s *Statement) columnsOf(columns []string) *Statement {
	for _, c := range columns {
		s.columns = append(s.columns, C(c))
	}
	return s
}

func (s *Statement) use(c clause) {
	s.used |= c
}

func (s *Statement) misuse(op, reason string) {
	s.errs = append(s.errs, NewMisuseError(op, reason))
}

// RootKind returns the root keyword of the statement.
func (s *Statement) RootKind() StmtKind { return s.kind }

// Distinct marks a SELECT as DISTINCT.
func (s *Statement) Distinct() *Statement {
	s.use(clauseDistinct)
	s.distinct = true
	return s
}

// From sets the table (or sub-query) the statement reads or deletes from.
func (s *Statement) From(t Expr) *Statement {
	s.use(clauseFrom)
	s.table = t
	return s
}

// Table returns the table target of the statement.
func (s *Statement) Table() Expr { return s.table }

func (s *Statement) addJoin(kind JoinKind, natural bool, t Expr) *Statement {
	s.use(clauseJoin)
	s.joins = append(s.joins, &join{kind: kind, natural: natural, table: t})
	return s
}

// Join adds an INNER JOIN.
func (s *Statement) Join(t Expr) *Statement { return s.addJoin(JoinInner, false, t) }

// InnerJoin is an alias for Join.
func (s *Statement) InnerJoin(t Expr) *Statement { return s.addJoin(JoinInner, false, t) }

// LeftJoin adds a LEFT OUTER JOIN.
func (s *Statement) LeftJoin(t Expr) *Statement { return s.addJoin(JoinLeftOuter, false, t) }

// LeftOuterJoin is an alias for LeftJoin.
func (s *Statement) LeftOuterJoin(t Expr) *Statement { return s.addJoin(JoinLeftOuter, false, t) }

// OuterJoin adds an OUTER JOIN.
func (s *Statement) OuterJoin(t Expr) *Statement { return s.addJoin(JoinOuter, false, t) }

// CrossJoin adds a CROSS JOIN.
func (s *Statement) CrossJoin(t Expr) *Statement { return s.addJoin(JoinCross, false, t) }

// NaturalJoin adds a NATURAL join of the given kind.
func (s *Statement) NaturalJoin(kind JoinKind, t Expr) *Statement { return s.addJoin(kind, true, t) }

func (s *Statement) lastJoin(op string) *join {
	if len(s.joins) == 0 {
		s.misuse(op, "no JOIN to attach to")
		return nil
	}
	return s.joins[len(s.joins)-1]
}

// On adds conditions to the ON clause of the last join.
func (s *Statement) On(conds ...Condition) *Statement {
	if j := s.lastJoin("ON"); j != nil {
		if j.on == nil {
			j.on = NonGroupingClause()
		}
		j.on.AndAll(conds...)
	}
	return s
}

// Using sets the USING column list of the last join.
func (s *Statement) Using(columns ...string) *Statement {
	if j := s.lastJoin("USING"); j != nil {
		j.using = append(j.using, columns...)
	}
	return s
}

// IndexedBy forces the index used to read the table.
func (s *Statement) IndexedBy(index string) *Statement {
	s.use(clauseIndexedBy)
	s.indexedBy = index
	return s
}

// Set adds assignments to the SET list of an UPDATE.
//
//	Update("users").Set(C("name").EQ("a8m"), C("age").EQ(30))
func (s *Statement) Set(conds ...Condition) *Statement {
	s.use(clauseSet)
	s.set.AndAll(conds...)
	return s
}

// SetValue adds "column = v" to the SET list.
func (s *Statement) SetValue(column string, v any) *Statement {
	return s.Set(C(column).EQ(v))
}

// Where adds conditions to the WHERE clause joined with AND.
func (s *Statement) Where(conds ...Condition) *Statement {
	s.use(clauseWhere)
	s.where.AndAll(conds...)
	return s
}

// And adds c to the WHERE clause joined with AND.
func (s *Statement) And(c Condition) *Statement {
	s.use(clauseWhere)
	s.where.And(c)
	return s
}

// Or adds c to the WHERE clause joined with OR.
func (s *Statement) Or(c Condition) *Statement {
	s.use(clauseWhere)
	s.where.Or(c)
	return s
}

// GroupBy adds columns to the GROUP BY list.
func (s *Statement) GroupBy(columns ...string) *Statement {
	for _, c := range columns {
		s.GroupByExpr(C(c))
	}
	return s
}

// GroupByExpr adds expressions to the GROUP BY list.
func (s *Statement) GroupByExpr(exprs ...Expr) *Statement {
	s.use(clauseGroupBy)
	s.groupBy = append(s.groupBy, exprs...)
	return s
}

// Having adds conditions to the HAVING clause joined with AND.
func (s *Statement) Having(conds ...Condition) *Statement {
	s.use(clauseHaving)
	s.having.AndAll(conds...)
	return s
}

// OrderBy adds terms to the ORDER BY list.
func (s *Statement) OrderBy(terms ...OrderTerm) *Statement {
	s.use(clauseOrderBy)
	for _, t := range terms {
		s.orderBy = append(s.orderBy, t)
	}
	return s
}

// OrderByRaw adds a verbatim ORDER BY entry.
func (s *Statement) OrderByRaw(text string) *Statement {
	s.use(clauseOrderBy)
	s.orderBy = append(s.orderBy, Raw(text))
	return s
}

// Limit sets the LIMIT.
func (s *Statement) Limit(n int) *Statement {
	s.use(clauseLimit)
	s.limit = &n
	return s
}

// Offset sets the OFFSET.
func (s *Statement) Offset(n int) *Statement {
	s.use(clauseOffset)
	s.offset = &n
	return s
}

// OnConflict sets the conflict-resolution algorithm of INSERT or UPDATE.
func (s *Statement) OnConflict(a ConflictAction) *Statement {
	s.use(clauseConflict)
	s.conflict = a
	return s
}

// OrReplace is shorthand for OnConflict(ConflictReplace).
func (s *Statement) OrReplace() *Statement { return s.OnConflict(ConflictReplace) }

// OrIgnore is shorthand for OnConflict(ConflictIgnore).
func (s *Statement) OrIgnore() *Statement { return s.OnConflict(ConflictIgnore) }

// Columns sets the INSERT column list.
func (s *Statement) Columns(columns ...string) *Statement {
	s.use(clauseColumns)
	s.insCols = append(s.insCols, columns...)
	return s
}

// Values appends one row of INSERT values.
func (s *Statement) Values(vs ...any) *Statement {
	s.use(clauseValues)
	s.values = append(s.values, valuesOf(vs))
	return s
}

// FromSelect makes an INSERT read its rows from q instead of VALUES.
func (s *Statement) FromSelect(q Querier) *Statement {
	s.use(clauseFromSelect)
	s.sub = q
	return s
}

// validate reports every structural error of the plan.
func (s *Statement) validate() []error {
	errs := append([]error(nil), s.errs...)
	if bad := s.used &^ allowed[s.kind]; bad != 0 {
		for c := clause(1); c != 0 && c <= bad; c <<= 1 {
			if bad&c != 0 {
				errs = append(errs, NewMisuseError(clauseNames[c], fmt.Sprintf("not valid in %s statement", s.kind)))
			}
		}
	}
	if s.having.Len() > 0 && len(s.groupBy) == 0 {
		errs = append(errs, NewMisuseError("HAVING", "requires GROUP BY"))
	}
	if s.indexedBy != "" && len(s.joins) > 0 {
		errs = append(errs, NewMisuseError("INDEXED BY", "cannot be combined with JOIN"))
	}
	if s.kind != SelectStmt && s.table == nil {
		errs = append(errs, NewMisuseError(s.kind.String(), "missing table"))
	}
	switch s.kind {
	case UpdateStmt:
		if s.set.Len() == 0 {
			errs = append(errs, NewMisuseError("UPDATE", "empty SET list"))
		}
	case InsertStmt:
		errs = append(errs, s.validateInsert()...)
	}
	return errs
}

func (s *Statement) validateInsert() []error {
	if s.sub != nil {
		if len(s.values) > 0 {
			return []error{NewMisuseError("INSERT", "VALUES cannot be combined with a SELECT source")}
		}
		return nil
	}
	if len(s.values) == 0 {
		return []error{NewMisuseError("INSERT", "at least one row of values is required")}
	}
	arity := len(s.insCols)
	if arity == 0 {
		arity = len(s.values[0])
	}
	var errs []error
	for i, row := range s.values {
		if len(row) != arity {
			errs = append(errs, NewMisuseError("INSERT", fmt.Sprintf("row %d has %d values, expected %d", i, len(row), arity)))
		}
	}
	return errs
}

// Query renders the statement and returns the SQL text, or the joined
// misuse and conversion errors found while building it.
func (s *Statement) Query() (string, error) {
	b := s.builder()
	s.WriteSQL(b)
	return b.String(), b.Err()
}

// String renders the statement, ignoring errors.
func (s *Statement) String() string {
	q, _ := s.Query()
	return q
}

// WriteSQL implements Expr, so statements can be nested as sub-queries.
func (s *Statement) WriteSQL(b *Builder) {
	for _, err := range s.validate() {
		b.AddError(err)
	}
	switch s.kind {
	case SelectStmt:
		s.writeSelect(b)
	case InsertStmt:
		s.writeInsert(b)
	case UpdateStmt:
		s.writeUpdate(b)
	case DeleteStmt:
		s.writeDelete(b)
	}
}

func (s *Statement) writeSelect(b *Builder) {
	b.WriteString("SELECT ")
	if s.distinct {
		b.WriteString("DISTINCT ")
	}
	if len(s.columns) == 0 {
		b.Byte('*')
	} else {
		b.JoinExpr(", ", s.columns...)
	}
	if s.table != nil {
		b.WriteString(" FROM ")
		s.writeTable(b)
	}
	s.writeJoins(b)
	s.writeWhere(b)
	if len(s.groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		for i, e := range s.groupBy {
			if i > 0 {
				b.WriteString(", ")
			}
			b.Ref(e)
		}
	}
	if s.having.Len() > 0 {
		b.WriteString(" HAVING ").Expr(s.having)
	}
	s.writeTail(b)
}

func (s *Statement) writeTable(b *Builder) {
	b.Expr(s.table)
	if s.indexedBy != "" {
		b.WriteString(" INDEXED BY ").Ident(s.indexedBy)
	}
}

func (s *Statement) writeJoins(b *Builder) {
	for _, j := range s.joins {
		b.Byte(' ')
		if j.natural {
			b.WriteString("NATURAL ")
		}
		b.WriteString(string(j.kind)).WriteString(" JOIN ").Expr(j.table)
		if j.on != nil && j.on.Len() > 0 {
			b.WriteString(" ON ").Expr(j.on)
		}
		if len(j.using) > 0 {
			b.WriteString(" USING (")
			for i, c := range j.using {
				if i > 0 {
					b.WriteString(", ")
				}
				b.Ident(c)
			}
			b.Byte(')')
		}
	}
}

func (s *Statement) writeWhere(b *Builder) {
	if s.where.Len() > 0 {
		b.WriteString(" WHERE ").Expr(s.where)
	}
}

// writeTail writes ORDER BY, LIMIT and OFFSET.
func (s *Statement) writeTail(b *Builder) {
	if len(s.orderBy) > 0 {
		b.WriteString(" ORDER BY ").JoinExpr(", ", s.orderBy...)
	}
	switch {
	case s.limit != nil:
		b.WriteString(" LIMIT ").WriteString(strconv.Itoa(*s.limit))
	case s.offset != nil && b.Dialect() == dialect.MySQL:
		b.WriteString(" LIMIT 18446744073709551615")
	case s.offset != nil && b.Dialect() != dialect.Postgres:
		b.WriteString(" LIMIT -1")
	}
	if s.offset != nil {
		b.WriteString(" OFFSET ").WriteString(strconv.Itoa(*s.offset))
	}
}

// writeConflict writes the conflict clause after the root keyword.
func (s *Statement) writeConflict(b *Builder) {
	if s.conflict == "" {
		return
	}
	switch b.Dialect() {
	case dialect.MySQL:
		if s.kind == InsertStmt && s.conflict == ConflictIgnore {
			b.WriteString(" IGNORE")
			return
		}
		b.AddError(NewMisuseError("OR "+string(s.conflict), "not supported by mysql"))
	case dialect.Postgres:
		b.AddError(NewMisuseError("OR "+string(s.conflict), "not supported by postgres"))
	default:
		b.WriteString(" OR ").WriteString(string(s.conflict))
	}
}

func (s *Statement) writeInsert(b *Builder) {
	if b.Dialect() == dialect.MySQL && s.conflict == ConflictReplace {
		b.WriteString("REPLACE")
	} else {
		b.WriteString("INSERT")
		s.writeConflict(b)
	}
	b.WriteString(" INTO ").Expr(s.table)
	if len(s.insCols) > 0 {
		b.WriteString(" (")
		for i, c := range s.insCols {
			if i > 0 {
				b.WriteString(", ")
			}
			b.Ident(c)
		}
		b.Byte(')')
	}
	if s.sub != nil {
		b.Byte(' ').writeQuery(s.sub)
		return
	}
	b.WriteString(" VALUES ")
	for i, row := range s.values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Byte('(')
		for j, v := range row {
			if j > 0 {
				b.WriteString(", ")
			}
			b.Value(v, true, true)
		}
		b.Byte(')')
	}
}

func (s *Statement) writeUpdate(b *Builder) {
	b.WriteString("UPDATE")
	s.writeConflict(b)
	b.Byte(' ')
	s.writeTable(b)
	b.WriteString(" SET ").Expr(s.set)
	s.writeWhere(b)
	s.writeTail(b)
}

func (s *Statement) writeDelete(b *Builder) {
	b.WriteString("DELETE FROM ")
	s.writeTable(b)
	s.writeWhere(b)
	s.writeTail(b)
}

// SubSelect is a sub-query used as a table.
type SubSelect struct {
	q     Querier
	alias string
}

// SubQuery wraps q so it can be used as a FROM or JOIN target.
func SubQuery(q Querier) *SubSelect { return &SubSelect{q: q} }

// As sets the alias of the sub-query.
func (s *SubSelect) As(alias string) *SubSelect {
	s.alias = alias
	return s
}

// C returns a column qualified by the sub-query alias.
func (s *SubSelect) C(column string) NameAlias {
	return NameAlias{name: column, table: s.alias}
}

// WriteSQL implements Expr.
func (s *SubSelect) WriteSQL(b *Builder) {
	b.Wrap(func(b *Builder) { b.writeQuery(s.q) })
	if s.alias != "" {
		b.WriteString(" AS ").Ident(s.alias)
	}
}

// Trimmed returns the text of q with surrounding whitespace removed.
func Trimmed(q Querier) (string, error) {
	text, err := q.Query()
	return strings.TrimSpace(text), err
}

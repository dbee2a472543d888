package sql

import (
	"context"

	"github.com/syssam/sqlflow/dialect"
)

// IndexBuilder builds CREATE INDEX and DROP INDEX statements.
type IndexBuilder struct {
	config
	name    string
	unique  bool
	table   string
	columns []string
	where   *OperatorGroup
}

// CreateIndex starts an index definition using the SQLite dialect.
func CreateIndex(name string) *IndexBuilder { return sqlite.CreateIndex(name) }

// CreateIndex starts an index definition.
func (d *DialectBuilder) CreateIndex(name string) *IndexBuilder {
	return &IndexBuilder{config: d.config, name: name, where: NonGroupingClause()}
}

// Unique makes the index UNIQUE.
func (i *IndexBuilder) Unique() *IndexBuilder {
	i.unique = true
	return i
}

// On sets the indexed table and columns.
func (i *IndexBuilder) On(table string, columns ...string) *IndexBuilder {
	i.table = table
	i.columns = append(i.columns, columns...)
	return i
}

// Where makes the index partial.
func (i *IndexBuilder) Where(conds ...Condition) *IndexBuilder {
	i.where.AndAll(conds...)
	return i
}

// Name returns the index name.
func (i *IndexBuilder) Name() string { return i.name }

// Query returns the CREATE INDEX statement.
func (i *IndexBuilder) Query() (string, error) {
	b := i.builder()
	i.WriteSQL(b)
	return b.String(), b.Err()
}

// WriteSQL implements Expr.
func (i *IndexBuilder) WriteSQL(b *Builder) {
	if i.table == "" || len(i.columns) == 0 {
		b.AddError(NewMisuseError("CREATE INDEX", "missing table or columns"))
	}
	b.WriteString("CREATE ")
	if i.unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX IF NOT EXISTS ").Ident(i.name).WriteString(" ON ").Ident(i.table).Byte('(')
	for j, c := range i.columns {
		if j > 0 {
			b.WriteString(", ")
		}
		b.Ident(c)
	}
	b.Byte(')')
	if i.where.Len() > 0 {
		b.WriteString(" WHERE ").Expr(i.where)
	}
}

// Drop returns the DROP INDEX statement for the index.
func (i *IndexBuilder) Drop() Querier {
	return &dropStmt{config: i.config, kind: "INDEX", name: i.name}
}

// Enable creates the index.
func (i *IndexBuilder) Enable(ctx context.Context, ex dialect.ExecQuerier) error {
	_, err := Exec(ctx, ex, i)
	return err
}

// Disable drops the index.
func (i *IndexBuilder) Disable(ctx context.Context, ex dialect.ExecQuerier) error {
	_, err := Exec(ctx, ex, i.Drop())
	return err
}

// DropIndex returns a DROP INDEX IF EXISTS statement using the SQLite dialect.
func DropIndex(name string) Querier {
	return &dropStmt{config: defaultConfig(), kind: "INDEX", name: name}
}

// DropTrigger returns a DROP TRIGGER IF EXISTS statement using the SQLite
// dialect.
func DropTrigger(name string) Querier {
	return &dropStmt{config: defaultConfig(), kind: "TRIGGER", name: name}
}

type dropStmt struct {
	config
	kind string
	name string
}

func (d *dropStmt) Query() (string, error) {
	b := d.builder()
	d.WriteSQL(b)
	return b.String(), b.Err()
}

func (d *dropStmt) WriteSQL(b *Builder) {
	b.WriteString("DROP ").WriteString(d.kind).WriteString(" IF EXISTS ").Ident(d.name)
}

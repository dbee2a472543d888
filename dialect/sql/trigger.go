package sql

import (
	"context"

	"github.com/syssam/sqlflow/dialect"
)

// TriggerBuilder builds CREATE TRIGGER statements.
//
//	CreateTrigger("audit").After().Insert().On("users").
//		Begin(Insert("audit").Columns("user_id").Values(New("id")))
type TriggerBuilder struct {
	config
	name      string
	temporary bool
	timing    string
	event     string
	columns   []string
	table     string
	forEach   bool
	when      *OperatorGroup
	body      []Querier
}

// CreateTrigger starts a trigger definition using the SQLite dialect.
func CreateTrigger(name string) *TriggerBuilder { return sqlite.CreateTrigger(name) }

// CreateTrigger starts a trigger definition.
func (d *DialectBuilder) CreateTrigger(name string) *TriggerBuilder {
	return &TriggerBuilder{config: d.config, name: name, when: NonGroupingClause()}
}

// Temporary creates a TEMP trigger.
func (t *TriggerBuilder) Temporary() *TriggerBuilder {
	t.temporary = true
	return t
}

// Before fires the trigger BEFORE the event.
func (t *TriggerBuilder) Before() *TriggerBuilder { t.timing = "BEFORE"; return t }

// After fires the trigger AFTER the event.
func (t *TriggerBuilder) After() *TriggerBuilder { t.timing = "AFTER"; return t }

// InsteadOf fires the trigger INSTEAD OF the event.
func (t *TriggerBuilder) InsteadOf() *TriggerBuilder { t.timing = "INSTEAD OF"; return t }

// Insert fires on INSERT.
func (t *TriggerBuilder) Insert() *TriggerBuilder { t.event = "INSERT"; return t }

// Delete fires on DELETE.
func (t *TriggerBuilder) Delete() *TriggerBuilder { t.event = "DELETE"; return t }

// Update fires on UPDATE, optionally restricted to the given columns.
func (t *TriggerBuilder) Update(columns ...string) *TriggerBuilder {
	t.event, t.columns = "UPDATE", columns
	return t
}

// On sets the table the trigger is attached to.
func (t *TriggerBuilder) On(table string) *TriggerBuilder {
	t.table = table
	return t
}

// ForEachRow adds FOR EACH ROW.
func (t *TriggerBuilder) ForEachRow() *TriggerBuilder {
	t.forEach = true
	return t
}

// When adds conditions to the WHEN clause.
func (t *TriggerBuilder) When(conds ...Condition) *TriggerBuilder {
	t.when.AndAll(conds...)
	return t
}

// Begin sets the first statement of the trigger body.
func (t *TriggerBuilder) Begin(q Querier) *TriggerBuilder {
	t.body = append(t.body[:0], q)
	return t
}

// And appends a statement to the trigger body.
func (t *TriggerBuilder) And(q Querier) *TriggerBuilder {
	t.body = append(t.body, q)
	return t
}

// Name returns the trigger name.
func (t *TriggerBuilder) Name() string { return t.name }

// Query returns the CREATE TRIGGER statement.
func (t *TriggerBuilder) Query() (string, error) {
	b := t.builder()
	t.WriteSQL(b)
	return b.String(), b.Err()
}

// WriteSQL implements Expr.
func (t *TriggerBuilder) WriteSQL(b *Builder) {
	switch {
	case t.event == "":
		b.AddError(NewMisuseError("CREATE TRIGGER", "missing event"))
	case t.table == "":
		b.AddError(NewMisuseError("CREATE TRIGGER", "missing table"))
	case len(t.body) == 0:
		b.AddError(NewMisuseError("CREATE TRIGGER", "empty body"))
	}
	b.WriteString("CREATE ")
	if t.temporary {
		b.WriteString("TEMP ")
	}
	b.WriteString("TRIGGER IF NOT EXISTS ").Ident(t.name)
	if t.timing != "" {
		b.Byte(' ').WriteString(t.timing)
	}
	b.Byte(' ').WriteString(t.event)
	if len(t.columns) > 0 {
		b.WriteString(" OF ")
		for i, c := range t.columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.Ident(c)
		}
	}
	b.WriteString(" ON ").Ident(t.table)
	if t.forEach {
		b.WriteString(" FOR EACH ROW")
	}
	if t.when.Len() > 0 {
		b.WriteString(" WHEN ").Expr(t.when)
	}
	b.WriteString(" BEGIN ")
	for _, q := range t.body {
		b.writeQuery(q)
		b.WriteString("; ")
	}
	b.WriteString("END")
}

// Drop returns the DROP TRIGGER statement for the trigger.
func (t *TriggerBuilder) Drop() Querier {
	return &dropStmt{config: t.config, kind: "TRIGGER", name: t.name}
}

// Enable creates the trigger.
func (t *TriggerBuilder) Enable(ctx context.Context, ex dialect.ExecQuerier) error {
	_, err := Exec(ctx, ex, t)
	return err
}

// Disable drops the trigger.
func (t *TriggerBuilder) Disable(ctx context.Context, ex dialect.ExecQuerier) error {
	_, err := Exec(ctx, ex, t.Drop())
	return err
}

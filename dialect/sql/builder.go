package sql

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/syssam/sqlflow/dialect"
)

// Expr is a SQL fragment that writes itself into a Builder.
type Expr interface {
	WriteSQL(b *Builder)
}

// Querier is implemented by complete statements.
type Querier interface {
	Query() (string, error)
}

// ExprFunc adapts a function to the Expr interface.
type ExprFunc func(*Builder)

// WriteSQL calls f(b).
func (f ExprFunc) WriteSQL(b *Builder) { f(b) }

// refWriter is implemented by expressions that have a reference form
// without their output alias, used on the left side of conditions and in
// GROUP BY / ORDER BY lists.
type refWriter interface {
	writeRef(b *Builder)
}

// config holds the rendering settings shared by every builder created from
// the same DialectBuilder.
type config struct {
	dialect string
	conv    *Converters
	strict  bool
	logger  *slog.Logger
}

func defaultConfig() config {
	return config{dialect: dialect.SQLite, conv: DefaultConverters()}
}

func (c config) builder() *Builder {
	return &Builder{config: c}
}

func (c config) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

// Builder is the low-level SQL text builder. It handles identifier quoting,
// literal serialization and collects errors found while rendering.
type Builder struct {
	config
	sb   strings.Builder
	errs []error
}

// NewBuilder returns a Builder for the given dialect using the default
// converter registry.
func NewBuilder(name string) *Builder {
	c := defaultConfig()
	c.dialect = name
	return c.builder()
}

// Dialect returns the dialect of the builder.
func (b *Builder) Dialect() string { return b.dialect }

// WriteString appends s verbatim.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// Byte appends a single byte.
func (b *Builder) Byte(c byte) *Builder {
	b.sb.WriteByte(c)
	return b
}

// Pad appends a space unless the buffer is empty or already ends with one.
func (b *Builder) Pad() *Builder {
	if n := b.sb.Len(); n > 0 && b.sb.String()[n-1] != ' ' {
		b.sb.WriteByte(' ')
	}
	return b
}

// Ident appends the quoted form of the identifier.
func (b *Builder) Ident(s string) *Builder {
	b.sb.WriteString(b.Quote(s))
	return b
}

// Quote quotes an identifier for the builder dialect. MySQL uses backticks,
// SQLite and Postgres double quotes. "*" and already quoted names are kept.
func (b *Builder) Quote(ident string) string {
	q := `"`
	if b.dialect == dialect.MySQL {
		q = "`"
	}
	if ident == "*" || ident == "" {
		return ident
	}
	if len(ident) > 1 && strings.HasPrefix(ident, q) && strings.HasSuffix(ident, q) {
		return ident
	}
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

// Expr writes the given expression.
func (b *Builder) Expr(e Expr) *Builder {
	if e != nil {
		e.WriteSQL(b)
	}
	return b
}

// Ref writes the reference form of e (without an output alias).
func (b *Builder) Ref(e Expr) *Builder {
	if r, ok := e.(refWriter); ok {
		r.writeRef(b)
		return b
	}
	return b.Expr(e)
}

// JoinExpr writes the expressions separated by sep.
func (b *Builder) JoinExpr(sep string, exprs ...Expr) *Builder {
	for i, e := range exprs {
		if i > 0 {
			b.WriteString(sep)
		}
		b.Expr(e)
	}
	return b
}

// Wrap writes "(", calls f and writes ")".
func (b *Builder) Wrap(f func(*Builder)) *Builder {
	b.Byte('(')
	f(b)
	return b.Byte(')')
}

// writeQuery writes the text of a nested statement. Statements sharing this
// package are rendered in place so their errors are collected by b.
func (b *Builder) writeQuery(q Querier) {
	if e, ok := q.(Expr); ok {
		e.WriteSQL(b)
		return
	}
	text, err := q.Query()
	if err != nil {
		b.AddError(err)
	}
	b.WriteString(strings.TrimSpace(text))
}

// AddError records an error found while rendering.
func (b *Builder) AddError(err error) *Builder {
	if err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Err returns the errors collected so far, joined.
func (b *Builder) Err() error {
	return errors.Join(b.errs...)
}

// String returns the accumulated SQL text.
func (b *Builder) String() string {
	return b.sb.String()
}

// Len returns the length of the accumulated text.
func (b *Builder) Len() int {
	return b.sb.Len()
}

// clone returns an empty builder with the same settings.
func (b *Builder) clone() *Builder {
	return b.config.builder()
}

package sql

import (
	"strings"
)

// NameAlias references a column, table or raw expression by name, with an
// optional table qualifier and output alias. NameAlias values are
// immutable; every method returns a modified copy.
type NameAlias struct {
	name    string
	table   string
	alias   string
	keyword string
	// raw names are written verbatim, never quoted.
	raw bool
	// rawTable marks an unquoted table qualifier (NEW, OLD).
	rawTable bool
}

// C returns a reference to the named column. A "table.column" name is split
// into its qualifier and column parts.
//
//	C("name")       // "name"
//	C("users.name") // "users"."name"
func C(name string) NameAlias {
	if t, c, ok := strings.Cut(name, "."); ok && isIdent(t) && (isIdent(c) || c == "*") {
		return NameAlias{name: c, table: t}
	}
	return NameAlias{name: name}
}

// Table returns a reference to the named table.
func Table(name string) NameAlias {
	return NameAlias{name: name}
}

// Raw returns a name written verbatim, without quoting.
func Raw(text string) NameAlias {
	return NameAlias{name: text, raw: true}
}

// All is the "*" column reference.
var All = NameAlias{name: "*"}

// New references a column of the NEW row inside a trigger body.
func New(column string) NameAlias {
	return NameAlias{name: column, table: "NEW", rawTable: true}
}

// Old references a column of the OLD row inside a trigger body.
func Old(column string) NameAlias {
	return NameAlias{name: column, table: "OLD", rawTable: true}
}

// As returns a copy with the given output alias.
func (n NameAlias) As(alias string) NameAlias {
	n.alias = alias
	return n
}

// WithTable returns a copy qualified by the given table name.
func (n NameAlias) WithTable(table string) NameAlias {
	n.table, n.rawTable = table, false
	return n
}

// Distinct returns a copy prefixed with the DISTINCT keyword.
func (n NameAlias) Distinct() NameAlias {
	n.keyword = "DISTINCT"
	return n
}

// NoQuote returns a copy whose name is written verbatim.
func (n NameAlias) NoQuote() NameAlias {
	n.raw = true
	return n
}

// C returns a column qualified by this table reference, using the alias
// when one is set.
func (n NameAlias) C(column string) NameAlias {
	return NameAlias{name: column, table: n.AliasOrName()}
}

// Name returns the unqualified name.
func (n NameAlias) Name() string { return n.name }

// TableName returns the table qualifier, if any.
func (n NameAlias) TableName() string { return n.table }

// Alias returns the output alias, if any.
func (n NameAlias) Alias() string { return n.alias }

// AliasOrName returns the alias if set, else the name.
func (n NameAlias) AliasOrName() string {
	if n.alias != "" {
		return n.alias
	}
	return n.name
}

// WriteSQL writes the qualified name and its alias.
func (n NameAlias) WriteSQL(b *Builder) {
	n.writeRef(b)
	if n.alias != "" {
		b.WriteString(" AS ").Ident(n.alias)
	}
}

func (n NameAlias) writeRef(b *Builder) {
	if n.keyword != "" {
		b.WriteString(n.keyword).Byte(' ')
	}
	if n.table != "" {
		if n.rawTable {
			b.WriteString(n.table)
		} else {
			b.Ident(n.table)
		}
		b.Byte('.')
	}
	if n.raw {
		b.WriteString(n.name)
	} else {
		b.Ident(n.name)
	}
}

// String returns the SQLite rendering of the reference.
func (n NameAlias) String() string {
	b := defaultConfig().builder()
	n.WriteSQL(b)
	return b.String()
}

// isIdent reports whether s is a plain SQL identifier.
func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

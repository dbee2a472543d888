package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/sqlflow/dialect"
)

func TestNameAlias(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		n    NameAlias
		want string
	}{
		{"column", C("name"), `"name"`},
		{"qualified", C("users.name"), `"users"."name"`},
		{"qualified_star", C("users.*"), `"users".*`},
		{"not_split", C("weird name.x"), `"weird name.x"`},
		{"star", All, `*`},
		{"alias", C("name").As("n"), `"name" AS "n"`},
		{"with_table", C("name").WithTable("u"), `"u"."name"`},
		{"distinct", C("name").Distinct(), `DISTINCT "name"`},
		{"raw", Raw("COUNT(*)"), `COUNT(*)`},
		{"no_quote", C("rowid").NoQuote(), `rowid`},
		{"table_alias", Table("users").As("u"), `"users" AS "u"`},
		{"column_of_alias", Table("users").As("u").C("id"), `"u"."id"`},
		{"column_of_table", Table("users").C("id"), `"users"."id"`},
		{"new", New("id"), `NEW."id"`},
		{"old", Old("id"), `OLD."id"`},
		{"embedded_quote", C(`a"b`), `"a""b"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.n.String())
		})
	}
}

func TestNameAliasImmutable(t *testing.T) {
	t.Parallel()
	base := C("name")
	_ = base.As("n")
	_ = base.WithTable("t")
	assert.Equal(t, `"name"`, base.String())
	assert.Equal(t, "name", base.AliasOrName())
	assert.Equal(t, "n", base.As("n").AliasOrName())
	assert.Equal(t, "t", C("t.c").TableName())
	assert.Equal(t, "c", C("t.c").Name())
	assert.Empty(t, C("t.c").Alias())
}

func TestQuoteMySQL(t *testing.T) {
	t.Parallel()
	b := NewBuilder(dialect.MySQL)
	assert.Equal(t, "`users`", b.Quote("users"))
	assert.Equal(t, "`a``b`", b.Quote("a`b"))
	assert.Equal(t, "`done`", b.Quote("`done`"))
	assert.Equal(t, "*", b.Quote("*"))
}

func TestBuilderHelpers(t *testing.T) {
	t.Parallel()
	b := NewBuilder(dialect.SQLite)
	b.Pad()
	assert.Equal(t, 0, b.Len())
	b.WriteString("a").Pad().Pad().Wrap(func(b *Builder) {
		b.JoinExpr(", ", C("x"), C("y"))
	})
	assert.Equal(t, `a ("x", "y")`, b.String())
	assert.Equal(t, dialect.SQLite, b.Dialect())
	assert.NoError(t, b.Err())
}

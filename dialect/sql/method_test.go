package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMethods(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		expr Expr
		want string
	}{
		{"count_star", Count(), `COUNT(*)`},
		{"count_column", Count(C("id")), `COUNT("id")`},
		{"count_distinct", Count(C("name").Distinct()), `COUNT(DISTINCT "name")`},
		{"avg", Avg(C("age")), `AVG("age")`},
		{"max", Max(C("age")), `MAX("age")`},
		{"min", Min(C("a"), C("b")), `MIN("a", "b")`},
		{"sum", Sum(C("n")), `SUM("n")`},
		{"total", Total(C("n")), `TOTAL("n")`},
		{"group_concat", GroupConcat(C("name")), `GROUP_CONCAT("name")`},
		{"group_concat_sep", GroupConcat(C("name"), ";"), `GROUP_CONCAT("name", ';')`},
		{"date", Date("now"), `DATE('now')`},
		{"datetime", DateTime(C("created"), "localtime"), `DATETIME("created", 'localtime')`},
		{"strftime", StrfTime("%Y", C("created")), `STRFTIME('%Y', "created")`},
		{"ifnull", IfNull(C("nick"), "anon"), `IFNULL("nick", 'anon')`},
		{"nullif", NullIf(C("n"), 0), `NULLIF("n", 0)`},
		{"replace", Replace(C("s"), "a", "b"), `REPLACE("s", 'a', 'b')`},
		{"cast", Cast(C("n")).As("TEXT"), `CAST("n" AS TEXT)`},
		{"cast_alias", Cast(C("n")).As("REAL").Alias("r"), `CAST("n" AS REAL) AS "r"`},
		{"fn", Fn("LOWER", C("name")), `LOWER("name")`},
		{"alias", Max(C("age")).As("oldest"), `MAX("age") AS "oldest"`},
		{"nested", Max(Cast(C("n")).As("INTEGER")), `MAX(CAST("n" AS INTEGER))`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustRender(t, tt.expr))
		})
	}
}

func TestMethodInStatement(t *testing.T) {
	t.Parallel()
	q, err := SelectExpr(C("kind"), Count().As("n")).
		From(Table("pets")).
		GroupByExpr(Date(C("born"))).
		Having(Max(C("age")).As("m").Op().GT(3)).
		OrderBy(Desc(Count().As("n"))).
		Query()
	assert.NoError(t, err)
	assert.Equal(t, `SELECT "kind", COUNT(*) AS "n" FROM "pets" GROUP BY DATE("born") HAVING MAX("age") > 3 ORDER BY COUNT(*) DESC`, q)

	_, err = SelectExpr(Cast(C("n"))).Query()
	assert.True(t, IsMisuse(err))
}

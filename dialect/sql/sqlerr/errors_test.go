package sqlerr_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/sqlflow/dialect/sql/sqlerr"
)

func TestClassifyTyped(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want sqlerr.Kind
	}{
		{"nil", nil, sqlerr.KindNone},
		{"plain", errors.New("connection reset"), sqlerr.KindNone},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, sqlerr.KindUnique},
		{"mysql fk parent", &mysql.MySQLError{Number: 1451}, sqlerr.KindForeignKey},
		{"mysql fk child", &mysql.MySQLError{Number: 1452}, sqlerr.KindForeignKey},
		{"mysql check", &mysql.MySQLError{Number: 3819}, sqlerr.KindCheck},
		{"mysql null", &mysql.MySQLError{Number: 1048}, sqlerr.KindNotNull},
		{"mysql other", &mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"}, sqlerr.KindNone},
		{"pq unique", &pq.Error{Code: "23505"}, sqlerr.KindUnique},
		{"pq fk", &pq.Error{Code: "23503"}, sqlerr.KindForeignKey},
		{"pq check", &pq.Error{Code: "23514"}, sqlerr.KindCheck},
		{"pq null", &pq.Error{Code: "23502"}, sqlerr.KindNotNull},
		{"wrapped", fmt.Errorf("dialect/sql: exec: %w", &pq.Error{Code: "23505"}), sqlerr.KindUnique},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sqlerr.Classify(tt.err))
		})
	}
}

func TestClassifyMessage(t *testing.T) {
	t.Parallel()
	assert.True(t, sqlerr.IsUniqueConstraintError(errors.New("UNIQUE constraint failed: users.email")))
	assert.True(t, sqlerr.IsUniqueConstraintError(errors.New(`pq: duplicate key value violates unique constraint "users_email_key"`)))
	assert.True(t, sqlerr.IsForeignKeyConstraintError(errors.New("FOREIGN KEY constraint failed")))
	assert.True(t, sqlerr.IsCheckConstraintError(errors.New("Error 3819: Check constraint 'c' is violated.")))
	assert.True(t, sqlerr.IsNotNullConstraintError(errors.New("NOT NULL constraint failed: users.name")))
	assert.False(t, sqlerr.IsConstraintError(errors.New("no such table: users")))
	assert.Equal(t, "foreign key", sqlerr.KindForeignKey.String())
}

func TestClassifySQLite(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	for _, q := range []string{
		"PRAGMA foreign_keys = ON",
		`CREATE TABLE "teams" ("id" INTEGER PRIMARY KEY)`,
		`CREATE TABLE "users" (
			"id" INTEGER PRIMARY KEY,
			"email" TEXT NOT NULL UNIQUE,
			"age" INTEGER CHECK ("age" >= 0),
			"team_id" INTEGER REFERENCES "teams"("id")
		)`,
		`INSERT INTO "users" ("id", "email") VALUES (1, 'a@example.com')`,
	} {
		_, err := db.Exec(q)
		require.NoError(t, err, q)
	}

	_, err = db.Exec(`INSERT INTO "users" ("id", "email") VALUES (2, 'a@example.com')`)
	require.Error(t, err)
	assert.True(t, sqlerr.IsUniqueConstraintError(err), err.Error())

	_, err = db.Exec(`INSERT INTO "users" ("id", "email", "team_id") VALUES (3, 'b@example.com', 42)`)
	require.Error(t, err)
	assert.True(t, sqlerr.IsForeignKeyConstraintError(err), err.Error())

	_, err = db.Exec(`INSERT INTO "users" ("id", "email", "age") VALUES (4, 'c@example.com', -1)`)
	require.Error(t, err)
	assert.True(t, sqlerr.IsCheckConstraintError(err), err.Error())

	_, err = db.Exec(`INSERT INTO "users" ("id") VALUES (5)`)
	require.Error(t, err)
	assert.True(t, sqlerr.IsNotNullConstraintError(err), err.Error())

	_, err = db.Exec(`SELECT * FROM "missing"`)
	require.Error(t, err)
	assert.False(t, sqlerr.IsConstraintError(err))
}

package stmtfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlbind/dialect"
	"github.com/syssam/sqlbind/strategy"
)

const users = `
statements:
  - name: create user
    op: insert
    table: users
    columns: [name, email, age]
    values: [a8m, a8m@example.com, 30]
  - name: adults
    op: select
    table: users
    columns: [id, name]
    where:
      and:
        - {column: age, op: gte, value: 18}
        - or:
            - {column: email, op: like, value: "%@example.com"}
            - {column: deleted_at, op: is_null}
    order_by: [name, -id]
    limit: 10
  - op: delete
    table: users
    where:
      not: {column: id, op: in, values: [1, 2]}
`

func newStrategy(t *testing.T, name string) *strategy.Strategy {
	t.Helper()
	d, err := dialect.Lookup(name)
	require.NoError(t, err)
	s, err := strategy.New(strategy.Config{Dialect: d})
	require.NoError(t, err)
	return s
}

func TestParse(t *testing.T) {
	f, err := Parse([]byte(users))
	require.NoError(t, err)
	require.Len(t, f.Statements, 3)
	assert.Equal(t, "create user", f.Statements[0].Name)
	assert.Equal(t, []any{"a8m", "a8m@example.com", 30}, f.Statements[0].Values)
	assert.Equal(t, "delete users", f.Statements[2].Name)

	_, err = Parse([]byte("statements:\n  - op: select\n    tabel: users\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stmtfile: parse")

	f, err = Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, f.Statements)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(users), 0o644))
	f, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Statements, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStatement_Operation(t *testing.T) {
	f, err := Parse([]byte(users))
	require.NoError(t, err)
	s := newStrategy(t, dialect.Postgres)

	tests := []struct {
		sql  string
		args []any
	}{
		{
			sql:  `INSERT INTO "users" ("name", "email", "age") VALUES ($1, $2, $3)`,
			args: []any{"a8m", "a8m@example.com", 30},
		},
		{
			sql:  `SELECT "id", "name" FROM "users" WHERE "age" >= $1 AND ("email" LIKE $2 OR "deleted_at" IS NULL) ORDER BY "name", "id" DESC LIMIT 10`,
			args: []any{18, "%@example.com"},
		},
		{
			sql:  `DELETE FROM "users" WHERE NOT ("id" IN ($1, $2))`,
			args: []any{1, 2},
		},
	}
	for i, tt := range tests {
		t.Run(f.Statements[i].Name, func(t *testing.T) {
			op, err := f.Statements[i].Operation()
			require.NoError(t, err)
			stmt, err := s.Build(op)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, stmt.SQL)
			assert.Equal(t, tt.args, stmt.Args())
		})
	}
}

func TestStatement_OperationErrors(t *testing.T) {
	tests := []struct {
		name   string
		stmt   Statement
		errMsg string
	}{
		{"unknown op", Statement{Name: "x", Op: "upsert", Table: "t"}, `unknown operation "upsert"`},
		{"values mismatch", Statement{Name: "x", Op: "insert", Table: "t", Columns: []string{"a", "b"}, Values: []any{1}}, "2 columns and 1 values"},
		{"select values", Statement{Name: "x", Op: "select", Table: "t", Columns: []string{"a"}, Values: []any{1}}, "select does not take values"},
		{"delete columns", Statement{Name: "x", Op: "delete", Table: "t", Columns: []string{"a"}}, "delete does not take columns"},
		{"empty where", Statement{Name: "x", Op: "delete", Table: "t", Where: &Where{}}, "expect exactly one of"},
		{"ambiguous where", Statement{Name: "x", Op: "delete", Table: "t", Where: &Where{Column: "a", Not: &Where{Column: "b"}}}, "expect exactly one of"},
		{"unknown operator", Statement{Name: "x", Op: "delete", Table: "t", Where: &Where{Column: "a", Op: "between"}}, `unknown operator "between"`},
		{"like pattern", Statement{Name: "x", Op: "delete", Table: "t", Where: &Where{Column: "a", Op: "like", Value: 1}}, "expects a string pattern"},
		{"nil child", Statement{Name: "x", Op: "delete", Table: "t", Where: &Where{And: []*Where{nil}}}, "empty predicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.stmt.Operation()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "stmtfile: x: ")
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRender(t *testing.T) {
	f, err := Parse([]byte(users))
	require.NoError(t, err)
	var buf bytes.Buffer
	err = Render(&buf, &File{Statements: f.Statements[:1]},
		newStrategy(t, dialect.MySQL),
		newStrategy(t, dialect.SQLServer),
	)
	require.NoError(t, err)
	assert.Equal(t, "-- create user [mysql]\n"+
		"INSERT INTO `users` (`name`, `email`, `age`) VALUES (?, ?, ?)\n"+
		"  ?\tname = a8m\n"+
		"  ?\temail = a8m@example.com\n"+
		"  ?\tage = 30\n\n"+
		"-- create user [sqlserver]\n"+
		"INSERT INTO [users] ([name], [email], [age]) VALUES (@P0_name, @P1_email, @P2_age)\n"+
		"  @P0_name\tname = a8m\n"+
		"  @P1_email\temail = a8m@example.com\n"+
		"  @P2_age\tage = 30\n\n", buf.String())
}

func TestRender_Errors(t *testing.T) {
	f := &File{Statements: []*Statement{
		{Name: "bad op", Op: "merge", Table: "t"},
		{Name: "no columns", Op: "select", Table: "t"},
		{Name: "ok", Op: "delete", Table: "t"},
	}}
	var buf bytes.Buffer
	err := Render(&buf, f, newStrategy(t, dialect.SQLite))
	require.Error(t, err)
	assert.ErrorIs(t, err, strategy.ErrInvalidOperation)
	out := buf.String()
	assert.Contains(t, out, "-- bad op\nerror: ")
	assert.Contains(t, out, "-- no columns [sqlite]\nerror: strategy: invalid select operation on \"t\": no columns")
	assert.Contains(t, out, "-- ok [sqlite]\nDELETE FROM \"t\"\n\n")
}

package main

import (
	"bytes"
	"context"
	stdsql "database/sql"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statements = `
statements:
  - name: create user
    op: insert
    table: users
    columns: [name, age]
    values: [a8m, 30]
  - name: adults
    op: select
    table: users
    columns: [id, name]
    where: {column: age, op: gte, value: 18}
    limit: 5
`

// syncBuffer is a bytes.Buffer safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, ctx context.Context, out io.Writer, args ...string) error {
	t.Helper()
	return runLogged(t, ctx, out, io.Discard, args...)
}

// runLogged is like run, and writes the log output to logs.
func runLogged(t *testing.T, ctx context.Context, out, logs io.Writer, args ...string) error {
	t.Helper()
	root := newRootCmd()
	root.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	root.SetOut(out)
	root.SetErr(logs)
	return root.ExecuteContext(ctx)
}

func TestRender(t *testing.T) {
	path := writeFile(t, t.TempDir(), "users.yaml", statements)
	var out bytes.Buffer
	require.NoError(t, run(t, context.Background(), &out, "render", path, "--dialect", "postgres"))
	assert.Equal(t, `-- create user [postgres]
INSERT INTO "users" ("name", "age") VALUES ($1, $2)
  $1	name = a8m
  $2	age = 30

-- adults [postgres]
SELECT "id", "name" FROM "users" WHERE "age" >= $1 LIMIT 5
  $1	age = 18

`, out.String())
}

func TestRender_AllDialects(t *testing.T) {
	path := writeFile(t, t.TempDir(), "users.yaml", statements)
	var out bytes.Buffer
	require.NoError(t, run(t, context.Background(), &out, "render", path))
	for _, d := range dialects() {
		assert.Contains(t, out.String(), "-- adults ["+d+"]")
	}
	assert.Contains(t, out.String(), "SELECT [id], [name] FROM [users] WHERE [age] >= @P0_age ORDER BY (SELECT NULL) OFFSET 0 ROWS FETCH NEXT 5 ROWS ONLY")
	assert.Contains(t, out.String(), `SELECT "id", "name" FROM "users" WHERE "age" >= :P0_age FETCH FIRST 5 ROWS ONLY`)
}

func TestRender_Errors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "users.yaml", statements)
	var out bytes.Buffer
	err := run(t, context.Background(), &out, "render", path, "--dialect", "db2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db2")

	err = run(t, context.Background(), &out, "render", path, "--naming", "camel")
	require.Error(t, err)

	err = run(t, context.Background(), &out, "render", filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := writeFile(t, dir, "bad.yaml", "statements:\n  - {op: select, table: users}\n")
	out.Reset()
	err = run(t, context.Background(), &out, "render", bad, "-d", "mysql")
	require.Error(t, err)
	assert.Contains(t, out.String(), "no columns")
}

func TestRender_Watch(t *testing.T) {
	path := writeFile(t, t.TempDir(), "users.yaml", statements)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- run(t, ctx, out, "render", path, "--dialect", "sqlite", "--watch")
	}()

	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("-- adults [sqlite]"))
	}, 5*time.Second, 10*time.Millisecond)

	changed := "statements:\n  - {op: delete, table: accounts}\n"
	assert.Eventually(t, func() bool {
		// Rewrite until the watcher is up and has seen a change.
		if err := os.WriteFile(path, []byte(changed), 0o644); err != nil {
			return false
		}
		return bytes.Contains([]byte(out.String()), []byte(`DELETE FROM "accounts"`))
	}, 5*time.Second, 50*time.Millisecond)
	assert.Contains(t, out.String(), "-- reloaded "+path)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func openSQLite(t *testing.T) (string, *stdsql.DB) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := stdsql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec("CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL UNIQUE, age INTEGER)")
	require.NoError(t, err)
	return dsn, db
}

func TestExec(t *testing.T) {
	dsn, _ := openSQLite(t)
	path := writeFile(t, t.TempDir(), "users.yaml", statements)
	var out bytes.Buffer
	require.NoError(t, run(t, context.Background(), &out, "exec", path, "--driver", "sqlite", "--dsn", dsn))
	assert.Equal(t, "-- create user\n1 rows affected\n-- adults\nid=1\tname=a8m\n", out.String())
}

func TestExec_DebugLog(t *testing.T) {
	t.Setenv("SQLBIND_SLOW_THRESHOLD", "0")
	dsn, _ := openSQLite(t)
	path := writeFile(t, t.TempDir(), "users.yaml", statements)
	var out, logs bytes.Buffer
	require.NoError(t, runLogged(t, context.Background(), &out, &logs, "exec", path, "--driver", "sqlite", "--dsn", dsn, "--log-level", "DEBUG"))
	assert.Contains(t, out.String(), "id=1\tname=a8m")
	assert.Contains(t, logs.String(), "begin transaction")
	assert.Contains(t, logs.String(), "tx exec: INSERT INTO")
	assert.Contains(t, logs.String(), "tx query: SELECT")
	assert.Contains(t, logs.String(), "commit transaction")
	assert.Contains(t, logs.String(), "execs=1")
	assert.Contains(t, logs.String(), "slow=0")
	assert.NotContains(t, logs.String(), "slow query detected")
}

func TestExec_InfoLog(t *testing.T) {
	dsn, _ := openSQLite(t)
	path := writeFile(t, t.TempDir(), "users.yaml", statements)
	var out, logs bytes.Buffer
	require.NoError(t, runLogged(t, context.Background(), &out, &logs, "exec", path, "--driver", "sqlite", "--dsn", dsn))
	assert.Contains(t, logs.String(), "query stats")
	assert.NotContains(t, logs.String(), "begin transaction")
}

func TestExec_Rollback(t *testing.T) {
	dsn, db := openSQLite(t)
	path := writeFile(t, t.TempDir(), "users.yaml", `
statements:
  - {op: insert, table: users, columns: [name], values: [a8m]}
  - {op: insert, table: users, columns: [name], values: [a8m]}
`)
	var out bytes.Buffer
	err := run(t, context.Background(), &out, "exec", path, "--driver", "sqlite", "--dsn", dsn, "--dialect", "sqlite")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "constraint violation")

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM users").Scan(&n))
	assert.Zero(t, n)
}

func TestExec_RequiredFlags(t *testing.T) {
	path := writeFile(t, t.TempDir(), "users.yaml", statements)
	err := run(t, context.Background(), io.Discard, "exec", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

package sqlbind_test

import (
	"context"
	stdsql "database/sql"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/sqlbind"
	"github.com/syssam/sqlbind/dialect"
	"github.com/syssam/sqlbind/dialect/sql"
	"github.com/syssam/sqlbind/dialect/sql/sqlerr"
	"github.com/syssam/sqlbind/strategy"
)

type Account struct {
	ID       int64
	Email    string
	Nickname *string
	Balance  float64
}

func openSQLite(t *testing.T) *sqlbind.Client {
	t.Helper()
	db, err := stdsql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// Every connection of :memory: opens a new database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		nickname TEXT,
		balance REAL NOT NULL DEFAULT 0 CHECK (balance >= 0)
	)`)
	require.NoError(t, err)
	client, err := sqlbind.NewClient(context.Background(), sqlbind.WithDriver(sql.OpenDB("sqlite", db)))
	require.NoError(t, err)
	return client
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	client := openSQLite(t)
	require.Equal(t, dialect.SQLite, client.Dialect().Name())

	emails := make([]string, 3)
	for i := range emails {
		emails[i] = gofakeit.Email()
		for j := 0; j < i; j++ {
			if emails[j] == emails[i] {
				emails[i] = "x" + emails[i]
			}
		}
		require.NoError(t, client.Insert(ctx, &Account{Email: emails[i], Balance: float64(i)}))
	}

	var a Account
	require.NoError(t, client.Get(ctx, &a, 1))
	assert.Equal(t, emails[0], a.Email)
	assert.Nil(t, a.Nickname)

	nick := gofakeit.Username()
	a.Nickname = &nick
	a.Balance = 10.5
	require.NoError(t, client.Update(ctx, &a))

	var got Account
	require.NoError(t, client.Get(ctx, &got, int64(1)))
	require.NotNil(t, got.Nickname)
	assert.Equal(t, nick, *got.Nickname)
	assert.Equal(t, 10.5, got.Balance)

	var rich []*Account
	err := client.Select(ctx, &rich,
		strategy.Where(strategy.GT("balance", 0.5)),
		strategy.OrderBy(strategy.Desc("balance")),
		strategy.Limit(2),
	)
	require.NoError(t, err)
	require.Len(t, rich, 2)
	assert.Equal(t, int64(1), rich[0].ID)
	assert.Equal(t, emails[2], rich[1].Email)

	n, err := client.Delete(ctx, &Account{ID: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	err = client.Get(ctx, &got, 3)
	assert.True(t, sqlbind.IsNotFound(err))
}

func TestSQLite_Errors(t *testing.T) {
	ctx := context.Background()
	client := openSQLite(t)
	require.NoError(t, client.Insert(ctx, &Account{Email: "a8m@example.com"}))

	err := client.Insert(ctx, &Account{Email: "a8m@example.com"})
	require.Error(t, err)
	assert.True(t, sqlbind.IsConstraintError(err))
	assert.False(t, sqlbind.IsRetryable(err))

	err = client.Insert(ctx, &Account{Email: "b@example.com", Balance: -1})
	assert.True(t, sqlbind.IsConstraintError(err))

	_, err = client.Exec(ctx, strategy.Update("missing", strategy.Col("x", 1)))
	require.Error(t, err)
	var e *sqlerr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "update", e.Op)
	assert.NotEqual(t, sqlerr.ConstraintViolation, e.Kind)
}

func TestSQLite_Tx(t *testing.T) {
	ctx := context.Background()
	client := openSQLite(t)
	err := client.Tx(ctx, func(tx *sqlbind.Client) error {
		if err := tx.Insert(ctx, &Account{Email: "a@example.com"}); err != nil {
			return err
		}
		return tx.Insert(ctx, &Account{Email: "a@example.com"})
	})
	require.True(t, sqlbind.IsConstraintError(err))

	var accounts []Account
	require.NoError(t, client.Select(ctx, &accounts))
	assert.Empty(t, accounts)
}

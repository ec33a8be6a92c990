package dialect

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Resolve(t *testing.T) {
	r := DefaultRegistry()
	tests := []struct {
		name string
		md   Metadata
		want string
	}{
		{"postgres name", Metadata{Name: "postgres"}, Postgres},
		{"pgx name", Metadata{Name: "pgx"}, Postgres},
		{"pq driver type", Metadata{Name: "custom", Driver: "*pq.Driver"}, Postgres},
		{"postgres version", Metadata{Name: "wrapped", Version: "PostgreSQL 16.2 on x86_64-pc-linux-gnu"}, Postgres},
		{"mysql", Metadata{Name: "mysql", Driver: "*mysql.MySQLDriver"}, MySQL},
		{"mariadb version", Metadata{Name: "otel", Version: "10.11.6-MariaDB"}, MySQL},
		{"sqlite", Metadata{Name: "sqlite", Driver: "*sqlite.Driver"}, SQLite},
		{"sqlite3", Metadata{Name: "sqlite3"}, SQLite},
		{"h2", Metadata{Name: "h2"}, H2},
		{"sqlserver", Metadata{Name: "sqlserver"}, SQLServer},
		{"mssql version", Metadata{Name: "odbc", Version: "Microsoft SQL Server 2022 (RTM) - 16.0.1000.6"}, SQLServer},
		{"oracle", Metadata{Name: "godror"}, Oracle},
		{"h2 version", Metadata{Name: "jdbc", Version: "H2 2.2.224"}, H2},
		{"mysql wrapper", Metadata{Name: "mysql-otel"}, MySQL},
		{"case insensitive", Metadata{Name: "POSTGRES"}, Postgres},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := r.Resolve(tt.md)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Name())
		})
	}
}

func TestRegistry_Deterministic(t *testing.T) {
	r := DefaultRegistry()
	for _, name := range []string{Postgres, MySQL, SQLite, H2, SQLServer, Oracle} {
		md := Metadata{Name: name}
		d1, err := r.Resolve(md)
		require.NoError(t, err)
		d2, err := DefaultRegistry().Resolve(md)
		require.NoError(t, err)
		assert.True(t, d1.Equal(d2), name)
		assert.Equal(t, d1.Kind(), d2.Kind())
		assert.True(t, d1.SimpleTypes().Equal(d2.SimpleTypes()))
	}
}

func TestRegistry_Unsupported(t *testing.T) {
	for _, md := range []Metadata{
		{},
		{Name: "db2"},
		{Name: "mongo", Driver: "*mongo.Driver", Version: "7.0"},
		{Name: "auth2", Driver: "*sha2h2.Driver", Version: "1.0-h2o"},
		{Name: "pqx"},
	} {
		d, err := DefaultRegistry().Resolve(md)
		assert.Nil(t, d)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnsupportedDialect))
		var e *UnsupportedDialectError
		require.True(t, errors.As(err, &e))
		assert.Equal(t, md, e.Metadata)
	}
}

func TestRegistry_Order(t *testing.T) {
	pg, _ := Lookup(Postgres)
	h2, _ := Lookup(H2)
	// H2 in PostgreSQL compatibility mode: the first match wins.
	md := Metadata{Name: "h2", Version: "2.2.224 (PostgreSQL mode)"}
	d, err := NewRegistry(h2, pg).Resolve(md)
	require.NoError(t, err)
	assert.Equal(t, H2, d.Name())
	d, err = NewRegistry(pg, h2).Resolve(md)
	require.NoError(t, err)
	assert.Equal(t, Postgres, d.Name())

	_, err = NewRegistry().Resolve(Metadata{Name: "postgres"})
	assert.ErrorIs(t, err, ErrUnsupportedDialect)
}

func TestLookup(t *testing.T) {
	d, err := Lookup("MySQL")
	require.NoError(t, err)
	assert.Equal(t, MySQL, d.Name())
	_, err = Lookup("db2")
	assert.ErrorIs(t, err, ErrUnsupportedDialect)
}

package dialect

import (
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialect_Kind(t *testing.T) {
	want := map[string]Kind{
		Postgres:  Indexed,
		H2:        Indexed,
		MySQL:     Positional,
		SQLite:    Positional,
		SQLServer: Named,
		Oracle:    Named,
	}
	for name, kind := range want {
		d, err := Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, kind, d.Kind(), name)
	}
	assert.Equal(t, "indexed", Indexed.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}

func TestDialect_Quote(t *testing.T) {
	tests := []struct {
		dialect string
		ident   string
		want    string
	}{
		{Postgres, "users", `"users"`},
		{Postgres, "public.users", `"public"."users"`},
		{Postgres, `we"ird`, `"we""ird"`},
		{MySQL, "users", "`users`"},
		{SQLite, "users", `"users"`},
		{SQLServer, "users", "[users]"},
		{SQLServer, "dbo.users", "[dbo].[users]"},
		{SQLServer, "a]b", "[a]]b]"},
		{SQLServer, "a[b", "[a[b]"},
		{MySQL, "a`b", "`a``b`"},
		{Oracle, "*", "*"},
	}
	for _, tt := range tests {
		d, err := Lookup(tt.dialect)
		require.NoError(t, err)
		assert.Equal(t, tt.want, d.Quote(tt.ident))
	}
}

func TestDialect_Limit(t *testing.T) {
	for name, want := range map[string]string{
		Postgres:  "LIMIT 10",
		MySQL:     "LIMIT 10",
		SQLite:    "LIMIT 10",
		SQLServer: "OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY",
		Oracle:    "FETCH FIRST 10 ROWS ONLY",
	} {
		d, err := Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, want, d.Limit(10))
	}
}

type status string

type point struct{ X, Y int }

func TestSimpleTypes(t *testing.T) {
	pg, err := Lookup(Postgres)
	require.NoError(t, err)
	my, err := Lookup(MySQL)
	require.NoError(t, err)

	for _, typ := range []reflect.Type{
		reflect.TypeFor[string](),
		reflect.TypeFor[*string](),
		reflect.TypeFor[int64](),
		reflect.TypeFor[[]byte](),
		reflect.TypeFor[time.Time](),
		reflect.TypeFor[*time.Time](),
		reflect.TypeFor[sql.NullString](),
	} {
		assert.True(t, pg.IsSimpleType(typ), typ.String())
		assert.True(t, my.IsSimpleType(typ), typ.String())
	}

	assert.True(t, pg.IsSimpleType(reflect.TypeFor[pq.StringArray]()))
	assert.True(t, pg.IsSimpleType(reflect.TypeFor[uuid.UUID]()))
	assert.False(t, pg.IsSimpleType(reflect.TypeFor[uint64]()))
	assert.True(t, my.IsSimpleType(reflect.TypeFor[uint64]()))

	assert.False(t, pg.IsSimpleType(reflect.TypeFor[status]()))
	assert.False(t, pg.IsSimpleType(reflect.TypeFor[point]()))
	assert.False(t, pg.IsSimpleType(reflect.TypeFor[[]string]()))
	assert.False(t, pg.IsSimpleType(nil))
}

func TestSimpleTypes_With(t *testing.T) {
	base := NewSimpleTypes()
	ext := base.With(reflect.TypeFor[point]())
	assert.False(t, base.IsSimple(reflect.TypeFor[point]()))
	assert.True(t, ext.IsSimple(reflect.TypeFor[point]()))
	assert.False(t, base.Equal(ext))
	assert.True(t, base.Equal(NewSimpleTypes()))
	assert.Len(t, ext.Types(), len(base.Types())+1)
}

func TestDialect_Equal(t *testing.T) {
	pg, _ := Lookup(Postgres)
	h2, _ := Lookup(H2)
	assert.True(t, pg.Equal(pg))
	assert.False(t, pg.Equal(h2))
	assert.False(t, pg.Equal(nil))
}

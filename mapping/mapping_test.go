package mapping

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type Timestamps struct {
	CreatedAt time.Time `sql:",readonly"`
	UpdatedAt time.Time
}

type UserAccount struct {
	ID       int64
	Email    string `sql:"email_address"`
	FullName string
	HTTPCode int
	Cache    []byte `sql:"-"`
	secret   string
	Timestamps
}

type Pet struct {
	Key   string `sql:"pet_key,id"`
	Name  string
	Owner *int64
}

func (Pet) TableName() string { return "animals" }

func TestSnake(t *testing.T) {
	for in, want := range map[string]string{
		"Username": "username",
		"FullName": "full_name",
		"HTTPCode": "http_code",
		"UserID":   "user_id",
		"ID":       "id",
		"A":        "a",
	} {
		assert.Equal(t, want, snake(in), in)
	}
}

func TestNamingStrategy(t *testing.T) {
	assert.Equal(t, "users", SnakeCase.TableName("User"))
	assert.Equal(t, "user_accounts", SnakeCase.TableName("UserAccount"))
	assert.Equal(t, "categories", SnakeCase.TableName("Category"))
	assert.Equal(t, "created_at", SnakeCase.ColumnName("CreatedAt"))
	assert.Equal(t, "user", Singular.TableName("User"))
	assert.Equal(t, "user_account", Singular.TableName("UserAccount"))
	assert.Equal(t, "full_name", Singular.ColumnName("FullName"))

	s, ok := NamingStrategyOf("")
	assert.True(t, ok)
	assert.Equal(t, SnakeCase, s)
	s, ok = NamingStrategyOf("singular")
	assert.True(t, ok)
	assert.Equal(t, Singular, s)
	_, ok = NamingStrategyOf("camel")
	assert.False(t, ok)
}

func TestContext_Entity(t *testing.T) {
	c := NewContext(nil)
	e, err := c.Entity(&UserAccount{})
	require.NoError(t, err)
	assert.Equal(t, "UserAccount", e.Name)
	assert.Equal(t, "user_accounts", e.Table)
	assert.Equal(t, []string{"id", "email_address", "full_name", "http_code", "created_at", "updated_at"}, e.Columns())
	require.NotNil(t, e.ID)
	assert.Equal(t, "ID", e.ID.Name)

	created, ok := e.Property("created_at")
	require.True(t, ok)
	assert.True(t, created.ReadOnly)
	assert.Equal(t, []int{6, 0}, created.Index)
	assert.Len(t, e.Writable(), 5)

	now := time.Now()
	v := reflect.ValueOf(UserAccount{Email: "a8m@example.com", Timestamps: Timestamps{CreatedAt: now}})
	assert.Equal(t, now, created.Value(v).Interface())
	email, _ := e.Property("Email")
	assert.Equal(t, "a8m@example.com", email.Value(v).Interface())

	_, ok = e.Property("secret")
	assert.False(t, ok)
}

func TestContext_EntityTags(t *testing.T) {
	c := NewContext(Singular)
	e, err := c.Entity(reflect.TypeFor[Pet]())
	require.NoError(t, err)
	assert.Equal(t, "animals", e.Table)
	require.NotNil(t, e.ID)
	assert.Equal(t, "pet_key", e.ID.Column)
	assert.Equal(t, []string{"pet_key", "name", "owner"}, e.Columns())
	assert.Equal(t, Singular, c.NamingStrategy())
}

func TestContext_EntityErrors(t *testing.T) {
	c := NewContext(SnakeCase)
	_, err := c.Entity(42)
	assert.ErrorIs(t, err, ErrNotStruct)
	_, err = c.Entity(nil)
	assert.ErrorIs(t, err, ErrNotStruct)

	type empty struct{ name string }
	_, err = c.Entity(empty{})
	assert.ErrorContains(t, err, "no mapped fields")

	type dup struct {
		A string `sql:"x"`
		B string `sql:"x"`
	}
	_, err = c.Entity(dup{})
	assert.ErrorContains(t, err, `map to column "x"`)

	type twoIDs struct {
		A int `sql:",id"`
		B int `sql:",id"`
	}
	_, err = c.Entity(twoIDs{})
	assert.ErrorContains(t, err, "multiple id fields")

	type badOpt struct {
		A int `sql:",primary"`
	}
	_, err = c.Entity(badOpt{})
	assert.ErrorContains(t, err, `unknown tag option "primary"`)
}

func TestContext_Cached(t *testing.T) {
	c := NewContext(nil)
	var (
		g  errgroup.Group
		es = make([]*Entity, 16)
	)
	for i := range es {
		g.Go(func() (err error) {
			es[i], err = c.Entity(UserAccount{})
			return err
		})
	}
	require.NoError(t, g.Wait())
	for _, e := range es {
		assert.Same(t, es[0], e)
	}
}

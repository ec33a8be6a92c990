package dialect

import (
	"database/sql"
	"reflect"
)

// Binder attaches values to the parameter slots of a driver statement.
// Indexes are zero based.
type Binder interface {
	Bind(index int, v any)
	BindName(name string, v any)
	BindNull(index int, t reflect.Type)
	BindNullName(name string, t reflect.Type)
}

// Args is a Binder that collects the arguments of a database/sql call.
// Indexed values are placed at their position, named values are passed
// as sql.NamedArg in binding order.
type Args struct {
	indexed []any
	named   []any
	nulls   map[any]reflect.Type
}

// NewArgs returns an empty Args.
func NewArgs() *Args {
	return &Args{}
}

// Bind implements Binder.
func (a *Args) Bind(index int, v any) {
	a.grow(index)
	a.indexed[index] = v
}

// BindName implements Binder.
func (a *Args) BindName(name string, v any) {
	a.named = append(a.named, sql.Named(name, v))
}

// BindNull implements Binder.
func (a *Args) BindNull(index int, t reflect.Type) {
	a.grow(index)
	a.indexed[index] = nil
	a.null(index, t)
}

// BindNullName implements Binder.
func (a *Args) BindNullName(name string, t reflect.Type) {
	a.named = append(a.named, sql.Named(name, nil))
	a.null(name, t)
}

func (a *Args) grow(index int) {
	if n := index + 1 - len(a.indexed); n > 0 {
		a.indexed = append(a.indexed, make([]any, n)...)
	}
}

func (a *Args) null(key any, t reflect.Type) {
	if a.nulls == nil {
		a.nulls = make(map[any]reflect.Type)
	}
	a.nulls[key] = t
}

// Values returns the arguments to pass to database/sql.
func (a *Args) Values() []any {
	vs := make([]any, 0, len(a.indexed)+len(a.named))
	vs = append(vs, a.indexed...)
	return append(vs, a.named...)
}

// NullType returns the type of the NULL bound to the given index (int) or
// name (string).
func (a *Args) NullType(key any) (reflect.Type, bool) {
	t, ok := a.nulls[key]
	return t, ok
}

var _ Binder = (*Args)(nil)

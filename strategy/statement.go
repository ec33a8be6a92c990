package strategy

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/syssam/sqlbind/dialect"
)

// Binding pairs a bind marker with the value to bind to it.
type Binding struct {
	// Marker is the marker rendered into the statement.
	Marker dialect.BindMarker
	// Column is the column the value belongs to.
	Column string
	// Value is the store value, after conversion. It is nil for NULLs.
	Value any
	// Null reports if the binding is a typed NULL of type Type.
	Null bool
	Type reflect.Type
}

// Apply binds the value to b.
func (bd Binding) Apply(b dialect.Binder) {
	if bd.Null {
		bd.Marker.BindNull(b, bd.Type)
		return
	}
	bd.Marker.Bind(b, bd.Value)
}

// Statement is a built SQL statement with its bindings, in the order the
// markers appear in the SQL text.
type Statement struct {
	SQL      string
	Bindings []Binding
}

// BindTo applies all bindings to b.
func (s *Statement) BindTo(b dialect.Binder) {
	for _, bd := range s.Bindings {
		bd.Apply(b)
	}
}

// Args returns the arguments for executing the statement with database/sql.
func (s *Statement) Args() []any {
	args := dialect.NewArgs()
	s.BindTo(args)
	return args.Values()
}

// String returns the SQL text followed by the bindings, for debugging.
func (s *Statement) String() string {
	var b strings.Builder
	b.WriteString(s.SQL)
	for _, bd := range s.Bindings {
		b.WriteString("\n  ")
		b.WriteString(bd.Marker.Placeholder())
		b.WriteString("\t")
		b.WriteString(bd.Column)
		b.WriteString(" = ")
		if bd.Null {
			fmt.Fprintf(&b, "NULL(%v)", bd.Type)
		} else {
			fmt.Fprintf(&b, "%v", bd.Value)
		}
	}
	return b.String()
}

// Package mapping derives table and column metadata from Go structs.
//
// Exported struct fields map to columns in declaration order. Embedded
// structs are flattened in place. The "sql" struct tag overrides the column
// name and marks the id or read-only columns:
//
//	type User struct {
//	    ID        int64     `sql:"id,id"`
//	    Email     string    `sql:"email_address"`
//	    CreatedAt time.Time `sql:",readonly"`
//	    Cache     []byte    `sql:"-"`
//	}
//
// A struct may name its own table by implementing Tabler.
package mapping

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Tabler is implemented by structs that name their table.
type Tabler interface {
	TableName() string
}

// Entity is the mapping metadata of a struct type.
type Entity struct {
	// Name is the Go type name.
	Name string
	// Table is the table name.
	Table string
	// Type is the struct type.
	Type reflect.Type
	// Properties are the mapped fields in declaration order.
	Properties []*Property
	// ID is the id property, if any.
	ID *Property
}

// Property is the mapping metadata of a struct field.
type Property struct {
	// Name is the Go field name.
	Name string
	// Column is the column name.
	Column string
	// Type is the field type.
	Type reflect.Type
	// Index is the field index sequence for reflect.Value.FieldByIndex.
	Index []int
	// ID reports if the property is the entity id.
	ID bool
	// ReadOnly properties are read, but never written.
	ReadOnly bool
}

// Columns returns the column names of all properties.
func (e *Entity) Columns() []string {
	cs := make([]string, len(e.Properties))
	for i, p := range e.Properties {
		cs[i] = p.Column
	}
	return cs
}

// Property returns the property with the given field or column name.
func (e *Entity) Property(name string) (*Property, bool) {
	for _, p := range e.Properties {
		if p.Name == name || p.Column == name {
			return p, true
		}
	}
	return nil, false
}

// Writable returns the properties written by inserts: all but read-only ones.
func (e *Entity) Writable() []*Property {
	ps := make([]*Property, 0, len(e.Properties))
	for _, p := range e.Properties {
		if !p.ReadOnly {
			ps = append(ps, p)
		}
	}
	return ps
}

// Value returns the value of the property in the struct value v. Nil
// embedded pointers yield an invalid value.
func (p *Property) Value(v reflect.Value) reflect.Value {
	f, err := v.FieldByIndexErr(p.Index)
	if err != nil {
		return reflect.Value{}
	}
	return f
}

// ErrNotStruct is returned for values that are not structs or pointers to structs.
var ErrNotStruct = errors.New("mapping: not a struct")

// Context creates and caches entity metadata. It is safe for concurrent use.
type Context struct {
	naming   NamingStrategy
	entities sync.Map // reflect.Type => *Entity
}

// NewContext returns a mapping context that names tables and columns with
// the given strategy. A nil strategy means SnakeCase.
func NewContext(naming NamingStrategy) *Context {
	if naming == nil {
		naming = SnakeCase
	}
	return &Context{naming: naming}
}

// NamingStrategy returns the naming strategy of the context.
func (c *Context) NamingStrategy() NamingStrategy {
	return c.naming
}

// Entity returns the metadata of the struct type of v. v may be a struct,
// a pointer to a struct, or a reflect.Type of either.
func (c *Context) Entity(v any) (*Entity, error) {
	t, ok := v.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(v)
	}
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v", ErrNotStruct, t)
	}
	if e, ok := c.entities.Load(t); ok {
		return e.(*Entity), nil
	}
	e, err := c.entity(t)
	if err != nil {
		return nil, err
	}
	actual, _ := c.entities.LoadOrStore(t, e)
	return actual.(*Entity), nil
}

func (c *Context) entity(t reflect.Type) (*Entity, error) {
	e := &Entity{
		Name:  t.Name(),
		Table: c.naming.TableName(t.Name()),
		Type:  t,
	}
	if tb, ok := reflect.New(t).Interface().(Tabler); ok {
		e.Table = tb.TableName()
	}
	if err := c.fields(e, t, nil); err != nil {
		return nil, err
	}
	if len(e.Properties) == 0 {
		return nil, fmt.Errorf("mapping: struct %s has no mapped fields", t)
	}
	seen := make(map[string]string, len(e.Properties))
	for _, p := range e.Properties {
		if prev, ok := seen[p.Column]; ok {
			return nil, fmt.Errorf("mapping: struct %s: fields %s and %s map to column %q", t, prev, p.Name, p.Column)
		}
		seen[p.Column] = p.Name
		if !p.ID {
			continue
		}
		if e.ID != nil {
			return nil, fmt.Errorf("mapping: struct %s: multiple id fields (%s, %s)", t, e.ID.Name, p.Name)
		}
		e.ID = p
	}
	// A field named ID is the id by convention.
	if e.ID == nil {
		if p, ok := e.Property("ID"); ok {
			p.ID = true
			e.ID = p
		}
	}
	return e, nil
}

func (c *Context) fields(e *Entity, t reflect.Type, index []int) error {
	for i := range t.NumField() {
		f := t.Field(i)
		tag, hasTag := f.Tag.Lookup("sql")
		if tag == "-" {
			continue
		}
		idx := append(append([]int(nil), index...), i)
		ft := f.Type
		if f.Anonymous && !hasTag {
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if err := c.fields(e, ft, idx); err != nil {
					return err
				}
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		p := &Property{
			Name:   f.Name,
			Column: c.naming.ColumnName(f.Name),
			Type:   f.Type,
			Index:  idx,
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name != "" {
			p.Column = name
		}
		for opt := range strings.SplitSeq(opts, ",") {
			switch strings.TrimSpace(opt) {
			case "":
			case "id":
				p.ID = true
			case "readonly":
				p.ReadOnly = true
			default:
				return fmt.Errorf("mapping: field %s.%s: unknown tag option %q", t, f.Name, opt)
			}
		}
		e.Properties = append(e.Properties, p)
	}
	return nil
}

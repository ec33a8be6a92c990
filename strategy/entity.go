package strategy

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/syssam/sqlbind/mapping"
)

// Scanner is the row cursor read by Scan. It is implemented by *sql.Rows.
type Scanner interface {
	Columns() ([]string, error)
	Scan(dest ...any) error
}

// OutboundRow returns the columns of the entity v in declaration order,
// with their values. Read-only properties are skipped.
func (s *Strategy) OutboundRow(v any) ([]Column, error) {
	e, rv, err := s.entity(v)
	if err != nil {
		return nil, err
	}
	ps := e.Writable()
	cs := make([]Column, 0, len(ps))
	for _, p := range ps {
		cs = append(cs, s.column(p, rv))
	}
	return cs, nil
}

// Insert builds an insert of the entity v. A zero id is left out, so that
// the database can generate it.
func (s *Strategy) Insert(v any) (*Statement, error) {
	e, rv, err := s.entity(v)
	if err != nil {
		return nil, err
	}
	op := &Operation{Kind: OpInsert, Table: e.Table}
	for _, p := range e.Writable() {
		c := s.column(p, rv)
		if p.ID && isZero(c.Value) {
			continue
		}
		op.Columns = append(op.Columns, c)
	}
	return s.Build(op)
}

// Update builds an update of all writable columns of the entity v, matched
// by its id.
func (s *Strategy) Update(v any) (*Statement, error) {
	e, rv, err := s.entity(v)
	if err != nil {
		return nil, err
	}
	if e.ID == nil {
		return nil, noID(OpUpdate, e)
	}
	op := &Operation{Kind: OpUpdate, Table: e.Table}
	for _, p := range e.Writable() {
		if !p.ID {
			op.Columns = append(op.Columns, s.column(p, rv))
		}
	}
	op.Where = EQ(e.ID.Column, s.column(e.ID, rv).Value)
	return s.Build(op)
}

// Delete builds a delete of the entity v, matched by its id.
func (s *Strategy) Delete(v any) (*Statement, error) {
	e, rv, err := s.entity(v)
	if err != nil {
		return nil, err
	}
	if e.ID == nil {
		return nil, noID(OpDelete, e)
	}
	return s.Build(Delete(e.Table).Filter(EQ(e.ID.Column, s.column(e.ID, rv).Value)))
}

// SelectByID builds a select of the entity type of v with the given id.
func (s *Strategy) SelectByID(v, id any) (*Statement, error) {
	e, err := s.mapping.Entity(v)
	if err != nil {
		return nil, err
	}
	if e.ID == nil {
		return nil, noID(OpSelect, e)
	}
	return s.Build(Select(e.Table, e.Columns()...).Filter(EQ(e.ID.Column, id)))
}

// SelectOption configures an entity select.
type SelectOption func(*Operation)

// Where restricts the selected rows.
func Where(p *Predicate) SelectOption {
	return func(op *Operation) { op.Filter(p) }
}

// OrderBy orders the selected rows.
func OrderBy(os ...Order) SelectOption {
	return func(op *Operation) { op.Order(os...) }
}

// Limit limits the number of selected rows.
func Limit(n int) SelectOption {
	return func(op *Operation) { op.Take(n) }
}

// Select builds a select of all columns of the entity type of v.
func (s *Strategy) Select(v any, opts ...SelectOption) (*Statement, error) {
	e, err := s.mapping.Entity(v)
	if err != nil {
		return nil, err
	}
	op := Select(e.Table, e.Columns()...)
	for _, opt := range opts {
		opt(op)
	}
	return s.Build(op)
}

// Scan reads the current row of rows into dst, a pointer to a mapped
// struct. Columns without a matching property are ignored.
func (s *Strategy) Scan(rows Scanner, dst any) error {
	rv := reflect.ValueOf(dst)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("strategy: scan into %T: %w", dst, mapping.ErrNotStruct)
	}
	e, err := s.mapping.Entity(rv.Type())
	if err != nil {
		return err
	}
	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("strategy: scan columns: %w", err)
	}
	raw := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return fmt.Errorf("strategy: scan row: %w", err)
	}
	for i, name := range columns {
		p, ok := e.Property(name)
		if !ok || p.Column != name {
			continue
		}
		v, err := s.conv.Read(raw[i], p.Type)
		if err != nil {
			return fmt.Errorf("strategy: scan column %q: %w", name, err)
		}
		f, err := fieldByIndex(rv.Elem(), p.Index)
		if err != nil {
			return fmt.Errorf("strategy: scan column %q: %w", name, err)
		}
		if v == nil {
			f.SetZero()
		} else {
			f.Set(reflect.ValueOf(v))
		}
	}
	return nil
}

// entity returns the mapping of v and its struct value.
func (s *Strategy) entity(v any) (*mapping.Entity, reflect.Value, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, reflect.Value{}, fmt.Errorf("strategy: nil %T: %w", v, mapping.ErrNotStruct)
		}
		rv = rv.Elem()
	}
	e, err := s.mapping.Entity(v)
	if err != nil {
		return nil, reflect.Value{}, err
	}
	return e, rv, nil
}

// column returns the column of p in the struct value rv. Properties behind
// nil embedded pointers are written as NULL.
func (s *Strategy) column(p *mapping.Property, rv reflect.Value) Column {
	c := Column{Name: p.Column, Type: p.Type}
	if f := p.Value(rv); f.IsValid() {
		c.Value = f.Interface()
	}
	return c
}

func isZero(v any) bool {
	return v == nil || reflect.ValueOf(v).IsZero()
}

func noID(op OpKind, e *mapping.Entity) error {
	return &InvalidOperationError{Op: op, Table: e.Table, Reason: fmt.Sprintf("entity %s has no id", e.Name)}
}

var errNilEmbedded = errors.New("nil embedded pointer")

// fieldByIndex returns the nested field of v, allocating nil embedded
// struct pointers on the way.
func fieldByIndex(v reflect.Value, index []int) (reflect.Value, error) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, errNilEmbedded
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, nil
}

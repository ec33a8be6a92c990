// Package strategy builds dialect-specific SQL statements and the ordered
// bind actions that go with them.
//
// A Strategy is created once per dialect. Every Build call allocates a fresh
// set of bind markers, so statements never share marker state:
//
//	s, err := strategy.New(strategy.Config{Dialect: d})
//	if err != nil {
//		return err
//	}
//	stmt, err := s.Build(strategy.Insert("users",
//		strategy.Col("id", 1),
//		strategy.Col("name", "a8m"),
//	))
//	if err != nil {
//		return err
//	}
//	_, err = db.ExecContext(ctx, stmt.SQL, stmt.Args()...)
package strategy

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/syssam/sqlbind/conversion"
	"github.com/syssam/sqlbind/dialect"
	"github.com/syssam/sqlbind/mapping"
)

// Config configures a Strategy.
type Config struct {
	// Dialect is required.
	Dialect *dialect.Dialect
	// Mapping defaults to a snake_case mapping context.
	Mapping *mapping.Context
	// Conversions holds custom converters. The dialect's simple types are
	// added to it.
	Conversions *conversion.Conversions
}

// Strategy builds statements for a single dialect. It is safe for
// concurrent use.
type Strategy struct {
	dialect *dialect.Dialect
	mapping *mapping.Context
	conv    *conversion.Conversions
}

// New returns a strategy for the configured dialect.
func New(cfg Config) (*Strategy, error) {
	if cfg.Dialect == nil {
		return nil, fmt.Errorf("strategy: missing dialect: %w", dialect.ErrUnsupportedDialect)
	}
	s := &Strategy{dialect: cfg.Dialect, mapping: cfg.Mapping, conv: cfg.Conversions}
	if s.mapping == nil {
		s.mapping = mapping.NewContext(nil)
	}
	if s.conv == nil {
		s.conv = conversion.New()
	}
	s.conv = s.conv.WithSimpleTypes(cfg.Dialect.SimpleTypes())
	return s, nil
}

// Dialect returns the strategy dialect.
func (s *Strategy) Dialect() *dialect.Dialect { return s.dialect }

// Mapping returns the mapping context.
func (s *Strategy) Mapping() *mapping.Context { return s.mapping }

// Conversions returns the conversions, including the dialect simple types.
func (s *Strategy) Conversions() *conversion.Conversions { return s.conv }

// Build renders op into a statement. Markers are allocated in the order
// they appear in the SQL text: written columns first, then the where
// clause. On error, no statement is returned.
func (s *Strategy) Build(op *Operation) (*Statement, error) {
	if op == nil {
		return nil, &InvalidOperationError{Reason: "nil operation"}
	}
	if err := s.validate(op); err != nil {
		return nil, err
	}
	b := &builder{s: s, op: op, markers: s.dialect.BindMarkers()}
	switch op.Kind {
	case OpInsert:
		b.insert()
	case OpUpdate:
		b.update()
	case OpDelete:
		b.delete()
	case OpSelect:
		b.query()
	}
	if b.err != nil {
		return nil, b.err
	}
	return &Statement{SQL: b.String(), Bindings: b.bindings}, nil
}

func (s *Strategy) validate(op *Operation) error {
	invalid := func(format string, args ...any) error {
		return &InvalidOperationError{Op: op.Kind, Table: op.Table, Reason: fmt.Sprintf(format, args...)}
	}
	switch op.Kind {
	case OpInsert, OpUpdate, OpSelect:
		if len(op.Columns) == 0 {
			return invalid("no columns")
		}
	case OpDelete:
		if len(op.Columns) > 0 {
			return invalid("delete does not take columns")
		}
	default:
		return invalid("unknown operation kind")
	}
	if op.Table == "" {
		return invalid("missing table")
	}
	seen := make(map[string]struct{}, len(op.Columns))
	for i, c := range op.Columns {
		if c.Name == "" {
			return invalid("column %d has no name", i)
		}
		if _, ok := seen[c.Name]; ok && op.Kind != OpSelect {
			return invalid("duplicate column %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	if op.Kind == OpInsert && op.Where != nil {
		return invalid("insert does not take a where clause")
	}
	if op.Kind != OpSelect && (len(op.OrderBy) > 0 || op.Limit != 0) {
		return invalid("order and limit only apply to select")
	}
	if op.Limit < 0 {
		return invalid("negative limit %d", op.Limit)
	}
	for _, o := range op.OrderBy {
		if o.Column == "" {
			return invalid("order term has no column")
		}
	}
	if op.Where != nil {
		if err := checkPredicate(op.Where); err != nil {
			return invalid("%s", err)
		}
	}
	return nil
}

func checkPredicate(p *Predicate) error {
	switch {
	case p == nil:
		return fmt.Errorf("nil predicate")
	case p.op == opAnd || p.op == opOr || p.op == opNot:
		if len(p.children) == 0 {
			return fmt.Errorf("empty logical predicate")
		}
		for _, c := range p.children {
			if err := checkPredicate(c); err != nil {
				return err
			}
		}
	case p.column == "":
		return fmt.Errorf("predicate has no column")
	case (p.op == opIn || p.op == opNotIn) && len(p.values) == 0:
		return fmt.Errorf("IN predicate on %q has no values", p.column)
	}
	return nil
}

// builder renders a single statement.
type builder struct {
	strings.Builder
	s        *Strategy
	op       *Operation
	markers  dialect.BindMarkers
	bindings []Binding
	err      error
}

func (b *builder) insert() {
	b.WriteString("INSERT INTO ")
	b.ident(b.op.Table)
	b.WriteString(" (")
	for i, c := range b.op.Columns {
		b.comma(i)
		b.ident(c.Name)
	}
	b.WriteString(") VALUES (")
	for i, c := range b.op.Columns {
		b.comma(i)
		b.arg(c.Name, c.Value, c.Type)
	}
	b.WriteByte(')')
}

func (b *builder) update() {
	b.WriteString("UPDATE ")
	b.ident(b.op.Table)
	b.WriteString(" SET ")
	for i, c := range b.op.Columns {
		b.comma(i)
		b.ident(c.Name)
		b.WriteString(" = ")
		b.arg(c.Name, c.Value, c.Type)
	}
	b.where()
}

func (b *builder) delete() {
	b.WriteString("DELETE FROM ")
	b.ident(b.op.Table)
	b.where()
}

func (b *builder) query() {
	b.WriteString("SELECT ")
	for i, c := range b.op.Columns {
		b.comma(i)
		b.ident(c.Name)
	}
	b.WriteString(" FROM ")
	b.ident(b.op.Table)
	b.where()
	switch {
	case len(b.op.OrderBy) > 0:
		b.WriteString(" ORDER BY ")
		for i, o := range b.op.OrderBy {
			b.comma(i)
			b.ident(o.Column)
			if o.Desc {
				b.WriteString(" DESC")
			}
		}
	case b.op.Limit > 0 && b.s.dialect.Name() == dialect.SQLServer:
		// OFFSET/FETCH requires an ORDER BY clause.
		b.WriteString(" ORDER BY (SELECT NULL)")
	}
	if b.op.Limit > 0 {
		b.WriteByte(' ')
		b.WriteString(b.s.dialect.Limit(b.op.Limit))
	}
}

func (b *builder) where() {
	if b.op.Where == nil {
		return
	}
	b.WriteString(" WHERE ")
	b.pred(b.op.Where, false)
}

// pred renders p. Nested logical predicates are wrapped in parentheses.
func (b *builder) pred(p *Predicate, nested bool) {
	switch p.op {
	case opAnd, opOr:
		sep := " AND "
		if p.op == opOr {
			sep = " OR "
		}
		wrap := nested && len(p.children) > 1
		if wrap {
			b.WriteByte('(')
		}
		for i, c := range p.children {
			if i > 0 {
				b.WriteString(sep)
			}
			b.pred(c, true)
		}
		if wrap {
			b.WriteByte(')')
		}
	case opNot:
		b.WriteString("NOT (")
		b.pred(p.children[0], false)
		b.WriteByte(')')
	case opIsNull:
		b.ident(p.column)
		b.WriteString(" IS NULL")
	case opNotNull:
		b.ident(p.column)
		b.WriteString(" IS NOT NULL")
	case opIn, opNotIn:
		b.ident(p.column)
		if p.op == opNotIn {
			b.WriteString(" NOT")
		}
		b.WriteString(" IN (")
		for i, v := range p.values {
			b.comma(i)
			b.arg(p.column, v, nil)
		}
		b.WriteByte(')')
	default:
		b.ident(p.column)
		b.WriteByte(' ')
		b.WriteString(comparisons[p.op])
		b.WriteByte(' ')
		b.arg(p.column, p.values[0], nil)
	}
}

func (b *builder) ident(s string) {
	b.WriteString(b.s.dialect.Quote(s))
}

func (b *builder) comma(i int) {
	if i > 0 {
		b.WriteString(", ")
	}
}

// arg allocates the next marker for column and records how to bind v to it.
func (b *builder) arg(column string, v any, t reflect.Type) {
	m := b.markers.NextHint(column)
	b.WriteString(m.Placeholder())
	if b.err != nil {
		return
	}
	bd := Binding{Marker: m, Column: column}
	if null, typ := isNull(v, t); null {
		bd.Null, bd.Type = true, typ
		b.bindings = append(b.bindings, bd)
		return
	}
	sv, err := b.s.conv.Write(v)
	if err != nil {
		b.err = fmt.Errorf("strategy: bind column %q: %w", column, err)
		return
	}
	if sv == nil {
		bd.Null, bd.Type = true, elem(reflect.TypeOf(v))
	} else {
		bd.Value = sv
	}
	b.bindings = append(b.bindings, bd)
}

// isNull reports if v is nil or a nil pointer, and the type of the NULL.
func isNull(v any, t reflect.Type) (bool, reflect.Type) {
	if v == nil {
		return true, elem(t)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		if t == nil {
			t = rv.Type()
		}
		return true, elem(t)
	}
	return false, nil
}

func elem(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

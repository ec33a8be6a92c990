// Package stmtfile reads operations from YAML statement files:
//
//	statements:
//	  - name: adults
//	    op: select
//	    table: users
//	    columns: [id, name]
//	    where:
//	      and:
//	        - {column: age, op: gte, value: 18}
//	        - {column: deleted_at, op: is_null}
//	    order_by: [name, -age]
//	    limit: 10
//
// Written operations list their values in the order of their columns.
package stmtfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syssam/sqlbind/strategy"
)

// File is a decoded statement file.
type File struct {
	Statements []*Statement `yaml:"statements"`
}

// Statement describes one operation.
type Statement struct {
	Name    string   `yaml:"name"`
	Op      string   `yaml:"op"`
	Table   string   `yaml:"table"`
	Columns []string `yaml:"columns"`
	Values  []any    `yaml:"values"`
	Where   *Where   `yaml:"where"`
	// OrderBy terms sort ascending, or descending with a "-" prefix.
	OrderBy []string `yaml:"order_by"`
	Limit   int      `yaml:"limit"`
}

// Where is a predicate tree. Exactly one of Column, And, Or and Not is set.
type Where struct {
	Column string   `yaml:"column"`
	Op     string   `yaml:"op"`
	Value  any      `yaml:"value"`
	Values []any    `yaml:"values"`
	And    []*Where `yaml:"and"`
	Or     []*Where `yaml:"or"`
	Not    *Where   `yaml:"not"`
}

// Load reads the statement file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("stmtfile: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return f, nil
}

// Parse decodes a statement file. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	f := &File{}
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("stmtfile: parse: %w", err)
	}
	for i, s := range f.Statements {
		if s == nil {
			return nil, fmt.Errorf("stmtfile: statement %d is empty", i)
		}
		if s.Name == "" {
			s.Name = fmt.Sprintf("%s %s", s.Op, s.Table)
		}
	}
	return f, nil
}

// Operation converts the statement to a strategy operation.
func (s *Statement) Operation() (*strategy.Operation, error) {
	kind, err := strategy.ParseOpKind(strings.ToLower(s.Op))
	if err != nil {
		return nil, s.errorf("%w", err)
	}
	var op *strategy.Operation
	switch kind {
	case strategy.OpSelect:
		if len(s.Values) > 0 {
			return nil, s.errorf("select does not take values")
		}
		op = strategy.Select(s.Table, s.Columns...)
	case strategy.OpDelete:
		if len(s.Columns) > 0 || len(s.Values) > 0 {
			return nil, s.errorf("delete does not take columns")
		}
		op = strategy.Delete(s.Table)
	default:
		if len(s.Columns) != len(s.Values) {
			return nil, s.errorf("%d columns and %d values", len(s.Columns), len(s.Values))
		}
		cols := make([]strategy.Column, len(s.Columns))
		for i, c := range s.Columns {
			cols[i] = strategy.Col(c, s.Values[i])
		}
		if kind == strategy.OpInsert {
			op = strategy.Insert(s.Table, cols...)
		} else {
			op = strategy.Update(s.Table, cols...)
		}
	}
	if s.Where != nil {
		p, err := s.Where.Predicate()
		if err != nil {
			return nil, s.errorf("where: %w", err)
		}
		op.Filter(p)
	}
	for _, o := range s.OrderBy {
		if c, ok := strings.CutPrefix(o, "-"); ok {
			op.Order(strategy.Desc(c))
		} else {
			op.Order(strategy.Asc(o))
		}
	}
	return op.Take(s.Limit), nil
}

func (s *Statement) errorf(format string, args ...any) error {
	return fmt.Errorf("stmtfile: %s: "+format, append([]any{s.Name}, args...)...)
}

// Predicate converts the tree to a strategy predicate.
func (w *Where) Predicate() (*strategy.Predicate, error) {
	set := 0
	for _, ok := range []bool{w.Column != "", len(w.And) > 0, len(w.Or) > 0, w.Not != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, errors.New("expect exactly one of column, and, or, not")
	}
	switch {
	case len(w.And) > 0:
		ps, err := predicates(w.And)
		if err != nil {
			return nil, err
		}
		return strategy.And(ps...), nil
	case len(w.Or) > 0:
		ps, err := predicates(w.Or)
		if err != nil {
			return nil, err
		}
		return strategy.Or(ps...), nil
	case w.Not != nil:
		p, err := w.Not.Predicate()
		if err != nil {
			return nil, err
		}
		return strategy.Not(p), nil
	}
	switch op := strings.ToLower(w.Op); op {
	case "", "eq", "=":
		return strategy.EQ(w.Column, w.Value), nil
	case "neq", "<>", "!=":
		return strategy.NEQ(w.Column, w.Value), nil
	case "gt", ">":
		return strategy.GT(w.Column, w.Value), nil
	case "gte", ">=":
		return strategy.GTE(w.Column, w.Value), nil
	case "lt", "<":
		return strategy.LT(w.Column, w.Value), nil
	case "lte", "<=":
		return strategy.LTE(w.Column, w.Value), nil
	case "like":
		pattern, ok := w.Value.(string)
		if !ok {
			return nil, fmt.Errorf("like on %q expects a string pattern, got %T", w.Column, w.Value)
		}
		return strategy.Like(w.Column, pattern), nil
	case "in":
		return strategy.In(w.Column, w.Values...), nil
	case "not_in":
		return strategy.NotIn(w.Column, w.Values...), nil
	case "is_null":
		return strategy.IsNull(w.Column), nil
	case "not_null":
		return strategy.NotNull(w.Column), nil
	default:
		return nil, fmt.Errorf("unknown operator %q", w.Op)
	}
}

func predicates(ws []*Where) ([]*strategy.Predicate, error) {
	ps := make([]*strategy.Predicate, 0, len(ws))
	for _, w := range ws {
		if w == nil {
			return nil, errors.New("empty predicate")
		}
		p, err := w.Predicate()
		if err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	return ps, nil
}

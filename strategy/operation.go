package strategy

import (
	"fmt"
	"reflect"
)

// OpKind is the kind of a statement.
type OpKind uint8

// Operation kinds.
const (
	OpInsert OpKind = iota + 1
	OpUpdate
	OpDelete
	OpSelect
)

var opNames = [...]string{
	OpInsert: "insert",
	OpUpdate: "update",
	OpDelete: "delete",
	OpSelect: "select",
}

// String returns the operation name.
func (k OpKind) String() string {
	if k == 0 || int(k) >= len(opNames) {
		return fmt.Sprintf("OpKind(%d)", k)
	}
	return opNames[k]
}

// ParseOpKind returns the operation kind with the given name.
func ParseOpKind(s string) (OpKind, error) {
	for k, name := range opNames {
		if name != "" && name == s {
			return OpKind(k), nil
		}
	}
	return 0, fmt.Errorf("strategy: unknown operation %q", s)
}

// Column is a column participating in an operation. Written columns carry
// a value; selected columns only need a name.
type Column struct {
	Name  string
	Value any
	// Type is the column type, used to bind typed NULLs when Value is nil.
	// If unset, the type of Value is used.
	Type reflect.Type
}

// Col returns a column with the given value.
func Col(name string, v any) Column {
	return Column{Name: name, Value: v}
}

// Order is an ORDER BY term.
type Order struct {
	Column string
	Desc   bool
}

// Asc returns an ascending order term.
func Asc(column string) Order { return Order{Column: column} }

// Desc returns a descending order term.
func Desc(column string) Order { return Order{Column: column, Desc: true} }

// Operation describes a statement to build.
type Operation struct {
	Kind  OpKind
	Table string
	// Columns are written by inserts and updates, and read by selects.
	// They are rendered in the given order.
	Columns []Column
	// Where restricts updates, deletes and selects.
	Where *Predicate
	// OrderBy and Limit apply to selects. A zero Limit means no limit.
	OrderBy []Order
	Limit   int
}

// Insert returns an insert operation.
func Insert(table string, columns ...Column) *Operation {
	return &Operation{Kind: OpInsert, Table: table, Columns: columns}
}

// Update returns an update operation.
func Update(table string, columns ...Column) *Operation {
	return &Operation{Kind: OpUpdate, Table: table, Columns: columns}
}

// Delete returns a delete operation.
func Delete(table string) *Operation {
	return &Operation{Kind: OpDelete, Table: table}
}

// Select returns a select operation reading the given columns.
func Select(table string, columns ...string) *Operation {
	op := &Operation{Kind: OpSelect, Table: table}
	for _, c := range columns {
		op.Columns = append(op.Columns, Column{Name: c})
	}
	return op
}

// Filter sets the where predicate of the operation. Multiple calls are
// combined with AND.
func (op *Operation) Filter(p *Predicate) *Operation {
	if op.Where == nil {
		op.Where = p
	} else {
		op.Where = And(op.Where, p)
	}
	return op
}

// Order appends order terms.
func (op *Operation) Order(os ...Order) *Operation {
	op.OrderBy = append(op.OrderBy, os...)
	return op
}

// Take sets the row limit.
func (op *Operation) Take(n int) *Operation {
	op.Limit = n
	return op
}

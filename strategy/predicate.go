package strategy

// predOp is the operator of a predicate.
type predOp uint8

const (
	opEQ predOp = iota + 1
	opNEQ
	opGT
	opGTE
	opLT
	opLTE
	opLike
	opIn
	opNotIn
	opIsNull
	opNotNull
	opAnd
	opOr
	opNot
)

var comparisons = map[predOp]string{
	opEQ:   "=",
	opNEQ:  "<>",
	opGT:   ">",
	opGTE:  ">=",
	opLT:   "<",
	opLTE:  "<=",
	opLike: "LIKE",
}

// Predicate is a WHERE condition. Predicates are immutable.
type Predicate struct {
	op       predOp
	column   string
	values   []any
	children []*Predicate
}

// Column returns the column of a comparison predicate.
func (p *Predicate) Column() string { return p.column }

// EQ returns a predicate that checks if the column equals v.
func EQ(column string, v any) *Predicate { return cmp(opEQ, column, v) }

// NEQ returns a predicate that checks if the column does not equal v.
func NEQ(column string, v any) *Predicate { return cmp(opNEQ, column, v) }

// GT returns a predicate that checks if the column is greater than v.
func GT(column string, v any) *Predicate { return cmp(opGT, column, v) }

// GTE returns a predicate that checks if the column is greater than or equal to v.
func GTE(column string, v any) *Predicate { return cmp(opGTE, column, v) }

// LT returns a predicate that checks if the column is less than v.
func LT(column string, v any) *Predicate { return cmp(opLT, column, v) }

// LTE returns a predicate that checks if the column is less than or equal to v.
func LTE(column string, v any) *Predicate { return cmp(opLTE, column, v) }

// Like returns a predicate that matches the column against a LIKE pattern.
func Like(column, pattern string) *Predicate { return cmp(opLike, column, pattern) }

// In returns a predicate that checks if the column value is in vs.
// At least one value is required.
func In(column string, vs ...any) *Predicate {
	return &Predicate{op: opIn, column: column, values: vs}
}

// NotIn returns a predicate that checks if the column value is not in vs.
// At least one value is required.
func NotIn(column string, vs ...any) *Predicate {
	return &Predicate{op: opNotIn, column: column, values: vs}
}

// IsNull returns a predicate that checks if the column is NULL.
func IsNull(column string) *Predicate {
	return &Predicate{op: opIsNull, column: column}
}

// NotNull returns a predicate that checks if the column is not NULL.
func NotNull(column string) *Predicate {
	return &Predicate{op: opNotNull, column: column}
}

// And returns a predicate that holds if all ps hold.
func And(ps ...*Predicate) *Predicate {
	return &Predicate{op: opAnd, children: ps}
}

// Or returns a predicate that holds if any of ps holds.
func Or(ps ...*Predicate) *Predicate {
	return &Predicate{op: opOr, children: ps}
}

// Not negates p.
func Not(p *Predicate) *Predicate {
	return &Predicate{op: opNot, children: []*Predicate{p}}
}

func cmp(op predOp, column string, v any) *Predicate {
	return &Predicate{op: op, column: column, values: []any{v}}
}

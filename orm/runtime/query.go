package runtime

import (
	"fmt"
)

type Operator string

const (
	OpEqual       Operator = "="
	OpNotEqual    Operator = "<>"
	OpGreaterThan Operator = ">"
	OpLessThan    Operator = "<"
	OpGTE         Operator = ">="
	OpLTE         Operator = "<="
	OpLike        Operator = "LIKE"
	OpILike       Operator = "ILIKE"
)

type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// NullsOrder places NULLs explicitly within an ORDER BY term.
type NullsOrder string

const (
	NullsDefault NullsOrder = ""
	NullsFirst   NullsOrder = "NULLS FIRST"
	NullsLast    NullsOrder = "NULLS LAST"
)

// Predicate is a flat column comparison. Predicates listed on a spec are ANDed ahead of
// the spec's Where expression.
type Predicate struct {
	Column   string
	Operator Operator
	Value    any
}

// Order is one ORDER BY term. Expr takes precedence over Column when both are set.
type Order struct {
	Column    string
	Expr      Expr
	Direction SortDirection
	Nulls     NullsOrder
}

// NullsLast returns a copy of the order that sorts NULLs after every other value.
func (o Order) NullsLast() Order {
	o.Nulls = NullsLast
	return o
}

// NullsFirst returns a copy of the order that sorts NULLs before every other value.
func (o Order) NullsFirst() Order {
	o.Nulls = NullsFirst
	return o
}

type JoinKind string

const (
	JoinInner JoinKind = "JOIN"
	JoinLeft  JoinKind = "LEFT JOIN"
	JoinRight JoinKind = "RIGHT JOIN"
	// JoinCross pairs every row of both sides; filter the pairs through Where to express
	// a theta join between unrelated tables.
	JoinCross JoinKind = "CROSS JOIN"
)

type Join struct {
	Kind  JoinKind
	Table string
	Alias string
	On    Expr
}

type SelectSpec struct {
	Table      string
	Alias      string
	Distinct   bool
	Columns    []string
	Projection []Expr
	Joins      []Join
	Predicates []Predicate
	Where      Expr
	GroupBy    []Expr
	Having     Expr
	Orders     []Order
	Limit      int
	Offset     int
}

// Filter returns the combined WHERE condition of the spec.
func (spec SelectSpec) Filter() Expr {
	return whereOf(spec.Predicates, spec.Where)
}

func (spec SelectSpec) Validate() error {
	if spec.Table == "" {
		return fmt.Errorf("table name is required")
	}
	for i, join := range spec.Joins {
		if join.Table == "" {
			return fmt.Errorf("join %d: table name is required", i)
		}
	}
	if spec.Limit < 0 || spec.Offset < 0 {
		return fmt.Errorf("limit and offset must not be negative")
	}
	return nil
}

type AggregateFunc string

const (
	AggCount AggregateFunc = "COUNT"
	AggSum   AggregateFunc = "SUM"
	AggAvg   AggregateFunc = "AVG"
	AggMin   AggregateFunc = "MIN"
	AggMax   AggregateFunc = "MAX"
)

type Aggregate struct {
	Func   AggregateFunc
	Column string
}

func (a Aggregate) As(alias string) Expr { return As(a, alias) }

type AggregateSpec struct {
	Table      string
	Alias      string
	Predicates []Predicate
	Where      Expr
	Aggregate  Aggregate
}

// Assignment is a single SET term of an UPDATE. Value may be an Expr such as
// Column.Add to reference the current row.
type Assignment struct {
	Column string
	Value  any
}

type UpdateSpec struct {
	Table string
	Set   []Assignment
	Where Expr
}

func (spec UpdateSpec) Validate() error {
	if spec.Table == "" {
		return fmt.Errorf("table name is required")
	}
	if len(spec.Set) == 0 {
		return fmt.Errorf("at least one assignment is required")
	}
	for i, a := range spec.Set {
		if a.Column == "" {
			return fmt.Errorf("assignment %d: column is required", i)
		}
	}
	return nil
}

type DeleteSpec struct {
	Table string
	Where Expr
}

func (spec DeleteSpec) Validate() error {
	if spec.Table == "" {
		return fmt.Errorf("table name is required")
	}
	return nil
}

// Page is a window of results together with the total number of matching rows.
type Page[T any] struct {
	Items  []T
	Total  int64
	Limit  int
	Offset int
}

func BuildSelectSQL(spec SelectSpec) (string, []any) {
	w := &sqlWriter{}
	w.selectSpec(spec)
	return w.sb.String(), w.args
}

// BuildCountSQL renders a COUNT(*) over the rows selected by spec, ignoring ordering and
// pagination. Grouped or DISTINCT selections are counted through a derived table.
func BuildCountSQL(spec SelectSpec) (string, []any) {
	spec.Orders = nil
	spec.Limit = 0
	spec.Offset = 0

	w := &sqlWriter{}
	if spec.Distinct || len(spec.GroupBy) > 0 {
		w.write("SELECT COUNT(*) FROM (")
		w.selectSpec(spec)
		w.write(") AS counted")
		return w.sb.String(), w.args
	}
	spec.Columns = nil
	spec.Projection = []Expr{CountAll()}
	w.selectSpec(spec)
	return w.sb.String(), w.args
}

func BuildAggregateSQL(spec AggregateSpec) (string, []any) {
	w := &sqlWriter{}
	w.write("SELECT ")
	spec.Aggregate.writeSQL(w)
	w.write(" FROM ")
	w.from(spec.Table, spec.Alias)
	w.where(whereOf(spec.Predicates, spec.Where))
	return w.sb.String(), w.args
}

func BuildUpdateSQL(spec UpdateSpec) (string, []any) {
	w := &sqlWriter{}
	w.write("UPDATE ")
	w.write(spec.Table)
	w.write(" SET ")
	for i, a := range spec.Set {
		if i > 0 {
			w.write(", ")
		}
		w.write(a.Column)
		w.write(" = ")
		w.operand(a.Value)
	}
	w.where(spec.Where)
	return w.sb.String(), w.args
}

func BuildDeleteSQL(spec DeleteSpec) (string, []any) {
	w := &sqlWriter{}
	w.write("DELETE FROM ")
	w.write(spec.Table)
	w.where(spec.Where)
	return w.sb.String(), w.args
}

func (spec AggregateSpec) Validate() error {
	if spec.Table == "" {
		return fmt.Errorf("table name is required")
	}
	if spec.Aggregate.Func == "" {
		return fmt.Errorf("aggregate function is required")
	}
	return nil
}

func whereOf(predicates []Predicate, where Expr) Expr {
	if len(predicates) == 0 {
		return where
	}
	parts := make([]Expr, 0, len(predicates)+1)
	for _, p := range predicates {
		parts = append(parts, p)
	}
	parts = append(parts, where)
	return And(parts...)
}

func (w *sqlWriter) from(table, alias string) {
	w.write(table)
	if alias != "" {
		w.write(" AS ")
		w.write(alias)
	}
}

func (w *sqlWriter) where(cond Expr) {
	if IsTrue(cond) {
		return
	}
	w.write(" WHERE ")
	w.expr(cond)
}

func (w *sqlWriter) selectSpec(spec SelectSpec) {
	w.write("SELECT ")
	if spec.Distinct {
		w.write("DISTINCT ")
	}
	switch {
	case len(spec.Projection) > 0:
		w.list(spec.Projection, ", ")
	case len(spec.Columns) > 0:
		for i, col := range spec.Columns {
			if i > 0 {
				w.write(", ")
			}
			w.write(col)
		}
	default:
		w.write("*")
	}

	w.write(" FROM ")
	w.from(spec.Table, spec.Alias)
	for _, join := range spec.Joins {
		kind := join.Kind
		if kind == "" {
			kind = JoinInner
		}
		w.write(" ")
		w.write(string(kind))
		w.write(" ")
		w.from(join.Table, join.Alias)
		if kind == JoinCross {
			continue
		}
		w.write(" ON ")
		w.expr(join.On)
	}

	w.where(spec.Filter())

	if len(spec.GroupBy) > 0 {
		w.write(" GROUP BY ")
		w.list(spec.GroupBy, ", ")
	}
	if spec.Having != nil && !IsTrue(spec.Having) {
		w.write(" HAVING ")
		w.expr(spec.Having)
	}

	if len(spec.Orders) > 0 {
		w.write(" ORDER BY ")
		for i, order := range spec.Orders {
			if i > 0 {
				w.write(", ")
			}
			if order.Expr != nil {
				w.expr(order.Expr)
			} else {
				w.write(order.Column)
			}
			if order.Direction != "" {
				w.write(" ")
				w.write(string(order.Direction))
			}
			if order.Nulls != NullsDefault {
				w.write(" ")
				w.write(string(order.Nulls))
			}
		}
	}

	if spec.Limit > 0 {
		w.write(" LIMIT ")
		w.bind(spec.Limit)
	}
	if spec.Offset > 0 {
		w.write(" OFFSET ")
		w.bind(spec.Offset)
	}
}

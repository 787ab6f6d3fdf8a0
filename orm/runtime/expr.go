package runtime

import (
	"strconv"
	"strings"
)

// Expr is a SQL expression fragment. Values carried by an expression are bound as
// positional parameters in the order the fragment is written.
type Expr interface {
	writeSQL(w *sqlWriter)
}

// ExprSQL renders a standalone expression and its bound arguments.
func ExprSQL(expr Expr) (string, []any) {
	w := &sqlWriter{}
	w.expr(expr)
	return w.sb.String(), w.args
}

type sqlWriter struct {
	sb   strings.Builder
	args []any
}

func (w *sqlWriter) write(s string) { w.sb.WriteString(s) }

func (w *sqlWriter) bind(v any) {
	w.args = append(w.args, v)
	w.sb.WriteByte('$')
	w.sb.WriteString(strconv.Itoa(len(w.args)))
}

func (w *sqlWriter) expr(e Expr) {
	if e == nil {
		w.write("TRUE")
		return
	}
	e.writeSQL(w)
}

// operand inlines expressions (columns, subqueries, aggregates) and binds everything else.
func (w *sqlWriter) operand(v any) {
	if e, ok := v.(Expr); ok && e != nil {
		e.writeSQL(w)
		return
	}
	w.bind(v)
}

func (w *sqlWriter) list(exprs []Expr, sep string) {
	for i, e := range exprs {
		if i > 0 {
			w.write(sep)
		}
		w.expr(e)
	}
}

// Column references a column, optionally qualified by a table alias.
type Column struct {
	Table string
	Name  string
}

// Col builds a column reference. An empty table renders the bare column name.
func Col(table, name string) Column {
	return Column{Table: table, Name: name}
}

func (c Column) String() string {
	if c.Table == "" {
		return c.Name
	}
	return c.Table + "." + c.Name
}

func (c Column) writeSQL(w *sqlWriter) { w.write(c.String()) }

func (c Column) Eq(v any) Expr    { return Compare(c, OpEqual, v) }
func (c Column) NotEq(v any) Expr { return Compare(c, OpNotEqual, v) }
func (c Column) Gt(v any) Expr    { return Compare(c, OpGreaterThan, v) }
func (c Column) Gte(v any) Expr   { return Compare(c, OpGTE, v) }
func (c Column) Lt(v any) Expr    { return Compare(c, OpLessThan, v) }
func (c Column) Lte(v any) Expr   { return Compare(c, OpLTE, v) }

// ILike matches the column case-insensitively against a LIKE pattern.
func (c Column) ILike(pattern string) Expr { return Compare(c, OpILike, pattern) }

// Between renders an inclusive range check.
func (c Column) Between(lo, hi any) Expr {
	return betweenExpr{left: c, lo: lo, hi: hi}
}

// In renders a membership test against literal values.
func (c Column) In(values ...any) Expr {
	return inExpr{left: c, values: values}
}

// InQuery renders a membership test against a subquery.
func (c Column) InQuery(spec SelectSpec) Expr {
	return inExpr{left: c, query: &spec}
}

func (c Column) IsNull() Expr    { return nullCheck{left: c} }
func (c Column) IsNotNull() Expr { return nullCheck{left: c, not: true} }

// Add renders column + v, typically as the right-hand side of an assignment.
func (c Column) Add(v any) Expr { return arithmetic{left: c, op: "+", right: v} }

func (c Column) As(alias string) Expr { return As(c, alias) }

func (c Column) Asc() Order  { return Order{Expr: c, Direction: SortAsc} }
func (c Column) Desc() Order { return Order{Expr: c, Direction: SortDesc} }

func (c Column) Count() Aggregate { return Aggregate{Func: AggCount, Column: c.String()} }
func (c Column) Sum() Aggregate   { return Aggregate{Func: AggSum, Column: c.String()} }
func (c Column) Avg() Aggregate   { return Aggregate{Func: AggAvg, Column: c.String()} }
func (c Column) Max() Aggregate   { return Aggregate{Func: AggMax, Column: c.String()} }
func (c Column) Min() Aggregate   { return Aggregate{Func: AggMin, Column: c.String()} }

// Compare builds "left op right". A right-hand side implementing Expr is inlined.
func Compare(left Expr, op Operator, right any) Expr {
	return comparison{left: left, op: op, right: right}
}

type comparison struct {
	left  Expr
	op    Operator
	right any
}

func (c comparison) writeSQL(w *sqlWriter) {
	w.expr(c.left)
	w.write(" ")
	w.write(string(c.op))
	w.write(" ")
	w.operand(c.right)
}

func (p Predicate) writeSQL(w *sqlWriter) {
	w.write(p.Column)
	w.write(" ")
	w.write(string(p.Operator))
	w.write(" ")
	w.operand(p.Value)
}

type betweenExpr struct {
	left   Expr
	lo, hi any
}

func (b betweenExpr) writeSQL(w *sqlWriter) {
	w.expr(b.left)
	w.write(" BETWEEN ")
	w.operand(b.lo)
	w.write(" AND ")
	w.operand(b.hi)
}

type inExpr struct {
	left   Expr
	values []any
	query  *SelectSpec
}

func (in inExpr) writeSQL(w *sqlWriter) {
	w.expr(in.left)
	w.write(" IN (")
	if in.query != nil {
		w.selectSpec(*in.query)
	} else {
		for i, v := range in.values {
			if i > 0 {
				w.write(", ")
			}
			w.operand(v)
		}
	}
	w.write(")")
}

type nullCheck struct {
	left Expr
	not  bool
}

func (n nullCheck) writeSQL(w *sqlWriter) {
	w.expr(n.left)
	if n.not {
		w.write(" IS NOT NULL")
		return
	}
	w.write(" IS NULL")
}

type arithmetic struct {
	left  Expr
	op    string
	right any
}

func (a arithmetic) writeSQL(w *sqlWriter) {
	w.expr(a.left)
	w.write(" ")
	w.write(a.op)
	w.write(" ")
	w.operand(a.right)
}

func (a Aggregate) writeSQL(w *sqlWriter) {
	column := a.Column
	if column == "" {
		column = "*"
	}
	w.write(string(a.Func))
	w.write("(")
	w.write(column)
	w.write(")")
}

// CountAll renders COUNT(*).
func CountAll() Aggregate { return Aggregate{Func: AggCount} }

type alwaysTrue struct{}

func (alwaysTrue) writeSQL(w *sqlWriter) { w.write("TRUE") }

// True returns the unconditional predicate. A WHERE clause reduced to True is omitted.
func True() Expr { return alwaysTrue{} }

// IsTrue reports whether expr is the unconditional predicate (or nil).
func IsTrue(expr Expr) bool {
	switch e := expr.(type) {
	case nil:
		return true
	case alwaysTrue:
		return true
	case Composite:
		return e.IsEmpty()
	}
	return false
}

func unwrapComposite(e Expr) Expr {
	if c, ok := e.(Composite); ok {
		return c.expr
	}
	return e
}

type junction struct {
	op    string
	parts []Expr
}

func (j junction) writeSQL(w *sqlWriter) {
	for i, part := range j.parts {
		if i > 0 {
			w.write(" ")
			w.write(j.op)
			w.write(" ")
		}
		if inner, ok := unwrapComposite(part).(junction); ok && inner.op != j.op {
			w.write("(")
			inner.writeSQL(w)
			w.write(")")
			continue
		}
		w.expr(part)
	}
}

// And conjoins exprs left to right. Nil and unconditional operands are dropped; no
// operands yields True and a single operand is returned as is.
func And(exprs ...Expr) Expr {
	parts := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		if IsTrue(e) {
			continue
		}
		parts = append(parts, e)
	}
	switch len(parts) {
	case 0:
		return True()
	case 1:
		return parts[0]
	}
	return junction{op: "AND", parts: parts}
}

// Or disjoins exprs. Nil operands are dropped; an unconditional operand makes the whole
// disjunction unconditional.
func Or(exprs ...Expr) Expr {
	parts := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if IsTrue(e) {
			return True()
		}
		parts = append(parts, e)
	}
	switch len(parts) {
	case 0:
		return True()
	case 1:
		return parts[0]
	}
	return junction{op: "OR", parts: parts}
}

type negation struct{ inner Expr }

func (n negation) writeSQL(w *sqlWriter) {
	w.write("NOT (")
	w.expr(n.inner)
	w.write(")")
}

func Not(expr Expr) Expr { return negation{inner: expr} }

type aliased struct {
	expr  Expr
	alias string
}

func (a aliased) writeSQL(w *sqlWriter) {
	w.expr(a.expr)
	w.write(" AS ")
	w.write(a.alias)
}

// As names a projected expression.
func As(expr Expr, alias string) Expr { return aliased{expr: expr, alias: alias} }

type subquery struct{ spec SelectSpec }

func (s subquery) writeSQL(w *sqlWriter) {
	w.write("(")
	w.selectSpec(s.spec)
	w.write(")")
}

// Sub embeds a SELECT as a scalar expression. Placeholders continue the numbering of
// the enclosing statement.
func Sub(spec SelectSpec) Expr { return subquery{spec: spec} }

type boundValue struct{ v any }

func (b boundValue) writeSQL(w *sqlWriter) { w.bind(b.v) }

// Value forces v to be bound as a parameter.
func Value(v any) Expr { return boundValue{v: v} }

type caseWhen struct {
	cond any
	then any
}

// CaseBuilder assembles CASE expressions. Use CaseOf for the simple form that compares a
// subject against values, and Case for the searched form over boolean conditions.
type CaseBuilder struct {
	subject Expr
	whens   []caseWhen
}

func CaseOf(subject Expr) *CaseBuilder { return &CaseBuilder{subject: subject} }

func Case() *CaseBuilder { return &CaseBuilder{} }

func (b *CaseBuilder) When(cond, then any) *CaseBuilder {
	b.whens = append(b.whens, caseWhen{cond: cond, then: then})
	return b
}

// Otherwise closes the CASE with an ELSE branch.
func (b *CaseBuilder) Otherwise(v any) Expr {
	return caseExpr{subject: b.subject, whens: append([]caseWhen(nil), b.whens...), otherwise: v, hasElse: true}
}

// End closes the CASE without an ELSE branch.
func (b *CaseBuilder) End() Expr {
	return caseExpr{subject: b.subject, whens: append([]caseWhen(nil), b.whens...)}
}

type caseExpr struct {
	subject   Expr
	whens     []caseWhen
	otherwise any
	hasElse   bool
}

func (c caseExpr) writeSQL(w *sqlWriter) {
	w.write("CASE")
	if c.subject != nil {
		w.write(" ")
		w.expr(c.subject)
	}
	for _, when := range c.whens {
		w.write(" WHEN ")
		w.operand(when.cond)
		w.write(" THEN ")
		w.operand(when.then)
	}
	if c.hasElse {
		w.write(" ELSE ")
		w.operand(c.otherwise)
	}
	w.write(" END")
}

type funcCall struct {
	name string
	args []any
}

func (f funcCall) writeSQL(w *sqlWriter) {
	w.write(f.name)
	w.write("(")
	for i, arg := range f.args {
		if i > 0 {
			w.write(", ")
		}
		w.operand(arg)
	}
	w.write(")")
}

// Coalesce renders COALESCE over values, typically a nullable column and a fallback.
func Coalesce(values ...any) Expr { return funcCall{name: "COALESCE", args: values} }

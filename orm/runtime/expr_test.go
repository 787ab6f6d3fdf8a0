package runtime

import (
	"reflect"
	"testing"
)

func assertExpr(t *testing.T, expr Expr, wantSQL string, wantArgs ...any) {
	t.Helper()
	sql, args := ExprSQL(expr)
	if sql != wantSQL {
		t.Fatalf("unexpected SQL:\n got: %s\nwant: %s", sql, wantSQL)
	}
	if len(wantArgs) == 0 && len(args) == 0 {
		return
	}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Fatalf("unexpected args: got %#v want %#v", args, wantArgs)
	}
}

func TestAndCollapses(t *testing.T) {
	assertExpr(t, And(), "TRUE")
	assertExpr(t, And(nil, True()), "TRUE")
	assertExpr(t, And(nil, mAge.Eq(10), True()), "m.age = $1", 10)
	assertExpr(t, And(mUsername.Eq("member1"), mAge.Eq(10)), "m.username = $1 AND m.age = $2", "member1", 10)
}

func TestOrCollapses(t *testing.T) {
	assertExpr(t, Or(), "TRUE")
	assertExpr(t, Or(nil, mAge.Eq(10)), "m.age = $1", 10)
	if !IsTrue(Or(mAge.Eq(10), True())) {
		t.Fatalf("a disjunction with TRUE must be unconditional")
	}
}

func TestNestedJunctionsAreParenthesized(t *testing.T) {
	expr := And(Or(mAge.Lt(18), mAge.Gt(60)), mUsername.IsNotNull())
	assertExpr(t, expr, "(m.age < $1 OR m.age > $2) AND m.username IS NOT NULL", 18, 60)

	expr = Or(And(mAge.Gte(20), mAge.Lte(30)), mTeamID.IsNull())
	assertExpr(t, expr, "(m.age >= $1 AND m.age <= $2) OR m.team_id IS NULL", 20, 30)

	// same operator needs no grouping
	expr = And(And(mAge.Gte(20), mAge.Lte(30)), mTeamID.Eq(int64(1)))
	assertExpr(t, expr, "m.age >= $1 AND m.age <= $2 AND m.team_id = $3", 20, 30, int64(1))
}

func TestNot(t *testing.T) {
	assertExpr(t, Not(Or(mAge.Eq(10), mAge.Eq(20))), "NOT (m.age = $1 OR m.age = $2)", 10, 20)
}

func TestColumnOperands(t *testing.T) {
	assertExpr(t, mUsername.Eq(tName), "m.username = t.name")
	assertExpr(t, mAge.Eq(Value(mAge)), "m.age = $1", mAge)
	assertExpr(t, mAge.In(10, 20, 30), "m.age IN ($1, $2, $3)", 10, 20, 30)
	assertExpr(t, mAge.Between(0, 20), "m.age BETWEEN $1 AND $2", 0, 20)
	assertExpr(t, mUsername.ILike("mem%"), "m.username ILIKE $1", "mem%")
	assertExpr(t, Col("", "age").Add(1), "age + $1", 1)
	assertExpr(t, mTeamID.IsNull(), "m.team_id IS NULL")
}

func TestPredicateRenders(t *testing.T) {
	assertExpr(t, Predicate{Column: "age", Operator: OpLessThan, Value: 28}, "age < $1", 28)
}

func TestAggregatesAndAliases(t *testing.T) {
	assertExpr(t, CountAll(), "COUNT(*)")
	assertExpr(t, mAge.Sum().As("total"), "SUM(m.age) AS total")
	assertExpr(t, mUsername.As("name"), "m.username AS name")
	assertExpr(t, Coalesce(mUsername, ""), "COALESCE(m.username, $1)", "")
}

func TestCaseExpressions(t *testing.T) {
	simple := CaseOf(mAge).When(10, "ten").When(20, "twenty").Otherwise("other")
	assertExpr(t, simple, "CASE m.age WHEN $1 THEN $2 WHEN $3 THEN $4 ELSE $5 END", 10, "ten", 20, "twenty", "other")

	searched := Case().When(mAge.Between(0, 20), "0-20").When(mAge.Between(21, 30), "21-30").End()
	assertExpr(t, searched, "CASE WHEN m.age BETWEEN $1 AND $2 THEN $3 WHEN m.age BETWEEN $4 AND $5 THEN $6 END", 0, 20, "0-20", 21, 30, "21-30")

	// builders can be extended after closing without changing earlier expressions
	builder := Case().When(mAge.Gt(30), "old")
	first := builder.End()
	builder.When(mAge.Lt(10), "young")
	assertExpr(t, first, "CASE WHEN m.age > $1 THEN $2 END", 30, "old")
}

func TestSubqueryAsOperand(t *testing.T) {
	avg := Sub(SelectSpec{Table: "member", Alias: "ms", Projection: []Expr{msAge.Avg()}})
	assertExpr(t, mAge.Gte(avg), "m.age >= (SELECT AVG(ms.age) FROM member AS ms)")
	assertExpr(t, As(avg, "avg_age"), "(SELECT AVG(ms.age) FROM member AS ms) AS avg_age")
}

func TestNilExprRendersTrue(t *testing.T) {
	assertExpr(t, nil, "TRUE")
	if !IsTrue(nil) || !IsTrue(True()) || IsTrue(mAge.Eq(1)) {
		t.Fatalf("unexpected IsTrue results")
	}
}

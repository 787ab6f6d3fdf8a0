package runtime

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/deicod/ermquery/orm/runtime/validation"
)

// Rule turns a present criterion value into a filter fragment. Returning an error marks
// the value as invalid for the rule.
type Rule[T any] func(T) (Expr, error)

func Eq[T any](col Column) Rule[T]    { return compareRule[T](col, OpEqual) }
func NotEq[T any](col Column) Rule[T] { return compareRule[T](col, OpNotEqual) }
func Gt[T any](col Column) Rule[T]    { return compareRule[T](col, OpGreaterThan) }
func Gte[T any](col Column) Rule[T]   { return compareRule[T](col, OpGTE) }
func Lt[T any](col Column) Rule[T]    { return compareRule[T](col, OpLessThan) }
func Lte[T any](col Column) Rule[T]   { return compareRule[T](col, OpLTE) }

// compareRule rejects nil values: comparing against NULL with = never matches, so a nil
// here is a caller mistake rather than a filter.
func compareRule[T any](col Column, op Operator) Rule[T] {
	return func(v T) (Expr, error) {
		if IsAbsent(v) {
			return nil, validation.FieldError{Field: col.Name, Message: "value must not be nil"}
		}
		return Compare(col, op, v), nil
	}
}

// Contains matches col case-insensitively against a substring. Empty input is rejected
// because it would match every non-null row.
func Contains(col Column) Rule[string] {
	return func(v string) (Expr, error) {
		if v == "" {
			return nil, validation.FieldError{Field: col.Name, Message: "search text must not be empty"}
		}
		return col.ILike("%" + escapeLike(v) + "%"), nil
	}
}

// HasPrefix matches col case-insensitively against a prefix.
func HasPrefix(col Column) Rule[string] {
	return func(v string) (Expr, error) {
		if v == "" {
			return nil, validation.FieldError{Field: col.Name, Message: "prefix must not be empty"}
		}
		return col.ILike(escapeLike(v) + "%"), nil
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// In matches col against a set of values. An empty set is rejected since IN () is not
// valid SQL.
func In[T any](col Column) Rule[[]T] {
	return func(values []T) (Expr, error) {
		if len(values) == 0 {
			return nil, validation.FieldError{Field: col.Name, Message: "at least one value is required"}
		}
		args := make([]any, len(values))
		for i, v := range values {
			args[i] = v
		}
		return col.In(args...), nil
	}
}

// Range is an inclusive interval.
type Range[T cmp.Ordered] struct {
	Min T
	Max T
}

// Between matches col against an inclusive range and rejects inverted bounds.
func Between[T cmp.Ordered](col Column) Rule[Range[T]] {
	return func(r Range[T]) (Expr, error) {
		if r.Min > r.Max {
			return nil, validation.FieldError{Field: col.Name, Message: fmt.Sprintf("range minimum %v exceeds maximum %v", r.Min, r.Max)}
		}
		return col.Between(r.Min, r.Max), nil
	}
}

// Bounded wraps rule and rejects values outside [min, max] before the rule runs.
func Bounded[T cmp.Ordered](rule Rule[T], min, max T) Rule[T] {
	return func(v T) (Expr, error) {
		// NaN compares false both ways and must not slip through.
		if !(v >= min && v <= max) {
			return nil, validation.FieldError{Message: fmt.Sprintf("must be between %v and %v, got %v", min, max, v)}
		}
		if rule == nil {
			return nil, nil
		}
		return rule(v)
	}
}

// Checked runs check before rule. A failing check rejects the value the same way a
// failing rule does.
func Checked[T any](rule Rule[T], check func(T) error) Rule[T] {
	return func(v T) (Expr, error) {
		if check != nil {
			if err := check(v); err != nil {
				return nil, err
			}
		}
		if rule == nil {
			return nil, nil
		}
		return rule(v)
	}
}

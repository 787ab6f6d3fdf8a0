package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deicod/ermquery/orm/runtime/validation"
)

// ComposeMode selects what the composer does with a criterion whose rule rejects the
// supplied value.
type ComposeMode int

const (
	// FailOpen drops a rejected criterion as though its value were absent. Composition
	// never fails in this mode, which also means caller mistakes (an out-of-range age, an
	// empty search term) silently widen the result set. Inspect Composite.Skipped to see
	// what was dropped.
	FailOpen ComposeMode = iota
	// Strict reports every rejected criterion as a validation.FieldError.
	Strict
)

func (m ComposeMode) String() string {
	switch m {
	case Strict:
		return "strict"
	default:
		return "fail-open"
	}
}

// ParseComposeMode accepts "fail-open" (or empty) and "strict".
func ParseComposeMode(s string) (ComposeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail-open":
		return FailOpen, nil
	case "strict":
		return Strict, nil
	}
	return FailOpen, fmt.Errorf("unknown compose mode %q", s)
}

// Criterion is one optional, named search input bound to the rule that filters on it.
type Criterion struct {
	name  string
	build func() (fragment Expr, present bool, err error)
}

func (c Criterion) Name() string { return c.name }

// When builds a criterion that contributes rule(v) only when value is present. A present
// value that is itself nil (a nil pointer, map or slice) counts as absent.
func When[T any](name string, value Optional[T], rule Rule[T]) Criterion {
	return Criterion{name: name, build: func() (Expr, bool, error) {
		v, ok := value.Get()
		if !ok || IsAbsent(any(v)) {
			return nil, false, nil
		}
		if rule == nil {
			return nil, true, errors.New("no rule configured")
		}
		expr, err := rule(v)
		return expr, true, err
	}}
}

// WhenPtr treats a nil pointer as an absent value.
func WhenPtr[T any](name string, value *T, rule Rule[T]) Criterion {
	return When(name, FromPtr(value), rule)
}

// WhenValue accepts an untyped raw value; nil and nil pointers are absent.
func WhenValue(name string, value any, rule Rule[any]) Criterion {
	if IsAbsent(value) {
		return When(name, None[any](), rule)
	}
	return When(name, Some(value), rule)
}

// SkippedCriterion records a criterion dropped in FailOpen mode.
type SkippedCriterion struct {
	Name string
	Err  error
}

// Composite is the conjunction of every present criterion. It is an Expr and can be
// assigned to SelectSpec.Where directly; an empty composite filters nothing.
type Composite struct {
	expr    Expr
	applied []string
	skipped []SkippedCriterion
}

// Expr returns the combined condition, or True when no criterion contributed.
func (c Composite) Expr() Expr {
	if c.expr == nil {
		return True()
	}
	return c.expr
}

func (c Composite) IsEmpty() bool { return c.expr == nil }

// Applied lists the names of criteria that contributed a fragment, in input order.
func (c Composite) Applied() []string { return append([]string(nil), c.applied...) }

// Skipped lists criteria whose rule rejected a present value in FailOpen mode.
func (c Composite) Skipped() []SkippedCriterion {
	return append([]SkippedCriterion(nil), c.skipped...)
}

func (c Composite) writeSQL(w *sqlWriter) { w.expr(c.Expr()) }

// Composer assembles criteria into a Composite under the configured mode. The zero value
// composes fail-open.
type Composer struct {
	Mode ComposeMode
}

// Compose composes fail-open and therefore never fails.
func Compose(criteria ...Criterion) Composite {
	composite, _ := Composer{Mode: FailOpen}.Compose(criteria...)
	return composite
}

// Compose evaluates criteria in order and ANDs the fragments they produce. Absent values
// contribute nothing. In Strict mode every rejected value is collected and returned as
// validation.Errors alongside an empty composite.
func (c Composer) Compose(criteria ...Criterion) (Composite, error) {
	var (
		out       Composite
		fragments []Expr
		invalid   validation.Errors
	)
	for _, criterion := range criteria {
		if criterion.build == nil {
			continue
		}
		fragment, present, err := criterion.build()
		if !present {
			continue
		}
		if err != nil {
			if c.Mode == Strict {
				invalid = append(invalid, validation.FieldError{Field: criterion.name, Message: ruleMessage(err)})
				continue
			}
			out.skipped = append(out.skipped, SkippedCriterion{Name: criterion.name, Err: err})
			continue
		}
		if IsTrue(fragment) {
			continue
		}
		fragments = append(fragments, fragment)
		out.applied = append(out.applied, criterion.name)
	}
	if len(invalid) > 0 {
		return Composite{}, invalid
	}
	switch len(fragments) {
	case 0:
	case 1:
		out.expr = fragments[0]
	default:
		out.expr = junction{op: "AND", parts: fragments}
	}
	return out, nil
}

func ruleMessage(err error) string {
	var errs validation.Errors
	if errors.As(err, &errs) && len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, fe := range errs {
			msgs[i] = fe.Message
		}
		return strings.Join(msgs, "; ")
	}
	var fe validation.FieldError
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	return err.Error()
}

// SkipReporter is notified when a fail-open composition dropped criteria.
type SkipReporter interface {
	ReportSkipped(ctx context.Context, query string, skipped []SkippedCriterion)
}

// SkipReporterFunc adapts plain functions to SkipReporter.
type SkipReporterFunc func(context.Context, string, []SkippedCriterion)

// ReportSkipped implements SkipReporter.
func (fn SkipReporterFunc) ReportSkipped(ctx context.Context, query string, skipped []SkippedCriterion) {
	if fn == nil {
		return
	}
	fn(ctx, query, skipped)
}

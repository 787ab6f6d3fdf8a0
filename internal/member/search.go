package member

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/deicod/ermquery/observability/tracing"
	"github.com/deicod/ermquery/orm/runtime"
	"github.com/deicod/ermquery/orm/runtime/validation"
)

// Ages outside this range are rejected by the age criteria.
const (
	MinAge = 0
	MaxAge = 120
)

// MaxNameLength bounds the username and team name criteria.
const MaxNameLength = 64

func nameRule(field string, col runtime.Column) runtime.Rule[string] {
	check := validation.String(field).Required().MaxLen(MaxNameLength)
	return runtime.Checked(runtime.Eq[string](col), check.Check)
}

// Sort is one ordering term of a search.
type Sort struct {
	Column string
	Desc   bool
}

func (s Sort) String() string {
	if s.Desc {
		return s.Column + ":desc"
	}
	return s.Column + ":asc"
}

var sortColumns = map[string]runtime.Column{
	"id":       member.ID,
	"username": member.Username,
	"age":      member.Age,
	"team":     team.Name,
}

// SortColumns lists the column names Search accepts for ordering.
func SortColumns() []string {
	out := make([]string, 0, len(sortColumns))
	for name := range sortColumns {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// UnknownSortColumnError reports a sort key that names no sortable column.
type UnknownSortColumnError struct {
	Column string
}

func (e UnknownSortColumnError) Error() string {
	return fmt.Sprintf("unknown sort column %q", e.Column)
}

// ParseSort reads "col[:asc|:desc]" terms separated by commas.
func ParseSort(raw string) ([]Sort, error) {
	var out []Sort
	for _, term := range strings.Split(raw, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		name, dir, _ := strings.Cut(term, ":")
		s := Sort{Column: strings.ToLower(strings.TrimSpace(name))}
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "", "asc":
		case "desc":
			s.Desc = true
		default:
			return nil, fmt.Errorf("sort %q: direction must be asc or desc", term)
		}
		if _, ok := sortColumns[s.Column]; !ok {
			return nil, UnknownSortColumnError{Column: s.Column}
		}
		out = append(out, s)
	}
	return out, nil
}

// SearchCondition holds the optional inputs of a member search. Absent fields do not
// constrain the result.
type SearchCondition struct {
	Username runtime.Optional[string]
	TeamName runtime.Optional[string]
	AgeGoe   runtime.Optional[int]
	AgeLoe   runtime.Optional[int]
	Age      runtime.Optional[int]

	Sort   []Sort
	Limit  int
	Offset int
}

// Validate checks the parts of the condition that are not criteria.
func (c SearchCondition) Validate() error {
	var errs validation.Errors
	if c.Limit < 0 {
		errs = validation.Append(errs, validation.FieldError{Field: "limit", Message: "must not be negative"})
	}
	if c.Offset < 0 {
		errs = validation.Append(errs, validation.FieldError{Field: "offset", Message: "must not be negative"})
	}
	for _, s := range c.Sort {
		if _, ok := sortColumns[s.Column]; !ok {
			errs = validation.Append(errs, validation.FieldError{Field: "sort", Message: UnknownSortColumnError{Column: s.Column}.Error()})
		}
	}
	return errs.OrNil()
}

// Criteria maps the condition onto composer criteria, in a fixed order. Blank names are
// rejected like out-of-range ages.
func (c SearchCondition) Criteria() []runtime.Criterion {
	return []runtime.Criterion{
		runtime.When("username", c.Username, nameRule("username", member.Username)),
		runtime.When("team", c.TeamName, nameRule("team", team.Name)),
		runtime.When("age_goe", c.AgeGoe, runtime.Bounded(runtime.Gte[int](member.Age), MinAge, MaxAge)),
		runtime.When("age_loe", c.AgeLoe, runtime.Bounded(runtime.Lte[int](member.Age), MinAge, MaxAge)),
		runtime.When("age", c.Age, runtime.Bounded(runtime.Eq[int](member.Age), MinAge, MaxAge)),
	}
}

// SearchQuery is a composed search, ready to render or run.
type SearchQuery struct {
	Spec      runtime.SelectSpec
	Composite runtime.Composite
}

// SQL renders the select statement.
func (q SearchQuery) SQL() (string, []any) { return runtime.BuildSelectSQL(q.Spec) }

// CountSQL renders the matching count statement.
func (q SearchQuery) CountSQL() (string, []any) { return runtime.BuildCountSQL(q.Spec) }

// Compose builds the search query for cond under the repository's compose mode. Strict
// mode returns validation.Errors naming every rejected criterion.
func (r *Repository) Compose(ctx context.Context, cond SearchCondition) (SearchQuery, error) {
	if err := cond.Validate(); err != nil {
		return SearchQuery{}, fmt.Errorf("member: search: %w", err)
	}
	composite, err := r.composer.Compose(cond.Criteria()...)
	if err != nil {
		return SearchQuery{}, fmt.Errorf("member: search: %w", err)
	}
	if skipped := composite.Skipped(); len(skipped) > 0 && r.skips != nil {
		r.skips.ReportSkipped(ctx, "search", skipped)
	}

	spec := member.From()
	spec.Columns = withTeam()
	spec.Joins = []runtime.Join{team.Join(runtime.JoinLeft, member)}
	spec.Where = composite
	spec.Limit = cond.Limit
	spec.Offset = cond.Offset
	for _, s := range cond.Sort {
		order := sortColumns[s.Column].Asc()
		if s.Desc {
			order = sortColumns[s.Column].Desc()
		}
		if s.Column == "username" || s.Column == "team" {
			order = order.NullsLast()
		}
		spec.Orders = append(spec.Orders, order)
	}
	if len(spec.Orders) == 0 {
		spec.Orders = []runtime.Order{member.ID.Asc()}
	}
	return SearchQuery{Spec: spec, Composite: composite}, nil
}

func searchAttrs(q SearchQuery) runtime.ObserveOption {
	return runtime.WithObservationAttributes(
		tracing.Strings("member.search.applied", q.Composite.Applied()),
		tracing.Int("member.search.skipped", len(q.Composite.Skipped())),
	)
}

// Search returns the members, with their teams, matching every present criterion of cond.
func (r *Repository) Search(ctx context.Context, cond SearchCondition) ([]MemberTeam, error) {
	q, err := r.Compose(ctx, cond)
	if err != nil {
		return nil, err
	}
	return r.runSearch(ctx, q)
}

func (r *Repository) runSearch(ctx context.Context, q SearchQuery) ([]MemberTeam, error) {
	rows, err := r.db.Select(ctx, q.Spec, searchAttrs(q))
	if err != nil {
		return nil, fmt.Errorf("member: search: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanMemberTeam)
	if err != nil {
		return nil, fmt.Errorf("member: search: %w", err)
	}
	return out, nil
}

// SearchPage is Search plus the total number of matches ignoring limit and offset.
func (r *Repository) SearchPage(ctx context.Context, cond SearchCondition) (runtime.Page[MemberTeam], error) {
	q, err := r.Compose(ctx, cond)
	if err != nil {
		return runtime.Page[MemberTeam]{}, err
	}
	items, err := r.runSearch(ctx, q)
	if err != nil {
		return runtime.Page[MemberTeam]{}, err
	}
	total, err := r.db.Count(ctx, q.Spec, searchAttrs(q))
	if err != nil {
		return runtime.Page[MemberTeam]{}, fmt.Errorf("member: search: count: %w", err)
	}
	return runtime.Page[MemberTeam]{Items: items, Total: total, Limit: cond.Limit, Offset: cond.Offset}, nil
}

package member

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/deicod/ermquery/orm/pg"
	"github.com/deicod/ermquery/orm/runtime"
)

var (
	ErrNotFound  = errors.New("member: not found")
	ErrNotUnique = errors.New("member: more than one row matched")
)

// Repository runs member and team queries against a pg.DB.
type Repository struct {
	db       *pg.DB
	composer runtime.Composer
	skips    runtime.SkipReporter
}

type Option func(*Repository)

// WithComposeMode selects how Search treats invalid criteria. The default is fail-open.
func WithComposeMode(mode runtime.ComposeMode) Option {
	return func(r *Repository) { r.composer.Mode = mode }
}

// WithSkipReporter receives the criteria a fail-open Search dropped.
func WithSkipReporter(reporter runtime.SkipReporter) Option {
	return func(r *Repository) { r.skips = reporter }
}

func NewRepository(db *pg.DB, opts ...Option) *Repository {
	r := &Repository{db: db}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// ComposeMode reports the mode Search composes criteria with.
func (r *Repository) ComposeMode() runtime.ComposeMode { return r.composer.Mode }

func scanMember(row pgx.CollectableRow) (Member, error) {
	var (
		m        Member
		username pgtype.Text
		teamID   pgtype.Int8
	)
	if err := row.Scan(&m.ID, &username, &m.Age, &teamID); err != nil {
		return Member{}, err
	}
	m.Username = textPtr(username)
	m.TeamID = int8Ptr(teamID)
	return m, nil
}

// scanMemberTeam reads the member columns followed by t.id and t.name. A NULL team id
// means the outer join found no team.
func scanMemberTeam(row pgx.CollectableRow) (MemberTeam, error) {
	var (
		m        Member
		username pgtype.Text
		teamID   pgtype.Int8
		tID      pgtype.Int8
		tName    pgtype.Text
	)
	if err := row.Scan(&m.ID, &username, &m.Age, &teamID, &tID, &tName); err != nil {
		return MemberTeam{}, err
	}
	m.Username = textPtr(username)
	m.TeamID = int8Ptr(teamID)
	out := MemberTeam{Member: m}
	if tID.Valid {
		out.Team = &Team{ID: tID.Int64, Name: tName.String}
	}
	return out, nil
}

func (r *Repository) members(ctx context.Context, op string, spec runtime.SelectSpec) ([]Member, error) {
	rows, err := r.db.Select(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("member: %s: %w", op, err)
	}
	out, err := pgx.CollectRows(rows, scanMember)
	if err != nil {
		return nil, fmt.Errorf("member: %s: %w", op, err)
	}
	return out, nil
}

func (r *Repository) memberTeams(ctx context.Context, op string, spec runtime.SelectSpec) ([]MemberTeam, error) {
	rows, err := r.db.Select(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("member: %s: %w", op, err)
	}
	out, err := pgx.CollectRows(rows, scanMemberTeam)
	if err != nil {
		return nil, fmt.Errorf("member: %s: %w", op, err)
	}
	return out, nil
}

func exactlyOne[T any](items []T, op string) (T, error) {
	var zero T
	switch len(items) {
	case 0:
		return zero, fmt.Errorf("member: %s: %w", op, ErrNotFound)
	case 1:
		return items[0], nil
	}
	return zero, fmt.Errorf("member: %s: %w", op, ErrNotUnique)
}

func withTeam() []string {
	return append(member.Columns(), team.Columns()...)
}

// FindByUsername returns the single member called username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (Member, error) {
	spec := member.From()
	spec.Where = member.Username.Eq(username)
	found, err := r.members(ctx, "find by username", spec)
	if err != nil {
		return Member{}, err
	}
	return exactlyOne(found, "find by username")
}

func (r *Repository) FindByUsernameAndAge(ctx context.Context, username string, age int) ([]Member, error) {
	spec := member.From()
	spec.Where = runtime.And(member.Username.Eq(username), member.Age.Eq(age))
	return r.members(ctx, "find by username and age", spec)
}

func (r *Repository) All(ctx context.Context) ([]Member, error) {
	return r.members(ctx, "all", member.From())
}

// First returns the member with the lowest id.
func (r *Repository) First(ctx context.Context) (Member, error) {
	spec := member.From()
	spec.Orders = []runtime.Order{member.ID.Asc()}
	spec.Limit = 1
	found, err := r.members(ctx, "first", spec)
	if err != nil {
		return Member{}, err
	}
	return exactlyOne(found, "first")
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	total, err := r.db.Count(ctx, member.From())
	if err != nil {
		return 0, fmt.Errorf("member: count: %w", err)
	}
	return total, nil
}

// Page returns members ordered by username descending together with the total count.
func (r *Repository) Page(ctx context.Context, limit, offset int) (runtime.Page[Member], error) {
	spec := member.From()
	spec.Orders = []runtime.Order{member.Username.Desc()}
	spec.Limit = limit
	spec.Offset = offset
	return r.page(ctx, "page", spec)
}

func (r *Repository) page(ctx context.Context, op string, spec runtime.SelectSpec) (runtime.Page[Member], error) {
	items, err := r.members(ctx, op, spec)
	if err != nil {
		return runtime.Page[Member]{}, err
	}
	total, err := r.db.Count(ctx, spec)
	if err != nil {
		return runtime.Page[Member]{}, fmt.Errorf("member: %s: count: %w", op, err)
	}
	return runtime.Page[Member]{Items: items, Total: total, Limit: spec.Limit, Offset: spec.Offset}, nil
}

// SortedByAgeDescUsernameAsc lists members of the given age, oldest first, then by
// username with NULL usernames last.
func (r *Repository) SortedByAgeDescUsernameAsc(ctx context.Context, age int) ([]Member, error) {
	spec := member.From()
	spec.Where = member.Age.Eq(age)
	spec.Orders = []runtime.Order{member.Age.Desc(), member.Username.Asc().NullsLast()}
	return r.members(ctx, "sorted", spec)
}

func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	spec := runtime.SelectSpec{
		Table: memberTable,
		Alias: member.Alias,
		Projection: []runtime.Expr{
			member.ID.Count(),
			member.Age.Sum(),
			member.Age.Avg(),
			member.Age.Max(),
			member.Age.Min(),
		},
	}
	var (
		s                      Stats
		sumAge, maxAge, minAge pgtype.Int8
		avgAge                 pgtype.Float8
	)
	if err := r.db.SelectRow(ctx, spec).Scan(&s.Count, &sumAge, &avgAge, &maxAge, &minAge); err != nil {
		return Stats{}, fmt.Errorf("member: stats: %w", err)
	}
	s.SumAge, s.AvgAge, s.MaxAge, s.MinAge = sumAge.Int64, avgAge.Float64, maxAge.Int64, minAge.Int64
	return s, nil
}

// AverageAgeByTeam groups members by team name. When minAverage is present only teams
// whose average age reaches it are returned.
func (r *Repository) AverageAgeByTeam(ctx context.Context, minAverage runtime.Optional[float64]) ([]TeamAverage, error) {
	spec := runtime.SelectSpec{
		Table:      memberTable,
		Alias:      member.Alias,
		Projection: []runtime.Expr{team.Name, member.Age.Avg()},
		Joins:      []runtime.Join{team.Join(runtime.JoinInner, member)},
		GroupBy:    []runtime.Expr{team.Name},
		Orders:     []runtime.Order{team.Name.Asc()},
	}
	if v, ok := minAverage.Get(); ok {
		spec.Having = runtime.Compare(member.Age.Avg(), runtime.OpGTE, v)
	}
	rows, err := r.db.Select(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("member: average age by team: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (TeamAverage, error) {
		var (
			ta  TeamAverage
			avg pgtype.Float8
		)
		err := row.Scan(&ta.Team, &avg)
		ta.AverageAge = avg.Float64
		return ta, err
	})
	if err != nil {
		return nil, fmt.Errorf("member: average age by team: %w", err)
	}
	return out, nil
}

// InTeam lists the members of the team called name.
func (r *Repository) InTeam(ctx context.Context, name string) ([]Member, error) {
	spec := member.From()
	spec.Joins = []runtime.Join{team.Join(runtime.JoinInner, member)}
	spec.Where = team.Name.Eq(name)
	return r.members(ctx, "in team", spec)
}

// UsernameMatchesTeam pairs members and teams without a relationship and keeps members
// whose username equals some team name.
func (r *Repository) UsernameMatchesTeam(ctx context.Context) ([]Member, error) {
	spec := member.From()
	spec.Joins = []runtime.Join{{Kind: runtime.JoinCross, Table: teamTable, Alias: team.Alias}}
	spec.Where = member.Username.Eq(team.Name)
	return r.members(ctx, "username matches team", spec)
}

// WithTeamNamed returns every member; the team is attached only when it is called name.
func (r *Repository) WithTeamNamed(ctx context.Context, name string) ([]MemberTeam, error) {
	spec := member.From()
	spec.Columns = withTeam()
	spec.Joins = []runtime.Join{team.Join(runtime.JoinLeft, member, team.Name.Eq(name))}
	return r.memberTeams(ctx, "with team named", spec)
}

// WithTeamByName outer-joins teams whose name equals the member's username.
func (r *Repository) WithTeamByName(ctx context.Context) ([]MemberTeam, error) {
	spec := member.From()
	spec.Columns = withTeam()
	spec.Joins = []runtime.Join{{
		Kind:  runtime.JoinLeft,
		Table: teamTable,
		Alias: team.Alias,
		On:    member.Username.Eq(team.Name),
	}}
	return r.memberTeams(ctx, "with team by name", spec)
}

// FindByUsernameLazy loads the member alone; call LoadTeam to fetch its team later.
func (r *Repository) FindByUsernameLazy(ctx context.Context, username string) (Member, error) {
	return r.FindByUsername(ctx, username)
}

// LoadTeam fills m.Team with a second query. Members without a team are left untouched.
func (r *Repository) LoadTeam(ctx context.Context, m *Member) error {
	if m == nil || m.TeamID == nil || m.Team != nil {
		return nil
	}
	spec := runtime.SelectSpec{
		Table:   teamTable,
		Alias:   team.Alias,
		Columns: team.Columns(),
		Where:   team.ID.Eq(*m.TeamID),
	}
	var t Team
	if err := r.db.SelectRow(ctx, spec).Scan(&t.ID, &t.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("member: load team %d: %w", *m.TeamID, ErrNotFound)
		}
		return fmt.Errorf("member: load team %d: %w", *m.TeamID, err)
	}
	m.Team = &t
	return nil
}

// FindByUsernameWithTeam loads the member and its team in one joined query.
func (r *Repository) FindByUsernameWithTeam(ctx context.Context, username string) (Member, error) {
	spec := member.From()
	spec.Columns = withTeam()
	spec.Joins = []runtime.Join{team.Join(runtime.JoinInner, member)}
	spec.Where = member.Username.Eq(username)
	found, err := r.memberTeams(ctx, "find by username with team", spec)
	if err != nil {
		return Member{}, err
	}
	row, err := exactlyOne(found, "find by username with team")
	if err != nil {
		return Member{}, err
	}
	row.Member.Team = row.Team
	return row.Member, nil
}

func ageOf(agg runtime.Aggregate) runtime.Expr {
	return runtime.Sub(runtime.SelectSpec{
		Table:      memberTable,
		Alias:      memberSub.Alias,
		Projection: []runtime.Expr{agg},
	})
}

// Oldest returns every member sharing the maximum age.
func (r *Repository) Oldest(ctx context.Context) ([]Member, error) {
	spec := member.From()
	spec.Where = member.Age.Eq(ageOf(memberSub.Age.Max()))
	return r.members(ctx, "oldest", spec)
}

func (r *Repository) AtLeastAverageAge(ctx context.Context) ([]Member, error) {
	spec := member.From()
	spec.Where = member.Age.Gte(ageOf(memberSub.Age.Avg()))
	return r.members(ctx, "at least average age", spec)
}

// AgeInOlderThan keeps members whose age appears among the ages above n.
func (r *Repository) AgeInOlderThan(ctx context.Context, n int) ([]Member, error) {
	spec := member.From()
	spec.Where = member.Age.InQuery(runtime.SelectSpec{
		Table:   memberTable,
		Alias:   memberSub.Alias,
		Columns: []string{memberSub.Age.String()},
		Where:   memberSub.Age.Gt(n),
	})
	return r.members(ctx, "age in older than", spec)
}

func (r *Repository) UsernamesWithAverageAge(ctx context.Context) ([]UsernameAverage, error) {
	spec := runtime.SelectSpec{
		Table:      memberTable,
		Alias:      member.Alias,
		Projection: []runtime.Expr{member.Username, ageOf(memberSub.Age.Avg())},
	}
	rows, err := r.db.Select(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("member: usernames with average age: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (UsernameAverage, error) {
		var (
			username pgtype.Text
			avg      pgtype.Float8
		)
		err := row.Scan(&username, &avg)
		return UsernameAverage{Username: username.String, AverageAge: avg.Float64}, err
	})
	if err != nil {
		return nil, fmt.Errorf("member: usernames with average age: %w", err)
	}
	return out, nil
}

func (r *Repository) labels(ctx context.Context, op string, projection runtime.Expr) ([]string, error) {
	spec := runtime.SelectSpec{
		Table:      memberTable,
		Alias:      member.Alias,
		Projection: []runtime.Expr{projection},
		Orders:     []runtime.Order{member.ID.Asc()},
	}
	rows, err := r.db.Select(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("member: %s: %w", op, err)
	}
	texts, err := pgx.CollectRows(rows, pgx.RowTo[pgtype.Text])
	if err != nil {
		return nil, fmt.Errorf("member: %s: %w", op, err)
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = t.String
	}
	return out, nil
}

// AgeLabels maps each member's exact age to a label.
func (r *Repository) AgeLabels(ctx context.Context) ([]string, error) {
	label := runtime.CaseOf(member.Age).
		When(10, "ten").
		When(20, "twenty").
		Otherwise("other")
	return r.labels(ctx, "age labels", label)
}

// AgeBands maps each member's age to an inclusive band.
func (r *Repository) AgeBands(ctx context.Context) ([]string, error) {
	band := runtime.Case().
		When(member.Age.Between(0, 20), "0-20").
		When(member.Age.Between(21, 30), "21-30").
		Otherwise("other")
	return r.labels(ctx, "age bands", band)
}

// Usernames lists usernames in id order; NULL usernames come back as "".
func (r *Repository) Usernames(ctx context.Context) ([]string, error) {
	return r.labels(ctx, "usernames", member.Username)
}

func (r *Repository) UsernameAges(ctx context.Context) ([]UsernameAge, error) {
	spec := runtime.SelectSpec{
		Table:   memberTable,
		Alias:   member.Alias,
		Columns: []string{member.Username.String(), member.Age.String()},
	}
	rows, err := r.db.Select(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("member: username ages: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (UsernameAge, error) {
		var (
			username pgtype.Text
			ua       UsernameAge
		)
		err := row.Scan(&username, &ua.Age)
		ua.Username = username.String
		return ua, err
	})
	if err != nil {
		return nil, fmt.Errorf("member: username ages: %w", err)
	}
	return out, nil
}

func dtoSpec(name string, age runtime.Expr, named bool) runtime.SelectSpec {
	username := runtime.Coalesce(member.Username, "")
	if named {
		username = runtime.As(username, name)
	}
	return runtime.SelectSpec{
		Table:      memberTable,
		Alias:      member.Alias,
		Projection: []runtime.Expr{username, age},
	}
}

// MemberDtos fills MemberDto by column name.
func (r *Repository) MemberDtos(ctx context.Context) ([]MemberDto, error) {
	rows, err := r.db.Select(ctx, dtoSpec("username", member.Age.As("age"), true))
	if err != nil {
		return nil, fmt.Errorf("member: member dtos: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[MemberDto])
	if err != nil {
		return nil, fmt.Errorf("member: member dtos: %w", err)
	}
	return out, nil
}

// MemberDtosByPosition fills MemberDto by column order.
func (r *Repository) MemberDtosByPosition(ctx context.Context) ([]MemberDto, error) {
	rows, err := r.db.Select(ctx, dtoSpec("", member.Age, false))
	if err != nil {
		return nil, fmt.Errorf("member: member dtos by position: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[MemberDto])
	if err != nil {
		return nil, fmt.Errorf("member: member dtos by position: %w", err)
	}
	return out, nil
}

// UserDtos renames the username to name and reports the oldest age on every row.
func (r *Repository) UserDtos(ctx context.Context) ([]UserDto, error) {
	rows, err := r.db.Select(ctx, dtoSpec("name", runtime.As(ageOf(memberSub.Age.Max()), "age"), true))
	if err != nil {
		return nil, fmt.Errorf("member: user dtos: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[UserDto])
	if err != nil {
		return nil, fmt.Errorf("member: user dtos: %w", err)
	}
	return out, nil
}

// Iterate streams every member in id order. Close the stream when done.
func (r *Repository) Iterate(ctx context.Context) (*runtime.Stream[Member], error) {
	spec := member.From()
	spec.Orders = []runtime.Order{member.ID.Asc()}
	rows, err := r.db.Select(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("member: iterate: %w", err)
	}
	return runtime.NewStream(rows, func(rows pgx.Rows) (Member, error) { return scanMember(rows) }), nil
}

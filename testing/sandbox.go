package testkit

import (
	"context"
	stdtesting "testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/deicod/ermquery/internal/member"
	"github.com/deicod/ermquery/orm/pg"
	"github.com/deicod/ermquery/orm/runtime"
)

type mockPool struct {
	pgxmock.PgxConnIface
}

func (m *mockPool) Close() {
	_ = m.PgxConnIface.Close(context.Background())
}

// Sandbox pairs a pgxmock connection with a pg.DB and member repository bound to it.
type Sandbox struct {
	ctx    context.Context
	cancel context.CancelFunc
	mock   pgxmock.PgxConnIface
	db     *pg.DB
}

// NewPostgresSandbox returns a sandbox backed by pgxmock with QueryMatcherEqual semantics,
// so expectations compare the full SQL text.
func NewPostgresSandbox(tb stdtesting.TB) *Sandbox {
	tb.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	mock, err := pgxmock.NewConn(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	if err != nil {
		cancel()
		tb.Fatalf("pgxmock.NewConn: %v", err)
	}
	sandbox := &Sandbox{
		ctx:    ctx,
		cancel: cancel,
		mock:   mock,
		db:     &pg.DB{Pool: &mockPool{PgxConnIface: mock}},
	}
	tb.Cleanup(sandbox.Close)
	return sandbox
}

func (s *Sandbox) Context() context.Context {
	if s == nil {
		return context.Background()
	}
	return s.ctx
}

// Mock exposes the underlying pgxmock connection for expectation management.
func (s *Sandbox) Mock() pgxmock.PgxConnIface {
	if s == nil {
		return nil
	}
	return s.mock
}

func (s *Sandbox) DB() *pg.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// Members returns a repository over the sandbox connection.
func (s *Sandbox) Members(opts ...member.Option) *member.Repository {
	return member.NewRepository(s.DB(), opts...)
}

// Observe attaches observer to the sandbox DB.
func (s *Sandbox) Observe(observer runtime.QueryObserver) {
	s.DB().UseObserver(observer)
}

func (s *Sandbox) Close() {
	if s == nil {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.mock != nil {
		_ = s.mock.Close(context.Background())
	}
}

// ExpectationsWereMet fails the supplied test if outstanding pgxmock expectations remain.
func (s *Sandbox) ExpectationsWereMet(tb stdtesting.TB) {
	if s == nil {
		return
	}
	tb.Helper()
	if err := s.mock.ExpectationsWereMet(); err != nil {
		tb.Fatalf("pgx expectations: %v", err)
	}
}

// MemberColumns are the column names of a member row as selected by the repository.
var MemberColumns = []string{"id", "username", "age", "team_id"}

// MemberTeamColumns are MemberColumns followed by the joined team columns.
var MemberTeamColumns = []string{"id", "username", "age", "team_id", "id", "name"}

// SeedRows returns the four fixture members as mock rows, optionally with their teams.
func SeedRows(withTeam bool) *pgxmock.Rows {
	cols := MemberColumns
	if withTeam {
		cols = MemberTeamColumns
	}
	rows := pgxmock.NewRows(cols)
	for i := 1; i <= 4; i++ {
		teamID := int64((i-1)/2 + 1)
		values := []any{int64(i), memberName(i), i * 10, teamID}
		if withTeam {
			values = append(values, teamID, teamName(teamID))
		}
		rows.AddRow(values...)
	}
	return rows
}

func memberName(i int) string {
	return "member" + string(rune('0'+i))
}

func teamName(id int64) string {
	if id == 1 {
		return "teamA"
	}
	return "teamB"
}

package member_test

import (
	"errors"
	"reflect"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/deicod/ermquery/internal/member"
	"github.com/deicod/ermquery/orm/runtime"
	testkit "github.com/deicod/ermquery/testing"
)

const (
	selectMembers     = "SELECT m.id, m.username, m.age, m.team_id FROM member AS m"
	selectMemberTeams = "SELECT m.id, m.username, m.age, m.team_id, t.id, t.name FROM member AS m"
)

func memberRows() *pgxmock.Rows {
	return pgxmock.NewRows(testkit.MemberColumns)
}

func TestFindByUsername(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	repo := sandbox.Members()
	mock := sandbox.Mock()

	mock.ExpectQuery(selectMembers + " WHERE m.username = $1").
		WithArgs("member1").
		WillReturnRows(memberRows().AddRow(int64(1), "member1", 10, int64(1)))

	found, err := repo.FindByUsername(sandbox.Context(), "member1")
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	if found.ID != 1 || found.Name() != "member1" || found.Age != 10 {
		t.Fatalf("unexpected member: %+v", found)
	}
	if found.TeamID == nil || *found.TeamID != 1 {
		t.Fatalf("expected team id 1, got %v", found.TeamID)
	}
	if found.Team != nil {
		t.Fatalf("plain lookup must not load the team")
	}
	sandbox.ExpectationsWereMet(t)
}

func TestFindByUsernameNotFoundAndNotUnique(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	repo := sandbox.Members()
	mock := sandbox.Mock()

	mock.ExpectQuery(selectMembers + " WHERE m.username = $1").
		WithArgs("nobody").
		WillReturnRows(memberRows())
	if _, err := repo.FindByUsername(sandbox.Context(), "nobody"); !errors.Is(err, member.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mock.ExpectQuery(selectMembers + " WHERE m.username = $1").
		WithArgs("twin").
		WillReturnRows(memberRows().
			AddRow(int64(1), "twin", 10, nil).
			AddRow(int64(2), "twin", 20, nil))
	if _, err := repo.FindByUsername(sandbox.Context(), "twin"); !errors.Is(err, member.ErrNotUnique) {
		t.Fatalf("expected ErrNotUnique, got %v", err)
	}
	sandbox.ExpectationsWereMet(t)
}

func TestFindByUsernameAndAge(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	mock := sandbox.Mock()

	mock.ExpectQuery(selectMembers+" WHERE m.username = $1 AND m.age = $2").
		WithArgs("member1", 10).
		WillReturnRows(memberRows().AddRow(int64(1), "member1", 10, int64(1)))

	found, err := sandbox.Members().FindByUsernameAndAge(sandbox.Context(), "member1", 10)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(found) != 1 || found[0].Name() != "member1" {
		t.Fatalf("unexpected result: %+v", found)
	}
	sandbox.ExpectationsWereMet(t)
}

func TestAllFirstAndCount(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	repo := sandbox.Members()
	mock := sandbox.Mock()

	mock.ExpectQuery(selectMembers).WillReturnRows(testkit.SeedRows(false))
	all, err := repo.All(sandbox.Context())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 4 || all[3].Name() != "member4" || all[3].Age != 40 {
		t.Fatalf("unexpected members: %+v", all)
	}

	mock.ExpectQuery(selectMembers + " ORDER BY m.id ASC LIMIT $1").
		WithArgs(1).
		WillReturnRows(memberRows().AddRow(int64(1), "member1", 10, int64(1)))
	first, err := repo.First(sandbox.Context())
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if first.ID != 1 {
		t.Fatalf("unexpected first member: %+v", first)
	}

	mock.ExpectQuery("SELECT COUNT(*) FROM member AS m").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(4)))
	total, err := repo.Count(sandbox.Context())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 4 {
		t.Fatalf("expected 4 members, got %d", total)
	}
	sandbox.ExpectationsWereMet(t)
}

func TestPageFetchesItemsAndTotal(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	mock := sandbox.Mock()

	mock.ExpectQuery(selectMembers+" ORDER BY m.username DESC LIMIT $1 OFFSET $2").
		WithArgs(2, 1).
		WillReturnRows(memberRows().
			AddRow(int64(3), "member3", 30, int64(2)).
			AddRow(int64(2), "member2", 20, int64(1)))
	mock.ExpectQuery("SELECT COUNT(*) FROM member AS m").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(4)))

	page, err := sandbox.Members().Page(sandbox.Context(), 2, 1)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if page.Total != 4 || page.Limit != 2 || page.Offset != 1 {
		t.Fatalf("unexpected page header: %+v", page)
	}
	if len(page.Items) != 2 || page.Items[0].Name() != "member3" {
		t.Fatalf("unexpected items: %+v", page.Items)
	}
	sandbox.ExpectationsWereMet(t)
}

func TestSortedByAgeDescUsernameAscNullsLast(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	mock := sandbox.Mock()

	mock.ExpectQuery(selectMembers+" WHERE m.age = $1 ORDER BY m.age DESC, m.username ASC NULLS LAST").
		WithArgs(100).
		WillReturnRows(memberRows().
			AddRow(int64(5), "member5", 100, nil).
			AddRow(int64(6), "member6", 100, nil).
			AddRow(int64(7), nil, 100, nil))

	sorted, err := sandbox.Members().SortedByAgeDescUsernameAsc(sandbox.Context(), 100)
	if err != nil {
		t.Fatalf("sorted: %v", err)
	}
	if len(sorted) != 3 {
		t.Fatalf("expected 3 members, got %d", len(sorted))
	}
	if sorted[0].Name() != "member5" || sorted[1].Name() != "member6" {
		t.Fatalf("unexpected order: %+v", sorted)
	}
	if sorted[2].Username != nil || sorted[2].TeamID != nil {
		t.Fatalf("expected NULL username and team last, got %+v", sorted[2])
	}
	sandbox.ExpectationsWereMet(t)
}

func TestStats(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	mock := sandbox.Mock()

	mock.ExpectQuery("SELECT COUNT(m.id), SUM(m.age), AVG(m.age), MAX(m.age), MIN(m.age) FROM member AS m").
		WillReturnRows(pgxmock.NewRows([]string{"count", "sum", "avg", "max", "min"}).
			AddRow(int64(4), int64(100), float64(25), int64(40), int64(10)))

	stats, err := sandbox.Members().Stats(sandbox.Context())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := member.Stats{Count: 4, SumAge: 100, AvgAge: 25, MaxAge: 40, MinAge: 10}
	if stats != want {
		t.Fatalf("unexpected stats:\nwant %+v\ngot  %+v", want, stats)
	}
	sandbox.ExpectationsWereMet(t)
}

func TestAverageAgeByTeam(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	repo := sandbox.Members()
	mock := sandbox.Mock()

	mock.ExpectQuery("SELECT t.name, AVG(m.age) FROM member AS m JOIN team AS t ON m.team_id = t.id GROUP BY t.name ORDER BY t.name ASC").
		WillReturnRows(pgxmock.NewRows([]string{"name", "avg"}).
			AddRow("teamA", float64(15)).
			AddRow("teamB", float64(35)))

	averages, err := repo.AverageAgeByTeam(sandbox.Context(), runtime.None[float64]())
	if err != nil {
		t.Fatalf("average age by team: %v", err)
	}
	want := []member.TeamAverage{{Team: "teamA", AverageAge: 15}, {Team: "teamB", AverageAge: 35}}
	if !reflect.DeepEqual(averages, want) {
		t.Fatalf("unexpected averages: %+v", averages)
	}

	mock.ExpectQuery("SELECT t.name, AVG(m.age) FROM member AS m JOIN team AS t ON m.team_id = t.id GROUP BY t.name HAVING AVG(m.age) >= $1 ORDER BY t.name ASC").
		WithArgs(float64(20)).
		WillReturnRows(pgxmock.NewRows([]string{"name", "avg"}).AddRow("teamB", float64(35)))

	averages, err = repo.AverageAgeByTeam(sandbox.Context(), runtime.Some(float64(20)))
	if err != nil {
		t.Fatalf("average age by team with having: %v", err)
	}
	if len(averages) != 1 || averages[0].Team != "teamB" {
		t.Fatalf("unexpected filtered averages: %+v", averages)
	}
	sandbox.ExpectationsWereMet(t)
}

func TestJoins(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	repo := sandbox.Members()
	mock := sandbox.Mock()

	mock.ExpectQuery(selectMembers+" JOIN team AS t ON m.team_id = t.id WHERE t.name = $1").
		WithArgs("teamA").
		WillReturnRows(memberRows().
			AddRow(int64(1), "member1", 10, int64(1)).
			AddRow(int64(2), "member2", 20, int64(1)))
	inTeam, err := repo.InTeam(sandbox.Context(), "teamA")
	if err != nil {
		t.Fatalf("in team: %v", err)
	}
	if len(inTeam) != 2 || inTeam[1].Name() != "member2" {
		t.Fatalf("unexpected team members: %+v", inTeam)
	}

	mock.ExpectQuery(selectMembers + " CROSS JOIN team AS t WHERE m.username = t.name").
		WillReturnRows(memberRows().
			AddRow(int64(5), "teamA", 0, nil).
			AddRow(int64(6), "teamB", 0, nil))
	theta, err := repo.UsernameMatchesTeam(sandbox.Context())
	if err != nil {
		t.Fatalf("theta join: %v", err)
	}
	if len(theta) != 2 || theta[0].Name() != "teamA" || theta[1].Name() != "teamB" {
		t.Fatalf("unexpected theta join result: %+v", theta)
	}
	sandbox.ExpectationsWereMet(t)
}

func TestOuterJoins(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	repo := sandbox.Members()
	mock := sandbox.Mock()

	mock.ExpectQuery(selectMemberTeams+" LEFT JOIN team AS t ON m.team_id = t.id AND t.name = $1").
		WithArgs("teamA").
		WillReturnRows(pgxmock.NewRows(testkit.MemberTeamColumns).
			AddRow(int64(1), "member1", 10, int64(1), int64(1), "teamA").
			AddRow(int64(3), "member3", 30, int64(2), nil, nil))
	named, err := repo.WithTeamNamed(sandbox.Context(), "teamA")
	if err != nil {
		t.Fatalf("with team named: %v", err)
	}
	if len(named) != 2 {
		t.Fatalf("expected every member, got %d", len(named))
	}
	if named[0].Team == nil || named[0].Team.Name != "teamA" {
		t.Fatalf("expected teamA on member1, got %+v", named[0].Team)
	}
	if named[1].Team != nil {
		t.Fatalf("expected no team on member3, got %+v", named[1].Team)
	}
	if named[1].Member.TeamID == nil || *named[1].Member.TeamID != 2 {
		t.Fatalf("member3 keeps its own team id, got %v", named[1].Member.TeamID)
	}

	mock.ExpectQuery(selectMemberTeams + " LEFT JOIN team AS t ON m.username = t.name").
		WillReturnRows(pgxmock.NewRows(testkit.MemberTeamColumns).
			AddRow(int64(1), "member1", 10, int64(1), nil, nil).
			AddRow(int64(5), "teamA", 0, nil, int64(1), "teamA"))
	byName, err := repo.WithTeamByName(sandbox.Context())
	if err != nil {
		t.Fatalf("with team by name: %v", err)
	}
	if byName[0].Team != nil || byName[1].Team == nil || byName[1].Team.ID != 1 {
		t.Fatalf("unexpected unrelated outer join: %+v", byName)
	}
	sandbox.ExpectationsWereMet(t)
}

func TestLazyLoadVersusFetchJoin(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	repo := sandbox.Members()
	mock := sandbox.Mock()

	mock.ExpectQuery(selectMembers + " WHERE m.username = $1").
		WithArgs("member1").
		WillReturnRows(memberRows().AddRow(int64(1), "member1", 10, int64(1)))
	lazy, err := repo.FindByUsernameLazy(sandbox.Context(), "member1")
	if err != nil {
		t.Fatalf("lazy: %v", err)
	}
	if lazy.Team != nil {
		t.Fatalf("lazy lookup must leave the team unloaded")
	}

	mock.ExpectQuery("SELECT t.id, t.name FROM team AS t WHERE t.id = $1").
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "teamA"))
	if err := repo.LoadTeam(sandbox.Context(), &lazy); err != nil {
		t.Fatalf("load team: %v", err)
	}
	if lazy.Team == nil || lazy.Team.Name != "teamA" {
		t.Fatalf("expected teamA after load, got %+v", lazy.Team)
	}
	// already loaded; no second query
	if err := repo.LoadTeam(sandbox.Context(), &lazy); err != nil {
		t.Fatalf("reload: %v", err)
	}

	mock.ExpectQuery(selectMemberTeams+" JOIN team AS t ON m.team_id = t.id WHERE m.username = $1").
		WithArgs("member1").
		WillReturnRows(pgxmock.NewRows(testkit.MemberTeamColumns).
			AddRow(int64(1), "member1", 10, int64(1), int64(1), "teamA"))
	fetched, err := repo.FindByUsernameWithTeam(sandbox.Context(), "member1")
	if err != nil {
		t.Fatalf("fetch join: %v", err)
	}
	if fetched.Team == nil || fetched.Team.ID != 1 || fetched.Team.Name != "teamA" {
		t.Fatalf("fetch join must populate the team, got %+v", fetched.Team)
	}
	sandbox.ExpectationsWereMet(t)
}

func TestLoadTeamMissing(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	mock := sandbox.Mock()

	teamID := int64(9)
	m := member.Member{ID: 1, TeamID: &teamID}
	mock.ExpectQuery("SELECT t.id, t.name FROM team AS t WHERE t.id = $1").
		WithArgs(int64(9)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name"}))

	if err := sandbox.Members().LoadTeam(sandbox.Context(), &m); !errors.Is(err, member.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := sandbox.Members().LoadTeam(sandbox.Context(), &member.Member{ID: 2}); err != nil {
		t.Fatalf("member without team: %v", err)
	}
	sandbox.ExpectationsWereMet(t)
}

func TestSubqueries(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	repo := sandbox.Members()
	mock := sandbox.Mock()

	mock.ExpectQuery(selectMembers + " WHERE m.age = (SELECT MAX(ms.age) FROM member AS ms)").
		WillReturnRows(memberRows().AddRow(int64(4), "member4", 40, int64(2)))
	oldest, err := repo.Oldest(sandbox.Context())
	if err != nil {
		t.Fatalf("oldest: %v", err)
	}
	if len(oldest) != 1 || oldest[0].Age != 40 {
		t.Fatalf("unexpected oldest: %+v", oldest)
	}

	mock.ExpectQuery(selectMembers + " WHERE m.age >= (SELECT AVG(ms.age) FROM member AS ms)").
		WillReturnRows(memberRows().
			AddRow(int64(3), "member3", 30, int64(2)).
			AddRow(int64(4), "member4", 40, int64(2)))
	aboveAverage, err := repo.AtLeastAverageAge(sandbox.Context())
	if err != nil {
		t.Fatalf("at least average: %v", err)
	}
	if len(aboveAverage) != 2 {
		t.Fatalf("expected two members, got %+v", aboveAverage)
	}

	mock.ExpectQuery(selectMembers+" WHERE m.age IN (SELECT ms.age FROM member AS ms WHERE ms.age > $1)").
		WithArgs(10).
		WillReturnRows(memberRows().
			AddRow(int64(2), "member2", 20, int64(1)).
			AddRow(int64(3), "member3", 30, int64(2)).
			AddRow(int64(4), "member4", 40, int64(2)))
	in, err := repo.AgeInOlderThan(sandbox.Context(), 10)
	if err != nil {
		t.Fatalf("age in: %v", err)
	}
	if len(in) != 3 || in[0].Age != 20 {
		t.Fatalf("unexpected IN result: %+v", in)
	}

	mock.ExpectQuery("SELECT m.username, (SELECT AVG(ms.age) FROM member AS ms) FROM member AS m").
		WillReturnRows(pgxmock.NewRows([]string{"username", "avg"}).
			AddRow("member1", float64(25)).
			AddRow("member2", float64(25)))
	withAverage, err := repo.UsernamesWithAverageAge(sandbox.Context())
	if err != nil {
		t.Fatalf("usernames with average: %v", err)
	}
	if len(withAverage) != 2 || withAverage[1].Username != "member2" || withAverage[1].AverageAge != 25 {
		t.Fatalf("unexpected select-list subquery result: %+v", withAverage)
	}
	sandbox.ExpectationsWereMet(t)
}

func TestCaseExpressions(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	repo := sandbox.Members()
	mock := sandbox.Mock()

	mock.ExpectQuery("SELECT CASE m.age WHEN $1 THEN $2 WHEN $3 THEN $4 ELSE $5 END FROM member AS m ORDER BY m.id ASC").
		WithArgs(10, "ten", 20, "twenty", "other").
		WillReturnRows(pgxmock.NewRows([]string{"case"}).
			AddRow("ten").AddRow("twenty").AddRow("other").AddRow("other"))
	labels, err := repo.AgeLabels(sandbox.Context())
	if err != nil {
		t.Fatalf("age labels: %v", err)
	}
	if !reflect.DeepEqual(labels, []string{"ten", "twenty", "other", "other"}) {
		t.Fatalf("unexpected labels: %v", labels)
	}

	mock.ExpectQuery("SELECT CASE WHEN m.age BETWEEN $1 AND $2 THEN $3 WHEN m.age BETWEEN $4 AND $5 THEN $6 ELSE $7 END FROM member AS m ORDER BY m.id ASC").
		WithArgs(0, 20, "0-20", 21, 30, "21-30", "other").
		WillReturnRows(pgxmock.NewRows([]string{"case"}).
			AddRow("0-20").AddRow("0-20").AddRow("21-30").AddRow("other"))
	bands, err := repo.AgeBands(sandbox.Context())
	if err != nil {
		t.Fatalf("age bands: %v", err)
	}
	if !reflect.DeepEqual(bands, []string{"0-20", "0-20", "21-30", "other"}) {
		t.Fatalf("unexpected bands: %v", bands)
	}
	sandbox.ExpectationsWereMet(t)
}

func TestProjections(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	repo := sandbox.Members()
	mock := sandbox.Mock()

	mock.ExpectQuery("SELECT m.username FROM member AS m ORDER BY m.id ASC").
		WillReturnRows(pgxmock.NewRows([]string{"username"}).
			AddRow("member1").AddRow(nil))
	names, err := repo.Usernames(sandbox.Context())
	if err != nil {
		t.Fatalf("usernames: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"member1", ""}) {
		t.Fatalf("unexpected usernames: %q", names)
	}

	mock.ExpectQuery("SELECT m.username, m.age FROM member AS m").
		WillReturnRows(pgxmock.NewRows([]string{"username", "age"}).
			AddRow("member1", 10).AddRow("member2", 20))
	tuples, err := repo.UsernameAges(sandbox.Context())
	if err != nil {
		t.Fatalf("username ages: %v", err)
	}
	if !reflect.DeepEqual(tuples, []member.UsernameAge{{Username: "member1", Age: 10}, {Username: "member2", Age: 20}}) {
		t.Fatalf("unexpected tuples: %+v", tuples)
	}
	sandbox.ExpectationsWereMet(t)
}

func TestDtoProjections(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	repo := sandbox.Members()
	mock := sandbox.Mock()

	mock.ExpectQuery("SELECT COALESCE(m.username, $1) AS username, m.age AS age FROM member AS m").
		WithArgs("").
		WillReturnRows(pgxmock.NewRows([]string{"username", "age"}).
			AddRow("member1", 10).AddRow("member2", 20))
	byName, err := repo.MemberDtos(sandbox.Context())
	if err != nil {
		t.Fatalf("member dtos: %v", err)
	}
	want := []member.MemberDto{{Username: "member1", Age: 10}, {Username: "member2", Age: 20}}
	if !reflect.DeepEqual(byName, want) {
		t.Fatalf("unexpected dtos by name: %+v", byName)
	}

	mock.ExpectQuery("SELECT COALESCE(m.username, $1), m.age FROM member AS m").
		WithArgs("").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce", "age"}).
			AddRow("member1", 10).AddRow("member2", 20))
	byPosition, err := repo.MemberDtosByPosition(sandbox.Context())
	if err != nil {
		t.Fatalf("member dtos by position: %v", err)
	}
	if !reflect.DeepEqual(byPosition, want) {
		t.Fatalf("unexpected dtos by position: %+v", byPosition)
	}

	mock.ExpectQuery("SELECT COALESCE(m.username, $1) AS name, (SELECT MAX(ms.age) FROM member AS ms) AS age FROM member AS m").
		WithArgs("").
		WillReturnRows(pgxmock.NewRows([]string{"name", "age"}).
			AddRow("member1", 40).AddRow("member2", 40))
	users, err := repo.UserDtos(sandbox.Context())
	if err != nil {
		t.Fatalf("user dtos: %v", err)
	}
	if !reflect.DeepEqual(users, []member.UserDto{{Name: "member1", Age: 40}, {Name: "member2", Age: 40}}) {
		t.Fatalf("unexpected user dtos: %+v", users)
	}
	sandbox.ExpectationsWereMet(t)
}

func TestIterateStreamsInIDOrder(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	mock := sandbox.Mock()

	mock.ExpectQuery(selectMembers + " ORDER BY m.id ASC").WillReturnRows(testkit.SeedRows(false))

	stream, err := sandbox.Members().Iterate(sandbox.Context())
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	var names []string
	for stream.Next() {
		names = append(names, stream.Item().Name())
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"member1", "member2", "member3", "member4"}) {
		t.Fatalf("unexpected stream order: %v", names)
	}
	sandbox.ExpectationsWereMet(t)
}

func TestQueryErrorsAreWrapped(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	mock := sandbox.Mock()
	boom := errors.New("connection reset")

	mock.ExpectQuery(selectMembers).WillReturnError(boom)

	_, err := sandbox.Members().All(sandbox.Context())
	if !errors.Is(err, boom) {
		t.Fatalf("expected driver error, got %v", err)
	}
	if got := err.Error(); got != "member: all: connection reset" {
		t.Fatalf("unexpected message: %q", got)
	}
	sandbox.ExpectationsWereMet(t)
}

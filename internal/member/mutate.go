package member

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/deicod/ermquery/orm/runtime"
)

// RenameYoungerThan sets the username of every member younger than age.
func (r *Repository) RenameYoungerThan(ctx context.Context, age int, username string) (int64, error) {
	n, err := r.db.Update(ctx, runtime.UpdateSpec{
		Table: memberTable,
		Set:   []runtime.Assignment{{Column: memberRow.Username.Name, Value: username}},
		Where: memberRow.Age.Lt(age),
	})
	if err != nil {
		return 0, fmt.Errorf("member: rename younger than %d: %w", age, err)
	}
	return n, nil
}

// IncrementAges adds delta to every member's age.
func (r *Repository) IncrementAges(ctx context.Context, delta int) (int64, error) {
	n, err := r.db.Update(ctx, runtime.UpdateSpec{
		Table: memberTable,
		Set:   []runtime.Assignment{{Column: memberRow.Age.Name, Value: memberRow.Age.Add(delta)}},
	})
	if err != nil {
		return 0, fmt.Errorf("member: increment ages: %w", err)
	}
	return n, nil
}

func (r *Repository) DeleteOlderThan(ctx context.Context, age int) (int64, error) {
	n, err := r.db.Delete(ctx, runtime.DeleteSpec{Table: memberTable, Where: memberRow.Age.Gt(age)})
	if err != nil {
		return 0, fmt.Errorf("member: delete older than %d: %w", age, err)
	}
	return n, nil
}

func (r *Repository) insertReturningIDs(ctx context.Context, op string, spec runtime.BulkInsertSpec) ([]int64, error) {
	spec.Returning = []string{"id"}
	rows, err := r.db.BulkInsert(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("member: %s: %w", op, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("member: %s: %w", op, err)
	}
	return ids, nil
}

// CreateTeams inserts teams by name and returns their ids in input order.
func (r *Repository) CreateTeams(ctx context.Context, names ...string) ([]int64, error) {
	spec := runtime.BulkInsertSpec{Table: teamTable, Columns: []string{"name"}}
	for _, name := range names {
		spec.Rows = append(spec.Rows, []any{name})
	}
	return r.insertReturningIDs(ctx, "create teams", spec)
}

// Insert adds members and returns their ids in input order.
func (r *Repository) Insert(ctx context.Context, members ...NewMember) ([]int64, error) {
	spec := runtime.BulkInsertSpec{Table: memberTable, Columns: []string{"username", "age", "team_id"}}
	for _, m := range members {
		spec.Rows = append(spec.Rows, []any{nullable(m.Username), m.Age, nullable(m.TeamID)})
	}
	return r.insertReturningIDs(ctx, "insert", spec)
}

// Fixture is what Seed inserted.
type Fixture struct {
	TeamIDs   map[string]int64
	MemberIDs map[string]int64
}

// Seed inserts teamA and teamB with member1 to member4, aged 10 to 40. The first two
// members join teamA and the others teamB.
func (r *Repository) Seed(ctx context.Context) (Fixture, error) {
	teamNames := []string{"teamA", "teamB"}
	teamIDs, err := r.CreateTeams(ctx, teamNames...)
	if err != nil {
		return Fixture{}, err
	}
	if len(teamIDs) != len(teamNames) {
		return Fixture{}, fmt.Errorf("member: seed: expected %d team ids, got %d", len(teamNames), len(teamIDs))
	}
	fx := Fixture{TeamIDs: make(map[string]int64), MemberIDs: make(map[string]int64)}
	for i, name := range teamNames {
		fx.TeamIDs[name] = teamIDs[i]
	}

	var (
		names   []string
		members []NewMember
	)
	for i := 1; i <= 4; i++ {
		name := fmt.Sprintf("member%d", i)
		teamID := teamIDs[(i-1)/2]
		names = append(names, name)
		members = append(members, NewMember{Username: &name, Age: i * 10, TeamID: &teamID})
	}
	memberIDs, err := r.Insert(ctx, members...)
	if err != nil {
		return Fixture{}, err
	}
	for i, id := range memberIDs {
		if i < len(names) {
			fx.MemberIDs[names[i]] = id
		}
	}
	return fx, nil
}

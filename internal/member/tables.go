package member

import "github.com/deicod/ermquery/orm/runtime"

const (
	memberTable = "member"
	teamTable   = "team"
)

// MemberColumns addresses the member table through one alias. Two values with different
// aliases let a query refer to the table twice, as subqueries do.
type MemberColumns struct {
	Alias    string
	ID       runtime.Column
	Username runtime.Column
	Age      runtime.Column
	TeamID   runtime.Column
}

func Members(alias string) MemberColumns {
	return MemberColumns{
		Alias:    alias,
		ID:       runtime.Col(alias, "id"),
		Username: runtime.Col(alias, "username"),
		Age:      runtime.Col(alias, "age"),
		TeamID:   runtime.Col(alias, "team_id"),
	}
}

// Columns lists the entity columns in scan order.
func (m MemberColumns) Columns() []string {
	return []string{m.ID.String(), m.Username.String(), m.Age.String(), m.TeamID.String()}
}

// From starts a select over the table under this alias.
func (m MemberColumns) From() runtime.SelectSpec {
	return runtime.SelectSpec{Table: memberTable, Alias: m.Alias, Columns: m.Columns()}
}

type TeamColumns struct {
	Alias string
	ID    runtime.Column
	Name  runtime.Column
}

func Teams(alias string) TeamColumns {
	return TeamColumns{
		Alias: alias,
		ID:    runtime.Col(alias, "id"),
		Name:  runtime.Col(alias, "name"),
	}
}

func (t TeamColumns) Columns() []string {
	return []string{t.ID.String(), t.Name.String()}
}

// Join joins the team of each member in m.
func (t TeamColumns) Join(kind runtime.JoinKind, m MemberColumns, extra ...runtime.Expr) runtime.Join {
	on := append([]runtime.Expr{m.TeamID.Eq(t.ID)}, extra...)
	return runtime.Join{Kind: kind, Table: teamTable, Alias: t.Alias, On: runtime.And(on...)}
}

var (
	member    = Members("m")
	memberSub = Members("ms")
	team      = Teams("t")

	// bare columns for UPDATE and DELETE, which take no alias.
	memberRow = Members("")
)

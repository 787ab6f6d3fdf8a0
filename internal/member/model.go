package member

import "github.com/jackc/pgx/v5/pgtype"

// Team groups members.
type Team struct {
	ID   int64
	Name string
}

// Member is a row of the member table. Username and TeamID are nullable. Team is only
// populated by queries that join it in.
type Member struct {
	ID       int64
	Username *string
	Age      int
	TeamID   *int64
	Team     *Team
}

// Name returns the username, or "" when it is NULL.
func (m Member) Name() string {
	if m.Username == nil {
		return ""
	}
	return *m.Username
}

// NewMember describes a member to insert.
type NewMember struct {
	Username *string
	Age      int
	TeamID   *int64
}

// MemberTeam pairs a member with the team an outer join produced, if any.
type MemberTeam struct {
	Member Member
	Team   *Team
}

// MemberDto is the username/age projection. Field names match the selected column aliases.
type MemberDto struct {
	Username string `db:"username"`
	Age      int    `db:"age"`
}

// UserDto carries the same data as MemberDto under different names.
type UserDto struct {
	Name string `db:"name"`
	Age  int    `db:"age"`
}

type UsernameAge struct {
	Username string
	Age      int
}

type UsernameAverage struct {
	Username   string
	AverageAge float64
}

// Stats summarises member ages.
type Stats struct {
	Count  int64
	SumAge int64
	AvgAge float64
	MaxAge int64
	MinAge int64
}

type TeamAverage struct {
	Team       string
	AverageAge float64
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func int8Ptr(v pgtype.Int8) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

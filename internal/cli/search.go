package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/deicod/ermquery/internal/member"
	"github.com/deicod/ermquery/orm/runtime"
	"github.com/deicod/ermquery/orm/runtime/validation"
)

type searchFlags struct {
	username string
	team     string
	age      int
	ageMin   int
	ageMax   int
	sort     string
	limit    int
	offset   int
	strict   bool
	dryRun   bool
}

func newSearchCmd() *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search members with optional criteria",
		Long: "search turns every flag that was given into a criterion and ANDs them together. " +
			"Flags that are not given do not constrain the result. Invalid values are skipped " +
			"unless --strict (or search.mode: strict) is set.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cond, err := f.condition(cmd)
			if err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if !f.dryRun {
				if err := s.connect(); err != nil {
					return err
				}
			}
			repo, err := s.members(f.strict)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if f.dryRun {
				q, err := repo.Compose(s.ctx, cond)
				if err != nil {
					return searchError(err)
				}
				printQuery(out, q)
				return nil
			}
			page, err := repo.SearchPage(s.ctx, cond)
			if err != nil {
				return searchError(err)
			}
			printMembers(out, page.Items)
			fmt.Fprintf(out, "total: %d\n", page.Total)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.username, "username", "", "Match members with exactly this username")
	flags.StringVar(&f.team, "team", "", "Match members of the team with this name")
	flags.IntVar(&f.age, "age", 0, "Match members of exactly this age")
	flags.IntVar(&f.ageMin, "age-min", 0, "Match members at least this old")
	flags.IntVar(&f.ageMax, "age-max", 0, "Match members at most this old")
	flags.StringVar(&f.sort, "sort", "", "Order by col[:asc|:desc], comma separated")
	flags.IntVar(&f.limit, "limit", 0, "Return at most this many members (0 for no limit)")
	flags.IntVar(&f.offset, "offset", 0, "Skip this many members")
	flags.BoolVar(&f.strict, "strict", false, "Reject invalid criteria instead of skipping them")
	flags.BoolVar(&f.dryRun, "dry-run", false, "Print the composed SQL and arguments without running it")
	return cmd
}

// condition maps the flags that were set onto present values; unset flags stay absent.
func (f searchFlags) condition(cmd *cobra.Command) (member.SearchCondition, error) {
	flags := cmd.Flags()
	cond := member.SearchCondition{Limit: f.limit, Offset: f.offset}
	if flags.Changed("username") {
		cond.Username = runtime.Some(f.username)
	}
	if flags.Changed("team") {
		cond.TeamName = runtime.Some(f.team)
	}
	if flags.Changed("age") {
		cond.Age = runtime.Some(f.age)
	}
	if flags.Changed("age-min") {
		cond.AgeGoe = runtime.Some(f.ageMin)
	}
	if flags.Changed("age-max") {
		cond.AgeLoe = runtime.Some(f.ageMax)
	}
	sorts, err := member.ParseSort(f.sort)
	if err != nil {
		var unknown member.UnknownSortColumnError
		if errors.As(err, &unknown) {
			return cond, CommandError{
				Message:    "search: " + err.Error(),
				Cause:      err,
				Suggestion: sortSuggestion(unknown.Column),
				ExitCode:   2,
			}
		}
		return cond, wrapError("search: "+err.Error(), err, "Use col, col:asc or col:desc.", 2)
	}
	cond.Sort = sorts
	return cond, nil
}

// sortSuggestion proposes the closest sortable column within an edit distance of two.
func sortSuggestion(column string) string {
	columns := member.SortColumns()
	best, bestDist := "", 3
	for _, candidate := range columns {
		if d := levenshtein.ComputeDistance(column, candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	available := "Sortable columns: " + strings.Join(columns, ", ") + "."
	if best == "" {
		return available
	}
	return fmt.Sprintf("Did you mean %q? %s", best, available)
}

func searchError(err error) error {
	var errs validation.Errors
	if errors.As(err, &errs) {
		suggestion := "Fix the listed values, or drop --strict to skip them."
		if rejectsCondition(errs) {
			suggestion = "Pass --limit and --offset of zero or more, and sort by one of " + strings.Join(member.SortColumns(), ", ") + "."
		}
		return CommandError{
			Message:    "search: invalid criteria: " + errs.Error(),
			Cause:      err,
			Suggestion: suggestion,
			ExitCode:   2,
		}
	}
	return wrapError("search: query members", err, "Verify the schema is migrated with `ermquery migrate`.", 1)
}

// conditionFields fail before composition, whatever the compose mode.
var conditionFields = []string{"limit", "offset", "sort"}

func rejectsCondition(errs validation.Errors) bool {
	for _, field := range conditionFields {
		if len(errs.For(field)) > 0 {
			return true
		}
	}
	return false
}

func printQuery(out io.Writer, q member.SearchQuery) {
	sql, args := q.SQL()
	fmt.Fprintln(out, sql)
	fmt.Fprintf(out, "args: %v\n", args)
	for _, skipped := range q.Composite.Skipped() {
		fmt.Fprintf(out, "skipped %s: %v\n", skipped.Name, skipped.Err)
	}
}

func printMembers(out io.Writer, items []member.MemberTeam) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"id", "username", "age", "team"})
	for _, item := range items {
		username := "NULL"
		if item.Member.Username != nil {
			username = *item.Member.Username
		}
		team := ""
		if item.Team != nil {
			team = item.Team.Name
		}
		table.Append([]string{
			strconv.FormatInt(item.Member.ID, 10),
			username,
			strconv.Itoa(item.Member.Age),
			team,
		})
	}
	table.Render()
}

package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert teamA, teamB and member1..member4",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.connect(); err != nil {
				return err
			}
			repo, err := s.members(false)
			if err != nil {
				return err
			}
			fx, err := repo.Seed(s.ctx)
			if err != nil {
				return wrapError("seed: insert fixture", err, "Run `ermquery migrate` first and make sure the tables are empty.", 1)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "seed: %d team(s), %d member(s)\n", len(fx.TeamIDs), len(fx.MemberIDs))
			names := make([]string, 0, len(fx.MemberIDs))
			for name := range fx.MemberIDs {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "  %s: %d\n", name, fx.MemberIDs[name])
			}
			return nil
		},
	}
}

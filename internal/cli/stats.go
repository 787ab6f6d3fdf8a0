package cli

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/deicod/ermquery/orm/runtime"
)

func newStatsCmd() *cobra.Command {
	var minAverage float64
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print member age aggregates and per-team averages",
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
			stats, err := repo.Stats(s.ctx)
			if err != nil {
				return wrapError("stats: aggregate ages", err, "", 1)
			}
			having := runtime.None[float64]()
			if cmd.Flags().Changed("min-average") {
				having = runtime.Some(minAverage)
			}
			averages, err := repo.AverageAgeByTeam(s.ctx, having)
			if err != nil {
				return wrapError("stats: average age by team", err, "", 1)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "count: %d\nsum: %d\navg: %.2f\nmax: %d\nmin: %d\n",
				stats.Count, stats.SumAge, stats.AvgAge, stats.MaxAge, stats.MinAge)
			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"team", "average age"})
			for _, avg := range averages {
				table.Append([]string{avg.Team, strconv.FormatFloat(avg.AverageAge, 'f', 2, 64)})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().Float64Var(&minAverage, "min-average", 0, "Only list teams whose average age is at least this")
	return cmd
}

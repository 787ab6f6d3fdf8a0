package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deicod/ermquery/internal/member"
	"github.com/deicod/ermquery/orm/migrate"
)

var (
	planMigrations     = migrate.Plan
	applyMigrations    = migrate.Apply
	rollbackMigrations = migrate.Rollback
)

func newMigrateCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the embedded member/team schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			execMode := strings.ToLower(strings.TrimSpace(mode))
			if execMode == "" {
				execMode = "apply"
			}
			switch execMode {
			case "plan", "apply", "rollback":
			default:
				return CommandError{
					Message:    fmt.Sprintf("migrate: unsupported mode %q", execMode),
					Suggestion: "Use one of plan, apply, or rollback.",
					ExitCode:   2,
				}
			}

			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.connect(); err != nil {
				return err
			}
			ctx := s.ctx
			out := cmd.OutOrStdout()
			fsys := member.Migrations
			dir := migrate.WithDirectory("migrations")

			plan, err := planMigrations(ctx, s.db, fsys, dir)
			if err != nil {
				var driftErr migrate.SchemaDriftError
				if errors.As(err, &driftErr) {
					return CommandError{
						Message:    fmt.Sprintf("migrate: schema drift detected for %s", strings.Join(driftErr.Missing, ", ")),
						Cause:      err,
						Suggestion: "Reconcile the applied versions with the migrations shipped in this binary before continuing.",
						ExitCode:   1,
					}
				}
				return wrapError("migrate: plan migrations", err, "Resolve the planning error before retrying.", 1)
			}

			switch execMode {
			case "plan":
				if len(plan.Pending) == 0 {
					fmt.Fprintln(out, "migrate: database is up-to-date")
					return nil
				}
				for _, mig := range plan.Pending {
					fmt.Fprintf(out, "  pending: %s (%s)\n", mig.Version, mig.Name)
				}
				return nil
			case "apply":
				if len(plan.Pending) == 0 {
					fmt.Fprintln(out, "migrate: database is up-to-date")
					return nil
				}
				ran, err := applyMigrations(ctx, s.db, fsys, dir)
				if err != nil {
					return wrapError("migrate: apply migrations", err, "Review the SQL error and re-run `ermquery migrate --mode apply`.", 1)
				}
				for _, mig := range ran {
					s.logger.Info("migration applied", zap.String("version", mig.Version), zap.String("path", mig.Path))
				}
				fmt.Fprintf(out, "migrate: applied %d migration(s)\n", len(ran))
				return nil
			default:
				reverted, err := rollbackMigrations(ctx, s.db, fsys, dir)
				if err != nil {
					if errors.Is(err, migrate.ErrNoAppliedMigrations) {
						return CommandError{
							Message:    "migrate: no applied migrations to rollback",
							Suggestion: "Apply at least one migration before running rollback.",
							ExitCode:   1,
						}
					}
					return wrapError("migrate: rollback", err, "Check the down script and that the database is reachable.", 1)
				}
				fmt.Fprintf(out, "migrate: rolled back %s (%s)\n", reverted.Version, reverted.Name)
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "apply", "Select plan, apply, or rollback execution mode")
	return cmd
}

package cli

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/deicod/ermquery/orm/migrate"
	testkit "github.com/deicod/ermquery/testing"
)

type migrationStubs struct {
	plan     func(context.Context, migrate.TxStarter, fs.FS, ...migrate.Option) (migrate.PlanResult, error)
	apply    func(context.Context, migrate.TxStarter, fs.FS, ...migrate.Option) ([]migrate.Migration, error)
	rollback func(context.Context, migrate.TxStarter, fs.FS, ...migrate.Option) (migrate.Migration, error)
}

func stubMigrations(t *testing.T, stubs migrationStubs) {
	t.Helper()
	prevPlan, prevApply, prevRollback := planMigrations, applyMigrations, rollbackMigrations
	if stubs.plan != nil {
		planMigrations = stubs.plan
	}
	if stubs.apply != nil {
		applyMigrations = stubs.apply
	}
	if stubs.rollback != nil {
		rollbackMigrations = stubs.rollback
	}
	t.Cleanup(func() {
		planMigrations, applyMigrations, rollbackMigrations = prevPlan, prevApply, prevRollback
	})
}

func embeddedPending(ctx context.Context, t *testing.T, fsys fs.FS) []migrate.Migration {
	t.Helper()
	found, err := migrate.Discover(ctx, fsys, "migrations")
	if err != nil {
		t.Fatalf("discover embedded migrations: %v", err)
	}
	var up []migrate.Migration
	for _, m := range found {
		if m.Direction == migrate.Up {
			up = append(up, m)
		}
	}
	return up
}

func TestMigratePlanListsEmbeddedMigrations(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	stubMigrations(t, migrationStubs{
		plan: func(ctx context.Context, conn migrate.TxStarter, fsys fs.FS, _ ...migrate.Option) (migrate.PlanResult, error) {
			if conn != sandbox.DB() {
				t.Fatalf("plan must run on the opened database")
			}
			return migrate.PlanResult{Pending: embeddedPending(ctx, t, fsys)}, nil
		},
	})

	out, err := runCLI(t, sandbox, "migrate", "--mode", "plan")
	if err != nil {
		t.Fatalf("migrate plan: %v", err)
	}
	if !strings.Contains(out, "pending: 0001 (0001_member_team.sql)") {
		t.Fatalf("expected the member/team migration to be pending:\n%s", out)
	}
}

func TestMigrateApply(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	pending := []migrate.Migration{{Version: "0001", Name: "0001_member_team.sql", Path: "migrations/0001_member_team.sql"}}
	applied := false
	stubMigrations(t, migrationStubs{
		plan: func(context.Context, migrate.TxStarter, fs.FS, ...migrate.Option) (migrate.PlanResult, error) {
			return migrate.PlanResult{Pending: pending}, nil
		},
		apply: func(context.Context, migrate.TxStarter, fs.FS, ...migrate.Option) ([]migrate.Migration, error) {
			applied = true
			return pending, nil
		},
	})

	out, err := runCLI(t, sandbox, "migrate")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !applied || out != "migrate: applied 1 migration(s)\n" {
		t.Fatalf("unexpected apply result (applied=%v):\n%s", applied, out)
	}
}

func TestMigrateApplyUpToDate(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	stubMigrations(t, migrationStubs{
		plan: func(context.Context, migrate.TxStarter, fs.FS, ...migrate.Option) (migrate.PlanResult, error) {
			return migrate.PlanResult{Applied: []string{"0001"}}, nil
		},
		apply: func(context.Context, migrate.TxStarter, fs.FS, ...migrate.Option) ([]migrate.Migration, error) {
			t.Fatalf("apply must not run without pending migrations")
			return nil, nil
		},
	})

	out, err := runCLI(t, sandbox, "migrate", "--mode", "apply")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if out != "migrate: database is up-to-date\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestMigrateSchemaDrift(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	stubMigrations(t, migrationStubs{
		plan: func(context.Context, migrate.TxStarter, fs.FS, ...migrate.Option) (migrate.PlanResult, error) {
			return migrate.PlanResult{}, migrate.SchemaDriftError{Missing: []string{"0002"}}
		},
	})

	_, err := runCLI(t, sandbox, "migrate", "--mode", "plan")
	cerr := commandError(t, err)
	if cerr.Message != "migrate: schema drift detected for 0002" {
		t.Fatalf("unexpected message: %q", cerr.Message)
	}
}

func TestMigrateRollback(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	stubMigrations(t, migrationStubs{
		plan: func(context.Context, migrate.TxStarter, fs.FS, ...migrate.Option) (migrate.PlanResult, error) {
			return migrate.PlanResult{Applied: []string{"0001"}}, nil
		},
		rollback: func(context.Context, migrate.TxStarter, fs.FS, ...migrate.Option) (migrate.Migration, error) {
			return migrate.Migration{Version: "0001", Name: "0001_member_team_down.sql", Direction: migrate.Down}, nil
		},
	})

	out, err := runCLI(t, sandbox, "migrate", "--mode", "rollback")
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if out != "migrate: rolled back 0001 (0001_member_team_down.sql)\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestMigrateRollbackWithNothingApplied(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	stubMigrations(t, migrationStubs{
		plan: func(context.Context, migrate.TxStarter, fs.FS, ...migrate.Option) (migrate.PlanResult, error) {
			return migrate.PlanResult{}, nil
		},
		rollback: func(context.Context, migrate.TxStarter, fs.FS, ...migrate.Option) (migrate.Migration, error) {
			return migrate.Migration{}, migrate.ErrNoAppliedMigrations
		},
	})

	_, err := runCLI(t, sandbox, "migrate", "--mode", "rollback")
	if cerr := commandError(t, err); cerr.Message != "migrate: no applied migrations to rollback" {
		t.Fatalf("unexpected message: %q", cerr.Message)
	}
}

func TestMigrateRejectsUnknownMode(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	stubMigrations(t, migrationStubs{
		plan: func(context.Context, migrate.TxStarter, fs.FS, ...migrate.Option) (migrate.PlanResult, error) {
			return migrate.PlanResult{}, errors.New("plan must not run")
		},
	})

	_, err := runCLI(t, sandbox, "migrate", "--mode", "redo")
	if cerr := commandError(t, err); cerr.ExitStatus() != 2 {
		t.Fatalf("expected exit code 2, got %d", cerr.ExitStatus())
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deicod/ermquery/internal/member"
	"github.com/deicod/ermquery/observability/logging"
	"github.com/deicod/ermquery/observability/metrics"
	"github.com/deicod/ermquery/observability/tracing"
	"github.com/deicod/ermquery/orm/id"
	"github.com/deicod/ermquery/orm/pg"
	"github.com/deicod/ermquery/orm/runtime"
)

const serviceName = "ermquery"

var (
	verbose    bool
	configPath string
	envName    string

	openDB = pg.Connect
)

// NewRootCmd constructs the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ermquery",
		Short: "ermquery - dynamic member/team queries over PostgreSQL",
		Long:  "ermquery composes optional search criteria into SQL predicates and runs the member/team query catalogue against PostgreSQL (pgx v5).",
	}
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging output")
	cmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigFile, "Path to the ermquery.yaml configuration file")
	cmd.PersistentFlags().StringVar(&envName, "env", "", "Target environment profile (dev, staging, prod)")
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	return cmd
}

// Execute runs the CLI entrypoint.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		exitCode := 1
		var cerr CommandError
		if errors.As(err, &cerr) {
			msg := strings.TrimSpace(cerr.Message)
			if msg == "" && cerr.Cause != nil {
				msg = cerr.Cause.Error()
			}
			if msg != "" {
				fmt.Fprintln(os.Stderr, msg)
			}
			if cerr.Cause != nil && msg != cerr.Cause.Error() && (verbose || msg == "") {
				fmt.Fprintf(os.Stderr, "details: %v\n", cerr.Cause)
			}
			if cerr.Suggestion != "" {
				fmt.Fprintln(os.Stderr, formatSuggestion(cerr.Suggestion))
			}
			exitCode = cerr.ExitStatus()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode)
	}
}

// session carries what every subcommand shares: config, logger, the correlated context
// and, once connected, the observed database handle.
type session struct {
	ctx       context.Context
	cfg       projectConfig
	logger    *zap.Logger
	collector *metrics.InMemoryCollector
	db        *pg.DB
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadProjectConfig(configPath)
	if err != nil {
		return nil, wrapError(fmt.Sprintf("read config %s", configPath), err, "Fix the YAML syntax or point --config at a valid file.", 2)
	}
	logger, err := logging.New(serviceName, verbose || cfg.QueryLoggingEnabled())
	if err != nil {
		return nil, wrapError("build logger", err, "", 1)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.QueryCorrelationEnabled() {
		correlation := id.Correlation()
		ctx = runtime.WithCorrelationID(ctx, correlation)
		logger = logger.With(zap.String("correlation_id", correlation))
	}
	return &session{
		ctx:       ctx,
		cfg:       cfg,
		logger:    logger.With(zap.String("command", cmd.Name())),
		collector: metrics.NewInMemoryCollector(),
	}, nil
}

// connect opens the database for the resolved profile and attaches the query observer.
func (s *session) connect() error {
	dsn, profile := s.cfg.DSN(envName)
	if dsn == "" {
		return CommandError{
			Message:    "database.url is not configured",
			Suggestion: fmt.Sprintf("Set database.url in %s, configure database.environments, or export %s.", configPath, envDatabaseURL),
			ExitCode:   2,
		}
	}
	var opts []pg.Option
	if opt := s.cfg.PoolOption(); opt != nil {
		opts = append(opts, opt)
	}
	var tracer tracing.Tracer
	if s.cfg.QuerySpansEnabled() {
		tracer = tracing.NewOTelTracer(nil, serviceName)
		opts = append(opts, pg.WithTracer(tracer))
	}
	db, err := openDB(s.ctx, dsn, opts...)
	if err != nil {
		return wrapError(fmt.Sprintf("connect database (%s profile)", profile), err, "Verify the database is reachable and credentials are correct.", 1)
	}
	observer := runtime.QueryObserver{
		Tracer:     tracer,
		Collector:  s.collector,
		Correlator: runtime.ContextCorrelation,
	}
	if verbose || s.cfg.QueryLoggingEnabled() {
		observer.Logger = logging.QueryLogger(s.logger)
	}
	db.UseObserver(observer)
	s.db = db
	s.logger.Debug("connected", zap.String("profile", profile))
	return nil
}

// members builds a repository with the configured compose mode unless strict forces it.
func (s *session) members(strict bool) (*member.Repository, error) {
	mode, err := s.cfg.ComposeMode()
	if err != nil {
		return nil, wrapError("search.mode: "+err.Error(), err, "Use fail-open or strict.", 2)
	}
	if strict {
		mode = runtime.Strict
	}
	return member.NewRepository(s.db,
		member.WithComposeMode(mode),
		member.WithSkipReporter(logging.SkipReporter(s.logger)),
	), nil
}

func (s *session) Close() {
	for _, st := range s.collector.Snapshot() {
		s.logger.Debug("query stats",
			zap.String("table", st.Table),
			zap.String("operation", st.Operation),
			zap.Int("count", st.Count),
			zap.Int("errors", st.Errors),
			zap.Duration("mean", st.Mean()),
		)
	}
	if s.db != nil {
		s.db.Close()
	}
	_ = s.logger.Sync()
}

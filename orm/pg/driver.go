package pg

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deicod/ermquery/observability/tracing"
	"github.com/deicod/ermquery/orm/runtime"
)

// Pool exposes the subset of pgxpool behaviour required by repositories and migrations.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Close()
}

var _ Pool = (*pgxpool.Pool)(nil)

// DB wraps a pool and reports every statement to its observer.
type DB struct {
	Pool     Pool
	Observer runtime.QueryObserver
}

// PoolConfig describes connection pool tuning knobs exposed via configuration.
type PoolConfig struct {
	MaxConns          int32         `yaml:"max_conns"`
	MinConns          int32         `yaml:"min_conns"`
	MaxConnLifetime   time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `yaml:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `yaml:"health_check_period"`
}

// Option configures pgx connections.
type Option func(*pgxpool.Config)

// Connect initialises a pgx pool with optional configuration overrides.
func Connect(ctx context.Context, url string, opts ...Option) (*DB, error) {
	cfg, err := newPoolConfig(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("pg: parse config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Close releases the underlying pool.
func (db *DB) Close() {
	if db == nil || db.Pool == nil {
		return
	}
	db.Pool.Close()
}

// UseObserver attaches a query observer to the database handle.
func (db *DB) UseObserver(observer runtime.QueryObserver) {
	if db == nil {
		return
	}
	db.Observer = observer
}

// BeginTx satisfies migrate.TxStarter so migrations run on the same pool.
func (db *DB) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	if db == nil || db.Pool == nil {
		return nil, errNoPool
	}
	return db.Pool.BeginTx(ctx, txOptions)
}

var errNoPool = fmt.Errorf("pg: no pool configured")

// Query runs an ad-hoc read statement against table.
func (db *DB) Query(ctx context.Context, table, sql string, args ...any) (pgx.Rows, error) {
	return db.query(ctx, runtime.OperationSelect, table, sql, args)
}

// QueryRow runs an ad-hoc read statement returning a single row. The observation ends on Scan.
func (db *DB) QueryRow(ctx context.Context, table, sql string, args ...any) pgx.Row {
	return db.queryRow(ctx, runtime.OperationSelect, table, sql, args)
}

// Select issues a SELECT generated from runtime specs.
func (db *DB) Select(ctx context.Context, spec runtime.SelectSpec, opts ...runtime.ObserveOption) (pgx.Rows, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("pg: select %s: %w", spec.Table, err)
	}
	sql, args := runtime.BuildSelectSQL(spec)
	return db.query(ctx, runtime.OperationSelect, spec.Table, sql, args, opts...)
}

// SelectRow issues a SELECT expected to produce a single row, such as a projection of
// several aggregates.
func (db *DB) SelectRow(ctx context.Context, spec runtime.SelectSpec, opts ...runtime.ObserveOption) pgx.Row {
	if err := spec.Validate(); err != nil {
		return errRow{err: fmt.Errorf("pg: select %s: %w", spec.Table, err)}
	}
	sql, args := runtime.BuildSelectSQL(spec)
	return db.queryRow(ctx, runtime.OperationSelect, spec.Table, sql, args, opts...)
}

// Count returns the number of rows spec would select.
func (db *DB) Count(ctx context.Context, spec runtime.SelectSpec, opts ...runtime.ObserveOption) (int64, error) {
	if err := spec.Validate(); err != nil {
		return 0, fmt.Errorf("pg: count %s: %w", spec.Table, err)
	}
	sql, args := runtime.BuildCountSQL(spec)
	var total int64
	if err := db.queryRow(ctx, runtime.OperationCount, spec.Table, sql, args, opts...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// Aggregate issues a single-aggregate query generated from runtime specs.
func (db *DB) Aggregate(ctx context.Context, spec runtime.AggregateSpec) pgx.Row {
	if err := spec.Validate(); err != nil {
		return errRow{err: fmt.Errorf("pg: aggregate %s: %w", spec.Table, err)}
	}
	sql, args := runtime.BuildAggregateSQL(spec)
	return db.queryRow(ctx, runtime.OperationAggregate, spec.Table, sql, args)
}

// Update runs a bulk UPDATE and returns the number of affected rows.
func (db *DB) Update(ctx context.Context, spec runtime.UpdateSpec) (int64, error) {
	if err := spec.Validate(); err != nil {
		return 0, fmt.Errorf("pg: update %s: %w", spec.Table, err)
	}
	sql, args := runtime.BuildUpdateSQL(spec)
	return db.exec(ctx, runtime.OperationUpdate, spec.Table, sql, args)
}

// Delete runs a bulk DELETE and returns the number of affected rows.
func (db *DB) Delete(ctx context.Context, spec runtime.DeleteSpec) (int64, error) {
	if err := spec.Validate(); err != nil {
		return 0, fmt.Errorf("pg: delete %s: %w", spec.Table, err)
	}
	sql, args := runtime.BuildDeleteSQL(spec)
	return db.exec(ctx, runtime.OperationDelete, spec.Table, sql, args)
}

// BulkInsert inserts every row of spec in one statement. Rows carry the RETURNING columns;
// when spec has none the result set is empty.
func (db *DB) BulkInsert(ctx context.Context, spec runtime.BulkInsertSpec) (pgx.Rows, error) {
	sql, args, err := runtime.BuildBulkInsertSQL(spec)
	if err != nil {
		return nil, fmt.Errorf("pg: insert %s: %w", spec.Table, err)
	}
	return db.query(ctx, runtime.OperationInsert, spec.Table, sql, args, runtime.WithObservationAttributes(
		tracing.Int("orm.rows", len(spec.Rows)),
	))
}

func (db *DB) query(ctx context.Context, op runtime.QueryOperation, table, sql string, args []any, opts ...runtime.ObserveOption) (pgx.Rows, error) {
	obs := db.Observer.Observe(ctx, op, table, sql, args, opts...)
	if db.Pool == nil {
		obs.End(errNoPool)
		return nil, errNoPool
	}
	rows, err := db.Pool.Query(obs.Context(), sql, args...)
	if err != nil {
		obs.End(err)
		return rows, err
	}
	return &observedRows{Rows: rows, obs: obs}, nil
}

func (db *DB) queryRow(ctx context.Context, op runtime.QueryOperation, table, sql string, args []any, opts ...runtime.ObserveOption) pgx.Row {
	obs := db.Observer.Observe(ctx, op, table, sql, args, opts...)
	if db.Pool == nil {
		obs.End(errNoPool)
		return errRow{err: errNoPool}
	}
	row := db.Pool.QueryRow(obs.Context(), sql, args...)
	return &observedRow{Row: row, obs: obs}
}

func (db *DB) exec(ctx context.Context, op runtime.QueryOperation, table, sql string, args []any) (int64, error) {
	obs := db.Observer.Observe(ctx, op, table, sql, args)
	if db.Pool == nil {
		obs.End(errNoPool)
		return 0, errNoPool
	}
	tag, err := db.Pool.Exec(obs.Context(), sql, args...)
	obs.End(err)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type observedRow struct {
	pgx.Row
	obs  runtime.QueryObservation
	once sync.Once
}

func (r *observedRow) Scan(dest ...any) error {
	err := r.Row.Scan(dest...)
	r.once.Do(func() { r.obs.End(err) })
	return err
}

// observedRows ends its observation once the rows are drained or closed, so read errors
// and iteration time are recorded with the query.
type observedRows struct {
	pgx.Rows
	obs  runtime.QueryObservation
	once sync.Once
}

func (r *observedRows) Next() bool {
	if r.Rows.Next() {
		return true
	}
	r.end()
	return false
}

func (r *observedRows) Close() {
	r.Rows.Close()
	r.end()
}

func (r *observedRows) end() {
	r.once.Do(func() { r.obs.End(r.Rows.Err()) })
}

type errRow struct {
	err error
}

func (r errRow) Scan(...any) error { return r.err }

func newPoolConfig(url string, opts ...Option) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(cfg)
	}
	return cfg, nil
}

func applyDefaults(cfg *pgxpool.Config) {
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
}

// WithMaxConns sets the maximum pool size.
func WithMaxConns(n int32) Option {
	return func(cfg *pgxpool.Config) {
		cfg.MaxConns = n
	}
}

// WithMinConns sets the minimum pool size.
func WithMinConns(n int32) Option {
	return func(cfg *pgxpool.Config) {
		cfg.MinConns = n
	}
}

func WithMaxConnLifetime(d time.Duration) Option {
	return func(cfg *pgxpool.Config) { cfg.MaxConnLifetime = d }
}

func WithMaxConnIdleTime(d time.Duration) Option {
	return func(cfg *pgxpool.Config) { cfg.MaxConnIdleTime = d }
}

func WithHealthCheckPeriod(d time.Duration) Option {
	return func(cfg *pgxpool.Config) { cfg.HealthCheckPeriod = d }
}

// WithPoolConfig applies the non-zero settings of pc.
func WithPoolConfig(pc PoolConfig) Option {
	return func(cfg *pgxpool.Config) {
		if pc.MaxConns > 0 {
			cfg.MaxConns = pc.MaxConns
		}
		if pc.MinConns > 0 {
			cfg.MinConns = pc.MinConns
		}
		if pc.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = pc.MaxConnLifetime
		}
		if pc.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = pc.MaxConnIdleTime
		}
		if pc.HealthCheckPeriod > 0 {
			cfg.HealthCheckPeriod = pc.HealthCheckPeriod
		}
	}
}

// WithTracer enables pgx-level tracing in addition to the observer's query spans.
func WithTracer(tracer tracing.Tracer) Option {
	return func(cfg *pgxpool.Config) {
		if tracer == nil {
			cfg.ConnConfig.Tracer = nil
			return
		}
		cfg.ConnConfig.Tracer = newPGXTracer(tracer)
	}
}

package migrate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	defaultDirectory = "migrations"
	// "ermq" in ASCII.
	defaultAdvisoryLock = int64(0x65726d71)

	trackingTable = "ermquery_schema_migrations"

	undefinedTable = "42P01"
)

var (
	lockSQL          = "SELECT pg_advisory_xact_lock($1)"
	ensureTableSQL   = "CREATE TABLE IF NOT EXISTS " + trackingTable + " (version text PRIMARY KEY, applied_at timestamptz NOT NULL DEFAULT now())"
	appliedSQL       = "SELECT version FROM " + trackingTable + " ORDER BY applied_at, version"
	latestSQL        = "SELECT version FROM " + trackingTable + " ORDER BY applied_at DESC, version DESC LIMIT 1"
	recordSQL        = "INSERT INTO " + trackingTable + " (version) VALUES ($1) ON CONFLICT DO NOTHING"
	forgetSQL        = "DELETE FROM " + trackingTable + " WHERE version = $1"
	errNilConnection = errors.New("migrate: nil connection")
	errNilFS         = errors.New("migrate: nil filesystem")
)

// Direction tells forward scripts from rollback scripts.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// TxStarter abstracts pgx connections capable of starting a transaction. *pg.DB,
// *pgxpool.Pool and *pgx.Conn all qualify.
type TxStarter interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

var _ TxStarter = (*pgx.Conn)(nil)

// Options configures how migrations are discovered and applied.
type Options struct {
	// Directory is the root inside the fs.FS holding migration files.
	Directory string
	// BatchSize caps how many pending migrations one Apply runs. Zero runs all of them.
	BatchSize int
	// AdvisoryLockID is the pg_advisory_xact_lock key serialising migration runs.
	AdvisoryLockID int64
}

type Option func(*Options)

func WithDirectory(dir string) Option {
	return func(o *Options) {
		if dir != "" {
			o.Directory = dir
		}
	}
}

func WithBatchSize(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.BatchSize = size
		}
	}
}

func WithAdvisoryLock(id int64) Option {
	return func(o *Options) {
		if id != 0 {
			o.AdvisoryLockID = id
		}
	}
}

// Migration is one SQL file found by Discover.
type Migration struct {
	Version   string
	Name      string
	Path      string
	Direction Direction
}

// ParseVersion returns the part of a migration filename before the first "__", "_" or
// "-" separator, or the whole stem when there is none.
func ParseVersion(name string) (string, error) {
	stem := strings.TrimSuffix(name, path.Ext(name))
	if stem == "" {
		return "", fmt.Errorf("migrate: cannot derive version from %q", name)
	}
	cut := len(stem)
	for _, sep := range []string{"__", "_", "-"} {
		if idx := strings.Index(stem, sep); idx > 0 && idx < cut {
			cut = idx
			break
		}
	}
	return stem[:cut], nil
}

func directionOf(name string) Direction {
	lower := strings.ToLower(strings.TrimSuffix(name, path.Ext(name)))
	for _, marker := range []string{".down", "_down", "-down", ".rollback"} {
		if strings.HasSuffix(lower, marker) {
			return Down
		}
	}
	return Up
}

// Discover lists the .sql files under dir ordered by version. A missing directory yields
// no migrations; two forward scripts sharing a version is an error.
func Discover(ctx context.Context, fsys fs.FS, dir string) ([]Migration, error) {
	if fsys == nil {
		return nil, errNilFS
	}
	if dir == "" {
		dir = defaultDirectory
	}
	if _, err := fs.Stat(fsys, dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("migrate: inspect %s: %w", dir, err)
	}

	var found []Migration
	err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.EqualFold(path.Ext(d.Name()), ".sql") {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		version, err := ParseVersion(d.Name())
		if err != nil {
			return err
		}
		found = append(found, Migration{Version: version, Name: d.Name(), Path: p, Direction: directionOf(d.Name())})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].Version != found[j].Version {
			return found[i].Version < found[j].Version
		}
		return found[i].Path < found[j].Path
	})

	seen := make(map[string]string, len(found))
	for _, m := range found {
		if m.Direction != Up {
			continue
		}
		if prev, dup := seen[m.Version]; dup {
			return nil, fmt.Errorf("migrate: duplicate version %q in %s and %s", m.Version, prev, m.Path)
		}
		seen[m.Version] = m.Path
	}
	return found, nil
}

// PlanResult lists what Apply would do without doing it.
type PlanResult struct {
	Pending []Migration
	Applied []string
}

// SchemaDriftError reports applied versions whose SQL files are gone.
type SchemaDriftError struct {
	Missing []string
}

func (e SchemaDriftError) Error() string {
	return "migrate: schema drift detected: " + strings.Join(e.Missing, ", ")
}

var ErrNoAppliedMigrations = errors.New("migrate: no applied migrations to rollback")

type catalog struct {
	up   []Migration
	byUp map[string]Migration
	down map[string]Migration
}

func load(ctx context.Context, fsys fs.FS, settings Options) (catalog, error) {
	all, err := Discover(ctx, fsys, settings.Directory)
	if err != nil {
		return catalog{}, err
	}
	c := catalog{byUp: make(map[string]Migration), down: make(map[string]Migration)}
	for _, m := range all {
		if m.Direction == Down {
			c.down[m.Version] = m
			continue
		}
		c.up = append(c.up, m)
		c.byUp[m.Version] = m
	}
	return c, nil
}

func (c catalog) pending(applied map[string]bool, limit int) []Migration {
	var out []Migration
	for _, m := range c.up {
		if applied[m.Version] {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// run opens a transaction, takes the advisory lock and hands the transaction to fn. The
// transaction commits only when fn succeeds and commit is true.
func run(ctx context.Context, conn TxStarter, settings Options, commit bool, fn func(pgx.Tx) error) error {
	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("migrate: begin transaction: %w", err)
	}
	done := false
	defer func() {
		if !done {
			_ = tx.Rollback(ctx)
		}
	}()
	if _, err := tx.Exec(ctx, lockSQL, settings.AdvisoryLockID); err != nil {
		return fmt.Errorf("migrate: acquire advisory lock: %w", err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	if !commit {
		return nil
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("migrate: commit transaction: %w", err)
	}
	done = true
	return nil
}

func appliedVersions(ctx context.Context, tx pgx.Tx) ([]string, error) {
	rows, err := tx.Query(ctx, appliedSQL)
	if err != nil {
		return nil, err
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("migrate: read applied versions: %w", err)
	}
	return versions, nil
}

func setOf(versions []string) map[string]bool {
	out := make(map[string]bool, len(versions))
	for _, v := range versions {
		out[v] = true
	}
	return out
}

// Plan reports pending forward migrations. It fails with SchemaDriftError when the
// database records a version that no longer exists on disk. Nothing is written.
func Plan(ctx context.Context, conn TxStarter, fsys fs.FS, opts ...Option) (PlanResult, error) {
	if conn == nil {
		return PlanResult{}, errNilConnection
	}
	if fsys == nil {
		return PlanResult{}, errNilFS
	}
	settings := resolveOptions(opts...)
	cat, err := load(ctx, fsys, settings)
	if err != nil {
		return PlanResult{}, err
	}

	var result PlanResult
	err = run(ctx, conn, settings, false, func(tx pgx.Tx) error {
		applied, err := appliedVersions(ctx, tx)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
				result.Pending = cat.pending(nil, settings.BatchSize)
				return nil
			}
			return fmt.Errorf("migrate: list applied versions: %w", err)
		}
		var missing []string
		for _, v := range applied {
			if _, ok := cat.byUp[v]; !ok {
				missing = append(missing, v)
			}
		}
		if len(missing) > 0 {
			return SchemaDriftError{Missing: missing}
		}
		result = PlanResult{Pending: cat.pending(setOf(applied), settings.BatchSize), Applied: applied}
		return nil
	})
	if err != nil {
		return PlanResult{}, err
	}
	return result, nil
}

// Apply runs every pending forward migration and records it in the tracking table. All
// of it happens in one transaction. It returns the migrations that ran.
func Apply(ctx context.Context, conn TxStarter, fsys fs.FS, opts ...Option) ([]Migration, error) {
	if conn == nil {
		return nil, errNilConnection
	}
	if fsys == nil {
		return nil, errNilFS
	}
	settings := resolveOptions(opts...)
	cat, err := load(ctx, fsys, settings)
	if err != nil {
		return nil, err
	}

	var ran []Migration
	err = run(ctx, conn, settings, true, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, ensureTableSQL); err != nil {
			return fmt.Errorf("migrate: ensure tracking table: %w", err)
		}
		applied, err := appliedVersions(ctx, tx)
		if err != nil {
			return fmt.Errorf("migrate: list applied versions: %w", err)
		}
		for _, m := range cat.pending(setOf(applied), settings.BatchSize) {
			if err := execFile(ctx, tx, fsys, m); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, recordSQL, m.Version); err != nil {
				return fmt.Errorf("migrate: record %s: %w", m.Version, err)
			}
			ran = append(ran, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ran, nil
}

// Rollback runs the down script of the most recently applied version and forgets it.
func Rollback(ctx context.Context, conn TxStarter, fsys fs.FS, opts ...Option) (Migration, error) {
	if conn == nil {
		return Migration{}, errNilConnection
	}
	if fsys == nil {
		return Migration{}, errNilFS
	}
	settings := resolveOptions(opts...)
	cat, err := load(ctx, fsys, settings)
	if err != nil {
		return Migration{}, err
	}

	var reverted Migration
	err = run(ctx, conn, settings, true, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, ensureTableSQL); err != nil {
			return fmt.Errorf("migrate: ensure tracking table: %w", err)
		}
		var latest string
		if err := tx.QueryRow(ctx, latestSQL).Scan(&latest); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNoAppliedMigrations
			}
			return fmt.Errorf("migrate: inspect applied migrations: %w", err)
		}
		if _, ok := cat.byUp[latest]; !ok {
			return SchemaDriftError{Missing: []string{latest}}
		}
		down, ok := cat.down[latest]
		if !ok {
			return fmt.Errorf("migrate: no rollback script for version %s", latest)
		}
		if err := execFile(ctx, tx, fsys, down); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, forgetSQL, latest); err != nil {
			return fmt.Errorf("migrate: remove %s: %w", latest, err)
		}
		reverted = down
		return nil
	})
	if err != nil {
		return Migration{}, err
	}
	return reverted, nil
}

func execFile(ctx context.Context, tx pgx.Tx, fsys fs.FS, m Migration) error {
	raw, err := fs.ReadFile(fsys, m.Path)
	if err != nil {
		return fmt.Errorf("migrate: %s: %w", m.Path, err)
	}
	sql := string(raw)
	if _, err := tx.Exec(ctx, sql); err != nil {
		return locate(m.Path, sql, err)
	}
	return nil
}

func resolveOptions(opts ...Option) Options {
	settings := Options{
		Directory:      defaultDirectory,
		AdvisoryLockID: defaultAdvisoryLock,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}
	return settings
}

// locate prefixes err with path and, when Postgres reported one, the failing line and
// column.
func locate(path, sql string, err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", path, err)
	}
	if pgErr.Line > 0 {
		return fmt.Errorf("%s:%d: %w", path, pgErr.Line, err)
	}
	if pgErr.Position > 0 {
		line, col := lineColumn(sql, int(pgErr.Position))
		return fmt.Errorf("%s:%d:%d: %w", path, line, col, err)
	}
	return fmt.Errorf("%s: %w", path, err)
}

// lineColumn converts a 1-based character offset into a line and column.
func lineColumn(sql string, position int) (int, int) {
	line, col := 1, 1
	for i, r := range []rune(sql) {
		if i+1 >= position {
			break
		}
		if r == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

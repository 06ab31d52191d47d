package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"assetgen/internal/config"
)

// Run states stored in the database.
const (
	StateRunning     = "running"
	StateDone        = "done"
	StateAborted     = "aborted"
	StateFailed      = "failed"
	StateInterrupted = "interrupted"
)

// Run is one recorded invocation.
type Run struct {
	ID           string
	SpecPath     string
	OutputDir    string
	Backend      string
	Resume       bool
	State        string
	StartedAt    time.Time
	FinishedAt   *time.Time
	Planned      int
	Skipped      int
	Succeeded    int
	Failed       int
	TotalSeconds float64
	ErrorMessage string
}

// Outcome is what Finish records.
type Outcome struct {
	State        string
	Planned      int
	Skipped      int
	Succeeded    int
	Failed       int
	TotalSeconds float64
	Err          error
}

// ErrNotFound is returned by Get for unknown run IDs.
var ErrNotFound = errors.New("run not found")

// Store persists runs in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	timeLayout              = time.RFC3339Nano
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// OpenFromConfig opens the history database configured in cfg.
func OpenFromConfig(cfg *config.Config) (*Store, error) {
	return Open(cfg.History.Path)
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin records a new running run. Earlier runs for the same output
// directory still marked running are flagged interrupted first.
func (s *Store) Begin(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("history begin: run id required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if _, err := s.exec(ctx,
		`UPDATE runs SET state = ? WHERE output_dir = ? AND state = ?`,
		StateInterrupted, run.OutputDir, StateRunning,
	); err != nil {
		return fmt.Errorf("history begin: mark stale runs: %w", err)
	}
	if _, err := s.exec(ctx,
		`INSERT INTO runs (id, spec_path, output_dir, backend, resume, state, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SpecPath, run.OutputDir, run.Backend, boolToInt(run.Resume), StateRunning,
		run.StartedAt.UTC().Format(timeLayout),
	); err != nil {
		return fmt.Errorf("history begin: insert run: %w", err)
	}
	return nil
}

// Finish records the outcome of a run.
func (s *Store) Finish(ctx context.Context, id string, outcome Outcome) error {
	msg := ""
	if outcome.Err != nil {
		msg = outcome.Err.Error()
	}
	res, err := s.exec(ctx,
		`UPDATE runs SET state = ?, finished_at = ?, planned = ?, skipped = ?, succeeded = ?,
		 failed = ?, total_seconds = ?, error_message = ? WHERE id = ?`,
		outcome.State, time.Now().UTC().Format(timeLayout), outcome.Planned, outcome.Skipped,
		outcome.Succeeded, outcome.Failed, outcome.TotalSeconds, msg, id,
	)
	if err != nil {
		return fmt.Errorf("history finish: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("history finish %s: %w", id, ErrNotFound)
	}
	return nil
}

const selectColumns = `id, spec_path, output_dir, backend, resume, state, started_at, finished_at,
	planned, skipped, succeeded, failed, total_seconds, error_message`

// Get loads one run.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("history get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("history get %s: %w", id, err)
	}
	return run, nil
}

// List returns the most recent runs first. outputDir filters when non-empty;
// limit <= 0 returns every run.
func (s *Store) List(ctx context.Context, outputDir string, limit int) ([]Run, error) {
	query := `SELECT ` + selectColumns + ` FROM runs`
	var args []any
	if outputDir != "" {
		query += ` WHERE output_dir = ?`
		args = append(args, outputDir)
	}
	query += ` ORDER BY started_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history list: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("history list: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run      Run
		resume   int
		started  string
		finished sql.NullString
	)
	if err := row.Scan(&run.ID, &run.SpecPath, &run.OutputDir, &run.Backend, &resume, &run.State,
		&started, &finished, &run.Planned, &run.Skipped, &run.Succeeded, &run.Failed,
		&run.TotalSeconds, &run.ErrorMessage); err != nil {
		return nil, err
	}
	run.Resume = resume != 0
	if t, err := time.Parse(timeLayout, started); err == nil {
		run.StartedAt = t
	}
	if finished.Valid {
		if t, err := time.Parse(timeLayout, finished.String); err == nil {
			run.FinishedAt = &t
		}
	}
	return &run, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

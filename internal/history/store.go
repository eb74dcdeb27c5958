// Package history records build runs, per-pair outcomes and repository cache
// entries in a local SQLite database.
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

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/paircorpus/internal/models"
)

// ErrRunNotFound is returned when no run matches an id or id prefix.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is one stored run.
type RunRecord struct {
	ID         string
	Mode       string
	OutputRoot string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Succeeded  int
	Failed     int
}

// Duration returns the wall time of the run.
func (r RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// PairRecord is one stored pair outcome.
type PairRecord struct {
	ProgramName   string
	Status        string
	State         models.PairState
	Reason        string
	CFiles        int
	RustFiles     int
	Duration      time.Duration
	CInventory    *models.SourceInventory
	RustInventory *models.SourceInventory
}

// Store manages the SQLite run history
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the history database at dbPath
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// execWithRetry executes a SQL statement with exponential backoff retry on lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DBPath returns the database file path
func (s *Store) DBPath() string {
	return s.dbPath
}

// RecordRun stores a finished run, its pair results and the cache entries it
// used, in one transaction.
func (s *Store) RecordRun(ctx context.Context, report *models.RunReport, entries []models.CacheEntry) error {
	if report == nil {
		return errors.New("report cannot be nil")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var finished any
	if !report.FinishedAt.IsZero() {
		finished = report.FinishedAt
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, mode, output_root, started_at, finished_at, total, succeeded, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID, report.Mode, report.OutputRoot, report.StartedAt, finished,
		report.Total(), report.SucceededCount(), report.FailedCount())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, r := range report.Results {
		cFuncs, cTypes := inventoryColumns(r.CInventory)
		rustFuncs, rustTypes := inventoryColumns(r.RustInventory)
		_, err := tx.ExecContext(ctx, `INSERT INTO pair_results
			(run_id, position, program_name, status, state, reason, c_files, rust_files, duration_ms,
			 c_functions, c_types, rust_functions, rust_types)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			report.ID, i, r.ProgramName, r.Status, string(r.State), r.Reason, r.CFiles, r.RustFiles,
			r.Duration.Milliseconds(), cFuncs, cTypes, rustFuncs, rustTypes)
		if err != nil {
			return fmt.Errorf("insert pair result %s: %w", r.ProgramName, err)
		}
	}

	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `INSERT INTO cache_entries (repository_url, local_path, cloned_at, last_run_id)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(repository_url) DO UPDATE SET
				local_path = excluded.local_path,
				cloned_at = excluded.cloned_at,
				last_run_id = excluded.last_run_id`,
			e.RepositoryURL, e.LocalPath, e.ClonedAt, report.ID)
		if err != nil {
			return fmt.Errorf("upsert cache entry %s: %w", e.RepositoryURL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

func inventoryColumns(inv *models.SourceInventory) (functions, types sql.NullInt64) {
	if inv == nil {
		return
	}
	return sql.NullInt64{Int64: int64(inv.Functions), Valid: true}, sql.NullInt64{Int64: int64(inv.Types), Valid: true}
}

func inventoryFromColumns(files int, functions, types sql.NullInt64) *models.SourceInventory {
	if !functions.Valid || !types.Valid {
		return nil
	}
	return &models.SourceInventory{Files: files, Functions: int(functions.Int64), Types: int(types.Int64)}
}

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT id, mode, output_root, started_at, finished_at, total, succeeded, failed
		FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Mode, &r.OutputRoot, &r.StartedAt, &finished, &r.Total, &r.Succeeded, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ResolveRunID expands a unique id prefix to a full run id.
func (s *Store) ResolveRunID(ctx context.Context, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", ErrRunNotFound
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE substr(id, 1, ?) = ? LIMIT 2`, len(prefix), prefix)
	if err != nil {
		return "", fmt.Errorf("query run id: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate run ids: %w", err)
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("run id prefix %q is ambiguous", prefix)
	}
}

// PairResults returns the pair outcomes of a run in their original order.
func (s *Store) PairResults(ctx context.Context, runID string) ([]PairRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT program_name, status, state, reason, c_files, rust_files, duration_ms,
			c_functions, c_types, rust_functions, rust_types
		FROM pair_results WHERE run_id = ? ORDER BY position ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query pair results: %w", err)
	}
	defer rows.Close()

	var results []PairRecord
	for rows.Next() {
		var p PairRecord
		var state string
		var reason sql.NullString
		var durationMs int64
		var cFuncs, cTypes, rustFuncs, rustTypes sql.NullInt64
		if err := rows.Scan(&p.ProgramName, &p.Status, &state, &reason, &p.CFiles, &p.RustFiles, &durationMs,
			&cFuncs, &cTypes, &rustFuncs, &rustTypes); err != nil {
			return nil, fmt.Errorf("scan pair result: %w", err)
		}
		p.State = models.PairState(state)
		p.Reason = reason.String
		p.Duration = time.Duration(durationMs) * time.Millisecond
		p.CInventory = inventoryFromColumns(p.CFiles, cFuncs, cTypes)
		p.RustInventory = inventoryFromColumns(p.RustFiles, rustFuncs, rustTypes)
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pair results: %w", err)
	}
	return results, nil
}

// CacheEntries returns every recorded repository checkout, sorted by URL.
func (s *Store) CacheEntries(ctx context.Context) ([]models.CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT repository_url, local_path, cloned_at FROM cache_entries ORDER BY repository_url`)
	if err != nil {
		return nil, fmt.Errorf("query cache entries: %w", err)
	}
	defer rows.Close()

	var entries []models.CacheEntry
	for rows.Next() {
		var e models.CacheEntry
		if err := rows.Scan(&e.RepositoryURL, &e.LocalPath, &e.ClonedAt); err != nil {
			return nil, fmt.Errorf("scan cache entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cache entries: %w", err)
	}
	return entries, nil
}

// ClearCacheEntries forgets every recorded checkout, used after the cache is purged.
func (s *Store) ClearCacheEntries(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("clear cache entries: %w", err)
	}
	return nil
}

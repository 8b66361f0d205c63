package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// RunStatusRunning marks an attempt that has not finished.
const RunStatusRunning = "running"

// Run is one run_job attempt.
type Run struct {
	ID         string
	JobID      string
	Attempt    int
	AppContext string
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// StepEvent records the outcome of one step within a run.
type StepEvent struct {
	ID         int64
	RunID      string
	JobID      string
	StepIndex  int
	Processors []string
	Outcome    string
	Error      string
	Duration   time.Duration
	RecordedAt time.Time
}

// Store manages the run journal backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the history database and applies migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("history database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single writer; serialises access so pragmas apply to every statement.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.applyMigrations(context.Background()); err != nil {
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

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// BeginRun opens a new attempt for jobID and returns it.
func (s *Store) BeginRun(ctx context.Context, jobID, appContext string) (Run, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("begin run tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var attempt int
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(attempt), 0) FROM runs WHERE job_id = ?", jobID).Scan(&attempt); err != nil {
		return Run{}, fmt.Errorf("next attempt: %w", err)
	}

	run := Run{
		ID:         uuid.NewString(),
		JobID:      jobID,
		Attempt:    attempt + 1,
		AppContext: appContext,
		Status:     RunStatusRunning,
		StartedAt:  s.now().UTC(),
	}
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO runs (id, job_id, attempt, app_context, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.JobID,
		run.Attempt,
		nullableString(run.AppContext),
		run.Status,
		run.StartedAt.Format(time.RFC3339Nano),
	); err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("commit run: %w", err)
	}
	return run, nil
}

// RecordStep appends a step event to runID.
func (s *Store) RecordStep(ctx context.Context, event StepEvent) error {
	recorded := event.RecordedAt
	if recorded.IsZero() {
		recorded = s.now()
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO step_events (run_id, job_id, step_index, processors, outcome, error_message, duration_ms, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.RunID,
		event.JobID,
		event.StepIndex,
		strings.Join(event.Processors, ","),
		event.Outcome,
		nullableString(event.Error),
		event.Duration.Milliseconds(),
		recorded.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert step event: %w", err)
	}
	return nil
}

// FinishRun stamps the final status of runID.
func (s *Store) FinishRun(ctx context.Context, runID, status, errorMessage string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET status = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		status,
		nullableString(errorMessage),
		s.now().UTC().Format(time.RFC3339Nano),
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("finish run: run %s not found", runID)
	}
	return nil
}

// Runs lists attempts for jobID, oldest first.
func (s *Store) Runs(ctx context.Context, jobID string) ([]Run, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, job_id, attempt, app_context, status, error_message, started_at, finished_at
         FROM runs WHERE job_id = ? ORDER BY attempt`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run         Run
			appContext  sql.NullString
			errorMsg    sql.NullString
			startedRaw  string
			finishedRaw sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.JobID, &run.Attempt, &appContext, &run.Status, &errorMsg, &startedRaw, &finishedRaw); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.AppContext = appContext.String
		run.Error = errorMsg.String
		run.StartedAt = parseTimeString(startedRaw)
		if finishedRaw.Valid {
			finished := parseTimeString(finishedRaw.String)
			run.FinishedAt = &finished
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// StepEvents lists events for runID in step order.
func (s *Store) StepEvents(ctx context.Context, runID string) ([]StepEvent, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, run_id, job_id, step_index, processors, outcome, error_message, duration_ms, recorded_at
         FROM step_events WHERE run_id = ? ORDER BY step_index, id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query step events: %w", err)
	}
	defer rows.Close()

	var events []StepEvent
	for rows.Next() {
		var (
			event       StepEvent
			processors  string
			errorMsg    sql.NullString
			durationMS  int64
			recordedRaw string
		)
		if err := rows.Scan(&event.ID, &event.RunID, &event.JobID, &event.StepIndex, &processors, &event.Outcome, &errorMsg, &durationMS, &recordedRaw); err != nil {
			return nil, fmt.Errorf("scan step event: %w", err)
		}
		if processors != "" {
			event.Processors = strings.Split(processors, ",")
		}
		event.Error = errorMsg.String
		event.Duration = time.Duration(durationMS) * time.Millisecond
		event.RecordedAt = parseTimeString(recordedRaw)
		events = append(events, event)
	}
	return events, rows.Err()
}

// DeleteJob removes every run and step event for jobID and returns how
// many runs were removed.
func (s *Store) DeleteJob(ctx context.Context, jobID string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM step_events WHERE job_id = ?`, jobID); err != nil {
		return 0, fmt.Errorf("delete step events: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE job_id = ?`, jobID)
	if err != nil {
		return 0, fmt.Errorf("delete runs: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete runs rows: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete: %w", err)
	}
	return removed, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func parseTimeString(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t
	}
	return time.Time{}
}

// Package state records training run history in a local SQLite database.
package state

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// RunStatus describes the lifecycle of a training run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one row of training history. The configuration columns are
// written when the run starts; the result columns when it finishes.
type Run struct {
	ID            string
	Status        RunStatus
	StartedAt     time.Time
	CompletedAt   *time.Time
	MapFile       string
	Mode          string
	TileWidth     int
	TileHeight    int
	Augmentations string
	Trees         int
	MaxDepth      int
	Criterion     string
	Seed          int64
	TrainSamples  int
	TestSamples   int
	ClassCount    int
	Accuracy      float64
	ModelPath     string
	ReportJSON    string
	Error         string
}

// Duration reports how long the run took, or how long it has been
// running for a run that has not finished.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return time.Since(r.StartedAt)
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Result carries the outcome of a finished training run.
type Result struct {
	TrainSamples int
	TestSamples  int
	ClassCount   int
	Accuracy     float64
	ModelPath    string
	ReportJSON   string
}

// Store persists runs to a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens the run database at path, creating it and its schema if
// needed. Use ":memory:" for an in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open run database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping run database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize run schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun inserts a new run in the running state and fills in its ID.
// StartedAt is set to the current time unless the caller provided one.
func (s *Store) CreateRun(ctx context.Context, run *Run) error {
	run.ID = uuid.New().String()
	run.Status = RunStatusRunning
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, started_at, map_file, mode, tile_width, tile_height,
		                   augmentations, trees, max_depth, criterion, seed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Status, run.StartedAt, run.MapFile, run.Mode, run.TileWidth, run.TileHeight,
		run.Augmentations, run.Trees, run.MaxDepth, run.Criterion, run.Seed,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// CompleteRun marks a run as completed and records its results.
func (s *Store) CompleteRun(ctx context.Context, id string, res Result) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ?, train_samples = ?, test_samples = ?,
		        class_count = ?, accuracy = ?, model_path = ?, report_json = ?
		 WHERE id = ?`,
		RunStatusCompleted, time.Now().UTC(), res.TrainSamples, res.TestSamples,
		res.ClassCount, res.Accuracy, res.ModelPath, res.ReportJSON, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return checkAffected(result, id)
}

// FailRun marks a run as failed and records the error message.
func (s *Store) FailRun(ctx context.Context, id string, errMsg string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		RunStatusFailed, time.Now().UTC(), errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}
	return checkAffected(result, id)
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs ordered most recent first. A limit of zero or
// less returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := selectRuns + ` ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

const selectRuns = `SELECT id, status, started_at, completed_at, map_file, mode,
       tile_width, tile_height, augmentations, trees, max_depth, criterion, seed,
       train_samples, test_samples, class_count, accuracy, model_path, report_json, error
  FROM runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var (
		completedAt sql.NullTime
		accuracy    sql.NullFloat64
		modelPath   sql.NullString
		reportJSON  sql.NullString
		errMsg      sql.NullString
	)

	err := row.Scan(&run.ID, &run.Status, &run.StartedAt, &completedAt, &run.MapFile, &run.Mode,
		&run.TileWidth, &run.TileHeight, &run.Augmentations, &run.Trees, &run.MaxDepth,
		&run.Criterion, &run.Seed, &run.TrainSamples, &run.TestSamples, &run.ClassCount,
		&accuracy, &modelPath, &reportJSON, &errMsg)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	run.Accuracy = accuracy.Float64
	run.ModelPath = modelPath.String
	run.ReportJSON = reportJSON.String
	run.Error = errMsg.String
	return run, nil
}

func checkAffected(result sql.Result, id string) error {
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ImportRunService manages import run records and their audit log.
type ImportRunService struct {
	pool *pgxpool.Pool
}

func NewImportRunService(pool *pgxpool.Pool) *ImportRunService {
	return &ImportRunService{pool: pool}
}

// CreateRun registers a new pending import for an already stored CSV file.
func (s *ImportRunService) CreateRun(ctx context.Context, filename, filePath string) (*ImportRun, error) {
	run := &ImportRun{
		ID:       uuid.New(),
		Filename: filename,
		FilePath: filePath,
		Status:   RunStatusPending,
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO import_runs (id, filename, file_path, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		run.ID, run.Filename, run.FilePath, string(run.Status),
	).Scan(&run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert import run: %w", err)
	}
	return run, nil
}

// GetRun returns one import run by id.
func (s *ImportRunService) GetRun(ctx context.Context, id uuid.UUID) (*ImportRun, error) {
	run := &ImportRun{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, filename, file_path, status, created_at, started_at, finished_at
		FROM import_runs
		WHERE id = $1`,
		id,
	).Scan(&run.ID, &run.Filename, &run.FilePath, &run.Status,
		&run.CreatedAt, &run.StartedAt, &run.FinishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("import run %s not found", id)
		}
		return nil, fmt.Errorf("get import run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns all import runs, newest first.
func (s *ImportRunService) ListRuns(ctx context.Context) ([]ImportRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, filename, file_path, status, created_at, started_at, finished_at
		FROM import_runs
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	defer rows.Close()

	var runs []ImportRun
	for rows.Next() {
		var r ImportRun
		if err := rows.Scan(&r.ID, &r.Filename, &r.FilePath, &r.Status,
			&r.CreatedAt, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, nil
}

// GetLog returns the audit entries of one run in append order.
func (s *ImportRunService) GetLog(ctx context.Context, runID uuid.UUID) ([]LogEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, run_id, logged_at::text, status, entry, reason
		FROM import_log_entries
		WHERE run_id = $1
		ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list log entries for run %s: %w", runID, err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.RunID, &e.LoggedAt, &e.Status, &e.Entry, &e.Reason); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// markRunning transitions a run to Running and stamps started_at.
func (s *ImportRunService) markRunning(ctx context.Context, runID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE import_runs
		SET status = 'Running', started_at = now()
		WHERE id = $1 AND status = 'Pending'`,
		runID,
	)
	if err != nil {
		return fmt.Errorf("mark run %s running: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("import run %s is not pending", runID)
	}
	return nil
}

// markFinished transitions a run to Completed or Failed and stamps finished_at.
func (s *ImportRunService) markFinished(ctx context.Context, runID uuid.UUID, status RunStatus) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE import_runs
		SET status = $2, finished_at = now()
		WHERE id = $1`,
		runID, string(status),
	)
	if err != nil {
		return fmt.Errorf("mark run %s %s: %w", runID, status, err)
	}
	return nil
}

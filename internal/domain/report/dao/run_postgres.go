package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daniel/reach-sync/internal/domain/report/policy"
)

// RunRecord is one persisted pipeline run
type RunRecord struct {
	RunID          string
	State          string
	WindowStart    time.Time
	WindowEnd      time.Time
	StartedAt      time.Time
	FinishedAt     time.Time
	CellsWritten   int
	ColumnsCreated int
	Updated        int
	Skipped        int
	NotFound       int
	Errored        int
	Error          string
}

// RunPostgres implements the pipeline run history repository
type RunPostgres struct {
	pool *pgxpool.Pool
}

// NewRunPostgres creates a new run history repository
func NewRunPostgres(pool *pgxpool.Pool) *RunPostgres {
	return &RunPostgres{pool: pool}
}

// SaveRun records one finished pipeline run
func (r *RunPostgres) SaveRun(ctx context.Context, run *policy.RunResult) error {
	query := `
		INSERT INTO report_runs (
			run_id, state, window_start, window_end, started_at, finished_at,
			cells_written, columns_created, updated, skipped, not_found, errored, error
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	var errText *string
	if run.Error != "" {
		errText = &run.Error
	}

	_, err := r.pool.Exec(ctx, query,
		run.RunID.String(),
		string(run.State),
		run.WindowStart,
		run.WindowEnd,
		run.StartedAt,
		run.FinishedAt,
		run.CellsWritten,
		len(run.CreatedColumns),
		run.Counts.Updated,
		run.Counts.Skipped,
		run.Counts.NotFound,
		run.Counts.Errored,
		errText,
	)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first
func (r *RunPostgres) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT run_id, state, window_start, window_end, started_at, finished_at,
		       cells_written, columns_created, updated, skipped, not_found, errored, error
		FROM report_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var rec RunRecord
		var errText *string
		if err := rows.Scan(
			&rec.RunID,
			&rec.State,
			&rec.WindowStart,
			&rec.WindowEnd,
			&rec.StartedAt,
			&rec.FinishedAt,
			&rec.CellsWritten,
			&rec.ColumnsCreated,
			&rec.Updated,
			&rec.Skipped,
			&rec.NotFound,
			&rec.Errored,
			&errText,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if errText != nil {
			rec.Error = *errText
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	return runs, nil
}

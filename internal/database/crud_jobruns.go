// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/revlumen/leadfeed/internal/metrics"
	"github.com/revlumen/leadfeed/internal/models"
)

// InsertJobRun records a stage invocation in "running" state.
func (db *DB) InsertJobRun(ctx context.Context, run *models.JobRun) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO job_runs (id, stage_kind, workspace_id, pack_id, status, started_at, items_processed, idempotency_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StageKind, run.WorkspaceID, run.PackID,
		string(run.Status), run.StartedAt.UTC(), run.ItemsProcessed,
		nullString(run.IdempotencyKey))
	metrics.ObserveDBQuery("insert", "job_runs", start, err)
	if err != nil {
		return fmt.Errorf("failed to insert job run %s: %w", run.ID, err)
	}
	return nil
}

// FinishJobRun finalizes a running job with its terminal status, counter and
// optional error message. A job is finalized exactly once.
func (db *DB) FinishJobRun(ctx context.Context, id string, status models.JobStatus, itemsProcessed int, runErr *string) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `
		UPDATE job_runs
		SET status = ?, finished_at = ?, items_processed = ?, error = ?
		WHERE id = ?`,
		string(status), time.Now().UTC(), itemsProcessed, nullString(runErr), id)
	metrics.ObserveDBQuery("finish", "job_runs", start, err)
	if err != nil {
		return fmt.Errorf("failed to finish job run %s: %w", id, err)
	}
	return nil
}

// GetJobRun returns a job run by ID, or ErrNotFound.
func (db *DB) GetJobRun(ctx context.Context, id string) (*models.JobRun, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	start := time.Now()
	run, err := scanJobRun(db.conn.QueryRowContext(ctx, `
		SELECT id, stage_kind, workspace_id, pack_id, status, started_at, finished_at, items_processed, error, idempotency_key
		FROM job_runs WHERE id = ?`, id))
	metrics.ObserveDBQuery("get", "job_runs", start, err)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// LatestJobRunByIdempotencyKey returns the most recent run for the same
// (workspace, stage, key) triple, or ErrNotFound. The stage executor uses it
// to short-circuit replays; only completed runs count as replayable.
func (db *DB) LatestJobRunByIdempotencyKey(ctx context.Context, workspaceID, stageKind, key string) (*models.JobRun, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	start := time.Now()
	run, err := scanJobRun(db.conn.QueryRowContext(ctx, `
		SELECT id, stage_kind, workspace_id, pack_id, status, started_at, finished_at, items_processed, error, idempotency_key
		FROM job_runs
		WHERE workspace_id = ? AND stage_kind = ? AND idempotency_key = ? AND status = ?
		ORDER BY started_at DESC
		LIMIT 1`,
		workspaceID, stageKind, key, string(models.JobStatusCompleted)))
	metrics.ObserveDBQuery("idempotency", "job_runs", start, err)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CountJobRunsSince counts runs for a (workspace, stage) pair started at or
// after the cutoff. Rate limiting counts every run that got past the gate,
// including failed ones.
func (db *DB) CountJobRunsSince(ctx context.Context, workspaceID, stageKind string, cutoff time.Time) (int, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	start := time.Now()
	var n int
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM job_runs
		WHERE workspace_id = ? AND stage_kind = ? AND started_at >= ?`,
		workspaceID, stageKind, cutoff.UTC()).Scan(&n)
	metrics.ObserveDBQuery("count_window", "job_runs", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to count job runs: %w", err)
	}
	return n, nil
}

// ListJobRuns returns recent runs for a workspace, newest first.
func (db *DB) ListJobRuns(ctx context.Context, workspaceID string, limit int) ([]models.JobRun, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, stage_kind, workspace_id, pack_id, status, started_at, finished_at, items_processed, error, idempotency_key
		FROM job_runs
		WHERE workspace_id = ?
		ORDER BY started_at DESC
		LIMIT ?`, workspaceID, limit)
	metrics.ObserveDBQuery("list", "job_runs", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list job runs: %w", err)
	}
	defer closeQuietly(rows, "job_runs rows")

	var out []models.JobRun
	for rows.Next() {
		run, err := scanJobRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

func scanJobRun(row rowScanner) (*models.JobRun, error) {
	var run models.JobRun
	var status string
	var finished sql.NullTime
	var errMsg, idemKey sql.NullString
	err := row.Scan(&run.ID, &run.StageKind, &run.WorkspaceID, &run.PackID,
		&status, &run.StartedAt, &finished, &run.ItemsProcessed, &errMsg, &idemKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job run: %w", err)
	}
	run.Status = models.JobStatus(status)
	run.FinishedAt = timePtr(finished)
	run.Error = stringPtr(errMsg)
	run.IdempotencyKey = stringPtr(idemKey)
	return &run, nil
}

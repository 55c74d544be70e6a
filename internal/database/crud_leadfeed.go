// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/revlumen/leadfeed/internal/metrics"
	"github.com/revlumen/leadfeed/internal/models"
)

const leadFeedColumns = `workspace_id, pack_id, company_id, composite, signal_types, suppression, sensitivity, outreach_score, last_seen_at, outreach_status, feed_date, updated_at`

// ReplaceLeadFeedRows atomically replaces the feed for one (workspace, pack)
// with the given rows. Companies absent from the new set disappear from the
// feed; the delete and the inserts share a transaction so readers never see
// a half-rebuilt feed.
func (db *DB) ReplaceLeadFeedRows(ctx context.Context, workspaceID, packID string, rowsIn []models.LeadFeedRow) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	start := time.Now()
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx, "lead_feed")

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM lead_feed WHERE workspace_id = ? AND pack_id = ?`,
		workspaceID, packID); err != nil {
		metrics.ObserveDBQuery("replace", "lead_feed", start, err)
		return fmt.Errorf("failed to clear lead feed: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO lead_feed (`+leadFeedColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare lead feed insert: %w", err)
	}
	defer closeQuietly(stmt, "lead_feed stmt")

	for i := range rowsIn {
		if err := execLeadFeedRow(ctx, stmt, &rowsIn[i]); err != nil {
			metrics.ObserveDBQuery("replace", "lead_feed", start, err)
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.ObserveDBQuery("replace", "lead_feed", start, err)
		return fmt.Errorf("failed to commit lead feed replace: %w", err)
	}
	metrics.ObserveDBQuery("replace", "lead_feed", start, nil)
	metrics.ProjectionRowsUpserted.Add(float64(len(rowsIn)))
	return nil
}

// UpsertLeadFeedRow writes or overwrites a single company's feed row in
// place. Used by the incremental path after a fresh scoring pass.
func (db *DB) UpsertLeadFeedRow(ctx context.Context, row *models.LeadFeedRow) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	signalTypes, err := json.Marshal(row.SignalTypes)
	if err != nil {
		return fmt.Errorf("failed to encode signal types: %w", err)
	}

	start := time.Now()
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO lead_feed (`+leadFeedColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (workspace_id, pack_id, company_id) DO UPDATE SET
			composite = EXCLUDED.composite,
			signal_types = EXCLUDED.signal_types,
			suppression = EXCLUDED.suppression,
			sensitivity = EXCLUDED.sensitivity,
			outreach_score = EXCLUDED.outreach_score,
			last_seen_at = EXCLUDED.last_seen_at,
			outreach_status = EXCLUDED.outreach_status,
			feed_date = EXCLUDED.feed_date,
			updated_at = EXCLUDED.updated_at`,
		row.WorkspaceID, row.PackID, row.CompanyID, row.Composite,
		string(signalTypes), row.Suppression, row.Sensitivity, row.OutreachScore,
		nullTime(row.LastSeenAt), nullString(row.OutreachStatus),
		toDate(row.FeedDate), row.UpdatedAt.UTC())
	metrics.ObserveDBQuery("upsert", "lead_feed", start, err)
	if err != nil {
		return fmt.Errorf("failed to upsert lead feed row for %s: %w", row.CompanyID, err)
	}
	metrics.ProjectionRowsUpserted.Inc()
	return nil
}

// DeleteLeadFeedRow removes a company from the feed. Used by the incremental
// path when a company no longer qualifies.
func (db *DB) DeleteLeadFeedRow(ctx context.Context, workspaceID, packID, companyID string) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM lead_feed WHERE workspace_id = ? AND pack_id = ? AND company_id = ?`,
		workspaceID, packID, companyID)
	metrics.ObserveDBQuery("delete", "lead_feed", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete lead feed row for %s: %w", companyID, err)
	}
	return nil
}

// HasLeadFeedRows reports whether the projection has any rows for the
// (workspace, pack). The feed query service uses it to choose between the
// projection and the live fallback.
func (db *DB) HasLeadFeedRows(ctx context.Context, workspaceID, packID string) (bool, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	start := time.Now()
	var one int
	err := db.conn.QueryRowContext(ctx,
		`SELECT 1 FROM lead_feed WHERE workspace_id = ? AND pack_id = ? LIMIT 1`,
		workspaceID, packID).Scan(&one)
	metrics.ObserveDBQuery("probe", "lead_feed", start, err)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to probe lead feed: %w", err)
	}
	return true, nil
}

// ListLeadFeed returns projection rows ranked by composite descending, with
// last seen recency and company ID as tie-breakers. Rows below compositeFloor
// are excluded; limit caps the page.
func (db *DB) ListLeadFeed(ctx context.Context, workspaceID, packID string, compositeFloor, limit int) ([]models.LeadFeedRow, error) {
	return db.listLeadFeed(ctx, workspaceID, packID, compositeFloor, limit,
		`composite DESC, last_seen_at DESC NULLS LAST, company_id`)
}

// ListLeadFeedRecent is the "recently active" ordering: last seen descending,
// composite as the tie-breaker.
func (db *DB) ListLeadFeedRecent(ctx context.Context, workspaceID, packID string, compositeFloor, limit int) ([]models.LeadFeedRow, error) {
	return db.listLeadFeed(ctx, workspaceID, packID, compositeFloor, limit,
		`last_seen_at DESC NULLS LAST, composite DESC, company_id`)
}

func (db *DB) listLeadFeed(ctx context.Context, workspaceID, packID string, compositeFloor, limit int, orderBy string) ([]models.LeadFeedRow, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+leadFeedColumns+`
		FROM lead_feed
		WHERE workspace_id = ? AND pack_id = ? AND composite >= ?
		ORDER BY `+orderBy+`
		LIMIT ?`,
		workspaceID, packID, compositeFloor, limit)
	metrics.ObserveDBQuery("list", "lead_feed", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list lead feed: %w", err)
	}
	defer closeQuietly(rows, "lead_feed rows")

	var out []models.LeadFeedRow
	for rows.Next() {
		var row models.LeadFeedRow
		var signalTypes string
		var lastSeen sql.NullTime
		var outreachStatus sql.NullString
		if err := rows.Scan(&row.WorkspaceID, &row.PackID, &row.CompanyID,
			&row.Composite, &signalTypes, &row.Suppression, &row.Sensitivity,
			&row.OutreachScore, &lastSeen, &outreachStatus,
			&row.FeedDate, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan lead feed row: %w", err)
		}
		if err := json.Unmarshal([]byte(signalTypes), &row.SignalTypes); err != nil {
			return nil, fmt.Errorf("failed to decode signal types for %s: %w", row.CompanyID, err)
		}
		row.LastSeenAt = timePtr(lastSeen)
		row.OutreachStatus = stringPtr(outreachStatus)
		out = append(out, row)
	}
	return out, rows.Err()
}

func execLeadFeedRow(ctx context.Context, stmt *sql.Stmt, row *models.LeadFeedRow) error {
	signalTypes, err := json.Marshal(row.SignalTypes)
	if err != nil {
		return fmt.Errorf("failed to encode signal types: %w", err)
	}
	_, err = stmt.ExecContext(ctx,
		row.WorkspaceID, row.PackID, row.CompanyID, row.Composite,
		string(signalTypes), row.Suppression, row.Sensitivity, row.OutreachScore,
		nullTime(row.LastSeenAt), nullString(row.OutreachStatus),
		toDate(row.FeedDate), row.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert lead feed row for %s: %w", row.CompanyID, err)
	}
	return nil
}

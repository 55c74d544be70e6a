// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/revlumen/leadfeed/internal/metrics"
	"github.com/revlumen/leadfeed/internal/models"
)

// InsertOutreachEntry logs a manual outreach action.
func (db *DB) InsertOutreachEntry(ctx context.Context, entry *models.OutreachEntry) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO outreach_log (id, workspace_id, company_id, status, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.WorkspaceID, entry.CompanyID, entry.Status, entry.Note,
		entry.CreatedAt.UTC())
	metrics.ObserveDBQuery("insert", "outreach_log", start, err)
	if err != nil {
		return fmt.Errorf("failed to insert outreach entry for %s: %w", entry.CompanyID, err)
	}
	return nil
}

// ListOutreachEntries returns a company's outreach history, newest first.
func (db *DB) ListOutreachEntries(ctx context.Context, workspaceID, companyID string, limit int) ([]models.OutreachEntry, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, workspace_id, company_id, status, note, created_at
		FROM outreach_log
		WHERE workspace_id = ? AND company_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, workspaceID, companyID, limit)
	metrics.ObserveDBQuery("list", "outreach_log", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list outreach entries: %w", err)
	}
	defer closeQuietly(rows, "outreach_log rows")

	var out []models.OutreachEntry
	for rows.Next() {
		var e models.OutreachEntry
		if err := rows.Scan(&e.ID, &e.WorkspaceID, &e.CompanyID, &e.Status, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outreach entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LatestOutreachStatusByCompany returns the most recent outreach status for
// each of the given companies. Companies with no outreach history are absent
// from the result.
func (db *DB) LatestOutreachStatusByCompany(ctx context.Context, workspaceID string, companyIDs []string) (map[string]string, error) {
	if len(companyIDs) == 0 {
		return map[string]string{}, nil
	}
	ctx, cancel := opContext(ctx)
	defer cancel()

	args := []any{workspaceID}
	for _, c := range companyIDs {
		args = append(args, c)
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT company_id, status
		FROM outreach_log
		WHERE workspace_id = ? AND company_id IN (`+placeholders(len(companyIDs))+`)
		QUALIFY ROW_NUMBER() OVER (PARTITION BY company_id ORDER BY created_at DESC, id DESC) = 1`,
		args...)
	metrics.ObserveDBQuery("latest_status", "outreach_log", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest outreach status: %w", err)
	}
	defer closeQuietly(rows, "outreach status rows")

	out := make(map[string]string, len(companyIDs))
	for rows.Next() {
		var company, status string
		if err := rows.Scan(&company, &status); err != nil {
			return nil, fmt.Errorf("failed to scan outreach status: %w", err)
		}
		out[company] = status
	}
	return out, rows.Err()
}

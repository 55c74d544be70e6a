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

	"github.com/revlumen/leadfeed/internal/metrics"
	"github.com/revlumen/leadfeed/internal/models"
)

// MergeSignalInstances upserts a batch of derived signal instances in one
// transaction. The merge happens in SQL so concurrent derivations never
// lose updates:
//
//   - first_seen_at keeps the earliest of both values
//   - last_seen_at keeps the latest
//   - confidence keeps the incoming value unless it is NULL
//
// Strength is always rewritten with the constant baseline.
func (db *DB) MergeSignalInstances(ctx context.Context, instances []models.SignalInstance) error {
	if len(instances) == 0 {
		return nil
	}
	ctx, cancel := opContext(ctx)
	defer cancel()

	start := time.Now()
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx, "signal_instances")

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO signal_instances
			(workspace_id, company_id, signal_id, pack_id, first_seen_at, last_seen_at, confidence, strength)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (company_id, signal_id, pack_id) DO UPDATE SET
			first_seen_at = LEAST(signal_instances.first_seen_at, EXCLUDED.first_seen_at),
			last_seen_at = GREATEST(signal_instances.last_seen_at, EXCLUDED.last_seen_at),
			confidence = COALESCE(EXCLUDED.confidence, signal_instances.confidence),
			strength = EXCLUDED.strength`)
	if err != nil {
		return fmt.Errorf("failed to prepare signal merge: %w", err)
	}
	defer closeQuietly(stmt, "signal_instances stmt")

	for i := range instances {
		si := &instances[i]
		if _, err := stmt.ExecContext(ctx,
			si.WorkspaceID, si.CompanyID, si.SignalID, si.PackID,
			si.FirstSeenAt.UTC(), si.LastSeenAt.UTC(),
			nullFloat(si.Confidence), si.Strength); err != nil {
			metrics.ObserveDBQuery("merge", "signal_instances", start, err)
			return fmt.Errorf("failed to merge signal %s/%s: %w", si.CompanyID, si.SignalID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.ObserveDBQuery("merge", "signal_instances", start, err)
		return fmt.Errorf("failed to commit signal merge: %w", err)
	}
	metrics.ObserveDBQuery("merge", "signal_instances", start, nil)
	return nil
}

// ListSignalInstances returns all signal instances for a workspace and pack,
// ordered by company then signal.
func (db *DB) ListSignalInstances(ctx context.Context, workspaceID, packID string) ([]models.SignalInstance, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT workspace_id, company_id, signal_id, pack_id, first_seen_at, last_seen_at, confidence, strength
		FROM signal_instances
		WHERE workspace_id = ? AND pack_id = ?
		ORDER BY company_id, signal_id`, workspaceID, packID)
	metrics.ObserveDBQuery("list", "signal_instances", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list signal instances: %w", err)
	}
	defer closeQuietly(rows, "signal_instances rows")

	var out []models.SignalInstance
	for rows.Next() {
		var si models.SignalInstance
		var confidence sql.NullFloat64
		if err := rows.Scan(&si.WorkspaceID, &si.CompanyID, &si.SignalID, &si.PackID,
			&si.FirstSeenAt, &si.LastSeenAt, &confidence, &si.Strength); err != nil {
			return nil, fmt.Errorf("failed to scan signal instance: %w", err)
		}
		si.Confidence = floatPtr(confidence)
		out = append(out, si)
	}
	return out, rows.Err()
}

// LatestSeenByCompany returns, for each of the given companies, the most
// recent last_seen_at across its signal instances. Companies with no signals
// are absent from the result.
func (db *DB) LatestSeenByCompany(ctx context.Context, workspaceID, packID string, companyIDs []string) (map[string]time.Time, error) {
	if len(companyIDs) == 0 {
		return map[string]time.Time{}, nil
	}
	ctx, cancel := opContext(ctx)
	defer cancel()

	args := []any{workspaceID, packID}
	for _, c := range companyIDs {
		args = append(args, c)
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT company_id, MAX(last_seen_at)
		FROM signal_instances
		WHERE workspace_id = ? AND pack_id = ? AND company_id IN (`+placeholders(len(companyIDs))+`)
		GROUP BY company_id`, args...)
	metrics.ObserveDBQuery("latest_seen", "signal_instances", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest seen: %w", err)
	}
	defer closeQuietly(rows, "latest_seen rows")

	out := make(map[string]time.Time, len(companyIDs))
	for rows.Next() {
		var company string
		var seen time.Time
		if err := rows.Scan(&company, &seen); err != nil {
			return nil, fmt.Errorf("failed to scan latest seen: %w", err)
		}
		out[company] = seen
	}
	return out, rows.Err()
}

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
	"github.com/revlumen/leadfeed/internal/packs"
)

// InsertReadinessSnapshot stores one readiness scoring output row.
func (db *DB) InsertReadinessSnapshot(ctx context.Context, s *models.ReadinessSnapshot) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	var explanation any
	if len(s.Explanation) > 0 {
		explanation = string(s.Explanation)
	}

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO readiness_snapshots (id, workspace_id, company_id, snapshot_date, pack_id, composite, explanation)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.WorkspaceID, s.CompanyID, toDate(s.SnapshotDate),
		nullString(s.PackID), s.Composite, explanation)
	metrics.ObserveDBQuery("insert", "readiness_snapshots", start, err)
	if err != nil {
		return fmt.Errorf("failed to insert readiness snapshot for %s: %w", s.CompanyID, err)
	}
	return nil
}

// InsertEngagementSnapshot stores one engagement scoring output row.
func (db *DB) InsertEngagementSnapshot(ctx context.Context, s *models.EngagementSnapshot) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	var explanation any
	if len(s.Explanation) > 0 {
		explanation = string(s.Explanation)
	}

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO engagement_snapshots (id, workspace_id, company_id, snapshot_date, pack_id, suitability, suppression, explanation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.WorkspaceID, s.CompanyID, toDate(s.SnapshotDate),
		nullString(s.PackID), s.Suitability, nullString(s.Suppression), explanation)
	metrics.ObserveDBQuery("insert", "engagement_snapshots", start, err)
	if err != nil {
		return fmt.Errorf("failed to insert engagement snapshot for %s: %w", s.CompanyID, err)
	}
	return nil
}

// ListLatestSnapshotPairs returns, per company, the most recent readiness
// snapshot joined with its engagement counterpart for the same date.
//
// A pair only forms when both rows agree on the pack after legacy
// normalization: a NULL pack_id is read as the system default pack. A company
// whose latest readiness row has no matching engagement row contributes no
// pair at all; the projection builder never mixes dates.
//
// A non-zero asOf bounds selection to snapshot_date <= asOf, letting rebuilds
// reproduce the feed as of an earlier date. An empty companySubset means all
// companies in the workspace.
func (db *DB) ListLatestSnapshotPairs(ctx context.Context, workspaceID, packID string, asOf time.Time, companySubset []string) ([]models.SnapshotPair, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	query := `
		SELECT
			r.id, r.workspace_id, r.company_id, r.snapshot_date, r.pack_id, r.composite, r.explanation, r.created_at,
			e.id, e.snapshot_date, e.pack_id, e.suitability, e.suppression, e.explanation, e.created_at
		FROM readiness_snapshots r
		JOIN engagement_snapshots e
			ON e.workspace_id = r.workspace_id
			AND e.company_id = r.company_id
			AND e.snapshot_date = r.snapshot_date
			AND COALESCE(e.pack_id, ?) = COALESCE(r.pack_id, ?)
		WHERE r.workspace_id = ? AND COALESCE(r.pack_id, ?) = ?`
	args := []any{packs.DefaultPackID, packs.DefaultPackID, workspaceID, packs.DefaultPackID, packID}
	if !asOf.IsZero() {
		query += ` AND r.snapshot_date <= ?`
		args = append(args, toDate(asOf))
	}
	if len(companySubset) > 0 {
		query += ` AND r.company_id IN (` + placeholders(len(companySubset)) + `)`
		for _, c := range companySubset {
			args = append(args, c)
		}
	}
	query += `
		QUALIFY ROW_NUMBER() OVER (
			PARTITION BY r.company_id
			ORDER BY r.snapshot_date DESC, r.created_at DESC, e.created_at DESC
		) = 1
		ORDER BY r.company_id`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.ObserveDBQuery("pairs", "snapshots", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot pairs: %w", err)
	}
	defer closeQuietly(rows, "snapshot pairs rows")

	var out []models.SnapshotPair
	for rows.Next() {
		var p models.SnapshotPair
		var rPack, ePack, suppression, rExp, eExp sql.NullString
		if err := rows.Scan(
			&p.Readiness.ID, &p.Readiness.WorkspaceID, &p.Readiness.CompanyID,
			&p.Readiness.SnapshotDate, &rPack, &p.Readiness.Composite, &rExp, &p.Readiness.CreatedAt,
			&p.Engagement.ID, &p.Engagement.SnapshotDate, &ePack,
			&p.Engagement.Suitability, &suppression, &eExp, &p.Engagement.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot pair: %w", err)
		}
		p.Readiness.PackID = stringPtr(rPack)
		if rExp.Valid {
			p.Readiness.Explanation = []byte(rExp.String)
		}
		p.Engagement.WorkspaceID = p.Readiness.WorkspaceID
		p.Engagement.CompanyID = p.Readiness.CompanyID
		p.Engagement.PackID = stringPtr(ePack)
		p.Engagement.Suppression = stringPtr(suppression)
		if eExp.Valid {
			p.Engagement.Explanation = []byte(eExp.String)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

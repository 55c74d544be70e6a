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

// InsertRawEvents inserts a batch of raw events in one transaction. Events
// whose ID already exists are silently skipped, which makes redelivery from
// the broker safe. Returns the number of rows actually inserted.
func (db *DB) InsertRawEvents(ctx context.Context, events []models.RawEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	ctx, cancel := opContext(ctx)
	defer cancel()

	start := time.Now()
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx, "raw_events")

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO raw_events (id, workspace_id, company_id, event_type, occurred_at, confidence, pack_id, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare raw event insert: %w", err)
	}
	defer closeQuietly(stmt, "raw_events stmt")

	inserted := 0
	for i := range events {
		ev := &events[i]
		var payload any
		if len(ev.Payload) > 0 {
			payload = string(ev.Payload)
		}
		res, err := stmt.ExecContext(ctx,
			ev.ID, ev.WorkspaceID, nullString(ev.CompanyID), ev.EventType,
			ev.OccurredAt.UTC(), nullFloat(ev.Confidence), ev.PackID, payload)
		if err != nil {
			metrics.ObserveDBQuery("insert_batch", "raw_events", start, err)
			return 0, fmt.Errorf("failed to insert raw event %s: %w", ev.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.ObserveDBQuery("insert_batch", "raw_events", start, err)
		return 0, fmt.Errorf("failed to commit raw events: %w", err)
	}
	metrics.ObserveDBQuery("insert_batch", "raw_events", start, nil)
	return inserted, nil
}

// ListRawEvents returns the events feeding a derivation pass: all events for
// the workspace and pack, oldest first. A non-empty companySubset restricts
// the result to those companies (backfill rebuilds per company slice).
func (db *DB) ListRawEvents(ctx context.Context, workspaceID, packID string, companySubset []string) ([]models.RawEvent, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	query := `
		SELECT id, workspace_id, company_id, event_type, occurred_at, confidence, pack_id, payload, created_at
		FROM raw_events
		WHERE workspace_id = ? AND pack_id = ?`
	args := []any{workspaceID, packID}
	if len(companySubset) > 0 {
		query += ` AND company_id IN (` + placeholders(len(companySubset)) + `)`
		for _, c := range companySubset {
			args = append(args, c)
		}
	}
	query += ` ORDER BY occurred_at, id`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.ObserveDBQuery("list", "raw_events", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list raw events: %w", err)
	}
	defer closeQuietly(rows, "raw_events rows")

	var out []models.RawEvent
	for rows.Next() {
		ev, err := scanRawEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// CountRawEvents returns the event count for a workspace and pack.
func (db *DB) CountRawEvents(ctx context.Context, workspaceID, packID string) (int, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	start := time.Now()
	var n int
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM raw_events WHERE workspace_id = ? AND pack_id = ?`,
		workspaceID, packID).Scan(&n)
	metrics.ObserveDBQuery("count", "raw_events", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to count raw events: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRawEvent(row rowScanner) (models.RawEvent, error) {
	var ev models.RawEvent
	var companyID, payload sql.NullString
	var confidence sql.NullFloat64
	if err := row.Scan(&ev.ID, &ev.WorkspaceID, &companyID, &ev.EventType,
		&ev.OccurredAt, &confidence, &ev.PackID, &payload, &ev.CreatedAt); err != nil {
		return ev, fmt.Errorf("failed to scan raw event: %w", err)
	}
	ev.CompanyID = stringPtr(companyID)
	ev.Confidence = floatPtr(confidence)
	if payload.Valid {
		ev.Payload = []byte(payload.String)
	}
	return ev, nil
}

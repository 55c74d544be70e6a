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

// UpsertWorkspace creates or updates a workspace.
func (db *DB) UpsertWorkspace(ctx context.Context, ws *models.Workspace) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO workspaces (id, name, active_pack_id)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			active_pack_id = EXCLUDED.active_pack_id`,
		ws.ID, ws.Name, nullString(ws.ActivePackID))
	metrics.ObserveDBQuery("upsert", "workspaces", start, err)
	if err != nil {
		return fmt.Errorf("failed to upsert workspace %s: %w", ws.ID, err)
	}
	return nil
}

// GetWorkspace returns a workspace by ID, or ErrNotFound.
func (db *DB) GetWorkspace(ctx context.Context, id string) (*models.Workspace, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	start := time.Now()
	var ws models.Workspace
	var activePack sql.NullString
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, name, active_pack_id, created_at
		FROM workspaces WHERE id = ?`, id).
		Scan(&ws.ID, &ws.Name, &activePack, &ws.CreatedAt)
	metrics.ObserveDBQuery("get", "workspaces", start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace %s: %w", id, err)
	}
	ws.ActivePackID = stringPtr(activePack)
	return &ws, nil
}

// ListWorkspaces returns all workspaces ordered by ID.
func (db *DB) ListWorkspaces(ctx context.Context) ([]models.Workspace, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, name, active_pack_id, created_at
		FROM workspaces ORDER BY id`)
	metrics.ObserveDBQuery("list", "workspaces", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer closeQuietly(rows, "workspaces rows")

	var out []models.Workspace
	for rows.Next() {
		var ws models.Workspace
		var activePack sql.NullString
		if err := rows.Scan(&ws.ID, &ws.Name, &activePack, &ws.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		ws.ActivePackID = stringPtr(activePack)
		out = append(out, ws)
	}
	return out, rows.Err()
}

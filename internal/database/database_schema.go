// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

/*
database_schema.go - Database Schema Management

All tables are defined in the initial CREATE TABLE statements: a single
source of truth for the schema, no migration replay on startup.

Natural keys are enforced by PRIMARY KEY constraints so that every upsert can
be expressed as INSERT ... ON CONFLICT:

  - signal_instances: (company_id, signal_id, pack_id)
  - lead_feed:        (workspace_id, pack_id, company_id) - history-overwriting;
    feed_date records which snapshot date the row reflects

Index strategy: composite indexes for the hot lookups - job run idempotency
and rate-limit counting, snapshot pairing by (workspace, date), and feed
ordering by (workspace, pack, feed_date).
*/

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/revlumen/leadfeed/internal/models"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS workspaces (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			active_pack_id TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS raw_events (
			id UUID PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			company_id TEXT,
			event_type TEXT NOT NULL,
			occurred_at TIMESTAMP NOT NULL,
			confidence DOUBLE,
			pack_id TEXT NOT NULL,
			payload TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS signal_instances (
			workspace_id TEXT NOT NULL,
			company_id TEXT NOT NULL,
			signal_id TEXT NOT NULL,
			pack_id TEXT NOT NULL,
			first_seen_at TIMESTAMP NOT NULL,
			last_seen_at TIMESTAMP NOT NULL,
			confidence DOUBLE,
			strength DOUBLE NOT NULL,
			PRIMARY KEY (company_id, signal_id, pack_id)
		)`,

		`CREATE TABLE IF NOT EXISTS readiness_snapshots (
			id UUID PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			company_id TEXT NOT NULL,
			snapshot_date DATE NOT NULL,
			pack_id TEXT,
			composite INTEGER NOT NULL,
			explanation TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS engagement_snapshots (
			id UUID PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			company_id TEXT NOT NULL,
			snapshot_date DATE NOT NULL,
			pack_id TEXT,
			suitability DOUBLE NOT NULL,
			suppression TEXT,
			explanation TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS lead_feed (
			workspace_id TEXT NOT NULL,
			pack_id TEXT NOT NULL,
			company_id TEXT NOT NULL,
			composite INTEGER NOT NULL,
			signal_types TEXT NOT NULL,
			suppression TEXT NOT NULL,
			sensitivity TEXT NOT NULL,
			outreach_score INTEGER NOT NULL,
			last_seen_at TIMESTAMP,
			outreach_status TEXT,
			feed_date DATE NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (workspace_id, pack_id, company_id)
		)`,

		`CREATE TABLE IF NOT EXISTS outreach_log (
			id UUID PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			company_id TEXT NOT NULL,
			status TEXT NOT NULL,
			note TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS job_runs (
			id UUID PRIMARY KEY,
			stage_kind TEXT NOT NULL,
			workspace_id TEXT NOT NULL,
			pack_id TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP,
			items_processed INTEGER DEFAULT 0,
			error TEXT,
			idempotency_key TEXT
		)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

// createIndexes creates indexes for common query patterns.
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE INDEX IF NOT EXISTS idx_raw_events_pack ON raw_events (workspace_id, pack_id, event_type)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_instances_ws ON signal_instances (workspace_id, pack_id, company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_readiness_date ON readiness_snapshots (workspace_id, snapshot_date)`,
		`CREATE INDEX IF NOT EXISTS idx_engagement_date ON engagement_snapshots (workspace_id, snapshot_date)`,
		`CREATE INDEX IF NOT EXISTS idx_lead_feed_date ON lead_feed (workspace_id, pack_id, feed_date)`,
		`CREATE INDEX IF NOT EXISTS idx_outreach_company ON outreach_log (workspace_id, company_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_job_runs_window ON job_runs (workspace_id, stage_kind, started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_job_runs_idem ON job_runs (workspace_id, stage_kind, idempotency_key)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}

	return nil
}

// seedDefaults inserts the default workspace used by stage invocations that
// omit one. Idempotent across restarts.
func (db *DB) seedDefaults() error {
	ctx, cancel := schemaContext()
	defer cancel()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO workspaces (id, name) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`,
		models.DefaultWorkspaceID, "Default workspace")
	if err != nil {
		return fmt.Errorf("seed default workspace: %w", err)
	}
	return nil
}

// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

// Package database provides the DuckDB data access layer for Leadfeed.
//
// Layout follows one file per concern:
//
//   - database.go          - connection management
//   - database_schema.go   - table and index creation
//   - crud_workspaces.go   - workspace rows
//   - crud_events.go       - raw company events
//   - crud_signals.go      - signal instance merge upsert
//   - crud_snapshots.go    - readiness/engagement snapshots and pairing
//   - crud_leadfeed.go     - lead feed projection rows
//   - crud_jobruns.go      - job run audit records
//   - crud_outreach.go     - manual outreach log
//
// All write paths that span multiple rows run inside a single transaction so
// a mid-batch failure leaves no partial writes. Upserts are expressed as one
// INSERT ... ON CONFLICT DO UPDATE statement; conflict resolution happens in
// SQL (LEAST/GREATEST/COALESCE), never as read-then-write in Go, so the
// merges stay correct under concurrent writers.
package database

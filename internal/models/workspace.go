// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// DefaultWorkspaceID is the workspace used when a stage invocation omits one.
// The row is seeded at schema creation and never deleted.
const DefaultWorkspaceID = "default"

// Workspace is the tenant isolation boundary. Every stage invocation, quota
// and lead feed row is scoped to exactly one workspace.
type Workspace struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	ActivePackID *string    `json:"active_pack_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// RawEvent is a normalized business event about a tracked company, produced
// by the ingest stage. Read-only to the derivation/projection core.
//
// CompanyID is nullable: events that could not be attributed to a company are
// kept for audit but skipped by the deriver.
type RawEvent struct {
	ID          string          `json:"id"`
	WorkspaceID string          `json:"workspace_id"`
	CompanyID   *string         `json:"company_id,omitempty"`
	EventType   string          `json:"event_type"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Confidence  *float64        `json:"confidence,omitempty"`
	PackID      string          `json:"pack_id"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// DefaultSignalStrength is the constant baseline strength written on every
// signal instance upsert. Strength differentiation is a scoring-engine
// concern; the deriver only records presence and recency.
const DefaultSignalStrength = 1.0

// SignalInstance is the deriver's output: one row per (company, signal, pack)
// aggregating every matching raw event.
//
// Invariants maintained by the merge upsert:
//   - FirstSeenAt <= LastSeenAt
//   - a non-nil Confidence is never replaced by nil
type SignalInstance struct {
	WorkspaceID string    `json:"workspace_id"`
	CompanyID   string    `json:"company_id"`
	SignalID    string    `json:"signal_id"`
	PackID      string    `json:"pack_id"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	Confidence  *float64  `json:"confidence,omitempty"`
	Strength    float64   `json:"strength"`
}

// OutreachEntry is a manual outreach record logged by a human operator.
// The most recent status per company is denormalized onto the lead feed.
type OutreachEntry struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	CompanyID   string    `json:"company_id"`
	Status      string    `json:"status"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package models

import "time"

// JobStatus is the lifecycle status of a stage invocation.
type JobStatus string

// Job run statuses. Running is the only non-terminal status; a job run is
// never mutated after reaching a terminal status.
const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusSkipped   JobStatus = "skipped"
)

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusSkipped
}

// JobRun is the audit record of one stage invocation that passed rate
// limiting. Created by the stage executor in "running" state, finalized by
// the executor when the handler returns.
//
// ItemsProcessed is the stage's primary counter (events processed, rows
// upserted, companies scored - whichever the stage reports as its headline
// number). Idempotent replays reconstruct an approximate result from this
// single persisted counter.
type JobRun struct {
	ID             string     `json:"id"`
	StageKind      string     `json:"stage_kind"`
	WorkspaceID    string     `json:"workspace_id"`
	PackID         string     `json:"pack_id"`
	Status         JobStatus  `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	ItemsProcessed int        `json:"items_processed"`
	Error          *string    `json:"error,omitempty"`
	IdempotencyKey *string    `json:"idempotency_key,omitempty"`
}

// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

// HTTP request shapes with go-playground/validator v10 tags. Each handler
// decodes or assembles one of these and runs it through validateRequest
// before touching the database.
package api

import "github.com/revlumen/leadfeed/internal/ingest"

// StageRunRequest is the body of POST /api/v1/stages/run.
type StageRunRequest struct {
	Kind           string   `json:"kind" validate:"required,oneof=ingest derive score update_lead_feed"`
	WorkspaceID    string   `json:"workspace_id" validate:"omitempty,max=128"`
	PackID         string   `json:"pack_id" validate:"omitempty,max=128"`
	IdempotencyKey string   `json:"idempotency_key" validate:"omitempty,max=256"`
	Companies      []string `json:"companies" validate:"omitempty,max=1000,dive,min=1,max=128"`
	AsOf           string   `json:"as_of" validate:"omitempty,datetime=2006-01-02"`
}

// BackfillRequest is the body of POST /api/v1/backfill.
type BackfillRequest struct {
	AsOf string `json:"as_of" validate:"omitempty,datetime=2006-01-02"`
}

// LeadsRequest carries the validated query parameters of GET /api/v1/leads
// and GET /api/v1/leads/recent.
type LeadsRequest struct {
	WorkspaceID       string `validate:"omitempty,max=128"`
	PackID            string `validate:"omitempty,max=128"`
	Limit             int    `validate:"min=1,max=500"`
	CompositeFloor    int    `validate:"min=0,max=100"`
	OutreachThreshold int    `validate:"min=0,max=100"`
	AsOf              string `validate:"omitempty,datetime=2006-01-02"`
}

// OutreachRequest is the body of POST /api/v1/outreach.
type OutreachRequest struct {
	WorkspaceID string `json:"workspace_id" validate:"omitempty,max=128"`
	CompanyID   string `json:"company_id" validate:"required,max=128"`
	Status      string `json:"status" validate:"required,oneof=contacted replied meeting_booked disqualified paused"`
	Notes       string `json:"notes" validate:"omitempty,max=2000"`
}

// IngestEventsRequest is the body of POST /api/v1/events: a direct HTTP
// intake path for producers that do not speak NATS.
type IngestEventsRequest struct {
	Events []ingest.CompanyEvent `json:"events" validate:"required,min=1,max=1000"`
}

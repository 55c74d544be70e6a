// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package ingest

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/revlumen/leadfeed/internal/models"
)

// ValidationError describes why an inbound event was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: %s %s", e.Field, e.Message)
}

// CompanyEvent is the wire shape of one business event on the broker.
// Producers (trackers, enrichment crawlers) publish these; the consumer
// validates and queues them for the ingest stage.
type CompanyEvent struct {
	// ID deduplicates redeliveries. Producers should set it; the consumer
	// assigns one otherwise, at the cost of losing dedup for that event.
	ID string `json:"id,omitempty"`

	// CompanyID may be empty when the producer could not attribute the
	// event; such events are stored for audit and skipped by derivation.
	CompanyID string `json:"company_id,omitempty"`

	WorkspaceID string          `json:"workspace_id,omitempty"`
	EventType   string          `json:"event_type"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Confidence  *float64        `json:"confidence,omitempty"`
	PackID      string          `json:"pack_id,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// Validate checks the fields a raw event row cannot do without.
func (e *CompanyEvent) Validate() error {
	if e.EventType == "" {
		return &ValidationError{Field: "event_type", Message: "required"}
	}
	if e.OccurredAt.IsZero() {
		return &ValidationError{Field: "occurred_at", Message: "required"}
	}
	if e.Confidence != nil && (*e.Confidence < 0 || *e.Confidence > 1) {
		return &ValidationError{Field: "confidence", Message: "must be in [0,1]"}
	}
	return nil
}

// Normalize fills defaults and converts to the storage model. Validate must
// have passed first.
func (e *CompanyEvent) Normalize(defaultPackID string) models.RawEvent {
	id := e.ID
	if id == "" {
		id = uuid.New().String()
	}
	workspaceID := e.WorkspaceID
	if workspaceID == "" {
		workspaceID = models.DefaultWorkspaceID
	}
	packID := e.PackID
	if packID == "" {
		packID = defaultPackID
	}
	var companyID *string
	if e.CompanyID != "" {
		c := e.CompanyID
		companyID = &c
	}
	return models.RawEvent{
		ID:          id,
		WorkspaceID: workspaceID,
		CompanyID:   companyID,
		EventType:   e.EventType,
		OccurredAt:  e.OccurredAt.UTC(),
		Confidence:  e.Confidence,
		PackID:      packID,
		Payload:     e.Payload,
	}
}

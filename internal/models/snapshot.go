// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Suppression decisions carried by engagement snapshots and lead feed rows.
const (
	SuppressionAllow       = "allow"
	SuppressionConstrained = "constrained"
	SuppressionSuppress    = "suppress"
)

// ReadinessSnapshot is one scoring-engine output row per (company, date, pack)
// carrying the 0-100 composite score and an explanation payload.
// Read-only to this core.
//
// PackID is nullable for legacy rows written before packs existed; a nil pack
// is treated as the system default pack when pairing snapshots.
type ReadinessSnapshot struct {
	ID           string          `json:"id"`
	WorkspaceID  string          `json:"workspace_id"`
	CompanyID    string          `json:"company_id"`
	SnapshotDate time.Time       `json:"snapshot_date"`
	PackID       *string         `json:"pack_id,omitempty"`
	Composite    int             `json:"composite"`
	Explanation  json.RawMessage `json:"explanation,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ReadinessExplanation is the structured portion of a readiness snapshot's
// explanation payload that the projection builder consumes.
type ReadinessExplanation struct {
	Summary      string   `json:"summary,omitempty"`
	SignalTypes  []string `json:"signal_types,omitempty"`
	MinComposite *int     `json:"min_composite,omitempty"`
}

// ParsedExplanation decodes the explanation payload. A missing or malformed
// payload yields the zero value; the builder treats that as "no signal types".
func (s *ReadinessSnapshot) ParsedExplanation() ReadinessExplanation {
	var exp ReadinessExplanation
	if len(s.Explanation) == 0 {
		return exp
	}
	_ = json.Unmarshal(s.Explanation, &exp)
	return exp
}

// EngagementSnapshot is one scoring-engine output row per (company, date,
// pack) carrying the 0-1 suitability score and the suppression decision.
// Read-only to this core.
type EngagementSnapshot struct {
	ID           string          `json:"id"`
	WorkspaceID  string          `json:"workspace_id"`
	CompanyID    string          `json:"company_id"`
	SnapshotDate time.Time       `json:"snapshot_date"`
	PackID       *string         `json:"pack_id,omitempty"`
	Suitability  float64         `json:"suitability"`
	Suppression  *string         `json:"suppression,omitempty"`
	Explanation  json.RawMessage `json:"explanation,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// EngagementExplanation is the structured portion of an engagement snapshot's
// explanation payload. Rows written before the dedicated suppression column
// existed carry the decision here instead.
type EngagementExplanation struct {
	Summary     string `json:"summary,omitempty"`
	Suppression string `json:"suppression,omitempty"`
	Sensitivity string `json:"sensitivity,omitempty"`
}

// ParsedExplanation decodes the explanation payload, tolerating absence.
func (s *EngagementSnapshot) ParsedExplanation() EngagementExplanation {
	var exp EngagementExplanation
	if len(s.Explanation) == 0 {
		return exp
	}
	_ = json.Unmarshal(s.Explanation, &exp)
	return exp
}

// EffectiveSuppression returns the suppression decision, preferring the
// dedicated column and falling back to the explanation payload for legacy
// rows. Defaults to allow when neither is set.
func (s *EngagementSnapshot) EffectiveSuppression() string {
	if s.Suppression != nil && *s.Suppression != "" {
		return *s.Suppression
	}
	if exp := s.ParsedExplanation(); exp.Suppression != "" {
		return exp.Suppression
	}
	return SuppressionAllow
}

// Sensitivity returns the sensitivity level from the explanation payload,
// defaulting to "standard".
func (s *EngagementSnapshot) Sensitivity() string {
	if exp := s.ParsedExplanation(); exp.Sensitivity != "" {
		return exp.Sensitivity
	}
	return "standard"
}

// SnapshotPair couples a readiness snapshot with its engagement counterpart
// for the same (company, date) under an agreeing pack reference.
type SnapshotPair struct {
	Readiness  ReadinessSnapshot  `json:"readiness"`
	Engagement EngagementSnapshot `json:"engagement"`
}

// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package models

import "time"

// MaxFeedSignalTypes caps the ranked signal-type identifiers denormalized
// onto a lead feed row.
const MaxFeedSignalTypes = 8

// LeadFeedRow is the read-optimized projection of the latest qualifying
// snapshot pair for a company. Natural key: (workspace, pack, company) -
// history-overwriting, the feed always reflects the most recent rebuild and
// FeedDate records which snapshot date it came from.
//
// Created and replaced only by the projection builder; read by the feed
// query service and review views.
type LeadFeedRow struct {
	WorkspaceID    string     `json:"workspace_id"`
	PackID         string     `json:"pack_id"`
	CompanyID      string     `json:"company_id"`
	Composite      int        `json:"composite"`
	SignalTypes    []string   `json:"signal_types"`
	Suppression    string     `json:"suppression"`
	Sensitivity    string     `json:"sensitivity"`
	OutreachScore  int        `json:"outreach_score"`
	LastSeenAt     *time.Time `json:"last_seen_at,omitempty"`
	OutreachStatus *string    `json:"outreach_status,omitempty"`
	FeedDate       time.Time  `json:"feed_date"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// RankedLead is one entry of a ranked feed query result, assembled either
// from the projection or from the live snapshot join fallback.
type RankedLead struct {
	CompanyID      string     `json:"company_id"`
	Composite      int        `json:"composite"`
	OutreachScore  int        `json:"outreach_score"`
	SignalTypes    []string   `json:"signal_types"`
	Suppression    string     `json:"suppression"`
	Sensitivity    string     `json:"sensitivity"`
	LastSeenAt     *time.Time `json:"last_seen_at,omitempty"`
	OutreachStatus *string    `json:"outreach_status,omitempty"`
	FeedDate       time.Time  `json:"feed_date"`
}

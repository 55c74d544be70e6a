// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

// Package packs loads and caches configuration bundles ("packs"): versioned
// rule sets mapping event types to signal identifiers plus the policy data
// (suppression rules, minimum composite threshold) consumed by the deriver
// and the projection builder.
//
// Packs are immutable once referenced by data. They are defined as YAML
// files in a configurable directory, with one built-in default pack that is
// always available.
package packs

import "errors"

// DefaultPackID identifies the built-in system default pack, used whenever a
// workspace has no active pack of its own. Legacy snapshot rows with a NULL
// pack reference are treated as belonging to this pack.
const DefaultPackID = "core.v1"

// ErrPackNotFound is returned when a pack identifier resolves to nothing.
var ErrPackNotFound = errors.New("pack not found")

// SignalDef describes one signal of a pack's taxonomy.
type SignalDef struct {
	ID       string `koanf:"id" json:"id"`
	Label    string `koanf:"label" json:"label"`
	Category string `koanf:"category" json:"category"`
}

// SuppressionRule maps an engagement sensitivity level to a forced decision.
type SuppressionRule struct {
	Sensitivity string `koanf:"sensitivity" json:"sensitivity"`
	Decision    string `koanf:"decision" json:"decision"`
}

// Pack is one versioned configuration bundle.
type Pack struct {
	ID      string `koanf:"id" json:"id"`
	Version int    `koanf:"version" json:"version"`

	// Passthrough maps raw event types to signal identifiers. The deriver
	// skips events whose type has no entry here.
	Passthrough map[string]string `koanf:"passthrough" json:"passthrough"`

	// MinComposite drops snapshot pairs below this readiness composite from
	// the lead feed. Nil = no pack-level threshold (a per-row threshold in
	// the readiness explanation may still apply).
	MinComposite *int `koanf:"min_composite" json:"min_composite,omitempty"`

	Suppression []SuppressionRule `koanf:"suppression" json:"suppression,omitempty"`
	Signals     []SignalDef       `koanf:"signals" json:"signals,omitempty"`
}

// SignalFor returns the signal identifier mapped to the event type, if any.
func (p *Pack) SignalFor(eventType string) (string, bool) {
	id, ok := p.Passthrough[eventType]
	return id, ok
}

// defaultPack returns the built-in system default pack.
func defaultPack() *Pack {
	minComposite := 25
	return &Pack{
		ID:      DefaultPackID,
		Version: 1,
		Passthrough: map[string]string{
			"pricing_page_view":     "intent.pricing",
			"docs_page_view":        "intent.evaluation",
			"demo_request":          "intent.demo",
			"job_post_engineering":  "growth.hiring_engineering",
			"job_post_sales":        "growth.hiring_sales",
			"funding_round":         "growth.funding",
			"tech_stack_adoption":   "fit.tooling",
			"champion_role_change":  "relationship.champion_moved",
			"support_ticket_opened": "engagement.support",
		},
		MinComposite: &minComposite,
		Suppression: []SuppressionRule{
			{Sensitivity: "regulated", Decision: "constrained"},
		},
		Signals: []SignalDef{
			{ID: "intent.pricing", Label: "Pricing interest", Category: "intent"},
			{ID: "intent.evaluation", Label: "Technical evaluation", Category: "intent"},
			{ID: "intent.demo", Label: "Demo requested", Category: "intent"},
			{ID: "growth.hiring_engineering", Label: "Engineering hiring", Category: "growth"},
			{ID: "growth.hiring_sales", Label: "Sales hiring", Category: "growth"},
			{ID: "growth.funding", Label: "Funding event", Category: "growth"},
			{ID: "fit.tooling", Label: "Stack fit", Category: "fit"},
			{ID: "relationship.champion_moved", Label: "Champion moved", Category: "relationship"},
			{ID: "engagement.support", Label: "Support engagement", Category: "engagement"},
		},
	}
}

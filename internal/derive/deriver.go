// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

// Package derive folds raw events into signal instances using the pack's
// passthrough mapping. The fold is a pure in-memory aggregation; persistence
// happens in one merge call so a re-derivation over the same events is a
// no-op.
package derive

import (
	"context"
	"fmt"

	"github.com/revlumen/leadfeed/internal/logging"
	"github.com/revlumen/leadfeed/internal/metrics"
	"github.com/revlumen/leadfeed/internal/models"
	"github.com/revlumen/leadfeed/internal/packs"
	"github.com/revlumen/leadfeed/internal/stage"
)

// Store is the persistence surface the deriver needs.
type Store interface {
	ListRawEvents(ctx context.Context, workspaceID, packID string, companySubset []string) ([]models.RawEvent, error)
	MergeSignalInstances(ctx context.Context, instances []models.SignalInstance) error
}

// Deriver implements the derive stage.
type Deriver struct {
	store Store
}

// NewDeriver creates a deriver.
func NewDeriver(store Store) *Deriver {
	return &Deriver{store: store}
}

// Run executes one derivation pass for the invocation's workspace and pack.
// ItemsProcessed counts events folded into a signal; events without company
// attribution or without a passthrough entry are skipped, not failed.
func (d *Deriver) Run(ctx context.Context, inv *stage.Invocation) (stage.Outcome, error) {
	if len(inv.Pack.Passthrough) == 0 {
		// Nothing can ever match; report skipped rather than an empty
		// completed run so operators see misconfigured packs.
		return stage.Outcome{Skipped: true}, nil
	}

	events, err := d.store.ListRawEvents(ctx, inv.WorkspaceID, inv.Pack.ID, inv.CompanySubset)
	if err != nil {
		return stage.Outcome{}, fmt.Errorf("load raw events: %w", err)
	}

	instances, processed, skipped := Fold(inv.Pack, events)
	metrics.DeriveEventsProcessed.Add(float64(processed))
	metrics.DeriveEventsSkipped.Add(float64(skipped))

	if err := d.store.MergeSignalInstances(ctx, instances); err != nil {
		return stage.Outcome{}, fmt.Errorf("merge signal instances: %w", err)
	}

	logging.Debug().
		Str("workspace_id", inv.WorkspaceID).
		Str("pack_id", inv.Pack.ID).
		Int("events_processed", processed).
		Int("events_skipped", skipped).
		Int("signal_instances", len(instances)).
		Msg("Derivation pass finished")

	return stage.Outcome{
		ItemsProcessed: processed,
		Detail: map[string]int{
			"events_processed":   processed,
			"events_skipped":     skipped,
			"instances_upserted": len(instances),
		},
	}, nil
}

// Fold aggregates events into signal instances keyed by (company, signal,
// pack). Returns the aggregates plus processed and skipped event counts.
//
// Per aggregate:
//   - first_seen_at is the earliest occurred_at, last_seen_at the latest
//   - confidence is the greatest non-nil value seen; a nil never displaces it
//   - strength is the constant baseline
//
// Every rule is commutative, so the fold is insensitive to event order.
func Fold(pack *packs.Pack, events []models.RawEvent) ([]models.SignalInstance, int, int) {
	type aggKey struct {
		companyID string
		signalID  string
	}
	aggs := make(map[aggKey]*models.SignalInstance)
	var order []aggKey
	processed, skipped := 0, 0

	for i := range events {
		ev := &events[i]
		if ev.CompanyID == nil || *ev.CompanyID == "" {
			skipped++
			continue
		}
		signalID, ok := pack.SignalFor(ev.EventType)
		if !ok {
			skipped++
			continue
		}
		processed++

		key := aggKey{companyID: *ev.CompanyID, signalID: signalID}
		agg, exists := aggs[key]
		if !exists {
			agg = &models.SignalInstance{
				WorkspaceID: ev.WorkspaceID,
				CompanyID:   key.companyID,
				SignalID:    signalID,
				PackID:      pack.ID,
				FirstSeenAt: ev.OccurredAt,
				LastSeenAt:  ev.OccurredAt,
				Confidence:  ev.Confidence,
				Strength:    models.DefaultSignalStrength,
			}
			aggs[key] = agg
			order = append(order, key)
			continue
		}

		if ev.OccurredAt.Before(agg.FirstSeenAt) {
			agg.FirstSeenAt = ev.OccurredAt
		}
		if ev.OccurredAt.After(agg.LastSeenAt) {
			agg.LastSeenAt = ev.OccurredAt
		}
		if ev.Confidence != nil && (agg.Confidence == nil || *ev.Confidence > *agg.Confidence) {
			agg.Confidence = ev.Confidence
		}
	}

	out := make([]models.SignalInstance, 0, len(order))
	for _, key := range order {
		out = append(out, *aggs[key])
	}
	return out, processed, skipped
}

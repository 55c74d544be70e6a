// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package score

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/revlumen/leadfeed/internal/logging"
	"github.com/revlumen/leadfeed/internal/models"
	"github.com/revlumen/leadfeed/internal/packs"
	"github.com/revlumen/leadfeed/internal/projection"
	"github.com/revlumen/leadfeed/internal/stage"
)

// Scorer is the engine call surface, satisfied by Client.
type Scorer interface {
	ScoreBatch(ctx context.Context, workspaceID, packID string, asOf time.Time, companies []CompanySignals) ([]ScoreResult, error)
}

// Store is the persistence surface the score stage needs.
type Store interface {
	ListSignalInstances(ctx context.Context, workspaceID, packID string) ([]models.SignalInstance, error)
	InsertReadinessSnapshot(ctx context.Context, s *models.ReadinessSnapshot) error
	InsertEngagementSnapshot(ctx context.Context, s *models.EngagementSnapshot) error
}

// Handler runs the score stage: collect each company's signal instances,
// ask the engine for fresh scores, persist the snapshot pair, and push it
// through the projection builder so the feed stays warm.
type Handler struct {
	store     Store
	scorer    Scorer
	builder   *projection.Builder
	batchSize int
	now       func() time.Time
}

// NewHandler creates the score stage handler. batchSize caps companies per
// engine call.
func NewHandler(store Store, scorer Scorer, builder *projection.Builder, batchSize int) *Handler {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Handler{
		store:     store,
		scorer:    scorer,
		builder:   builder,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Run scores every company with signal activity in the invocation's
// workspace and pack. Companies the engine declines are counted as skipped,
// not failed.
func (h *Handler) Run(ctx context.Context, inv *stage.Invocation) (stage.Outcome, error) {
	instances, err := h.store.ListSignalInstances(ctx, inv.WorkspaceID, inv.Pack.ID)
	if err != nil {
		return stage.Outcome{}, fmt.Errorf("list signal instances: %w", err)
	}

	companies := groupByCompany(instances, inv.CompanySubset)
	if len(companies) == 0 {
		return stage.Outcome{Skipped: true}, nil
	}

	asOf := inv.AsOf
	if asOf.IsZero() {
		asOf = h.now().UTC()
	}

	scored := 0
	skipped := 0
	for start := 0; start < len(companies); start += h.batchSize {
		end := start + h.batchSize
		if end > len(companies) {
			end = len(companies)
		}
		batch := companies[start:end]

		results, err := h.scorer.ScoreBatch(ctx, inv.WorkspaceID, inv.Pack.ID, asOf, batch)
		if err != nil {
			return stage.Outcome{
				ItemsProcessed: scored,
				Detail:         scoreDetail(scored, skipped),
			}, fmt.Errorf("score batch: %w", err)
		}

		answered := make(map[string]bool, len(results))
		for i := range results {
			res := &results[i]
			if err := h.persistPair(ctx, inv.WorkspaceID, inv.Pack, res, asOf); err != nil {
				return stage.Outcome{
					ItemsProcessed: scored,
					Detail:         scoreDetail(scored, skipped),
				}, err
			}
			answered[res.CompanyID] = true
			scored++
		}
		for _, c := range batch {
			if !answered[c.CompanyID] {
				skipped++
				logging.Debug().
					Str("workspace_id", inv.WorkspaceID).
					Str("company_id", c.CompanyID).
					Msg("Scoring engine skipped company")
			}
		}
	}

	return stage.Outcome{
		ItemsProcessed: scored,
		Detail:         scoreDetail(scored, skipped),
	}, nil
}

func scoreDetail(scored, skipped int) map[string]int {
	return map[string]int{
		"companies_scored":  scored,
		"companies_skipped": skipped,
	}
}

// persistPair writes the snapshot pair and refreshes the company's lead
// feed row from it.
func (h *Handler) persistPair(ctx context.Context, workspaceID string, pack *packs.Pack, res *ScoreResult, asOf time.Time) error {
	packID := pack.ID
	now := h.now().UTC()

	readiness := models.ReadinessSnapshot{
		ID:           uuid.New().String(),
		WorkspaceID:  workspaceID,
		CompanyID:    res.CompanyID,
		SnapshotDate: asOf,
		PackID:       &packID,
		Composite:    res.Composite,
		Explanation:  res.ReadinessExplanation,
		CreatedAt:    now,
	}
	if err := h.store.InsertReadinessSnapshot(ctx, &readiness); err != nil {
		return fmt.Errorf("persist readiness snapshot for %s: %w", res.CompanyID, err)
	}

	engagement := models.EngagementSnapshot{
		ID:           uuid.New().String(),
		WorkspaceID:  workspaceID,
		CompanyID:    res.CompanyID,
		SnapshotDate: asOf,
		PackID:       &packID,
		Suitability:  res.Suitability,
		Suppression:  res.Suppression,
		Explanation:  res.EngagementExplanation,
		CreatedAt:    now,
	}
	if err := h.store.InsertEngagementSnapshot(ctx, &engagement); err != nil {
		return fmt.Errorf("persist engagement snapshot for %s: %w", res.CompanyID, err)
	}

	pair := models.SnapshotPair{Readiness: readiness, Engagement: engagement}
	if _, err := h.builder.UpsertOne(ctx, workspaceID, pack, pair); err != nil {
		return fmt.Errorf("refresh feed row for %s: %w", res.CompanyID, err)
	}
	return nil
}

// groupByCompany buckets signal instances per company, optionally limited
// to a subset, preserving first-appearance order for deterministic batches.
func groupByCompany(instances []models.SignalInstance, subset []string) []CompanySignals {
	var allowed map[string]bool
	if len(subset) > 0 {
		allowed = make(map[string]bool, len(subset))
		for _, id := range subset {
			allowed[id] = true
		}
	}

	byCompany := make(map[string]int)
	var out []CompanySignals
	for _, inst := range instances {
		if allowed != nil && !allowed[inst.CompanyID] {
			continue
		}
		idx, ok := byCompany[inst.CompanyID]
		if !ok {
			idx = len(out)
			byCompany[inst.CompanyID] = idx
			out = append(out, CompanySignals{CompanyID: inst.CompanyID})
		}
		out[idx].Signals = append(out[idx].Signals, inst)
	}
	return out
}

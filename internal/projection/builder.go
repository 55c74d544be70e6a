// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

/*
builder.go - Lead Feed Projection Builder

Turns the latest qualifying snapshot pairs into read-optimized lead feed
rows. Two exclusion rules gate every pair, full rebuild and single-row
update alike:

  A. suppression decision "suppress" (dedicated column first, explanation
     payload fallback for legacy rows)
  B. readiness composite below the minimum threshold, where the pack's
     declared threshold wins over a per-row threshold in the readiness
     explanation

Rebuilds are idempotent: the same pairs produce the same row set.
*/

package projection

import (
	"context"
	"fmt"
	"time"

	"github.com/revlumen/leadfeed/internal/logging"
	"github.com/revlumen/leadfeed/internal/metrics"
	"github.com/revlumen/leadfeed/internal/models"
	"github.com/revlumen/leadfeed/internal/packs"
)

// Store is the persistence surface the builder needs.
type Store interface {
	ListLatestSnapshotPairs(ctx context.Context, workspaceID, packID string, asOf time.Time, companySubset []string) ([]models.SnapshotPair, error)
	LatestSeenByCompany(ctx context.Context, workspaceID, packID string, companyIDs []string) (map[string]time.Time, error)
	LatestOutreachStatusByCompany(ctx context.Context, workspaceID string, companyIDs []string) (map[string]string, error)
	ReplaceLeadFeedRows(ctx context.Context, workspaceID, packID string, rows []models.LeadFeedRow) error
	UpsertLeadFeedRow(ctx context.Context, row *models.LeadFeedRow) error
	DeleteLeadFeedRow(ctx context.Context, workspaceID, packID, companyID string) error
}

// Builder materializes lead feed rows from snapshot pairs.
type Builder struct {
	store Store
	now   func() time.Time
}

// NewBuilder creates a projection builder.
func NewBuilder(store Store) *Builder {
	return &Builder{store: store, now: time.Now}
}

// Rebuild replaces the whole feed for a (workspace, pack) from the latest
// snapshot pairs at or before asOf (zero = no bound). Returns the number of
// rows the new feed holds.
func (b *Builder) Rebuild(ctx context.Context, workspaceID string, pack *packs.Pack, asOf time.Time) (int, error) {
	pairs, err := b.store.ListLatestSnapshotPairs(ctx, workspaceID, pack.ID, asOf, nil)
	if err != nil {
		return 0, fmt.Errorf("load snapshot pairs: %w", err)
	}

	rows, err := b.BuildRows(ctx, workspaceID, pack, pairs)
	if err != nil {
		return 0, err
	}
	if err := b.store.ReplaceLeadFeedRows(ctx, workspaceID, pack.ID, rows); err != nil {
		return 0, fmt.Errorf("replace lead feed: %w", err)
	}

	logging.Info().
		Str("workspace_id", workspaceID).
		Str("pack_id", pack.ID).
		Int("pairs", len(pairs)).
		Int("rows", len(rows)).
		Msg("Lead feed rebuilt")
	return len(rows), nil
}

// UpsertOne applies the exclusion rules to a single fresh snapshot pair and
// either writes the company's feed row in place or removes any stale row for
// a now-excluded company. Reports whether the pair survived. Keeps the feed
// close to real time between full rebuilds.
func (b *Builder) UpsertOne(ctx context.Context, workspaceID string, pack *packs.Pack, pair models.SnapshotPair) (bool, error) {
	if reason, excluded := excludePair(pack, &pair); excluded {
		metrics.ProjectionPairsExcluded.WithLabelValues(reason).Inc()
		if err := b.store.DeleteLeadFeedRow(ctx, workspaceID, pack.ID, pair.Readiness.CompanyID); err != nil {
			return false, fmt.Errorf("remove excluded feed row: %w", err)
		}
		return false, nil
	}

	rows, err := b.hydrate(ctx, workspaceID, pack, []models.SnapshotPair{pair})
	if err != nil {
		return false, err
	}
	if err := b.store.UpsertLeadFeedRow(ctx, &rows[0]); err != nil {
		return false, fmt.Errorf("upsert lead feed row: %w", err)
	}
	return true, nil
}

// BuildRows applies the exclusion rules to every pair and hydrates the
// survivors into feed rows. Shared by Rebuild and the feed query fallback so
// both produce identical rows from identical pairs.
func (b *Builder) BuildRows(ctx context.Context, workspaceID string, pack *packs.Pack, pairs []models.SnapshotPair) ([]models.LeadFeedRow, error) {
	survivors := make([]models.SnapshotPair, 0, len(pairs))
	for i := range pairs {
		if reason, excluded := excludePair(pack, &pairs[i]); excluded {
			metrics.ProjectionPairsExcluded.WithLabelValues(reason).Inc()
			continue
		}
		survivors = append(survivors, pairs[i])
	}
	if len(survivors) == 0 {
		return nil, nil
	}
	return b.hydrate(ctx, workspaceID, pack, survivors)
}

// hydrate batch-resolves last-seen times and outreach statuses for the
// surviving pairs and assembles the feed rows. One query per concern across
// all companies, never one per company.
func (b *Builder) hydrate(ctx context.Context, workspaceID string, pack *packs.Pack, pairs []models.SnapshotPair) ([]models.LeadFeedRow, error) {
	companyIDs := make([]string, 0, len(pairs))
	for i := range pairs {
		companyIDs = append(companyIDs, pairs[i].Readiness.CompanyID)
	}

	lastSeen, err := b.store.LatestSeenByCompany(ctx, workspaceID, pack.ID, companyIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve last seen: %w", err)
	}
	// Scoped to the workspace so one tenant's outreach never leaks into
	// another's feed.
	outreach, err := b.store.LatestOutreachStatusByCompany(ctx, workspaceID, companyIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve outreach status: %w", err)
	}

	now := b.now().UTC()
	rows := make([]models.LeadFeedRow, 0, len(pairs))
	for i := range pairs {
		pair := &pairs[i]
		companyID := pair.Readiness.CompanyID
		row := models.LeadFeedRow{
			WorkspaceID:   workspaceID,
			PackID:        pack.ID,
			CompanyID:     companyID,
			Composite:     pair.Readiness.Composite,
			SignalTypes:   rankedSignalTypes(&pair.Readiness),
			Suppression:   pair.Engagement.EffectiveSuppression(),
			Sensitivity:   pair.Engagement.Sensitivity(),
			OutreachScore: OutreachScore(pair.Readiness.Composite, pair.Engagement.Suitability),
			FeedDate:      pair.Readiness.SnapshotDate,
			UpdatedAt:     now,
		}
		if seen, ok := lastSeen[companyID]; ok {
			seen := seen
			row.LastSeenAt = &seen
		}
		if status, ok := outreach[companyID]; ok {
			status := status
			row.OutreachStatus = &status
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// excludePair applies exclusion rules A (suppression) and B (minimum
// composite) in that order, returning the metric reason label when the pair
// is dropped.
func excludePair(pack *packs.Pack, pair *models.SnapshotPair) (string, bool) {
	if pair.Engagement.EffectiveSuppression() == models.SuppressionSuppress {
		return "suppressed", true
	}
	if threshold, ok := minComposite(pack, &pair.Readiness); ok && pair.Readiness.Composite < threshold {
		return "below_threshold", true
	}
	return "", false
}

// minComposite returns the applicable threshold: the pack's declared value
// when present, otherwise a per-row value from the readiness explanation.
func minComposite(pack *packs.Pack, readiness *models.ReadinessSnapshot) (int, bool) {
	if pack.MinComposite != nil {
		return *pack.MinComposite, true
	}
	if exp := readiness.ParsedExplanation(); exp.MinComposite != nil {
		return *exp.MinComposite, true
	}
	return 0, false
}

// rankedSignalTypes extracts up to MaxFeedSignalTypes deduplicated signal
// type identifiers from the readiness explanation, preserving source order.
func rankedSignalTypes(readiness *models.ReadinessSnapshot) []string {
	ranked := readiness.ParsedExplanation().SignalTypes
	seen := make(map[string]struct{}, len(ranked))
	out := make([]string, 0, models.MaxFeedSignalTypes)
	for _, st := range ranked {
		if st == "" {
			continue
		}
		if _, dup := seen[st]; dup {
			continue
		}
		seen[st] = struct{}{}
		out = append(out, st)
		if len(out) == models.MaxFeedSignalTypes {
			break
		}
	}
	return out
}

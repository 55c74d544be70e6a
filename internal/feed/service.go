// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

/*
Package feed serves ranked lead queries over two paths:

  - projection: when lead_feed rows exist for the (workspace, pack), read
    them directly (cheap, pre-ranked)
  - fallback: when the projection is empty (never rebuilt, or cleared), build
    the same rows in-process from the latest snapshot pairs

Both paths share the projection builder's row construction and the same
ordering, so a caller cannot tell which path served a query except through
latency and the path metric. The shared primary key is the composite score
(descending, then recency, then company ID): ranking by composite with the
outreach-score threshold applied as a filter is equivalent to ranking by
outreach score among the admitted rows, and keeps the fallback ordering
byte-identical to the projection read.

The projection only ever holds the current feed, so a query bounded to an
earlier date (AsOf) always computes from snapshot history regardless of
whether the projection is populated.
*/
package feed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/revlumen/leadfeed/internal/logging"
	"github.com/revlumen/leadfeed/internal/metrics"
	"github.com/revlumen/leadfeed/internal/models"
	"github.com/revlumen/leadfeed/internal/packs"
	"github.com/revlumen/leadfeed/internal/projection"
)

// Store is the persistence surface the query service needs.
type Store interface {
	HasLeadFeedRows(ctx context.Context, workspaceID, packID string) (bool, error)
	ListLeadFeed(ctx context.Context, workspaceID, packID string, compositeFloor, limit int) ([]models.LeadFeedRow, error)
	ListLeadFeedRecent(ctx context.Context, workspaceID, packID string, compositeFloor, limit int) ([]models.LeadFeedRow, error)
	ListLatestSnapshotPairs(ctx context.Context, workspaceID, packID string, asOf time.Time, companySubset []string) ([]models.SnapshotPair, error)
}

// Query parameterizes one ranked feed read.
type Query struct {
	Limit             int
	CompositeFloor    int
	OutreachThreshold int

	// RecentFirst orders by last-seen recency instead of composite.
	RecentFirst bool

	// AsOf bounds the fallback path's snapshot selection. Zero = latest.
	AsOf time.Time
}

// Service answers ranked lead queries.
type Service struct {
	store   Store
	builder *projection.Builder
}

// NewService creates a feed query service sharing the projection builder's
// row construction.
func NewService(store Store, builder *projection.Builder) *Service {
	return &Service{store: store, builder: builder}
}

// GetRanked returns the ranked leads for a (workspace, pack). The projection
// serves the query when populated; otherwise the result is computed from
// snapshot pairs with identical rules and ordering. Queries bounded by AsOf
// bypass the projection, which only stores the current feed.
func (s *Service) GetRanked(ctx context.Context, workspaceID string, pack *packs.Pack, q Query) ([]models.RankedLead, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	populated := false
	if q.AsOf.IsZero() {
		var err error
		populated, err = s.store.HasLeadFeedRows(ctx, workspaceID, pack.ID)
		if err != nil {
			return nil, fmt.Errorf("probe lead feed: %w", err)
		}
	}

	var (
		rows []models.LeadFeedRow
		err  error
	)
	if populated {
		metrics.FeedQueryPath.WithLabelValues("projection").Inc()
		if q.RecentFirst {
			rows, err = s.store.ListLeadFeedRecent(ctx, workspaceID, pack.ID, q.CompositeFloor, q.Limit)
		} else {
			rows, err = s.store.ListLeadFeed(ctx, workspaceID, pack.ID, q.CompositeFloor, q.Limit)
		}
		if err != nil {
			return nil, fmt.Errorf("read lead feed: %w", err)
		}
	} else {
		metrics.FeedQueryPath.WithLabelValues("fallback").Inc()
		logging.Debug().
			Str("workspace_id", workspaceID).
			Str("pack_id", pack.ID).
			Msg("Lead feed empty, serving query from snapshots")
		rows, err = s.fallbackRows(ctx, workspaceID, pack, q)
		if err != nil {
			return nil, err
		}
	}

	return rankRows(rows, q), nil
}

// fallbackRows reproduces what a rebuild would have written, filtered and
// ordered like the projection read.
func (s *Service) fallbackRows(ctx context.Context, workspaceID string, pack *packs.Pack, q Query) ([]models.LeadFeedRow, error) {
	pairs, err := s.store.ListLatestSnapshotPairs(ctx, workspaceID, pack.ID, q.AsOf, nil)
	if err != nil {
		return nil, fmt.Errorf("load snapshot pairs: %w", err)
	}
	rows, err := s.builder.BuildRows(ctx, workspaceID, pack, pairs)
	if err != nil {
		return nil, err
	}

	filtered := rows[:0]
	for _, row := range rows {
		if row.Composite >= q.CompositeFloor {
			filtered = append(filtered, row)
		}
	}
	sortRows(filtered, q.RecentFirst)
	if len(filtered) > q.Limit {
		filtered = filtered[:q.Limit]
	}
	return filtered, nil
}

// rankRows applies the outreach-score threshold and converts to the response
// shape. The threshold is re-applied on both paths with the shared scoring
// function, so a stale stored value never admits a lead the fallback would
// reject.
func rankRows(rows []models.LeadFeedRow, q Query) []models.RankedLead {
	out := make([]models.RankedLead, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		if row.OutreachScore < q.OutreachThreshold {
			continue
		}
		out = append(out, models.RankedLead{
			CompanyID:      row.CompanyID,
			Composite:      row.Composite,
			OutreachScore:  row.OutreachScore,
			SignalTypes:    row.SignalTypes,
			Suppression:    row.Suppression,
			Sensitivity:    row.Sensitivity,
			LastSeenAt:     row.LastSeenAt,
			OutreachStatus: row.OutreachStatus,
			FeedDate:       row.FeedDate,
		})
	}
	return out
}

// sortRows mirrors the projection read ordering for the fallback path.
func sortRows(rows []models.LeadFeedRow, recentFirst bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := &rows[i], &rows[j]
		if recentFirst {
			if c := compareSeen(a.LastSeenAt, b.LastSeenAt); c != 0 {
				return c > 0
			}
			if a.Composite != b.Composite {
				return a.Composite > b.Composite
			}
		} else {
			if a.Composite != b.Composite {
				return a.Composite > b.Composite
			}
			if c := compareSeen(a.LastSeenAt, b.LastSeenAt); c != 0 {
				return c > 0
			}
		}
		return a.CompanyID < b.CompanyID
	})
}

// compareSeen orders timestamps with nil last (NULLS LAST on the SQL side).
func compareSeen(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case a.After(*b):
		return 1
	case b.After(*a):
		return -1
	}
	return 0
}

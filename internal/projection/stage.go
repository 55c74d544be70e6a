// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package projection

import (
	"context"
	"time"

	"github.com/revlumen/leadfeed/internal/stage"
)

// FeedUpdateHandler runs a full feed rebuild as the update_lead_feed stage.
type FeedUpdateHandler struct {
	builder *Builder
}

// NewFeedUpdateHandler wraps the builder for stage registration.
func NewFeedUpdateHandler(builder *Builder) *FeedUpdateHandler {
	return &FeedUpdateHandler{builder: builder}
}

// Run rebuilds the invocation's (workspace, pack) feed. AsOf defaults to
// today.
func (h *FeedUpdateHandler) Run(ctx context.Context, inv *stage.Invocation) (stage.Outcome, error) {
	asOf := inv.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	rows, err := h.builder.Rebuild(ctx, inv.WorkspaceID, inv.Pack, asOf)
	if err != nil {
		return stage.Outcome{}, err
	}
	return stage.Outcome{
		ItemsProcessed: rows,
		Detail:         map[string]int{"rows_upserted": rows},
	}, nil
}

// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package projection

import (
	"context"
	"fmt"
	"time"

	"github.com/revlumen/leadfeed/internal/logging"
	"github.com/revlumen/leadfeed/internal/models"
	"github.com/revlumen/leadfeed/internal/packs"
)

// maxBackfillErrors caps the error list in a backfill summary. Past this
// many failing workspaces the individual entries stop being informative.
const maxBackfillErrors = 10

// Backfill statuses.
const (
	BackfillCompleted           = "completed"
	BackfillCompletedWithErrors = "completed_with_errors"
)

// WorkspaceLister enumerates tenants for a backfill sweep.
type WorkspaceLister interface {
	ListWorkspaces(ctx context.Context) ([]models.Workspace, error)
}

// PackResolver resolves each workspace's effective pack.
type PackResolver interface {
	Resolve(ctx context.Context, workspaceID, packID string) (*packs.Pack, error)
}

// BackfillError records one workspace whose rebuild failed.
type BackfillError struct {
	WorkspaceID string `json:"workspace_id"`
	Error       string `json:"error"`
}

// BackfillSummary is the aggregate result of a full sweep.
type BackfillSummary struct {
	Status              string          `json:"status"`
	WorkspacesProcessed int             `json:"workspaces_processed"`
	TotalRowsUpserted   int             `json:"total_rows_upserted"`
	Errors              []BackfillError `json:"errors,omitempty"`
}

// BackfillRunner rebuilds every workspace's lead feed.
type BackfillRunner struct {
	workspaces WorkspaceLister
	resolver   PackResolver
	builder    *Builder
}

// NewBackfillRunner creates a backfill runner.
func NewBackfillRunner(workspaces WorkspaceLister, resolver PackResolver, builder *Builder) *BackfillRunner {
	return &BackfillRunner{workspaces: workspaces, resolver: resolver, builder: builder}
}

// BackfillAll rebuilds the feed for every workspace with a resolvable pack.
// Each workspace commits independently: one failing rebuild is recorded and
// rolled back for that workspace only, and the sweep continues. The sweep
// itself never aborts early.
func (r *BackfillRunner) BackfillAll(ctx context.Context, asOf time.Time) (*BackfillSummary, error) {
	workspaces, err := r.workspaces.ListWorkspaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}

	summary := &BackfillSummary{Status: BackfillCompleted}
	for i := range workspaces {
		ws := &workspaces[i]
		summary.WorkspacesProcessed++

		pack, err := r.resolver.Resolve(ctx, ws.ID, "")
		if err != nil {
			r.recordError(summary, ws.ID, fmt.Errorf("resolve pack: %w", err))
			continue
		}

		rows, err := r.builder.Rebuild(ctx, ws.ID, pack, asOf)
		if err != nil {
			r.recordError(summary, ws.ID, err)
			continue
		}
		summary.TotalRowsUpserted += rows
	}

	if len(summary.Errors) > 0 {
		summary.Status = BackfillCompletedWithErrors
	}
	logging.Info().
		Int("workspaces", summary.WorkspacesProcessed).
		Int("rows", summary.TotalRowsUpserted).
		Int("errors", len(summary.Errors)).
		Str("status", summary.Status).
		Msg("Backfill sweep finished")
	return summary, nil
}

func (r *BackfillRunner) recordError(summary *BackfillSummary, workspaceID string, err error) {
	logging.Error().Err(err).Str("workspace_id", workspaceID).Msg("Backfill failed for workspace")
	if len(summary.Errors) < maxBackfillErrors {
		summary.Errors = append(summary.Errors, BackfillError{
			WorkspaceID: workspaceID,
			Error:       err.Error(),
		})
	}
}

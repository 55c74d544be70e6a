// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

/*
executor.go - Stage Execution

The executor is the single entry point for running pipeline stages. Every
invocation passes the same gates in the same order:

 1. workspace and pack resolution
 2. idempotency short-circuit (completed run with the same key)
 3. rate limit check (no job run recorded when refused)
 4. job run creation in "running" state
 5. handler dispatch
 6. finalization to a terminal status, exactly once

Handlers never touch job runs or quotas themselves.
*/

package stage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/revlumen/leadfeed/internal/database"
	"github.com/revlumen/leadfeed/internal/logging"
	"github.com/revlumen/leadfeed/internal/metrics"
	"github.com/revlumen/leadfeed/internal/models"
	"github.com/revlumen/leadfeed/internal/packs"
)

// JobStore is the persistence surface the executor needs.
type JobStore interface {
	runCounter
	InsertJobRun(ctx context.Context, run *models.JobRun) error
	FinishJobRun(ctx context.Context, id string, status models.JobStatus, itemsProcessed int, runErr *string) error
	LatestJobRunByIdempotencyKey(ctx context.Context, workspaceID, stageKind, key string) (*models.JobRun, error)
}

// PackResolver resolves the effective pack for an invocation.
type PackResolver interface {
	Resolve(ctx context.Context, workspaceID, packID string) (*packs.Pack, error)
}

// Request describes one stage invocation.
type Request struct {
	Kind        Kind
	WorkspaceID string // empty = default workspace
	PackID      string // empty = workspace's active pack, falling back to default

	// IdempotencyKey, when non-empty, makes the invocation replayable: a
	// completed run with the same (workspace, kind, key) is answered from
	// its job run instead of executing again.
	IdempotencyKey string

	// CompanySubset restricts derive and feed-update work to specific
	// companies. Empty = all companies.
	CompanySubset []string

	// AsOf bounds snapshot selection for the feed-update stage. Zero =
	// today.
	AsOf time.Time
}

// Invocation is the resolved context handed to a handler.
type Invocation struct {
	JobRunID      string
	WorkspaceID   string
	Pack          *packs.Pack
	CompanySubset []string
	AsOf          time.Time
}

// Outcome is what a handler reports back. Skipped marks a run that found
// nothing to do (e.g. derive with an empty signal mapping). Detail carries
// stage-specific counters for the live response; only ItemsProcessed is
// persisted, so replayed results omit Detail.
type Outcome struct {
	ItemsProcessed int
	Skipped        bool
	Detail         map[string]int
}

// Handler executes one stage kind.
type Handler interface {
	Run(ctx context.Context, inv *Invocation) (Outcome, error)
}

// Result summarizes a finished (or replayed) invocation.
type Result struct {
	JobRunID       string           `json:"job_run_id"`
	Kind           Kind             `json:"kind"`
	WorkspaceID    string           `json:"workspace_id"`
	PackID         string           `json:"pack_id"`
	Status         models.JobStatus `json:"status"`
	ItemsProcessed int              `json:"items_processed"`

	// Detail carries stage-specific counters (e.g. events_skipped for
	// derive). Empty on replayed results: only the headline counter
	// survives persistence.
	Detail map[string]int `json:"detail,omitempty"`

	// Replayed marks a result reconstructed from a previous run's job
	// record.
	Replayed bool `json:"replayed"`
}

// Executor runs stages through the gate sequence above.
type Executor struct {
	store    JobStore
	resolver PackResolver
	limiter  *RateLimiter
	handlers map[Kind]Handler
}

// NewExecutor builds an executor with an empty handler registry.
func NewExecutor(store JobStore, resolver PackResolver, limiter *RateLimiter) *Executor {
	return &Executor{
		store:    store,
		resolver: resolver,
		limiter:  limiter,
		handlers: make(map[Kind]Handler),
	}
}

// Register installs the handler for a kind. Wiring happens once at startup;
// re-registration is a programming error.
func (e *Executor) Register(kind Kind, h Handler) {
	if _, dup := e.handlers[kind]; dup {
		panic(fmt.Sprintf("stage: handler for %q registered twice", kind))
	}
	e.handlers[kind] = h
}

// Run executes one stage invocation end to end. It returns ErrRateLimited
// (wrapped) when the quota refuses the attempt, and panics if no handler is
// registered for the kind: the registry is fixed at startup, so a miss is a
// wiring bug, not an input error.
func (e *Executor) Run(ctx context.Context, req Request) (*Result, error) {
	h, ok := e.handlers[req.Kind]
	if !ok {
		panic(fmt.Sprintf("stage: no handler registered for kind %q", req.Kind))
	}

	workspaceID := req.WorkspaceID
	if workspaceID == "" {
		workspaceID = models.DefaultWorkspaceID
	}

	pack, err := e.resolver.Resolve(ctx, workspaceID, req.PackID)
	if errors.Is(err, packs.ErrPackNotFound) {
		// Missing configuration is a skipped run, not a failure. No pack
		// means no job run either: the run record requires a resolved
		// pack reference.
		logging.Warn().
			Str("stage", req.Kind.String()).
			Str("workspace_id", workspaceID).
			Str("pack_id", req.PackID).
			Msg("Stage skipped: pack not resolvable")
		metrics.StageOutcomes.WithLabelValues(req.Kind.String(), string(models.JobStatusSkipped)).Inc()
		return &Result{
			Kind:        req.Kind,
			WorkspaceID: workspaceID,
			PackID:      req.PackID,
			Status:      models.JobStatusSkipped,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve pack for %s/%s: %w", workspaceID, req.Kind, err)
	}

	logger := logging.With().
		Str("stage", req.Kind.String()).
		Str("workspace_id", workspaceID).
		Str("pack_id", pack.ID).
		Logger()

	if req.IdempotencyKey != "" {
		prev, err := e.store.LatestJobRunByIdempotencyKey(ctx, workspaceID, req.Kind.String(), req.IdempotencyKey)
		if err == nil {
			metrics.StageIdempotentReplays.WithLabelValues(req.Kind.String()).Inc()
			logger.Info().
				Str("job_run_id", prev.ID).
				Str("idempotency_key", req.IdempotencyKey).
				Msg("Replaying completed stage run")
			return &Result{
				JobRunID:       prev.ID,
				Kind:           req.Kind,
				WorkspaceID:    workspaceID,
				PackID:         prev.PackID,
				Status:         prev.Status,
				ItemsProcessed: prev.ItemsProcessed,
				Replayed:       true,
			}, nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("idempotency lookup for %s/%s: %w", workspaceID, req.Kind, err)
		}
	}

	allowed, err := e.limiter.Allow(ctx, workspaceID, req.Kind)
	if err != nil {
		return nil, err
	}
	if !allowed {
		metrics.StageRateLimited.WithLabelValues(req.Kind.String()).Inc()
		logger.Warn().Msg("Stage invocation rate limited")
		return nil, fmt.Errorf("%s for workspace %s: %w", req.Kind, workspaceID, ErrRateLimited)
	}

	run := &models.JobRun{
		ID:          uuid.New().String(),
		StageKind:   req.Kind.String(),
		WorkspaceID: workspaceID,
		PackID:      pack.ID,
		Status:      models.JobStatusRunning,
		StartedAt:   time.Now().UTC(),
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		run.IdempotencyKey = &key
	}
	if err := e.store.InsertJobRun(ctx, run); err != nil {
		return nil, fmt.Errorf("record job run for %s/%s: %w", workspaceID, req.Kind, err)
	}

	start := time.Now()
	outcome, runErr := h.Run(ctx, &Invocation{
		JobRunID:      run.ID,
		WorkspaceID:   workspaceID,
		Pack:          pack,
		CompanySubset: req.CompanySubset,
		AsOf:          req.AsOf,
	})
	metrics.StageDuration.WithLabelValues(req.Kind.String()).Observe(time.Since(start).Seconds())

	status := models.JobStatusCompleted
	var errMsg *string
	if runErr != nil {
		status = models.JobStatusFailed
		msg := runErr.Error()
		errMsg = &msg
	} else if outcome.Skipped {
		status = models.JobStatusSkipped
	}
	metrics.StageOutcomes.WithLabelValues(req.Kind.String(), string(status)).Inc()

	if err := e.store.FinishJobRun(ctx, run.ID, status, outcome.ItemsProcessed, errMsg); err != nil {
		// The handler's work is already committed; surface the
		// bookkeeping failure rather than the stage as failed.
		return nil, fmt.Errorf("finalize job run %s: %w", run.ID, err)
	}

	if runErr != nil {
		logger.Error().Err(runErr).Str("job_run_id", run.ID).Msg("Stage run failed")
		return nil, fmt.Errorf("stage %s run %s: %w", req.Kind, run.ID, runErr)
	}

	logger.Info().
		Str("job_run_id", run.ID).
		Str("status", string(status)).
		Int("items_processed", outcome.ItemsProcessed).
		Dur("duration", time.Since(start)).
		Msg("Stage run finished")

	return &Result{
		JobRunID:       run.ID,
		Kind:           req.Kind,
		WorkspaceID:    workspaceID,
		PackID:         pack.ID,
		Status:         status,
		ItemsProcessed: outcome.ItemsProcessed,
		Detail:         outcome.Detail,
	}, nil
}

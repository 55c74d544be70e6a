// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package stage

import (
	"context"
	"fmt"
	"time"
)

// runCounter counts recorded job runs inside a time window.
type runCounter interface {
	CountJobRunsSince(ctx context.Context, workspaceID, stageKind string, cutoff time.Time) (int, error)
}

// RateLimiter enforces the per (workspace, kind) invocation quota. The
// window is counted from persisted job runs, so the quota survives restarts
// and is shared across replicas pointing at the same database. Failed runs
// count; rate-limited attempts do not, because they never create a run.
type RateLimiter struct {
	counter runCounter
	limit   int
	window  time.Duration
}

// NewRateLimiter builds a limiter. limit <= 0 disables limiting entirely.
func NewRateLimiter(counter runCounter, limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Hour
	}
	return &RateLimiter{counter: counter, limit: limit, window: window}
}

// Allow reports whether another invocation fits inside the quota.
func (l *RateLimiter) Allow(ctx context.Context, workspaceID string, kind Kind) (bool, error) {
	if l == nil || l.limit <= 0 {
		return true, nil
	}
	n, err := l.counter.CountJobRunsSince(ctx, workspaceID, kind.String(), time.Now().Add(-l.window))
	if err != nil {
		return false, fmt.Errorf("rate limit check for %s/%s: %w", workspaceID, kind, err)
	}
	return n < l.limit, nil
}

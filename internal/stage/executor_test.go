// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package stage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/revlumen/leadfeed/internal/database"
	"github.com/revlumen/leadfeed/internal/models"
	"github.com/revlumen/leadfeed/internal/packs"
)

// fakeJobStore is an in-memory JobStore for executor tests.
type fakeJobStore struct {
	runs       []*models.JobRun
	insertErr  error
	finishErr  error
	countInWin int
}

func (s *fakeJobStore) InsertJobRun(_ context.Context, run *models.JobRun) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	copied := *run
	s.runs = append(s.runs, &copied)
	return nil
}

func (s *fakeJobStore) FinishJobRun(_ context.Context, id string, status models.JobStatus, itemsProcessed int, runErr *string) error {
	if s.finishErr != nil {
		return s.finishErr
	}
	for _, run := range s.runs {
		if run.ID == id {
			now := time.Now().UTC()
			run.Status = status
			run.ItemsProcessed = itemsProcessed
			run.Error = runErr
			run.FinishedAt = &now
			return nil
		}
	}
	return database.ErrNotFound
}

func (s *fakeJobStore) LatestJobRunByIdempotencyKey(_ context.Context, workspaceID, stageKind, key string) (*models.JobRun, error) {
	for i := len(s.runs) - 1; i >= 0; i-- {
		run := s.runs[i]
		if run.WorkspaceID == workspaceID && run.StageKind == stageKind &&
			run.IdempotencyKey != nil && *run.IdempotencyKey == key &&
			run.Status == models.JobStatusCompleted {
			return run, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *fakeJobStore) CountJobRunsSince(_ context.Context, _, _ string, _ time.Time) (int, error) {
	return s.countInWin, nil
}

type staticResolver struct{ pack *packs.Pack }

func (r staticResolver) Resolve(_ context.Context, _, packID string) (*packs.Pack, error) {
	if packID != "" && packID != r.pack.ID {
		return nil, packs.ErrPackNotFound
	}
	return r.pack, nil
}

type funcHandler func(ctx context.Context, inv *Invocation) (Outcome, error)

func (f funcHandler) Run(ctx context.Context, inv *Invocation) (Outcome, error) {
	return f(ctx, inv)
}

func newTestExecutor(store *fakeJobStore, limit int) *Executor {
	resolver := staticResolver{pack: &packs.Pack{ID: packs.DefaultPackID, Version: 1}}
	return NewExecutor(store, resolver, NewRateLimiter(store, limit, time.Hour))
}

func TestRunRecordsCompletedJobRun(t *testing.T) {
	store := &fakeJobStore{}
	exec := newTestExecutor(store, 0)
	exec.Register(KindDerive, funcHandler(func(_ context.Context, inv *Invocation) (Outcome, error) {
		if inv.JobRunID == "" || inv.Pack == nil {
			t.Error("Invocation missing job run ID or pack")
		}
		return Outcome{ItemsProcessed: 7}, nil
	}))

	res, err := exec.Run(context.Background(), Request{Kind: KindDerive})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Status != models.JobStatusCompleted || res.ItemsProcessed != 7 {
		t.Errorf("Result = %s/%d, want completed/7", res.Status, res.ItemsProcessed)
	}
	if res.WorkspaceID != models.DefaultWorkspaceID {
		t.Errorf("Empty workspace should default, got %s", res.WorkspaceID)
	}
	if res.Replayed {
		t.Error("Fresh run marked as replayed")
	}
	if len(store.runs) != 1 {
		t.Fatalf("Expected 1 job run, got %d", len(store.runs))
	}
	if store.runs[0].Status != models.JobStatusCompleted {
		t.Errorf("Persisted status = %s, want completed", store.runs[0].Status)
	}
}

func TestRunHandlerErrorRecordsFailed(t *testing.T) {
	store := &fakeJobStore{}
	exec := newTestExecutor(store, 0)
	handlerErr := errors.New("scoring engine unreachable")
	exec.Register(KindScore, funcHandler(func(_ context.Context, _ *Invocation) (Outcome, error) {
		return Outcome{ItemsProcessed: 3}, handlerErr
	}))

	_, err := exec.Run(context.Background(), Request{Kind: KindScore})
	if !errors.Is(err, handlerErr) {
		t.Fatalf("Expected wrapped handler error, got %v", err)
	}
	if len(store.runs) != 1 {
		t.Fatalf("Expected 1 job run, got %d", len(store.runs))
	}
	run := store.runs[0]
	if run.Status != models.JobStatusFailed {
		t.Errorf("Status = %s, want failed", run.Status)
	}
	if run.Error == nil || *run.Error != "scoring engine unreachable" {
		t.Errorf("Error message = %v, want handler message", run.Error)
	}
	if run.ItemsProcessed != 3 {
		t.Errorf("Partial progress not recorded: %d", run.ItemsProcessed)
	}
}

func TestRunSkippedOutcome(t *testing.T) {
	store := &fakeJobStore{}
	exec := newTestExecutor(store, 0)
	exec.Register(KindDerive, funcHandler(func(_ context.Context, _ *Invocation) (Outcome, error) {
		return Outcome{Skipped: true}, nil
	}))

	res, err := exec.Run(context.Background(), Request{Kind: KindDerive})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Status != models.JobStatusSkipped {
		t.Errorf("Status = %s, want skipped", res.Status)
	}
}

func TestRunIdempotentReplay(t *testing.T) {
	store := &fakeJobStore{}
	exec := newTestExecutor(store, 0)
	calls := 0
	exec.Register(KindDerive, funcHandler(func(_ context.Context, _ *Invocation) (Outcome, error) {
		calls++
		return Outcome{ItemsProcessed: 12}, nil
	}))

	req := Request{Kind: KindDerive, IdempotencyKey: "2026-08-20"}
	first, err := exec.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	second, err := exec.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Handler called %d times, want 1", calls)
	}
	if !second.Replayed {
		t.Error("Second result not marked as replayed")
	}
	if second.JobRunID != first.JobRunID {
		t.Errorf("Replay job run = %s, want original %s", second.JobRunID, first.JobRunID)
	}
	if second.ItemsProcessed != 12 {
		t.Errorf("Replay counter = %d, want 12", second.ItemsProcessed)
	}
	if len(store.runs) != 1 {
		t.Errorf("Replay created a new job run: %d runs", len(store.runs))
	}
}

func TestRunFailedRunDoesNotReplay(t *testing.T) {
	store := &fakeJobStore{}
	exec := newTestExecutor(store, 0)
	attempt := 0
	exec.Register(KindDerive, funcHandler(func(_ context.Context, _ *Invocation) (Outcome, error) {
		attempt++
		if attempt == 1 {
			return Outcome{}, errors.New("transient")
		}
		return Outcome{ItemsProcessed: 5}, nil
	}))

	req := Request{Kind: KindDerive, IdempotencyKey: "2026-08-21"}
	if _, err := exec.Run(context.Background(), req); err == nil {
		t.Fatal("Expected first attempt to fail")
	}

	res, err := exec.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if res.Replayed {
		t.Error("Retry after failure must execute, not replay")
	}
	if attempt != 2 {
		t.Errorf("Handler called %d times, want 2", attempt)
	}
}

func TestRunIdempotencyKeyScopedPerWorkspace(t *testing.T) {
	store := &fakeJobStore{}
	exec := newTestExecutor(store, 0)
	items := map[string]int{"tenant-a": 10, "tenant-b": 20}
	exec.Register(KindDerive, funcHandler(func(_ context.Context, inv *Invocation) (Outcome, error) {
		return Outcome{ItemsProcessed: items[inv.WorkspaceID]}, nil
	}))

	// Both workspaces use the literal same key.
	for _, ws := range []string{"tenant-a", "tenant-b"} {
		if _, err := exec.Run(context.Background(), Request{Kind: KindDerive, WorkspaceID: ws, IdempotencyKey: "daily"}); err != nil {
			t.Fatalf("Run for %s failed: %v", ws, err)
		}
	}

	resA, err := exec.Run(context.Background(), Request{Kind: KindDerive, WorkspaceID: "tenant-a", IdempotencyKey: "daily"})
	if err != nil {
		t.Fatalf("Replay for tenant-a failed: %v", err)
	}
	resB, err := exec.Run(context.Background(), Request{Kind: KindDerive, WorkspaceID: "tenant-b", IdempotencyKey: "daily"})
	if err != nil {
		t.Fatalf("Replay for tenant-b failed: %v", err)
	}
	if !resA.Replayed || !resB.Replayed {
		t.Fatal("Expected both replays to hit cached runs")
	}
	if resA.ItemsProcessed != 10 || resB.ItemsProcessed != 20 {
		t.Errorf("Replays crossed workspaces: a=%d b=%d", resA.ItemsProcessed, resB.ItemsProcessed)
	}
}

func TestRunRateLimited(t *testing.T) {
	store := &fakeJobStore{countInWin: 3}
	exec := newTestExecutor(store, 3)
	exec.Register(KindDerive, funcHandler(func(_ context.Context, _ *Invocation) (Outcome, error) {
		t.Error("Handler must not run when rate limited")
		return Outcome{}, nil
	}))

	_, err := exec.Run(context.Background(), Request{Kind: KindDerive})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Expected ErrRateLimited, got %v", err)
	}
	// A refused attempt leaves no job run behind.
	if len(store.runs) != 0 {
		t.Errorf("Rate-limited attempt recorded %d job runs", len(store.runs))
	}
}

func TestRunReplayBypassesRateLimit(t *testing.T) {
	store := &fakeJobStore{}
	exec := newTestExecutor(store, 3)
	calls := 0
	exec.Register(KindDerive, funcHandler(func(_ context.Context, _ *Invocation) (Outcome, error) {
		calls++
		return Outcome{ItemsProcessed: 4}, nil
	}))

	req := Request{Kind: KindDerive, IdempotencyKey: "2026-08-22"}
	first, err := exec.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	// Quota is now exhausted. A fresh invocation is refused, but a replay
	// of the completed run answers from the store without consuming quota.
	store.countInWin = 3
	if _, err := exec.Run(context.Background(), Request{Kind: KindDerive}); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Fresh run at quota: expected ErrRateLimited, got %v", err)
	}

	res, err := exec.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Replay at quota failed: %v", err)
	}
	if !res.Replayed || res.JobRunID != first.JobRunID {
		t.Errorf("Expected replay of %s, got replayed=%v id=%s", first.JobRunID, res.Replayed, res.JobRunID)
	}
	if calls != 1 {
		t.Errorf("Handler called %d times, want 1", calls)
	}
	if len(store.runs) != 1 {
		t.Errorf("Replay at quota recorded %d job runs, want 1", len(store.runs))
	}
}

func TestRunRateLimitDisabled(t *testing.T) {
	store := &fakeJobStore{countInWin: 1000}
	exec := newTestExecutor(store, 0)
	exec.Register(KindDerive, funcHandler(func(_ context.Context, _ *Invocation) (Outcome, error) {
		return Outcome{}, nil
	}))

	if _, err := exec.Run(context.Background(), Request{Kind: KindDerive}); err != nil {
		t.Fatalf("Disabled limiter refused invocation: %v", err)
	}
}

func TestRunUnregisteredKindPanics(t *testing.T) {
	exec := newTestExecutor(&fakeJobStore{}, 0)

	defer func() {
		if recover() == nil {
			t.Error("Expected panic for unregistered stage kind")
		}
	}()
	_, _ = exec.Run(context.Background(), Request{Kind: KindIngest})
}

func TestRunUnresolvablePackSkips(t *testing.T) {
	store := &fakeJobStore{}
	exec := newTestExecutor(store, 0)
	exec.Register(KindDerive, funcHandler(func(_ context.Context, _ *Invocation) (Outcome, error) {
		t.Error("Handler must not run without a resolved pack")
		return Outcome{}, nil
	}))

	res, err := exec.Run(context.Background(), Request{Kind: KindDerive, PackID: "missing.v9"})
	if err != nil {
		t.Fatalf("Unresolvable pack should skip, not fail: %v", err)
	}
	if res.Status != models.JobStatusSkipped {
		t.Errorf("Status = %s, want skipped", res.Status)
	}
	if len(store.runs) != 0 {
		t.Errorf("Skip without a pack recorded %d job runs", len(store.runs))
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		parsed, err := ParseKind(k.String())
		if err != nil || parsed != k {
			t.Errorf("ParseKind(%s) = %v, %v", k, parsed, err)
		}
	}
	if _, err := ParseKind("reticulate"); err == nil {
		t.Error("ParseKind accepted an unknown kind")
	}
}

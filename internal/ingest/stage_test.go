// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/revlumen/leadfeed/internal/models"
	"github.com/revlumen/leadfeed/internal/packs"
	"github.com/revlumen/leadfeed/internal/stage"
)

type fakeStore struct {
	inserted []models.RawEvent
	seen     map[string]bool
	err      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{seen: make(map[string]bool)}
}

func (s *fakeStore) InsertRawEvents(ctx context.Context, events []models.RawEvent) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n := 0
	for _, ev := range events {
		if s.seen[ev.ID] {
			continue
		}
		s.seen[ev.ID] = true
		s.inserted = append(s.inserted, ev)
		n++
	}
	return n, nil
}

func testInvocation() *stage.Invocation {
	return &stage.Invocation{
		JobRunID:    "job-1",
		WorkspaceID: "tenant-a",
		Pack:        &packs.Pack{ID: "core.v1"},
	}
}

func TestHandlerPersistsBatch(t *testing.T) {
	store := newFakeStore()
	q := NewQueue(10)
	for _, id := range []string{"a", "b", "c"} {
		ev := validEvent()
		ev.ID = id
		if err := q.Enqueue(ev); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	h := NewHandler(store, q, 0)
	out, err := h.Run(context.Background(), testInvocation())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.ItemsProcessed != 3 {
		t.Errorf("ItemsProcessed = %d, want 3", out.ItemsProcessed)
	}
	if out.Detail["inserted"] != 3 || out.Detail["skipped_invalid"] != 0 {
		t.Errorf("Detail = %v", out.Detail)
	}
	if q.Len() != 0 {
		t.Errorf("queue not drained, %d left", q.Len())
	}
}

func TestHandlerEmptyQueueSkips(t *testing.T) {
	h := NewHandler(newFakeStore(), NewQueue(10), 100)
	out, err := h.Run(context.Background(), testInvocation())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !out.Skipped {
		t.Error("expected skipped outcome for empty queue")
	}
}

func TestHandlerDropsInvalidCountsDuplicates(t *testing.T) {
	store := newFakeStore()
	store.seen["dup"] = true

	q := NewQueue(10)
	good := validEvent()
	good.ID = "good"
	bad := validEvent()
	bad.ID = "bad"
	bad.EventType = ""
	dup := validEvent()
	dup.ID = "dup"
	for _, ev := range []CompanyEvent{good, bad, dup} {
		if err := q.Enqueue(ev); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	h := NewHandler(store, q, 100)
	out, err := h.Run(context.Background(), testInvocation())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.ItemsProcessed != 1 {
		t.Errorf("ItemsProcessed = %d, want 1", out.ItemsProcessed)
	}
	if out.Detail["skipped_invalid"] != 1 {
		t.Errorf("skipped_invalid = %d, want 1", out.Detail["skipped_invalid"])
	}
	if out.Detail["skipped_duplicate"] != 1 {
		t.Errorf("skipped_duplicate = %d, want 1", out.Detail["skipped_duplicate"])
	}
}

func TestHandlerRespectsBatchSize(t *testing.T) {
	store := newFakeStore()
	q := NewQueue(10)
	for _, id := range []string{"a", "b", "c", "d"} {
		ev := validEvent()
		ev.ID = id
		_ = q.Enqueue(ev)
	}

	h := NewHandler(store, q, 2)
	out, err := h.Run(context.Background(), testInvocation())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.ItemsProcessed != 2 {
		t.Errorf("ItemsProcessed = %d, want 2", out.ItemsProcessed)
	}
	if q.Len() != 2 {
		t.Errorf("queue should retain the rest, Len = %d", q.Len())
	}
}

func TestHandlerStoreError(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("io error")
	q := NewQueue(10)
	_ = q.Enqueue(validEvent())

	h := NewHandler(store, q, 100)
	if _, err := h.Run(context.Background(), testInvocation()); err == nil {
		t.Fatal("expected error from failing store")
	}
}

func TestHandlerDefaultsPackFromInvocation(t *testing.T) {
	store := newFakeStore()
	q := NewQueue(10)
	ev := validEvent()
	ev.PackID = ""
	_ = q.Enqueue(ev)

	h := NewHandler(store, q, 100)
	if _, err := h.Run(context.Background(), testInvocation()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(store.inserted) != 1 || store.inserted[0].PackID != "core.v1" {
		t.Errorf("inserted = %+v, want pack core.v1", store.inserted)
	}
}

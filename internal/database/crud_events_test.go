// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/revlumen/leadfeed/internal/models"
)

func testEvent(companyID string, eventType string, occurredAt time.Time) models.RawEvent {
	var company *string
	if companyID != "" {
		company = &companyID
	}
	return models.RawEvent{
		ID:          uuid.New().String(),
		WorkspaceID: "default",
		CompanyID:   company,
		EventType:   eventType,
		OccurredAt:  occurredAt,
		PackID:      "core.v1",
	}
}

func TestInsertRawEventsSkipsDuplicates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	events := []models.RawEvent{
		testEvent("acme", "pricing_page_view", now),
		testEvent("acme", "demo_request", now.Add(time.Minute)),
	}

	inserted, err := db.InsertRawEvents(ctx, events)
	if err != nil {
		t.Fatalf("InsertRawEvents failed: %v", err)
	}
	if inserted != 2 {
		t.Errorf("Expected 2 inserted, got %d", inserted)
	}

	// Redelivery of the same batch plus one new event.
	events = append(events, testEvent("globex", "job_posting", now))
	inserted, err = db.InsertRawEvents(ctx, events)
	if err != nil {
		t.Fatalf("InsertRawEvents redelivery failed: %v", err)
	}
	if inserted != 1 {
		t.Errorf("Expected 1 inserted on redelivery, got %d", inserted)
	}

	count, err := db.CountRawEvents(ctx, "default", "core.v1")
	if err != nil {
		t.Fatalf("CountRawEvents failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 events total, got %d", count)
	}
}

func TestListRawEventsOrderAndSubset(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	events := []models.RawEvent{
		testEvent("globex", "job_posting", base.Add(2*time.Hour)),
		testEvent("acme", "demo_request", base),
		testEvent("acme", "pricing_page_view", base.Add(time.Hour)),
		testEvent("", "untracked_visit", base), // no company attribution
	}
	if _, err := db.InsertRawEvents(ctx, events); err != nil {
		t.Fatalf("InsertRawEvents failed: %v", err)
	}

	all, err := db.ListRawEvents(ctx, "default", "core.v1", nil)
	if err != nil {
		t.Fatalf("ListRawEvents failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].OccurredAt.Before(all[i-1].OccurredAt) {
			t.Errorf("Events not ordered by occurred_at at index %d", i)
		}
	}

	subset, err := db.ListRawEvents(ctx, "default", "core.v1", []string{"acme"})
	if err != nil {
		t.Fatalf("ListRawEvents subset failed: %v", err)
	}
	if len(subset) != 2 {
		t.Fatalf("Expected 2 acme events, got %d", len(subset))
	}
	for _, ev := range subset {
		if ev.CompanyID == nil || *ev.CompanyID != "acme" {
			t.Errorf("Subset returned event for wrong company: %+v", ev.CompanyID)
		}
	}
}

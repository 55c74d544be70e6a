// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package database

import (
	"context"
	"testing"
	"time"

	"github.com/revlumen/leadfeed/internal/models"
)

func testFeedRow(company string, composite int, lastSeen *time.Time) models.LeadFeedRow {
	return models.LeadFeedRow{
		WorkspaceID:   "default",
		PackID:        "core.v1",
		CompanyID:     company,
		Composite:     composite,
		SignalTypes:   []string{"buying_intent"},
		Suppression:   models.SuppressionAllow,
		Sensitivity:   "standard",
		OutreachScore: composite,
		LastSeenAt:    lastSeen,
		FeedDate:      time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Now().UTC(),
	}
}

func TestReplaceLeadFeedRowsRemovesStale(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := []models.LeadFeedRow{
		testFeedRow("acme", 80, nil),
		testFeedRow("globex", 60, nil),
	}
	if err := db.ReplaceLeadFeedRows(ctx, "default", "core.v1", first); err != nil {
		t.Fatalf("ReplaceLeadFeedRows failed: %v", err)
	}

	// globex no longer qualifies in the second rebuild.
	second := []models.LeadFeedRow{testFeedRow("acme", 85, nil)}
	if err := db.ReplaceLeadFeedRows(ctx, "default", "core.v1", second); err != nil {
		t.Fatalf("ReplaceLeadFeedRows rebuild failed: %v", err)
	}

	rows, err := db.ListLeadFeed(ctx, "default", "core.v1", 0, 100)
	if err != nil {
		t.Fatalf("ListLeadFeed failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row after rebuild, got %d", len(rows))
	}
	if rows[0].CompanyID != "acme" || rows[0].Composite != 85 {
		t.Errorf("Got %s/%d, want acme/85", rows[0].CompanyID, rows[0].Composite)
	}
}

func TestReplaceLeadFeedRowsPackScoped(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	other := testFeedRow("acme", 70, nil)
	other.PackID = "saas.v2"
	if err := db.ReplaceLeadFeedRows(ctx, "default", "saas.v2", []models.LeadFeedRow{other}); err != nil {
		t.Fatalf("ReplaceLeadFeedRows failed: %v", err)
	}
	if err := db.ReplaceLeadFeedRows(ctx, "default", "core.v1", []models.LeadFeedRow{testFeedRow("globex", 50, nil)}); err != nil {
		t.Fatalf("ReplaceLeadFeedRows failed: %v", err)
	}

	// The core.v1 rebuild must not touch the saas.v2 feed.
	rows, err := db.ListLeadFeed(ctx, "default", "saas.v2", 0, 100)
	if err != nil {
		t.Fatalf("ListLeadFeed failed: %v", err)
	}
	if len(rows) != 1 || rows[0].CompanyID != "acme" {
		t.Errorf("saas.v2 feed disturbed by core.v1 rebuild: %+v", rows)
	}
}

func TestUpsertLeadFeedRowOverwrites(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	row := testFeedRow("acme", 60, nil)
	if err := db.UpsertLeadFeedRow(ctx, &row); err != nil {
		t.Fatalf("UpsertLeadFeedRow failed: %v", err)
	}

	status := "contacted"
	row.Composite = 75
	row.OutreachStatus = &status
	row.SignalTypes = []string{"buying_intent", "hiring"}
	if err := db.UpsertLeadFeedRow(ctx, &row); err != nil {
		t.Fatalf("UpsertLeadFeedRow overwrite failed: %v", err)
	}

	rows, err := db.ListLeadFeed(ctx, "default", "core.v1", 0, 100)
	if err != nil {
		t.Fatalf("ListLeadFeed failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	got := rows[0]
	if got.Composite != 75 {
		t.Errorf("Composite = %d, want 75", got.Composite)
	}
	if got.OutreachStatus == nil || *got.OutreachStatus != "contacted" {
		t.Errorf("OutreachStatus = %v, want contacted", got.OutreachStatus)
	}
	if len(got.SignalTypes) != 2 {
		t.Errorf("SignalTypes = %v, want 2 entries", got.SignalTypes)
	}
}

func TestListLeadFeedOrderingFloorAndLimit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	older := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)
	rows := []models.LeadFeedRow{
		testFeedRow("low", 10, nil),
		testFeedRow("tie-old", 70, &older),
		testFeedRow("tie-new", 70, &newer),
		testFeedRow("top", 90, nil),
	}
	if err := db.ReplaceLeadFeedRows(ctx, "default", "core.v1", rows); err != nil {
		t.Fatalf("ReplaceLeadFeedRows failed: %v", err)
	}

	got, err := db.ListLeadFeed(ctx, "default", "core.v1", 25, 100)
	if err != nil {
		t.Fatalf("ListLeadFeed failed: %v", err)
	}
	want := []string{"top", "tie-new", "tie-old"}
	if len(got) != len(want) {
		t.Fatalf("Got %d rows, want %d (floor should drop 'low')", len(got), len(want))
	}
	for i, company := range want {
		if got[i].CompanyID != company {
			t.Errorf("Position %d = %s, want %s", i, got[i].CompanyID, company)
		}
	}

	limited, err := db.ListLeadFeed(ctx, "default", "core.v1", 0, 2)
	if err != nil {
		t.Fatalf("ListLeadFeed with limit failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Limit not applied: got %d rows", len(limited))
	}
}

func TestHasLeadFeedRows(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	has, err := db.HasLeadFeedRows(ctx, "default", "core.v1")
	if err != nil {
		t.Fatalf("HasLeadFeedRows failed: %v", err)
	}
	if has {
		t.Error("Empty feed reported as present")
	}

	row := testFeedRow("acme", 50, nil)
	if err := db.UpsertLeadFeedRow(ctx, &row); err != nil {
		t.Fatalf("UpsertLeadFeedRow failed: %v", err)
	}
	has, err = db.HasLeadFeedRows(ctx, "default", "core.v1")
	if err != nil {
		t.Fatalf("HasLeadFeedRows failed: %v", err)
	}
	if !has {
		t.Error("Populated feed reported as absent")
	}
}

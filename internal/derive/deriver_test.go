// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package derive

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/revlumen/leadfeed/internal/models"
	"github.com/revlumen/leadfeed/internal/packs"
	"github.com/revlumen/leadfeed/internal/stage"
)

type fakeStore struct {
	events []models.RawEvent
	merged []models.SignalInstance
	calls  int
}

func (s *fakeStore) ListRawEvents(_ context.Context, _, _ string, _ []string) ([]models.RawEvent, error) {
	return s.events, nil
}

func (s *fakeStore) MergeSignalInstances(_ context.Context, instances []models.SignalInstance) error {
	s.calls++
	s.merged = append(s.merged, instances...)
	return nil
}

func testPack() *packs.Pack {
	return &packs.Pack{
		ID:      "core.v1",
		Version: 1,
		Passthrough: map[string]string{
			"pricing_page_view": "intent.pricing",
			"demo_request":      "intent.demo",
		},
	}
}

func event(company, eventType string, occurredAt time.Time, confidence *float64) models.RawEvent {
	var c *string
	if company != "" {
		c = &company
	}
	return models.RawEvent{
		ID:          uuid.New().String(),
		WorkspaceID: "default",
		CompanyID:   c,
		EventType:   eventType,
		OccurredAt:  occurredAt,
		Confidence:  confidence,
		PackID:      "core.v1",
	}
}

func TestFoldAggregatesPerCompanySignal(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	high, low := 0.9, 0.4
	events := []models.RawEvent{
		event("acme", "pricing_page_view", base.Add(48*time.Hour), nil),
		event("acme", "pricing_page_view", base, &high),
		event("acme", "pricing_page_view", base.Add(24*time.Hour), &low),
		event("acme", "demo_request", base.Add(time.Hour), nil),
		event("globex", "pricing_page_view", base, nil),
	}

	instances, processed, skipped := Fold(testPack(), events)
	if processed != 5 || skipped != 0 {
		t.Errorf("processed/skipped = %d/%d, want 5/0", processed, skipped)
	}
	if len(instances) != 3 {
		t.Fatalf("Expected 3 aggregates, got %d", len(instances))
	}

	var acmePricing *models.SignalInstance
	for i := range instances {
		if instances[i].CompanyID == "acme" && instances[i].SignalID == "intent.pricing" {
			acmePricing = &instances[i]
		}
	}
	if acmePricing == nil {
		t.Fatal("Missing acme intent.pricing aggregate")
	}
	if !acmePricing.FirstSeenAt.Equal(base) {
		t.Errorf("FirstSeenAt = %v, want earliest %v", acmePricing.FirstSeenAt, base)
	}
	if !acmePricing.LastSeenAt.Equal(base.Add(48 * time.Hour)) {
		t.Errorf("LastSeenAt = %v, want latest occurrence", acmePricing.LastSeenAt)
	}
	// Greatest non-nil confidence wins; later nil or lower values never
	// displace it.
	if acmePricing.Confidence == nil || *acmePricing.Confidence != high {
		t.Errorf("Confidence = %v, want greatest %v", acmePricing.Confidence, high)
	}
	if acmePricing.Strength != models.DefaultSignalStrength {
		t.Errorf("Strength = %v, want baseline", acmePricing.Strength)
	}
}

func TestFoldSkipsUnattributedAndUnmapped(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	events := []models.RawEvent{
		event("", "pricing_page_view", base, nil),      // no company
		event("acme", "newsletter_signup", base, nil),  // not in passthrough
		event("acme", "demo_request", base, nil),
	}

	instances, processed, skipped := Fold(testPack(), events)
	if processed != 1 || skipped != 2 {
		t.Errorf("processed/skipped = %d/%d, want 1/2", processed, skipped)
	}
	if len(instances) != 1 || instances[0].SignalID != "intent.demo" {
		t.Errorf("Unexpected aggregates: %+v", instances)
	}
}

func TestRunMergesOnce(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{events: []models.RawEvent{
		event("acme", "pricing_page_view", base, nil),
		event("globex", "demo_request", base, nil),
	}}
	d := NewDeriver(store)

	out, err := d.Run(context.Background(), &stage.Invocation{
		JobRunID:    uuid.New().String(),
		WorkspaceID: "default",
		Pack:        testPack(),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.ItemsProcessed != 2 || out.Skipped {
		t.Errorf("Outcome = %+v, want 2 processed", out)
	}
	if store.calls != 1 {
		t.Errorf("MergeSignalInstances called %d times, want 1", store.calls)
	}
	if len(store.merged) != 2 {
		t.Errorf("Merged %d instances, want 2", len(store.merged))
	}
}

func TestRunEmptyPassthroughSkips(t *testing.T) {
	store := &fakeStore{}
	d := NewDeriver(store)

	out, err := d.Run(context.Background(), &stage.Invocation{
		WorkspaceID: "default",
		Pack:        &packs.Pack{ID: "empty.v1"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !out.Skipped {
		t.Error("Empty passthrough should yield a skipped outcome")
	}
	if store.calls != 0 {
		t.Error("Merge must not run for a skipped derivation")
	}
}

// Folding the same events twice produces identical aggregates, so the SQL
// merge leaves the table unchanged on re-derivation.
func TestFoldDeterministic(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	conf := 0.5
	events := []models.RawEvent{
		event("acme", "pricing_page_view", base, &conf),
		event("acme", "pricing_page_view", base.Add(time.Hour), nil),
	}

	first, _, _ := Fold(testPack(), events)
	second, _, _ := Fold(testPack(), events)
	if len(first) != len(second) {
		t.Fatalf("Aggregate counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.CompanyID != b.CompanyID || a.SignalID != b.SignalID ||
			!a.FirstSeenAt.Equal(b.FirstSeenAt) || !a.LastSeenAt.Equal(b.LastSeenAt) {
			t.Errorf("Aggregate %d differs between folds: %+v vs %+v", i, a, b)
		}
	}
}

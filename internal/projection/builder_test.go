// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package projection

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/revlumen/leadfeed/internal/models"
	"github.com/revlumen/leadfeed/internal/packs"
)

// fakeStore is an in-memory Store for builder tests. The feed map is keyed
// by company ID within a single (workspace, pack).
type fakeStore struct {
	pairs    []models.SnapshotPair
	lastSeen map[string]time.Time
	outreach map[string]string
	feed     map[string]models.LeadFeedRow

	replaceErr error
	replaces   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		lastSeen: map[string]time.Time{},
		outreach: map[string]string{},
		feed:     map[string]models.LeadFeedRow{},
	}
}

func (s *fakeStore) ListLatestSnapshotPairs(_ context.Context, _, _ string, _ time.Time, subset []string) ([]models.SnapshotPair, error) {
	if len(subset) == 0 {
		return s.pairs, nil
	}
	want := map[string]bool{}
	for _, c := range subset {
		want[c] = true
	}
	var out []models.SnapshotPair
	for _, p := range s.pairs {
		if want[p.Readiness.CompanyID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) LatestSeenByCompany(_ context.Context, _, _ string, companyIDs []string) (map[string]time.Time, error) {
	out := map[string]time.Time{}
	for _, c := range companyIDs {
		if t, ok := s.lastSeen[c]; ok {
			out[c] = t
		}
	}
	return out, nil
}

func (s *fakeStore) LatestOutreachStatusByCompany(_ context.Context, _ string, companyIDs []string) (map[string]string, error) {
	out := map[string]string{}
	for _, c := range companyIDs {
		if st, ok := s.outreach[c]; ok {
			out[c] = st
		}
	}
	return out, nil
}

func (s *fakeStore) ReplaceLeadFeedRows(_ context.Context, _, _ string, rows []models.LeadFeedRow) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.replaces++
	s.feed = map[string]models.LeadFeedRow{}
	for _, r := range rows {
		s.feed[r.CompanyID] = r
	}
	return nil
}

func (s *fakeStore) UpsertLeadFeedRow(_ context.Context, row *models.LeadFeedRow) error {
	s.feed[row.CompanyID] = *row
	return nil
}

func (s *fakeStore) DeleteLeadFeedRow(_ context.Context, _, _ string, companyID string) error {
	delete(s.feed, companyID)
	return nil
}

func strptr(s string) *string { return &s }

func pair(company string, composite int, suitability float64, suppression *string, explanation string) models.SnapshotPair {
	date := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	var payload []byte
	if explanation != "" {
		payload = []byte(explanation)
	}
	return models.SnapshotPair{
		Readiness: models.ReadinessSnapshot{
			ID: uuid.New().String(), WorkspaceID: "default", CompanyID: company,
			SnapshotDate: date, Composite: composite, Explanation: payload,
		},
		Engagement: models.EngagementSnapshot{
			ID: uuid.New().String(), WorkspaceID: "default", CompanyID: company,
			SnapshotDate: date, Suitability: suitability, Suppression: suppression,
		},
	}
}

func corePack() *packs.Pack {
	threshold := 25
	return &packs.Pack{ID: "core.v1", Version: 1, MinComposite: &threshold}
}

func TestRebuildAppliesExclusionRules(t *testing.T) {
	store := newFakeStore()
	store.pairs = []models.SnapshotPair{
		pair("suppressed-co", 90, 0.9, strptr(models.SuppressionSuppress), ""),
		pair("weak-co", 10, 0.9, nil, ""), // below pack threshold 25
		pair("good-co", 80, 0.5, nil, `{"signal_types":["intent.pricing","intent.demo"]}`),
	}
	b := NewBuilder(store)

	rows, err := b.Rebuild(context.Background(), "default", corePack(), time.Time{})
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if rows != 1 {
		t.Fatalf("Rebuild upserted %d rows, want 1", rows)
	}
	row, ok := store.feed["good-co"]
	if !ok {
		t.Fatal("Surviving pair missing from feed")
	}
	if row.Composite != 80 {
		t.Errorf("Composite = %d, want 80", row.Composite)
	}
	if row.OutreachScore != 40 {
		t.Errorf("OutreachScore = %d, want 40", row.OutreachScore)
	}
	if !reflect.DeepEqual(row.SignalTypes, []string{"intent.pricing", "intent.demo"}) {
		t.Errorf("SignalTypes = %v", row.SignalTypes)
	}
	if row.Suppression != models.SuppressionAllow {
		t.Errorf("Suppression = %s, want allow", row.Suppression)
	}
}

func TestRebuildIdempotent(t *testing.T) {
	store := newFakeStore()
	store.pairs = []models.SnapshotPair{
		pair("good-co", 80, 0.5, nil, `{"signal_types":["intent.pricing"]}`),
	}
	b := NewBuilder(store)
	fixed := time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return fixed }

	if _, err := b.Rebuild(context.Background(), "default", corePack(), time.Time{}); err != nil {
		t.Fatalf("First rebuild failed: %v", err)
	}
	first := store.feed["good-co"]

	if _, err := b.Rebuild(context.Background(), "default", corePack(), time.Time{}); err != nil {
		t.Fatalf("Second rebuild failed: %v", err)
	}
	second := store.feed["good-co"]

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Rebuild not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestExclusionRuleFallbacks(t *testing.T) {
	// Rule A falls back to the explanation payload for legacy rows without
	// the dedicated suppression column.
	legacy := pair("legacy-co", 80, 0.5, nil, "")
	legacy.Engagement.Explanation = []byte(`{"suppression":"suppress"}`)
	if reason, excluded := excludePair(corePack(), &legacy); !excluded || reason != "suppressed" {
		t.Errorf("Legacy suppression not honored: %s/%v", reason, excluded)
	}

	// Rule B falls back to the readiness explanation threshold when the
	// pack declares none.
	noThreshold := &packs.Pack{ID: "raw.v1", Version: 1}
	perRow := pair("threshold-co", 30, 0.5, nil, `{"min_composite":40}`)
	if reason, excluded := excludePair(noThreshold, &perRow); !excluded || reason != "below_threshold" {
		t.Errorf("Per-row threshold not honored: %s/%v", reason, excluded)
	}

	// The pack's declared threshold wins over the per-row value.
	packWins := pair("pack-wins-co", 30, 0.5, nil, `{"min_composite":40}`)
	if _, excluded := excludePair(corePack(), &packWins); excluded {
		t.Error("Pack threshold 25 should admit composite 30 despite per-row 40")
	}
}

func TestRankedSignalTypesDedupAndCap(t *testing.T) {
	types := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		types = append(types, fmt.Sprintf("signal.%d", i%10)) // 10 unique, 2 dups
	}
	payload, _ := json.Marshal(map[string]any{"signal_types": types})
	readiness := models.ReadinessSnapshot{Explanation: payload}

	got := rankedSignalTypes(&readiness)
	if len(got) != models.MaxFeedSignalTypes {
		t.Fatalf("Got %d signal types, want cap %d", len(got), models.MaxFeedSignalTypes)
	}
	for i, st := range got {
		if st != fmt.Sprintf("signal.%d", i) {
			t.Errorf("Position %d = %s, source order not preserved", i, st)
		}
	}
}

func TestUpsertOne(t *testing.T) {
	store := newFakeStore()
	store.lastSeen["good-co"] = time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)
	store.outreach["good-co"] = "contacted"
	b := NewBuilder(store)

	ok, err := b.UpsertOne(context.Background(), "default", corePack(),
		pair("good-co", 70, 0.8, nil, ""))
	if err != nil {
		t.Fatalf("UpsertOne failed: %v", err)
	}
	if !ok {
		t.Fatal("Qualifying pair reported as excluded")
	}
	row := store.feed["good-co"]
	if row.OutreachScore != 56 {
		t.Errorf("OutreachScore = %d, want 56", row.OutreachScore)
	}
	if row.LastSeenAt == nil || row.OutreachStatus == nil || *row.OutreachStatus != "contacted" {
		t.Errorf("Hydration missing: %+v", row)
	}

	// The company later becomes suppressed: the stale row is removed.
	ok, err = b.UpsertOne(context.Background(), "default", corePack(),
		pair("good-co", 70, 0.8, strptr(models.SuppressionSuppress), ""))
	if err != nil {
		t.Fatalf("UpsertOne for suppressed pair failed: %v", err)
	}
	if ok {
		t.Error("Suppressed pair reported as upserted")
	}
	if _, present := store.feed["good-co"]; present {
		t.Error("Excluded company still present in feed")
	}
}

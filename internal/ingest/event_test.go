// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package ingest

import (
	"testing"
	"time"

	"github.com/revlumen/leadfeed/internal/models"
)

func validEvent() CompanyEvent {
	conf := 0.8
	return CompanyEvent{
		ID:          "evt-1",
		CompanyID:   "acme-co",
		WorkspaceID: "tenant-a",
		EventType:   "pricing_page_view",
		OccurredAt:  time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
		Confidence:  &conf,
		PackID:      "core.v1",
	}
}

func TestEventValidate(t *testing.T) {
	ev := validEvent()
	if err := ev.Validate(); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	missing := validEvent()
	missing.EventType = ""
	if err := missing.Validate(); err == nil {
		t.Error("expected error for missing event_type")
	}

	noTime := validEvent()
	noTime.OccurredAt = time.Time{}
	if err := noTime.Validate(); err == nil {
		t.Error("expected error for zero occurred_at")
	}

	badConf := validEvent()
	over := 1.5
	badConf.Confidence = &over
	if err := badConf.Validate(); err == nil {
		t.Error("expected error for confidence > 1")
	}

	negConf := validEvent()
	neg := -0.1
	negConf.Confidence = &neg
	if err := negConf.Validate(); err == nil {
		t.Error("expected error for negative confidence")
	}
}

func TestEventValidateAllowsUnattributed(t *testing.T) {
	ev := validEvent()
	ev.CompanyID = ""
	if err := ev.Validate(); err != nil {
		t.Fatalf("unattributed event should validate: %v", err)
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	ev := validEvent()
	ev.ID = ""
	ev.WorkspaceID = ""
	ev.PackID = ""

	row := ev.Normalize("core.v1")

	if row.ID == "" {
		t.Error("expected generated event ID")
	}
	if row.WorkspaceID != models.DefaultWorkspaceID {
		t.Errorf("WorkspaceID = %q, want default", row.WorkspaceID)
	}
	if row.PackID != "core.v1" {
		t.Errorf("PackID = %q, want core.v1", row.PackID)
	}
	if row.CompanyID == nil || *row.CompanyID != "acme-co" {
		t.Errorf("CompanyID = %v, want acme-co", row.CompanyID)
	}
}

func TestNormalizePreservesProducerFields(t *testing.T) {
	ev := validEvent()
	row := ev.Normalize("other.pack")

	if row.ID != "evt-1" {
		t.Errorf("ID = %q, want evt-1", row.ID)
	}
	if row.WorkspaceID != "tenant-a" {
		t.Errorf("WorkspaceID = %q, want tenant-a", row.WorkspaceID)
	}
	if row.PackID != "core.v1" {
		t.Errorf("producer pack overridden: PackID = %q", row.PackID)
	}
	if row.Confidence == nil || *row.Confidence != 0.8 {
		t.Errorf("Confidence = %v, want 0.8", row.Confidence)
	}
}

func TestNormalizeUnattributedCompany(t *testing.T) {
	ev := validEvent()
	ev.CompanyID = ""
	row := ev.Normalize("core.v1")
	if row.CompanyID != nil {
		t.Errorf("CompanyID = %v, want nil", row.CompanyID)
	}
}

func TestSerializerRoundTrip(t *testing.T) {
	s := NewSerializer()
	ev := validEvent()

	data, err := s.Marshal(&ev)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	got, err := s.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.ID != ev.ID || got.EventType != ev.EventType || !got.OccurredAt.Equal(ev.OccurredAt) {
		t.Errorf("round trip mismatch: got %+v", got)
	}
}

func TestSerializerMarshalRejectsInvalid(t *testing.T) {
	s := NewSerializer()
	ev := validEvent()
	ev.EventType = ""
	if _, err := s.Marshal(&ev); err == nil {
		t.Error("expected marshal to reject invalid event")
	}
}

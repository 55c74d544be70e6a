// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package packs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/revlumen/leadfeed/internal/models"
)

const samplePack = `
id: sales.v2
version: 2
passthrough:
  pricing_page_view: intent.pricing
  expansion_hint: growth.expansion
min_composite: 40
suppression:
  - sensitivity: regulated
    decision: constrained
signals:
  - id: intent.pricing
    label: Pricing interest
    category: intent
`

func writePack(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write pack file: %v", err)
	}
}

func TestStoreServesDefaultPack(t *testing.T) {
	store := NewStore("")

	pack, err := store.Get(DefaultPackID)
	if err != nil {
		t.Fatalf("Get(default) failed: %v", err)
	}
	if len(pack.Passthrough) == 0 {
		t.Error("default pack should carry a passthrough map")
	}
	if pack.MinComposite == nil {
		t.Error("default pack should declare a minimum composite")
	}
}

func TestStoreLoadsDirectory(t *testing.T) {
	dir := t.TempDir()
	writePack(t, dir, "sales.yaml", samplePack)

	store := NewStore(dir)
	pack, err := store.Get("sales.v2")
	if err != nil {
		t.Fatalf("Get(sales.v2) failed: %v", err)
	}
	if pack.Version != 2 {
		t.Errorf("expected version 2, got %d", pack.Version)
	}
	if sig, ok := pack.SignalFor("pricing_page_view"); !ok || sig != "intent.pricing" {
		t.Errorf("passthrough lookup = (%q, %v), want (intent.pricing, true)", sig, ok)
	}
	if pack.MinComposite == nil || *pack.MinComposite != 40 {
		t.Errorf("expected min_composite 40, got %v", pack.MinComposite)
	}
}

func TestStoreUnknownPack(t *testing.T) {
	store := NewStore("")
	if _, err := store.Get("nope.v9"); !errors.Is(err, ErrPackNotFound) {
		t.Errorf("expected ErrPackNotFound, got %v", err)
	}
}

func TestStoreResetReloads(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if _, err := store.Get("sales.v2"); !errors.Is(err, ErrPackNotFound) {
		t.Fatalf("expected pack missing before write, got %v", err)
	}

	// Cache holds: a file written after first load stays invisible.
	writePack(t, dir, "sales.yaml", samplePack)
	if _, err := store.Get("sales.v2"); !errors.Is(err, ErrPackNotFound) {
		t.Fatalf("cache should not see new files before Reset, got %v", err)
	}

	store.Reset()
	if _, err := store.Get("sales.v2"); err != nil {
		t.Fatalf("expected pack after Reset, got %v", err)
	}
}

// fakeWorkspaces implements WorkspaceGetter for resolver tests.
type fakeWorkspaces map[string]*models.Workspace

func (f fakeWorkspaces) GetWorkspace(_ context.Context, id string) (*models.Workspace, error) {
	ws, ok := f[id]
	if !ok {
		return nil, errors.New("workspace not found")
	}
	return ws, nil
}

func TestResolverActivePack(t *testing.T) {
	dir := t.TempDir()
	writePack(t, dir, "sales.yaml", samplePack)
	store := NewStore(dir)

	active := "sales.v2"
	resolver := NewResolver(store, fakeWorkspaces{
		"ws1": {ID: "ws1", ActivePackID: &active},
		"ws2": {ID: "ws2"},
	})

	pack, err := resolver.Resolve(context.Background(), "ws1", "")
	if err != nil {
		t.Fatalf("Resolve(ws1) failed: %v", err)
	}
	if pack.ID != "sales.v2" {
		t.Errorf("expected active pack sales.v2, got %s", pack.ID)
	}

	pack, err = resolver.Resolve(context.Background(), "ws2", "")
	if err != nil {
		t.Fatalf("Resolve(ws2) failed: %v", err)
	}
	if pack.ID != DefaultPackID {
		t.Errorf("expected default pack fallback, got %s", pack.ID)
	}
}

func TestResolverStaleActivePackFallsBack(t *testing.T) {
	store := NewStore("")
	stale := "gone.v1"
	resolver := NewResolver(store, fakeWorkspaces{
		"ws1": {ID: "ws1", ActivePackID: &stale},
	})

	pack, err := resolver.Resolve(context.Background(), "ws1", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if pack.ID != DefaultPackID {
		t.Errorf("stale active pack should fall back to default, got %s", pack.ID)
	}
}

func TestResolverExplicitPackWins(t *testing.T) {
	store := NewStore("")
	resolver := NewResolver(store, fakeWorkspaces{})

	pack, err := resolver.Resolve(context.Background(), "ignored", DefaultPackID)
	if err != nil {
		t.Fatalf("Resolve with explicit pack failed: %v", err)
	}
	if pack.ID != DefaultPackID {
		t.Errorf("expected explicit pack, got %s", pack.ID)
	}

	if _, err := resolver.Resolve(context.Background(), "ignored", "missing.v1"); !errors.Is(err, ErrPackNotFound) {
		t.Errorf("explicit missing pack should error, got %v", err)
	}
}

// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package packs

import (
	"context"
	"errors"
	"fmt"

	"github.com/revlumen/leadfeed/internal/models"
)

// WorkspaceGetter is the slice of the database layer the resolver needs.
// Satisfied by *database.DB.
type WorkspaceGetter interface {
	GetWorkspace(ctx context.Context, id string) (*models.Workspace, error)
}

// Resolver maps a workspace to its effective pack: the workspace's active
// pack when set and loadable, otherwise the system default pack.
type Resolver struct {
	store      *Store
	workspaces WorkspaceGetter
}

// NewResolver creates a pack resolver.
func NewResolver(store *Store, workspaces WorkspaceGetter) *Resolver {
	return &Resolver{store: store, workspaces: workspaces}
}

// Resolve returns the pack for the workspace. An explicit packID overrides
// workspace resolution entirely; an explicit pack that does not exist is an
// error rather than a silent fallback.
func (r *Resolver) Resolve(ctx context.Context, workspaceID, packID string) (*Pack, error) {
	if packID != "" {
		return r.store.Get(packID)
	}

	ws, err := r.workspaces.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace %s: %w", workspaceID, err)
	}

	if ws.ActivePackID != nil && *ws.ActivePackID != "" {
		pack, err := r.store.Get(*ws.ActivePackID)
		if err == nil {
			return pack, nil
		}
		if !errors.Is(err, ErrPackNotFound) {
			return nil, err
		}
		// Active pack reference is stale; fall through to the default.
	}

	return r.store.Get(DefaultPackID)
}

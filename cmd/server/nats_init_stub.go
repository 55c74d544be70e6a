// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

//go:build !nats

// This file provides a no-op stub for NATS transport initialization.
// It is only compiled when the "nats" build tag is NOT enabled.
//
// Build without NATS support (default):
//
//	go build -o leadfeed ./cmd/server

package main

import (
	"context"

	"github.com/revlumen/leadfeed/internal/api"
	"github.com/revlumen/leadfeed/internal/config"
	"github.com/revlumen/leadfeed/internal/ingest"
	"github.com/revlumen/leadfeed/internal/logging"
)

// NATSComponents is an empty placeholder in non-NATS builds.
type NATSComponents struct{}

// InitNATS is a no-op stub for non-NATS builds. It always returns
// (nil, nil) so main.go can call it unconditionally.
func InitNATS(_ context.Context, cfg *config.Config, _ *ingest.Queue) (*NATSComponents, error) {
	if cfg.NATS.Enabled {
		logging.Warn().Msg("NATS enabled in config but not compiled in, build with -tags=nats")
	}
	return nil, nil
}

// ConfigurePublisher is a no-op in non-NATS builds; events stay on the
// in-process queue.
func (n *NATSComponents) ConfigurePublisher(_ *api.Handlers, _ string) {}

// Shutdown is a no-op in non-NATS builds.
func (n *NATSComponents) Shutdown(_ context.Context) {}

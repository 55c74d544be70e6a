// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

//go:build !nats

package main

import (
	"github.com/revlumen/leadfeed/internal/supervisor"
)

// AddNATSToSupervisor is a no-op stub for non-NATS builds. The
// NATSComponents argument is always nil from the stub InitNATS.
func AddNATSToSupervisor(_ *supervisor.Tree, _ *NATSComponents) {}

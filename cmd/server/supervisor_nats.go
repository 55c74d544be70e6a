// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

//go:build nats

package main

import (
	"github.com/revlumen/leadfeed/internal/logging"
	"github.com/revlumen/leadfeed/internal/supervisor"
	"github.com/revlumen/leadfeed/internal/supervisor/services"
)

// AddNATSToSupervisor adds the event consumer to the ingest layer of the
// supervision tree. Suture restarts the consumer with backoff if the
// subscription fails.
func AddNATSToSupervisor(tree *supervisor.Tree, components *NATSComponents) {
	if components == nil || components.Consumer == nil {
		return
	}
	tree.AddIngestService(services.NewConsumerService(components.Consumer))
	logging.Info().Msg("Event consumer added to supervisor tree")
}

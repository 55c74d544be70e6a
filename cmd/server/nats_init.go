// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

//go:build nats

// This file wires the NATS JetStream event transport. It is only
// compiled when the "nats" build tag is enabled:
//
//	go build -tags=nats -o leadfeed ./cmd/server

package main

import (
	"context"
	"fmt"

	"github.com/revlumen/leadfeed/internal/api"
	"github.com/revlumen/leadfeed/internal/config"
	"github.com/revlumen/leadfeed/internal/ingest"
	"github.com/revlumen/leadfeed/internal/logging"
)

// NATSComponents bundles the event transport pieces so main.go can manage
// their lifecycle as a unit.
type NATSComponents struct {
	Embedded   *ingest.EmbeddedServer
	Publisher  *ingest.Publisher
	Subscriber *ingest.Subscriber
	Consumer   *ingest.Consumer
}

// InitNATS builds the event transport from configuration. Returns
// (nil, nil) when the transport is disabled so main.go can call it
// unconditionally.
//
// When EmbeddedServer is set, an in-process JetStream server is started
// and its client URL overrides cfg.NATS.URL.
func InitNATS(ctx context.Context, cfg *config.Config, queue *ingest.Queue) (*NATSComponents, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS transport disabled, events accepted via HTTP only")
		return nil, nil
	}

	components := &NATSComponents{}

	if cfg.NATS.EmbeddedServer {
		embedded, err := ingest.NewEmbeddedServer(&cfg.NATS)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		components.Embedded = embedded
		cfg.NATS.URL = embedded.ClientURL()
		logging.Info().Str("url", cfg.NATS.URL).Msg("Embedded NATS server started")
	}

	if err := ingest.EnsureStream(ctx, &cfg.NATS); err != nil {
		components.Shutdown(ctx)
		return nil, fmt.Errorf("ensure event stream: %w", err)
	}

	wmLogger := ingest.NewWatermillLogger()

	publisher, err := ingest.NewPublisher(&cfg.NATS, wmLogger)
	if err != nil {
		components.Shutdown(ctx)
		return nil, fmt.Errorf("create publisher: %w", err)
	}
	components.Publisher = publisher

	subscriber, err := ingest.NewSubscriber(&cfg.NATS, wmLogger)
	if err != nil {
		components.Shutdown(ctx)
		return nil, fmt.Errorf("create subscriber: %w", err)
	}
	components.Subscriber = subscriber
	components.Consumer = ingest.NewConsumer(subscriber, queue, cfg.NATS.Topic, wmLogger)

	logging.Info().
		Str("url", cfg.NATS.URL).
		Str("topic", cfg.NATS.Topic).
		Str("stream", cfg.NATS.StreamName).
		Msg("NATS event transport initialized")

	return components, nil
}

// ConfigurePublisher routes HTTP-accepted events through JetStream so
// every consumer replica sees them.
func (n *NATSComponents) ConfigurePublisher(handlers *api.Handlers, topic string) {
	if n == nil || n.Publisher == nil {
		return
	}
	handlers.SetEventPublisher(n.Publisher, topic)
	logging.Info().Str("topic", topic).Msg("HTTP event ingestion publishing to JetStream")
}

// Shutdown stops the transport in reverse dependency order.
func (n *NATSComponents) Shutdown(ctx context.Context) {
	if n == nil {
		return
	}
	if n.Subscriber != nil {
		if err := n.Subscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing NATS subscriber")
		}
	}
	if n.Publisher != nil {
		if err := n.Publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing NATS publisher")
		}
	}
	if n.Embedded != nil {
		if err := n.Embedded.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Error shutting down embedded NATS server")
		}
	}
}

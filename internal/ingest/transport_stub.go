// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

//go:build !nats

package ingest

import (
	"context"
	"fmt"

	"github.com/revlumen/leadfeed/internal/config"
)

// Stubs for the NATS ingest transport. Build with -tags=nats to enable
// the Watermill/JetStream implementation; without it the HTTP ingest path
// still works.

var errNATSUnavailable = fmt.Errorf("NATS transport not available: build with -tags=nats")

// Publisher is a stub when NATS dependencies are not compiled in.
type Publisher struct{}

// NewPublisher returns an error when NATS support is not compiled in.
func NewPublisher(cfg *config.NATSConfig, logger interface{}) (*Publisher, error) {
	return nil, errNATSUnavailable
}

// PublishEvent is a stub that returns an error.
func (p *Publisher) PublishEvent(ctx context.Context, topic string, event *CompanyEvent) error {
	return errNATSUnavailable
}

// Close is a no-op stub.
func (p *Publisher) Close() error {
	return nil
}

// Subscriber is a stub when NATS dependencies are not compiled in.
type Subscriber struct{}

// NewSubscriber returns an error when NATS support is not compiled in.
func NewSubscriber(cfg *config.NATSConfig, logger interface{}) (*Subscriber, error) {
	return nil, errNATSUnavailable
}

// Close is a no-op stub.
func (s *Subscriber) Close() error {
	return nil
}

// EmbeddedServer is a stub when NATS dependencies are not compiled in.
type EmbeddedServer struct{}

// NewEmbeddedServer returns an error when NATS support is not compiled in.
func NewEmbeddedServer(cfg *config.NATSConfig) (*EmbeddedServer, error) {
	return nil, errNATSUnavailable
}

// ClientURL returns an empty string for the stub implementation.
func (s *EmbeddedServer) ClientURL() string {
	return ""
}

// Shutdown is a no-op stub.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	return nil
}

// IsRunning always reports false for the stub implementation.
func (s *EmbeddedServer) IsRunning() bool {
	return false
}

// Consumer is a stub when NATS dependencies are not compiled in.
type Consumer struct{}

// NewConsumer returns a stub consumer.
func NewConsumer(subscriber *Subscriber, queue *Queue, topic string, logger interface{}) *Consumer {
	return &Consumer{}
}

// Run returns an error when NATS support is not compiled in.
func (c *Consumer) Run(ctx context.Context) error {
	return errNATSUnavailable
}

// EnsureStream is a no-op stub.
func EnsureStream(ctx context.Context, cfg *config.NATSConfig) error {
	return nil
}

// NewWatermillLogger returns nil for the stub implementation.
func NewWatermillLogger() interface{} {
	return nil
}

// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package services

import (
	"context"
	"errors"
	"fmt"
)

// ConsumerRunner matches ingest.Consumer's blocking Run method. An
// interface keeps the wrapper testable and avoids importing the
// build-tagged ingest transport here.
type ConsumerRunner interface {
	Run(ctx context.Context) error
}

// ConsumerService wraps the NATS event consumer as a supervised service.
// A consumer crash (broken subscription, closed connection) surfaces as a
// Serve error, so suture restarts it with backoff while the API layer
// keeps serving.
type ConsumerService struct {
	consumer ConsumerRunner
	name     string
}

// NewConsumerService creates a new consumer service wrapper.
func NewConsumerService(consumer ConsumerRunner) *ConsumerService {
	return &ConsumerService{
		consumer: consumer,
		name:     "event-consumer",
	}
}

// Serve implements suture.Service. Run blocks until the context is
// canceled or the subscription fails.
func (s *ConsumerService) Serve(ctx context.Context) error {
	err := s.consumer.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("event consumer failed: %w", err)
	}
	return err
}

// String implements fmt.Stringer for suture's log messages.
func (s *ConsumerService) String() string {
	return s.name
}

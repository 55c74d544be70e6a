// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

//go:build nats

package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/revlumen/leadfeed/internal/metrics"
)

// Consumer pulls company events off the ingest subject and buffers them on
// the in-process queue for the next ingest stage run. A full queue nacks
// the message so JetStream redelivers it.
type Consumer struct {
	subscriber *Subscriber
	serializer *Serializer
	queue      *Queue
	topic      string
	logger     watermill.LoggerAdapter
}

// NewConsumer creates a consumer bridging the subscriber to the queue.
func NewConsumer(subscriber *Subscriber, queue *Queue, topic string, logger watermill.LoggerAdapter) *Consumer {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}
	return &Consumer{
		subscriber: subscriber,
		serializer: NewSerializer(),
		queue:      queue,
		topic:      topic,
		logger:     logger,
	}
}

// Run consumes messages until context cancellation. Malformed payloads are
// acked and counted rather than redelivered forever.
func (c *Consumer) Run(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			c.processMessage(msg)
		}
	}
}

func (c *Consumer) processMessage(msg *message.Message) {
	event, err := c.serializer.Unmarshal(msg.Payload)
	if err != nil {
		c.logger.Error("Discarding malformed event", err, watermill.LogFields{
			"message_uuid": msg.UUID,
		})
		metrics.IngestEventsConsumed.WithLabelValues("invalid").Inc()
		msg.Ack()
		return
	}

	if err := c.queue.Enqueue(*event); err != nil {
		if errors.Is(err, ErrQueueFull) {
			metrics.IngestEventsConsumed.WithLabelValues("dropped").Inc()
			msg.Nack()
			return
		}
		c.logger.Error("Enqueue failed", err, watermill.LogFields{
			"message_uuid": msg.UUID,
		})
		msg.Nack()
		return
	}

	metrics.RecordNATSConsume()
	metrics.IngestEventsConsumed.WithLabelValues("queued").Inc()
	msg.Ack()
}

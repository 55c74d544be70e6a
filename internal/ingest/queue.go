// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package ingest

import (
	"errors"
	"sync"

	"github.com/revlumen/leadfeed/internal/metrics"
)

// ErrQueueFull is returned when the intake queue cannot accept more events.
// The consumer nacks the message so the broker redelivers it later.
var ErrQueueFull = errors.New("ingest queue full")

// Queue is the bounded handoff between the broker consumer and the ingest
// stage. The consumer enqueues as messages arrive; the stage drains in
// batches on invocation. Decoupling the two keeps broker acking independent
// of database write latency.
type Queue struct {
	mu       sync.Mutex
	events   []CompanyEvent
	capacity int
}

// NewQueue creates a queue. capacity <= 0 gets a sane default.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 10000
	}
	return &Queue{capacity: capacity}
}

// Enqueue adds one event, or returns ErrQueueFull.
func (q *Queue) Enqueue(event CompanyEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) >= q.capacity {
		return ErrQueueFull
	}
	q.events = append(q.events, event)
	metrics.IngestQueueDepth.Set(float64(len(q.events)))
	return nil
}

// Drain removes and returns up to n queued events in arrival order.
func (q *Queue) Drain(n int) []CompanyEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n <= 0 || n > len(q.events) {
		n = len(q.events)
	}
	if n == 0 {
		return nil
	}
	out := make([]CompanyEvent, n)
	copy(out, q.events[:n])
	q.events = append(q.events[:0], q.events[n:]...)
	metrics.IngestQueueDepth.Set(float64(len(q.events)))
	return out
}

// Len returns the current queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

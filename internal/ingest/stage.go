// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package ingest

import (
	"context"
	"fmt"

	"github.com/revlumen/leadfeed/internal/logging"
	"github.com/revlumen/leadfeed/internal/metrics"
	"github.com/revlumen/leadfeed/internal/models"
	"github.com/revlumen/leadfeed/internal/stage"
)

// Store is the persistence surface the ingest stage needs.
type Store interface {
	InsertRawEvents(ctx context.Context, events []models.RawEvent) (int, error)
}

// Handler drains the intake queue into raw event rows as the ingest stage.
type Handler struct {
	store     Store
	queue     *Queue
	batchSize int
}

// NewHandler creates the ingest stage handler. batchSize caps how many
// queued events one invocation persists.
func NewHandler(store Store, queue *Queue, batchSize int) *Handler {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Handler{store: store, queue: queue, batchSize: batchSize}
}

// Run validates and persists one batch of queued events. Invalid events are
// counted and dropped; duplicate IDs are skipped by the insert. An empty
// queue is a skipped run.
func (h *Handler) Run(ctx context.Context, inv *stage.Invocation) (stage.Outcome, error) {
	batch := h.queue.Drain(h.batchSize)
	if len(batch) == 0 {
		return stage.Outcome{Skipped: true}, nil
	}

	rows := make([]models.RawEvent, 0, len(batch))
	skippedInvalid := 0
	for i := range batch {
		ev := &batch[i]
		if err := ev.Validate(); err != nil {
			skippedInvalid++
			metrics.IngestEventsConsumed.WithLabelValues("invalid").Inc()
			logging.Warn().Err(err).Str("event_type", ev.EventType).Msg("Dropping invalid event")
			continue
		}
		// The producer's workspace attribution wins over the invocation
		// scope; the invocation only supplies the default pack.
		rows = append(rows, ev.Normalize(inv.Pack.ID))
	}

	inserted, err := h.store.InsertRawEvents(ctx, rows)
	if err != nil {
		return stage.Outcome{}, fmt.Errorf("persist event batch: %w", err)
	}
	skippedDuplicate := len(rows) - inserted
	metrics.IngestEventsConsumed.WithLabelValues("inserted").Add(float64(inserted))
	metrics.IngestEventsConsumed.WithLabelValues("duplicate").Add(float64(skippedDuplicate))

	return stage.Outcome{
		ItemsProcessed: inserted,
		Detail: map[string]int{
			"inserted":          inserted,
			"skipped_duplicate": skippedDuplicate,
			"skipped_invalid":   skippedInvalid,
		},
	}, nil
}

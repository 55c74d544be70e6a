// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

// Package metrics provides Prometheus instrumentation for stage execution,
// projection maintenance, database queries, ingestion, and the scoring
// engine circuit breaker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Stage Execution Metrics
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadfeed_stage_duration_seconds",
			Help:    "Duration of stage executions in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	StageOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadfeed_stage_outcomes_total",
			Help: "Total stage executions by terminal status",
		},
		[]string{"stage", "status"},
	)

	StageRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadfeed_stage_rate_limited_total",
			Help: "Total stage invocations refused by the rate limiter",
		},
		[]string{"stage"},
	)

	StageIdempotentReplays = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadfeed_stage_idempotent_replays_total",
			Help: "Total stage invocations answered from a cached job run",
		},
		[]string{"stage"},
	)

	// Derivation Metrics
	DeriveEventsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadfeed_derive_events_processed_total",
			Help: "Total raw events folded into signal aggregates",
		},
	)

	DeriveEventsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadfeed_derive_events_skipped_total",
			Help: "Total raw events skipped (no company or unmapped type)",
		},
	)

	// Projection Metrics
	ProjectionRowsUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadfeed_projection_rows_upserted_total",
			Help: "Total lead feed rows written by the projection builder",
		},
	)

	ProjectionPairsExcluded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadfeed_projection_pairs_excluded_total",
			Help: "Total snapshot pairs excluded from the lead feed",
		},
		[]string{"reason"}, // "suppressed", "below_threshold"
	)

	FeedQueryPath = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadfeed_feed_query_path_total",
			Help: "Ranked feed queries by read path",
		},
		[]string{"path"}, // "projection", "fallback"
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadfeed_db_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadfeed_db_query_errors_total",
			Help: "Total DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// Ingestion Metrics
	IngestEventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadfeed_ingest_events_consumed_total",
			Help: "Company events consumed from the ingest transport",
		},
		[]string{"outcome"}, // "queued", "invalid", "dropped"
	)

	IngestQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leadfeed_ingest_queue_depth",
			Help: "Events buffered between the consumer and the ingest stage",
		},
	)

	NATSMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadfeed_nats_messages_published_total",
			Help: "Total messages published to the NATS ingest subject",
		},
	)

	NATSMessagesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadfeed_nats_messages_consumed_total",
			Help: "Total messages consumed from the NATS ingest subject",
		},
	)

	// Circuit Breaker Metrics (scoring engine client)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "leadfeed_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadfeed_circuit_breaker_requests_total",
			Help: "Circuit breaker request outcomes",
		},
		[]string{"name", "outcome"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadfeed_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// HTTP Metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadfeed_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// ObserveDBQuery records a database query duration and, when err is non-nil,
// an error for the same (operation, table).
func ObserveDBQuery(operation, table string, start time.Time, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordNATSPublish increments the published message counter.
func RecordNATSPublish() {
	NATSMessagesPublished.Inc()
}

// RecordNATSConsume increments the consumed message counter.
func RecordNATSConsume() {
	NATSMessagesConsumed.Inc()
}

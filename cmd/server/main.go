// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

// Leadfeed turns raw buyer-intent events into a ranked outreach feed.
//
// The pipeline runs four explicit stages per workspace: ingest buffers
// company events, derive folds them into signal instances, score calls
// the external scoring engine and persists snapshot pairs, and
// update_lead_feed rebuilds the ranked projection. Stages are invoked
// over the HTTP API (POST /api/v1/stages/run) or by an external
// scheduler.
//
// Usage:
//
//	leadfeed
//
// Configuration comes from defaults, an optional YAML config file
// (CONFIG_PATH or ./config.yaml), and environment variables, in that
// order of precedence.
//
// Build with the NATS event transport:
//
//	go build -tags=nats ./cmd/server
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/revlumen/leadfeed/internal/api"
	"github.com/revlumen/leadfeed/internal/config"
	"github.com/revlumen/leadfeed/internal/database"
	"github.com/revlumen/leadfeed/internal/derive"
	"github.com/revlumen/leadfeed/internal/feed"
	"github.com/revlumen/leadfeed/internal/ingest"
	"github.com/revlumen/leadfeed/internal/logging"
	"github.com/revlumen/leadfeed/internal/packs"
	"github.com/revlumen/leadfeed/internal/projection"
	"github.com/revlumen/leadfeed/internal/score"
	"github.com/revlumen/leadfeed/internal/stage"
	"github.com/revlumen/leadfeed/internal/supervisor"
	"github.com/revlumen/leadfeed/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting leadfeed")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Str("path", cfg.Database.Path).Msg("Database initialized")

	// Pack store loads lazily; probe it now so a broken pack directory
	// fails at startup instead of on the first request.
	packStore := packs.NewStore(cfg.Packs.Dir)
	packIDs, err := packStore.IDs()
	if err != nil {
		logging.Fatal().Err(err).Str("dir", cfg.Packs.Dir).Msg("Failed to load configuration packs")
	}
	logging.Info().Int("packs", len(packIDs)).Msg("Configuration packs loaded")

	resolver := packs.NewResolver(packStore, db)

	// Stage pipeline wiring. Each stage kind gets one handler; the
	// executor owns idempotency, rate limiting, and job run persistence.
	limiter := stage.NewRateLimiter(db, cfg.Stages.RateLimitPerHour, cfg.Stages.RateLimitWindow)
	executor := stage.NewExecutor(db, resolver, limiter)

	queue := ingest.NewQueue(cfg.NATS.QueueCapacity)
	builder := projection.NewBuilder(db)
	scorer := score.NewClient(&cfg.Scoring)

	executor.Register(stage.KindIngest, ingest.NewHandler(db, queue, cfg.Stages.IngestBatchSize))
	executor.Register(stage.KindDerive, derive.NewDeriver(db))
	executor.Register(stage.KindScore, score.NewHandler(db, scorer, builder, cfg.Scoring.BatchSize))
	executor.Register(stage.KindUpdateLeadFeed, projection.NewFeedUpdateHandler(builder))

	feedSvc := feed.NewService(db, builder)
	backfill := projection.NewBackfillRunner(db, resolver, builder)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog.
	slogLogger := logging.NewSlogLogger()

	tree, err := supervisor.NewTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// Optional NATS transport (requires -tags=nats).
	natsComponents, err := InitNATS(ctx, cfg, queue)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize NATS transport")
	}
	defer natsComponents.Shutdown(context.Background())
	AddNATSToSupervisor(tree, natsComponents)

	handlers := api.NewHandlers(db, executor, feedSvc, backfill, resolver, packStore, queue,
		cfg.Feed.CompositeFloor, cfg.Feed.DefaultLimit)
	natsComponents.ConfigurePublisher(handlers, cfg.NATS.Topic)
	middleware := api.NewMiddleware(&api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.API.CORSOrigins,
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.API.RateLimitReqs,
		RateLimitWindow:    cfg.API.RateLimitWindow,
	})
	router := api.NewRouter(handlers, middleware)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor has fully stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Leadfeed stopped gracefully")
}

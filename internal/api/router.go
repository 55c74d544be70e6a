// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

// Package api provides the HTTP surface: Chi routing, middleware, request
// validation, and the standard response envelope.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router assembles the HTTP routes.
type Router struct {
	handlers   *Handlers
	middleware *Middleware
}

// NewRouter creates a router from handlers and middleware.
func NewRouter(handlers *Handlers, mw *Middleware) *Router {
	if mw == nil {
		mw = NewMiddleware(nil)
	}
	return &Router{handlers: handlers, middleware: mw}
}

// Setup wires all routes and returns the root handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.middleware.CORS())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.middleware.RateLimitHealth())
		r.Use(SecurityHeaders())
		r.Get("/live", router.handlers.HealthLive)
		r.Get("/ready", router.handlers.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SecurityHeaders())
		r.Use(PrometheusMetrics())

		r.Group(func(r chi.Router) {
			r.Use(router.middleware.RateLimit())
			r.Get("/leads", router.handlers.Leads)
			r.Get("/leads/recent", router.handlers.LeadsRecent)
			r.Get("/outreach", router.handlers.OutreachList)
			r.Get("/jobs", router.handlers.JobsList)
			r.Get("/jobs/{id}", router.handlers.JobGet)
			r.Get("/workspaces", router.handlers.Workspaces)
			r.Get("/packs", router.handlers.Packs)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.middleware.RateLimitWrite())
			r.Post("/stages/run", router.handlers.StagesRun)
			r.Post("/backfill", router.handlers.Backfill)
			r.Post("/outreach", router.handlers.OutreachCreate)
			r.Post("/events", router.handlers.EventsIngest)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

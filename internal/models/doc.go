// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

// Package models defines the core data structures shared across Leadfeed:
// workspaces, raw events, signal instances, scoring snapshots, lead feed
// rows, job runs, and the standard API response envelope.
//
// These types map 1:1 onto the DuckDB schema in internal/database and are
// deliberately free of behavior beyond small accessors, so that every layer
// (derivation, projection, query, API) shares one vocabulary.
package models

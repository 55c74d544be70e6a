// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration consistency. It is called by Load after all
// layers are merged, so every value has already received its default.
func (c *Config) Validate() error {
	var problems []string

	if c.Database.Path == "" {
		problems = append(problems, "database.path must not be empty")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.Timeout <= 0 {
		problems = append(problems, "server.timeout must be positive")
	}

	if c.Feed.CompositeFloor < 0 || c.Feed.CompositeFloor > 100 {
		problems = append(problems, fmt.Sprintf("feed.composite_floor must be 0-100, got %d", c.Feed.CompositeFloor))
	}
	if c.Feed.DefaultLimit <= 0 {
		problems = append(problems, "feed.default_limit must be positive")
	}

	if c.Stages.RateLimitWindow <= 0 {
		problems = append(problems, "stages.rate_limit_window must be positive")
	}
	if c.Stages.IngestBatchSize <= 0 {
		problems = append(problems, "stages.ingest_batch_size must be positive")
	}

	if c.NATS.Enabled {
		if c.NATS.URL == "" && !c.NATS.EmbeddedServer {
			problems = append(problems, "nats.url is required when nats is enabled without an embedded server")
		}
		if c.NATS.Topic == "" {
			problems = append(problems, "nats.topic must not be empty when nats is enabled")
		}
		if c.NATS.QueueCapacity <= 0 {
			problems = append(problems, "nats.queue_capacity must be positive")
		}
	}

	if c.Scoring.URL != "" && c.Scoring.BatchSize <= 0 {
		problems = append(problems, "scoring.batch_size must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}
